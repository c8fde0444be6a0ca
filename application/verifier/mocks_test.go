package verifier

import (
	"context"
	"time"

	"ui_verification/domain/entities"

	"github.com/stretchr/testify/mock"
)

type mockBrowser struct {
	mock.Mock
}

func (m *mockBrowser) Name() string {
	return "mock"
}

func (m *mockBrowser) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	args := m.Called(url, timeout)
	return args.Error(0)
}

func (m *mockBrowser) ExpectVisible(ctx context.Context, locator entities.Locator, timeout time.Duration) error {
	args := m.Called(locator, timeout)
	return args.Error(0)
}

func (m *mockBrowser) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	args := m.Called(fullPage)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *mockBrowser) Close() error {
	args := m.Called()
	return args.Error(0)
}
