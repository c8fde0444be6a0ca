package verifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"ui_verification/domain/entities"
	"ui_verification/domain/interfaces"
	"ui_verification/infrastructure/security"
	"ui_verification/infrastructure/storage"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	appURL         = "http://localhost:8081"
	screenshotPath = "verification/verification.png"
)

var (
	navLocator  = entities.TextLocator("Chats")
	iconLocator = entities.StyleLocator("i", "font-family: Ionicons")
	pngBytes    = []byte("\x89PNG\r\n\x1a\nfake")
)

type harness struct {
	browser  *mockBrowser
	storage  interfaces.Storage
	verifier *Verifier
	logs     *logtest.Hook
	opened   int
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	chdir(t, t.TempDir())

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := storage.NewReportStore(".verification")
	require.NoError(t, err)

	h := &harness{browser: &mockBrowser{}, storage: store, logs: logtest.NewLocal(logger)}
	open := func() (interfaces.Browser, error) {
		h.opened++
		return h.browser, nil
	}
	h.verifier = NewVerifier(open, store, security.NewSecurityLayer(logger, false), logger, opts)
	return h
}

func defaultOptions() Options {
	return Options{
		NavigationTimeout: 90 * time.Second,
		AssertTimeout:     5 * time.Second,
		PollInterval:      10 * time.Millisecond,
		WaitForServer:     true,
	}
}

func tabIconsScenario() *entities.Scenario {
	return entities.TabIconsScenario(entities.TabIconsOptions{
		URL:               appURL,
		NavigationTimeout: 90 * time.Second,
		NavText:           "Chats",
		ElementTimeout:    60 * time.Second,
		IconTag:           "i",
		IconStyleMarker:   "font-family: Ionicons",
		ScreenshotPath:    screenshotPath,
		FullPage:          true,
	})
}

func withinBound(bound time.Duration) interface{} {
	return mock.MatchedBy(func(d time.Duration) bool {
		return d > 0 && d <= bound
	})
}

func TestRun_AllStepsPass(t *testing.T) {
	h := newHarness(t, defaultOptions())
	h.browser.On("Navigate", appURL, withinBound(90*time.Second)).Return(nil).Once()
	h.browser.On("ExpectVisible", navLocator, 60*time.Second).Return(nil).Once()
	h.browser.On("ExpectVisible", iconLocator, 5*time.Second).Return(nil).Once()
	h.browser.On("Screenshot", true).Return(pngBytes, nil).Once()
	h.browser.On("Close").Return(nil).Once()

	report, err := h.verifier.Run(context.Background(), tabIconsScenario())
	require.NoError(t, err)

	assert.True(t, report.Passed())
	assert.Equal(t, "mock", report.Driver)
	assert.Equal(t, screenshotPath, report.Screenshot)
	require.Len(t, report.Steps, 4)
	for _, step := range report.Steps {
		assert.True(t, step.Passed, step.Name)
	}

	data, err := os.ReadFile(screenshotPath)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	history, err := h.storage.LoadHistory()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, report.ID, history[0].ID)
	assert.Equal(t, entities.RunStatusPassed, history[0].Status)

	assert.Equal(t, 1, h.opened)
	h.browser.AssertExpectations(t)
}

func TestRun_LogsStepRiskLevel(t *testing.T) {
	h := newHarness(t, defaultOptions())
	h.browser.On("Navigate", appURL, withinBound(90*time.Second)).Return(nil).Once()
	h.browser.On("ExpectVisible", mock.Anything, mock.Anything).Return(nil).Twice()
	h.browser.On("Screenshot", true).Return(pngBytes, nil).Once()
	h.browser.On("Close").Return(nil).Once()

	scenario := tabIconsScenario()
	_, err := h.verifier.Run(context.Background(), scenario)
	require.NoError(t, err)

	risks := map[string]any{}
	for _, entry := range h.logs.AllEntries() {
		if _, ok := entry.Data["step"]; ok && entry.Level == logrus.InfoLevel {
			risks[entry.Message] = entry.Data["risk"]
		}
	}

	assert.Equal(t, "low", risks[scenario.Steps[0].Name])
	assert.Equal(t, "low", risks[scenario.Steps[1].Name])
	assert.Equal(t, "low", risks[scenario.Steps[2].Name])
	assert.Equal(t, "medium", risks[scenario.Steps[3].Name])
}

func TestRun_NavTextNeverRenders(t *testing.T) {
	h := newHarness(t, defaultOptions())
	h.browser.On("Navigate", appURL, withinBound(90*time.Second)).Return(nil)
	h.browser.On("ExpectVisible", navLocator, 60*time.Second).
		Return(fmt.Errorf("%w: text=\"Chats\" within 1m0s", entities.ErrElementNotVisible))
	h.browser.On("Close").Return(nil).Once()

	report, err := h.verifier.Run(context.Background(), tabIconsScenario())
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrElementNotVisible)

	var stepErr *entities.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 1, stepErr.Index)

	assert.Equal(t, entities.RunStatusFailed, report.Status)
	require.Len(t, report.Steps, 2)
	assert.Equal(t, "ElementNotVisible", report.Steps[1].ErrorKind)

	h.browser.AssertNotCalled(t, "Screenshot", mock.Anything)
	h.browser.AssertExpectations(t)

	_, statErr := os.Stat(screenshotPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_NoIconElement(t *testing.T) {
	h := newHarness(t, defaultOptions())
	h.browser.On("Navigate", appURL, withinBound(90*time.Second)).Return(nil)
	h.browser.On("ExpectVisible", navLocator, 60*time.Second).Return(nil)
	h.browser.On("ExpectVisible", iconLocator, 5*time.Second).
		Return(fmt.Errorf("%w: i[style*=\"font-family: Ionicons\"] matched nothing", entities.ErrElementNotFound))
	h.browser.On("Close").Return(nil).Once()

	report, err := h.verifier.Run(context.Background(), tabIconsScenario())
	require.ErrorIs(t, err, entities.ErrElementNotFound)

	var stepErr *entities.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 2, stepErr.Index)

	require.Len(t, report.Steps, 3)
	assert.True(t, report.Steps[1].Passed)
	assert.False(t, report.Steps[2].Passed)
	assert.Equal(t, "ElementNotFound", report.Steps[2].ErrorKind)
	h.browser.AssertExpectations(t)
}

func TestRun_UnreachableTargetTimesOut(t *testing.T) {
	h := newHarness(t, defaultOptions())
	scenario := tabIconsScenario()
	scenario.Steps[0].Timeout = 80 * time.Millisecond

	refused := fmt.Errorf("%w: net::ERR_CONNECTION_REFUSED", entities.ErrNavigationFailed)
	h.browser.On("Navigate", appURL, withinBound(80*time.Millisecond)).Return(refused)
	h.browser.On("Close").Return(nil).Once()

	started := time.Now()
	report, err := h.verifier.Run(context.Background(), scenario)
	elapsed := time.Since(started)

	require.ErrorIs(t, err, entities.ErrNavigationTimeout)
	assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
	assert.Equal(t, "NavigationTimeout", report.Steps[0].ErrorKind)

	calls := 0
	for _, c := range h.browser.Calls {
		if c.Method == "Navigate" {
			calls++
		}
	}
	assert.Greater(t, calls, 1)
	h.browser.AssertNotCalled(t, "ExpectVisible", mock.Anything, mock.Anything)
	h.browser.AssertExpectations(t)
}

func TestRun_WaitsForServerToStart(t *testing.T) {
	h := newHarness(t, defaultOptions())
	refused := fmt.Errorf("%w: net::ERR_CONNECTION_REFUSED", entities.ErrNavigationFailed)
	h.browser.On("Navigate", appURL, withinBound(90*time.Second)).Return(refused).Once()
	h.browser.On("Navigate", appURL, withinBound(90*time.Second)).Return(nil).Once()
	h.browser.On("ExpectVisible", mock.Anything, mock.Anything).Return(nil)
	h.browser.On("Screenshot", true).Return(pngBytes, nil)
	h.browser.On("Close").Return(nil)

	report, err := h.verifier.Run(context.Background(), tabIconsScenario())
	require.NoError(t, err)
	assert.True(t, report.Passed())
	h.browser.AssertNumberOfCalls(t, "Navigate", 2)
}

func TestRun_NoWaitForServer(t *testing.T) {
	opts := defaultOptions()
	opts.WaitForServer = false
	h := newHarness(t, opts)

	refused := fmt.Errorf("%w: net::ERR_CONNECTION_REFUSED", entities.ErrNavigationFailed)
	h.browser.On("Navigate", appURL, mock.Anything).Return(refused).Once()
	h.browser.On("Close").Return(nil)

	_, err := h.verifier.Run(context.Background(), tabIconsScenario())
	require.ErrorIs(t, err, entities.ErrNavigationFailed)
	h.browser.AssertNumberOfCalls(t, "Navigate", 1)
}

func TestRun_NavigationTimeoutIsNotRetried(t *testing.T) {
	h := newHarness(t, defaultOptions())
	h.browser.On("Navigate", appURL, mock.Anything).
		Return(fmt.Errorf("%w: %s did not load", entities.ErrNavigationTimeout, appURL)).Once()
	h.browser.On("Close").Return(nil)

	_, err := h.verifier.Run(context.Background(), tabIconsScenario())
	require.ErrorIs(t, err, entities.ErrNavigationTimeout)
	h.browser.AssertNumberOfCalls(t, "Navigate", 1)
}

func TestRun_RejectedScenarioNeverOpensBrowser(t *testing.T) {
	h := newHarness(t, defaultOptions())
	scenario := tabIconsScenario()
	scenario.Steps[0].URL = "https://example.com"

	report, err := h.verifier.Run(context.Background(), scenario)
	require.ErrorIs(t, err, entities.ErrUnsafeTarget)
	assert.Equal(t, 0, h.opened)
	assert.Equal(t, entities.RunStatusFailed, report.Status)

	history, err := h.storage.LoadHistory()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entities.RunStatusFailed, history[0].Status)
}

func TestRun_BrowserOpenFails(t *testing.T) {
	chdir(t, t.TempDir())
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store, err := storage.NewReportStore(".verification")
	require.NoError(t, err)

	open := func() (interfaces.Browser, error) {
		return nil, errors.New("chromium not installed")
	}
	v := NewVerifier(open, store, security.NewSecurityLayer(logger, false), logger, defaultOptions())

	report, err := v.Run(context.Background(), tabIconsScenario())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chromium not installed")
	assert.Equal(t, entities.RunStatusFailed, report.Status)
	assert.Empty(t, report.Steps)
}

func TestRun_ScreenshotWriteFailure(t *testing.T) {
	h := newHarness(t, defaultOptions())
	require.NoError(t, os.WriteFile("verification", []byte("not a directory"), 0644))

	h.browser.On("Navigate", appURL, mock.Anything).Return(nil)
	h.browser.On("ExpectVisible", mock.Anything, mock.Anything).Return(nil)
	h.browser.On("Screenshot", true).Return(pngBytes, nil)
	h.browser.On("Close").Return(nil).Once()

	report, err := h.verifier.Run(context.Background(), tabIconsScenario())
	require.ErrorIs(t, err, entities.ErrFilesystem)
	assert.Equal(t, "FilesystemError", report.Steps[3].ErrorKind)
	assert.Empty(t, report.Screenshot)
	h.browser.AssertExpectations(t)
}

func TestRun_CanceledContextStillClosesBrowser(t *testing.T) {
	h := newHarness(t, defaultOptions())
	h.browser.On("Close").Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.verifier.Run(ctx, tabIconsScenario())
	require.ErrorIs(t, err, context.Canceled)
	h.browser.AssertNotCalled(t, "Navigate", mock.Anything, mock.Anything)
	h.browser.AssertExpectations(t)
}

func TestRun_CloseErrorDoesNotFailRun(t *testing.T) {
	h := newHarness(t, defaultOptions())
	h.browser.On("Navigate", appURL, mock.Anything).Return(nil)
	h.browser.On("ExpectVisible", mock.Anything, mock.Anything).Return(nil)
	h.browser.On("Screenshot", true).Return(pngBytes, nil)
	h.browser.On("Close").Return(errors.New("failed to stop playwright")).Once()

	report, err := h.verifier.Run(context.Background(), tabIconsScenario())
	require.NoError(t, err)
	assert.True(t, report.Passed())
}

func TestRun_RerunOverwritesScreenshot(t *testing.T) {
	h := newHarness(t, defaultOptions())
	h.browser.On("Navigate", appURL, mock.Anything).Return(nil)
	h.browser.On("ExpectVisible", mock.Anything, mock.Anything).Return(nil)
	h.browser.On("Screenshot", true).Return([]byte("first run png"), nil).Once()
	h.browser.On("Screenshot", true).Return([]byte("second"), nil).Once()
	h.browser.On("Close").Return(nil)

	for i := 0; i < 2; i++ {
		_, err := h.verifier.Run(context.Background(), tabIconsScenario())
		require.NoError(t, err)
	}

	data, err := os.ReadFile(screenshotPath)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
	assert.Equal(t, 2, h.opened)
}

func TestRun_DefaultAssertTimeoutApplied(t *testing.T) {
	h := newHarness(t, Options{})
	scenario := &entities.Scenario{
		Name: "defaults",
		Steps: []entities.Step{
			{Type: entities.StepNavigate, Name: "open", URL: appURL},
			{Type: entities.StepExpectVisible, Name: "icon", Locator: &iconLocator},
		},
	}

	h.browser.On("Navigate", appURL, withinBound(90*time.Second)).Return(nil)
	h.browser.On("ExpectVisible", iconLocator, 5*time.Second).Return(nil)
	h.browser.On("Close").Return(nil)

	_, err := h.verifier.Run(context.Background(), scenario)
	require.NoError(t, err)
	h.browser.AssertExpectations(t)
}
