package interfaces

import (
	"context"
	"time"

	"ui_verification/domain/entities"
)

// Browser defines the capability surface a verification run needs from a browser session
type Browser interface {
	// Name returns the driver name used in reports
	Name() string

	// Navigate loads url and waits for the page to respond within timeout
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// ExpectVisible waits until the first element matched by locator is visible
	ExpectVisible(ctx context.Context, locator entities.Locator, timeout time.Duration) error

	// Screenshot captures the current page as PNG
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)

	// Close releases the page, the browser and the driver process
	Close() error
}
