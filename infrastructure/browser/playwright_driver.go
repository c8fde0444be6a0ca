package browser

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"ui_verification/domain/entities"
	"ui_verification/domain/interfaces"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

type playwrightDriver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	expect  playwright.PlaywrightAssertions
	logger  *logrus.Logger
}

// NewPlaywrightDriver - starts playwright and opens a Chromium page
func NewPlaywrightDriver(opts Options, logger *logrus.Logger) (interfaces.Browser, error) {
	if opts.InstallBrowsers {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("could not install playwright browsers: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	d := &playwrightDriver{
		pw:     pw,
		expect: playwright.NewPlaywrightAssertions(),
		logger: logger,
	}

	launchOptions := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	}
	if opts.SlowMo > 0 {
		launchOptions.SlowMo = milliseconds(opts.SlowMo)
	}
	if opts.ChromeBin != "" {
		launchOptions.ExecutablePath = playwright.String(opts.ChromeBin)
	}

	d.browser, err = pw.Chromium.Launch(launchOptions)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	d.context, err = d.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		IgnoreHttpsErrors: playwright.Bool(true),
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	d.page, err = d.context.NewPage()
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	d.page.OnDialog(func(dialog playwright.Dialog) {
		logger.Debugf("Accepting %s dialog: %s", dialog.Type(), dialog.Message())
		dialog.Accept()
	})

	return d, nil
}

func (d *playwrightDriver) Name() string {
	return "playwright"
}

// Navigate - loads url and waits for the load event
func (d *playwrightDriver) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := awaitOrCancel(ctx, func() error {
		_, err := d.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateLoad,
			Timeout:   milliseconds(timeout),
		})
		return err
	}, d.abort)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %s did not load within %s: %v", entities.ErrNavigationTimeout, url, timeout, err)
	}
	return fmt.Errorf("%w: %s: %v", entities.ErrNavigationFailed, url, err)
}

// ExpectVisible - asserts that the first element matching locator becomes visible
func (d *playwrightDriver) ExpectVisible(ctx context.Context, locator entities.Locator, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	matches, err := d.locate(locator)
	if err != nil {
		return err
	}

	err = awaitOrCancel(ctx, func() error {
		return d.expect.Locator(matches.First()).ToBeVisible(playwright.LocatorAssertionsToBeVisibleOptions{
			Timeout: milliseconds(timeout),
		})
	}, d.abort)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, playwright.ErrTargetClosed) {
		return fmt.Errorf("page closed while waiting for %s: %w", locator, err)
	}

	count, countErr := matches.Count()
	if countErr == nil && count == 0 {
		return fmt.Errorf("%w: %s matched nothing within %s", entities.ErrElementNotFound, locator, timeout)
	}
	return fmt.Errorf("%w: %s within %s: %v", entities.ErrElementNotVisible, locator, timeout, err)
}

// Screenshot - captures the page as PNG
func (d *playwrightDriver) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}
	return data, nil
}

// Close - closes the context, the browser and the playwright driver
func (d *playwrightDriver) Close() error {
	var closeErr error

	if d.context != nil {
		if err := d.context.Close(); err != nil && !isClosedError(err) {
			closeErr = joinCloseError(closeErr, "failed to close context", err)
		}
		d.context = nil
	}

	if d.browser != nil {
		if err := d.browser.Close(); err != nil && !isClosedError(err) {
			closeErr = joinCloseError(closeErr, "failed to close browser", err)
		}
		d.browser = nil
	}

	if d.pw != nil {
		if err := d.pw.Stop(); err != nil {
			closeErr = joinCloseError(closeErr, "failed to stop playwright", err)
		}
		d.pw = nil
	}

	return closeErr
}

// abort - closes the page so a pending Goto or assertion returns at once
func (d *playwrightDriver) abort() {
	if err := d.page.Close(); err != nil && !isClosedError(err) {
		d.logger.Debugf("Failed to close page on cancel: %v", err)
	}
}

// awaitOrCancel runs fn and returns ctx.Err() as soon as ctx is done. cancel
// must make fn return; awaitOrCancel waits for it so fn never outlives the call.
func awaitOrCancel(ctx context.Context, fn func() error, cancel func()) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

// locate - builds a locator matching every candidate element
func (d *playwrightDriver) locate(locator entities.Locator) (playwright.Locator, error) {
	switch locator.Kind {
	case entities.LocatorText:
		return d.page.GetByText(locator.Value, playwright.PageGetByTextOptions{
			Exact: playwright.Bool(true),
		}), nil
	case entities.LocatorStyle:
		return d.page.Locator("xpath=" + styleXPath(locator)), nil
	case entities.LocatorXPath:
		return d.page.Locator("xpath=" + locator.Value), nil
	case entities.LocatorCSS:
		return d.page.Locator("css=" + locator.Value), nil
	default:
		return nil, fmt.Errorf("%w: unknown locator kind %q", entities.ErrInvalidScenario, locator.Kind)
	}
}

// milliseconds converts d to a playwright timeout, rounding up. Playwright
// reads 0 as no timeout, so any positive bound stays at least 1ms.
func milliseconds(d time.Duration) *float64 {
	ms := math.Ceil(float64(d) / float64(time.Millisecond))
	return playwright.Float(max(1, ms))
}

func joinCloseError(prev error, msg string, err error) error {
	if prev != nil {
		return fmt.Errorf("%v; %s: %w", prev, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

var _ interfaces.Browser = (*playwrightDriver)(nil)
