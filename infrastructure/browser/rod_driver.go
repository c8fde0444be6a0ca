package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ui_verification/domain/entities"
	"ui_verification/domain/interfaces"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

type rodDriver struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	logger   *logrus.Logger
}

// NewRodDriver - launches Chromium over CDP with go-rod
func NewRodDriver(opts Options, logger *logrus.Logger) (interfaces.Browser, error) {
	l := launcher.New().Headless(opts.Headless)
	if opts.ChromeBin != "" {
		l = l.Bin(opts.ChromeBin)
	}
	l = l.Set("no-sandbox")
	l = l.Set("disable-dev-shm-usage")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	logger.Debugf("Chromium control URL: %s", controlURL)

	d := &rodDriver{launcher: l, logger: logger}

	browser := rod.New().ControlURL(controlURL)
	if opts.SlowMo > 0 {
		browser = browser.SlowMotion(opts.SlowMo)
	}
	if err := browser.Connect(); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	d.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	d.page = page

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.ViewportWidth,
		Height:            opts.ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	go page.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		logger.Debugf("Accepting %s dialog: %s", e.Type, e.Message)
		_ = proto.PageHandleJavaScriptDialog{Accept: true}.Call(page)
	})()

	return d, nil
}

func (d *rodDriver) Name() string {
	return "rod"
}

// Navigate - loads url and waits for the load event
func (d *rodDriver) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	page := d.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	err := page.Navigate(url)
	if err == nil {
		err = page.WaitLoad()
	}
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s did not load within %s", entities.ErrNavigationTimeout, url, timeout)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %s: %v", entities.ErrNavigationFailed, url, err)
}

// ExpectVisible - waits for the first element matching locator, then for it to become visible
func (d *rodDriver) ExpectVisible(ctx context.Context, locator entities.Locator, timeout time.Duration) error {
	page := d.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	el, err := d.first(page, locator)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: %s matched nothing within %s", entities.ErrElementNotFound, locator, timeout)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to find %s: %w", locator, err)
	}

	if err := el.WaitVisible(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s within %s: %v", entities.ErrElementNotVisible, locator, timeout, err)
	}
	return nil
}

// Screenshot - captures the page as PNG
func (d *rodDriver) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	data, err := d.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}
	return data, nil
}

// Close - closes the page and the browser and removes the temporary profile
func (d *rodDriver) Close() error {
	var closeErr error

	if d.page != nil {
		if err := d.page.Close(); err != nil && !isClosedError(err) {
			closeErr = joinCloseError(closeErr, "failed to close page", err)
		}
		d.page = nil
	}

	if d.browser != nil {
		if err := d.browser.Close(); err != nil && !isClosedError(err) {
			closeErr = joinCloseError(closeErr, "failed to close browser", err)
			d.launcher.Kill()
		}
		d.browser = nil
	} else if d.launcher != nil {
		d.launcher.Kill()
	}

	if d.launcher != nil {
		d.launcher.Cleanup()
		d.launcher = nil
	}

	return closeErr
}

// first - waits until at least one element matches and returns the first in document order
func (d *rodDriver) first(page *rod.Page, locator entities.Locator) (*rod.Element, error) {
	if locator.Kind == entities.LocatorCSS {
		return page.Element(locator.Value)
	}

	xpath, err := toXPath(locator)
	if err != nil {
		return nil, err
	}
	return page.ElementX(xpath)
}

var _ interfaces.Browser = (*rodDriver)(nil)
