package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"ui_verification/domain/entities"
	"ui_verification/domain/interfaces"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

// seleniumPollInterval is how often element conditions are re-checked
const seleniumPollInterval = 100 * time.Millisecond

type seleniumDriver struct {
	wd             selenium.WebDriver
	service        *selenium.Service
	logger         *logrus.Logger
	viewportWidth  int
	viewportHeight int
}

// Locations searched when no explicit path is configured, before $PATH
var (
	chromeDriverPaths = []string{
		"/usr/local/bin/chromedriver",
		"/usr/bin/chromedriver",
		"/opt/homebrew/bin/chromedriver",
	}
	chromeDriverNames = []string{"chromedriver"}

	chromePaths = []string{
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
	}
	chromeNames = []string{"google-chrome", "chromium", "chromium-browser"}
)

// lookupExecutable returns the first existing file among paths, then the
// first of names found on $PATH, or "" when nothing matches
func lookupExecutable(paths, names []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

func findChromeDriver(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("chromedriver not found at %s", configured)
		}
		return configured, nil
	}

	paths := append(slices.Clone(chromeDriverPaths), filepath.Join(os.Getenv("HOME"), "bin", "chromedriver"))
	if path := lookupExecutable(paths, chromeDriverNames); path != "" {
		return path, nil
	}
	return "", fmt.Errorf("chromedriver not found. Please install it or set VERIFY_CHROMEDRIVER_PATH")
}

// findChromeBinary - empty result lets chromedriver pick its default browser
func findChromeBinary(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}
	return lookupExecutable(chromePaths, chromeNames)
}

// NewSeleniumDriver - starts ChromeDriver and opens a WebDriver session
func NewSeleniumDriver(opts Options, logger *logrus.Logger) (interfaces.Browser, error) {
	driverPath, err := findChromeDriver(opts.ChromeDriverPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find chromedriver: %w", err)
	}
	logger.Infof("Using ChromeDriver at: %s", driverPath)

	chromeBinary := findChromeBinary(opts.ChromeBin)
	if chromeBinary != "" {
		logger.Infof("Using Chrome binary at: %s", chromeBinary)
	}

	service, err := selenium.NewChromeDriverService(driverPath, opts.ChromeDriverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to start chromedriver: %w", err)
	}

	caps := selenium.Capabilities{
		"browserName": "chrome",
	}

	args := []string{
		"--disable-dev-shm-usage",
		"--no-sandbox",
		fmt.Sprintf("--window-size=%d,%d", opts.ViewportWidth, opts.ViewportHeight),
	}
	if opts.Headless {
		args = append(args, "--headless=new")
	}

	chromeCaps := chrome.Capabilities{Args: args}
	if chromeBinary != "" {
		chromeCaps.Path = chromeBinary
	}
	caps.AddChrome(chromeCaps)

	wd, err := selenium.NewRemote(caps, fmt.Sprintf("http://localhost:%d/wd/hub", opts.ChromeDriverPort))
	if err != nil {
		service.Stop()
		if strings.Contains(err.Error(), "cannot find Chrome binary") {
			return nil, fmt.Errorf("failed to create webdriver: Chrome browser not found, set VERIFY_CHROME_BIN: %w", err)
		}
		return nil, fmt.Errorf("failed to create webdriver: %w", err)
	}

	if opts.SlowMo > 0 {
		logger.Warn("slow-mo is not supported by the selenium driver")
	}

	return &seleniumDriver{
		wd:             wd,
		service:        service,
		logger:         logger,
		viewportWidth:  opts.ViewportWidth,
		viewportHeight: opts.ViewportHeight,
	}, nil
}

func (s *seleniumDriver) Name() string {
	return "selenium"
}

// Navigate - navigates browser to url within the page load timeout
func (s *seleniumDriver) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.wd.SetPageLoadTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set page load timeout: %w", err)
	}

	s.logger.Debugf("Navigating to: %s", url)
	err := s.wd.Get(url)
	if err == nil {
		return nil
	}

	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return fmt.Errorf("%w: %s did not load within %s: %v", entities.ErrNavigationTimeout, url, timeout, err)
	}
	return fmt.Errorf("%w: %s: %v", entities.ErrNavigationFailed, url, err)
}

// ExpectVisible - polls until the first element matching locator is displayed
func (s *seleniumDriver) ExpectVisible(ctx context.Context, locator entities.Locator, timeout time.Duration) error {
	by, value, err := seleniumBy(locator)
	if err != nil {
		return err
	}

	found := false
	condition := func(wd selenium.WebDriver) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		elements, err := wd.FindElements(by, value)
		if err != nil || len(elements) == 0 {
			return false, nil
		}
		found = true

		displayed, err := elements[0].IsDisplayed()
		if err != nil {
			// stale element, the next poll looks it up again
			return false, nil
		}
		return displayed, nil
	}

	err = s.wd.WaitWithTimeoutAndInterval(condition, timeout, seleniumPollInterval)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !found {
		return fmt.Errorf("%w: %s matched nothing within %s", entities.ErrElementNotFound, locator, timeout)
	}
	return fmt.Errorf("%w: %s within %s: %v", entities.ErrElementNotVisible, locator, timeout, err)
}

// Screenshot - takes a PNG screenshot. WebDriver only captures the viewport,
// so for a full page the window is grown to the document height first.
func (s *seleniumDriver) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if fullPage {
		height, err := s.wd.ExecuteScript("return document.documentElement.scrollHeight;", nil)
		if err == nil {
			if h, ok := height.(float64); ok && int(h) > s.viewportHeight {
				if err := s.wd.ResizeWindow("", s.viewportWidth, int(h)); err != nil {
					s.logger.Warnf("Failed to resize window for full page screenshot: %v", err)
				}
				defer s.wd.ResizeWindow("", s.viewportWidth, s.viewportHeight)
			}
		} else {
			s.logger.Warnf("Failed to measure page height: %v", err)
		}
	}

	data, err := s.wd.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}
	return data, nil
}

// Close - closes browser and stops ChromeDriver service
func (s *seleniumDriver) Close() error {
	var closeErr error

	if s.wd != nil {
		if err := s.wd.Quit(); err != nil && !isClosedError(err) {
			closeErr = joinCloseError(closeErr, "failed to quit webdriver", err)
		}
		s.wd = nil
	}
	if s.service != nil {
		if err := s.service.Stop(); err != nil {
			closeErr = joinCloseError(closeErr, "failed to stop chromedriver", err)
		}
		s.service = nil
	}

	return closeErr
}

// seleniumBy - maps locator to a WebDriver lookup strategy
func seleniumBy(locator entities.Locator) (string, string, error) {
	if locator.Kind == entities.LocatorCSS {
		return selenium.ByCSSSelector, locator.Value, nil
	}

	xpath, err := toXPath(locator)
	if err != nil {
		return "", "", err
	}
	return selenium.ByXPATH, xpath, nil
}

var _ interfaces.Browser = (*seleniumDriver)(nil)
