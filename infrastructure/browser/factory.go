package browser

import (
	"fmt"
	"time"

	"ui_verification/domain/interfaces"
	"ui_verification/infrastructure/config"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

// Options holds the launch settings shared by every driver
type Options struct {
	Headless        bool
	SlowMo          time.Duration
	ViewportWidth   int
	ViewportHeight  int
	InstallBrowsers bool

	ChromeBin        string
	ChromeDriverPath string
	ChromeDriverPort int
}

// OptionsFromConfig - extracts launch options from the run configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Headless:         cfg.Headless,
		SlowMo:           cfg.SlowMo,
		ViewportWidth:    cfg.ViewportWidth,
		ViewportHeight:   cfg.ViewportHeight,
		InstallBrowsers:  cfg.InstallBrowsers,
		ChromeBin:        cfg.ChromeBin,
		ChromeDriverPath: cfg.ChromeDriverPath,
		ChromeDriverPort: cfg.ChromeDriverPort,
	}
}

// New - opens a browser session with the configured driver
func New(cfg *config.Config, logger *logrus.Logger) (interfaces.Browser, error) {
	opts := OptionsFromConfig(cfg)

	switch cfg.Driver {
	case config.DriverPlaywright:
		return NewPlaywrightDriver(opts, logger)
	case config.DriverRod:
		return NewRodDriver(opts, logger)
	case config.DriverSelenium:
		return NewSeleniumDriver(opts, logger)
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

// Install - downloads the browser binaries the driver needs
func Install(driver string, logger *logrus.Logger) error {
	switch driver {
	case config.DriverPlaywright:
		logger.Info("Installing Playwright driver and Chromium")
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return fmt.Errorf("could not install playwright browsers: %w", err)
		}
		return nil
	case config.DriverRod:
		logger.Info("Downloading Chromium for rod")
		path, err := launcher.NewBrowser().Get()
		if err != nil {
			return fmt.Errorf("could not download chromium: %w", err)
		}
		logger.Infof("Chromium available at: %s", path)
		return nil
	case config.DriverSelenium:
		return fmt.Errorf("selenium needs a system chromedriver, install it with your package manager or set VERIFY_CHROMEDRIVER_PATH")
	default:
		return fmt.Errorf("unknown driver %q", driver)
	}
}
