package config

import (
	"fmt"
	"strings"
	"time"

	"ui_verification/domain/entities"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the tool reads
const EnvPrefix = "VERIFY"

const (
	DriverPlaywright = "playwright"
	DriverRod        = "rod"
	DriverSelenium   = "selenium"
)

// Config holds everything a verification run is built from
type Config struct {
	BaseURL  string
	Driver   string
	Headless bool
	SlowMo   time.Duration

	ViewportWidth  int
	ViewportHeight int

	NavigationTimeout time.Duration
	ElementTimeout    time.Duration
	AssertTimeout     time.Duration
	PollInterval      time.Duration
	WaitForServer     bool

	NavText         string
	IconTag         string
	IconStyleMarker string

	ScreenshotPath string
	FullPage       bool
	ReportDir      string
	ScenarioFile   string

	AllowRemote     bool
	InstallBrowsers bool
	LogLevel        string

	ChromeBin        string
	ChromeDriverPath string
	ChromeDriverPort int
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("base-url", "http://localhost:8081")
	v.SetDefault("driver", DriverPlaywright)
	v.SetDefault("headless", true)
	v.SetDefault("slow-mo", 0)
	v.SetDefault("viewport-width", 1280)
	v.SetDefault("viewport-height", 720)
	v.SetDefault("navigation-timeout", 90*time.Second)
	v.SetDefault("element-timeout", 60*time.Second)
	v.SetDefault("assert-timeout", 5*time.Second)
	v.SetDefault("poll-interval", time.Second)
	v.SetDefault("wait-for-server", true)
	v.SetDefault("nav-text", "Chats")
	v.SetDefault("icon-tag", "i")
	v.SetDefault("icon-style-marker", "font-family: Ionicons")
	v.SetDefault("screenshot-path", "verification/verification.png")
	v.SetDefault("full-page", true)
	v.SetDefault("report-dir", ".verification")
	v.SetDefault("scenario", "")
	v.SetDefault("allow-remote", false)
	v.SetDefault("install-browsers", false)
	v.SetDefault("log-level", "info")
	v.SetDefault("chrome-bin", "")
	v.SetDefault("chromedriver-path", "")
	v.SetDefault("chromedriver-port", 9515)
}

// NewViper returns a viper instance reading VERIFY_* variables on top of the defaults.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment win.
func NewViper() *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// BindFlags makes command line flags override environment values
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	return nil
}

// Load resolves the configuration from v
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		BaseURL:           v.GetString("base-url"),
		Driver:            strings.ToLower(v.GetString("driver")),
		Headless:          v.GetBool("headless"),
		SlowMo:            v.GetDuration("slow-mo"),
		ViewportWidth:     v.GetInt("viewport-width"),
		ViewportHeight:    v.GetInt("viewport-height"),
		NavigationTimeout: v.GetDuration("navigation-timeout"),
		ElementTimeout:    v.GetDuration("element-timeout"),
		AssertTimeout:     v.GetDuration("assert-timeout"),
		PollInterval:      v.GetDuration("poll-interval"),
		WaitForServer:     v.GetBool("wait-for-server"),
		NavText:           v.GetString("nav-text"),
		IconTag:           v.GetString("icon-tag"),
		IconStyleMarker:   v.GetString("icon-style-marker"),
		ScreenshotPath:    v.GetString("screenshot-path"),
		FullPage:          v.GetBool("full-page"),
		ReportDir:         v.GetString("report-dir"),
		ScenarioFile:      v.GetString("scenario"),
		AllowRemote:       v.GetBool("allow-remote"),
		InstallBrowsers:   v.GetBool("install-browsers"),
		LogLevel:          v.GetString("log-level"),
		ChromeBin:         v.GetString("chrome-bin"),
		ChromeDriverPath:  v.GetString("chromedriver-path"),
		ChromeDriverPort:  v.GetInt("chromedriver-port"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a driver
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverPlaywright, DriverRod, DriverSelenium:
	default:
		return fmt.Errorf("unknown driver %q (want %s, %s or %s)", c.Driver, DriverPlaywright, DriverRod, DriverSelenium)
	}

	timeouts := map[string]time.Duration{
		"navigation-timeout": c.NavigationTimeout,
		"element-timeout":    c.ElementTimeout,
		"assert-timeout":     c.AssertTimeout,
		"poll-interval":      c.PollInterval,
	}
	for key, d := range timeouts {
		if d < time.Millisecond {
			return fmt.Errorf("%s must be at least 1ms, got %s", key, d)
		}
	}

	if c.SlowMo < 0 {
		return fmt.Errorf("slow-mo must not be negative, got %s", c.SlowMo)
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.ViewportWidth, c.ViewportHeight)
	}
	if c.IconStyleMarker == "" {
		return fmt.Errorf("icon-style-marker must not be empty")
	}
	return nil
}

// Scenario returns the scenario to run: the scenario file when configured,
// the built-in tab icon scenario otherwise
func (c *Config) Scenario() (*entities.Scenario, error) {
	if c.ScenarioFile != "" {
		return LoadScenarioFile(c.ScenarioFile, c)
	}

	return entities.TabIconsScenario(entities.TabIconsOptions{
		URL:               c.BaseURL,
		NavigationTimeout: c.NavigationTimeout,
		NavText:           c.NavText,
		ElementTimeout:    c.ElementTimeout,
		IconTag:           c.IconTag,
		IconStyleMarker:   c.IconStyleMarker,
		ScreenshotPath:    c.ScreenshotPath,
		FullPage:          c.FullPage,
	}), nil
}
