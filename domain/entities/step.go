package entities

import (
	"fmt"
	"time"
)

// StepType represents the kind of step a scenario performs
type StepType string

const (
	StepNavigate      StepType = "navigate"
	StepExpectVisible StepType = "expect_visible"
	StepScreenshot    StepType = "screenshot"
)

// Step represents a single blocking action of a scenario.
// A zero Timeout means the default bound for the step type.
type Step struct {
	Type     StepType      `json:"type"`
	Name     string        `json:"name"`
	URL      string        `json:"url,omitempty"`
	Locator  *Locator      `json:"locator,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
	Path     string        `json:"path,omitempty"`
	FullPage bool          `json:"full_page,omitempty"`
}

// Validate checks the fields required by the step type
func (s Step) Validate() error {
	if s.Timeout < 0 {
		return fmt.Errorf("%w: step %q has negative timeout", ErrInvalidScenario, s.Name)
	}
	if s.Timeout > 0 && s.Timeout < time.Millisecond {
		return fmt.Errorf("%w: step %q timeout %s is below 1ms", ErrInvalidScenario, s.Name, s.Timeout)
	}

	switch s.Type {
	case StepNavigate:
		if s.URL == "" {
			return fmt.Errorf("%w: navigate step %q has no url", ErrInvalidScenario, s.Name)
		}
	case StepExpectVisible:
		if s.Locator == nil {
			return fmt.Errorf("%w: expect_visible step %q has no locator", ErrInvalidScenario, s.Name)
		}
		return s.Locator.Validate()
	case StepScreenshot:
		if s.Path == "" {
			return fmt.Errorf("%w: screenshot step %q has no path", ErrInvalidScenario, s.Name)
		}
	default:
		return fmt.Errorf("%w: unknown step type %q", ErrInvalidScenario, s.Type)
	}
	return nil
}

// Scenario is an ordered list of steps run against one browser session
type Scenario struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// Validate checks every step of the scenario
func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: scenario %q has no steps", ErrInvalidScenario, s.Name)
	}
	for i, step := range s.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

// TabIconsOptions holds the values the built-in tab icon scenario is built from
type TabIconsOptions struct {
	URL               string
	NavigationTimeout time.Duration
	NavText           string
	ElementTimeout    time.Duration
	IconTag           string
	IconStyleMarker   string
	ScreenshotPath    string
	FullPage          bool
}

// TabIconsScenario builds the default scenario: load the app, wait for the
// navigation tab, check that an icon font glyph is rendered, take a screenshot
func TabIconsScenario(opts TabIconsOptions) *Scenario {
	navLocator := TextLocator(opts.NavText)
	iconLocator := StyleLocator(opts.IconTag, opts.IconStyleMarker)

	return &Scenario{
		Name: "tab-icons",
		Steps: []Step{
			{
				Type:    StepNavigate,
				Name:    "open application",
				URL:     opts.URL,
				Timeout: opts.NavigationTimeout,
			},
			{
				Type:    StepExpectVisible,
				Name:    fmt.Sprintf("wait for %q tab", opts.NavText),
				Locator: &navLocator,
				Timeout: opts.ElementTimeout,
			},
			{
				Type:    StepExpectVisible,
				Name:    "icon font glyph visible",
				Locator: &iconLocator,
			},
			{
				Type:     StepScreenshot,
				Name:     "capture screenshot",
				Path:     opts.ScreenshotPath,
				FullPage: opts.FullPage,
			},
		},
	}
}
