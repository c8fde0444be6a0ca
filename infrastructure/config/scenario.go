package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"ui_verification/domain/entities"

	"gopkg.in/yaml.v3"
)

// scenarioFile is the on-disk YAML shape of a scenario
type scenarioFile struct {
	Name  string     `yaml:"name"`
	Steps []stepFile `yaml:"steps"`
}

type stepFile struct {
	Type     entities.StepType `yaml:"type"`
	Name     string            `yaml:"name"`
	URL      string            `yaml:"url"`
	Locator  *entities.Locator `yaml:"locator"`
	Timeout  string            `yaml:"timeout"`
	Path     string            `yaml:"path"`
	FullPage *bool             `yaml:"full_page"`
}

// LoadScenarioFile reads a YAML scenario from path
func LoadScenarioFile(path string, cfg *Config) (*entities.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, cfg)
}

// ParseScenario decodes a YAML scenario. Relative or empty navigate URLs are
// resolved against the configured base URL, and screenshot steps without a path
// use the configured screenshot path.
func ParseScenario(data []byte, cfg *Config) (*entities.Scenario, error) {
	var raw scenarioFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrInvalidScenario, err)
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}

	scenario := &entities.Scenario{Name: raw.Name}
	if scenario.Name == "" {
		scenario.Name = "custom"
	}

	for i, rs := range raw.Steps {
		step := entities.Step{
			Type:     rs.Type,
			Name:     rs.Name,
			Locator:  rs.Locator,
			Path:     rs.Path,
			FullPage: cfg.FullPage,
		}
		if step.Name == "" {
			step.Name = fmt.Sprintf("%s #%d", rs.Type, i)
		}
		if rs.FullPage != nil {
			step.FullPage = *rs.FullPage
		}

		if rs.Timeout != "" {
			d, err := time.ParseDuration(rs.Timeout)
			if err != nil {
				return nil, fmt.Errorf("%w: step %d timeout: %v", entities.ErrInvalidScenario, i, err)
			}
			step.Timeout = d
		}

		switch rs.Type {
		case entities.StepNavigate:
			ref, err := url.Parse(rs.URL)
			if err != nil {
				return nil, fmt.Errorf("%w: step %d url: %v", entities.ErrInvalidScenario, i, err)
			}
			step.URL = base.ResolveReference(ref).String()
		case entities.StepScreenshot:
			if step.Path == "" {
				step.Path = cfg.ScreenshotPath
			}
		}

		scenario.Steps = append(scenario.Steps, step)
	}

	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return scenario, nil
}
