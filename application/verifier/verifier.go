package verifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ui_verification/domain/entities"
	"ui_verification/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BrowserFactory opens a new browser session
type BrowserFactory func() (interfaces.Browser, error)

// Options holds the bounds applied to steps that do not set their own
type Options struct {
	NavigationTimeout time.Duration
	AssertTimeout     time.Duration
	// PollInterval is the pause between navigation attempts while the target refuses connections
	PollInterval time.Duration
	// WaitForServer keeps retrying refused navigations until the navigation bound elapses
	WaitForServer bool
}

type Verifier struct {
	openBrowser BrowserFactory
	storage     interfaces.Storage
	security    interfaces.Security
	logger      *logrus.Logger
	opts        Options
}

// NewVerifier - creates new verifier instance
func NewVerifier(openBrowser BrowserFactory, storage interfaces.Storage, security interfaces.Security, logger *logrus.Logger, opts Options) *Verifier {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 90 * time.Second
	}
	if opts.AssertTimeout <= 0 {
		opts.AssertTimeout = 5 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}

	return &Verifier{
		openBrowser: openBrowser,
		storage:     storage,
		security:    security,
		logger:      logger,
		opts:        opts,
	}
}

// Run executes scenario in a fresh browser session. The session is closed
// before Run returns, whatever the outcome. The first failing step aborts the
// run; the returned error is a *entities.StepError in that case.
func (v *Verifier) Run(ctx context.Context, scenario *entities.Scenario) (report *entities.Report, err error) {
	report = &entities.Report{
		ID:        uuid.NewString(),
		Scenario:  scenario.Name,
		Status:    entities.RunStatusPending,
		StartedAt: time.Now(),
		Steps:     make([]entities.StepResult, 0, len(scenario.Steps)),
	}
	defer func() {
		v.finish(report, err)
	}()

	if err := v.security.CheckScenario(ctx, scenario); err != nil {
		return report, fmt.Errorf("scenario rejected: %w", err)
	}

	browser, err := v.openBrowser()
	if err != nil {
		return report, fmt.Errorf("failed to open browser: %w", err)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			v.logger.Warnf("Failed to close browser: %v", closeErr)
		}
	}()

	report.Driver = browser.Name()
	report.Status = entities.RunStatusRunning
	v.logger.Infof("Running scenario %q with %s (%d steps)", scenario.Name, report.Driver, len(scenario.Steps))

	for i, step := range scenario.Steps {
		stepLog := v.logger.WithFields(logrus.Fields{
			"step": i,
			"type": step.Type,
			"risk": v.security.GetStepRiskLevel(ctx, step),
		})

		if ctx.Err() != nil {
			return report, &entities.StepError{Index: i, Type: step.Type, Name: step.Name, Err: ctx.Err()}
		}

		stepLog.Infof("%s", step.Name)
		started := time.Now()
		stepErr := v.executeStep(ctx, browser, step)

		result := entities.StepResult{
			Index:    i,
			Name:     step.Name,
			Type:     step.Type,
			Passed:   stepErr == nil,
			Duration: time.Since(started),
		}

		if stepErr != nil {
			result.ErrorKind = entities.ErrorKind(stepErr)
			result.Error = stepErr.Error()
			report.Steps = append(report.Steps, result)

			stepLog.WithField("kind", result.ErrorKind).Errorf("Step failed after %s: %v", result.Duration.Round(time.Millisecond), stepErr)
			return report, &entities.StepError{Index: i, Type: step.Type, Name: step.Name, Err: stepErr}
		}

		report.Steps = append(report.Steps, result)
		if step.Type == entities.StepScreenshot {
			report.Screenshot = step.Path
		}
		stepLog.Debugf("Step passed in %s", result.Duration.Round(time.Millisecond))
	}

	return report, nil
}

// executeStep - executes single step
func (v *Verifier) executeStep(ctx context.Context, browser interfaces.Browser, step entities.Step) error {
	switch step.Type {
	case entities.StepNavigate:
		return v.navigate(ctx, browser, step)

	case entities.StepExpectVisible:
		timeout := step.Timeout
		if timeout == 0 {
			timeout = v.opts.AssertTimeout
		}
		return browser.ExpectVisible(ctx, *step.Locator, timeout)

	case entities.StepScreenshot:
		data, err := browser.Screenshot(ctx, step.FullPage)
		if err != nil {
			return err
		}
		if err := v.storage.SaveScreenshot(step.Path, data); err != nil {
			return err
		}
		v.logger.Infof("Screenshot saved to %s (%d bytes)", step.Path, len(data))
		return nil

	default:
		return fmt.Errorf("%w: unknown step type %q", entities.ErrInvalidScenario, step.Type)
	}
}

// navigate - loads the step URL within the navigation bound. A refused
// connection is retried until the bound elapses so a server that is still
// starting gets the whole bound to come up.
func (v *Verifier) navigate(ctx context.Context, browser interfaces.Browser, step entities.Step) error {
	timeout := step.Timeout
	if timeout == 0 {
		timeout = v.opts.NavigationTimeout
	}
	deadline := time.Now().Add(timeout)

	var lastErr error
	for attempt := 1; ; attempt++ {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w: %s did not respond within %s: %v", entities.ErrNavigationTimeout, step.URL, timeout, lastErr)
		}

		err := browser.Navigate(ctx, step.URL, remaining)
		if err == nil {
			return nil
		}
		if !v.opts.WaitForServer || !errors.Is(err, entities.ErrNavigationFailed) {
			return err
		}
		lastErr = err

		wait := min(v.opts.PollInterval, time.Until(deadline))
		v.logger.Debugf("Attempt %d: %v, retrying in %s", attempt, err, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// finish - stamps the outcome and stores the report
func (v *Verifier) finish(report *entities.Report, err error) {
	report.FinishedAt = time.Now()
	if err != nil {
		report.Status = entities.RunStatusFailed
		report.Error = err.Error()
	} else {
		report.Status = entities.RunStatusPassed
	}

	if saveErr := v.storage.SaveReport(report); saveErr != nil {
		v.logger.Warnf("Failed to save run report: %v", saveErr)
	}
}
