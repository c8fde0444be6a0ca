package security

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"

	"ui_verification/domain/entities"
	"ui_verification/domain/interfaces"

	"github.com/sirupsen/logrus"
)

type SecurityLayer struct {
	logger      *logrus.Logger
	allowRemote bool
}

func NewSecurityLayer(logger *logrus.Logger, allowRemote bool) *SecurityLayer {
	return &SecurityLayer{
		logger:      logger,
		allowRemote: allowRemote,
	}
}

func (s *SecurityLayer) CheckScenario(ctx context.Context, scenario *entities.Scenario) error {
	if err := scenario.Validate(); err != nil {
		return err
	}

	for i, step := range scenario.Steps {
		switch step.Type {
		case entities.StepNavigate:
			if err := s.checkURL(step.URL); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
			if s.IsRemoteTarget(ctx, step) {
				if !s.allowRemote {
					return fmt.Errorf("step %d: %w: %s is not a local address (use --allow-remote)", i, entities.ErrUnsafeTarget, step.URL)
				}
				s.logger.Warnf("Step %d navigates to remote target %s", i, step.URL)
			}
		case entities.StepScreenshot:
			if err := s.checkArtifactPath(step.Path); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		}
	}

	return nil
}

func (s *SecurityLayer) IsRemoteTarget(ctx context.Context, step entities.Step) bool {
	if step.Type != entities.StepNavigate {
		return false
	}

	u, err := url.Parse(step.URL)
	if err != nil {
		return true
	}

	host := u.Hostname()
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return false
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return true
	}
	return !ip.IsLoopback() && !ip.IsPrivate()
}

func (s *SecurityLayer) GetStepRiskLevel(ctx context.Context, step entities.Step) string {
	switch step.Type {
	case entities.StepNavigate:
		if s.IsRemoteTarget(ctx, step) {
			return "medium"
		}
		return "low"
	case entities.StepScreenshot:
		// Writes to disk
		return "medium"
	}

	return "low"
}

func (s *SecurityLayer) checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", entities.ErrInvalidScenario, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q in %s", entities.ErrUnsafeTarget, u.Scheme, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %s", entities.ErrInvalidScenario, raw)
	}
	return nil
}

func (s *SecurityLayer) checkArtifactPath(path string) error {
	if filepath.IsAbs(path) {
		return fmt.Errorf("%w: screenshot path %s must be relative", entities.ErrUnsafeTarget, path)
	}

	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: screenshot path %s escapes the working directory", entities.ErrUnsafeTarget, path)
	}

	if !strings.EqualFold(filepath.Ext(clean), ".png") {
		return fmt.Errorf("%w: screenshot path %s must end in .png", entities.ErrInvalidScenario, path)
	}

	return nil
}

// Ensure SecurityLayer implements Security interface
var _ interfaces.Security = (*SecurityLayer)(nil)
