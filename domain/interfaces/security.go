package interfaces

import (
	"context"

	"ui_verification/domain/entities"
)

// Security defines the checks a scenario must pass before it touches a browser
type Security interface {
	// CheckScenario rejects scenarios with unsafe targets or artifact paths
	CheckScenario(ctx context.Context, scenario *entities.Scenario) error

	// IsRemoteTarget reports whether a navigate step leaves the local machine
	IsRemoteTarget(ctx context.Context, step entities.Step) bool

	// GetStepRiskLevel returns the risk level of a step
	GetStepRiskLevel(ctx context.Context, step entities.Step) string
}
