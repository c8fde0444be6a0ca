package interfaces

import "ui_verification/domain/entities"

// Storage persists run artifacts
type Storage interface {
	// SaveScreenshot writes data to path, replacing any previous file
	SaveScreenshot(path string, data []byte) error

	// SaveReport appends a run report to the history
	SaveReport(report *entities.Report) error

	// LoadHistory returns all stored run reports, oldest first
	LoadHistory() ([]entities.Report, error)
}
