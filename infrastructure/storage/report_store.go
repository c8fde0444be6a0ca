package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ui_verification/domain/entities"
	"ui_verification/domain/interfaces"
)

const historyFile = "history.json"

// maxHistory bounds how many reports are kept on disk
const maxHistory = 100

type reportStore struct {
	historyPath string
}

// NewReportStore - creates artifact and report storage rooted at reportDir
func NewReportStore(reportDir string) (interfaces.Storage, error) {
	if err := os.MkdirAll(reportDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create report directory: %v", entities.ErrFilesystem, err)
	}

	return &reportStore{
		historyPath: filepath.Join(reportDir, historyFile),
	}, nil
}

// SaveScreenshot - writes screenshot to path, overwriting any previous artifact
func (s *reportStore) SaveScreenshot(path string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty screenshot for %s", entities.ErrFilesystem, path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: failed to create %s: %v", entities.ErrFilesystem, dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write %s: %v", entities.ErrFilesystem, path, err)
	}
	return nil
}

// SaveReport - appends report to the run history
func (s *reportStore) SaveReport(report *entities.Report) error {
	history, err := s.LoadHistory()
	if err != nil {
		return err
	}

	history = append(history, *report)
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.historyPath, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write history: %v", entities.ErrFilesystem, err)
	}
	return nil
}

// LoadHistory - loads the run history
func (s *reportStore) LoadHistory() ([]entities.Report, error) {
	data, err := os.ReadFile(s.historyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []entities.Report{}, nil
		}
		return nil, fmt.Errorf("%w: failed to read history: %v", entities.ErrFilesystem, err)
	}

	var history []entities.Report
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to parse history %s: %w", s.historyPath, err)
	}

	return history, nil
}
