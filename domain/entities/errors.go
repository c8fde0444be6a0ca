package entities

import (
	"errors"
	"fmt"
)

var (
	ErrNavigationTimeout = errors.New("navigation timeout")
	ErrNavigationFailed  = errors.New("navigation failed")
	ErrElementNotFound   = errors.New("element not found")
	ErrElementNotVisible = errors.New("element not visible")
	ErrFilesystem        = errors.New("filesystem error")
	ErrInvalidScenario   = errors.New("invalid scenario")
	ErrUnsafeTarget      = errors.New("unsafe target")
)

// StepError is returned when a scenario step fails
type StepError struct {
	Index int
	Type  StepType
	Name  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s %q): %v", e.Index, e.Type, e.Name, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ErrorKind returns the taxonomy name of err, "Unknown" when it does not match
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNavigationTimeout):
		return "NavigationTimeout"
	case errors.Is(err, ErrNavigationFailed):
		return "NavigationFailed"
	case errors.Is(err, ErrElementNotFound):
		return "ElementNotFound"
	case errors.Is(err, ErrElementNotVisible):
		return "ElementNotVisible"
	case errors.Is(err, ErrFilesystem):
		return "FilesystemError"
	case errors.Is(err, ErrInvalidScenario):
		return "InvalidScenario"
	case errors.Is(err, ErrUnsafeTarget):
		return "UnsafeTarget"
	default:
		return "Unknown"
	}
}
