package services

import (
	"errors"
	"fmt"
)

var (
	// ErrStepNotFound is returned when an operation names a step that does not
	// exist in the workflow.
	ErrStepNotFound = errors.New("step not found")

	// ErrStepAlreadyCompleted is returned when completing a step that is
	// already completed or skipped.
	ErrStepAlreadyCompleted = errors.New("step already completed")

	// ErrRecordRejected is returned when a submitted record fails validation.
	ErrRecordRejected = errors.New("record failed validation")
)

// ServiceError wraps service-level failures with the operation and entity.
type ServiceError struct {
	Op  string
	ID  string
	Err error
}

func (e *ServiceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsStepNotFound reports whether the error chain contains ErrStepNotFound.
func IsStepNotFound(err error) bool {
	return errors.Is(err, ErrStepNotFound)
}

// IsRecordRejected reports whether the error chain contains ErrRecordRejected.
func IsRecordRejected(err error) bool {
	return errors.Is(err, ErrRecordRejected)
}
