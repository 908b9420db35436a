package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrClassNotFound   = errors.New("class not found")
	ErrPackageNotFound = errors.New("package not found")
	ErrInvalidStatus   = errors.New("invalid class status")

	errDryRun = errors.New("dry run")
)

// PersistenceError aborts a student's reallocation. The transaction it came
// from has been rolled back.
type PersistenceError struct {
	StudentID uuid.UUID
	Op        string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("student %s: %s: %v", e.StudentID, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Cause() error { return e.Err }

func persistenceError(studentID uuid.UUID, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, ErrClassNotFound) || errors.Is(err, ErrPackageNotFound) || errors.Is(err, ErrInvalidStatus) {
		return err
	}
	return &PersistenceError{StudentID: studentID, Op: op, Err: err}
}

// InconsistentStateWarning flags data the engine worked around instead of
// failing on, e.g. a package with negative total hours.
type InconsistentStateWarning struct {
	StudentID uuid.UUID  `json:"student_id"`
	PackageID *uuid.UUID `json:"package_id,omitempty"`
	ClassID   *uuid.UUID `json:"class_id,omitempty"`
	Message   string     `json:"message"`
}

func (w InconsistentStateWarning) String() string {
	switch {
	case w.PackageID != nil:
		return fmt.Sprintf("student %s package %s: %s", w.StudentID, w.PackageID, w.Message)
	case w.ClassID != nil:
		return fmt.Sprintf("student %s class %s: %s", w.StudentID, w.ClassID, w.Message)
	}
	return fmt.Sprintf("student %s: %s", w.StudentID, w.Message)
}
