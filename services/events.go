package services

import (
	"context"

	"github.com/google/uuid"
)

const (
	EventClassReassigned      = "class_reassigned"
	EventClassUnassigned      = "class_unassigned"
	EventFrozenPackageChanged = "frozen_package_changed"
	EventPackageFinished      = "package_finished"
	EventPackageReopened      = "package_reopened"
)

// Event is a domain event produced by a reallocation. Events are only
// dispatched after the transaction that produced them commits.
type Event struct {
	Kind          string     `json:"kind"`
	StudentID     uuid.UUID  `json:"student_id"`
	PackageID     *uuid.UUID `json:"package_id,omitempty"`
	FromPackageID *uuid.UUID `json:"from_package_id,omitempty"`
	ClassID       *uuid.UUID `json:"class_id,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

// EventSink receives committed events. Delivery is fire-and-forget from the
// engine's side: a failing sink never undoes a reallocation.
type EventSink interface {
	Dispatch(ctx context.Context, events []Event) error
}

// AlertReporter surfaces warnings and per-student failures to operators.
type AlertReporter interface {
	Warning(w InconsistentStateWarning)
	Error(studentID uuid.UUID, err error)
}

func idPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
