package services

import (
	"github.com/anjiri1684/academy_billing/models"
	"github.com/google/uuid"
)

// Transition is a package status change decided after an allocation pass.
type Transition struct {
	PackageID uuid.UUID `json:"package_id"`
	StudentID uuid.UUID `json:"student_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
}

// DetectFinished compares each package's stored status with its usage. An
// active package with no budget left becomes finished; a finished package
// that got budget back is reopened. Paid packages never move, and a package
// already in the right state yields nothing, so repeated calls are no-ops.
func DetectFinished(packages []models.Package, usage []PackageUsage) ([]Transition, []Event) {
	byID := make(map[uuid.UUID]PackageUsage, len(usage))
	for _, u := range usage {
		byID[u.PackageID] = u
	}

	var (
		transitions []Transition
		events      []Event
	)
	for _, p := range sortPackages(packages) {
		u, ok := byID[p.ID]
		if !ok || p.IsFrozen() {
			continue
		}

		var to, kind string
		switch {
		case p.Status == models.PackageActive && u.Exhausted():
			to, kind = models.PackageFinished, EventPackageFinished
		case p.Status == models.PackageFinished && !u.Exhausted():
			to, kind = models.PackageActive, EventPackageReopened
		default:
			continue
		}

		transitions = append(transitions, Transition{
			PackageID: p.ID,
			StudentID: p.StudentID,
			From:      p.Status,
			To:        to,
		})
		events = append(events, Event{
			Kind:      kind,
			StudentID: p.StudentID,
			PackageID: idPtr(p.ID),
		})
	}
	return transitions, events
}
