package notifications

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/anjiri1684/academy_billing/models"
	"github.com/anjiri1684/academy_billing/services"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/datatypes"
)

type PackageNotifier interface {
	ListStaleFinished(ctx context.Context) ([]models.Package, error)
	MarkNotified(ctx context.Context, packageID uuid.UUID, at time.Time) error
}

type ActivityLogger interface {
	CreateLogs(ctx context.Context, logs []models.ActivityLog) error
}

type BillDrafter interface {
	DraftPackageBill(ctx context.Context, packageID uuid.UUID) (*models.Bill, error)
}

type Broadcaster interface {
	Broadcast(msg interface{})
}

// Dispatcher is the billing and notification side of a reallocation. It
// logs every event, drafts a bill for finished packages and pushes events to
// connected admin dashboards.
type Dispatcher struct {
	packages PackageNotifier
	logs     ActivityLogger
	bills    BillDrafter
	hub      Broadcaster
	now      func() time.Time
}

var _ services.EventSink = (*Dispatcher)(nil)

func NewDispatcher(packages PackageNotifier, logs ActivityLogger, bills BillDrafter, hub Broadcaster) *Dispatcher {
	return &Dispatcher{
		packages: packages,
		logs:     logs,
		bills:    bills,
		hub:      hub,
		now:      time.Now,
	}
}

// Dispatch handles every event and returns the first failure. A failure on
// one event doesn't stop the others.
func (d *Dispatcher) Dispatch(ctx context.Context, events []services.Event) error {
	var firstErr error
	record := func(err error) {
		if err == nil {
			return
		}
		log.Printf("🔥 Event dispatch: %v", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	record(d.logs.CreateLogs(ctx, lo.Map(events, func(ev services.Event, _ int) models.ActivityLog {
		return activityLog(ev)
	})))

	for _, ev := range events {
		if d.hub != nil {
			d.hub.Broadcast(ev)
		}
		if ev.Kind == services.EventPackageFinished && ev.PackageID != nil {
			record(d.onPackageFinished(ctx, *ev.PackageID, ev.StudentID))
		}
	}
	return firstErr
}

func (d *Dispatcher) onPackageFinished(ctx context.Context, packageID, studentID uuid.UUID) error {
	if d.bills != nil {
		bill, err := d.bills.DraftPackageBill(ctx, packageID)
		if err != nil {
			return errors.Wrapf(err, "drafting bill for package %s", packageID)
		}
		log.Printf("✅ Package %s of student %s finished, bill %s at %s %s", packageID, studentID, bill.ID, bill.Amount, bill.Currency)
	}
	return errors.Wrapf(d.packages.MarkNotified(ctx, packageID, d.now().UTC()), "marking package %s notified", packageID)
}

// RenotifyStale re-sends the finished notification for packages that
// changed after they were last notified.
func (d *Dispatcher) RenotifyStale(ctx context.Context) (int, error) {
	stale, err := d.packages.ListStaleFinished(ctx)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	events := lo.Map(stale, func(p models.Package, _ int) services.Event {
		id := p.ID
		return services.Event{
			Kind:      services.EventPackageFinished,
			StudentID: p.StudentID,
			PackageID: &id,
			Reason:    "package changed since last notification",
		}
	})
	return len(events), d.Dispatch(ctx, events)
}

func activityLog(ev services.Event) models.ActivityLog {
	entry := models.ActivityLog{
		StudentID: ev.StudentID,
		Action:    ev.Kind,
	}
	switch {
	case ev.ClassID != nil:
		entry.SubjectType = "class"
		entry.SubjectID = *ev.ClassID
	case ev.PackageID != nil:
		entry.SubjectType = "package"
		entry.SubjectID = *ev.PackageID
	default:
		entry.SubjectType = "student"
		entry.SubjectID = ev.StudentID
	}
	if details, err := json.Marshal(ev); err == nil {
		entry.Details = datatypes.JSON(details)
	}
	return entry
}
