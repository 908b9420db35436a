package services

import (
	"context"
	"log"

	"github.com/anjiri1684/academy_billing/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type ClassRegistry interface {
	// ListCompletedClasses returns attended and cancelled classes ordered by
	// date and start time.
	ListCompletedClasses(ctx context.Context, studentID uuid.UUID) ([]models.ClassInstance, error)
	// FindClass reads a class without locking it. GetClass locks the row.
	FindClass(ctx context.Context, classID uuid.UUID) (models.ClassInstance, error)
	GetClass(ctx context.Context, classID uuid.UUID) (models.ClassInstance, error)
	// SetPackageID points every given class at packageID. A nil packageID
	// clears the assignment.
	SetPackageID(ctx context.Context, packageID *uuid.UUID, classIDs ...uuid.UUID) error
	UpdateStatus(ctx context.Context, classID uuid.UUID, status string) error
}

type PackageStore interface {
	// ListPackages returns the student's packages by ascending round number.
	ListPackages(ctx context.Context, studentID uuid.UUID) ([]models.Package, error)
	UpdateRemainingHours(ctx context.Context, packageID uuid.UUID, value decimal.Decimal) error
	UpdateRemainingClasses(ctx context.Context, packageID uuid.UUID, value int) error
	TransitionToFinished(ctx context.Context, packageID uuid.UUID) error
	Reopen(ctx context.Context, packageID uuid.UUID) error
	ListStudentIDsWithPackages(ctx context.Context) ([]uuid.UUID, error)
}

// Stores are the repositories bound to one transaction.
type Stores struct {
	Classes  ClassRegistry
	Packages PackageStore
}

// Transactor runs fn inside a single transaction. Rows read through the
// given Stores stay locked until fn returns; any error rolls everything back.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(Stores) error) error
}

type Options struct {
	DryRun bool `json:"dry_run"`
}

type StudentReport struct {
	StudentID   uuid.UUID                  `json:"student_id"`
	DryRun      bool                       `json:"dry_run"`
	Changed     int                        `json:"changed"`
	Moves       []Assignment               `json:"moves"`
	Usage       []PackageUsage             `json:"usage"`
	Transitions []Transition               `json:"transitions"`
	Warnings    []InconsistentStateWarning `json:"warnings,omitempty"`
	Error       string                     `json:"error,omitempty"`

	Err    error `json:"-"`
	events []Event
}

type BatchReport struct {
	DryRun      bool            `json:"dry_run"`
	Students    []StudentReport `json:"students"`
	TotalFixed  int             `json:"total_fixed"`
	TotalErrors int             `json:"total_errors"`
}

type ReallocationService struct {
	tx       Transactor
	packages PackageStore
	sink     EventSink
	alerts   AlertReporter
}

func NewReallocationService(tx Transactor, packages PackageStore, sink EventSink, alerts AlertReporter) *ReallocationService {
	return &ReallocationService{tx: tx, packages: packages, sink: sink, alerts: alerts}
}

// Reallocate recomputes one student's class-to-package assignments and
// writes back only what changed. With DryRun the transaction is always
// rolled back and no events are dispatched.
func (s *ReallocationService) Reallocate(ctx context.Context, studentID uuid.UUID, opts Options) (StudentReport, error) {
	var report StudentReport
	err := s.tx.InTransaction(ctx, func(st Stores) error {
		var err error
		report, err = s.reallocate(ctx, st, studentID, opts)
		if err != nil {
			return err
		}
		if opts.DryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return StudentReport{StudentID: studentID, DryRun: opts.DryRun}, persistenceError(studentID, "reallocate", err)
	}

	s.afterCommit(ctx, report)
	return report, nil
}

// ReallocateAll sweeps every student that owns a package. Each student gets
// its own transaction; one failure is recorded and the sweep moves on.
func (s *ReallocationService) ReallocateAll(ctx context.Context, opts Options) (BatchReport, error) {
	batch := BatchReport{DryRun: opts.DryRun, Students: []StudentReport{}}

	studentIDs, err := s.packages.ListStudentIDsWithPackages(ctx)
	if err != nil {
		return batch, errors.Wrap(err, "listing students with packages")
	}

	for _, studentID := range studentIDs {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		report, err := s.Reallocate(ctx, studentID, opts)
		if err != nil {
			log.Printf("🔥 Reallocation failed for student %s: %v", studentID, err)
			if s.alerts != nil {
				s.alerts.Error(studentID, err)
			}
			report.Err = err
			report.Error = err.Error()
			batch.TotalErrors++
		} else {
			batch.TotalFixed += report.Changed
		}
		batch.Students = append(batch.Students, report)
	}

	log.Printf("✅ Reallocation sweep done: %d student(s), %d class(es) fixed, %d error(s), dry run: %t",
		len(studentIDs), batch.TotalFixed, batch.TotalErrors, opts.DryRun)
	return batch, nil
}

// UpdateClassStatus changes a class status and reallocates the owning
// student in the same transaction, so the change can't interleave with a
// concurrent reallocation of that student. Rows are locked packages first,
// then classes, the same order Reallocate takes them in.
func (s *ReallocationService) UpdateClassStatus(ctx context.Context, classID uuid.UUID, status string) (StudentReport, error) {
	if !models.IsValidClassStatus(status) {
		return StudentReport{}, ErrInvalidStatus
	}

	var (
		report    StudentReport
		studentID uuid.UUID
	)
	err := s.tx.InTransaction(ctx, func(st Stores) error {
		class, err := st.Classes.FindClass(ctx, classID)
		if err != nil {
			return err
		}
		studentID = class.StudentID

		if _, err := st.Packages.ListPackages(ctx, studentID); err != nil {
			return persistenceError(studentID, "lock packages", err)
		}
		if class, err = st.Classes.GetClass(ctx, classID); err != nil {
			return err
		}

		if class.Status != status {
			if err := st.Classes.UpdateStatus(ctx, classID, status); err != nil {
				return persistenceError(studentID, "update class status", err)
			}
		}
		report, err = s.reallocate(ctx, st, studentID, Options{})
		return err
	})
	if err != nil {
		return StudentReport{StudentID: studentID}, persistenceError(studentID, "update class status", err)
	}

	s.afterCommit(ctx, report)
	return report, nil
}

func (s *ReallocationService) reallocate(ctx context.Context, st Stores, studentID uuid.UUID, opts Options) (StudentReport, error) {
	report := StudentReport{StudentID: studentID, DryRun: opts.DryRun}

	packages, err := st.Packages.ListPackages(ctx, studentID)
	if err != nil {
		return report, persistenceError(studentID, "list packages", err)
	}
	classes, err := st.Classes.ListCompletedClasses(ctx, studentID)
	if err != nil {
		return report, persistenceError(studentID, "list classes", err)
	}

	alloc := Allocate(studentID, packages, classes)
	transitions, statusEvents := DetectFinished(packages, alloc.Usage)

	report.Changed = alloc.Changed
	report.Moves = alloc.Moves()
	report.Usage = alloc.Usage
	report.Transitions = transitions
	report.Warnings = alloc.Warnings
	report.events = append(append([]Event{}, alloc.Events...), statusEvents...)

	if opts.DryRun {
		return report, nil
	}
	if err := persist(ctx, st, studentID, packages, alloc, transitions); err != nil {
		return report, err
	}
	return report, nil
}

func persist(ctx context.Context, st Stores, studentID uuid.UUID, packages []models.Package, alloc Allocation, transitions []Transition) error {
	// one write per target package, in allocation order
	var (
		targets []*uuid.UUID
		batches = map[uuid.UUID][]uuid.UUID{}
		cleared []uuid.UUID
	)
	for _, as := range alloc.Moves() {
		if as.To == nil {
			cleared = append(cleared, as.ClassID)
			continue
		}
		if _, ok := batches[*as.To]; !ok {
			targets = append(targets, as.To)
		}
		batches[*as.To] = append(batches[*as.To], as.ClassID)
	}
	for _, target := range targets {
		if err := st.Classes.SetPackageID(ctx, target, batches[*target]...); err != nil {
			return persistenceError(studentID, "assign classes", err)
		}
	}
	if len(cleared) > 0 {
		if err := st.Classes.SetPackageID(ctx, nil, cleared...); err != nil {
			return persistenceError(studentID, "clear classes", err)
		}
	}

	for _, p := range packages {
		u, ok := alloc.UsageFor(p.ID)
		if !ok {
			continue
		}
		if u.Legacy {
			if p.RemainingClasses == nil || *p.RemainingClasses != u.RemainingClasses() {
				if err := st.Packages.UpdateRemainingClasses(ctx, p.ID, u.RemainingClasses()); err != nil {
					return persistenceError(studentID, "update remaining classes", err)
				}
			}
			continue
		}
		if !p.TracksHours() {
			continue
		}
		remaining := u.RemainingHours()
		if !p.RemainingHours.Valid || !p.RemainingHours.Decimal.Equal(remaining) {
			if err := st.Packages.UpdateRemainingHours(ctx, p.ID, remaining); err != nil {
				return persistenceError(studentID, "update remaining hours", err)
			}
		}
	}

	for _, t := range transitions {
		var err error
		if t.To == models.PackageFinished {
			err = st.Packages.TransitionToFinished(ctx, t.PackageID)
		} else {
			err = st.Packages.Reopen(ctx, t.PackageID)
		}
		if err != nil {
			return persistenceError(studentID, "update package status", err)
		}
	}
	return nil
}

func (s *ReallocationService) afterCommit(ctx context.Context, report StudentReport) {
	for _, w := range report.Warnings {
		log.Printf("⚠️ %s", w)
		// previews are logged only
		if s.alerts != nil && !report.DryRun {
			s.alerts.Warning(w)
		}
	}
	if report.DryRun || len(report.events) == 0 || s.sink == nil {
		return
	}
	if err := s.sink.Dispatch(ctx, report.events); err != nil {
		log.Printf("🔥 Failed to dispatch %d event(s) for student %s: %v", len(report.events), report.StudentID, err)
	}
}
