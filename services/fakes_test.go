package services

import (
	"context"
	"sort"
	"sync"

	"github.com/anjiri1684/academy_billing/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var errWriteRejected = errors.New("write rejected")

type memState struct {
	packages map[uuid.UUID]models.Package
	classes  map[uuid.UUID]models.ClassInstance
}

func (s memState) clone() memState {
	c := memState{
		packages: make(map[uuid.UUID]models.Package, len(s.packages)),
		classes:  make(map[uuid.UUID]models.ClassInstance, len(s.classes)),
	}
	for k, v := range s.packages {
		c.packages[k] = v
	}
	for k, v := range s.classes {
		c.classes[k] = v
	}
	return c
}

// memDB is an in-memory store with all-or-nothing transactions.
type memDB struct {
	mu          sync.Mutex
	state       memState
	failWrites  map[uuid.UUID]bool
	writes      int
	commits     int
	rollbacks   int
	listStudent error
	// locks records the order rows were locked in, per transaction.
	locks []string
}

func newMemDB(packages []models.Package, classes []models.ClassInstance) *memDB {
	db := &memDB{
		state:      memState{packages: map[uuid.UUID]models.Package{}, classes: map[uuid.UUID]models.ClassInstance{}},
		failWrites: map[uuid.UUID]bool{},
	}
	for _, p := range packages {
		db.state.packages[p.ID] = p
	}
	for _, c := range classes {
		db.state.classes[c.ID] = c
	}
	return db
}

func (db *memDB) InTransaction(_ context.Context, fn func(Stores) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.locks = nil
	tx := &memTx{db: db, state: db.state.clone()}
	if err := fn(Stores{Classes: tx, Packages: tx}); err != nil {
		db.rollbacks++
		return err
	}
	db.state = tx.state
	db.commits++
	return nil
}

func (db *memDB) ListStudentIDsWithPackages(context.Context) ([]uuid.UUID, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return studentIDs(db.state), db.listStudent
}

func (db *memDB) class(id uuid.UUID) models.ClassInstance {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.classes[id]
}

func (db *memDB) pkg(id uuid.UUID) models.Package {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.packages[id]
}

type memTx struct {
	db    *memDB
	state memState
}

func (tx *memTx) write(studentID uuid.UUID) error {
	tx.db.writes++
	if tx.db.failWrites[studentID] {
		return errWriteRejected
	}
	return nil
}

func (tx *memTx) ListCompletedClasses(_ context.Context, studentID uuid.UUID) ([]models.ClassInstance, error) {
	tx.db.locks = append(tx.db.locks, "classes")
	var out []models.ClassInstance
	for _, c := range tx.state.classes {
		if c.StudentID == studentID && c.IsCompleted() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (tx *memTx) FindClass(_ context.Context, classID uuid.UUID) (models.ClassInstance, error) {
	c, ok := tx.state.classes[classID]
	if !ok {
		return c, ErrClassNotFound
	}
	return c, nil
}

func (tx *memTx) GetClass(_ context.Context, classID uuid.UUID) (models.ClassInstance, error) {
	tx.db.locks = append(tx.db.locks, "class")
	c, ok := tx.state.classes[classID]
	if !ok {
		return c, ErrClassNotFound
	}
	return c, nil
}

func (tx *memTx) SetPackageID(_ context.Context, packageID *uuid.UUID, classIDs ...uuid.UUID) error {
	for _, id := range classIDs {
		c := tx.state.classes[id]
		if err := tx.write(c.StudentID); err != nil {
			return err
		}
		if packageID == nil {
			c.PackageID = nil
		} else {
			target := *packageID
			c.PackageID = &target
		}
		tx.state.classes[id] = c
	}
	return nil
}

func (tx *memTx) UpdateStatus(_ context.Context, classID uuid.UUID, status string) error {
	c, ok := tx.state.classes[classID]
	if !ok {
		return ErrClassNotFound
	}
	if err := tx.write(c.StudentID); err != nil {
		return err
	}
	c.Status = status
	tx.state.classes[classID] = c
	return nil
}

func (tx *memTx) ListPackages(_ context.Context, studentID uuid.UUID) ([]models.Package, error) {
	tx.db.locks = append(tx.db.locks, "packages")
	var out []models.Package
	for _, p := range tx.state.packages {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out, nil
}

func (tx *memTx) updatePackage(packageID uuid.UUID, fn func(*models.Package)) error {
	p, ok := tx.state.packages[packageID]
	if !ok {
		return ErrPackageNotFound
	}
	if err := tx.write(p.StudentID); err != nil {
		return err
	}
	fn(&p)
	tx.state.packages[packageID] = p
	return nil
}

func (tx *memTx) UpdateRemainingHours(_ context.Context, packageID uuid.UUID, value decimal.Decimal) error {
	return tx.updatePackage(packageID, func(p *models.Package) { p.RemainingHours = decimal.NewNullDecimal(value) })
}

func (tx *memTx) UpdateRemainingClasses(_ context.Context, packageID uuid.UUID, value int) error {
	return tx.updatePackage(packageID, func(p *models.Package) { p.RemainingClasses = &value })
}

func (tx *memTx) TransitionToFinished(_ context.Context, packageID uuid.UUID) error {
	return tx.updatePackage(packageID, func(p *models.Package) { p.Status = models.PackageFinished })
}

func (tx *memTx) Reopen(_ context.Context, packageID uuid.UUID) error {
	return tx.updatePackage(packageID, func(p *models.Package) { p.Status = models.PackageActive })
}

func (tx *memTx) ListStudentIDsWithPackages(context.Context) ([]uuid.UUID, error) {
	return studentIDs(tx.state), nil
}

func studentIDs(s memState) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var out []uuid.UUID
	for _, p := range s.packages {
		if !seen[p.StudentID] {
			seen[p.StudentID] = true
			out = append(out, p.StudentID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

type recordingSink struct {
	batches [][]Event
	err     error
}

func (s *recordingSink) Dispatch(_ context.Context, events []Event) error {
	s.batches = append(s.batches, events)
	return s.err
}

func (s *recordingSink) all() []Event {
	var out []Event
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

type recordingAlerts struct {
	warnings []InconsistentStateWarning
	errors   map[uuid.UUID]error
}

func (a *recordingAlerts) Warning(w InconsistentStateWarning) {
	a.warnings = append(a.warnings, w)
}

func (a *recordingAlerts) Error(studentID uuid.UUID, err error) {
	if a.errors == nil {
		a.errors = map[uuid.UUID]error{}
	}
	a.errors[studentID] = err
}

// committedPackages is the non-transactional PackageStore handed to the
// service. Only the student listing is used outside a transaction.
type committedPackages struct {
	PackageStore
	db *memDB
}

func (c committedPackages) ListStudentIDsWithPackages(ctx context.Context) ([]uuid.UUID, error) {
	return c.db.ListStudentIDsWithPackages(ctx)
}

func newTestService(db *memDB) (*ReallocationService, *recordingSink, *recordingAlerts) {
	sink := &recordingSink{}
	alerts := &recordingAlerts{}
	return NewReallocationService(db, committedPackages{db: db}, sink, alerts), sink, alerts
}
