package services

import (
	"context"
	"testing"

	"github.com/anjiri1684/academy_billing/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spilloverFixture() (models.Package, models.Package, []models.ClassInstance) {
	p1 := hoursPackage(1, "2", models.PackageActive)
	p2 := hoursPackage(2, "5", models.PackageActive)
	classes := []models.ClassInstance{
		attended(1, "10:00", "11:00"),
		attended(2, "10:00", "11:00"),
		attended(3, "10:00", "11:00"),
	}
	return p1, p2, classes
}

func TestReallocatePersistsChanges(t *testing.T) {
	p1, p2, classes := spilloverFixture()
	db := newMemDB([]models.Package{p1, p2}, classes)
	svc, sink, _ := newTestService(db)

	report, err := svc.Reallocate(context.Background(), studentID, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Changed)
	assert.Len(t, report.Moves, 3)
	assert.Equal(t, &p1.ID, db.class(classes[0].ID).PackageID)
	assert.Equal(t, &p1.ID, db.class(classes[1].ID).PackageID)
	assert.Equal(t, &p2.ID, db.class(classes[2].ID).PackageID)

	stored1 := db.pkg(p1.ID)
	assert.Equal(t, models.PackageFinished, stored1.Status)
	assert.True(t, stored1.RemainingHours.Decimal.IsZero())
	assert.True(t, db.pkg(p2.ID).RemainingHours.Decimal.Equal(decimal.NewFromInt(4)))
	assert.Equal(t, models.PackageActive, db.pkg(p2.ID).Status)

	require.Len(t, report.Transitions, 1)
	assert.Equal(t, Transition{PackageID: p1.ID, StudentID: studentID, From: models.PackageActive, To: models.PackageFinished}, report.Transitions[0])

	require.Len(t, sink.batches, 1)
	kinds := eventKinds(sink.all())
	assert.Contains(t, kinds, EventPackageFinished)
	assert.Contains(t, kinds, EventClassReassigned)
}

func TestReallocateDryRunWritesNothing(t *testing.T) {
	p1, p2, classes := spilloverFixture()
	db := newMemDB([]models.Package{p1, p2}, classes)
	svc, sink, _ := newTestService(db)

	report, err := svc.Reallocate(context.Background(), studentID, Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 3, report.Changed)
	assert.Len(t, report.Transitions, 1)
	assert.Zero(t, db.writes)
	assert.Zero(t, db.commits)
	assert.Nil(t, db.class(classes[0].ID).PackageID)
	assert.Equal(t, models.PackageActive, db.pkg(p1.ID).Status)
	assert.Empty(t, sink.batches)
}

func TestReallocateTwiceChangesNothing(t *testing.T) {
	p1, p2, classes := spilloverFixture()
	db := newMemDB([]models.Package{p1, p2}, classes)
	svc, sink, _ := newTestService(db)

	_, err := svc.Reallocate(context.Background(), studentID, Options{})
	require.NoError(t, err)
	writes := db.writes

	report, err := svc.Reallocate(context.Background(), studentID, Options{})
	require.NoError(t, err)
	assert.Zero(t, report.Changed)
	assert.Empty(t, report.Transitions)
	assert.Equal(t, writes, db.writes)
	assert.Len(t, sink.batches, 1)

	dry, err := svc.Reallocate(context.Background(), studentID, Options{DryRun: true})
	require.NoError(t, err)
	assert.Zero(t, dry.Changed)
}

func TestReallocateRollsBackOnWriteFailure(t *testing.T) {
	p1, p2, classes := spilloverFixture()
	db := newMemDB([]models.Package{p1, p2}, classes)
	db.failWrites[studentID] = true
	svc, sink, _ := newTestService(db)

	_, err := svc.Reallocate(context.Background(), studentID, Options{})

	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, studentID, pe.StudentID)
	assert.Equal(t, "assign classes", pe.Op)
	assert.True(t, errors.Is(err, errWriteRejected))
	assert.Equal(t, 1, db.rollbacks)
	assert.Nil(t, db.class(classes[0].ID).PackageID)
	assert.Empty(t, sink.batches)
}

func TestReallocateAllIsolatesFailures(t *testing.T) {
	other := uuid.MustParse("ffffffff-0000-4000-8000-000000000000")
	p1, p2, classes := spilloverFixture()
	otherPkg := hoursPackage(1, "1", models.PackageActive)
	otherPkg.StudentID = other
	otherClass := attended(1, "10:00", "11:00")
	otherClass.StudentID = other

	db := newMemDB([]models.Package{p1, p2, otherPkg}, append(classes, otherClass))
	db.failWrites[studentID] = true
	svc, _, alerts := newTestService(db)

	batch, err := svc.ReallocateAll(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, batch.TotalErrors)
	assert.Equal(t, 1, batch.TotalFixed)
	require.Len(t, batch.Students, 2)

	failed := batch.Students[0]
	assert.Equal(t, studentID, failed.StudentID)
	assert.Error(t, failed.Err)
	assert.NotEmpty(t, failed.Error)
	assert.Contains(t, alerts.errors, studentID)

	assert.Equal(t, other, batch.Students[1].StudentID)
	assert.Empty(t, batch.Students[1].Error)
	assert.Equal(t, &otherPkg.ID, db.class(otherClass.ID).PackageID)
	assert.Nil(t, db.class(classes[0].ID).PackageID)
}

func TestReallocateAllStopsOnCancelledContext(t *testing.T) {
	p1, p2, classes := spilloverFixture()
	db := newMemDB([]models.Package{p1, p2}, classes)
	svc, _, _ := newTestService(db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.ReallocateAll(ctx, Options{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, db.commits)
}

func TestReallocateAllListingFailure(t *testing.T) {
	db := newMemDB(nil, nil)
	db.listStudent = errors.New("connection reset")
	svc, _, _ := newTestService(db)

	_, err := svc.ReallocateAll(context.Background(), Options{})

	assert.EqualError(t, err, "listing students with packages: connection reset")
}

func TestReallocateSinkFailureKeepsCommit(t *testing.T) {
	p1, p2, classes := spilloverFixture()
	db := newMemDB([]models.Package{p1, p2}, classes)
	svc, sink, _ := newTestService(db)
	sink.err = errors.New("smtp down")

	report, err := svc.Reallocate(context.Background(), studentID, Options{})

	require.NoError(t, err)
	assert.Equal(t, 3, report.Changed)
	assert.Equal(t, 1, db.commits)
	assert.Equal(t, &p2.ID, db.class(classes[2].ID).PackageID)
}

func TestReallocateReportsWarnings(t *testing.T) {
	negative := hoursPackage(1, "-1", models.PackageActive)
	db := newMemDB([]models.Package{negative}, []models.ClassInstance{attended(1, "10:00", "11:00")})
	svc, _, alerts := newTestService(db)

	report, err := svc.Reallocate(context.Background(), studentID, Options{})

	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, report.Warnings, alerts.warnings)
}

func TestDryRunWarningsAreNotAlerted(t *testing.T) {
	negative := hoursPackage(1, "-1", models.PackageActive)
	db := newMemDB([]models.Package{negative}, []models.ClassInstance{attended(1, "10:00", "11:00")})
	svc, _, alerts := newTestService(db)

	report, err := svc.Reallocate(context.Background(), studentID, Options{DryRun: true})

	require.NoError(t, err)
	assert.Len(t, report.Warnings, 1)
	assert.Empty(t, alerts.warnings)
}

func TestReallocateReopensFinishedPackage(t *testing.T) {
	p := hoursPackage(1, "2", models.PackageFinished)
	only := assignedTo(attended(1, "10:00", "11:00"), p)
	db := newMemDB([]models.Package{p}, []models.ClassInstance{only})
	svc, sink, _ := newTestService(db)

	report, err := svc.Reallocate(context.Background(), studentID, Options{})

	require.NoError(t, err)
	assert.Zero(t, report.Changed)
	assert.Equal(t, models.PackageActive, db.pkg(p.ID).Status)
	assert.True(t, db.pkg(p.ID).RemainingHours.Decimal.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, []string{EventPackageReopened}, eventKinds(sink.all()))
}

func TestReallocateUpdatesLegacyRemainingClasses(t *testing.T) {
	legacy := legacyPackage(1, 3, models.PackageActive)
	db := newMemDB([]models.Package{legacy}, []models.ClassInstance{attended(1, "10:00", "11:00")})
	svc, _, _ := newTestService(db)

	_, err := svc.Reallocate(context.Background(), studentID, Options{})

	require.NoError(t, err)
	stored := db.pkg(legacy.ID)
	require.NotNil(t, stored.RemainingClasses)
	assert.Equal(t, 2, *stored.RemainingClasses)
	assert.False(t, stored.RemainingHours.Valid)
}

func TestUpdateClassStatusReallocatesInSameTransaction(t *testing.T) {
	p := hoursPackage(1, "1", models.PackageActive)
	first := assignedTo(attended(1, "10:00", "11:00"), p)
	second := attended(2, "10:00", "11:00")
	db := newMemDB([]models.Package{p}, []models.ClassInstance{first, second})
	svc, _, _ := newTestService(db)

	report, err := svc.UpdateClassStatus(context.Background(), first.ID, models.ClassCancelledByTeacher)

	require.NoError(t, err)
	assert.Equal(t, 1, db.commits)
	assert.Equal(t, models.ClassCancelledByTeacher, db.class(first.ID).Status)
	assert.Equal(t, &p.ID, db.class(first.ID).PackageID)
	assert.Equal(t, &p.ID, db.class(second.ID).PackageID)
	assert.Equal(t, 1, report.Changed)
	assert.Equal(t, models.PackageFinished, db.pkg(p.ID).Status)
}

func TestUpdateClassStatusToPendingReleasesCapacity(t *testing.T) {
	p := hoursPackage(1, "1", models.PackageFinished)
	c := assignedTo(attended(1, "10:00", "11:00"), p)
	db := newMemDB([]models.Package{p}, []models.ClassInstance{c})
	svc, _, _ := newTestService(db)

	_, err := svc.UpdateClassStatus(context.Background(), c.ID, models.ClassPending)

	require.NoError(t, err)
	assert.Equal(t, models.ClassPending, db.class(c.ID).Status)
	assert.Equal(t, models.PackageActive, db.pkg(p.ID).Status)
	assert.True(t, db.pkg(p.ID).RemainingHours.Decimal.Equal(decimal.NewFromInt(1)))
}

func TestStatusUpdateLocksPackagesBeforeClassesLikeReallocate(t *testing.T) {
	p := hoursPackage(1, "2", models.PackageActive)
	c := assignedTo(attended(1, "10:00", "11:00"), p)
	db := newMemDB([]models.Package{p}, []models.ClassInstance{c})
	svc, _, _ := newTestService(db)

	_, err := svc.Reallocate(context.Background(), studentID, Options{})
	require.NoError(t, err)
	sweepOrder := append([]string(nil), db.locks...)

	_, err = svc.UpdateClassStatus(context.Background(), c.ID, models.ClassCancelledByStudent)
	require.NoError(t, err)

	assert.Equal(t, []string{"packages", "classes"}, sweepOrder)
	require.NotEmpty(t, db.locks)
	assert.Equal(t, "packages", db.locks[0])
	assert.Less(t, lo.IndexOf(db.locks, "packages"), lo.IndexOf(db.locks, "class"))
}

func TestUpdateClassStatusErrors(t *testing.T) {
	c := attended(1, "10:00", "11:00")
	db := newMemDB(nil, []models.ClassInstance{c})
	svc, _, _ := newTestService(db)

	_, err := svc.UpdateClassStatus(context.Background(), c.ID, "skipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateClassStatus(context.Background(), uuid.New(), models.ClassAttended)
	assert.ErrorIs(t, err, ErrClassNotFound)
	assert.Zero(t, db.commits)

	db.failWrites[studentID] = true
	_, err = svc.UpdateClassStatus(context.Background(), c.ID, models.ClassCancelledByStudent)
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "update class status", pe.Op)
	assert.Equal(t, models.ClassAttended, db.class(c.ID).Status)
}
