package database

import (
	"context"
	"time"

	"github.com/anjiri1684/academy_billing/models"
	"github.com/anjiri1684/academy_billing/services"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PackageStore struct {
	db        *gorm.DB
	forUpdate bool
}

var _ services.PackageStore = (*PackageStore)(nil)

func NewPackageStore(db *gorm.DB) *PackageStore {
	return &PackageStore{db: db}
}

func (s *PackageStore) ForUpdate() *PackageStore {
	return &PackageStore{db: s.db, forUpdate: true}
}

func (s *PackageStore) query(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx)
	if s.forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (s *PackageStore) ListPackages(ctx context.Context, studentID uuid.UUID) ([]models.Package, error) {
	var packages []models.Package
	err := s.query(ctx).
		Where("student_id = ?", studentID).
		Order("round_number ASC, id ASC").
		Find(&packages).Error
	return packages, errors.Wrapf(err, "listing packages of student %s", studentID)
}

func (s *PackageStore) GetPackage(ctx context.Context, packageID uuid.UUID) (models.Package, error) {
	var pkg models.Package
	err := s.query(ctx).First(&pkg, "id = ?", packageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkg, services.ErrPackageNotFound
	}
	return pkg, errors.Wrapf(err, "getting package %s", packageID)
}

func (s *PackageStore) UpdateRemainingHours(ctx context.Context, packageID uuid.UUID, value decimal.Decimal) error {
	err := s.db.WithContext(ctx).
		Model(&models.Package{}).
		Where("id = ?", packageID).
		Update("remaining_hours", value).Error
	return errors.Wrap(err, "updating remaining hours")
}

func (s *PackageStore) UpdateRemainingClasses(ctx context.Context, packageID uuid.UUID, value int) error {
	err := s.db.WithContext(ctx).
		Model(&models.Package{}).
		Where("id = ?", packageID).
		Update("remaining_classes", value).Error
	return errors.Wrap(err, "updating remaining classes")
}

func (s *PackageStore) TransitionToFinished(ctx context.Context, packageID uuid.UUID) error {
	return s.setStatus(ctx, packageID, models.PackageActive, models.PackageFinished)
}

func (s *PackageStore) Reopen(ctx context.Context, packageID uuid.UUID) error {
	return s.setStatus(ctx, packageID, models.PackageFinished, models.PackageActive)
}

// setStatus only moves packages still in the expected state, so a package
// paid in the meantime is left alone.
func (s *PackageStore) setStatus(ctx context.Context, packageID uuid.UUID, from, to string) error {
	err := s.db.WithContext(ctx).
		Model(&models.Package{}).
		Where("id = ? AND status = ?", packageID, from).
		Update("status", to).Error
	return errors.Wrapf(err, "moving package %s from %s to %s", packageID, from, to)
}

func (s *PackageStore) ListStudentIDsWithPackages(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&models.Package{}).
		Distinct().
		Order("student_id").
		Pluck("student_id", &ids).Error
	return ids, errors.Wrap(err, "listing students with packages")
}

// ListStaleFinished returns finished packages changed since their last
// notification, or never notified at all.
func (s *PackageStore) ListStaleFinished(ctx context.Context) ([]models.Package, error) {
	var packages []models.Package
	err := s.db.WithContext(ctx).
		Where("status = ? AND (last_notification_sent IS NULL OR last_notification_sent < updated_at)", models.PackageFinished).
		Order("updated_at ASC").
		Find(&packages).Error
	return packages, errors.Wrap(err, "listing stale finished packages")
}

// MarkNotified stamps the notification without touching updated_at.
func (s *PackageStore) MarkNotified(ctx context.Context, packageID uuid.UUID, at time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&models.Package{}).
		Where("id = ?", packageID).
		UpdateColumns(map[string]interface{}{
			"last_notification_sent": at,
			"notification_count":     gorm.Expr("notification_count + 1"),
		}).Error
	return errors.Wrap(err, "marking package notified")
}
