package database

import (
	"context"

	"github.com/anjiri1684/academy_billing/models"
	"github.com/anjiri1684/academy_billing/services"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClassRegistry struct {
	db        *gorm.DB
	forUpdate bool
}

var (
	_ services.ClassRegistry = (*ClassRegistry)(nil)
	_ services.ClassScanner  = (*ClassRegistry)(nil)
)

func NewClassRegistry(db *gorm.DB) *ClassRegistry {
	return &ClassRegistry{db: db}
}

// ForUpdate makes reads lock the returned rows. Only meaningful inside a
// transaction.
func (r *ClassRegistry) ForUpdate() *ClassRegistry {
	return &ClassRegistry{db: r.db, forUpdate: true}
}

func (r *ClassRegistry) query(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	if r.forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (r *ClassRegistry) ListCompletedClasses(ctx context.Context, studentID uuid.UUID) ([]models.ClassInstance, error) {
	var classes []models.ClassInstance
	err := r.query(ctx).
		Where("student_id = ? AND status IN ?", studentID, models.CompletedClassStatuses).
		Order("class_date ASC, start_time ASC, id ASC").
		Find(&classes).Error
	return classes, errors.Wrapf(err, "listing completed classes of student %s", studentID)
}

func (r *ClassRegistry) FindClass(ctx context.Context, classID uuid.UUID) (models.ClassInstance, error) {
	var class models.ClassInstance
	err := r.db.WithContext(ctx).First(&class, "id = ?", classID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return class, services.ErrClassNotFound
	}
	return class, errors.Wrapf(err, "finding class %s", classID)
}

func (r *ClassRegistry) GetClass(ctx context.Context, classID uuid.UUID) (models.ClassInstance, error) {
	var class models.ClassInstance
	err := r.query(ctx).First(&class, "id = ?", classID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return class, services.ErrClassNotFound
	}
	return class, errors.Wrapf(err, "getting class %s", classID)
}

func (r *ClassRegistry) SetPackageID(ctx context.Context, packageID *uuid.UUID, classIDs ...uuid.UUID) error {
	if len(classIDs) == 0 {
		return nil
	}
	var value interface{} = gorm.Expr("NULL")
	if packageID != nil {
		value = *packageID
	}
	err := r.db.WithContext(ctx).
		Model(&models.ClassInstance{}).
		Where("id IN ?", classIDs).
		Update("package_id", value).Error
	return errors.Wrap(err, "setting class package")
}

func (r *ClassRegistry) UpdateStatus(ctx context.Context, classID uuid.UUID, status string) error {
	result := r.db.WithContext(ctx).
		Model(&models.ClassInstance{}).
		Where("id = ?", classID).
		Update("status", status)
	if result.Error != nil {
		return errors.Wrap(result.Error, "updating class status")
	}
	if result.RowsAffected == 0 {
		return services.ErrClassNotFound
	}
	return nil
}

func (r *ClassRegistry) UpdateDuration(ctx context.Context, classID uuid.UUID, minutes int) error {
	err := r.db.WithContext(ctx).
		Model(&models.ClassInstance{}).
		Where("id = ?", classID).
		Update("duration", minutes).Error
	return errors.Wrap(err, "updating class duration")
}

func (r *ClassRegistry) ForEachClassBatch(ctx context.Context, batchSize int, fn func([]models.ClassInstance) error) error {
	var batch []models.ClassInstance
	err := r.db.WithContext(ctx).
		Order("id").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
	return errors.Wrap(err, "scanning classes")
}
