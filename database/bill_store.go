package database

import (
	"context"

	"github.com/anjiri1684/academy_billing/models"
	"github.com/anjiri1684/academy_billing/services"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type BillStore struct {
	*PackageStore
	db *gorm.DB
}

var _ services.BillStore = (*BillStore)(nil)

func NewBillStore(db *gorm.DB) *BillStore {
	return &BillStore{PackageStore: NewPackageStore(db), db: db}
}

func (s *BillStore) ListPackageClasses(ctx context.Context, packageID uuid.UUID) ([]models.ClassInstance, error) {
	var classes []models.ClassInstance
	err := s.db.WithContext(ctx).
		Preload("Teacher").
		Where("package_id = ?", packageID).
		Order("class_date ASC, start_time ASC, id ASC").
		Find(&classes).Error
	return classes, errors.Wrap(err, "listing package classes")
}

func (s *BillStore) FindPackageBill(ctx context.Context, packageID uuid.UUID) (*models.Bill, error) {
	var bill models.Bill
	err := s.db.WithContext(ctx).
		Where("package_id = ?", packageID).
		Order("created_at DESC").
		First(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (s *BillStore) SaveBill(ctx context.Context, bill *models.Bill) error {
	return s.db.WithContext(ctx).Save(bill).Error
}
