package database

import (
	"context"

	"github.com/anjiri1684/academy_billing/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type ActivityLogStore struct {
	db *gorm.DB
}

func NewActivityLogStore(db *gorm.DB) *ActivityLogStore {
	return &ActivityLogStore{db: db}
}

func (s *ActivityLogStore) CreateLogs(ctx context.Context, logs []models.ActivityLog) error {
	if len(logs) == 0 {
		return nil
	}
	return errors.Wrap(s.db.WithContext(ctx).CreateInBatches(logs, 100).Error, "writing activity logs")
}
