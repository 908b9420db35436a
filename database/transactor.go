package database

import (
	"context"

	"github.com/anjiri1684/academy_billing/services"
	"gorm.io/gorm"
)

type Transactor struct {
	db *gorm.DB
}

var _ services.Transactor = (*Transactor)(nil)

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) InTransaction(ctx context.Context, fn func(services.Stores) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(services.Stores{
			Classes:  NewClassRegistry(tx).ForUpdate(),
			Packages: NewPackageStore(tx).ForUpdate(),
		})
	})
}
