package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	BillDraft  = "draft"
	BillIssued = "issued"
	BillPaid   = "paid"
)

type Bill struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	StudentID uuid.UUID       `gorm:"type:uuid;not null;index" json:"student_id"`
	PackageID *uuid.UUID      `gorm:"type:uuid;index" json:"package_id"`
	ClassIDs  datatypes.JSON  `json:"class_ids"`
	Amount    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency  string          `gorm:"size:3;default:'USD'" json:"currency"`
	Status    string          `gorm:"size:20;not null;default:'draft'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
