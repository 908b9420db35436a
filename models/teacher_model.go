package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Teacher struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	FullName   string          `gorm:"size:255;not null" json:"full_name"`
	Email      string          `gorm:"size:255;unique" json:"email"`
	HourlyRate decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"hourly_rate"`
	Currency   string          `gorm:"size:3;default:'USD'" json:"currency"`
	IsActive   bool            `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
