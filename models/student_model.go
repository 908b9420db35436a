package models

import (
	"time"

	"github.com/google/uuid"
)

type Student struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	FullName string    `gorm:"size:255;not null" json:"full_name"`
	Email    string    `gorm:"size:255" json:"email"`
	TimeZone *string   `gorm:"size:100" json:"time_zone"`
	IsActive bool      `gorm:"default:true" json:"is_active"`

	Packages []Package `gorm:"foreignkey:StudentID" json:"packages,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
