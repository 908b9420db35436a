package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PackageActive   = "active"
	PackageFinished = "finished"
	PackagePaid     = "paid"
)

// Package is a bundle of lesson hours bought by a student. Older records only
// carry a class count (TotalClasses/RemainingClasses) and no hours.
type Package struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	StudentID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_package_student_round" json:"student_id"`
	RoundNumber int       `gorm:"not null;uniqueIndex:idx_package_student_round" json:"round_number"`
	Status      string    `gorm:"size:20;not null;default:'active'" json:"status"`

	TotalHours     decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"total_hours"`
	RemainingHours decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"remaining_hours"`

	TotalClasses     *int `json:"total_classes,omitempty"`
	RemainingClasses *int `json:"remaining_classes,omitempty"`

	LastNotificationSent *time.Time `json:"last_notification_sent"`
	NotificationCount    int        `gorm:"not null;default:0" json:"notification_count"`

	Student Student `gorm:"foreignkey:StudentID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p Package) IsFrozen() bool {
	return p.Status == PackagePaid
}

// TracksHours is false for legacy class-count packages.
func (p Package) TracksHours() bool {
	return p.TotalHours.Valid
}
