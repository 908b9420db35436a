package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ActivityLog struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	StudentID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"student_id"`
	SubjectType string         `gorm:"size:30;not null" json:"subject_type"` // class, package, student
	SubjectID   uuid.UUID      `gorm:"type:uuid;not null" json:"subject_id"`
	Action      string         `gorm:"size:50;not null" json:"action"`
	Details     datatypes.JSON `json:"details"`
	CreatedAt   time.Time      `json:"created_at"`
}
