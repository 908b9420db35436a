package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ClassPending            = "pending"
	ClassAttended           = "attended"
	ClassCancelledByStudent = "cancelled_by_student"
	ClassCancelledByTeacher = "cancelled_by_teacher"
	ClassAbsentStudent      = "absent_student"
	ClassWaitingList        = "waiting_list"
)

// CompletedClassStatuses are the statuses a package is billed for.
var CompletedClassStatuses = []string{ClassAttended, ClassCancelledByStudent, ClassCancelledByTeacher}

var classStatuses = map[string]bool{
	ClassPending:            true,
	ClassAttended:           true,
	ClassCancelledByStudent: true,
	ClassCancelledByTeacher: true,
	ClassAbsentStudent:      true,
	ClassWaitingList:        true,
}

type ClassInstance struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	StudentID uuid.UUID  `gorm:"type:uuid;not null;index:idx_class_student_date" json:"student_id"`
	TeacherID uuid.UUID  `gorm:"type:uuid;not null" json:"teacher_id"`
	PackageID *uuid.UUID `gorm:"type:uuid;index" json:"package_id"`
	Status    string     `gorm:"size:30;not null;default:'pending'" json:"status"`

	ClassDate time.Time `gorm:"type:date;not null;index:idx_class_student_date" json:"class_date"`
	StartTime string    `gorm:"size:8;not null" json:"start_time"`
	EndTime   string    `gorm:"size:8;not null" json:"end_time"`
	Duration  int       `gorm:"not null;default:0" json:"duration"` // minutes

	Student Student  `gorm:"foreignkey:StudentID" json:"-"`
	Teacher Teacher  `gorm:"foreignkey:TeacherID" json:"-"`
	Package *Package `gorm:"foreignkey:PackageID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCompleted reports whether the class is eligible for package allocation.
func (c ClassInstance) IsCompleted() bool {
	switch c.Status {
	case ClassAttended, ClassCancelledByStudent, ClassCancelledByTeacher:
		return true
	}
	return false
}

// CountsTowardLimit reports whether the class consumes package hours.
// Teacher cancellations are free for the student.
func (c ClassInstance) CountsTowardLimit() bool {
	return c.Status != ClassCancelledByTeacher
}

func IsValidClassStatus(status string) bool {
	return classStatuses[status]
}
