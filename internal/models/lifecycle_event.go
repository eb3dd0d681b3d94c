package models

import (
	"time"

	"gorm.io/datatypes"
)

// Lifecycle event actions recorded in the audit trail.
const (
	EventStudentCreated     = "student.created"
	EventStudentUpdated     = "student.updated"
	EventStudentDeactivated = "student.deactivated"
	EventStudentReactivated = "student.reactivated"
	EventStudentDeleted     = "student.deleted"
)

// LifecycleEvent is an append-only audit entry for a student record transition.
type LifecycleEvent struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	StudentID string            `gorm:"type:uuid;index;not null" json:"student_id"`
	Action    string            `gorm:"size:64;not null" json:"action"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}
