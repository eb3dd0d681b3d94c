package models

import "time"

// LifecycleState enumerates the lifecycle states a student record can be in.
type LifecycleState string

// Lifecycle states. A record is created active and may cycle between the two
// states any number of times before it is eventually purged.
const (
	StateActive   LifecycleState = "active"
	StateInactive LifecycleState = "inactive"
)

// Student is a registry record for a single learner. The email column carries
// the unique index that guards against duplicates regardless of state; the
// service-level lookup only exists to produce a better error message.
type Student struct {
	ID            string         `gorm:"type:uuid;primaryKey" json:"id"`
	FullName      string         `gorm:"size:255;not null" json:"full_name"`
	Email         string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	DateOfBirth   time.Time      `gorm:"type:date;not null" json:"date_of_birth"`
	State         LifecycleState `gorm:"size:16;not null;default:active" json:"state"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeactivatedAt *time.Time     `json:"deactivated_at"`
}

// Inactive reports whether the record is currently deactivated.
func (s Student) Inactive() bool {
	return s.State == StateInactive
}
