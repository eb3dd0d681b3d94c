package dto

import (
	"time"

	"github.com/campuskit/student-registry-api/internal/models"
)

// DateLayout is the wire format for date-only values such as date of birth.
const DateLayout = "2006-01-02"

// StudentCreateRequest captures the payload for registering a new student.
type StudentCreateRequest struct {
	FullName    string `json:"full_name" validate:"required,min=1,max=255"`
	Email       string `json:"email" validate:"required,email,max=255"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
}

// StudentUpdateRequest captures the payload for overwriting an existing
// student's editable fields. All three fields are required; partial updates
// are not supported.
type StudentUpdateRequest struct {
	FullName    string `json:"full_name" validate:"required,min=1,max=255"`
	Email       string `json:"email" validate:"required,email,max=255"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
}

// StudentListRequest defines the optional filters for listing students.
// All populated predicates are combined with AND.
type StudentListRequest struct {
	State         string     `json:"state" validate:"omitempty,oneof=active inactive"`
	NameContains  string     `json:"name"`
	EmailContains string     `json:"email"`
	CreatedAfter  *time.Time `json:"created_after"`
}

// StudentResponse serializes a student record for API clients.
type StudentResponse struct {
	ID            string     `json:"id"`
	FullName      string     `json:"full_name"`
	Email         string     `json:"email"`
	DateOfBirth   string     `json:"date_of_birth"`
	State         string     `json:"state"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// NewStudentResponse converts a student model into a DTO.
func NewStudentResponse(student models.Student) StudentResponse {
	return StudentResponse{
		ID:            student.ID,
		FullName:      student.FullName,
		Email:         student.Email,
		DateOfBirth:   student.DateOfBirth.Format(DateLayout),
		State:         string(student.State),
		CreatedAt:     student.CreatedAt,
		UpdatedAt:     student.UpdatedAt,
		DeactivatedAt: student.DeactivatedAt,
	}
}

// LifecycleEventResponse serializes an audit trail entry.
type LifecycleEventResponse struct {
	ID        uint                   `json:"id"`
	StudentID string                 `json:"student_id"`
	Action    string                 `json:"action"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewLifecycleEventResponse converts an audit entry into a DTO.
func NewLifecycleEventResponse(event models.LifecycleEvent) LifecycleEventResponse {
	metadata := make(map[string]interface{}, len(event.Metadata))
	for key, value := range event.Metadata {
		metadata[key] = value
	}

	return LifecycleEventResponse{
		ID:        event.ID,
		StudentID: event.StudentID,
		Action:    event.Action,
		Metadata:  metadata,
		CreatedAt: event.CreatedAt,
	}
}
