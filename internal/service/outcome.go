package service

import "github.com/campuskit/student-registry-api/internal/dto"

// FailureClass classifies failed outcomes. It is the only signal the
// transport layer uses to pick a response status; the service never deals in
// HTTP codes itself.
type FailureClass string

// Failure classes for service outcomes.
const (
	FailureNotFound   FailureClass = "not_found"
	FailureConflict   FailureClass = "conflict"
	FailureValidation FailureClass = "validation"
	FailureUnexpected FailureClass = "unexpected"
)

// ConflictInfo carries the record that caused a uniqueness conflict.
// CanReactivate tells the caller the existing record is inactive and could be
// reactivated instead of creating a duplicate, saving a second round trip.
type ConflictInfo struct {
	Existing      dto.StudentResponse `json:"existing"`
	CanReactivate bool                `json:"can_reactivate"`
}

// Outcome is the uniform result of every lifecycle operation. Callers must
// check OK before reading Value; on failure Message, Class and optionally
// Conflict describe what went wrong.
type Outcome[T any] struct {
	OK       bool
	Value    T
	Message  string
	Class    FailureClass
	Conflict *ConflictInfo
}

// Succeed wraps a value in a successful outcome.
func Succeed[T any](value T) Outcome[T] {
	return Outcome[T]{OK: true, Value: value}
}

// Fail builds a failed outcome with the given classification and message.
func Fail[T any](class FailureClass, message string) Outcome[T] {
	return Outcome[T]{Message: message, Class: class}
}

// FailConflict builds a conflict outcome that carries the existing record.
func FailConflict[T any](message string, existing dto.StudentResponse, canReactivate bool) Outcome[T] {
	return Outcome[T]{
		Message: message,
		Class:   FailureConflict,
		Conflict: &ConflictInfo{
			Existing:      existing,
			CanReactivate: canReactivate,
		},
	}
}
