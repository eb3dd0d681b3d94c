package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campuskit/student-registry-api/internal/dto"
)

func TestSucceedCarriesValue(t *testing.T) {
	outcome := Succeed(dto.StudentResponse{ID: "abc"})
	require.True(t, outcome.OK)
	require.Equal(t, "abc", outcome.Value.ID)
	require.Empty(t, outcome.Class)
	require.Nil(t, outcome.Conflict)
}

func TestFailCarriesClassification(t *testing.T) {
	outcome := Fail[bool](FailureNotFound, "student not found")
	require.False(t, outcome.OK)
	require.Equal(t, FailureNotFound, outcome.Class)
	require.Equal(t, "student not found", outcome.Message)
	require.False(t, outcome.Value)
}

func TestFailConflictAttachesExistingRecord(t *testing.T) {
	existing := dto.StudentResponse{ID: "abc", State: "inactive"}
	outcome := FailConflict[dto.StudentResponse]("email is already registered", existing, true)
	require.False(t, outcome.OK)
	require.Equal(t, FailureConflict, outcome.Class)
	require.NotNil(t, outcome.Conflict)
	require.Equal(t, "abc", outcome.Conflict.Existing.ID)
	require.True(t, outcome.Conflict.CanReactivate)
}
