package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/campuskit/student-registry-api/internal/dto"
	"github.com/campuskit/student-registry-api/internal/models"
	"github.com/campuskit/student-registry-api/internal/repository"
)

func setupLifecycleService(t *testing.T) (*studentLifecycleService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Student{}, &models.LifecycleEvent{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewStudentLifecycleService(
		repository.NewStudentRepository(db),
		repository.NewLifecycleEventRepository(db),
		validate,
		nil,
		time.Minute,
		nil,
		zerolog.Nop(),
	).(*studentLifecycleService)

	return svc, db
}

func createStudent(t *testing.T, svc *studentLifecycleService, email string) dto.StudentResponse {
	t.Helper()

	outcome := svc.Create(context.Background(), dto.StudentCreateRequest{
		FullName:    "Nadia Putri",
		Email:       email,
		DateOfBirth: "2004-03-17",
	})
	require.True(t, outcome.OK, outcome.Message)
	return outcome.Value
}

func TestCreateAssignsIdentityAndActiveState(t *testing.T) {
	svc, db := setupLifecycleService(t)

	created := createStudent(t, svc, "nadia@example.com")
	require.NotEmpty(t, created.ID)
	require.Equal(t, string(models.StateActive), created.State)
	require.Nil(t, created.DeactivatedAt)
	require.Equal(t, "2004-03-17", created.DateOfBirth)

	var stored models.Student
	require.NoError(t, db.First(&stored, "id = ?", created.ID).Error)
	require.Equal(t, models.StateActive, stored.State)
	require.Nil(t, stored.DeactivatedAt)
}

func TestCreateRejectsDuplicateEmailWithReactivationHint(t *testing.T) {
	svc, _ := setupLifecycleService(t)

	created := createStudent(t, svc, "dup@example.com")

	// Existing record is active: conflict without a reactivation hint.
	outcome := svc.Create(context.Background(), dto.StudentCreateRequest{
		FullName:    "Another Person",
		Email:       "dup@example.com",
		DateOfBirth: "2003-01-01",
	})
	require.False(t, outcome.OK)
	require.Equal(t, FailureConflict, outcome.Class)
	require.NotNil(t, outcome.Conflict)
	require.Equal(t, created.ID, outcome.Conflict.Existing.ID)
	require.False(t, outcome.Conflict.CanReactivate)

	deactivated := svc.Deactivate(context.Background(), created.ID)
	require.True(t, deactivated.OK)

	// The email stays reserved while inactive, but now reactivation is offered.
	outcome = svc.Create(context.Background(), dto.StudentCreateRequest{
		FullName:    "Another Person",
		Email:       "DUP@example.com",
		DateOfBirth: "2003-01-01",
	})
	require.False(t, outcome.OK)
	require.Equal(t, FailureConflict, outcome.Class)
	require.NotNil(t, outcome.Conflict)
	require.True(t, outcome.Conflict.CanReactivate)
}

func TestCreateValidatesInputShape(t *testing.T) {
	svc, _ := setupLifecycleService(t)

	outcome := svc.Create(context.Background(), dto.StudentCreateRequest{
		FullName:    "No Email",
		Email:       "not-an-email",
		DateOfBirth: "2004-03-17",
	})
	require.False(t, outcome.OK)
	require.Equal(t, FailureValidation, outcome.Class)

	outcome = svc.Create(context.Background(), dto.StudentCreateRequest{
		FullName:    "Bad Date",
		Email:       "bad.date@example.com",
		DateOfBirth: "17-03-2004",
	})
	require.False(t, outcome.OK)
	require.Equal(t, FailureValidation, outcome.Class)
}

func TestListRejectsMalformedStateFilter(t *testing.T) {
	svc, _ := setupLifecycleService(t)

	// An unrecognized state value is a malformed filter shape, rejected
	// before the store is consulted.
	outcome := svc.List(context.Background(), dto.StudentListRequest{State: "archived"})
	require.False(t, outcome.OK)
	require.Equal(t, FailureValidation, outcome.Class)
}

func TestGetByIDNotFound(t *testing.T) {
	svc, _ := setupLifecycleService(t)

	outcome := svc.GetByID(context.Background(), "2d9f9d6e-0000-0000-0000-000000000000")
	require.False(t, outcome.OK)
	require.Equal(t, FailureNotFound, outcome.Class)
}

func TestUpdateRewritesEditableFields(t *testing.T) {
	svc, _ := setupLifecycleService(t)

	created := createStudent(t, svc, "before@example.com")

	outcome := svc.Update(context.Background(), created.ID, dto.StudentUpdateRequest{
		FullName:    "Nadia Rahma",
		Email:       "after@example.com",
		DateOfBirth: "2004-04-01",
	})
	require.True(t, outcome.OK, outcome.Message)
	require.Equal(t, "Nadia Rahma", outcome.Value.FullName)
	require.Equal(t, "after@example.com", outcome.Value.Email)
	require.Equal(t, "2004-04-01", outcome.Value.DateOfBirth)
	require.Equal(t, created.ID, outcome.Value.ID, "identity is immutable")
}

func TestUpdateFailsWhenInactive(t *testing.T) {
	svc, _ := setupLifecycleService(t)

	created := createStudent(t, svc, "frozen@example.com")
	require.True(t, svc.Deactivate(context.Background(), created.ID).OK)

	outcome := svc.Update(context.Background(), created.ID, dto.StudentUpdateRequest{
		FullName:    "Still Valid Input",
		Email:       "frozen@example.com",
		DateOfBirth: "2004-03-17",
	})
	require.False(t, outcome.OK)
	require.Equal(t, FailureConflict, outcome.Class)
	require.Contains(t, outcome.Message, "reactivate")
}

func TestUpdateRejectsEmailOwnedByAnotherRecord(t *testing.T) {
	svc, _ := setupLifecycleService(t)

	first := createStudent(t, svc, "first@example.com")
	second := createStudent(t, svc, "second@example.com")

	// The other record being inactive does not release its email.
	require.True(t, svc.Deactivate(context.Background(), second.ID).OK)

	outcome := svc.Update(context.Background(), first.ID, dto.StudentUpdateRequest{
		FullName:    "First Person",
		Email:       "second@example.com",
		DateOfBirth: "2004-03-17",
	})
	require.False(t, outcome.OK)
	require.Equal(t, FailureConflict, outcome.Class)

	// Re-submitting the record's own email is not a conflict.
	outcome = svc.Update(context.Background(), first.ID, dto.StudentUpdateRequest{
		FullName:    "First Person",
		Email:       "FIRST@example.com",
		DateOfBirth: "2004-03-17",
	})
	require.True(t, outcome.OK, outcome.Message)
}

func TestUpdateNotFound(t *testing.T) {
	svc, _ := setupLifecycleService(t)

	outcome := svc.Update(context.Background(), "missing-id", dto.StudentUpdateRequest{
		FullName:    "Ghost",
		Email:       "ghost@example.com",
		DateOfBirth: "2000-01-01",
	})
	require.False(t, outcome.OK)
	require.Equal(t, FailureNotFound, outcome.Class)
}

func TestDeactivateReactivateRoundTrip(t *testing.T) {
	svc, db := setupLifecycleService(t)

	created := createStudent(t, svc, "cycle@example.com")

	require.True(t, svc.Deactivate(context.Background(), created.ID).OK)

	var stored models.Student
	require.NoError(t, db.First(&stored, "id = ?", created.ID).Error)
	require.Equal(t, models.StateInactive, stored.State)
	require.NotNil(t, stored.DeactivatedAt)

	again := svc.Deactivate(context.Background(), created.ID)
	require.False(t, again.OK)
	require.Equal(t, FailureConflict, again.Class)

	reactivated := svc.Reactivate(context.Background(), created.ID)
	require.True(t, reactivated.OK)
	require.Equal(t, string(models.StateActive), reactivated.Value.State)
	require.Nil(t, reactivated.Value.DeactivatedAt)
	require.Equal(t, created.FullName, reactivated.Value.FullName)
	require.Equal(t, created.Email, reactivated.Value.Email)
	require.Equal(t, created.DateOfBirth, reactivated.Value.DateOfBirth)

	// Read into a fresh struct: scanning a NULL column does not overwrite a
	// previously populated destination field.
	var afterReactivate models.Student
	require.NoError(t, db.First(&afterReactivate, "id = ?", created.ID).Error)
	require.Equal(t, models.StateActive, afterReactivate.State)
	require.Nil(t, afterReactivate.DeactivatedAt, "timestamp cleared on reactivation")

	alreadyActive := svc.Reactivate(context.Background(), created.ID)
	require.False(t, alreadyActive.OK)
	require.Equal(t, FailureConflict, alreadyActive.Class)
}

func TestDeleteRequiresDeactivationFirst(t *testing.T) {
	svc, _ := setupLifecycleService(t)

	created := createStudent(t, svc, "active.delete@example.com")

	outcome := svc.Delete(context.Background(), created.ID)
	require.False(t, outcome.OK)
	require.Equal(t, FailureConflict, outcome.Class)
	require.Contains(t, outcome.Message, "deactivated")
}

func TestDeleteEnforcesRetentionWindow(t *testing.T) {
	svc, db := setupLifecycleService(t)

	created := createStudent(t, svc, "retained@example.com")
	require.True(t, svc.Deactivate(context.Background(), created.ID).OK)

	var stored models.Student
	require.NoError(t, db.First(&stored, "id = ?", created.ID).Error)
	deactivatedAt := *stored.DeactivatedAt

	// Freshly deactivated: still inside the window.
	outcome := svc.Delete(context.Background(), created.ID)
	require.False(t, outcome.OK)
	require.Equal(t, FailureConflict, outcome.Class)
	require.Contains(t, outcome.Message, "retention")

	// Exactly at the boundary instant: the bound is strict, still a conflict.
	svc.now = func() time.Time { return deactivatedAt.AddDate(retentionYears, 0, 0) }
	outcome = svc.Delete(context.Background(), created.ID)
	require.False(t, outcome.OK)
	require.Equal(t, FailureConflict, outcome.Class)

	// One second past the boundary: removal is allowed and irreversible.
	svc.now = func() time.Time { return deactivatedAt.AddDate(retentionYears, 0, 0).Add(time.Second) }
	outcome = svc.Delete(context.Background(), created.ID)
	require.True(t, outcome.OK, outcome.Message)

	err := db.First(&stored, "id = ?", created.ID).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteNotFound(t *testing.T) {
	svc, _ := setupLifecycleService(t)

	outcome := svc.Delete(context.Background(), "missing-id")
	require.False(t, outcome.OK)
	require.Equal(t, FailureNotFound, outcome.Class)
}

func TestListAppliesConjunctiveFilters(t *testing.T) {
	svc, _ := setupLifecycleService(t)

	alice := svc.Create(context.Background(), dto.StudentCreateRequest{
		FullName:    "Alice Johnson",
		Email:       "alice@example.com",
		DateOfBirth: "2002-06-01",
	})
	require.True(t, alice.OK)

	bob := svc.Create(context.Background(), dto.StudentCreateRequest{
		FullName:    "Bob Stone",
		Email:       "bob@campus.org",
		DateOfBirth: "2001-11-20",
	})
	require.True(t, bob.OK)
	require.True(t, svc.Deactivate(context.Background(), bob.Value.ID).OK)

	all := svc.List(context.Background(), dto.StudentListRequest{})
	require.True(t, all.OK)
	require.Len(t, all.Value, 2)

	actives := svc.List(context.Background(), dto.StudentListRequest{State: "active"})
	require.True(t, actives.OK)
	require.Len(t, actives.Value, 1)
	require.Equal(t, "Alice Johnson", actives.Value[0].FullName)

	byName := svc.List(context.Background(), dto.StudentListRequest{NameContains: "sTONe"})
	require.True(t, byName.OK)
	require.Len(t, byName.Value, 1)
	require.Equal(t, "Bob Stone", byName.Value[0].FullName)

	byEmail := svc.List(context.Background(), dto.StudentListRequest{
		State:         "inactive",
		EmailContains: "campus",
	})
	require.True(t, byEmail.OK)
	require.Len(t, byEmail.Value, 1)

	future := time.Now().Add(time.Hour)
	none := svc.List(context.Background(), dto.StudentListRequest{CreatedAfter: &future})
	require.True(t, none.OK)
	require.Empty(t, none.Value)
}

func TestDeactivationTimestampMatchesStateAfterEveryOperation(t *testing.T) {
	svc, db := setupLifecycleService(t)

	created := createStudent(t, svc, "invariant@example.com")

	assertInvariant := func() {
		var stored models.Student
		require.NoError(t, db.First(&stored, "id = ?", created.ID).Error)
		require.Equal(t, stored.State == models.StateInactive, stored.DeactivatedAt != nil)
	}

	assertInvariant()
	require.True(t, svc.Deactivate(context.Background(), created.ID).OK)
	assertInvariant()
	require.True(t, svc.Reactivate(context.Background(), created.ID).OK)
	assertInvariant()
	require.True(t, svc.Update(context.Background(), created.ID, dto.StudentUpdateRequest{
		FullName:    "Still Here",
		Email:       "invariant@example.com",
		DateOfBirth: "2004-03-17",
	}).OK)
	assertInvariant()
}

func TestFullLifecycleScenario(t *testing.T) {
	svc, db := setupLifecycleService(t)
	ctx := context.Background()

	created := svc.Create(ctx, dto.StudentCreateRequest{
		FullName:    "Ayu Lestari",
		Email:       "a@x.com",
		DateOfBirth: "2003-09-09",
	})
	require.True(t, created.OK)
	id := created.Value.ID

	dup := svc.Create(ctx, dto.StudentCreateRequest{
		FullName:    "Ayu Lestari",
		Email:       "a@x.com",
		DateOfBirth: "2003-09-09",
	})
	require.Equal(t, FailureConflict, dup.Class)
	require.False(t, dup.Conflict.CanReactivate)

	require.True(t, svc.Deactivate(ctx, id).OK)

	dup = svc.Create(ctx, dto.StudentCreateRequest{
		FullName:    "Ayu Lestari",
		Email:       "a@x.com",
		DateOfBirth: "2003-09-09",
	})
	require.Equal(t, FailureConflict, dup.Class)
	require.True(t, dup.Conflict.CanReactivate)

	reactivated := svc.Reactivate(ctx, id)
	require.True(t, reactivated.OK)
	require.Equal(t, string(models.StateActive), reactivated.Value.State)

	blocked := svc.Delete(ctx, id)
	require.Equal(t, FailureConflict, blocked.Class)

	require.True(t, svc.Deactivate(ctx, id).OK)

	var stored models.Student
	require.NoError(t, db.First(&stored, "id = ?", id).Error)
	svc.now = func() time.Time { return stored.DeactivatedAt.AddDate(retentionYears, 0, 1) }

	deleted := svc.Delete(ctx, id)
	require.True(t, deleted.OK, deleted.Message)
}

func TestHistoryRecordsTransitions(t *testing.T) {
	svc, _ := setupLifecycleService(t)
	ctx := context.Background()

	created := createStudent(t, svc, "audited@example.com")
	require.True(t, svc.Deactivate(ctx, created.ID).OK)
	require.True(t, svc.Reactivate(ctx, created.ID).OK)

	outcome := svc.History(ctx, created.ID)
	require.True(t, outcome.OK)
	require.Len(t, outcome.Value, 3)
	require.Equal(t, models.EventStudentCreated, outcome.Value[0].Action)
	require.Equal(t, models.EventStudentDeactivated, outcome.Value[1].Action)
	require.Equal(t, models.EventStudentReactivated, outcome.Value[2].Action)

	missing := svc.History(ctx, "missing-id")
	require.Equal(t, FailureNotFound, missing.Class)
}

func TestGetByIDUsesCacheUntilInvalidated(t *testing.T) {
	svc, _ := setupLifecycleService(t)

	mini := miniredis.RunT(t)
	svc.cache = redis.NewClient(&redis.Options{Addr: mini.Addr()})
	svc.cacheTTL = time.Minute

	created := createStudent(t, svc, "cached@example.com")
	ctx := context.Background()

	first := svc.GetByID(ctx, created.ID)
	require.True(t, first.OK)
	require.True(t, mini.Exists("student:"+created.ID))

	updated := svc.Update(ctx, created.ID, dto.StudentUpdateRequest{
		FullName:    "Renamed Person",
		Email:       "cached@example.com",
		DateOfBirth: "2004-03-17",
	})
	require.True(t, updated.OK)
	require.False(t, mini.Exists("student:"+created.ID), "writes must invalidate the cached record")

	second := svc.GetByID(ctx, created.ID)
	require.True(t, second.OK)
	require.Equal(t, "Renamed Person", second.Value.FullName)
}
