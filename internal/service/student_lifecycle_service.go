package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/campuskit/student-registry-api/internal/dto"
	"github.com/campuskit/student-registry-api/internal/models"
	"github.com/campuskit/student-registry-api/internal/repository"
	"github.com/campuskit/student-registry-api/pkg/events"
)

// retentionYears is how long a record must remain deactivated before it may
// be permanently removed. Deletion requires now to be strictly after
// deactivatedAt plus the window; at the exact boundary instant it still fails.
const retentionYears = 5

// StudentLifecycleService owns the business rules of the student registry:
// email uniqueness, state transitions and the retention gate. Every operation
// returns an Outcome; expected failures never travel as Go errors.
type StudentLifecycleService interface {
	List(ctx context.Context, req dto.StudentListRequest) Outcome[[]dto.StudentResponse]
	GetByID(ctx context.Context, id string) Outcome[dto.StudentResponse]
	Create(ctx context.Context, req dto.StudentCreateRequest) Outcome[dto.StudentResponse]
	Update(ctx context.Context, id string, req dto.StudentUpdateRequest) Outcome[dto.StudentResponse]
	Deactivate(ctx context.Context, id string) Outcome[bool]
	Reactivate(ctx context.Context, id string) Outcome[dto.StudentResponse]
	Delete(ctx context.Context, id string) Outcome[bool]
	History(ctx context.Context, id string) Outcome[[]dto.LifecycleEventResponse]
}

type studentLifecycleService struct {
	repo      repository.StudentRepository
	audit     repository.LifecycleEventRepository
	validator *validator.Validate
	cache     *redis.Client
	cacheTTL  time.Duration
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewStudentLifecycleService constructs the lifecycle service. The cache and
// publisher may be nil; both are best-effort collaborators.
func NewStudentLifecycleService(
	repo repository.StudentRepository,
	audit repository.LifecycleEventRepository,
	validate *validator.Validate,
	cache *redis.Client,
	cacheTTL time.Duration,
	publisher events.Publisher,
	logger zerolog.Logger,
) StudentLifecycleService {
	return &studentLifecycleService{
		repo:      repo,
		audit:     audit,
		validator: validate,
		cache:     cache,
		cacheTTL:  cacheTTL,
		publisher: publisher,
		logger:    logger.With().Str("component", "student_lifecycle_service").Logger(),
		now:       time.Now,
	}
}

func (s *studentLifecycleService) List(ctx context.Context, req dto.StudentListRequest) Outcome[[]dto.StudentResponse] {
	if err := s.validator.Struct(req); err != nil {
		return Fail[[]dto.StudentResponse](FailureValidation, err.Error())
	}

	filter := repository.StudentFilter{
		State:         models.LifecycleState(strings.TrimSpace(req.State)),
		NameContains:  strings.TrimSpace(req.NameContains),
		EmailContains: strings.TrimSpace(req.EmailContains),
		CreatedAfter:  req.CreatedAfter,
	}

	students, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list students")
		return Fail[[]dto.StudentResponse](FailureUnexpected, "failed to list students")
	}

	responses := make([]dto.StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, dto.NewStudentResponse(student))
	}

	return Succeed(responses)
}

func (s *studentLifecycleService) GetByID(ctx context.Context, id string) Outcome[dto.StudentResponse] {
	if cached, ok := s.cachedResponse(ctx, id); ok {
		return Succeed(cached)
	}

	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Fail[dto.StudentResponse](FailureNotFound, "student not found")
		}
		s.logger.Error().Err(err).Str("student_id", id).Msg("failed to fetch student")
		return Fail[dto.StudentResponse](FailureUnexpected, "failed to fetch student")
	}

	response := dto.NewStudentResponse(student)
	s.storeCachedResponse(ctx, response)
	return Succeed(response)
}

func (s *studentLifecycleService) Create(ctx context.Context, req dto.StudentCreateRequest) Outcome[dto.StudentResponse] {
	if err := s.validator.Struct(req); err != nil {
		return Fail[dto.StudentResponse](FailureValidation, err.Error())
	}

	dateOfBirth, err := time.Parse(dto.DateLayout, req.DateOfBirth)
	if err != nil {
		return Fail[dto.StudentResponse](FailureValidation, "invalid date of birth")
	}

	email := normalizeEmail(req.Email)
	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		// The email is reserved even when the owner is inactive; tell the
		// caller whether reactivation is an option instead of a duplicate.
		return FailConflict[dto.StudentResponse](
			"email is already registered",
			dto.NewStudentResponse(existing),
			existing.Inactive(),
		)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Error().Err(err).Msg("failed to check email uniqueness")
		return Fail[dto.StudentResponse](FailureUnexpected, "failed to create student")
	}

	student := models.Student{
		ID:          uuid.NewString(),
		FullName:    strings.TrimSpace(req.FullName),
		Email:       email,
		DateOfBirth: dateOfBirth,
		State:       models.StateActive,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.repo.Create(ctx, &student); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist student")
		return Fail[dto.StudentResponse](FailureUnexpected, "failed to create student")
	}

	s.recordTransition(ctx, student.ID, models.EventStudentCreated, datatypes.JSONMap{
		"email": student.Email,
	})

	return Succeed(dto.NewStudentResponse(student))
}

func (s *studentLifecycleService) Update(ctx context.Context, id string, req dto.StudentUpdateRequest) Outcome[dto.StudentResponse] {
	if err := s.validator.Struct(req); err != nil {
		return Fail[dto.StudentResponse](FailureValidation, err.Error())
	}

	dateOfBirth, err := time.Parse(dto.DateLayout, req.DateOfBirth)
	if err != nil {
		return Fail[dto.StudentResponse](FailureValidation, "invalid date of birth")
	}

	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Fail[dto.StudentResponse](FailureNotFound, "student not found")
		}
		s.logger.Error().Err(err).Str("student_id", id).Msg("failed to fetch student")
		return Fail[dto.StudentResponse](FailureUnexpected, "failed to update student")
	}

	if student.Inactive() {
		return Fail[dto.StudentResponse](FailureConflict, "student is deactivated, reactivate before editing")
	}

	email := normalizeEmail(req.Email)
	if email != normalizeEmail(student.Email) {
		taken, err := s.repo.EmailExists(ctx, email, student.ID)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to check email uniqueness")
			return Fail[dto.StudentResponse](FailureUnexpected, "failed to update student")
		}
		if taken {
			return Fail[dto.StudentResponse](FailureConflict, "email is already registered to another student")
		}
	}

	student.FullName = strings.TrimSpace(req.FullName)
	student.Email = email
	student.DateOfBirth = dateOfBirth

	if err := s.repo.Update(ctx, &student); err != nil {
		s.logger.Error().Err(err).Str("student_id", id).Msg("failed to persist student")
		return Fail[dto.StudentResponse](FailureUnexpected, "failed to update student")
	}

	s.invalidateCache(ctx, student.ID)
	s.recordTransition(ctx, student.ID, models.EventStudentUpdated, datatypes.JSONMap{
		"email": student.Email,
	})

	return Succeed(dto.NewStudentResponse(student))
}

func (s *studentLifecycleService) Deactivate(ctx context.Context, id string) Outcome[bool] {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Fail[bool](FailureNotFound, "student not found")
		}
		s.logger.Error().Err(err).Str("student_id", id).Msg("failed to fetch student")
		return Fail[bool](FailureUnexpected, "failed to deactivate student")
	}

	if student.Inactive() {
		return Fail[bool](FailureConflict, "student is already deactivated")
	}

	deactivatedAt := s.now().UTC()
	student.State = models.StateInactive
	student.DeactivatedAt = &deactivatedAt

	if err := s.repo.Update(ctx, &student); err != nil {
		s.logger.Error().Err(err).Str("student_id", id).Msg("failed to persist student")
		return Fail[bool](FailureUnexpected, "failed to deactivate student")
	}

	s.invalidateCache(ctx, student.ID)
	s.recordTransition(ctx, student.ID, models.EventStudentDeactivated, datatypes.JSONMap{
		"deactivated_at": deactivatedAt.Format(time.RFC3339),
	})

	return Succeed(true)
}

func (s *studentLifecycleService) Reactivate(ctx context.Context, id string) Outcome[dto.StudentResponse] {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Fail[dto.StudentResponse](FailureNotFound, "student not found")
		}
		s.logger.Error().Err(err).Str("student_id", id).Msg("failed to fetch student")
		return Fail[dto.StudentResponse](FailureUnexpected, "failed to reactivate student")
	}

	if !student.Inactive() {
		return Fail[dto.StudentResponse](FailureConflict, "student is already active")
	}

	student.State = models.StateActive
	student.DeactivatedAt = nil

	if err := s.repo.Update(ctx, &student); err != nil {
		s.logger.Error().Err(err).Str("student_id", id).Msg("failed to persist student")
		return Fail[dto.StudentResponse](FailureUnexpected, "failed to reactivate student")
	}

	s.invalidateCache(ctx, student.ID)
	s.recordTransition(ctx, student.ID, models.EventStudentReactivated, nil)

	return Succeed(dto.NewStudentResponse(student))
}

func (s *studentLifecycleService) Delete(ctx context.Context, id string) Outcome[bool] {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Fail[bool](FailureNotFound, "student not found")
		}
		s.logger.Error().Err(err).Str("student_id", id).Msg("failed to fetch student")
		return Fail[bool](FailureUnexpected, "failed to delete student")
	}

	if student.DeactivatedAt == nil {
		return Fail[bool](FailureConflict, "student must be deactivated before deletion")
	}

	eligibleAt := student.DeactivatedAt.AddDate(retentionYears, 0, 0)
	now := s.now().UTC()
	if !now.After(eligibleAt) {
		remaining := eligibleAt.Sub(now)
		return Fail[bool](FailureConflict, fmt.Sprintf(
			"retention window has not elapsed, deletion possible in %s", formatRemaining(remaining)))
	}

	if err := s.repo.Delete(ctx, &student); err != nil {
		s.logger.Error().Err(err).Str("student_id", id).Msg("failed to remove student")
		return Fail[bool](FailureUnexpected, "failed to delete student")
	}

	s.invalidateCache(ctx, student.ID)
	s.recordTransition(ctx, student.ID, models.EventStudentDeleted, datatypes.JSONMap{
		"email": student.Email,
	})

	return Succeed(true)
}

func (s *studentLifecycleService) History(ctx context.Context, id string) Outcome[[]dto.LifecycleEventResponse] {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Fail[[]dto.LifecycleEventResponse](FailureNotFound, "student not found")
		}
		s.logger.Error().Err(err).Str("student_id", id).Msg("failed to fetch student")
		return Fail[[]dto.LifecycleEventResponse](FailureUnexpected, "failed to fetch history")
	}

	entries, err := s.audit.ListByStudent(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("student_id", id).Msg("failed to list lifecycle events")
		return Fail[[]dto.LifecycleEventResponse](FailureUnexpected, "failed to fetch history")
	}

	responses := make([]dto.LifecycleEventResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewLifecycleEventResponse(entry))
	}

	return Succeed(responses)
}

// recordTransition appends an audit entry and announces the transition.
// Both are best-effort; a failure here never rolls back the state change.
func (s *studentLifecycleService) recordTransition(ctx context.Context, studentID, action string, metadata datatypes.JSONMap) {
	if s.audit != nil {
		event := models.LifecycleEvent{
			StudentID: studentID,
			Action:    action,
			Metadata:  metadata,
			CreatedAt: s.now().UTC(),
		}
		if err := s.audit.Record(ctx, &event); err != nil {
			s.logger.Warn().Err(err).Str("action", action).Msg("failed to record lifecycle event")
		}
	}

	if s.publisher != nil {
		event := events.StudentEvent{
			StudentID:  studentID,
			Action:     action,
			Metadata:   metadata,
			OccurredAt: s.now().UTC(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn().Err(err).Str("action", action).Msg("failed to publish lifecycle event")
		}
	}
}

func (s *studentLifecycleService) cacheKey(id string) string {
	return "student:" + id
}

func (s *studentLifecycleService) cachedResponse(ctx context.Context, id string) (dto.StudentResponse, bool) {
	if s.cache == nil {
		return dto.StudentResponse{}, false
	}

	raw, err := s.cache.Get(ctx, s.cacheKey(id)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("cache read failed")
		}
		return dto.StudentResponse{}, false
	}

	var response dto.StudentResponse
	if err := json.Unmarshal([]byte(raw), &response); err != nil {
		return dto.StudentResponse{}, false
	}

	return response, true
}

func (s *studentLifecycleService) storeCachedResponse(ctx context.Context, response dto.StudentResponse) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, s.cacheKey(response.ID), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("cache write failed")
	}
}

func (s *studentLifecycleService) invalidateCache(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Del(ctx, s.cacheKey(id)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("cache invalidation failed")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func formatRemaining(remaining time.Duration) string {
	days := int(remaining.Hours() / 24)
	if days < 1 {
		return "less than a day"
	}
	return fmt.Sprintf("%d days", days)
}
