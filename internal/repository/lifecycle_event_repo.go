package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/campuskit/student-registry-api/internal/models"
)

// LifecycleEventRepository persists the append-only audit trail of record
// transitions.
type LifecycleEventRepository interface {
	Record(ctx context.Context, event *models.LifecycleEvent) error
	ListByStudent(ctx context.Context, studentID string) ([]models.LifecycleEvent, error)
}

type lifecycleEventRepository struct {
	db *gorm.DB
}

// NewLifecycleEventRepository constructs the audit trail repository.
func NewLifecycleEventRepository(db *gorm.DB) LifecycleEventRepository {
	return &lifecycleEventRepository{db: db}
}

func (r *lifecycleEventRepository) Record(ctx context.Context, event *models.LifecycleEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *lifecycleEventRepository) ListByStudent(ctx context.Context, studentID string) ([]models.LifecycleEvent, error) {
	var events []models.LifecycleEvent
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}

	return events, nil
}
