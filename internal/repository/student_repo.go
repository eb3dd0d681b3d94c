package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/campuskit/student-registry-api/internal/models"
)

// StudentFilter defines the optional predicates for listing student records.
// Populated predicates are combined with AND.
type StudentFilter struct {
	State         models.LifecycleState
	NameContains  string
	EmailContains string
	CreatedAfter  *time.Time
}

// StudentRepository provides durable keyed access to student records. Every
// write is a single atomic call so that a cancelled request never leaves a
// half-applied record behind.
type StudentRepository interface {
	FindByID(ctx context.Context, id string) (models.Student, error)
	FindByEmail(ctx context.Context, email string) (models.Student, error)
	FindAll(ctx context.Context, filter StudentFilter) ([]models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, student *models.Student) error
	EmailExists(ctx context.Context, email string, excludeID string) (bool, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository backed by GORM.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) FindByID(ctx context.Context, id string) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&student).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) FindByEmail(ctx context.Context, email string) (models.Student, error) {
	var student models.Student
	query := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email))
	if err := query.First(&student).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) FindAll(ctx context.Context, filter StudentFilter) ([]models.Student, error) {
	query := r.db.WithContext(ctx).Model(&models.Student{})

	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}

	if filter.NameContains != "" {
		like := "%" + strings.ToLower(filter.NameContains) + "%"
		query = query.Where("LOWER(full_name) LIKE ?", like)
	}

	if filter.EmailContains != "" {
		like := "%" + strings.ToLower(filter.EmailContains) + "%"
		query = query.Where("LOWER(email) LIKE ?", like)
	}

	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}

	var students []models.Student
	if err := query.Order("created_at DESC").Find(&students).Error; err != nil {
		return nil, err
	}

	return students, nil
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepository) Update(ctx context.Context, student *models.Student) error {
	// Save with Select("*") persists cleared fields such as a nil
	// DeactivatedAt, which partial updates would silently skip.
	return r.db.WithContext(ctx).Model(student).Select("*").Updates(student).Error
}

func (r *studentRepository) Delete(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Unscoped().Delete(student).Error
}

func (r *studentRepository) EmailExists(ctx context.Context, email string, excludeID string) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Student{}).
		Where("LOWER(email) = ?", strings.ToLower(email))
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}
