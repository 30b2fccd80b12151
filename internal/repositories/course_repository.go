package repositories

import (
	"context"

	"github.com/brightclass/assessment-service/internal/models"
	"gorm.io/gorm"
)

type CourseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error)
	GetByIDWithContent(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) // preloads Weeks.Lessons
	Update(ctx context.Context, tx *gorm.DB, course *models.Course) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*models.Course, int64, error)

	GetLesson(ctx context.Context, tx *gorm.DB, lessonID uint) (*models.Lesson, error)
	UpdateLesson(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error
}

type EnrollmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Enrollment, error)
	GetByCourseAndLearner(ctx context.Context, tx *gorm.DB, courseID uint, learnerID string) (*models.Enrollment, error)

	// GetActiveForLesson resolves the learner's active enrollment in the
	// course that owns the lesson. Attempt start requires it.
	GetActiveForLesson(ctx context.Context, tx *gorm.DB, lessonID uint, learnerID string) (*models.Enrollment, error)

	Update(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error
	List(ctx context.Context, tx *gorm.DB, filters EnrollmentFilters) ([]*models.Enrollment, int64, error)
}
