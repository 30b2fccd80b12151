package repositories

import (
	"context"

	"github.com/brightclass/assessment-service/internal/models"
	"gorm.io/gorm"
)

// AssessmentRepository covers assessment rows and their question sets.
type AssessmentRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) // preloads Questions.Options
	Update(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters AssessmentFilters) ([]*models.Assessment, int64, error)
	GetByLesson(ctx context.Context, tx *gorm.DB, lessonID uint) ([]*models.Assessment, error)

	// TotalMarks is derived from the active question set; the authoring
	// path calls this after any question mutation.
	RecalculateTotalMarks(ctx context.Context, tx *gorm.DB, id uint) (int, error)
}

// QuestionRepository covers questions and their answer options.
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	GetByIDWithOptions(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Attempt-facing queries
	GetActiveByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.Question, error) // is_active only, ordered, with options
	GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.Question, error)

	// Question bank management
	SetActive(ctx context.Context, tx *gorm.DB, id uint, active bool) error
	SumActiveMarks(ctx context.Context, tx *gorm.DB, assessmentID uint) (int, error)

	// Options
	ReplaceOptions(ctx context.Context, tx *gorm.DB, questionID uint, options []models.AnswerOption) error
	GetOption(ctx context.Context, tx *gorm.DB, optionID uint) (*models.AnswerOption, error)
}
