package repositories

import (
	"context"
	"time"

	"github.com/brightclass/assessment-service/internal/models"
	"gorm.io/gorm"
)

// AttemptRepository covers the attempt lifecycle rows.
type AttemptRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, attempt *models.AssessmentAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AssessmentAttempt, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.AssessmentAttempt, error) // preloads Assessment and Answers
	Update(ctx context.Context, tx *gorm.DB, attempt *models.AssessmentAttempt) error

	// Lifecycle queries
	GetActiveAttempt(ctx context.Context, tx *gorm.DB, assessmentID uint, learnerID string) (*models.AssessmentAttempt, error)
	MaxAttemptNumber(ctx context.Context, tx *gorm.DB, assessmentID uint, learnerID string) (int, error)
	CountByLearner(ctx context.Context, tx *gorm.DB, assessmentID uint, learnerID string) (int64, error)

	// Listing
	List(ctx context.Context, tx *gorm.DB, assessmentID uint, filters AttemptFilters) ([]*models.AssessmentAttempt, int64, error)
	GetByLearner(ctx context.Context, tx *gorm.DB, learnerID string, filters AttemptFilters) ([]*models.AssessmentAttempt, int64, error)

	// Expiration sweep. GetOverdue returns in_progress attempts whose
	// deadline passed before cutoff; the sweep grades and expires them.
	GetOverdue(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]*models.AssessmentAttempt, error)

	// Reporting
	GetStats(ctx context.Context, tx *gorm.DB, assessmentID uint) (*AttemptStats, error)
	GetGradedByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.AssessmentAttempt, error)
}

// AnswerRepository covers per-question answer rows within an attempt.
type AnswerRepository interface {
	Create(ctx context.Context, tx *gorm.DB, answer *models.AttemptAnswer) error
	Update(ctx context.Context, tx *gorm.DB, answer *models.AttemptAnswer) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AttemptAnswer, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.AttemptAnswer, error) // preloads Question.Options and SelectedOption

	// GetByAttemptAndQuestion backs the save-answer upsert.
	GetByAttemptAndQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (*models.AttemptAnswer, error)
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.AttemptAnswer, error)

	CountUngradedSubjective(ctx context.Context, tx *gorm.DB, attemptID uint) (int64, error)
	GetGradingStats(ctx context.Context, tx *gorm.DB, assessmentID uint) (*GradingStats, error)
}
