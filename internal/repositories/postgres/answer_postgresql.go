package postgres

import (
	"context"
	"fmt"

	"github.com/brightclass/assessment-service/internal/models"
	"github.com/brightclass/assessment-service/internal/repositories"
	"gorm.io/gorm"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (a *AnswerPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

func (a *AnswerPostgreSQL) Create(ctx context.Context, tx *gorm.DB, answer *models.AttemptAnswer) error {
	db := a.getDB(tx)
	return db.WithContext(ctx).Create(answer).Error
}

func (a *AnswerPostgreSQL) Update(ctx context.Context, tx *gorm.DB, answer *models.AttemptAnswer) error {
	db := a.getDB(tx)
	return db.WithContext(ctx).Save(answer).Error
}

func (a *AnswerPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AttemptAnswer, error) {
	db := a.getDB(tx)
	var answer models.AttemptAnswer
	if err := db.WithContext(ctx).First(&answer, id).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

func (a *AnswerPostgreSQL) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.AttemptAnswer, error) {
	db := a.getDB(tx)
	var answer models.AttemptAnswer
	if err := db.WithContext(ctx).
		Preload("Question.Options").
		Preload("SelectedOption").
		First(&answer, id).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

// GetByAttemptAndQuestion backs the save-answer upsert. A not-found
// result means the service should insert instead of update.
func (a *AnswerPostgreSQL) GetByAttemptAndQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (*models.AttemptAnswer, error) {
	db := a.getDB(tx)
	var answer models.AttemptAnswer
	if err := db.WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&answer).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

func (a *AnswerPostgreSQL) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.AttemptAnswer, error) {
	db := a.getDB(tx)
	var answers []*models.AttemptAnswer
	if err := db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("question_id ASC").
		Preload("Question.Options").
		Preload("SelectedOption").
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to get answers by attempt: %w", err)
	}
	return answers, nil
}

// CountUngradedSubjective counts free-text answers still waiting for an
// instructor grade. Zero means the attempt can move to graded status.
func (a *AnswerPostgreSQL) CountUngradedSubjective(ctx context.Context, tx *gorm.DB, attemptID uint) (int64, error) {
	db := a.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.AttemptAnswer{}).
		Joins("JOIN questions ON questions.id = attempt_answers.question_id").
		Where("attempt_answers.attempt_id = ?", attemptID).
		Where("questions.type IN ?", []models.QuestionType{models.ShortAnswer, models.Essay}).
		Where("attempt_answers.marks_awarded IS NULL").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count ungraded subjective answers: %w", err)
	}
	return count, nil
}

func (a *AnswerPostgreSQL) GetGradingStats(ctx context.Context, tx *gorm.DB, assessmentID uint) (*repositories.GradingStats, error) {
	db := a.getDB(tx)
	stats := &repositories.GradingStats{}

	type row struct {
		Total     int
		Graded    int
		Auto      int
		Manual    int
		AvgMarks  float64
	}
	var r row
	err := db.WithContext(ctx).
		Model(&models.AttemptAnswer{}).
		Joins("JOIN assessment_attempts ON assessment_attempts.id = attempt_answers.attempt_id").
		Select(`COUNT(*) as total,
			COUNT(*) FILTER (WHERE attempt_answers.marks_awarded IS NOT NULL) as graded,
			COUNT(*) FILTER (WHERE attempt_answers.marks_awarded IS NOT NULL AND attempt_answers.graded_by IS NULL) as auto,
			COUNT(*) FILTER (WHERE attempt_answers.graded_by IS NOT NULL) as manual,
			COALESCE(AVG(attempt_answers.marks_awarded), 0) as avg_marks`).
		Where("assessment_attempts.assessment_id = ?", assessmentID).
		Scan(&r).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get grading stats: %w", err)
	}

	stats.TotalAnswers = r.Total
	stats.GradedAnswers = r.Graded
	stats.PendingAnswers = r.Total - r.Graded
	stats.AutoGraded = r.Auto
	stats.ManualGraded = r.Manual
	stats.AverageMarks = r.AvgMarks
	return stats, nil
}
