package postgres

import (
	"context"
	"fmt"

	"github.com/brightclass/assessment-service/internal/cache"
	"github.com/brightclass/assessment-service/internal/models"
	"github.com/brightclass/assessment-service/internal/repositories"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.Manager
}

func NewQuestionPostgreSQL(db *gorm.DB, cacheManager *cache.Manager) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	cache.SafeDelete(ctx, q.cacheManager.Question, fmt.Sprintf("assessment:%d", question.AssessmentID))
	return nil
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := q.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) GetByIDWithOptions(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := q.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("answer_options.order_index ASC")
		}).
		First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}
	cache.SafeDelete(ctx, q.cacheManager.Question, fmt.Sprintf("assessment:%d", question.AssessmentID))
	return nil
}

func (q *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := q.getDB(tx)

	question, err := q.GetByID(ctx, tx, id)
	if err != nil {
		return err
	}

	if err := db.WithContext(ctx).Delete(&models.Question{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	cache.SafeDelete(ctx, q.cacheManager.Question, fmt.Sprintf("assessment:%d", question.AssessmentID))
	return nil
}

// GetActiveByAssessment returns the question set an attempt is graded
// against: active questions in authoring order, options included.
func (q *QuestionPostgreSQL) GetActiveByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.Question, error) {
	db := q.getDB(tx)
	var questions []*models.Question
	if err := db.WithContext(ctx).
		Where("assessment_id = ? AND is_active = ?", assessmentID, true).
		Order("order_index ASC").
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("answer_options.order_index ASC")
		}).
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get active questions: %w", err)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.Question, error) {
	db := q.getDB(tx)
	var questions []*models.Question
	if err := db.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Order("order_index ASC").
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("answer_options.order_index ASC")
		}).
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) SetActive(ctx context.Context, tx *gorm.DB, id uint, active bool) error {
	db := q.getDB(tx)

	result := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to set question active flag: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (q *QuestionPostgreSQL) SumActiveMarks(ctx context.Context, tx *gorm.DB, assessmentID uint) (int, error) {
	db := q.getDB(tx)
	var total int64
	err := db.WithContext(ctx).
		Model(&models.Question{}).
		Select("COALESCE(SUM(marks), 0)").
		Where("assessment_id = ? AND is_active = ?", assessmentID, true).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum active marks: %w", err)
	}
	return int(total), nil
}

// ReplaceOptions swaps the full option set of a question. Answer rows
// reference option IDs, so replacement is only allowed while no attempt
// exists; the service layer enforces that.
func (q *QuestionPostgreSQL) ReplaceOptions(ctx context.Context, tx *gorm.DB, questionID uint, options []models.AnswerOption) error {
	db := q.getDB(tx)

	if err := db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Delete(&models.AnswerOption{}).Error; err != nil {
		return fmt.Errorf("failed to delete old options: %w", err)
	}

	for i := range options {
		options[i].ID = 0
		options[i].QuestionID = questionID
	}
	if len(options) > 0 {
		if err := db.WithContext(ctx).Create(&options).Error; err != nil {
			return fmt.Errorf("failed to create options: %w", err)
		}
	}
	return nil
}

func (q *QuestionPostgreSQL) GetOption(ctx context.Context, tx *gorm.DB, optionID uint) (*models.AnswerOption, error) {
	db := q.getDB(tx)
	var option models.AnswerOption
	if err := db.WithContext(ctx).First(&option, optionID).Error; err != nil {
		return nil, err
	}
	return &option, nil
}
