package postgres

import (
	"context"
	"fmt"

	"github.com/brightclass/assessment-service/internal/cache"
	"github.com/brightclass/assessment-service/internal/models"
	"github.com/brightclass/assessment-service/internal/repositories"
	"gorm.io/gorm"
)

type AssessmentPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.Manager
}

func NewAssessmentPostgreSQL(db *gorm.DB, cacheManager *cache.Manager) repositories.AssessmentRepository {
	return &AssessmentPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

func (a *AssessmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

func (a *AssessmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Create(assessment).Error; err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}
	cache.SafeInvalidatePattern(ctx, a.cacheManager.Assessment, "list:*")
	return nil
}

func (a *AssessmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	db := a.getDB(tx)
	var assessment models.Assessment

	cacheKey := fmt.Sprintf("id:%d", id)
	err := a.cacheManager.Assessment.GetOrLoad(ctx, cacheKey, &assessment, func() (interface{}, error) {
		var row models.Assessment
		if err := db.WithContext(ctx).First(&row, id).Error; err != nil {
			return nil, err
		}
		return &row, nil
	})
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (a *AssessmentPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	db := a.getDB(tx)
	var assessment models.Assessment
	if err := db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order_index ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("answer_options.order_index ASC")
		}).
		First(&assessment, id).Error; err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (a *AssessmentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Save(assessment).Error; err != nil {
		return fmt.Errorf("failed to update assessment: %w", err)
	}
	cache.InvalidateAssessment(ctx, a.cacheManager, assessment.ID)
	return nil
}

func (a *AssessmentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Delete(&models.Assessment{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}
	cache.InvalidateAssessment(ctx, a.cacheManager, id)
	return nil
}

func (a *AssessmentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	db := a.getDB(tx)
	var assessments []*models.Assessment
	var total int64

	query := db.WithContext(ctx).Model(&models.Assessment{})
	query = a.helpers.ApplyAssessmentFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&assessments).Error; err != nil {
		return nil, 0, err
	}

	return assessments, total, nil
}

func (a *AssessmentPostgreSQL) GetByLesson(ctx context.Context, tx *gorm.DB, lessonID uint) ([]*models.Assessment, error) {
	db := a.getDB(tx)
	var assessments []*models.Assessment
	if err := db.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("created_at ASC").
		Find(&assessments).Error; err != nil {
		return nil, fmt.Errorf("failed to get assessments by lesson: %w", err)
	}
	return assessments, nil
}

// RecalculateTotalMarks re-derives total_marks from the active question
// set and persists it in one UPDATE.
func (a *AssessmentPostgreSQL) RecalculateTotalMarks(ctx context.Context, tx *gorm.DB, id uint) (int, error) {
	db := a.getDB(tx)

	var total int64
	err := db.WithContext(ctx).
		Model(&models.Question{}).
		Select("COALESCE(SUM(marks), 0)").
		Where("assessment_id = ? AND is_active = ?", id, true).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum question marks: %w", err)
	}

	err = db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("id = ?", id).
		Update("total_marks", total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to update total marks: %w", err)
	}

	cache.InvalidateAssessment(ctx, a.cacheManager, id)
	return int(total), nil
}
