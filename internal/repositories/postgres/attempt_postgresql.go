package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/brightclass/assessment-service/internal/cache"
	"github.com/brightclass/assessment-service/internal/models"
	"github.com/brightclass/assessment-service/internal/repositories"
	"gorm.io/gorm"
)

type AttemptPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.Manager
}

func NewAttemptPostgreSQL(db *gorm.DB, cacheManager *cache.Manager) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

func (a *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.AssessmentAttempt) error {
	db := a.getDB(tx)
	// No cache to invalidate on create; the unique index on
	// (assessment_id, learner_id, attempt_number) surfaces races here.
	return db.WithContext(ctx).Create(attempt).Error
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AssessmentAttempt, error) {
	db := a.getDB(tx)
	var attempt models.AssessmentAttempt
	if err := db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.AssessmentAttempt, error) {
	db := a.getDB(tx)
	var attempt models.AssessmentAttempt
	if err := db.WithContext(ctx).
		Preload("Assessment").
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("attempt_answers.question_id ASC")
		}).
		Preload("Answers.Question.Options").
		Preload("Answers.SelectedOption").
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, tx *gorm.DB, attempt *models.AssessmentAttempt) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Save(attempt).Error; err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}
	cache.InvalidateAttempt(ctx, a.cacheManager, attempt.ID, attempt.AssessmentID)
	return nil
}

// GetActiveAttempt returns the learner's single in_progress attempt for
// the assessment, or gorm.ErrRecordNotFound when none is open.
func (a *AttemptPostgreSQL) GetActiveAttempt(ctx context.Context, tx *gorm.DB, assessmentID uint, learnerID string) (*models.AssessmentAttempt, error) {
	db := a.getDB(tx)
	var attempt models.AssessmentAttempt
	if err := db.WithContext(ctx).
		Where("assessment_id = ? AND learner_id = ? AND status = ?",
			assessmentID, learnerID, models.AttemptInProgress).
		Order("attempt_number DESC").
		First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) MaxAttemptNumber(ctx context.Context, tx *gorm.DB, assessmentID uint, learnerID string) (int, error) {
	db := a.getDB(tx)
	var max int64
	err := db.WithContext(ctx).
		Model(&models.AssessmentAttempt{}).
		Select("COALESCE(MAX(attempt_number), 0)").
		Where("assessment_id = ? AND learner_id = ?", assessmentID, learnerID).
		Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get max attempt number: %w", err)
	}
	return int(max), nil
}

func (a *AttemptPostgreSQL) CountByLearner(ctx context.Context, tx *gorm.DB, assessmentID uint, learnerID string) (int64, error) {
	db := a.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.AssessmentAttempt{}).
		Where("assessment_id = ? AND learner_id = ?", assessmentID, learnerID).
		Count(&count).Error
	return count, err
}

func (a *AttemptPostgreSQL) List(ctx context.Context, tx *gorm.DB, assessmentID uint, filters repositories.AttemptFilters) ([]*models.AssessmentAttempt, int64, error) {
	db := a.getDB(tx)
	var attempts []*models.AssessmentAttempt
	var total int64

	query := db.WithContext(ctx).
		Model(&models.AssessmentAttempt{}).
		Where("assessment_id = ?", assessmentID)
	query = a.helpers.ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Preload("Assessment").Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a *AttemptPostgreSQL) GetByLearner(ctx context.Context, tx *gorm.DB, learnerID string, filters repositories.AttemptFilters) ([]*models.AssessmentAttempt, int64, error) {
	db := a.getDB(tx)
	var attempts []*models.AssessmentAttempt
	var total int64

	query := db.WithContext(ctx).
		Model(&models.AssessmentAttempt{}).
		Where("learner_id = ?", learnerID)
	query = a.helpers.ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Preload("Assessment").Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

// GetOverdue returns in_progress attempts on timed assessments whose
// deadline passed before cutoff. The sweep processes them in batches.
func (a *AttemptPostgreSQL) GetOverdue(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]*models.AssessmentAttempt, error) {
	db := a.getDB(tx)
	if limit <= 0 {
		limit = 100
	}

	var attempts []*models.AssessmentAttempt
	err := db.WithContext(ctx).
		Joins("JOIN assessments ON assessments.id = assessment_attempts.assessment_id").
		Where("assessment_attempts.status = ?", models.AttemptInProgress).
		Where("assessments.time_limit_minutes IS NOT NULL").
		Where("assessment_attempts.started_at + assessments.time_limit_minutes * INTERVAL '1 minute' < ?", cutoff).
		Order("assessment_attempts.started_at ASC").
		Limit(limit).
		Preload("Assessment").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get overdue attempts: %w", err)
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) GetStats(ctx context.Context, tx *gorm.DB, assessmentID uint) (*repositories.AttemptStats, error) {
	db := a.getDB(tx)
	var stats repositories.AttemptStats

	cacheKey := fmt.Sprintf("assessment:%d:attempts", assessmentID)
	err := a.cacheManager.Stats.GetOrLoad(ctx, cacheKey, &stats, func() (interface{}, error) {
		return a.computeStats(ctx, db, assessmentID)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (a *AttemptPostgreSQL) computeStats(ctx context.Context, db *gorm.DB, assessmentID uint) (*repositories.AttemptStats, error) {
	stats := &repositories.AttemptStats{
		StatusBreakdown: make(map[models.AttemptStatus]int),
	}

	type statusRow struct {
		Status models.AttemptStatus
		Count  int
	}
	var rows []statusRow
	err := db.WithContext(ctx).
		Model(&models.AssessmentAttempt{}).
		Select("status, COUNT(*) as count").
		Where("assessment_id = ?", assessmentID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt status breakdown: %w", err)
	}

	finished := 0
	for _, row := range rows {
		stats.StatusBreakdown[row.Status] = row.Count
		stats.TotalAttempts += row.Count
		if row.Status != models.AttemptInProgress {
			finished += row.Count
		}
	}

	type gradedRow struct {
		AverageScore float64
		Passed       int
		Graded       int
	}
	var graded gradedRow
	err = db.WithContext(ctx).
		Model(&models.AssessmentAttempt{}).
		Select("COALESCE(AVG(percentage), 0) as average_score, COUNT(*) FILTER (WHERE passed) as passed, COUNT(*) as graded").
		Where("assessment_id = ? AND status = ?", assessmentID, models.AttemptGraded).
		Scan(&graded).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt score stats: %w", err)
	}

	stats.AverageScore = graded.AverageScore
	if graded.Graded > 0 {
		stats.PassRate = float64(graded.Passed) / float64(graded.Graded) * 100
	}
	if stats.TotalAttempts > 0 {
		stats.CompletionRate = float64(finished) / float64(stats.TotalAttempts) * 100
	}

	return stats, nil
}

func (a *AttemptPostgreSQL) GetGradedByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.AssessmentAttempt, error) {
	db := a.getDB(tx)
	var attempts []*models.AssessmentAttempt
	err := db.WithContext(ctx).
		Where("assessment_id = ? AND status = ?", assessmentID, models.AttemptGraded).
		Order("learner_id ASC, attempt_number ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get graded attempts: %w", err)
	}
	return attempts, nil
}
