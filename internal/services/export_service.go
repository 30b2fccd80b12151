package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/brightclass/assessment-service/internal/models"
	"github.com/brightclass/assessment-service/internal/repositories"
	"github.com/brightclass/assessment-service/internal/storage"
)

const (
	exportSheetName = "Results"
	exportURLExpiry = time.Hour
)

type exportService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
	store  storage.ObjectStore
	bucket string
}

func NewExportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, store storage.ObjectStore, bucket string) ExportService {
	return &exportService{
		repo:   repo,
		db:     db,
		logger: logger,
		store:  store,
		bucket: bucket,
	}
}

// ExportGradebook renders the assessment's graded attempts as an xlsx
// workbook, uploads it to object storage and returns a time-limited
// download URL.
func (s *exportService) ExportGradebook(ctx context.Context, assessmentID uint, userID string) (string, error) {
	s.logger.Info("Exporting gradebook",
		"assessment_id", assessmentID,
		"user_id", userID)

	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return "", ErrAssessmentNotFound
		}
		return "", fmt.Errorf("failed to get assessment: %w", err)
	}
	if err := s.checkExporter(ctx, assessment, userID); err != nil {
		return "", err
	}

	attempts, err := s.repo.Attempt().GetGradedByAssessment(ctx, s.db, assessmentID)
	if err != nil {
		return "", fmt.Errorf("failed to get graded attempts: %w", err)
	}

	learnerIDs := make([]string, 0, len(attempts))
	seen := make(map[string]bool, len(attempts))
	for _, a := range attempts {
		if !seen[a.LearnerID] {
			seen[a.LearnerID] = true
			learnerIDs = append(learnerIDs, a.LearnerID)
		}
	}
	learners, err := s.repo.User().GetByIDs(ctx, learnerIDs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve learners: %w", err)
	}

	data, err := s.renderWorkbook(assessment, attempts, learners)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("exports/assessment_%d_%s.xlsx", assessmentID, time.Now().UTC().Format("20060102T150405"))
	if _, err := s.store.Upload(ctx, s.bucket, key, data,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"); err != nil {
		return "", fmt.Errorf("failed to upload gradebook: %w", err)
	}

	url, err := s.store.SignedURL(ctx, s.bucket, key, exportURLExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to sign gradebook url: %w", err)
	}

	s.logger.Info("Gradebook exported",
		"assessment_id", assessmentID,
		"rows", len(attempts),
		"key", key)
	return url, nil
}

func (s *exportService) renderWorkbook(assessment *models.Assessment, attempts []*models.AssessmentAttempt, learners map[string]*models.User) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), exportSheetName)

	headers := []interface{}{
		"Learner", "Email", "Attempt", "Status",
		"Score", "Max Score", "Percentage", "Passed",
		"Started At", "Submitted At", "Tab Switches",
	}
	if err := f.SetSheetRow(exportSheetName, "A1", &headers); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	for i, attempt := range attempts {
		name := attempt.LearnerID
		email := ""
		if learner, ok := learners[attempt.LearnerID]; ok {
			name = learner.FullName
			email = learner.Email
		}

		submittedAt := ""
		if attempt.SubmittedAt != nil {
			submittedAt = attempt.SubmittedAt.Format(time.RFC3339)
		}

		row := []interface{}{
			name, email, attempt.AttemptNumber, string(attempt.Status),
			attempt.Score, attempt.MaxScore, attempt.Percentage, attempt.Passed,
			attempt.StartedAt.Format(time.RFC3339), submittedAt, attempt.TabSwitches,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(exportSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *exportService) checkExporter(ctx context.Context, assessment *models.Assessment, userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	if assessment.CreatedBy == userID {
		return nil
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err == nil && user.Role == models.RoleAdmin {
		return nil
	}
	return NewPermissionError(userID, assessment.ID, "assessment", "export", "not the creator")
}
