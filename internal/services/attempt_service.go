package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/brightclass/assessment-service/internal/events"
	"github.com/brightclass/assessment-service/internal/models"
	"github.com/brightclass/assessment-service/internal/repositories"
	"github.com/brightclass/assessment-service/internal/validator"
)

// submissionGrace absorbs clock skew and network latency between the
// client-side timer firing and the submission arriving.
const submissionGrace = 30 * time.Second

type attemptService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	grading   GradingService
}

func NewAttemptService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, grading GradingService) AttemptService {
	return &attemptService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		grading:   grading,
	}
}

// Start opens a new attempt, or returns the learner's active one when a
// previous session is still open. The unique index on
// (assessment, learner, attempt_number) is the only safeguard against
// two sessions racing to create the same attempt.
func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, learnerID string) (*AttemptResponse, error) {
	s.logger.Info("Starting assessment attempt",
		"assessment_id", req.AssessmentID,
		"learner_id", learnerID)

	if learnerID == "" {
		return nil, ErrUnauthenticated
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, req.AssessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	if assessment.DueDate != nil && time.Now().After(*assessment.DueDate) {
		return nil, ErrAssessmentExpired
	}

	enrollment, err := s.repo.Enrollment().GetActiveForLesson(ctx, s.db, assessment.LessonID, learnerID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}

	// Idempotent: an open attempt is resumed, not duplicated
	if active, err := s.repo.Attempt().GetActiveAttempt(ctx, s.db, req.AssessmentID, learnerID); err == nil {
		active.Assessment = *assessment
		return s.buildResponse(active), nil
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check active attempt: %w", err)
	}

	if assessment.MaxAttempts != nil {
		used, err := s.repo.Attempt().CountByLearner(ctx, s.db, req.AssessmentID, learnerID)
		if err != nil {
			return nil, fmt.Errorf("failed to count attempts: %w", err)
		}
		if used >= int64(*assessment.MaxAttempts) {
			return nil, ErrMaxAttemptsReached
		}
	}

	questions, err := s.repo.Question().GetActiveByAssessment(ctx, s.db, req.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoActiveQuestions
	}

	maxNumber, err := s.repo.Attempt().MaxAttemptNumber(ctx, s.db, req.AssessmentID, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get max attempt number: %w", err)
	}

	attempt := &models.AssessmentAttempt{
		AssessmentID:  req.AssessmentID,
		LearnerID:     learnerID,
		EnrollmentID:  enrollment.ID,
		AttemptNumber: maxNumber + 1,
		Status:        models.AttemptInProgress,
		StartedAt:     time.Now(),
		MaxScore:      assessment.TotalMarks,
		Violations:    datatypes.JSON([]byte("[]")),
	}

	if err := s.repo.Attempt().Create(ctx, s.db, attempt); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			// A concurrent session created the attempt first; hand it back
			// if it is still open
			if active, aerr := s.repo.Attempt().GetActiveAttempt(ctx, s.db, req.AssessmentID, learnerID); aerr == nil {
				active.Assessment = *assessment
				return s.buildResponse(active), nil
			}
			return nil, ErrAttemptConflict
		}
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}
	attempt.Assessment = *assessment

	s.publishAttemptEvent(ctx, events.TopicAttemptStarted, attempt)

	s.logger.Info("Attempt started",
		"attempt_id", attempt.ID,
		"attempt_number", attempt.AttemptNumber)

	return s.buildResponse(attempt), nil
}

func (s *attemptService) GetCurrent(ctx context.Context, assessmentID uint, learnerID string) (*AttemptResponse, error) {
	if learnerID == "" {
		return nil, ErrUnauthenticated
	}

	attempt, err := s.repo.Attempt().GetActiveAttempt(ctx, s.db, assessmentID, learnerID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get active attempt: %w", err)
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	attempt.Assessment = *assessment

	return s.buildResponse(attempt), nil
}

// SubmitAnswer saves or replaces the learner's answer to one question.
// Re-answering the same question updates the existing row; the unique
// index on (attempt, question) keeps it to one row per question.
func (s *attemptService) SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, learnerID string) error {
	if learnerID == "" {
		return ErrUnauthenticated
	}
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, s.db, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.LearnerID != learnerID {
		return NewPermissionError(learnerID, attemptID, "attempt", "answer", "not the attempt owner")
	}
	if attempt.Status != models.AttemptInProgress {
		return ErrAttemptNotActive
	}
	if s.pastDeadline(attempt, time.Now()) {
		if err := s.expireAttempt(ctx, attempt); err != nil {
			s.logger.Error("Failed to expire overdue attempt",
				"attempt_id", attempt.ID,
				"error", err)
		}
		return ErrAttemptExpired
	}

	question, err := s.validateAnswerTarget(ctx, attempt, req)
	if err != nil {
		return err
	}

	return s.saveAnswer(ctx, s.repo, attempt.ID, question, req)
}

// Submit closes the attempt. Final answers in the request are applied
// first, then auto-grading runs. A grading failure never fails the
// submission; it is logged and reported on the grading failure topic.
func (s *attemptService) Submit(ctx context.Context, attemptID uint, req *SubmitAttemptRequest, learnerID string) (*AttemptResponse, error) {
	s.logger.Info("Submitting attempt",
		"attempt_id", attemptID,
		"learner_id", learnerID)

	if learnerID == "" {
		return nil, ErrUnauthenticated
	}
	if req != nil {
		if err := s.validator.Validate(req); err != nil {
			return nil, err
		}
	}

	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, s.db, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.LearnerID != learnerID {
		return nil, NewPermissionError(learnerID, attemptID, "attempt", "submit", "not the attempt owner")
	}
	switch attempt.Status {
	case models.AttemptInProgress:
	case models.AttemptExpired:
		return nil, ErrAttemptExpired
	default:
		return nil, ErrAttemptAlreadySubmitted
	}

	now := time.Now()
	if s.pastDeadline(attempt, now) {
		// Too late: the attempt expires with whatever answers it already
		// holds. Answers sent with the late submission are discarded.
		if err := s.expireAttempt(ctx, attempt); err != nil {
			return nil, err
		}
		return s.refreshResponse(ctx, attempt.ID)
	}

	if req != nil && len(req.Answers) > 0 {
		err = s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
			for i := range req.Answers {
				answer := &req.Answers[i]
				question, err := s.validateAnswerTarget(ctx, attempt, answer)
				if err != nil {
					return err
				}
				if err := s.saveAnswer(ctx, r, attempt.ID, question, answer); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	attempt.Status = models.AttemptSubmitted
	attempt.SubmittedAt = &now
	if err := s.repo.Attempt().Update(ctx, s.db, attempt); err != nil {
		return nil, fmt.Errorf("failed to update attempt: %w", err)
	}

	s.publishAttemptEvent(ctx, events.TopicAttemptSubmitted, attempt)
	s.autoGradeSwallowed(ctx, attempt)

	return s.refreshResponse(ctx, attempt.ID)
}

func (s *attemptService) RecordViolation(ctx context.Context, attemptID uint, req *RecordViolationRequest, learnerID string) error {
	if learnerID == "" {
		return ErrUnauthenticated
	}
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	attempt, err := s.repo.Attempt().GetByID(ctx, s.db, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.LearnerID != learnerID {
		return NewPermissionError(learnerID, attemptID, "attempt", "record_violation", "not the attempt owner")
	}
	if attempt.Status != models.AttemptInProgress {
		return ErrAttemptNotActive
	}

	if err := s.appendViolation(attempt, req); err != nil {
		return err
	}
	if req.Kind == models.ViolationTabSwitch {
		attempt.TabSwitches++
	}

	s.logger.Warn("Proctoring violation recorded",
		"attempt_id", attemptID,
		"kind", req.Kind,
		"tab_switches", attempt.TabSwitches)

	return s.repo.Attempt().Update(ctx, s.db, attempt)
}

func (s *attemptService) GetByID(ctx context.Context, id uint, userID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if err := s.checkAccess(ctx, attempt, userID, "view"); err != nil {
		return nil, err
	}

	attempt.Answers = nil
	return s.buildResponse(attempt), nil
}

func (s *attemptService) GetByIDWithDetails(ctx context.Context, id uint, userID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if err := s.checkAccess(ctx, attempt, userID, "view"); err != nil {
		return nil, err
	}

	// Correctness and option flags stay hidden from the learner until the
	// results policy allows them
	if attempt.LearnerID == userID && !s.resultsVisible(attempt) {
		s.redactGrading(attempt)
	}

	return s.buildResponse(attempt), nil
}

func (s *attemptService) ListByAssessment(ctx context.Context, assessmentID uint, filters repositories.AttemptFilters, userID string) (*AttemptListResponse, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	if err := s.checkStaff(ctx, assessment, userID, "list_attempts"); err != nil {
		return nil, err
	}

	attempts, total, err := s.repo.Attempt().List(ctx, s.db, assessmentID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return s.buildListResponse(attempts, total, filters), nil
}

func (s *attemptService) ListByLearner(ctx context.Context, learnerID string, filters repositories.AttemptFilters) (*AttemptListResponse, error) {
	if learnerID == "" {
		return nil, ErrUnauthenticated
	}

	attempts, total, err := s.repo.Attempt().GetByLearner(ctx, s.db, learnerID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return s.buildListResponse(attempts, total, filters), nil
}

// GetTimeRemaining returns whole seconds left on the attempt clock,
// floored at zero. Untimed assessments return -1.
func (s *attemptService) GetTimeRemaining(ctx context.Context, attemptID uint, learnerID string) (int, error) {
	if learnerID == "" {
		return 0, ErrUnauthenticated
	}

	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, s.db, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return 0, ErrAttemptNotFound
		}
		return 0, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.LearnerID != learnerID {
		return 0, NewPermissionError(learnerID, attemptID, "attempt", "view_timer", "not the attempt owner")
	}
	if attempt.Status != models.AttemptInProgress {
		return 0, ErrAttemptNotActive
	}

	deadline := attempt.Deadline()
	if deadline == nil {
		return -1, nil
	}
	remaining := int(time.Until(*deadline).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// ExpireOverdue closes in_progress attempts whose deadline passed. Each
// expired attempt is graded with the answers it holds. Called by the
// background sweep; submission-time checks remain the primary guard.
func (s *attemptService) ExpireOverdue(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	cutoff := time.Now().Add(-submissionGrace)
	overdue, err := s.repo.Attempt().GetOverdue(ctx, s.db, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to query overdue attempts: %w", err)
	}

	expired := 0
	for _, attempt := range overdue {
		if err := s.expireAttempt(ctx, attempt); err != nil {
			s.logger.Error("Failed to expire attempt",
				"attempt_id", attempt.ID,
				"error", err)
			continue
		}
		expired++
	}

	if expired > 0 {
		s.logger.Info("Expired overdue attempts", "count", expired)
	}
	return expired, nil
}
