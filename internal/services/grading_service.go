package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/brightclass/assessment-service/internal/events"
	"github.com/brightclass/assessment-service/internal/models"
	"github.com/brightclass/assessment-service/internal/repositories"
	"github.com/brightclass/assessment-service/internal/validator"
)

type gradingService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewGradingService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) GradingService {
	return &gradingService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// AutoGradeAttempt grades every objective answer from option
// correctness as stored at grading time. Free-text answers keep their
// manual marks if already graded, otherwise they stay pending and the
// attempt is not marked graded yet.
func (s *gradingService) AutoGradeAttempt(ctx context.Context, attemptID uint) (*AttemptGradingResult, error) {
	s.logger.Info("Auto-grading attempt", "attempt_id", attemptID)

	result, attempt, err := s.gradeAttempt(ctx, attemptID, nil)
	if err != nil {
		return nil, err
	}

	if !result.PendingGrading {
		s.publishGraded(ctx, attempt)
	}
	return result, nil
}

// GradeAnswer assigns marks to one free-text answer, then recalculates
// the whole attempt so totals and pass state stay derived.
func (s *gradingService) GradeAnswer(ctx context.Context, answerID uint, req *GradeAnswerRequest, graderID string) (*GradingResult, error) {
	s.logger.Info("Grading answer manually",
		"answer_id", answerID,
		"grader_id", graderID)

	if graderID == "" {
		return nil, ErrUnauthenticated
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	answer, err := s.repo.Answer().GetByIDWithDetails(ctx, s.db, answerID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAnswerNotFound
		}
		return nil, fmt.Errorf("failed to get answer: %w", err)
	}

	if answer.Question.Type.IsObjective() {
		return nil, ErrNotSubjective
	}
	if req.MarksAwarded > float64(answer.Question.Marks) {
		return nil, NewValidationError("marks_awarded",
			fmt.Sprintf("must be at most %d", answer.Question.Marks), req.MarksAwarded)
	}

	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, s.db, answer.AttemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.Status == models.AttemptInProgress {
		return nil, ErrAttemptNotSubmitted
	}
	if err := s.checkGrader(ctx, &attempt.Assessment, graderID); err != nil {
		return nil, err
	}

	marks := req.MarksAwarded
	answer.MarksAwarded = &marks
	answer.Feedback = req.Feedback
	answer.GradedBy = &graderID
	if err := s.repo.Answer().Update(ctx, s.db, answer); err != nil {
		return nil, fmt.Errorf("failed to update answer: %w", err)
	}

	if _, err := s.RecalculateAttempt(ctx, attempt.ID, graderID); err != nil {
		return nil, err
	}

	return &GradingResult{
		AnswerID:     answer.ID,
		QuestionID:   answer.QuestionID,
		MarksAwarded: marks,
		MaxMarks:     float64(answer.Question.Marks),
		Feedback:     answer.Feedback,
		GradedAt:     time.Now(),
		GradedBy:     &graderID,
	}, nil
}

// RecalculateAttempt re-derives every grade on the attempt from current
// data: objective answers from option correctness, free-text answers
// from their manual marks. Running it twice yields the same totals.
func (s *gradingService) RecalculateAttempt(ctx context.Context, attemptID uint, graderID string) (*AttemptGradingResult, error) {
	var gradedBy *string
	if graderID != "" {
		gradedBy = &graderID
	}

	result, attempt, err := s.gradeAttempt(ctx, attemptID, gradedBy)
	if err != nil {
		return nil, err
	}

	if !result.PendingGrading {
		s.publishGraded(ctx, attempt)
	}
	return result, nil
}

func (s *gradingService) GetGradingOverview(ctx context.Context, assessmentID uint, userID string) (*repositories.GradingStats, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if err := s.checkGrader(ctx, assessment, userID); err != nil {
		return nil, err
	}

	return s.repo.Answer().GetGradingStats(ctx, s.db, assessmentID)
}

// gradeAttempt is the shared grading core. It grades inside one
// transaction and returns the reloaded attempt for event publishing.
func (s *gradingService) gradeAttempt(ctx context.Context, attemptID uint, gradedBy *string) (*AttemptGradingResult, *models.AssessmentAttempt, error) {
	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, s.db, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrAttemptNotFound
		}
		return nil, nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.Status == models.AttemptInProgress {
		return nil, nil, ErrAttemptNotSubmitted
	}

	var result *AttemptGradingResult
	err = s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		var txErr error
		result, txErr = s.gradeInTx(ctx, r, attempt, gradedBy)
		return txErr
	})
	if err != nil {
		return nil, nil, err
	}

	return result, attempt, nil
}

func (s *gradingService) gradeInTx(ctx context.Context, r repositories.Repository, attempt *models.AssessmentAttempt, gradedBy *string) (*AttemptGradingResult, error) {
	now := time.Now()

	var score float64
	pending := 0
	results := make([]GradingResult, 0, len(attempt.Answers))

	for i := range attempt.Answers {
		answer := &attempt.Answers[i]
		question := &answer.Question

		if question.Type.IsObjective() {
			correct := answer.SelectedOption != nil && answer.SelectedOption.IsCorrect
			marks := 0.0
			if correct {
				marks = float64(question.Marks)
			}
			answer.IsCorrect = &correct
			answer.MarksAwarded = &marks
			// Auto-graded rows carry no grader
			answer.GradedBy = nil
			if err := r.Answer().Update(ctx, nil, answer); err != nil {
				return nil, fmt.Errorf("failed to grade answer %d: %w", answer.ID, err)
			}
		} else if answer.MarksAwarded == nil {
			pending++
			continue
		}

		score += *answer.MarksAwarded
		results = append(results, GradingResult{
			AnswerID:     answer.ID,
			QuestionID:   answer.QuestionID,
			MarksAwarded: *answer.MarksAwarded,
			MaxMarks:     float64(question.Marks),
			IsCorrect:    answer.IsCorrect,
			Feedback:     answer.Feedback,
			GradedAt:     now,
			GradedBy:     answer.GradedBy,
		})
	}

	maxScore := float64(attempt.MaxScore)
	percentage := 0.0
	// An all-retired question set leaves max_score at zero; the
	// percentage stays zero rather than dividing by it
	if maxScore > 0 {
		percentage = score / maxScore * 100
	}
	passed := percentage >= attempt.Assessment.PassingThreshold()

	attempt.Score = score
	attempt.Percentage = percentage
	attempt.Passed = passed
	attempt.GradedBy = gradedBy
	if pending == 0 {
		attempt.GradedAt = &now
		// Expired stays expired for reporting; only submitted attempts
		// move to graded
		if attempt.Status == models.AttemptSubmitted {
			attempt.Status = models.AttemptGraded
		}
	} else {
		attempt.GradedAt = nil
	}

	if err := r.Attempt().Update(ctx, nil, attempt); err != nil {
		return nil, fmt.Errorf("failed to update attempt: %w", err)
	}

	s.logger.Info("Attempt graded",
		"attempt_id", attempt.ID,
		"score", score,
		"percentage", percentage,
		"passed", passed,
		"pending_answers", pending)

	return &AttemptGradingResult{
		AttemptID:      attempt.ID,
		Score:          score,
		MaxScore:       maxScore,
		Percentage:     percentage,
		Passed:         passed,
		PendingGrading: pending > 0,
		Answers:        results,
		GradedAt:       now,
	}, nil
}

func (s *gradingService) publishGraded(ctx context.Context, attempt *models.AssessmentAttempt) {
	event := events.NewEvent(events.TopicAttemptGraded, &events.AttemptEvent{
		AttemptID:     attempt.ID,
		AssessmentID:  attempt.AssessmentID,
		LearnerID:     attempt.LearnerID,
		AttemptNumber: attempt.AttemptNumber,
		Status:        string(attempt.Status),
		Score:         attempt.Score,
		Percentage:    attempt.Percentage,
		Passed:        attempt.Passed,
	})
	if err := s.publisher.Publish(ctx, events.TopicAttemptGraded, event); err != nil {
		s.logger.Warn("Failed to publish graded event",
			"attempt_id", attempt.ID,
			"error", err)
	}
}

// checkGrader allows the assessment creator plus admins.
func (s *gradingService) checkGrader(ctx context.Context, assessment *models.Assessment, userID string) error {
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
	return NewPermissionError(userID, assessment.ID, "assessment", "grade", "not the creator")
}
