package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/brightclass/assessment-service/internal/events"
	"github.com/brightclass/assessment-service/internal/models"
	"github.com/brightclass/assessment-service/internal/repositories"
)

func (s *attemptService) pastDeadline(attempt *models.AssessmentAttempt, now time.Time) bool {
	deadline := attempt.Deadline()
	if deadline == nil {
		return false
	}
	return now.After(deadline.Add(submissionGrace))
}

// expireAttempt closes an overdue attempt and grades whatever answers
// it holds. Used by the submission path and the background sweep.
func (s *attemptService) expireAttempt(ctx context.Context, attempt *models.AssessmentAttempt) error {
	now := time.Now()
	attempt.Status = models.AttemptExpired
	attempt.SubmittedAt = &now

	if err := s.repo.Attempt().Update(ctx, s.db, attempt); err != nil {
		return fmt.Errorf("failed to expire attempt: %w", err)
	}

	s.publishAttemptEvent(ctx, events.TopicAttemptExpired, attempt)
	s.autoGradeSwallowed(ctx, attempt)
	return nil
}

// validateAnswerTarget checks the question belongs to the attempt's
// assessment, is active, and that the payload shape matches its type.
func (s *attemptService) validateAnswerTarget(ctx context.Context, attempt *models.AssessmentAttempt, req *SubmitAnswerRequest) (*models.Question, error) {
	question, err := s.repo.Question().GetByIDWithOptions(ctx, s.db, req.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotInAttempt
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if question.AssessmentID != attempt.AssessmentID || !question.IsActive {
		return nil, ErrQuestionNotInAttempt
	}

	if question.Type.IsObjective() {
		if req.SelectedOptionID == nil {
			return nil, NewValidationError("selected_option_id", "choice questions require a selected option", nil)
		}
		if req.AnswerText != nil {
			return nil, NewValidationError("answer_text", "choice questions cannot carry answer text", *req.AnswerText)
		}
		found := false
		for _, opt := range question.Options {
			if opt.ID == *req.SelectedOptionID {
				found = true
				break
			}
		}
		if !found {
			return nil, NewValidationError("selected_option_id", "option does not belong to the question", *req.SelectedOptionID)
		}
	} else {
		if req.AnswerText == nil || *req.AnswerText == "" {
			return nil, NewValidationError("answer_text", "free-text questions require answer text", nil)
		}
		if req.SelectedOptionID != nil {
			return nil, NewValidationError("selected_option_id", "free-text questions cannot carry a selected option", *req.SelectedOptionID)
		}
	}

	return question, nil
}

// saveAnswer upserts the answer row for (attempt, question).
func (s *attemptService) saveAnswer(ctx context.Context, r repositories.Repository, attemptID uint, question *models.Question, req *SubmitAnswerRequest) error {
	now := time.Now()

	existing, err := r.Answer().GetByAttemptAndQuestion(ctx, nil, attemptID, question.ID)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to get answer: %w", err)
		}
		answer := &models.AttemptAnswer{
			AttemptID:        attemptID,
			QuestionID:       question.ID,
			SelectedOptionID: req.SelectedOptionID,
			AnswerText:       req.AnswerText,
			AnsweredAt:       now,
		}
		if err := r.Answer().Create(ctx, nil, answer); err != nil {
			return fmt.Errorf("failed to save answer: %w", err)
		}
		return nil
	}

	existing.SelectedOptionID = req.SelectedOptionID
	existing.AnswerText = req.AnswerText
	existing.AnsweredAt = now
	// A replaced answer has no grade yet
	existing.IsCorrect = nil
	existing.MarksAwarded = nil
	existing.Feedback = nil
	existing.GradedBy = nil

	if err := r.Answer().Update(ctx, nil, existing); err != nil {
		return fmt.Errorf("failed to update answer: %w", err)
	}
	return nil
}

func (s *attemptService) appendViolation(attempt *models.AssessmentAttempt, req *RecordViolationRequest) error {
	var violations []models.ProctoringViolation
	if len(attempt.Violations) > 0 {
		if err := json.Unmarshal(attempt.Violations, &violations); err != nil {
			return fmt.Errorf("failed to decode violation log: %w", err)
		}
	}

	violations = append(violations, models.ProctoringViolation{
		Kind:       req.Kind,
		OccurredAt: time.Now(),
		Detail:     req.Detail,
	})

	encoded, err := json.Marshal(violations)
	if err != nil {
		return fmt.Errorf("failed to encode violation log: %w", err)
	}
	attempt.Violations = datatypes.JSON(encoded)
	return nil
}

// autoGradeSwallowed runs grading after a submission. The submission
// already succeeded; a grading failure is logged and published, never
// returned to the learner.
func (s *attemptService) autoGradeSwallowed(ctx context.Context, attempt *models.AssessmentAttempt) {
	if _, err := s.grading.AutoGradeAttempt(ctx, attempt.ID); err != nil {
		s.logger.Error("Failed to auto-grade attempt",
			"attempt_id", attempt.ID,
			"assessment_id", attempt.AssessmentID,
			"error", err)

		event := events.NewEvent(events.TopicGradingFailed, &events.GradingFailedEvent{
			AttemptID:    attempt.ID,
			AssessmentID: attempt.AssessmentID,
			LearnerID:    attempt.LearnerID,
			Reason:       err.Error(),
		})
		if perr := s.publisher.Publish(ctx, events.TopicGradingFailed, event); perr != nil {
			s.logger.Error("Failed to publish grading failure event",
				"attempt_id", attempt.ID,
				"error", perr)
		}
	}
}

func (s *attemptService) publishAttemptEvent(ctx context.Context, topic string, attempt *models.AssessmentAttempt) {
	event := events.NewEvent(topic, &events.AttemptEvent{
		AttemptID:     attempt.ID,
		AssessmentID:  attempt.AssessmentID,
		LearnerID:     attempt.LearnerID,
		AttemptNumber: attempt.AttemptNumber,
		Status:        string(attempt.Status),
		Score:         attempt.Score,
		Percentage:    attempt.Percentage,
		Passed:        attempt.Passed,
	})
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("Failed to publish attempt event",
			"topic", topic,
			"attempt_id", attempt.ID,
			"error", err)
	}
}

func (s *attemptService) buildResponse(attempt *models.AssessmentAttempt) *AttemptResponse {
	resp := &AttemptResponse{
		AssessmentAttempt: attempt,
		CanSubmit:         attempt.Status == models.AttemptInProgress,
		PendingGrading:    attempt.SubmittedAt != nil && attempt.GradedAt == nil,
	}

	if attempt.Status == models.AttemptInProgress {
		if deadline := attempt.Deadline(); deadline != nil {
			remaining := int(time.Until(*deadline).Seconds())
			if remaining < 0 {
				remaining = 0
			}
			resp.RemainingSeconds = &remaining
		}
	}
	return resp
}

func (s *attemptService) refreshResponse(ctx context.Context, attemptID uint) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, s.db, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload attempt: %w", err)
	}
	return s.buildResponse(attempt), nil
}

func (s *attemptService) buildListResponse(attempts []*models.AssessmentAttempt, total int64, filters repositories.AttemptFilters) *AttemptListResponse {
	responses := make([]*AttemptResponse, len(attempts))
	for i, a := range attempts {
		responses[i] = s.buildResponse(a)
	}

	size := filters.Limit
	if size <= 0 {
		size = 20
	}
	return &AttemptListResponse{
		Attempts: responses,
		Total:    total,
		Page:     filters.Offset/size + 1,
		Size:     size,
	}
}

// checkAccess allows the attempt owner plus instructors and admins.
func (s *attemptService) checkAccess(ctx context.Context, attempt *models.AssessmentAttempt, userID, action string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	if attempt.LearnerID == userID {
		return nil
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err == nil && (user.Role == models.RoleAdmin || user.Role == models.RoleInstructor) {
		return nil
	}
	return NewPermissionError(userID, attempt.ID, "attempt", action, "not the attempt owner")
}

// checkStaff allows the assessment creator plus admins.
func (s *attemptService) checkStaff(ctx context.Context, assessment *models.Assessment, userID, action string) error {
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
	return NewPermissionError(userID, assessment.ID, "assessment", action, "not the creator")
}

// resultsVisible applies the assessment's show_results policy to the
// attempt owner's view.
func (s *attemptService) resultsVisible(attempt *models.AssessmentAttempt) bool {
	switch attempt.Assessment.ShowResults {
	case models.ShowResultsImmediately:
		return true
	case models.ShowResultsAfterSubmission:
		return attempt.SubmittedAt != nil
	case models.ShowResultsAfterDueDate:
		due := attempt.Assessment.DueDate
		return due == nil || time.Now().After(*due)
	case models.ShowResultsNever:
		return false
	}
	return attempt.SubmittedAt != nil
}

func (s *attemptService) redactGrading(attempt *models.AssessmentAttempt) {
	attempt.Score = 0
	attempt.Percentage = 0
	attempt.Passed = false
	for i := range attempt.Answers {
		attempt.Answers[i].IsCorrect = nil
		attempt.Answers[i].MarksAwarded = nil
		attempt.Answers[i].Feedback = nil
		for j := range attempt.Answers[i].Question.Options {
			attempt.Answers[i].Question.Options[j].IsCorrect = false
		}
	}
}
