package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/brightclass/assessment-service/internal/models"
	"github.com/brightclass/assessment-service/internal/repositories"
	"github.com/brightclass/assessment-service/internal/validator"
	"gorm.io/gorm"
)

type assessmentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAssessmentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) AssessmentService {
	return &assessmentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== AUTHORING =====

func (s *assessmentService) Create(ctx context.Context, req *CreateAssessmentRequest, creatorID string) (*AssessmentResponse, error) {
	s.logger.Info("Creating assessment",
		"lesson_id", req.LessonID,
		"creator_id", creatorID)

	if creatorID == "" {
		return nil, ErrUnauthenticated
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := s.validateQuestionPayloads(req.Questions); err != nil {
		return nil, err
	}

	if _, err := s.repo.Course().GetLesson(ctx, s.db, req.LessonID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrLessonNotFound
		}
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}

	assessmentType := req.Type
	if assessmentType == "" {
		assessmentType = models.AssessmentQuiz
	}
	showResults := req.ShowResults
	if showResults == "" {
		showResults = models.ShowResultsAfterSubmission
	}

	assessment := &models.Assessment{
		LessonID:         req.LessonID,
		Title:            req.Title,
		Description:      req.Description,
		Type:             assessmentType,
		TimeLimitMinutes: req.TimeLimitMinutes,
		MaxAttempts:      req.MaxAttempts,
		PassingScore:     req.PassingScore,
		ShuffleQuestions: req.ShuffleQuestions,
		ShuffleOptions:   req.ShuffleOptions,
		ShowResults:      showResults,
		DueDate:          req.DueDate,
		CreatedBy:        creatorID,
	}

	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		if err := r.Assessment().Create(ctx, nil, assessment); err != nil {
			return fmt.Errorf("failed to create assessment: %w", err)
		}

		for i, qReq := range req.Questions {
			question := s.buildQuestion(assessment.ID, &qReq, i)
			if err := r.Question().Create(ctx, nil, question); err != nil {
				return fmt.Errorf("failed to create question %d: %w", i, err)
			}
		}

		total, err := r.Assessment().RecalculateTotalMarks(ctx, nil, assessment.ID)
		if err != nil {
			return err
		}
		assessment.TotalMarks = total
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Assessment created",
		"assessment_id", assessment.ID,
		"total_marks", assessment.TotalMarks)

	return &AssessmentResponse{Assessment: assessment, QuestionCount: len(req.Questions)}, nil
}

func (s *assessmentService) Update(ctx context.Context, id uint, req *UpdateAssessmentRequest, userID string) (*AssessmentResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	if err := s.checkOwnership(ctx, assessment, userID, "update"); err != nil {
		return nil, err
	}

	if req.Title != nil {
		assessment.Title = *req.Title
	}
	if req.Description != nil {
		assessment.Description = req.Description
	}
	if req.TimeLimitMinutes != nil {
		assessment.TimeLimitMinutes = req.TimeLimitMinutes
	}
	if req.MaxAttempts != nil {
		assessment.MaxAttempts = req.MaxAttempts
	}
	if req.PassingScore != nil {
		assessment.PassingScore = req.PassingScore
	}
	if req.ShuffleQuestions != nil {
		assessment.ShuffleQuestions = *req.ShuffleQuestions
	}
	if req.ShuffleOptions != nil {
		assessment.ShuffleOptions = *req.ShuffleOptions
	}
	if req.ShowResults != nil {
		assessment.ShowResults = *req.ShowResults
	}
	if req.DueDate != nil {
		assessment.DueDate = req.DueDate
	}

	if err := s.repo.Assessment().Update(ctx, s.db, assessment); err != nil {
		return nil, fmt.Errorf("failed to update assessment: %w", err)
	}

	questions, err := s.repo.Question().GetByAssessment(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}

	return &AssessmentResponse{Assessment: assessment, QuestionCount: len(questions)}, nil
}

func (s *assessmentService) Delete(ctx context.Context, id uint, userID string) error {
	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAssessmentNotFound
		}
		return fmt.Errorf("failed to get assessment: %w", err)
	}

	if err := s.checkOwnership(ctx, assessment, userID, "delete"); err != nil {
		return err
	}

	_, total, err := s.repo.Attempt().List(ctx, s.db, id, repositories.AttemptFilters{Limit: 1})
	if err != nil {
		return fmt.Errorf("failed to count attempts: %w", err)
	}
	if total > 0 {
		return NewBusinessRuleError("assessment_has_attempts",
			"cannot delete an assessment with existing attempts",
			map[string]interface{}{"assessment_id": id, "attempts": total})
	}

	return s.repo.Assessment().Delete(ctx, s.db, id)
}

func (s *assessmentService) AddQuestion(ctx context.Context, assessmentID uint, req *CreateQuestionRequest, userID string) (*models.Question, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := s.validateQuestionPayloads([]CreateQuestionRequest{*req}); err != nil {
		return nil, err
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if err := s.checkOwnership(ctx, assessment, userID, "add_question"); err != nil {
		return nil, err
	}

	question := s.buildQuestion(assessmentID, req, req.OrderIndex)
	err = s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		if err := r.Question().Create(ctx, nil, question); err != nil {
			return fmt.Errorf("failed to create question: %w", err)
		}
		_, err := r.Assessment().RecalculateTotalMarks(ctx, nil, assessmentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return question, nil
}

func (s *assessmentService) RemoveQuestion(ctx context.Context, assessmentID, questionID uint, userID string) error {
	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAssessmentNotFound
		}
		return fmt.Errorf("failed to get assessment: %w", err)
	}
	if err := s.checkOwnership(ctx, assessment, userID, "remove_question"); err != nil {
		return err
	}

	question, err := s.repo.Question().GetByID(ctx, s.db, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}
	if question.AssessmentID != assessmentID {
		return NewValidationError("question_id", "question does not belong to this assessment", questionID)
	}

	return s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		if err := r.Question().Delete(ctx, nil, questionID); err != nil {
			return err
		}
		_, err := r.Assessment().RecalculateTotalMarks(ctx, nil, assessmentID)
		return err
	})
}

// SetQuestionActive retires or restores a question without deleting it.
// Historical attempts keep their answer rows either way.
func (s *assessmentService) SetQuestionActive(ctx context.Context, assessmentID, questionID uint, active bool, userID string) error {
	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAssessmentNotFound
		}
		return fmt.Errorf("failed to get assessment: %w", err)
	}
	if err := s.checkOwnership(ctx, assessment, userID, "set_question_active"); err != nil {
		return err
	}

	return s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		if err := r.Question().SetActive(ctx, nil, questionID, active); err != nil {
			return err
		}
		_, err := r.Assessment().RecalculateTotalMarks(ctx, nil, assessmentID)
		return err
	})
}

// ===== READS =====

func (s *assessmentService) GetByID(ctx context.Context, id uint, userID string) (*AssessmentResponse, error) {
	assessment, err := s.repo.Assessment().GetByIDWithQuestions(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	return &AssessmentResponse{
		Assessment:    assessment,
		QuestionCount: len(assessment.Questions),
	}, nil
}

func (s *assessmentService) List(ctx context.Context, filters repositories.AssessmentFilters, userID string) (*AssessmentListResponse, error) {
	assessments, total, err := s.repo.Assessment().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	responses := make([]*AssessmentResponse, len(assessments))
	for i, a := range assessments {
		responses[i] = &AssessmentResponse{Assessment: a}
	}

	size := filters.Limit
	if size <= 0 {
		size = 20
	}
	return &AssessmentListResponse{
		Assessments: responses,
		Total:       total,
		Page:        filters.Offset/size + 1,
		Size:        size,
	}, nil
}

// ===== LEARNER DELIVERY =====

// GetForLearner assembles the assessment as a learner taking it sees
// it: active questions only, correctness stripped, order shuffled per
// call when the assessment asks for it.
func (s *assessmentService) GetForLearner(ctx context.Context, id uint, learnerID string) (*AssessmentView, error) {
	if learnerID == "" {
		return nil, ErrUnauthenticated
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	questions, err := s.repo.Question().GetActiveByAssessment(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	views := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, s.buildQuestionView(q, assessment.ShuffleOptions))
	}

	// Shuffling is per request only; nothing about the order is
	// persisted, so a reload may deal a different order.
	if assessment.ShuffleQuestions {
		rand.Shuffle(len(views), func(i, j int) {
			views[i], views[j] = views[j], views[i]
		})
	}

	used, err := s.repo.Attempt().CountByLearner(ctx, s.db, id, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}

	canStart := true
	if assessment.MaxAttempts != nil && used >= int64(*assessment.MaxAttempts) {
		canStart = false
	}

	return &AssessmentView{
		ID:               assessment.ID,
		LessonID:         assessment.LessonID,
		Title:            assessment.Title,
		Description:      assessment.Description,
		Type:             assessment.Type,
		TimeLimitMinutes: assessment.TimeLimitMinutes,
		MaxAttempts:      assessment.MaxAttempts,
		PassingScore:     assessment.PassingThreshold(),
		TotalMarks:       assessment.TotalMarks,
		DueDate:          assessment.DueDate,
		Questions:        views,
		AttemptsUsed:     int(used),
		CanStart:         canStart,
	}, nil
}

func (s *assessmentService) GetStats(ctx context.Context, id uint, userID string) (*repositories.AttemptStats, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if err := s.checkOwnership(ctx, assessment, userID, "view_stats"); err != nil {
		return nil, err
	}

	return s.repo.Attempt().GetStats(ctx, s.db, id)
}

// ===== HELPERS =====

func (s *assessmentService) buildQuestion(assessmentID uint, req *CreateQuestionRequest, orderIndex int) *models.Question {
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}

	question := &models.Question{
		AssessmentID: assessmentID,
		Title:        req.Title,
		Description:  req.Description,
		Type:         req.Type,
		Difficulty:   difficulty,
		Marks:        req.Marks,
		OrderIndex:   orderIndex,
		IsActive:     true,
	}

	for i, opt := range req.Options {
		question.Options = append(question.Options, models.AnswerOption{
			Text:       opt.Text,
			IsCorrect:  opt.IsCorrect,
			OrderIndex: i,
		})
	}
	return question
}

func (s *assessmentService) buildQuestionView(q *models.Question, shuffleOptions bool) QuestionView {
	view := QuestionView{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		Type:        q.Type,
		Marks:       q.Marks,
		OrderIndex:  q.OrderIndex,
	}

	if q.Type.IsObjective() {
		for _, opt := range q.Options {
			view.Options = append(view.Options, OptionView{
				ID:         opt.ID,
				Text:       opt.Text,
				OrderIndex: opt.OrderIndex,
			})
		}
		if shuffleOptions {
			rand.Shuffle(len(view.Options), func(i, j int) {
				view.Options[i], view.Options[j] = view.Options[j], view.Options[i]
			})
		}
	}
	return view
}

// validateQuestionPayloads enforces the structural rules struct tags
// cannot express: objective questions need options with exactly one
// correct choice, free-text questions carry none.
func (s *assessmentService) validateQuestionPayloads(questions []CreateQuestionRequest) error {
	for i, q := range questions {
		if q.Type.IsObjective() {
			if len(q.Options) < 2 {
				return NewValidationError(
					fmt.Sprintf("questions[%d].options", i),
					"objective questions need at least two options", len(q.Options))
			}
			correct := 0
			for _, opt := range q.Options {
				if opt.IsCorrect {
					correct++
				}
			}
			if correct != 1 {
				return NewValidationError(
					fmt.Sprintf("questions[%d].options", i),
					"objective questions need exactly one correct option", correct)
			}
			if q.Type == models.TrueFalse && len(q.Options) != 2 {
				return NewValidationError(
					fmt.Sprintf("questions[%d].options", i),
					"true/false questions need exactly two options", len(q.Options))
			}
		} else if len(q.Options) > 0 {
			return NewValidationError(
				fmt.Sprintf("questions[%d].options", i),
				"free-text questions cannot carry options", len(q.Options))
		}
	}
	return nil
}

func (s *assessmentService) checkOwnership(ctx context.Context, assessment *models.Assessment, userID, action string) error {
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
