package services

import (
	"context"
	"time"

	"github.com/brightclass/assessment-service/internal/models"
	"github.com/brightclass/assessment-service/internal/repositories"
)

// ===== ASSESSMENT DTOs =====

type AnswerOptionRequest struct {
	Text      string `json:"text" validate:"required,max=1000"`
	IsCorrect bool   `json:"is_correct"`
}

type CreateQuestionRequest struct {
	Title       string                 `json:"title" validate:"required,max=2000"`
	Description *string                `json:"description" validate:"omitempty,max=2000"`
	Type        models.QuestionType    `json:"type" validate:"required,question_type"`
	Difficulty  models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Marks       int                    `json:"marks" validate:"required,min=1,max=100"`
	OrderIndex  int                    `json:"order_index" validate:"min=0"`
	Options     []AnswerOptionRequest  `json:"options" validate:"omitempty,dive"`
}

type CreateAssessmentRequest struct {
	LessonID         uint                     `json:"lesson_id" validate:"required"`
	Title            string                   `json:"title" validate:"required,min=1,max=200"`
	Description      *string                  `json:"description" validate:"omitempty,max=2000"`
	Type             models.AssessmentType    `json:"type" validate:"omitempty,oneof=quiz exam practice"`
	TimeLimitMinutes *int                     `json:"time_limit_minutes" validate:"omitempty,min=1,max=600"`
	MaxAttempts      *int                     `json:"max_attempts" validate:"omitempty,min=1,max=50"`
	PassingScore     *float64                 `json:"passing_score" validate:"omitempty,min=0,max=100"`
	ShuffleQuestions bool                     `json:"shuffle_questions"`
	ShuffleOptions   bool                     `json:"shuffle_options"`
	ShowResults      models.ShowResultsPolicy `json:"show_results" validate:"omitempty,oneof=immediately after_submission after_due_date never"`
	DueDate          *time.Time               `json:"due_date" validate:"omitempty,future_date"`
	Questions        []CreateQuestionRequest  `json:"questions" validate:"omitempty,dive"`
}

type UpdateAssessmentRequest struct {
	Title            *string                   `json:"title" validate:"omitempty,min=1,max=200"`
	Description      *string                   `json:"description" validate:"omitempty,max=2000"`
	TimeLimitMinutes *int                      `json:"time_limit_minutes" validate:"omitempty,min=1,max=600"`
	MaxAttempts      *int                      `json:"max_attempts" validate:"omitempty,min=1,max=50"`
	PassingScore     *float64                  `json:"passing_score" validate:"omitempty,min=0,max=100"`
	ShuffleQuestions *bool                     `json:"shuffle_questions"`
	ShuffleOptions   *bool                     `json:"shuffle_options"`
	ShowResults      *models.ShowResultsPolicy `json:"show_results" validate:"omitempty,oneof=immediately after_submission after_due_date never"`
	DueDate          *time.Time                `json:"due_date" validate:"omitempty,future_date"`
}

// OptionView is an answer option as shown to a learner: correctness is
// never included.
type OptionView struct {
	ID         uint   `json:"id"`
	Text       string `json:"text"`
	OrderIndex int    `json:"order_index"`
}

// QuestionView is a question as delivered to a learner taking an
// assessment.
type QuestionView struct {
	ID          uint                `json:"id"`
	Title       string              `json:"title"`
	Description *string             `json:"description,omitempty"`
	Type        models.QuestionType `json:"type"`
	Marks       int                 `json:"marks"`
	OrderIndex  int                 `json:"order_index"`
	Options     []OptionView        `json:"options,omitempty"`
}

// AssessmentView is the learner-facing assessment payload. Question and
// option order reflect shuffle settings and differ per call.
type AssessmentView struct {
	ID               uint                  `json:"id"`
	LessonID         uint                  `json:"lesson_id"`
	Title            string                `json:"title"`
	Description      *string               `json:"description,omitempty"`
	Type             models.AssessmentType `json:"type"`
	TimeLimitMinutes *int                  `json:"time_limit_minutes,omitempty"`
	MaxAttempts      *int                  `json:"max_attempts,omitempty"`
	PassingScore     float64               `json:"passing_score"`
	TotalMarks       int                   `json:"total_marks"`
	DueDate          *time.Time            `json:"due_date,omitempty"`
	Questions        []QuestionView        `json:"questions"`
	AttemptsUsed     int                   `json:"attempts_used"`
	CanStart         bool                  `json:"can_start"`
}

type AssessmentResponse struct {
	*models.Assessment
	QuestionCount int `json:"question_count"`
}

type AssessmentListResponse struct {
	Assessments []*AssessmentResponse `json:"assessments"`
	Total       int64                 `json:"total"`
	Page        int                   `json:"page"`
	Size        int                   `json:"size"`
}

// ===== ATTEMPT DTOs =====

type StartAttemptRequest struct {
	AssessmentID uint `json:"assessment_id" validate:"required"`
}

// SubmitAnswerRequest carries exactly one of SelectedOptionID or
// AnswerText depending on the question type.
type SubmitAnswerRequest struct {
	QuestionID       uint    `json:"question_id" validate:"required"`
	SelectedOptionID *uint   `json:"selected_option_id"`
	AnswerText       *string `json:"answer_text" validate:"omitempty,max=20000"`
}

type SubmitAttemptRequest struct {
	Answers []SubmitAnswerRequest `json:"answers" validate:"omitempty,dive"`
}

type RecordViolationRequest struct {
	Kind   models.ViolationKind `json:"kind" validate:"required,violation_kind"`
	Detail string               `json:"detail" validate:"omitempty,max=500"`
}

type AttemptResponse struct {
	*models.AssessmentAttempt
	RemainingSeconds *int `json:"remaining_seconds,omitempty"`
	CanSubmit        bool `json:"can_submit"`
	PendingGrading   bool `json:"pending_grading"`
}

type AttemptListResponse struct {
	Attempts []*AttemptResponse `json:"attempts"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	Size     int                `json:"size"`
}

// ===== GRADING DTOs =====

type GradeAnswerRequest struct {
	MarksAwarded float64 `json:"marks_awarded" validate:"min=0"`
	Feedback     *string `json:"feedback" validate:"omitempty,max=2000"`
}

type GradingResult struct {
	AnswerID     uint      `json:"answer_id"`
	QuestionID   uint      `json:"question_id"`
	MarksAwarded float64   `json:"marks_awarded"`
	MaxMarks     float64   `json:"max_marks"`
	IsCorrect    *bool     `json:"is_correct,omitempty"`
	Feedback     *string   `json:"feedback,omitempty"`
	GradedAt     time.Time `json:"graded_at"`
	GradedBy     *string   `json:"graded_by,omitempty"`
}

type AttemptGradingResult struct {
	AttemptID      uint            `json:"attempt_id"`
	Score          float64         `json:"score"`
	MaxScore       float64         `json:"max_score"`
	Percentage     float64         `json:"percentage"`
	Passed         bool            `json:"passed"`
	PendingGrading bool            `json:"pending_grading"`
	Answers        []GradingResult `json:"answers"`
	GradedAt       time.Time       `json:"graded_at"`
}

// ===== ENROLLMENT DTOs =====

type EnrollRequest struct {
	CourseID uint `json:"course_id" validate:"required"`
}

type EnrollmentResponse struct {
	*models.Enrollment
}

// ===== SERVICE INTERFACES =====

// AssessmentService covers authoring and learner-facing delivery.
type AssessmentService interface {
	// Authoring
	Create(ctx context.Context, req *CreateAssessmentRequest, creatorID string) (*AssessmentResponse, error)
	Update(ctx context.Context, id uint, req *UpdateAssessmentRequest, userID string) (*AssessmentResponse, error)
	Delete(ctx context.Context, id uint, userID string) error
	AddQuestion(ctx context.Context, assessmentID uint, req *CreateQuestionRequest, userID string) (*models.Question, error)
	RemoveQuestion(ctx context.Context, assessmentID, questionID uint, userID string) error
	SetQuestionActive(ctx context.Context, assessmentID, questionID uint, active bool, userID string) error

	// Reads
	GetByID(ctx context.Context, id uint, userID string) (*AssessmentResponse, error)
	List(ctx context.Context, filters repositories.AssessmentFilters, userID string) (*AssessmentListResponse, error)

	// Learner delivery. The view omits correctness flags and applies
	// per-call shuffling.
	GetForLearner(ctx context.Context, id uint, learnerID string) (*AssessmentView, error)

	GetStats(ctx context.Context, id uint, userID string) (*repositories.AttemptStats, error)
}

// AttemptService owns the attempt lifecycle from start to submission.
type AttemptService interface {
	Start(ctx context.Context, req *StartAttemptRequest, learnerID string) (*AttemptResponse, error)
	GetCurrent(ctx context.Context, assessmentID uint, learnerID string) (*AttemptResponse, error)
	SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, learnerID string) error
	Submit(ctx context.Context, attemptID uint, req *SubmitAttemptRequest, learnerID string) (*AttemptResponse, error)
	RecordViolation(ctx context.Context, attemptID uint, req *RecordViolationRequest, learnerID string) error

	GetByID(ctx context.Context, id uint, userID string) (*AttemptResponse, error)
	GetByIDWithDetails(ctx context.Context, id uint, userID string) (*AttemptResponse, error)
	ListByAssessment(ctx context.Context, assessmentID uint, filters repositories.AttemptFilters, userID string) (*AttemptListResponse, error)
	ListByLearner(ctx context.Context, learnerID string, filters repositories.AttemptFilters) (*AttemptListResponse, error)

	GetTimeRemaining(ctx context.Context, attemptID uint, learnerID string) (int, error)

	// ExpireOverdue closes in_progress attempts whose deadline passed,
	// grading whatever answers they hold. Called by the sweep.
	ExpireOverdue(ctx context.Context, batchSize int) (int, error)
}

// GradingService owns automatic and manual grading.
type GradingService interface {
	AutoGradeAttempt(ctx context.Context, attemptID uint) (*AttemptGradingResult, error)
	GradeAnswer(ctx context.Context, answerID uint, req *GradeAnswerRequest, graderID string) (*GradingResult, error)
	RecalculateAttempt(ctx context.Context, attemptID uint, graderID string) (*AttemptGradingResult, error)
	GetGradingOverview(ctx context.Context, assessmentID uint, userID string) (*repositories.GradingStats, error)
}

// EnrollmentService manages course membership.
type EnrollmentService interface {
	Enroll(ctx context.Context, req *EnrollRequest, learnerID string) (*EnrollmentResponse, error)
	Drop(ctx context.Context, courseID uint, learnerID string) error
	List(ctx context.Context, filters repositories.EnrollmentFilters, userID string) ([]*EnrollmentResponse, int64, error)
}

// ExportService produces gradebook exports.
type ExportService interface {
	// ExportGradebook renders graded attempts for an assessment as an
	// xlsx workbook, uploads it, and returns a signed download URL.
	ExportGradebook(ctx context.Context, assessmentID uint, userID string) (string, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Assessment() AssessmentService
	Attempt() AttemptService
	Grading() GradingService
	Enrollment() EnrollmentService
	Export() ExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
