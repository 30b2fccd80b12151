package models

import (
	"time"

	"gorm.io/gorm"
)

type AssessmentType string

const (
	AssessmentQuiz     AssessmentType = "quiz"
	AssessmentExam     AssessmentType = "exam"
	AssessmentPractice AssessmentType = "practice"
)

// ShowResultsPolicy controls when a learner may see their results.
type ShowResultsPolicy string

const (
	ShowResultsImmediately     ShowResultsPolicy = "immediately"
	ShowResultsAfterSubmission ShowResultsPolicy = "after_submission"
	ShowResultsAfterDueDate    ShowResultsPolicy = "after_due_date"
	ShowResultsNever           ShowResultsPolicy = "never"
)

// DefaultPassingScore applies when an assessment carries no explicit
// passing threshold.
const DefaultPassingScore = 70.0

type Assessment struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	LessonID    uint           `json:"lesson_id" gorm:"not null;index"`
	Title       string         `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string        `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	Type        AssessmentType `json:"type" gorm:"not null;default:quiz;index" validate:"omitempty,oneof=quiz exam practice"`

	// TimeLimitMinutes is nil for untimed assessments. MaxAttempts is nil
	// for unlimited attempts.
	TimeLimitMinutes *int `json:"time_limit_minutes" validate:"omitempty,min=1,max=600"`
	MaxAttempts      *int `json:"max_attempts" validate:"omitempty,min=1,max=50"`

	PassingScore *float64 `json:"passing_score" validate:"omitempty,min=0,max=100"` // percentage

	ShuffleQuestions bool `json:"shuffle_questions" gorm:"not null;default:false"`
	ShuffleOptions   bool `json:"shuffle_options" gorm:"not null;default:false"`

	ShowResults        ShowResultsPolicy `json:"show_results" gorm:"default:after_submission" validate:"omitempty,oneof=immediately after_submission after_due_date never"`
	ShowCorrectAnswers bool              `json:"show_correct_answers" gorm:"not null;default:false"`
	DueDate            *time.Time        `json:"due_date"`

	// TotalMarks is the sum of active question marks, maintained by the
	// authoring path whenever the question set changes.
	TotalMarks int `json:"total_marks" gorm:"not null;default:0"`

	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Lesson    Lesson              `json:"lesson" gorm:"foreignKey:LessonID"`
	Questions []Question          `json:"questions" gorm:"foreignKey:AssessmentID"`
	Attempts  []AssessmentAttempt `json:"attempts" gorm:"foreignKey:AssessmentID"`
}

// PassingThreshold returns the configured passing percentage or the
// system default when none is set.
func (a *Assessment) PassingThreshold() float64 {
	if a.PassingScore != nil {
		return *a.PassingScore
	}
	return DefaultPassingScore
}

func (Assessment) TableName() string {
	return "assessments"
}
