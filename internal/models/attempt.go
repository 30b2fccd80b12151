package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptGraded     AttemptStatus = "graded"
	AttemptExpired    AttemptStatus = "expired"
)

type ViolationKind string

const (
	ViolationTabSwitch  ViolationKind = "tab_switch"
	ViolationFullscreen ViolationKind = "fullscreen_exit"
	ViolationCopyPaste  ViolationKind = "copy_paste"
)

// ProctoringViolation is one entry of the attempt's violations log,
// stored as a JSONB array on the attempt row.
type ProctoringViolation struct {
	Kind       ViolationKind `json:"kind"`
	OccurredAt time.Time     `json:"occurred_at"`
	Detail     string        `json:"detail,omitempty"`
}

type AssessmentAttempt struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	AssessmentID uint   `json:"assessment_id" gorm:"not null;index;uniqueIndex:idx_assessment_learner_attempt"`
	LearnerID    string `json:"learner_id" gorm:"not null;index;size:255;uniqueIndex:idx_assessment_learner_attempt"`
	EnrollmentID uint   `json:"enrollment_id" gorm:"not null;index"`

	// AttemptNumber is 1-based and strictly increasing per
	// (assessment, learner). The unique index is the only safeguard
	// against two sessions racing to create the same attempt.
	AttemptNumber int           `json:"attempt_number" gorm:"not null;uniqueIndex:idx_assessment_learner_attempt"`
	Status        AttemptStatus `json:"status" gorm:"default:in_progress;index"`

	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
	GradedAt    *time.Time `json:"graded_at"`

	// MaxScore snapshots assessment.total_marks at start time.
	MaxScore   int     `json:"max_score" gorm:"not null;default:0"`
	Score      float64 `json:"score"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`

	GradedBy *string `json:"graded_by" gorm:"size:255"`

	// Proctoring
	TabSwitches int            `json:"tab_switches" gorm:"not null;default:0"`
	Violations  datatypes.JSON `json:"violations" gorm:"type:jsonb"` // []ProctoringViolation

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Assessment Assessment      `json:"assessment" gorm:"foreignKey:AssessmentID"`
	Learner    User            `json:"learner" gorm:"foreignKey:LearnerID"`
	Enrollment Enrollment      `json:"enrollment" gorm:"foreignKey:EnrollmentID"`
	Answers    []AttemptAnswer `json:"answers" gorm:"foreignKey:AttemptID"`
}

// Deadline returns the instant the attempt's time limit elapses, or nil
// for untimed assessments. The Assessment relation must be loaded.
func (a *AssessmentAttempt) Deadline() *time.Time {
	if a.Assessment.TimeLimitMinutes == nil {
		return nil
	}
	d := a.StartedAt.Add(time.Duration(*a.Assessment.TimeLimitMinutes) * time.Minute)
	return &d
}

type AttemptAnswer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;index;uniqueIndex:idx_attempt_question"`
	QuestionID uint `json:"question_id" gorm:"not null;index;uniqueIndex:idx_attempt_question"`

	// Exactly one of the two is populated: SelectedOptionID for choice
	// types, AnswerText for free-text types.
	SelectedOptionID *uint   `json:"selected_option_id"`
	AnswerText       *string `json:"answer_text" gorm:"type:text"`

	// Grading. IsCorrect is computed for objective answers only;
	// MarksAwarded is computed for objective and assigned for subjective.
	IsCorrect    *bool    `json:"is_correct"`
	MarksAwarded *float64 `json:"marks_awarded"`
	Feedback     *string  `json:"feedback" gorm:"type:text"`
	GradedBy     *string  `json:"graded_by" gorm:"size:255"`

	AnsweredAt time.Time `json:"answered_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relations
	Attempt        AssessmentAttempt `json:"-" gorm:"foreignKey:AttemptID"`
	Question       Question          `json:"question" gorm:"foreignKey:QuestionID"`
	SelectedOption *AnswerOption     `json:"selected_option" gorm:"foreignKey:SelectedOptionID"`
}

func (AssessmentAttempt) TableName() string {
	return "assessment_attempts"
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
