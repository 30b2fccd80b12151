package models

import (
	"time"

	"gorm.io/gorm"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
)

// IsObjective reports whether answers of this type are machine-gradable
// from stored option correctness.
func (t QuestionType) IsObjective() bool {
	return t == MultipleChoice || t == TrueFalse
}

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

type Question struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	AssessmentID uint            `json:"assessment_id" gorm:"not null;index"`
	Title        string          `json:"title" gorm:"type:text;not null" validate:"required"`
	Description  *string         `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	Type         QuestionType    `json:"type" gorm:"not null;index" validate:"required,oneof=multiple_choice true_false short_answer essay"`
	Difficulty   DifficultyLevel `json:"difficulty" gorm:"default:medium;index" validate:"omitempty,oneof=easy medium hard"`
	Marks        int             `json:"marks" gorm:"not null;default:1" validate:"min=1,max=100"`
	OrderIndex   int             `json:"order_index" gorm:"not null;default:0"`

	// Inactive questions stay in the bank but are excluded from attempts.
	IsActive bool `json:"is_active" gorm:"not null;default:true;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Assessment Assessment     `json:"-" gorm:"foreignKey:AssessmentID"`
	Options    []AnswerOption `json:"options" gorm:"foreignKey:QuestionID"`
}

type AnswerOption struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"type:text;not null" validate:"required"`
	IsCorrect  bool   `json:"is_correct" gorm:"not null;default:false"`
	OrderIndex int    `json:"order_index" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

func (AnswerOption) TableName() string {
	return "answer_options"
}
