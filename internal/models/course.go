package models

import (
	"time"

	"gorm.io/gorm"
)

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseArchived  CourseStatus = "archived"
)

type Course struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Title       string       `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string      `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	Status      CourseStatus `json:"status" gorm:"default:draft;index"`

	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Weeks       []CourseWeek `json:"weeks" gorm:"foreignKey:CourseID"`
	Enrollments []Enrollment `json:"enrollments" gorm:"foreignKey:CourseID"`
}

type CourseWeek struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	CourseID uint   `json:"course_id" gorm:"not null;index"`
	Title    string `json:"title" gorm:"not null;size:200"`
	Position int    `json:"position" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Lessons []Lesson `json:"lessons" gorm:"foreignKey:WeekID"`
}

type LessonKind string

const (
	LessonVideo      LessonKind = "video"
	LessonDocument   LessonKind = "document"
	LessonAssessment LessonKind = "assessment"
)

type Lesson struct {
	ID       uint       `json:"id" gorm:"primaryKey"`
	WeekID   uint       `json:"week_id" gorm:"not null;index"`
	Title    string     `json:"title" gorm:"not null;size:200"`
	Kind     LessonKind `json:"kind" gorm:"not null;default:video;index"`
	Position int        `json:"position" gorm:"not null;default:0"`

	// Media assets live in object storage; only the key is persisted.
	MediaKey *string `json:"media_key" gorm:"size:500"`
	MediaURL *string `json:"media_url" gorm:"size:500"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Assessments []Assessment `json:"assessments" gorm:"foreignKey:LessonID"`
}

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
)

type Enrollment struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	CourseID  uint             `json:"course_id" gorm:"not null;index;uniqueIndex:idx_course_learner"`
	LearnerID string           `json:"learner_id" gorm:"not null;index;size:255;uniqueIndex:idx_course_learner"`
	Status    EnrollmentStatus `json:"status" gorm:"default:active;index"`

	EnrolledAt time.Time `json:"enrolled_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relations
	Course  Course `json:"course" gorm:"foreignKey:CourseID"`
	Learner User   `json:"learner" gorm:"foreignKey:LearnerID"`
}

func (Course) TableName() string {
	return "courses"
}

func (CourseWeek) TableName() string {
	return "course_weeks"
}

func (Lesson) TableName() string {
	return "lessons"
}

func (Enrollment) TableName() string {
	return "enrollments"
}
