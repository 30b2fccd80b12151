package services

import (
	"errors"
	"fmt"

	"github.com/brightclass/assessment-service/internal/validator"
)

// Sentinel errors the handler layer maps to HTTP statuses.
var (
	// Identity
	ErrUnauthenticated = errors.New("caller identity is missing")
	ErrUserNotFound    = errors.New("user not found")

	// Assessment
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrAssessmentExpired  = errors.New("assessment due date has passed")
	ErrNoActiveQuestions  = errors.New("assessment has no active questions")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrOptionNotFound     = errors.New("answer option not found")

	// Course and enrollment
	ErrCourseNotFound     = errors.New("course not found")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrEnrollmentNotFound = errors.New("learner is not enrolled in the course")

	// Attempt lifecycle
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrAnswerNotFound          = errors.New("answer not found")
	ErrMaxAttemptsReached      = errors.New("maximum attempts reached")
	ErrAttemptConflict         = errors.New("a concurrent attempt creation won; retry")
	ErrAttemptNotActive        = errors.New("attempt is not in progress")
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")
	ErrAttemptExpired          = errors.New("attempt time limit has elapsed")
	ErrQuestionNotInAttempt    = errors.New("question does not belong to the attempt")

	// Grading
	ErrAttemptNotSubmitted = errors.New("attempt has not been submitted")
	ErrNotSubjective       = errors.New("answer is not manually gradable")
)

// ValidationErrors is re-exported so handlers can errors.As against the
// services package alone.
type ValidationErrors = validator.ValidationErrors

// NewValidationError builds a single-field validation failure.
func NewValidationError(field, message string, value interface{}) ValidationErrors {
	return ValidationErrors{{
		Field:   field,
		Message: message,
		Value:   value,
		Rule:    "business_logic",
	}}
}

// PermissionError carries who tried what on which resource.
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s",
		e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// BusinessRuleError marks a request that is well formed but violates a
// domain rule.
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}
