package events

import (
	"context"
	"time"
)

// Topics the service publishes to. Consumers include the notification
// service and the analytics pipeline.
const (
	TopicAttemptStarted   = "assessment.attempt.started"
	TopicAttemptSubmitted = "assessment.attempt.submitted"
	TopicAttemptGraded    = "assessment.attempt.graded"
	TopicAttemptExpired   = "assessment.attempt.expired"
	TopicGradingFailed    = "assessment.grading.failed"
)

// Event is the envelope every published message shares.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// EventPublisher publishes domain events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *Event) error
	Close() error
}

// AttemptEvent is the payload for attempt lifecycle topics.
type AttemptEvent struct {
	AttemptID     uint    `json:"attempt_id"`
	AssessmentID  uint    `json:"assessment_id"`
	LearnerID     string  `json:"learner_id"`
	AttemptNumber int     `json:"attempt_number"`
	Status        string  `json:"status"`
	Score         float64 `json:"score,omitempty"`
	Percentage    float64 `json:"percentage,omitempty"`
	Passed        bool    `json:"passed,omitempty"`
}

// GradingFailedEvent is published when auto-grading fails after a
// submission. The submission itself still succeeds.
type GradingFailedEvent struct {
	AttemptID    uint   `json:"attempt_id"`
	AssessmentID uint   `json:"assessment_id"`
	LearnerID    string `json:"learner_id"`
	Reason       string `json:"reason"`
}
