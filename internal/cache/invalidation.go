package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeDelete deletes keys and logs instead of propagating failures.
// Write paths never fail because the cache is down.
func SafeDelete(ctx context.Context, helper *Helper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "failed to delete cache keys", "error", err, "keys", keys)
	}
}

// SafeInvalidatePattern invalidates a pattern and logs failures.
func SafeInvalidatePattern(ctx context.Context, helper *Helper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "failed to invalidate cache pattern", "error", err, "pattern", pattern)
	}
}

// InvalidateAssessment drops everything derived from one assessment:
// the row itself, its question set, and its attempt statistics.
func InvalidateAssessment(ctx context.Context, m *Manager, assessmentID uint) {
	SafeDelete(ctx, m.Assessment,
		fmt.Sprintf("id:%d", assessmentID),
		fmt.Sprintf("details:%d", assessmentID))
	SafeDelete(ctx, m.Question, fmt.Sprintf("assessment:%d", assessmentID))
	SafeInvalidatePattern(ctx, m.Stats, fmt.Sprintf("assessment:%d:*", assessmentID))
	SafeInvalidatePattern(ctx, m.Assessment, "list:*")
}

// InvalidateAttempt drops cached attempt rows and the stats they feed.
func InvalidateAttempt(ctx context.Context, m *Manager, attemptID, assessmentID uint) {
	SafeDelete(ctx, m.Attempt, fmt.Sprintf("id:%d", attemptID))
	SafeInvalidatePattern(ctx, m.Stats, fmt.Sprintf("assessment:%d:*", assessmentID))
}
