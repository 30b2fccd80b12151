package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/brightclass/assessment-service/internal/models"
	"github.com/brightclass/assessment-service/internal/repositories"
	"github.com/brightclass/assessment-service/internal/validator"
)

type enrollmentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewEnrollmentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) EnrollmentService {
	return &enrollmentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, req *EnrollRequest, learnerID string) (*EnrollmentResponse, error) {
	s.logger.Info("Enrolling learner",
		"course_id", req.CourseID,
		"learner_id", learnerID)

	if learnerID == "" {
		return nil, ErrUnauthenticated
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	course, err := s.repo.Course().GetByID(ctx, s.db, req.CourseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course.Status != models.CoursePublished {
		return nil, NewBusinessRuleError("course_not_published",
			"only published courses accept enrollments",
			map[string]interface{}{"course_id": course.ID, "status": course.Status})
	}

	// Re-enrolling after a drop reactivates the existing row; the unique
	// index on (course, learner) forbids a second one
	existing, err := s.repo.Enrollment().GetByCourseAndLearner(ctx, s.db, req.CourseID, learnerID)
	if err == nil {
		if existing.Status == models.EnrollmentActive {
			return &EnrollmentResponse{Enrollment: existing}, nil
		}
		existing.Status = models.EnrollmentActive
		if err := s.repo.Enrollment().Update(ctx, s.db, existing); err != nil {
			return nil, fmt.Errorf("failed to reactivate enrollment: %w", err)
		}
		return &EnrollmentResponse{Enrollment: existing}, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}

	enrollment := &models.Enrollment{
		CourseID:   req.CourseID,
		LearnerID:  learnerID,
		Status:     models.EnrollmentActive,
		EnrolledAt: time.Now(),
	}
	if err := s.repo.Enrollment().Create(ctx, s.db, enrollment); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			if existing, gerr := s.repo.Enrollment().GetByCourseAndLearner(ctx, s.db, req.CourseID, learnerID); gerr == nil {
				return &EnrollmentResponse{Enrollment: existing}, nil
			}
		}
		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}

	return &EnrollmentResponse{Enrollment: enrollment}, nil
}

func (s *enrollmentService) Drop(ctx context.Context, courseID uint, learnerID string) error {
	if learnerID == "" {
		return ErrUnauthenticated
	}

	enrollment, err := s.repo.Enrollment().GetByCourseAndLearner(ctx, s.db, courseID, learnerID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrEnrollmentNotFound
		}
		return fmt.Errorf("failed to get enrollment: %w", err)
	}
	if enrollment.Status != models.EnrollmentActive {
		return ErrEnrollmentNotFound
	}

	enrollment.Status = models.EnrollmentDropped
	return s.repo.Enrollment().Update(ctx, s.db, enrollment)
}

func (s *enrollmentService) List(ctx context.Context, filters repositories.EnrollmentFilters, userID string) ([]*EnrollmentResponse, int64, error) {
	if userID == "" {
		return nil, 0, ErrUnauthenticated
	}

	// Learners only see their own enrollments
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil || user.Role == models.RoleLearner {
		filters.LearnerID = &userID
	}

	enrollments, total, err := s.repo.Enrollment().List(ctx, s.db, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list enrollments: %w", err)
	}

	responses := make([]*EnrollmentResponse, len(enrollments))
	for i, e := range enrollments {
		responses[i] = &EnrollmentResponse{Enrollment: e}
	}
	return responses, total, nil
}
