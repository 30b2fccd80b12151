package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/brightclass/assessment-service/internal/events"
	"github.com/brightclass/assessment-service/internal/models"
	"github.com/brightclass/assessment-service/internal/repositories"
	"github.com/brightclass/assessment-service/internal/validator"
)

const (
	testInstructor = "instructor-1"
	testLearner    = "learner-1"
	testLearner2   = "learner-2"
	testAdmin      = "admin-1"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	repo        *fakeRepository
	publisher   *events.MockEventPublisher
	validator   *validator.Validator
	grading     GradingService
	attempts    AttemptService
	assessments AssessmentService
	enrollments EnrollmentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := testLogger()
	repo := newFakeRepository()
	publisher := events.NewMockEventPublisher(logger)
	v := validator.New()
	grading := NewGradingService(repo, nil, logger, v, publisher)

	return &testEnv{
		repo:        repo,
		publisher:   publisher,
		validator:   v,
		grading:     grading,
		attempts:    NewAttemptService(repo, nil, logger, v, publisher, grading),
		assessments: NewAssessmentService(repo, nil, logger, v),
		enrollments: NewEnrollmentService(repo, nil, logger, v),
	}
}

func (e *testEnv) seedUser(id string, role models.UserRole) {
	e.repo.s.users[id] = &models.User{
		ID:       id,
		FullName: id,
		Email:    id + "@example.com",
		Role:     role,
	}
}

// seedCourse creates a published course with one lesson owned by the
// creator and returns both IDs.
func (e *testEnv) seedCourse(t *testing.T, creatorID string) (uint, uint) {
	t.Helper()
	ctx := context.Background()

	course := &models.Course{
		Title:     "Distributed Systems",
		Status:    models.CoursePublished,
		CreatedBy: creatorID,
	}
	if err := e.repo.Course().Create(ctx, nil, course); err != nil {
		t.Fatalf("seed course: %v", err)
	}

	lesson := &models.Lesson{
		Title: "Consensus",
		Kind:  models.LessonAssessment,
	}
	lesson.ID = e.repo.s.id()
	e.repo.s.lessons[lesson.ID] = lesson
	e.repo.s.lessonCourse[lesson.ID] = course.ID

	return course.ID, lesson.ID
}

func (e *testEnv) seedEnrollment(t *testing.T, courseID uint, learnerID string) {
	t.Helper()
	err := e.repo.Enrollment().Create(context.Background(), nil, &models.Enrollment{
		CourseID:   courseID,
		LearnerID:  learnerID,
		Status:     models.EnrollmentActive,
		EnrolledAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}
}

type quizFixture struct {
	courseID     uint
	lessonID     uint
	assessmentID uint
	questions    []*models.Question
}

// seedQuiz builds the standard taking scenario: a published course, an
// enrolled learner, and an assessment with two multiple choice
// questions worth 2 marks each. The first option of every question is
// the correct one.
func (e *testEnv) seedQuiz(t *testing.T, mutate func(*models.Assessment)) *quizFixture {
	t.Helper()
	ctx := context.Background()

	e.seedUser(testInstructor, models.RoleInstructor)
	e.seedUser(testLearner, models.RoleLearner)

	courseID, lessonID := e.seedCourse(t, testInstructor)
	e.seedEnrollment(t, courseID, testLearner)

	assessment := &models.Assessment{
		LessonID:    lessonID,
		Title:       "Consensus quiz",
		Type:        models.AssessmentQuiz,
		ShowResults: models.ShowResultsAfterSubmission,
		CreatedBy:   testInstructor,
	}
	if mutate != nil {
		mutate(assessment)
	}
	if err := e.repo.Assessment().Create(ctx, nil, assessment); err != nil {
		t.Fatalf("seed assessment: %v", err)
	}

	var questions []*models.Question
	for i, title := range []string{"What is quorum?", "Who proposes in Paxos?"} {
		q := &models.Question{
			AssessmentID: assessment.ID,
			Title:        title,
			Type:         models.MultipleChoice,
			Difficulty:   models.DifficultyMedium,
			Marks:        2,
			OrderIndex:   i,
			IsActive:     true,
			Options: []models.AnswerOption{
				{Text: "right", IsCorrect: true, OrderIndex: 0},
				{Text: "wrong", IsCorrect: false, OrderIndex: 1},
			},
		}
		if err := e.repo.Question().Create(ctx, nil, q); err != nil {
			t.Fatalf("seed question: %v", err)
		}
		questions = append(questions, q)
	}

	if _, err := e.repo.Assessment().RecalculateTotalMarks(ctx, nil, assessment.ID); err != nil {
		t.Fatalf("seed total marks: %v", err)
	}

	return &quizFixture{
		courseID:     courseID,
		lessonID:     lessonID,
		assessmentID: assessment.ID,
		questions:    questions,
	}
}

// addEssayQuestion appends a free-text question to the fixture.
func (e *testEnv) addEssayQuestion(t *testing.T, f *quizFixture, marks int) *models.Question {
	t.Helper()
	ctx := context.Background()

	q := &models.Question{
		AssessmentID: f.assessmentID,
		Title:        "Explain leader election",
		Type:         models.Essay,
		Difficulty:   models.DifficultyHard,
		Marks:        marks,
		OrderIndex:   len(f.questions),
		IsActive:     true,
	}
	if err := e.repo.Question().Create(ctx, nil, q); err != nil {
		t.Fatalf("seed essay question: %v", err)
	}
	if _, err := e.repo.Assessment().RecalculateTotalMarks(ctx, nil, f.assessmentID); err != nil {
		t.Fatalf("seed total marks: %v", err)
	}
	f.questions = append(f.questions, q)
	return q
}

func (e *testEnv) startAttempt(t *testing.T, f *quizFixture) *AttemptResponse {
	t.Helper()
	resp, err := e.attempts.Start(context.Background(), &StartAttemptRequest{AssessmentID: f.assessmentID}, testLearner)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	return resp
}

func (e *testEnv) answerObjective(t *testing.T, attemptID uint, q *models.Question, correct bool) {
	t.Helper()
	optionID := optionID(t, q, correct)
	err := e.attempts.SubmitAnswer(context.Background(), attemptID, &SubmitAnswerRequest{
		QuestionID:       q.ID,
		SelectedOptionID: &optionID,
	}, testLearner)
	if err != nil {
		t.Fatalf("answer question %d: %v", q.ID, err)
	}
}

func optionID(t *testing.T, q *models.Question, correct bool) uint {
	t.Helper()
	for _, opt := range q.Options {
		if opt.IsCorrect == correct {
			return opt.ID
		}
	}
	t.Fatalf("question %d has no option with correct=%v", q.ID, correct)
	return 0
}

func hasTopic(topics []string, topic string) bool {
	for _, t := range topics {
		if t == topic {
			return true
		}
	}
	return false
}

func ptrStr(s string) *string { return &s }
func ptrInt(i int) *int       { return &i }

// failingGradingService stands in for a grading backend outage.
type failingGradingService struct {
	GradingService
	err error
}

func (f *failingGradingService) AutoGradeAttempt(ctx context.Context, attemptID uint) (*AttemptGradingResult, error) {
	return nil, f.err
}

// racingRepository injects a rival attempt row right before the first
// Create, reproducing two sessions hitting the unique index at once.
type racingRepository struct {
	*fakeRepository
	rivalStatus models.AttemptStatus
	fired       bool
}

func (r *racingRepository) Attempt() repositories.AttemptRepository {
	return &racingAttemptRepo{
		AttemptRepository: r.fakeRepository.Attempt(),
		parent:            r,
	}
}

type racingAttemptRepo struct {
	repositories.AttemptRepository
	parent *racingRepository
}

func (r *racingAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *models.AssessmentAttempt) error {
	if !r.parent.fired {
		r.parent.fired = true
		rival := &models.AssessmentAttempt{
			AssessmentID:  attempt.AssessmentID,
			LearnerID:     attempt.LearnerID,
			EnrollmentID:  attempt.EnrollmentID,
			AttemptNumber: attempt.AttemptNumber,
			Status:        r.parent.rivalStatus,
			StartedAt:     time.Now(),
			MaxScore:      attempt.MaxScore,
		}
		if err := r.AttemptRepository.Create(ctx, tx, rival); err != nil {
			return err
		}
	}
	return r.AttemptRepository.Create(ctx, tx, attempt)
}
