package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/brightclass/assessment-service/internal/events"
	"github.com/brightclass/assessment-service/internal/models"
	"github.com/brightclass/assessment-service/internal/validator"
)

func TestNewAttemptService(t *testing.T) {
	svc := NewAttemptService(newFakeRepository(), nil, testLogger(), validator.New(), events.NewMockEventPublisher(testLogger()), nil)
	if svc == nil {
		t.Fatal("expected a service")
	}
}

func TestStartAttempt(t *testing.T) {
	ctx := context.Background()

	t.Run("opens the first attempt", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)

		resp := env.startAttempt(t, f)

		if resp.AttemptNumber != 1 {
			t.Errorf("attempt number = %d, want 1", resp.AttemptNumber)
		}
		if resp.Status != models.AttemptInProgress {
			t.Errorf("status = %s, want in_progress", resp.Status)
		}
		if resp.MaxScore != 4 {
			t.Errorf("max score = %d, want 4 (snapshot of total marks)", resp.MaxScore)
		}
		if !resp.CanSubmit {
			t.Error("expected an open attempt to be submittable")
		}
		if !hasTopic(env.publisher.GetPublishedTopics(), events.TopicAttemptStarted) {
			t.Error("expected an attempt started event")
		}
	})

	t.Run("resumes an open attempt instead of creating another", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)

		first := env.startAttempt(t, f)
		second := env.startAttempt(t, f)

		if first.ID != second.ID {
			t.Errorf("second start returned attempt %d, want %d", second.ID, first.ID)
		}
		if len(env.repo.s.attempts) != 1 {
			t.Errorf("stored attempts = %d, want 1", len(env.repo.s.attempts))
		}
	})

	t.Run("numbers attempts sequentially and stops at the limit", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, func(a *models.Assessment) {
			a.MaxAttempts = ptrInt(2)
		})

		first := env.startAttempt(t, f)
		env.repo.s.attempts[first.ID].Status = models.AttemptSubmitted

		second := env.startAttempt(t, f)
		if second.AttemptNumber != 2 {
			t.Errorf("attempt number = %d, want 2", second.AttemptNumber)
		}
		env.repo.s.attempts[second.ID].Status = models.AttemptSubmitted

		_, err := env.attempts.Start(ctx, &StartAttemptRequest{AssessmentID: f.assessmentID}, testLearner)
		if !errors.Is(err, ErrMaxAttemptsReached) {
			t.Errorf("err = %v, want ErrMaxAttemptsReached", err)
		}
	})

	t.Run("requires an active enrollment", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		env.seedUser(testLearner2, models.RoleLearner)

		_, err := env.attempts.Start(ctx, &StartAttemptRequest{AssessmentID: f.assessmentID}, testLearner2)
		if !errors.Is(err, ErrEnrollmentNotFound) {
			t.Errorf("err = %v, want ErrEnrollmentNotFound", err)
		}
	})

	t.Run("rejects starts after the due date", func(t *testing.T) {
		env := newTestEnv(t)
		past := time.Now().Add(-time.Hour)
		f := env.seedQuiz(t, func(a *models.Assessment) {
			a.DueDate = &past
		})

		_, err := env.attempts.Start(ctx, &StartAttemptRequest{AssessmentID: f.assessmentID}, testLearner)
		if !errors.Is(err, ErrAssessmentExpired) {
			t.Errorf("err = %v, want ErrAssessmentExpired", err)
		}
	})

	t.Run("rejects an assessment with no active questions", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		for _, q := range f.questions {
			env.repo.s.questions[q.ID].IsActive = false
		}

		_, err := env.attempts.Start(ctx, &StartAttemptRequest{AssessmentID: f.assessmentID}, testLearner)
		if !errors.Is(err, ErrNoActiveQuestions) {
			t.Errorf("err = %v, want ErrNoActiveQuestions", err)
		}
	})

	t.Run("rejects a missing identity", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)

		_, err := env.attempts.Start(ctx, &StartAttemptRequest{AssessmentID: f.assessmentID}, "")
		if !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("err = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("rejects an unknown assessment", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedQuiz(t, nil)

		_, err := env.attempts.Start(ctx, &StartAttemptRequest{AssessmentID: 9999}, testLearner)
		if !errors.Is(err, ErrAssessmentNotFound) {
			t.Errorf("err = %v, want ErrAssessmentNotFound", err)
		}
	})
}

func TestStartAttemptRace(t *testing.T) {
	ctx := context.Background()

	buildRacing := func(t *testing.T, rivalStatus models.AttemptStatus) (AttemptService, *quizFixture) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		racing := &racingRepository{fakeRepository: env.repo, rivalStatus: rivalStatus}
		svc := NewAttemptService(racing, nil, testLogger(), env.validator, env.publisher, env.grading)
		return svc, f
	}

	t.Run("hands back the rival attempt when it is still open", func(t *testing.T) {
		svc, f := buildRacing(t, models.AttemptInProgress)

		resp, err := svc.Start(ctx, &StartAttemptRequest{AssessmentID: f.assessmentID}, testLearner)
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if resp.Status != models.AttemptInProgress {
			t.Errorf("status = %s, want in_progress", resp.Status)
		}
		if resp.AttemptNumber != 1 {
			t.Errorf("attempt number = %d, want the rival's 1", resp.AttemptNumber)
		}
	})

	t.Run("reports a conflict when the rival already closed", func(t *testing.T) {
		svc, f := buildRacing(t, models.AttemptSubmitted)

		_, err := svc.Start(ctx, &StartAttemptRequest{AssessmentID: f.assessmentID}, testLearner)
		if !errors.Is(err, ErrAttemptConflict) {
			t.Errorf("err = %v, want ErrAttemptConflict", err)
		}
	})
}

func TestSubmitAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps one row per question across re-answers", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		attempt := env.startAttempt(t, f)
		q := f.questions[0]

		env.answerObjective(t, attempt.ID, q, true)

		// Simulate a stale grade left on the row, then replace the answer
		for _, a := range env.repo.s.answers {
			marks := 2.0
			correct := true
			a.MarksAwarded = &marks
			a.IsCorrect = &correct
		}
		env.answerObjective(t, attempt.ID, q, false)

		if len(env.repo.s.answers) != 1 {
			t.Fatalf("stored answers = %d, want 1", len(env.repo.s.answers))
		}
		for _, a := range env.repo.s.answers {
			if a.SelectedOptionID == nil || *a.SelectedOptionID != optionID(t, q, false) {
				t.Errorf("selected option = %v, want the replacement", a.SelectedOptionID)
			}
			if a.MarksAwarded != nil || a.IsCorrect != nil {
				t.Error("expected the replaced answer to shed its grade")
			}
		}
	})

	t.Run("rejects text on a choice question", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		attempt := env.startAttempt(t, f)
		opt := optionID(t, f.questions[0], true)

		err := env.attempts.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{
			QuestionID:       f.questions[0].ID,
			SelectedOptionID: &opt,
			AnswerText:       ptrStr("also some text"),
		}, testLearner)

		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Errorf("err = %v, want validation errors", err)
		}
	})

	t.Run("rejects an option from another question", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		attempt := env.startAttempt(t, f)
		foreign := optionID(t, f.questions[1], true)

		err := env.attempts.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{
			QuestionID:       f.questions[0].ID,
			SelectedOptionID: &foreign,
		}, testLearner)

		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Errorf("err = %v, want validation errors", err)
		}
	})

	t.Run("rejects a retired question", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		attempt := env.startAttempt(t, f)
		env.repo.s.questions[f.questions[0].ID].IsActive = false
		opt := optionID(t, f.questions[0], true)

		err := env.attempts.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{
			QuestionID:       f.questions[0].ID,
			SelectedOptionID: &opt,
		}, testLearner)
		if !errors.Is(err, ErrQuestionNotInAttempt) {
			t.Errorf("err = %v, want ErrQuestionNotInAttempt", err)
		}
	})

	t.Run("requires answer text on a free-text question", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		essay := env.addEssayQuestion(t, f, 2)
		attempt := env.startAttempt(t, f)

		err := env.attempts.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{
			QuestionID: essay.ID,
			AnswerText: ptrStr(""),
		}, testLearner)

		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Errorf("err = %v, want validation errors", err)
		}
	})

	t.Run("rejects a caller who does not own the attempt", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		attempt := env.startAttempt(t, f)
		env.seedUser(testLearner2, models.RoleLearner)
		opt := optionID(t, f.questions[0], true)

		err := env.attempts.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{
			QuestionID:       f.questions[0].ID,
			SelectedOptionID: &opt,
		}, testLearner2)

		var perr *PermissionError
		if !errors.As(err, &perr) {
			t.Errorf("err = %v, want a permission error", err)
		}
	})

	t.Run("rejects a closed attempt", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		attempt := env.startAttempt(t, f)
		env.repo.s.attempts[attempt.ID].Status = models.AttemptSubmitted
		opt := optionID(t, f.questions[0], true)

		err := env.attempts.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{
			QuestionID:       f.questions[0].ID,
			SelectedOptionID: &opt,
		}, testLearner)
		if !errors.Is(err, ErrAttemptNotActive) {
			t.Errorf("err = %v, want ErrAttemptNotActive", err)
		}
	})

	t.Run("expires an overdue attempt on contact", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, func(a *models.Assessment) {
			a.TimeLimitMinutes = ptrInt(30)
		})
		attempt := env.startAttempt(t, f)
		env.repo.s.attempts[attempt.ID].StartedAt = time.Now().Add(-31*time.Minute - submissionGrace)
		opt := optionID(t, f.questions[0], true)

		err := env.attempts.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{
			QuestionID:       f.questions[0].ID,
			SelectedOptionID: &opt,
		}, testLearner)
		if !errors.Is(err, ErrAttemptExpired) {
			t.Errorf("err = %v, want ErrAttemptExpired", err)
		}
		if got := env.repo.s.attempts[attempt.ID].Status; got != models.AttemptExpired {
			t.Errorf("status = %s, want expired", got)
		}
		if !hasTopic(env.publisher.GetPublishedTopics(), events.TopicAttemptExpired) {
			t.Error("expected an attempt expired event")
		}
	})
}

func TestSubmitAttempt(t *testing.T) {
	ctx := context.Background()

	t.Run("grades all correct answers to full marks", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		attempt := env.startAttempt(t, f)

		opt1 := optionID(t, f.questions[0], true)
		opt2 := optionID(t, f.questions[1], true)
		resp, err := env.attempts.Submit(ctx, attempt.ID, &SubmitAttemptRequest{
			Answers: []SubmitAnswerRequest{
				{QuestionID: f.questions[0].ID, SelectedOptionID: &opt1},
				{QuestionID: f.questions[1].ID, SelectedOptionID: &opt2},
			},
		}, testLearner)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}

		if resp.Status != models.AttemptGraded {
			t.Errorf("status = %s, want graded", resp.Status)
		}
		if resp.Score != 4 || resp.Percentage != 100 {
			t.Errorf("score = %.1f (%.1f%%), want 4 (100%%)", resp.Score, resp.Percentage)
		}
		if !resp.Passed {
			t.Error("expected a perfect attempt to pass")
		}
		if resp.PendingGrading {
			t.Error("expected no pending grading on an all-objective attempt")
		}

		topics := env.publisher.GetPublishedTopics()
		for _, want := range []string{events.TopicAttemptStarted, events.TopicAttemptSubmitted, events.TopicAttemptGraded} {
			if !hasTopic(topics, want) {
				t.Errorf("missing event topic %s", want)
			}
		}
	})

	t.Run("grades all wrong answers to zero", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		attempt := env.startAttempt(t, f)
		env.answerObjective(t, attempt.ID, f.questions[0], false)
		env.answerObjective(t, attempt.ID, f.questions[1], false)

		resp, err := env.attempts.Submit(ctx, attempt.ID, nil, testLearner)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}

		if resp.Score != 0 || resp.Percentage != 0 {
			t.Errorf("score = %.1f (%.1f%%), want 0 (0%%)", resp.Score, resp.Percentage)
		}
		if resp.Passed {
			t.Error("expected a zero attempt to fail")
		}
		if resp.Status != models.AttemptGraded {
			t.Errorf("status = %s, want graded", resp.Status)
		}
	})

	t.Run("holds free-text answers pending until graded manually", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		essay := env.addEssayQuestion(t, f, 2)
		attempt := env.startAttempt(t, f)

		env.answerObjective(t, attempt.ID, f.questions[0], true)
		env.answerObjective(t, attempt.ID, f.questions[1], true)
		if err := env.attempts.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{
			QuestionID: essay.ID,
			AnswerText: ptrStr("The leader is elected by majority vote."),
		}, testLearner); err != nil {
			t.Fatalf("answer essay: %v", err)
		}

		resp, err := env.attempts.Submit(ctx, attempt.ID, nil, testLearner)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if !resp.PendingGrading {
			t.Fatal("expected pending grading with an ungraded essay")
		}
		if resp.Status != models.AttemptSubmitted {
			t.Errorf("status = %s, want submitted until the essay is graded", resp.Status)
		}
		if resp.GradedAt != nil {
			t.Error("expected no graded timestamp while pending")
		}

		var essayAnswerID uint
		for _, a := range env.repo.s.answers {
			if a.QuestionID == essay.ID {
				essayAnswerID = a.ID
			}
		}
		result, err := env.grading.GradeAnswer(ctx, essayAnswerID, &GradeAnswerRequest{MarksAwarded: 2}, testInstructor)
		if err != nil {
			t.Fatalf("grade essay: %v", err)
		}
		if result.MarksAwarded != 2 {
			t.Errorf("marks = %.1f, want 2", result.MarksAwarded)
		}

		stored := env.repo.s.attempts[attempt.ID]
		if stored.Status != models.AttemptGraded {
			t.Errorf("status = %s, want graded after manual grading", stored.Status)
		}
		if stored.Score != 6 || stored.Percentage != 100 {
			t.Errorf("score = %.1f (%.1f%%), want 6 (100%%)", stored.Score, stored.Percentage)
		}
		if !stored.Passed {
			t.Error("expected the attempt to pass")
		}
	})

	t.Run("rejects a second submission", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		attempt := env.startAttempt(t, f)
		env.answerObjective(t, attempt.ID, f.questions[0], true)

		if _, err := env.attempts.Submit(ctx, attempt.ID, nil, testLearner); err != nil {
			t.Fatalf("submit: %v", err)
		}
		_, err := env.attempts.Submit(ctx, attempt.ID, nil, testLearner)
		if !errors.Is(err, ErrAttemptAlreadySubmitted) {
			t.Errorf("err = %v, want ErrAttemptAlreadySubmitted", err)
		}
	})

	t.Run("discards answers arriving after the deadline", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, func(a *models.Assessment) {
			a.TimeLimitMinutes = ptrInt(30)
		})
		attempt := env.startAttempt(t, f)
		env.answerObjective(t, attempt.ID, f.questions[0], true)

		env.repo.s.attempts[attempt.ID].StartedAt = time.Now().Add(-31*time.Minute - submissionGrace)

		opt2 := optionID(t, f.questions[1], true)
		resp, err := env.attempts.Submit(ctx, attempt.ID, &SubmitAttemptRequest{
			Answers: []SubmitAnswerRequest{{QuestionID: f.questions[1].ID, SelectedOptionID: &opt2}},
		}, testLearner)
		if err != nil {
			t.Fatalf("late submit: %v", err)
		}

		if resp.Status != models.AttemptExpired {
			t.Errorf("status = %s, want expired", resp.Status)
		}
		if len(env.repo.s.answers) != 1 {
			t.Errorf("stored answers = %d, want 1 (late answers discarded)", len(env.repo.s.answers))
		}
		// The attempt is still graded from what it held before the deadline
		if resp.Score != 2 || resp.Percentage != 50 {
			t.Errorf("score = %.1f (%.1f%%), want 2 (50%%)", resp.Score, resp.Percentage)
		}

		_, err = env.attempts.Submit(ctx, attempt.ID, nil, testLearner)
		if !errors.Is(err, ErrAttemptExpired) {
			t.Errorf("err = %v, want ErrAttemptExpired on resubmit", err)
		}
	})

	t.Run("swallows a grading failure and reports it on the failure topic", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		broken := &failingGradingService{err: errors.New("grading backend unavailable")}
		svc := NewAttemptService(env.repo, nil, testLogger(), env.validator, env.publisher, broken)

		attempt, err := svc.Start(ctx, &StartAttemptRequest{AssessmentID: f.assessmentID}, testLearner)
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		opt := optionID(t, f.questions[0], true)
		resp, err := svc.Submit(ctx, attempt.ID, &SubmitAttemptRequest{
			Answers: []SubmitAnswerRequest{{QuestionID: f.questions[0].ID, SelectedOptionID: &opt}},
		}, testLearner)
		if err != nil {
			t.Fatalf("submit must survive a grading failure, got: %v", err)
		}
		if resp.Status != models.AttemptSubmitted {
			t.Errorf("status = %s, want submitted", resp.Status)
		}

		if !hasTopic(env.publisher.GetPublishedTopics(), events.TopicGradingFailed) {
			t.Fatal("expected a grading failed event")
		}
		for _, ev := range env.publisher.GetPublishedEvents() {
			if ev.Type != events.TopicGradingFailed {
				continue
			}
			data, ok := ev.Data.(*events.GradingFailedEvent)
			if !ok {
				t.Fatalf("event data type = %T, want *GradingFailedEvent", ev.Data)
			}
			if data.AttemptID != attempt.ID || data.Reason == "" {
				t.Errorf("event data = %+v, want attempt %d with a reason", data, attempt.ID)
			}
		}
	})
}

func TestRecordViolation(t *testing.T) {
	ctx := context.Background()

	t.Run("counts tab switches and keeps the full log", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		attempt := env.startAttempt(t, f)

		if err := env.attempts.RecordViolation(ctx, attempt.ID, &RecordViolationRequest{
			Kind: models.ViolationTabSwitch,
		}, testLearner); err != nil {
			t.Fatalf("record tab switch: %v", err)
		}
		if err := env.attempts.RecordViolation(ctx, attempt.ID, &RecordViolationRequest{
			Kind:   models.ViolationFullscreen,
			Detail: "left fullscreen for 4s",
		}, testLearner); err != nil {
			t.Fatalf("record fullscreen exit: %v", err)
		}

		stored := env.repo.s.attempts[attempt.ID]
		if stored.TabSwitches != 1 {
			t.Errorf("tab switches = %d, want 1", stored.TabSwitches)
		}
		var log []models.ProctoringViolation
		if err := json.Unmarshal(stored.Violations, &log); err != nil {
			t.Fatalf("decode violation log: %v", err)
		}
		if len(log) != 2 {
			t.Fatalf("violation log length = %d, want 2", len(log))
		}
		if log[0].Kind != models.ViolationTabSwitch || log[1].Kind != models.ViolationFullscreen {
			t.Errorf("violation kinds = %s, %s", log[0].Kind, log[1].Kind)
		}
	})

	t.Run("rejects an unknown kind", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		attempt := env.startAttempt(t, f)

		err := env.attempts.RecordViolation(ctx, attempt.ID, &RecordViolationRequest{
			Kind: models.ViolationKind("mind_reading"),
		}, testLearner)

		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Errorf("err = %v, want validation errors", err)
		}
	})

	t.Run("rejects a closed attempt", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		attempt := env.startAttempt(t, f)
		env.repo.s.attempts[attempt.ID].Status = models.AttemptSubmitted

		err := env.attempts.RecordViolation(ctx, attempt.ID, &RecordViolationRequest{
			Kind: models.ViolationTabSwitch,
		}, testLearner)
		if !errors.Is(err, ErrAttemptNotActive) {
			t.Errorf("err = %v, want ErrAttemptNotActive", err)
		}
	})
}

func TestGetTimeRemaining(t *testing.T) {
	ctx := context.Background()

	t.Run("returns -1 for untimed assessments", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, nil)
		attempt := env.startAttempt(t, f)

		remaining, err := env.attempts.GetTimeRemaining(ctx, attempt.ID, testLearner)
		if err != nil {
			t.Fatalf("get time remaining: %v", err)
		}
		if remaining != -1 {
			t.Errorf("remaining = %d, want -1", remaining)
		}
	})

	t.Run("counts down within the limit", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, func(a *models.Assessment) {
			a.TimeLimitMinutes = ptrInt(30)
		})
		attempt := env.startAttempt(t, f)

		remaining, err := env.attempts.GetTimeRemaining(ctx, attempt.ID, testLearner)
		if err != nil {
			t.Fatalf("get time remaining: %v", err)
		}
		if remaining <= 0 || remaining > 30*60 {
			t.Errorf("remaining = %d, want within (0, 1800]", remaining)
		}
	})

	t.Run("floors at zero once the clock ran out", func(t *testing.T) {
		env := newTestEnv(t)
		f := env.seedQuiz(t, func(a *models.Assessment) {
			a.TimeLimitMinutes = ptrInt(30)
		})
		attempt := env.startAttempt(t, f)
		env.repo.s.attempts[attempt.ID].StartedAt = time.Now().Add(-31 * time.Minute)

		remaining, err := env.attempts.GetTimeRemaining(ctx, attempt.ID, testLearner)
		if err != nil {
			t.Fatalf("get time remaining: %v", err)
		}
		if remaining != 0 {
			t.Errorf("remaining = %d, want 0", remaining)
		}
	})
}

func TestExpireOverdue(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv(t)
	f := env.seedQuiz(t, func(a *models.Assessment) {
		a.TimeLimitMinutes = ptrInt(30)
	})
	env.seedUser(testLearner2, models.RoleLearner)
	env.seedEnrollment(t, f.courseID, testLearner2)

	stale := env.startAttempt(t, f)
	env.repo.s.attempts[stale.ID].StartedAt = time.Now().Add(-2 * time.Hour)

	stale2, err := env.attempts.Start(ctx, &StartAttemptRequest{AssessmentID: f.assessmentID}, testLearner2)
	if err != nil {
		t.Fatalf("start second attempt: %v", err)
	}
	env.repo.s.attempts[stale2.ID].StartedAt = time.Now().Add(-2 * time.Hour)

	// A third learner is still inside the window
	env.seedUser("learner-3", models.RoleLearner)
	env.seedEnrollment(t, f.courseID, "learner-3")
	fresh, err := env.attempts.Start(ctx, &StartAttemptRequest{AssessmentID: f.assessmentID}, "learner-3")
	if err != nil {
		t.Fatalf("start third attempt: %v", err)
	}

	expired, err := env.attempts.ExpireOverdue(ctx, 100)
	if err != nil {
		t.Fatalf("expire overdue: %v", err)
	}
	if expired != 2 {
		t.Errorf("expired = %d, want 2", expired)
	}

	for _, id := range []uint{stale.ID, stale2.ID} {
		stored := env.repo.s.attempts[id]
		if stored.Status != models.AttemptExpired {
			t.Errorf("attempt %d status = %s, want expired", id, stored.Status)
		}
		// Expired attempts are graded with whatever they held, and the
		// status stays expired for reporting
		if stored.GradedAt == nil {
			t.Errorf("attempt %d has no graded timestamp", id)
		}
	}
	if got := env.repo.s.attempts[fresh.ID].Status; got != models.AttemptInProgress {
		t.Errorf("fresh attempt status = %s, want in_progress", got)
	}
}

func TestGetByIDWithDetailsRedaction(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv(t)
	f := env.seedQuiz(t, func(a *models.Assessment) {
		a.ShowResults = models.ShowResultsNever
	})
	attempt := env.startAttempt(t, f)
	env.answerObjective(t, attempt.ID, f.questions[0], true)
	env.answerObjective(t, attempt.ID, f.questions[1], true)
	if _, err := env.attempts.Submit(ctx, attempt.ID, nil, testLearner); err != nil {
		t.Fatalf("submit: %v", err)
	}

	t.Run("hides grades from the learner", func(t *testing.T) {
		resp, err := env.attempts.GetByIDWithDetails(ctx, attempt.ID, testLearner)
		if err != nil {
			t.Fatalf("get details: %v", err)
		}
		if resp.Score != 0 || resp.Percentage != 0 || resp.Passed {
			t.Errorf("learner view leaks grades: score=%.1f pct=%.1f passed=%v", resp.Score, resp.Percentage, resp.Passed)
		}
		for _, a := range resp.Answers {
			if a.IsCorrect != nil || a.MarksAwarded != nil {
				t.Error("learner view leaks per-answer grading")
			}
			for _, opt := range a.Question.Options {
				if opt.IsCorrect {
					t.Error("learner view leaks option correctness")
				}
			}
		}
	})

	t.Run("shows grades to staff", func(t *testing.T) {
		resp, err := env.attempts.GetByIDWithDetails(ctx, attempt.ID, testInstructor)
		if err != nil {
			t.Fatalf("get details: %v", err)
		}
		if resp.Score != 4 {
			t.Errorf("staff view score = %.1f, want 4", resp.Score)
		}
	})
}
