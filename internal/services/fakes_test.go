package services

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/brightclass/assessment-service/internal/models"
	"github.com/brightclass/assessment-service/internal/repositories"
)

// fakeStore is the shared in-memory state behind the fake repositories.
type fakeStore struct {
	assessments  map[uint]*models.Assessment
	questions    map[uint]*models.Question
	attempts     map[uint]*models.AssessmentAttempt
	answers      map[uint]*models.AttemptAnswer
	lessons      map[uint]*models.Lesson
	lessonCourse map[uint]uint
	courses      map[uint]*models.Course
	enrollments  map[uint]*models.Enrollment
	users        map[string]*models.User
	nextID       uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		assessments:  make(map[uint]*models.Assessment),
		questions:    make(map[uint]*models.Question),
		attempts:     make(map[uint]*models.AssessmentAttempt),
		answers:      make(map[uint]*models.AttemptAnswer),
		lessons:      make(map[uint]*models.Lesson),
		lessonCourse: make(map[uint]uint),
		courses:      make(map[uint]*models.Course),
		enrollments:  make(map[uint]*models.Enrollment),
		users:        make(map[string]*models.User),
	}
}

func (s *fakeStore) id() uint {
	s.nextID++
	return s.nextID
}

type fakeRepository struct {
	s *fakeStore
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{s: newFakeStore()}
}

func (f *fakeRepository) Course() repositories.CourseRepository         { return &fakeCourseRepo{f.s} }
func (f *fakeRepository) Enrollment() repositories.EnrollmentRepository { return &fakeEnrollRepo{f.s} }
func (f *fakeRepository) Assessment() repositories.AssessmentRepository {
	return &fakeAssessmentRepo{f.s}
}
func (f *fakeRepository) Question() repositories.QuestionRepository { return &fakeQuestionRepo{f.s} }
func (f *fakeRepository) Attempt() repositories.AttemptRepository   { return &fakeAttemptRepo{f.s} }
func (f *fakeRepository) Answer() repositories.AnswerRepository     { return &fakeAnswerRepo{f.s} }
func (f *fakeRepository) User() repositories.UserRepository         { return &fakeUserRepo{f.s} }

func (f *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}
func (f *fakeRepository) Ping(ctx context.Context) error { return nil }
func (f *fakeRepository) Close() error                   { return nil }

// ===== ASSESSMENTS =====

type fakeAssessmentRepo struct{ s *fakeStore }

func (r *fakeAssessmentRepo) Create(ctx context.Context, tx *gorm.DB, a *models.Assessment) error {
	a.ID = r.s.id()
	cp := *a
	r.s.assessments[a.ID] = &cp
	return nil
}

func (r *fakeAssessmentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	a, ok := r.s.assessments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAssessmentRepo) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	a, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	for _, q := range sortedQuestions(r.s, id, false) {
		a.Questions = append(a.Questions, *q)
	}
	return a, nil
}

func (r *fakeAssessmentRepo) Update(ctx context.Context, tx *gorm.DB, a *models.Assessment) error {
	if _, ok := r.s.assessments[a.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *a
	r.s.assessments[a.ID] = &cp
	return nil
}

func (r *fakeAssessmentRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	delete(r.s.assessments, id)
	return nil
}

func (r *fakeAssessmentRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	var out []*models.Assessment
	for _, a := range r.s.assessments {
		cp := *a
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r *fakeAssessmentRepo) GetByLesson(ctx context.Context, tx *gorm.DB, lessonID uint) ([]*models.Assessment, error) {
	var out []*models.Assessment
	for _, a := range r.s.assessments {
		if a.LessonID == lessonID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAssessmentRepo) RecalculateTotalMarks(ctx context.Context, tx *gorm.DB, id uint) (int, error) {
	a, ok := r.s.assessments[id]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	total := 0
	for _, q := range r.s.questions {
		if q.AssessmentID == id && q.IsActive {
			total += q.Marks
		}
	}
	a.TotalMarks = total
	return total, nil
}

// ===== QUESTIONS =====

type fakeQuestionRepo struct{ s *fakeStore }

func sortedQuestions(s *fakeStore, assessmentID uint, activeOnly bool) []*models.Question {
	var out []*models.Question
	for _, q := range s.questions {
		if q.AssessmentID != assessmentID {
			continue
		}
		if activeOnly && !q.IsActive {
			continue
		}
		cp := *q
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out
}

func (r *fakeQuestionRepo) Create(ctx context.Context, tx *gorm.DB, q *models.Question) error {
	q.ID = r.s.id()
	for i := range q.Options {
		q.Options[i].ID = r.s.id()
		q.Options[i].QuestionID = q.ID
	}
	cp := *q
	r.s.questions[q.ID] = &cp
	return nil
}

func (r *fakeQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	q, ok := r.s.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *q
	return &cp, nil
}

func (r *fakeQuestionRepo) GetByIDWithOptions(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	return r.GetByID(ctx, tx, id)
}

func (r *fakeQuestionRepo) Update(ctx context.Context, tx *gorm.DB, q *models.Question) error {
	if _, ok := r.s.questions[q.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *q
	r.s.questions[q.ID] = &cp
	return nil
}

func (r *fakeQuestionRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	delete(r.s.questions, id)
	return nil
}

func (r *fakeQuestionRepo) GetActiveByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.Question, error) {
	return sortedQuestions(r.s, assessmentID, true), nil
}

func (r *fakeQuestionRepo) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.Question, error) {
	return sortedQuestions(r.s, assessmentID, false), nil
}

func (r *fakeQuestionRepo) SetActive(ctx context.Context, tx *gorm.DB, id uint, active bool) error {
	q, ok := r.s.questions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	q.IsActive = active
	return nil
}

func (r *fakeQuestionRepo) SumActiveMarks(ctx context.Context, tx *gorm.DB, assessmentID uint) (int, error) {
	total := 0
	for _, q := range sortedQuestions(r.s, assessmentID, true) {
		total += q.Marks
	}
	return total, nil
}

func (r *fakeQuestionRepo) ReplaceOptions(ctx context.Context, tx *gorm.DB, questionID uint, options []models.AnswerOption) error {
	q, ok := r.s.questions[questionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	q.Options = nil
	for i := range options {
		options[i].ID = r.s.id()
		options[i].QuestionID = questionID
		q.Options = append(q.Options, options[i])
	}
	return nil
}

func (r *fakeQuestionRepo) GetOption(ctx context.Context, tx *gorm.DB, optionID uint) (*models.AnswerOption, error) {
	for _, q := range r.s.questions {
		for _, opt := range q.Options {
			if opt.ID == optionID {
				cp := opt
				return &cp, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ===== ATTEMPTS =====

type fakeAttemptRepo struct{ s *fakeStore }

func (r *fakeAttemptRepo) Create(ctx context.Context, tx *gorm.DB, a *models.AssessmentAttempt) error {
	for _, existing := range r.s.attempts {
		if existing.AssessmentID == a.AssessmentID &&
			existing.LearnerID == a.LearnerID &&
			existing.AttemptNumber == a.AttemptNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	a.ID = r.s.id()
	cp := *a
	cp.Answers = nil
	r.s.attempts[a.ID] = &cp
	return nil
}

func (r *fakeAttemptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AssessmentAttempt, error) {
	a, ok := r.s.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAttemptRepo) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.AssessmentAttempt, error) {
	a, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if assessment, ok := r.s.assessments[a.AssessmentID]; ok {
		a.Assessment = *assessment
	}

	var answers []*models.AttemptAnswer
	for _, ans := range r.s.answers {
		if ans.AttemptID == id {
			answers = append(answers, ans)
		}
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionID < answers[j].QuestionID })
	for _, ans := range answers {
		cp := *ans
		if q, ok := r.s.questions[ans.QuestionID]; ok {
			cp.Question = *q
			if ans.SelectedOptionID != nil {
				for _, opt := range q.Options {
					if opt.ID == *ans.SelectedOptionID {
						o := opt
						cp.SelectedOption = &o
					}
				}
			}
		}
		a.Answers = append(a.Answers, cp)
	}
	return a, nil
}

func (r *fakeAttemptRepo) Update(ctx context.Context, tx *gorm.DB, a *models.AssessmentAttempt) error {
	if _, ok := r.s.attempts[a.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *a
	cp.Answers = nil
	r.s.attempts[a.ID] = &cp
	return nil
}

func (r *fakeAttemptRepo) GetActiveAttempt(ctx context.Context, tx *gorm.DB, assessmentID uint, learnerID string) (*models.AssessmentAttempt, error) {
	var found *models.AssessmentAttempt
	for _, a := range r.s.attempts {
		if a.AssessmentID == assessmentID && a.LearnerID == learnerID && a.Status == models.AttemptInProgress {
			if found == nil || a.AttemptNumber > found.AttemptNumber {
				found = a
			}
		}
	}
	if found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *found
	return &cp, nil
}

func (r *fakeAttemptRepo) MaxAttemptNumber(ctx context.Context, tx *gorm.DB, assessmentID uint, learnerID string) (int, error) {
	max := 0
	for _, a := range r.s.attempts {
		if a.AssessmentID == assessmentID && a.LearnerID == learnerID && a.AttemptNumber > max {
			max = a.AttemptNumber
		}
	}
	return max, nil
}

func (r *fakeAttemptRepo) CountByLearner(ctx context.Context, tx *gorm.DB, assessmentID uint, learnerID string) (int64, error) {
	var count int64
	for _, a := range r.s.attempts {
		if a.AssessmentID == assessmentID && a.LearnerID == learnerID {
			count++
		}
	}
	return count, nil
}

func (r *fakeAttemptRepo) List(ctx context.Context, tx *gorm.DB, assessmentID uint, filters repositories.AttemptFilters) ([]*models.AssessmentAttempt, int64, error) {
	var out []*models.AssessmentAttempt
	for _, a := range r.s.attempts {
		if a.AssessmentID != assessmentID {
			continue
		}
		if filters.Status != nil && a.Status != *filters.Status {
			continue
		}
		if filters.LearnerID != nil && a.LearnerID != *filters.LearnerID {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeAttemptRepo) GetByLearner(ctx context.Context, tx *gorm.DB, learnerID string, filters repositories.AttemptFilters) ([]*models.AssessmentAttempt, int64, error) {
	var out []*models.AssessmentAttempt
	for _, a := range r.s.attempts {
		if a.LearnerID != learnerID {
			continue
		}
		if filters.Status != nil && a.Status != *filters.Status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeAttemptRepo) GetOverdue(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]*models.AssessmentAttempt, error) {
	var out []*models.AssessmentAttempt
	for _, a := range r.s.attempts {
		if a.Status != models.AttemptInProgress {
			continue
		}
		assessment, ok := r.s.assessments[a.AssessmentID]
		if !ok || assessment.TimeLimitMinutes == nil {
			continue
		}
		deadline := a.StartedAt.Add(time.Duration(*assessment.TimeLimitMinutes) * time.Minute)
		if deadline.Before(cutoff) {
			cp := *a
			cp.Assessment = *assessment
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeAttemptRepo) GetStats(ctx context.Context, tx *gorm.DB, assessmentID uint) (*repositories.AttemptStats, error) {
	stats := &repositories.AttemptStats{StatusBreakdown: make(map[models.AttemptStatus]int)}
	for _, a := range r.s.attempts {
		if a.AssessmentID != assessmentID {
			continue
		}
		stats.TotalAttempts++
		stats.StatusBreakdown[a.Status]++
	}
	return stats, nil
}

func (r *fakeAttemptRepo) GetGradedByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.AssessmentAttempt, error) {
	var out []*models.AssessmentAttempt
	for _, a := range r.s.attempts {
		if a.AssessmentID == assessmentID && a.GradedAt != nil {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ===== ANSWERS =====

type fakeAnswerRepo struct{ s *fakeStore }

func (r *fakeAnswerRepo) Create(ctx context.Context, tx *gorm.DB, a *models.AttemptAnswer) error {
	for _, existing := range r.s.answers {
		if existing.AttemptID == a.AttemptID && existing.QuestionID == a.QuestionID {
			return gorm.ErrDuplicatedKey
		}
	}
	a.ID = r.s.id()
	cp := *a
	r.s.answers[a.ID] = &cp
	return nil
}

func (r *fakeAnswerRepo) Update(ctx context.Context, tx *gorm.DB, a *models.AttemptAnswer) error {
	if _, ok := r.s.answers[a.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *a
	cp.SelectedOption = nil
	cp.Question = models.Question{}
	r.s.answers[a.ID] = &cp
	return nil
}

func (r *fakeAnswerRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AttemptAnswer, error) {
	a, ok := r.s.answers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAnswerRepo) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.AttemptAnswer, error) {
	a, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if q, ok := r.s.questions[a.QuestionID]; ok {
		a.Question = *q
		if a.SelectedOptionID != nil {
			for _, opt := range q.Options {
				if opt.ID == *a.SelectedOptionID {
					o := opt
					a.SelectedOption = &o
				}
			}
		}
	}
	return a, nil
}

func (r *fakeAnswerRepo) GetByAttemptAndQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (*models.AttemptAnswer, error) {
	for _, a := range r.s.answers {
		if a.AttemptID == attemptID && a.QuestionID == questionID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAnswerRepo) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.AttemptAnswer, error) {
	var out []*models.AttemptAnswer
	for _, a := range r.s.answers {
		if a.AttemptID == attemptID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func (r *fakeAnswerRepo) CountUngradedSubjective(ctx context.Context, tx *gorm.DB, attemptID uint) (int64, error) {
	var count int64
	for _, a := range r.s.answers {
		if a.AttemptID != attemptID || a.MarksAwarded != nil {
			continue
		}
		if q, ok := r.s.questions[a.QuestionID]; ok && !q.Type.IsObjective() {
			count++
		}
	}
	return count, nil
}

func (r *fakeAnswerRepo) GetGradingStats(ctx context.Context, tx *gorm.DB, assessmentID uint) (*repositories.GradingStats, error) {
	stats := &repositories.GradingStats{}
	for _, a := range r.s.answers {
		attempt, ok := r.s.attempts[a.AttemptID]
		if !ok || attempt.AssessmentID != assessmentID {
			continue
		}
		stats.TotalAnswers++
		if a.MarksAwarded != nil {
			stats.GradedAnswers++
			if a.GradedBy != nil {
				stats.ManualGraded++
			} else {
				stats.AutoGraded++
			}
		} else {
			stats.PendingAnswers++
		}
	}
	return stats, nil
}

// ===== COURSES AND ENROLLMENTS =====

type fakeCourseRepo struct{ s *fakeStore }

func (r *fakeCourseRepo) Create(ctx context.Context, tx *gorm.DB, c *models.Course) error {
	c.ID = r.s.id()
	cp := *c
	r.s.courses[c.ID] = &cp
	return nil
}

func (r *fakeCourseRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	c, ok := r.s.courses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCourseRepo) GetByIDWithContent(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	return r.GetByID(ctx, tx, id)
}

func (r *fakeCourseRepo) Update(ctx context.Context, tx *gorm.DB, c *models.Course) error {
	cp := *c
	r.s.courses[c.ID] = &cp
	return nil
}

func (r *fakeCourseRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	delete(r.s.courses, id)
	return nil
}

func (r *fakeCourseRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*models.Course, int64, error) {
	var out []*models.Course
	for _, c := range r.s.courses {
		cp := *c
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r *fakeCourseRepo) GetLesson(ctx context.Context, tx *gorm.DB, lessonID uint) (*models.Lesson, error) {
	l, ok := r.s.lessons[lessonID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *fakeCourseRepo) UpdateLesson(ctx context.Context, tx *gorm.DB, l *models.Lesson) error {
	cp := *l
	r.s.lessons[l.ID] = &cp
	return nil
}

type fakeEnrollRepo struct{ s *fakeStore }

func (r *fakeEnrollRepo) Create(ctx context.Context, tx *gorm.DB, e *models.Enrollment) error {
	for _, existing := range r.s.enrollments {
		if existing.CourseID == e.CourseID && existing.LearnerID == e.LearnerID {
			return gorm.ErrDuplicatedKey
		}
	}
	e.ID = r.s.id()
	cp := *e
	r.s.enrollments[e.ID] = &cp
	return nil
}

func (r *fakeEnrollRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Enrollment, error) {
	e, ok := r.s.enrollments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *fakeEnrollRepo) GetByCourseAndLearner(ctx context.Context, tx *gorm.DB, courseID uint, learnerID string) (*models.Enrollment, error) {
	for _, e := range r.s.enrollments {
		if e.CourseID == courseID && e.LearnerID == learnerID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeEnrollRepo) GetActiveForLesson(ctx context.Context, tx *gorm.DB, lessonID uint, learnerID string) (*models.Enrollment, error) {
	courseID, ok := r.s.lessonCourse[lessonID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for _, e := range r.s.enrollments {
		if e.CourseID == courseID && e.LearnerID == learnerID && e.Status == models.EnrollmentActive {
			cp := *e
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeEnrollRepo) Update(ctx context.Context, tx *gorm.DB, e *models.Enrollment) error {
	if _, ok := r.s.enrollments[e.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *e
	r.s.enrollments[e.ID] = &cp
	return nil
}

func (r *fakeEnrollRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.EnrollmentFilters) ([]*models.Enrollment, int64, error) {
	var out []*models.Enrollment
	for _, e := range r.s.enrollments {
		if filters.CourseID != nil && e.CourseID != *filters.CourseID {
			continue
		}
		if filters.LearnerID != nil && e.LearnerID != *filters.LearnerID {
			continue
		}
		if filters.Status != nil && e.Status != *filters.Status {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

// ===== USERS =====

type fakeUserRepo struct{ s *fakeStore }

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			cp := *u
			out[id] = &cp
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := r.s.users[id]
	return ok, nil
}
