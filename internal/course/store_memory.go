package course

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mind-engage/learning-site/internal/forms"
)

// MemoryStore keeps everything in maps guarded by one mutex. The service
// tests run against it.
type MemoryStore struct {
	mu sync.Mutex

	nextID    int64
	courses   map[int64]Course
	texts     map[int64]Text
	quizzes   map[int64]Quiz
	questions map[int64]Question // Answers kept inline
	attempts  map[int64]Attempt
	usernames map[string]string // user id -> username
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		courses:   map[int64]Course{},
		texts:     map[int64]Text{},
		quizzes:   map[int64]Quiz{},
		questions: map[int64]Question{},
		attempts:  map[int64]Attempt{},
		usernames: map[string]string{},
	}
}

// SetUsername records the username shown for, and matched against, a
// course author.
func (m *MemoryStore) SetUsername(userID, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usernames[userID] = username
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) CreateCourse(_ context.Context, c Course) (Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	c.CreatedAt = time.Now().Unix()
	c.StepCount = 0
	m.courses[c.ID] = c
	return c, nil
}

func (m *MemoryStore) UpdateCourse(_ context.Context, c Course) (Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.courses[c.ID]
	if !ok {
		return Course{}, fmt.Errorf("course %d: %w", c.ID, ErrNotFound)
	}
	cur.Title, cur.Description, cur.Subject = c.Title, c.Description, c.Subject
	cur.Length, cur.Published = c.Length, c.Published
	m.courses[c.ID] = cur
	return m.courseView(cur), nil
}

func (m *MemoryStore) GetCourse(_ context.Context, id int64) (Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return Course{}, fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	return m.courseView(c), nil
}

func (m *MemoryStore) ListCourses(_ context.Context, opts CourseListOpts) ([]Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(opts.Q))
	out := []Course{}
	for _, c := range m.courses {
		if opts.PublishedOnly && !c.Published {
			continue
		}
		if opts.Teacher != "" && c.TeacherID != opts.Teacher && m.usernames[c.TeacherID] != opts.Teacher {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.Title), q) && !strings.Contains(strings.ToLower(c.Description), q) {
			continue
		}
		out = append(out, m.courseView(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) courseView(c Course) Course {
	n := 0
	for _, t := range m.texts {
		if t.CourseID == c.ID {
			n++
		}
	}
	for _, q := range m.quizzes {
		if q.CourseID == c.ID {
			n++
		}
	}
	c.StepCount = n
	c.Teacher = m.usernames[c.TeacherID]
	return c
}

func (m *MemoryStore) CreateText(_ context.Context, t Text) (Text, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[t.CourseID]; !ok {
		return Text{}, fmt.Errorf("course %d: %w", t.CourseID, ErrNotFound)
	}
	t.ID = m.id()
	m.texts[t.ID] = t
	return t, nil
}

func (m *MemoryStore) UpdateText(_ context.Context, t Text) (Text, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.texts[t.ID]
	if !ok {
		return Text{}, fmt.Errorf("text %d: %w", t.ID, ErrNotFound)
	}
	t.CourseID = cur.CourseID
	m.texts[t.ID] = t
	return t, nil
}

func (m *MemoryStore) GetText(_ context.Context, id int64) (Text, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.texts[id]
	if !ok {
		return Text{}, fmt.Errorf("text %d: %w", id, ErrNotFound)
	}
	return t, nil
}

func (m *MemoryStore) ListTexts(_ context.Context, courseID int64) ([]Text, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Text
	for _, t := range m.texts {
		if t.CourseID == courseID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) CreateQuiz(_ context.Context, q Quiz) (Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[q.CourseID]; !ok {
		return Quiz{}, fmt.Errorf("course %d: %w", q.CourseID, ErrNotFound)
	}
	q.ID = m.id()
	q.TimesTaken = 0
	m.quizzes[q.ID] = q
	return q, nil
}

func (m *MemoryStore) UpdateQuiz(_ context.Context, q Quiz) (Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.quizzes[q.ID]
	if !ok {
		return Quiz{}, fmt.Errorf("quiz %d: %w", q.ID, ErrNotFound)
	}
	cur.Title, cur.Description, cur.Order, cur.TotalQuestions = q.Title, q.Description, q.Order, q.TotalQuestions
	m.quizzes[q.ID] = cur
	return m.quizView(cur), nil
}

func (m *MemoryStore) GetQuiz(_ context.Context, id int64) (Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, fmt.Errorf("quiz %d: %w", id, ErrNotFound)
	}
	return m.quizView(q), nil
}

func (m *MemoryStore) ListQuizzes(_ context.Context, courseID int64) ([]Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Quiz
	for _, q := range m.quizzes {
		if q.CourseID == courseID {
			out = append(out, m.quizView(q))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) quizView(q Quiz) Quiz {
	n := 0
	for _, a := range m.attempts {
		if a.QuizID == q.ID && a.Completed {
			n++
		}
	}
	q.TimesTaken = n
	return q
}

func (m *MemoryStore) CreateQuestion(_ context.Context, q Question, answers []forms.AnswerRow) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	quiz, ok := m.quizzes[q.QuizID]
	if !ok {
		return Question{}, fmt.Errorf("quiz %d: %w", q.QuizID, ErrNotFound)
	}
	q.ID = m.id()
	q.Answers = nil
	next, err := m.applyAnswers(q, answers, nil)
	if err != nil {
		return Question{}, err
	}
	m.questions[q.ID] = next
	quiz.TotalQuestions++
	m.quizzes[quiz.ID] = quiz
	return cloneQuestion(next), nil
}

func (m *MemoryStore) UpdateQuestion(_ context.Context, q Question, save []forms.AnswerRow, deleteIDs []int64) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.questions[q.ID]
	if !ok || cur.QuizID != q.QuizID {
		return Question{}, fmt.Errorf("question %d: %w", q.ID, ErrNotFound)
	}
	cur.Order, cur.Prompt, cur.ShuffleAnswers = q.Order, q.Prompt, q.ShuffleAnswers
	next, err := m.applyAnswers(cur, save, deleteIDs)
	if err != nil {
		return Question{}, err
	}
	m.questions[q.ID] = next
	return cloneQuestion(next), nil
}

func (m *MemoryStore) DeleteQuestion(_ context.Context, quizID, questionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.questions[questionID]
	if !ok || cur.QuizID != quizID {
		return fmt.Errorf("question %d: %w", questionID, ErrNotFound)
	}
	delete(m.questions, questionID)
	if quiz, ok := m.quizzes[quizID]; ok && quiz.TotalQuestions > 0 {
		quiz.TotalQuestions--
		m.quizzes[quizID] = quiz
	}
	return nil
}

func (m *MemoryStore) GetQuestion(_ context.Context, id int64) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, fmt.Errorf("question %d: %w", id, ErrNotFound)
	}
	return cloneQuestion(q), nil
}

func (m *MemoryStore) ListQuestions(_ context.Context, quizID int64) ([]Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Question
	for _, q := range m.questions {
		if q.QuizID == quizID {
			out = append(out, cloneQuestion(q))
		}
	}
	sortQuestions(out)
	return out, nil
}

func (m *MemoryStore) SaveAnswers(_ context.Context, questionID int64, save []forms.AnswerRow, deleteIDs []int64) ([]Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.questions[questionID]
	if !ok {
		return nil, fmt.Errorf("question %d: %w", questionID, ErrNotFound)
	}
	next, err := m.applyAnswers(cur, save, deleteIDs)
	if err != nil {
		return nil, err
	}
	m.questions[questionID] = next
	return cloneQuestion(next).Answers, nil
}

// applyAnswers works on a copy so a failed row leaves the stored question
// untouched.
func (m *MemoryStore) applyAnswers(q Question, save []forms.AnswerRow, deleteIDs []int64) (Question, error) {
	byID := map[int64]Answer{}
	for _, a := range q.Answers {
		byID[a.ID] = a
	}
	for _, id := range deleteIDs {
		if _, ok := byID[id]; !ok {
			return Question{}, fmt.Errorf("answer %d: %w", id, ErrNotFound)
		}
		delete(byID, id)
	}
	for _, r := range save {
		a := Answer{ID: r.ID, QuestionID: q.ID, Order: r.Order, Text: r.Text, Correct: r.Correct}
		if r.ID != 0 {
			if _, ok := byID[r.ID]; !ok {
				return Question{}, fmt.Errorf("answer %d: %w", r.ID, ErrNotFound)
			}
		} else {
			a.ID = m.id()
		}
		byID[a.ID] = a
	}
	q.Answers = make([]Answer, 0, len(byID))
	for _, a := range byID {
		q.Answers = append(q.Answers, a)
	}
	sortAnswers(q.Answers)
	return q, nil
}

func cloneQuestion(q Question) Question {
	q.Answers = append([]Answer(nil), q.Answers...)
	return q
}

func (m *MemoryStore) findAttempt(userID string, quizID int64) (Attempt, bool) {
	for _, a := range m.attempts {
		if a.UserID == userID && a.QuizID == quizID {
			return a, true
		}
	}
	return Attempt{}, false
}

func (m *MemoryStore) GetAttempt(_ context.Context, userID string, quizID int64) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.findAttempt(userID, quizID)
	if !ok {
		return Attempt{}, fmt.Errorf("attempt for quiz %d: %w", quizID, ErrNotFound)
	}
	return a, nil
}

func (m *MemoryStore) StartAttempt(_ context.Context, userID string, quizID int64, retake bool) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[quizID]; !ok {
		return Attempt{}, fmt.Errorf("quiz %d: %w", quizID, ErrNotFound)
	}
	if cur, ok := m.findAttempt(userID, quizID); ok {
		switch {
		case retake:
			delete(m.attempts, cur.ID)
		case cur.Completed:
			return Attempt{}, ErrAlreadyTaken
		default:
			return cur, nil
		}
	}
	a := Attempt{ID: m.id(), UserID: userID, QuizID: quizID, CreatedAt: time.Now().Unix()}
	m.attempts[a.ID] = a
	return a, nil
}

func (m *MemoryStore) CompleteAttempt(_ context.Context, attemptID int64, correct int) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return Attempt{}, fmt.Errorf("attempt %d: %w", attemptID, ErrNotFound)
	}
	if a.Completed {
		return Attempt{}, ErrAttemptCompleted
	}
	a.CorrectAnswers = correct
	a.Completed = true
	m.attempts[attemptID] = a
	return a, nil
}

func (m *MemoryStore) ListTakenQuizzes(_ context.Context, userID string) ([]TakenQuiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []TakenQuiz{}
	for _, a := range m.attempts {
		if a.UserID != userID || !a.Completed {
			continue
		}
		q := m.quizView(m.quizzes[a.QuizID])
		out = append(out, TakenQuiz{Attempt: a, Quiz: q, CourseID: q.CourseID})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Attempt.CreatedAt != out[j].Attempt.CreatedAt {
			return out[i].Attempt.CreatedAt > out[j].Attempt.CreatedAt
		}
		return out[i].Attempt.ID > out[j].Attempt.ID
	})
	return out, nil
}

func (m *MemoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []Attempt{}
	for _, a := range m.attempts {
		if a.QuizID != opts.QuizID || (opts.CompletedOnly && !a.Completed) {
			continue
		}
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	limit := opts.Limit
	switch {
	case limit <= 0:
		limit = 50
	case limit > 500:
		limit = 500
	}
	offset := max(opts.Offset, 0)
	if offset >= len(all) {
		return []Attempt{}, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLStore)(nil)
)
