package course

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/learning-site/internal/db"
	"github.com/mind-engage/learning-site/internal/forms"
	syncx "github.com/mind-engage/learning-site/internal/sync"
)

func newSQLStore(t *testing.T) (*SQLStore, *sql.DB) {
	t.Helper()
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbh.Close() })
	_, err = dbh.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5)`,
		staff.UserID, "mrsmith", "x", "staff", 1)
	require.NoError(t, err)
	return NewSQLStore(dbh, string(db.DriverSQLite), nil), dbh
}

func TestSQLStoreGradingFlow(t *testing.T) {
	ctx := context.Background()
	store, dbh := newSQLStore(t)
	svc := NewService(store)
	al := seedAlgebra(t, svc)

	c, err := store.GetCourse(ctx, al.course.ID)
	require.NoError(t, err)
	assert.Equal(t, "mrsmith", c.Teacher)
	assert.Equal(t, 1, c.StepCount)

	qs, err := store.ListQuestions(ctx, al.quiz.ID)
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, MultipleChoice, qs[0].Type)
	assert.Len(t, qs[0].Answers, 2)
	assert.Equal(t, UserInput, qs[1].Type)

	_, err = svc.Take(ctx, student, al.course.ID, al.quiz.ID, false)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, student, al.course.ID, al.quiz.ID, map[int64]string{al.q1.ID: id(al.q1Right)})
	require.ErrorIs(t, err, ErrUnanswered)

	res, err := svc.Submit(ctx, student, al.course.ID, al.quiz.ID, map[int64]string{al.q1.ID: id(al.q1Wrong), al.q2.ID: "42"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempt.CorrectAnswers)
	assert.True(t, res.Attempt.Completed)
	assert.Equal(t, 1, res.Quiz.TimesTaken)

	_, err = store.CompleteAttempt(ctx, res.Attempt.ID, 2)
	assert.ErrorIs(t, err, ErrAttemptCompleted)
	_, err = store.CompleteAttempt(ctx, 424242, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Take(ctx, student, al.course.ID, al.quiz.ID, false)
	assert.ErrorIs(t, err, ErrAlreadyTaken)
	fresh, err := svc.Take(ctx, student, al.course.ID, al.quiz.ID, true)
	require.NoError(t, err)
	assert.False(t, fresh.Completed)
	assert.Equal(t, 0, fresh.CorrectAnswers)

	var n int
	require.NoError(t, dbh.QueryRowContext(ctx, `SELECT COUNT(*) FROM quiz_takers`).Scan(&n))
	assert.Equal(t, 1, n)

	events, err := syncx.NewEventRepo("").Since(ctx, dbh, 0, 10)
	require.NoError(t, err)
	var types []string
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{syncx.TypeAttemptStarted, syncx.TypeAttemptGraded, syncx.TypeAttemptRetaken}, types)

	taken, err := store.ListTakenQuizzes(ctx, student.UserID)
	require.NoError(t, err)
	assert.Empty(t, taken, "retake replaced the completed attempt")
}

func TestSQLStoreQuestionCounterAndCascade(t *testing.T) {
	ctx := context.Background()
	store, dbh := newSQLStore(t)
	svc := NewService(store)
	al := seedAlgebra(t, svc)

	qz, err := store.GetQuiz(ctx, al.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, qz.TotalQuestions)

	require.NoError(t, store.DeleteQuestion(ctx, al.quiz.ID, al.q1.ID))
	qz, err = store.GetQuiz(ctx, al.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, qz.TotalQuestions)

	var n int
	require.NoError(t, dbh.QueryRowContext(ctx, `SELECT COUNT(*) FROM answers WHERE question_id=$1`, al.q1.ID).Scan(&n))
	assert.Zero(t, n)

	assert.ErrorIs(t, store.DeleteQuestion(ctx, al.quiz.ID, al.q1.ID), ErrNotFound)

	_, err = store.CreateQuestion(ctx, Question{QuizID: 999, Prompt: "?", Type: MultipleChoice}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStoreSaveAnswersIsAtomic(t *testing.T) {
	ctx := context.Background()
	store, _ := newSQLStore(t)
	svc := NewService(store)
	al := seedAlgebra(t, svc)

	_, err := store.SaveAnswers(ctx, al.q2.ID, []forms.AnswerRow{
		{Text: "forty-two"},
		{ID: al.q1Right, Text: "hijack"},
	}, nil)
	require.ErrorIs(t, err, ErrNotFound)

	q2, err := store.GetQuestion(ctx, al.q2.ID)
	require.NoError(t, err)
	require.Len(t, q2.Answers, 1, "insert rolled back")
	assert.Equal(t, "42", q2.Answers[0].Text)

	got, err := store.SaveAnswers(ctx, al.q2.ID, []forms.AnswerRow{
		{ID: q2.Answers[0].ID, Text: "42", Correct: true},
		{Order: 1, Text: "forty-two"},
	}, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLStoreListCourses(t *testing.T) {
	ctx := context.Background()
	store, _ := newSQLStore(t)
	svc := NewService(store)

	_, err := svc.CreateCourse(ctx, staff, forms.CourseForm{Title: "Hidden", Description: "draft"})
	require.NoError(t, err)
	live, err := svc.CreateCourse(ctx, staff, forms.CourseForm{Title: "Chemistry", Description: "Atoms", Published: true})
	require.NoError(t, err)

	got, err := store.ListCourses(ctx, CourseListOpts{PublishedOnly: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, live.ID, got[0].ID)

	got, err = store.ListCourses(ctx, CourseListOpts{Q: "atom", Teacher: staff.UserID})
	require.NoError(t, err)
	require.Len(t, got, 1)

	byName, err := svc.ListCourses(ctx, Viewer{}, "", "mrsmith")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, live.ID, byName[0].ID)
	assert.Equal(t, "mrsmith", byName[0].Teacher)
	byName, err = svc.ListCourses(ctx, Viewer{}, "", "mrjones")
	require.NoError(t, err)
	assert.Empty(t, byName)

	got, err = store.ListCourses(ctx, CourseListOpts{})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = store.GetCourse(ctx, 777)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStoreListAttemptsCapsLimit(t *testing.T) {
	ctx := context.Background()
	store, dbh := newSQLStore(t)
	svc := NewService(store)
	c, err := svc.CreateCourse(ctx, staff, forms.CourseForm{Title: "Big", Description: "class"})
	require.NoError(t, err)
	qz, err := svc.CreateQuiz(ctx, staff, c.ID, forms.QuizForm{Title: "Roll call"})
	require.NoError(t, err)

	tx, err := dbh.BeginTx(ctx, nil)
	require.NoError(t, err)
	for i := 0; i < 520; i++ {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO quiz_takers (user_id, quiz_id, correct_answers, completed, created_at) VALUES ($1,$2,0,FALSE,$3)`,
			fmt.Sprintf("u-%03d", i), qz.ID, i)
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())

	got, err := store.ListAttempts(ctx, AttemptListOpts{QuizID: qz.ID, Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, got, 500)
	got, err = store.ListAttempts(ctx, AttemptListOpts{QuizID: qz.ID})
	require.NoError(t, err)
	assert.Len(t, got, 50)
	got, err = store.ListAttempts(ctx, AttemptListOpts{QuizID: qz.ID, Limit: 1000, Offset: 510})
	require.NoError(t, err)
	assert.Len(t, got, 10)
}
