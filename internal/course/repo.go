package course

import (
	"context"

	"github.com/mind-engage/learning-site/internal/forms"
)

type CourseListOpts struct {
	Q             string // title/description substring, case-insensitive
	Teacher       string // author user id or username
	PublishedOnly bool
}

// AttemptListOpts filters the staff attempt listing. A zero Limit means 50.
type AttemptListOpts struct {
	QuizID        int64
	CompletedOnly bool
	Limit         int
	Offset        int
}

// Store is the persistence boundary. Every method that touches more than one
// row runs as a single transaction.
type Store interface {
	CreateCourse(ctx context.Context, c Course) (Course, error)
	UpdateCourse(ctx context.Context, c Course) (Course, error)
	GetCourse(ctx context.Context, id int64) (Course, error)
	ListCourses(ctx context.Context, opts CourseListOpts) ([]Course, error)

	CreateText(ctx context.Context, t Text) (Text, error)
	UpdateText(ctx context.Context, t Text) (Text, error)
	GetText(ctx context.Context, id int64) (Text, error)
	ListTexts(ctx context.Context, courseID int64) ([]Text, error)

	CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
	UpdateQuiz(ctx context.Context, q Quiz) (Quiz, error)
	GetQuiz(ctx context.Context, id int64) (Quiz, error)
	ListQuizzes(ctx context.Context, courseID int64) ([]Quiz, error)

	// CreateQuestion inserts the question with its answers and bumps the
	// quiz's total_questions.
	CreateQuestion(ctx context.Context, q Question, answers []forms.AnswerRow) (Question, error)
	// UpdateQuestion rewrites the question fields and applies the answer rows.
	UpdateQuestion(ctx context.Context, q Question, save []forms.AnswerRow, deleteIDs []int64) (Question, error)
	// DeleteQuestion removes the question (answers cascade) and decrements
	// the quiz's total_questions.
	DeleteQuestion(ctx context.Context, quizID, questionID int64) error
	GetQuestion(ctx context.Context, id int64) (Question, error)
	// ListQuestions returns the quiz's questions with answers, both ordered.
	ListQuestions(ctx context.Context, quizID int64) ([]Question, error)
	SaveAnswers(ctx context.Context, questionID int64, save []forms.AnswerRow, deleteIDs []int64) ([]Answer, error)

	GetAttempt(ctx context.Context, userID string, quizID int64) (Attempt, error)
	// StartAttempt returns the caller's unfinished attempt or creates one.
	// With retake set any existing attempt is replaced by a fresh one.
	// Without it a completed attempt yields ErrAlreadyTaken.
	StartAttempt(ctx context.Context, userID string, quizID int64, retake bool) (Attempt, error)
	// CompleteAttempt stores the score and marks the attempt completed,
	// provided it was not completed already (ErrAttemptCompleted).
	CompleteAttempt(ctx context.Context, attemptID int64, correct int) (Attempt, error)
	ListTakenQuizzes(ctx context.Context, userID string) ([]TakenQuiz, error)
	// ListAttempts returns one quiz's attempts, oldest first.
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
}
