package course

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mind-engage/learning-site/internal/forms"
	syncx "github.com/mind-engage/learning-site/internal/sync"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	events *syncx.EventRepo
}

func NewSQLStore(db *sql.DB, driver string, events *syncx.EventRepo) *SQLStore {
	if events == nil {
		events = syncx.NewEventRepo("")
	}
	return &SQLStore{db: db, driver: driver, events: events}
}

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	return fn(tx)
}

func notFound(err error, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return err
}

// ---- courses ----

const courseCols = `c.id, c.title, c.description, c.subject, c.course_length, c.published, c.teacher_id,
	COALESCE((SELECT u.username FROM users u WHERE u.id=c.teacher_id), ''), c.created_at,
	(SELECT COUNT(*) FROM texts t WHERE t.course_id=c.id) + (SELECT COUNT(*) FROM quizzes z WHERE z.course_id=c.id)`

func scanCourse(sc interface{ Scan(...any) error }) (Course, error) {
	var c Course
	err := sc.Scan(&c.ID, &c.Title, &c.Description, &c.Subject, &c.Length, &c.Published, &c.TeacherID, &c.Teacher, &c.CreatedAt, &c.StepCount)
	return c, err
}

func (s *SQLStore) CreateCourse(ctx context.Context, c Course) (Course, error) {
	c.CreatedAt = time.Now().Unix()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO courses (title, description, subject, course_length, published, teacher_id, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		c.Title, c.Description, c.Subject, c.Length, c.Published, c.TeacherID, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return Course{}, err
	}
	return s.GetCourse(ctx, c.ID)
}

func (s *SQLStore) UpdateCourse(ctx context.Context, c Course) (Course, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE courses SET title=$1, description=$2, subject=$3, course_length=$4, published=$5 WHERE id=$6`,
		c.Title, c.Description, c.Subject, c.Length, c.Published, c.ID)
	if err := affected(res, err, "course", c.ID); err != nil {
		return Course{}, err
	}
	return s.GetCourse(ctx, c.ID)
}

func (s *SQLStore) GetCourse(ctx context.Context, id int64) (Course, error) {
	c, err := scanCourse(s.db.QueryRowContext(ctx, `SELECT `+courseCols+` FROM courses c WHERE c.id=$1`, id))
	if err != nil {
		return Course{}, notFound(err, "course", id)
	}
	return c, nil
}

func (s *SQLStore) ListCourses(ctx context.Context, opts CourseListOpts) ([]Course, error) {
	sqlStr := `SELECT ` + courseCols + ` FROM courses c WHERE 1=1`
	var args []any
	if opts.PublishedOnly {
		sqlStr += ` AND c.published = TRUE`
	}
	if opts.Teacher != "" {
		args = append(args, opts.Teacher)
		n := strconv.Itoa(len(args))
		sqlStr += ` AND (c.teacher_id=$` + n + ` OR c.teacher_id IN (SELECT id FROM users WHERE username=$` + n + `))`
	}
	if q := strings.TrimSpace(opts.Q); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		n := strconv.Itoa(len(args))
		sqlStr += ` AND (LOWER(c.title) LIKE $` + n + ` OR LOWER(c.description) LIKE $` + n + `)`
	}
	sqlStr += ` ORDER BY c.created_at DESC, c.id DESC`

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ---- texts ----

const textCols = `id, course_id, title, description, sort_order, video_name, video_key, content`

func scanText(sc interface{ Scan(...any) error }) (Text, error) {
	var t Text
	err := sc.Scan(&t.ID, &t.CourseID, &t.Title, &t.Description, &t.Order, &t.VideoName, &t.VideoKey, &t.Content)
	return t, err
}

func (s *SQLStore) CreateText(ctx context.Context, t Text) (Text, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO texts (course_id, title, description, sort_order, video_name, video_key, content)
		 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		t.CourseID, t.Title, t.Description, t.Order, t.VideoName, t.VideoKey, t.Content).Scan(&t.ID)
	if err != nil {
		return Text{}, err
	}
	return t, nil
}

func (s *SQLStore) UpdateText(ctx context.Context, t Text) (Text, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE texts SET title=$1, description=$2, sort_order=$3, video_name=$4, video_key=$5, content=$6 WHERE id=$7`,
		t.Title, t.Description, t.Order, t.VideoName, t.VideoKey, t.Content, t.ID)
	if err := affected(res, err, "text", t.ID); err != nil {
		return Text{}, err
	}
	return s.GetText(ctx, t.ID)
}

func (s *SQLStore) GetText(ctx context.Context, id int64) (Text, error) {
	t, err := scanText(s.db.QueryRowContext(ctx, `SELECT `+textCols+` FROM texts WHERE id=$1`, id))
	if err != nil {
		return Text{}, notFound(err, "text", id)
	}
	return t, nil
}

func (s *SQLStore) ListTexts(ctx context.Context, courseID int64) ([]Text, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+textCols+` FROM texts WHERE course_id=$1 ORDER BY sort_order, id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Text
	for rows.Next() {
		t, err := scanText(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ---- quizzes ----

const quizCols = `q.id, q.course_id, q.title, q.description, q.sort_order, q.total_questions,
	(SELECT COUNT(*) FROM quiz_takers a WHERE a.quiz_id=q.id AND a.completed = TRUE)`

func scanQuiz(sc interface{ Scan(...any) error }) (Quiz, error) {
	var q Quiz
	err := sc.Scan(&q.ID, &q.CourseID, &q.Title, &q.Description, &q.Order, &q.TotalQuestions, &q.TimesTaken)
	return q, err
}

func (s *SQLStore) CreateQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO quizzes (course_id, title, description, sort_order, total_questions)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		q.CourseID, q.Title, q.Description, q.Order, q.TotalQuestions).Scan(&q.ID)
	if err != nil {
		return Quiz{}, err
	}
	return q, nil
}

func (s *SQLStore) UpdateQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quizzes SET title=$1, description=$2, sort_order=$3, total_questions=$4 WHERE id=$5`,
		q.Title, q.Description, q.Order, q.TotalQuestions, q.ID)
	if err := affected(res, err, "quiz", q.ID); err != nil {
		return Quiz{}, err
	}
	return s.GetQuiz(ctx, q.ID)
}

func (s *SQLStore) GetQuiz(ctx context.Context, id int64) (Quiz, error) {
	return getQuiz(ctx, s.db, id)
}

func getQuiz(ctx context.Context, x queryer, id int64) (Quiz, error) {
	q, err := scanQuiz(x.QueryRowContext(ctx, `SELECT `+quizCols+` FROM quizzes q WHERE q.id=$1`, id))
	if err != nil {
		return Quiz{}, notFound(err, "quiz", id)
	}
	return q, nil
}

func (s *SQLStore) ListQuizzes(ctx context.Context, courseID int64) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+quizCols+` FROM quizzes q WHERE q.course_id=$1 ORDER BY q.sort_order, q.id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ---- questions & answers ----

func (s *SQLStore) CreateQuestion(ctx context.Context, q Question, answers []forms.AnswerRow) (Question, error) {
	var out Question
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE quizzes SET total_questions = total_questions + 1 WHERE id=$1`, q.QuizID)
		if err := affected(res, err, "quiz", q.QuizID); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO questions (quiz_id, sort_order, prompt, question_type, shuffle_answers)
			 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
			q.QuizID, q.Order, q.Prompt, string(q.Type), q.ShuffleAnswers).Scan(&q.ID); err != nil {
			return err
		}
		if err := applyAnswers(ctx, tx, q.ID, answers, nil); err != nil {
			return err
		}
		out, err = getQuestion(ctx, tx, q.ID)
		return err
	})
	return out, err
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, q Question, save []forms.AnswerRow, deleteIDs []int64) (Question, error) {
	var out Question
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE questions SET sort_order=$1, prompt=$2, shuffle_answers=$3 WHERE id=$4 AND quiz_id=$5`,
			q.Order, q.Prompt, q.ShuffleAnswers, q.ID, q.QuizID)
		if err := affected(res, err, "question", q.ID); err != nil {
			return err
		}
		if err := applyAnswers(ctx, tx, q.ID, save, deleteIDs); err != nil {
			return err
		}
		out, err = getQuestion(ctx, tx, q.ID)
		return err
	})
	return out, err
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, quizID, questionID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM answers WHERE question_id=$1`, questionID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id=$1 AND quiz_id=$2`, questionID, quizID)
		if err := affected(res, err, "question", questionID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE quizzes SET total_questions = CASE WHEN total_questions > 0 THEN total_questions - 1 ELSE 0 END WHERE id=$1`,
			quizID)
		return err
	})
}

func (s *SQLStore) GetQuestion(ctx context.Context, id int64) (Question, error) {
	return getQuestion(ctx, s.db, id)
}

func getQuestion(ctx context.Context, x queryer, id int64) (Question, error) {
	var q Question
	var typ string
	err := x.QueryRowContext(ctx,
		`SELECT id, quiz_id, sort_order, prompt, question_type, shuffle_answers FROM questions WHERE id=$1`, id).
		Scan(&q.ID, &q.QuizID, &q.Order, &q.Prompt, &typ, &q.ShuffleAnswers)
	if err != nil {
		return Question{}, notFound(err, "question", id)
	}
	q.Type = QuestionType(typ)
	q.Answers, err = listAnswers(ctx, x, `WHERE a.question_id=$1`, id)
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

func (s *SQLStore) ListQuestions(ctx context.Context, quizID int64) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, quiz_id, sort_order, prompt, question_type, shuffle_answers
		   FROM questions WHERE quiz_id=$1 ORDER BY sort_order, id`, quizID)
	if err != nil {
		return nil, err
	}
	var out []Question
	for rows.Next() {
		var q Question
		var typ string
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Order, &q.Prompt, &typ, &q.ShuffleAnswers); err != nil {
			rows.Close()
			return nil, err
		}
		q.Type = QuestionType(typ)
		out = append(out, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	answers, err := listAnswers(ctx, s.db,
		`JOIN questions q ON q.id=a.question_id WHERE q.quiz_id=$1`, quizID)
	if err != nil {
		return nil, err
	}
	byQuestion := map[int64][]Answer{}
	for _, a := range answers {
		byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], a)
	}
	for i := range out {
		out[i].Answers = byQuestion[out[i].ID]
	}
	return out, nil
}

func listAnswers(ctx context.Context, x queryer, where string, arg any) ([]Answer, error) {
	rows, err := x.QueryContext(ctx,
		`SELECT a.id, a.question_id, a.sort_order, a.text, a.correct FROM answers a `+where+` ORDER BY a.sort_order, a.id`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Answer
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Order, &a.Text, &a.Correct); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) SaveAnswers(ctx context.Context, questionID int64, save []forms.AnswerRow, deleteIDs []int64) ([]Answer, error) {
	var out []Answer
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM questions WHERE id=$1`, questionID).Scan(&one); err != nil {
			return notFound(err, "question", questionID)
		}
		if err := applyAnswers(ctx, tx, questionID, save, deleteIDs); err != nil {
			return err
		}
		var err error
		out, err = listAnswers(ctx, tx, `WHERE a.question_id=$1`, questionID)
		return err
	})
	return out, err
}

// applyAnswers deletes, updates and inserts answer rows of one question.
// Rows or ids that belong to another question are reported as not found.
func applyAnswers(ctx context.Context, tx *sql.Tx, questionID int64, save []forms.AnswerRow, deleteIDs []int64) error {
	for _, id := range deleteIDs {
		res, err := tx.ExecContext(ctx, `DELETE FROM answers WHERE id=$1 AND question_id=$2`, id, questionID)
		if err := affected(res, err, "answer", id); err != nil {
			return err
		}
	}
	for _, r := range save {
		if r.ID != 0 {
			res, err := tx.ExecContext(ctx,
				`UPDATE answers SET sort_order=$1, text=$2, correct=$3 WHERE id=$4 AND question_id=$5`,
				r.Order, r.Text, r.Correct, r.ID, questionID)
			if err := affected(res, err, "answer", r.ID); err != nil {
				return err
			}
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO answers (question_id, sort_order, text, correct) VALUES ($1,$2,$3,$4)`,
			questionID, r.Order, r.Text, r.Correct); err != nil {
			return err
		}
	}
	return nil
}

// ---- attempts ----

const attemptCols = `id, user_id, quiz_id, correct_answers, completed, created_at`

func scanAttempt(sc interface{ Scan(...any) error }) (Attempt, error) {
	var a Attempt
	err := sc.Scan(&a.ID, &a.UserID, &a.QuizID, &a.CorrectAnswers, &a.Completed, &a.CreatedAt)
	return a, err
}

func (s *SQLStore) GetAttempt(ctx context.Context, userID string, quizID int64) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM quiz_takers WHERE user_id=$1 AND quiz_id=$2`, userID, quizID))
	if err != nil {
		return Attempt{}, notFound(err, "attempt for quiz", quizID)
	}
	return a, nil
}

func (s *SQLStore) StartAttempt(ctx context.Context, userID string, quizID int64, retake bool) (Attempt, error) {
	var out Attempt
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getQuiz(ctx, tx, quizID); err != nil {
			return err
		}
		now := time.Now().Unix()
		typ := syncx.TypeAttemptStarted
		if retake {
			res, err := tx.ExecContext(ctx, `DELETE FROM quiz_takers WHERE user_id=$1 AND quiz_id=$2`, userID, quizID)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				typ = syncx.TypeAttemptRetaken
			}
		}
		a, err := scanAttempt(tx.QueryRowContext(ctx,
			`INSERT INTO quiz_takers (user_id, quiz_id, correct_answers, completed, created_at)
			 VALUES ($1,$2,0,FALSE,$3)
			 ON CONFLICT (user_id, quiz_id) DO NOTHING
			 RETURNING `+attemptCols, userID, quizID, now))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			existing, err := scanAttempt(tx.QueryRowContext(ctx,
				`SELECT `+attemptCols+` FROM quiz_takers WHERE user_id=$1 AND quiz_id=$2`, userID, quizID))
			if err != nil {
				return err
			}
			if existing.Completed {
				return ErrAlreadyTaken
			}
			out = existing
			return nil
		case err != nil:
			return err
		}
		out = a
		ev, err := syncx.NewEvent(typ, strconv.FormatInt(a.ID, 10), a)
		if err != nil {
			return err
		}
		return s.events.Append(ctx, tx, ev)
	})
	return out, err
}

func (s *SQLStore) CompleteAttempt(ctx context.Context, attemptID int64, correct int) (Attempt, error) {
	var out Attempt
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE quiz_takers SET correct_answers=$1, completed=TRUE WHERE id=$2 AND completed = FALSE`,
			correct, attemptID)
		if err != nil {
			return err
		}
		a, err := scanAttempt(tx.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM quiz_takers WHERE id=$1`, attemptID))
		if err != nil {
			return notFound(err, "attempt", attemptID)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrAttemptCompleted
		}
		out = a
		ev, err := syncx.NewEvent(syncx.TypeAttemptGraded, strconv.FormatInt(a.ID, 10), a)
		if err != nil {
			return err
		}
		return s.events.Append(ctx, tx, ev)
	})
	return out, err
}

func (s *SQLStore) ListTakenQuizzes(ctx context.Context, userID string) ([]TakenQuiz, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.user_id, a.quiz_id, a.correct_answers, a.completed, a.created_at,
		        `+quizCols+`
		   FROM quiz_takers a JOIN quizzes q ON q.id=a.quiz_id
		  WHERE a.user_id=$1 AND a.completed = TRUE
		  ORDER BY a.created_at DESC, a.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TakenQuiz{}
	for rows.Next() {
		var t TakenQuiz
		a, qz := &t.Attempt, &t.Quiz
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuizID, &a.CorrectAnswers, &a.Completed, &a.CreatedAt,
			&qz.ID, &qz.CourseID, &qz.Title, &qz.Description, &qz.Order, &qz.TotalQuestions, &qz.TimesTaken); err != nil {
			return nil, err
		}
		t.CourseID = qz.CourseID
		out = append(out, t)
	}
	return out, rows.Err()
}

func affected(res sql.Result, err error, what string, id any) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	limit := opts.Limit
	switch {
	case limit <= 0:
		limit = 50
	case limit > 500:
		limit = 500
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + attemptCols + ` FROM quiz_takers WHERE quiz_id=$1`
	if opts.CompletedOnly {
		q += ` AND completed = TRUE`
	}
	q += ` ORDER BY id LIMIT $2 OFFSET $3`
	rows, err := s.db.QueryContext(ctx, q, opts.QuizID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
