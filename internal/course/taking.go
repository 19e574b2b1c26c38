package course

import (
	"context"
	"errors"
	"fmt"

	"github.com/mind-engage/learning-site/internal/grading"
)

// MsgAlreadyTaken is shown on the quiz page once the viewer has an attempt.
const MsgAlreadyTaken = "You have already taken this quiz"

type QuizDetail struct {
	Course  Course   `json:"course"`
	Quiz    Quiz     `json:"quiz"`
	Steps   []Step   `json:"steps"`
	Attempt *Attempt `json:"attempt,omitempty"`
	Message string   `json:"message,omitempty"`
}

// PublicAnswer is an answer as shown to a quiz taker.
type PublicAnswer struct {
	ID    int64  `json:"id"`
	Order int    `json:"order"`
	Text  string `json:"text"`
}

type PublicQuestion struct {
	ID      int64          `json:"id"`
	Order   int            `json:"order"`
	Prompt  string         `json:"prompt"`
	Type    QuestionType   `json:"question_type"`
	Answers []PublicAnswer `json:"answers"`
}

// QuestionSheet is everything needed to render the answering screen.
type QuestionSheet struct {
	Quiz      Quiz             `json:"quiz"`
	Attempt   Attempt          `json:"attempt"`
	Questions []PublicQuestion `json:"questions"`
}

func (s *Service) QuizDetail(ctx context.Context, v Viewer, courseID, quizID int64) (QuizDetail, error) {
	c, err := s.visibleCourse(ctx, v, courseID)
	if err != nil {
		return QuizDetail{}, err
	}
	q, err := s.quizIn(ctx, courseID, quizID)
	if err != nil {
		return QuizDetail{}, err
	}
	steps, err := s.steps(ctx, courseID)
	if err != nil {
		return QuizDetail{}, err
	}
	d := QuizDetail{Course: c, Quiz: q, Steps: steps}
	if v.authenticated() {
		a, err := s.store.GetAttempt(ctx, v.UserID, quizID)
		switch {
		case err == nil:
			d.Attempt = &a
			d.Message = MsgAlreadyTaken
		case !isNotFound(err):
			return QuizDetail{}, err
		}
	}
	return d, nil
}

// Take starts the viewer's attempt. With retake set any previous attempt is
// discarded first.
func (s *Service) Take(ctx context.Context, v Viewer, courseID, quizID int64, retake bool) (Attempt, error) {
	if !v.authenticated() {
		return Attempt{}, ErrForbidden
	}
	if _, err := s.visibleCourse(ctx, v, courseID); err != nil {
		return Attempt{}, err
	}
	if _, err := s.quizIn(ctx, courseID, quizID); err != nil {
		return Attempt{}, err
	}
	a, err := s.store.StartAttempt(ctx, v.UserID, quizID, retake)
	if err != nil {
		return Attempt{}, err
	}
	s.log.Info("attempt started", "user_id", v.UserID, "quiz_id", quizID, "attempt_id", a.ID, "retake", retake)
	return a, nil
}

// openAttempt returns the viewer's unfinished attempt on quizID.
func (s *Service) openAttempt(ctx context.Context, v Viewer, quizID int64) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, v.UserID, quizID)
	if isNotFound(err) {
		return Attempt{}, ErrNoAttempt
	}
	if err != nil {
		return Attempt{}, err
	}
	if a.Completed {
		return Attempt{}, ErrAttemptCompleted
	}
	return a, nil
}

// Questions returns the answering screen. Correct flags never leave the
// service; user-input questions carry no answers at all.
func (s *Service) Questions(ctx context.Context, v Viewer, courseID, quizID int64) (QuestionSheet, error) {
	if !v.authenticated() {
		return QuestionSheet{}, ErrForbidden
	}
	if _, err := s.visibleCourse(ctx, v, courseID); err != nil {
		return QuestionSheet{}, err
	}
	q, err := s.quizIn(ctx, courseID, quizID)
	if err != nil {
		return QuestionSheet{}, err
	}
	a, err := s.openAttempt(ctx, v, quizID)
	if err != nil {
		return QuestionSheet{}, err
	}
	questions, err := s.store.ListQuestions(ctx, quizID)
	if err != nil {
		return QuestionSheet{}, err
	}
	sheet := QuestionSheet{Quiz: q, Attempt: a, Questions: make([]PublicQuestion, 0, len(questions))}
	for _, qu := range questions {
		pq := PublicQuestion{ID: qu.ID, Order: qu.Order, Prompt: qu.Prompt, Type: qu.Type, Answers: []PublicAnswer{}}
		if qu.Type != UserInput {
			for _, an := range qu.Answers {
				pq.Answers = append(pq.Answers, PublicAnswer{ID: an.ID, Order: an.Order, Text: an.Text})
			}
		}
		if qu.Type == MultipleChoice && qu.ShuffleAnswers {
			s.shuffle(len(pq.Answers), func(i, j int) {
				pq.Answers[i], pq.Answers[j] = pq.Answers[j], pq.Answers[i]
			})
		}
		sheet.Questions = append(sheet.Questions, pq)
	}
	return sheet, nil
}

// Submit grades responses (question id to answer id, or to the typed text
// for user-input questions) against the viewer's open attempt.
//
// Questions are graded in ascending order. A missing or unusable response
// aborts the pass with ErrUnanswered and nothing is written; a question
// without exactly one correct answer aborts with ErrIntegrity.
func (s *Service) Submit(ctx context.Context, v Viewer, courseID, quizID int64, responses map[int64]string) (Result, error) {
	if !v.authenticated() {
		return Result{}, ErrForbidden
	}
	if _, err := s.visibleCourse(ctx, v, courseID); err != nil {
		return Result{}, err
	}
	if _, err := s.quizIn(ctx, courseID, quizID); err != nil {
		return Result{}, err
	}
	a, err := s.openAttempt(ctx, v, quizID)
	if err != nil {
		return Result{}, err
	}
	questions, err := s.store.ListQuestions(ctx, quizID)
	if err != nil {
		return Result{}, err
	}

	items := make([]ResultItem, 0, len(questions))
	correct := 0
	for _, q := range questions {
		item, err := s.gradeOne(ctx, q, responses[q.ID])
		if err != nil {
			s.log.Debug("submission rejected", "attempt_id", a.ID, "question_id", q.ID, "err", err)
			return Result{}, err
		}
		if item.Correct {
			correct++
		}
		items = append(items, item)
	}

	a, err = s.store.CompleteAttempt(ctx, a.ID, correct)
	if err != nil {
		return Result{}, err
	}
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return Result{}, err
	}
	s.log.Info("attempt graded", "user_id", v.UserID, "quiz_id", quizID, "attempt_id", a.ID,
		"correct", correct, "questions", len(questions))
	return Result{Quiz: quiz, Attempt: a, Items: items}, nil
}

func (s *Service) gradeOne(ctx context.Context, q Question, response string) (ResultItem, error) {
	res, err := s.grader.Grade(ctx, gradingView(q), response)
	switch {
	case errors.Is(err, grading.ErrAnswerKey):
		s.log.Error("question has no usable answer key", "question_id", q.ID, "err", err)
		return ResultItem{}, fmt.Errorf("question %d: %w", q.ID, ErrIntegrity)
	case errors.Is(err, grading.ErrNoResponse), errors.Is(err, grading.ErrUnknownChoice):
		return ResultItem{}, fmt.Errorf("question %d: %w", q.ID, ErrUnanswered)
	case err != nil:
		return ResultItem{}, err
	}
	item := ResultItem{Question: q, Given: res.Given, Correct: res.Correct}
	for i := range q.Answers {
		an := q.Answers[i]
		if an.ID == res.Key.ID {
			item.CorrectAnswer = an
		}
		if res.Chosen != nil && an.ID == res.Chosen.ID {
			item.Chosen = &an
		}
	}
	return item, nil
}

// LatestResult returns the viewer's attempt on the quiz. The per-question
// breakdown is only available from Submit.
func (s *Service) LatestResult(ctx context.Context, v Viewer, courseID, quizID int64) (Result, error) {
	if !v.authenticated() {
		return Result{}, ErrForbidden
	}
	if _, err := s.visibleCourse(ctx, v, courseID); err != nil {
		return Result{}, err
	}
	q, err := s.quizIn(ctx, courseID, quizID)
	if err != nil {
		return Result{}, err
	}
	a, err := s.store.GetAttempt(ctx, v.UserID, quizID)
	if isNotFound(err) {
		return Result{}, ErrNoAttempt
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Quiz: q, Attempt: a, Items: []ResultItem{}}, nil
}

// TakenQuizzes lists the viewer's completed attempts, newest first.
func (s *Service) TakenQuizzes(ctx context.Context, v Viewer) ([]TakenQuiz, error) {
	if !v.authenticated() {
		return nil, ErrForbidden
	}
	return s.store.ListTakenQuizzes(ctx, v.UserID)
}

// QuizAttempts lists the attempts on one quiz for staff review.
func (s *Service) QuizAttempts(ctx context.Context, v Viewer, courseID, quizID int64, opts AttemptListOpts) ([]Attempt, error) {
	if err := requireStaff(v); err != nil {
		return nil, err
	}
	if _, err := s.quizIn(ctx, courseID, quizID); err != nil {
		return nil, err
	}
	opts.QuizID = quizID
	return s.store.ListAttempts(ctx, opts)
}
