package course

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mind-engage/learning-site/internal/forms"
	"github.com/mind-engage/learning-site/internal/storage"
)

// MinAnswers is the number of non-blank answer rows a question needs.
const MinAnswers = 1

var errNoBlobStore = errors.New("no blob store configured")

func (s *Service) CreateCourse(ctx context.Context, v Viewer, f forms.CourseForm) (Course, error) {
	if err := requireStaff(v); err != nil {
		return Course{}, err
	}
	if err := f.Validate(); err != nil {
		return Course{}, err
	}
	return s.store.CreateCourse(ctx, Course{
		Title:       f.Title,
		Description: f.Description,
		Subject:     f.Subject,
		Length:      f.Length,
		Published:   f.Published,
		TeacherID:   v.UserID,
	})
}

func (s *Service) EditCourse(ctx context.Context, v Viewer, courseID int64, f forms.CourseForm) (Course, error) {
	if err := requireStaff(v); err != nil {
		return Course{}, err
	}
	c, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return Course{}, err
	}
	if err := f.Validate(); err != nil {
		return Course{}, err
	}
	c.Title, c.Description, c.Subject, c.Length, c.Published = f.Title, f.Description, f.Subject, f.Length, f.Published
	return s.store.UpdateCourse(ctx, c)
}

func (s *Service) CreateText(ctx context.Context, v Viewer, courseID int64, f forms.TextForm) (Text, error) {
	if err := requireStaff(v); err != nil {
		return Text{}, err
	}
	if _, err := s.store.GetCourse(ctx, courseID); err != nil {
		return Text{}, err
	}
	if err := f.Validate(); err != nil {
		return Text{}, err
	}
	return s.store.CreateText(ctx, Text{
		CourseID:    courseID,
		Title:       f.Title,
		Description: f.Description,
		Order:       f.Order,
		VideoName:   f.VideoName,
		Content:     f.Content,
	})
}

func (s *Service) textIn(ctx context.Context, courseID, textID int64) (Text, error) {
	t, err := s.store.GetText(ctx, textID)
	if err != nil {
		return Text{}, err
	}
	if t.CourseID != courseID {
		return Text{}, ErrNotFound
	}
	return t, nil
}

func (s *Service) EditText(ctx context.Context, v Viewer, courseID, textID int64, f forms.TextForm) (Text, error) {
	if err := requireStaff(v); err != nil {
		return Text{}, err
	}
	t, err := s.textIn(ctx, courseID, textID)
	if err != nil {
		return Text{}, err
	}
	if err := f.Validate(); err != nil {
		return Text{}, err
	}
	t.Title, t.Description, t.Order, t.VideoName, t.Content = f.Title, f.Description, f.Order, f.VideoName, f.Content
	return s.store.UpdateText(ctx, t)
}

// AttachVideo stores an uploaded video for a text step and replaces any
// previous one.
func (s *Service) AttachVideo(ctx context.Context, v Viewer, courseID, textID int64, filename string, r io.Reader) (Text, error) {
	if err := requireStaff(v); err != nil {
		return Text{}, err
	}
	if s.blobs == nil {
		return Text{}, errNoBlobStore
	}
	t, err := s.textIn(ctx, courseID, textID)
	if err != nil {
		return Text{}, err
	}
	key, err := s.blobs.Put(ctx, storage.VideoKey(filename), r)
	if err != nil {
		return Text{}, fmt.Errorf("store video: %w", err)
	}
	old := t.VideoKey
	t.VideoKey = key
	if t.VideoName == "" {
		t.VideoName = filename
	}
	t, err = s.store.UpdateText(ctx, t)
	if err != nil {
		_ = s.blobs.Delete(ctx, key)
		return Text{}, err
	}
	if old != "" {
		if err := s.blobs.Delete(ctx, old); err != nil {
			s.log.Warn("remove replaced video", "key", old, "err", err)
		}
	}
	return t, nil
}

func (s *Service) CreateQuiz(ctx context.Context, v Viewer, courseID int64, f forms.QuizForm) (Quiz, error) {
	if err := requireStaff(v); err != nil {
		return Quiz{}, err
	}
	if _, err := s.store.GetCourse(ctx, courseID); err != nil {
		return Quiz{}, err
	}
	if err := f.Validate(); err != nil {
		return Quiz{}, err
	}
	q := Quiz{CourseID: courseID, Title: f.Title, Description: f.Description, Order: f.Order}
	if f.TotalQuestions != nil {
		q.TotalQuestions = *f.TotalQuestions
	}
	return s.store.CreateQuiz(ctx, q)
}

func (s *Service) EditQuiz(ctx context.Context, v Viewer, courseID, quizID int64, f forms.QuizForm) (Quiz, error) {
	if err := requireStaff(v); err != nil {
		return Quiz{}, err
	}
	q, err := s.quizIn(ctx, courseID, quizID)
	if err != nil {
		return Quiz{}, err
	}
	if err := f.Validate(); err != nil {
		return Quiz{}, err
	}
	q.Title, q.Description, q.Order = f.Title, f.Description, f.Order
	if f.TotalQuestions != nil {
		q.TotalQuestions = *f.TotalQuestions
	}
	return s.store.UpdateQuiz(ctx, q)
}

// NewQuestionForm returns the blank form for a question of the type named
// by code, with ExtraAnswerRows empty answer rows.
func NewQuestionForm(code string) forms.QuestionForm {
	return forms.QuestionForm{
		QuestionType: string(TypeFromCode(code)),
		Answers:      forms.NewAnswerFormSet(nil).Answers,
	}
}

func (s *Service) CreateQuestion(ctx context.Context, v Viewer, courseID, quizID int64, code string, f forms.QuestionForm) (Question, error) {
	if err := requireStaff(v); err != nil {
		return Question{}, err
	}
	if _, err := s.quizIn(ctx, courseID, quizID); err != nil {
		return Question{}, err
	}
	typ := TypeFromCode(code)
	if err := f.Validate(string(typ), MinAnswers); err != nil {
		return Question{}, err
	}
	save, _ := forms.Clean(f.Answers)
	for i := range save {
		save[i].ID = 0
	}
	q, err := s.store.CreateQuestion(ctx, Question{
		QuizID:         quizID,
		Order:          f.Order,
		Prompt:         f.Prompt,
		Type:           typ,
		ShuffleAnswers: f.ShuffleAnswers,
	}, save)
	if err != nil {
		return Question{}, err
	}
	s.log.Info("question created", "quiz_id", quizID, "question_id", q.ID, "type", q.Type)
	return q, nil
}

func (s *Service) questionIn(ctx context.Context, courseID, quizID, questionID int64) (Question, error) {
	if _, err := s.quizIn(ctx, courseID, quizID); err != nil {
		return Question{}, err
	}
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return Question{}, err
	}
	if q.QuizID != quizID {
		return Question{}, ErrNotFound
	}
	return q, nil
}

// EditQuestionForm returns the stored question and its form, answers
// followed by blank rows.
func (s *Service) EditQuestionForm(ctx context.Context, v Viewer, courseID, quizID, questionID int64) (Question, forms.QuestionForm, error) {
	if err := requireStaff(v); err != nil {
		return Question{}, forms.QuestionForm{}, err
	}
	q, err := s.questionIn(ctx, courseID, quizID, questionID)
	if err != nil {
		return Question{}, forms.QuestionForm{}, err
	}
	return q, forms.QuestionForm{
		Order:          q.Order,
		QuestionType:   string(q.Type),
		Prompt:         q.Prompt,
		ShuffleAnswers: q.ShuffleAnswers,
		Answers:        forms.NewAnswerFormSet(AnswerRows(q.Answers)).Answers,
	}, nil
}

// EditQuestion applies f to the stored question. The type never changes.
func (s *Service) EditQuestion(ctx context.Context, v Viewer, courseID, quizID, questionID int64, f forms.QuestionForm) (Question, error) {
	if err := requireStaff(v); err != nil {
		return Question{}, err
	}
	cur, err := s.questionIn(ctx, courseID, quizID, questionID)
	if err != nil {
		return Question{}, err
	}
	if err := f.Validate(string(cur.Type), MinAnswers); err != nil {
		return Question{}, err
	}
	save, deleteIDs := forms.Clean(f.Answers)
	cur.Order, cur.Prompt, cur.ShuffleAnswers = f.Order, f.Prompt, f.ShuffleAnswers
	return s.store.UpdateQuestion(ctx, cur, save, deleteIDs)
}

func (s *Service) DeleteQuestion(ctx context.Context, v Viewer, courseID, quizID, questionID int64) error {
	if err := requireStaff(v); err != nil {
		return err
	}
	if _, err := s.questionIn(ctx, courseID, quizID, questionID); err != nil {
		return err
	}
	if err := s.store.DeleteQuestion(ctx, quizID, questionID); err != nil {
		return err
	}
	s.log.Info("question deleted", "quiz_id", quizID, "question_id", questionID)
	return nil
}

// AnswerForm returns the formset for a question's answers.
func (s *Service) AnswerForm(ctx context.Context, v Viewer, questionID int64) (Question, forms.AnswerFormSet, error) {
	if err := requireStaff(v); err != nil {
		return Question{}, forms.AnswerFormSet{}, err
	}
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return Question{}, forms.AnswerFormSet{}, err
	}
	return q, forms.NewAnswerFormSet(AnswerRows(q.Answers)), nil
}

func (s *Service) SaveAnswers(ctx context.Context, v Viewer, questionID int64, f forms.AnswerFormSet) ([]Answer, error) {
	if err := requireStaff(v); err != nil {
		return nil, err
	}
	if _, err := s.store.GetQuestion(ctx, questionID); err != nil {
		return nil, err
	}
	if err := f.Validate(MinAnswers); err != nil {
		return nil, err
	}
	save, deleteIDs := forms.Clean(f.Answers)
	return s.store.SaveAnswers(ctx, questionID, save, deleteIDs)
}
