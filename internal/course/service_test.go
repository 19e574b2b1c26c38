package course

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/learning-site/internal/forms"
	"github.com/mind-engage/learning-site/internal/storage"
)

var (
	staff   = Viewer{UserID: "teacher-1", Staff: true}
	student = Viewer{UserID: "student-1"}
)

type algebra struct {
	course  Course
	quiz    Quiz
	q1, q2  Question
	q1Right int64
	q1Wrong int64
}

// seedAlgebra builds "Algebra Basics": Q1 multiple-choice, Q2 user-input "42".
func seedAlgebra(t *testing.T, svc *Service) algebra {
	t.Helper()
	ctx := context.Background()
	c, err := svc.CreateCourse(ctx, staff, forms.CourseForm{Title: "Maths", Description: "Numbers", Published: true})
	require.NoError(t, err)
	qz, err := svc.CreateQuiz(ctx, staff, c.ID, forms.QuizForm{Title: "Algebra Basics", Order: 1})
	require.NoError(t, err)

	q1, err := svc.CreateQuestion(ctx, staff, c.ID, qz.ID, "mc", forms.QuestionForm{
		Order:  0,
		Prompt: "2x = 10, x = ?",
		Answers: []forms.AnswerRow{
			{Order: 0, Text: "5", Correct: true},
			{Order: 1, Text: "6"},
			{}, // untouched extra row
		},
	})
	require.NoError(t, err)
	q2, err := svc.CreateQuestion(ctx, staff, c.ID, qz.ID, "ui", forms.QuestionForm{
		Order:   1,
		Prompt:  "6 * 7 = ?",
		Answers: []forms.AnswerRow{{Text: "42", Correct: true}},
	})
	require.NoError(t, err)

	a := algebra{course: c, quiz: qz, q1: q1, q2: q2}
	for _, an := range q1.Answers {
		if an.Correct {
			a.q1Right = an.ID
		} else {
			a.q1Wrong = an.ID
		}
	}
	return a
}

func id(n int64) string { return strconv.FormatInt(n, 10) }

func TestAlgebraBasicsGrading(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	al := seedAlgebra(t, svc)

	_, err := svc.Take(ctx, student, al.course.ID, al.quiz.ID, false)
	require.NoError(t, err)
	res, err := svc.Submit(ctx, student, al.course.ID, al.quiz.ID, map[int64]string{al.q1.ID: id(al.q1Right), al.q2.ID: "42"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempt.CorrectAnswers)
	assert.True(t, res.Attempt.Completed)
	require.Len(t, res.Items, 2)
	assert.Equal(t, al.q1.ID, res.Items[0].Question.ID, "items follow question order")
	assert.Equal(t, 1, res.Quiz.TimesTaken)

	_, err = svc.Take(ctx, student, al.course.ID, al.quiz.ID, true)
	require.NoError(t, err)
	res, err = svc.Submit(ctx, student, al.course.ID, al.quiz.ID, map[int64]string{al.q1.ID: id(al.q1Wrong), al.q2.ID: "42"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempt.CorrectAnswers)
	assert.False(t, res.Items[0].Correct)
	require.NotNil(t, res.Items[0].Chosen)
	assert.Equal(t, al.q1Wrong, res.Items[0].Chosen.ID)
	assert.Equal(t, al.q1Right, res.Items[0].CorrectAnswer.ID)
	assert.True(t, res.Items[1].Correct)
	assert.Equal(t, "42", res.Items[1].Given)
}

func TestSubmitMissingAnswerLeavesAttemptUntouched(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	al := seedAlgebra(t, svc)

	_, err := svc.Take(ctx, student, al.course.ID, al.quiz.ID, false)
	require.NoError(t, err)
	for _, resp := range []map[int64]string{
		{al.q1.ID: id(al.q1Right)},
		{al.q1.ID: id(al.q1Right), al.q2.ID: "   "},
		{al.q1.ID: "999999", al.q2.ID: "42"},
		{al.q1.ID: "five", al.q2.ID: "42"},
	} {
		_, err = svc.Submit(ctx, student, al.course.ID, al.quiz.ID, resp)
		require.ErrorIs(t, err, ErrUnanswered)
	}

	a, err := svc.Store().GetAttempt(ctx, student.UserID, al.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, a.CorrectAnswers)
	assert.False(t, a.Completed)
}

func TestSubmitTwiceIsRejected(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	al := seedAlgebra(t, svc)
	resp := map[int64]string{al.q1.ID: id(al.q1Right), al.q2.ID: "42"}

	_, err := svc.Take(ctx, student, al.course.ID, al.quiz.ID, false)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, student, al.course.ID, al.quiz.ID, resp)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, student, al.course.ID, al.quiz.ID, resp)
	assert.ErrorIs(t, err, ErrAttemptCompleted)
}

func TestSubmitWithoutAttempt(t *testing.T) {
	svc := NewService(NewMemoryStore())
	al := seedAlgebra(t, svc)
	_, err := svc.Submit(context.Background(), student, al.course.ID, al.quiz.ID, map[int64]string{})
	assert.ErrorIs(t, err, ErrNoAttempt)
}

func TestRetakeStartsFresh(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	al := seedAlgebra(t, svc)

	first, err := svc.Take(ctx, student, al.course.ID, al.quiz.ID, false)
	require.NoError(t, err)
	again, err := svc.Take(ctx, student, al.course.ID, al.quiz.ID, false)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "take returns the open attempt")

	_, err = svc.Submit(ctx, student, al.course.ID, al.quiz.ID, map[int64]string{al.q1.ID: id(al.q1Right), al.q2.ID: "42"})
	require.NoError(t, err)

	_, err = svc.Take(ctx, student, al.course.ID, al.quiz.ID, false)
	assert.ErrorIs(t, err, ErrAlreadyTaken)

	fresh, err := svc.Take(ctx, student, al.course.ID, al.quiz.ID, true)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)
	assert.Equal(t, 0, fresh.CorrectAnswers)
	assert.False(t, fresh.Completed)

	got, err := svc.Store().GetAttempt(ctx, student.UserID, al.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, got.ID, "prior attempt removed")
}

func TestUserInputMatching(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		svc    *Service
		given  string
		expect bool
	}{
		{"exact", NewService(NewMemoryStore()), "42", true},
		{"surrounding space trimmed", NewService(NewMemoryStore()), "  42\n", true},
		{"inner text differs", NewService(NewMemoryStore()), "4 2", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			al := seedAlgebra(t, tc.svc)
			_, err := tc.svc.Take(ctx, student, al.course.ID, al.quiz.ID, false)
			require.NoError(t, err)
			res, err := tc.svc.Submit(ctx, student, al.course.ID, al.quiz.ID, map[int64]string{al.q1.ID: id(al.q1Right), al.q2.ID: tc.given})
			require.NoError(t, err)
			assert.Equal(t, tc.expect, res.Items[1].Correct)
		})
	}
}

func TestUserInputCaseSensitivity(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	c, err := svc.CreateCourse(ctx, staff, forms.CourseForm{Title: "Geo", Description: "Places", Published: true})
	require.NoError(t, err)
	qz, err := svc.CreateQuiz(ctx, staff, c.ID, forms.QuizForm{Title: "Capitals"})
	require.NoError(t, err)
	q, err := svc.CreateQuestion(ctx, staff, c.ID, qz.ID, "ui", forms.QuestionForm{
		Prompt:  "Capital of France?",
		Answers: []forms.AnswerRow{{Text: "Paris", Correct: true}},
	})
	require.NoError(t, err)

	_, err = svc.Take(ctx, student, c.ID, qz.ID, false)
	require.NoError(t, err)
	res, err := svc.Submit(ctx, student, c.ID, qz.ID, map[int64]string{q.ID: "paris"})
	require.NoError(t, err)
	assert.False(t, res.Items[0].Correct, "matching is case-sensitive")
}

func TestChoiceGradingIgnoresText(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	c, err := svc.CreateCourse(ctx, staff, forms.CourseForm{Title: "Logic", Description: "Truth", Published: true})
	require.NoError(t, err)
	qz, err := svc.CreateQuiz(ctx, staff, c.ID, forms.QuizForm{Title: "TF"})
	require.NoError(t, err)
	// The row reading "True" is deliberately the wrong one.
	q, err := svc.CreateQuestion(ctx, staff, c.ID, qz.ID, "tf", forms.QuestionForm{
		Prompt: "1 > 2",
		Answers: []forms.AnswerRow{
			{Text: "True"},
			{Order: 1, Text: "False", Correct: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, TrueFalse, q.Type)

	var trueRow int64
	for _, a := range q.Answers {
		if a.Text == "True" {
			trueRow = a.ID
		}
	}
	_, err = svc.Take(ctx, student, c.ID, qz.ID, false)
	require.NoError(t, err)
	res, err := svc.Submit(ctx, student, c.ID, qz.ID, map[int64]string{q.ID: id(trueRow)})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Attempt.CorrectAnswers)
}

func TestMisconfiguredQuestionIsIntegrityError(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	c, err := svc.CreateCourse(ctx, staff, forms.CourseForm{Title: "Broken", Description: "x", Published: true})
	require.NoError(t, err)
	qz, err := svc.CreateQuiz(ctx, staff, c.ID, forms.QuizForm{Title: "No key"})
	require.NoError(t, err)
	q, err := svc.CreateQuestion(ctx, staff, c.ID, qz.ID, "mc", forms.QuestionForm{
		Prompt:  "?",
		Answers: []forms.AnswerRow{{Text: "a"}, {Text: "b"}},
	})
	require.NoError(t, err)

	_, err = svc.Take(ctx, student, c.ID, qz.ID, false)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, student, c.ID, qz.ID, map[int64]string{q.ID: id(q.Answers[0].ID)})
	assert.ErrorIs(t, err, ErrIntegrity)

	a, err := svc.Store().GetAttempt(ctx, student.UserID, qz.ID)
	require.NoError(t, err)
	assert.False(t, a.Completed)
}

func TestTotalQuestionsCounter(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	al := seedAlgebra(t, svc)

	qz, err := svc.Store().GetQuiz(ctx, al.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, qz.TotalQuestions)

	require.NoError(t, svc.DeleteQuestion(ctx, staff, al.course.ID, al.quiz.ID, al.q2.ID))
	qz, err = svc.Store().GetQuiz(ctx, al.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, qz.TotalQuestions)

	_, err = svc.Store().GetQuestion(ctx, al.q2.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	err = svc.DeleteQuestion(ctx, staff, al.course.ID, al.quiz.ID, al.q2.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateQuestionValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	al := seedAlgebra(t, svc)

	_, err := svc.CreateQuestion(ctx, staff, al.course.ID, al.quiz.ID, "mc", forms.QuestionForm{
		Prompt:  "",
		Answers: []forms.AnswerRow{{}, {}},
	})
	var ve *forms.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "prompt")
	assert.Equal(t, "Please submit at least 1 answer.", ve.Fields["__all__"])

	qz, err := svc.Store().GetQuiz(ctx, al.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, qz.TotalQuestions, "nothing persisted")

	_, err = svc.CreateQuestion(ctx, student, al.course.ID, al.quiz.ID, "mc", forms.QuestionForm{Prompt: "x"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUnknownTypeCodeFallsBackToMultipleChoice(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	al := seedAlgebra(t, svc)
	q, err := svc.CreateQuestion(ctx, staff, al.course.ID, al.quiz.ID, "zz", forms.QuestionForm{
		Prompt:         "p",
		ShuffleAnswers: true,
		Answers:        []forms.AnswerRow{{Text: "a", Correct: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, MultipleChoice, q.Type)
	assert.True(t, q.ShuffleAnswers)

	f := NewQuestionForm("tf")
	assert.Equal(t, "TFQ", f.QuestionType)
	assert.Len(t, f.Answers, forms.ExtraAnswerRows)
}

func TestEditQuestionAppliesRows(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	al := seedAlgebra(t, svc)

	q, f, err := svc.EditQuestionForm(ctx, staff, al.course.ID, al.quiz.ID, al.q1.ID)
	require.NoError(t, err)
	require.Len(t, f.Answers, len(q.Answers)+forms.ExtraAnswerRows)
	assert.Equal(t, "MCQ", f.QuestionType)

	// Drop the wrong answer, rename the right one, add a new wrong one.
	for i := range f.Answers {
		switch f.Answers[i].ID {
		case al.q1Wrong:
			f.Answers[i].Delete = true
		case al.q1Right:
			f.Answers[i].Text = "five"
		}
	}
	f.Answers[len(f.Answers)-1] = forms.AnswerRow{Order: 9, Text: "7"}
	f.Prompt = "x * 2 = 10"

	got, err := svc.EditQuestion(ctx, staff, al.course.ID, al.quiz.ID, al.q1.ID, f)
	require.NoError(t, err)
	assert.Equal(t, "x * 2 = 10", got.Prompt)
	assert.Equal(t, MultipleChoice, got.Type)
	require.Len(t, got.Answers, 2)
	assert.Equal(t, "five", got.Answers[0].Text)
	assert.Equal(t, "7", got.Answers[1].Text)

	f.QuestionType = "UIQ"
	_, err = svc.EditQuestion(ctx, staff, al.course.ID, al.quiz.ID, al.q1.ID, f)
	var ve *forms.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "question_type")
}

func TestSaveAnswersRejectsForeignRows(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	al := seedAlgebra(t, svc)

	_, fs, err := svc.AnswerForm(ctx, staff, al.q2.ID)
	require.NoError(t, err)
	fs.Answers = append(fs.Answers, forms.AnswerRow{ID: al.q1Right, Text: "stolen"})
	_, err = svc.SaveAnswers(ctx, staff, al.q2.ID, fs)
	assert.ErrorIs(t, err, ErrNotFound)

	q1, err := svc.Store().GetQuestion(ctx, al.q1.ID)
	require.NoError(t, err)
	for _, a := range q1.Answers {
		assert.NotEqual(t, "stolen", a.Text)
	}
}

func TestQuestionsHideKeys(t *testing.T) {
	ctx := context.Background()
	reversed := func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	svc := NewService(NewMemoryStore(), WithShuffle(reversed))
	al := seedAlgebra(t, svc)

	_, err := svc.Questions(ctx, student, al.course.ID, al.quiz.ID)
	assert.ErrorIs(t, err, ErrNoAttempt)

	_, err = svc.Take(ctx, student, al.course.ID, al.quiz.ID, false)
	require.NoError(t, err)
	sheet, err := svc.Questions(ctx, student, al.course.ID, al.quiz.ID)
	require.NoError(t, err)
	require.Len(t, sheet.Questions, 2)
	require.Len(t, sheet.Questions[0].Answers, 2)
	assert.Equal(t, "5", sheet.Questions[0].Answers[0].Text, "no shuffle flag, stored order")
	assert.Empty(t, sheet.Questions[1].Answers, "user-input answers hidden")

	_, f, err := svc.EditQuestionForm(ctx, staff, al.course.ID, al.quiz.ID, al.q1.ID)
	require.NoError(t, err)
	f.ShuffleAnswers = true
	_, err = svc.EditQuestion(ctx, staff, al.course.ID, al.quiz.ID, al.q1.ID, f)
	require.NoError(t, err)

	sheet, err = svc.Questions(ctx, student, al.course.ID, al.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "6", sheet.Questions[0].Answers[0].Text, "shuffled")
}

func TestQuizDetailMessage(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	al := seedAlgebra(t, svc)

	d, err := svc.QuizDetail(ctx, student, al.course.ID, al.quiz.ID)
	require.NoError(t, err)
	assert.Nil(t, d.Attempt)
	assert.Empty(t, d.Message)

	_, err = svc.Take(ctx, student, al.course.ID, al.quiz.ID, false)
	require.NoError(t, err)
	d, err = svc.QuizDetail(ctx, student, al.course.ID, al.quiz.ID)
	require.NoError(t, err)
	require.NotNil(t, d.Attempt)
	assert.Equal(t, MsgAlreadyTaken, d.Message)

	_, err = svc.QuizDetail(ctx, student, al.course.ID+1000, al.quiz.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDraftCoursesHidden(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	draft, err := svc.CreateCourse(ctx, staff, forms.CourseForm{Title: "Draft", Description: "wip"})
	require.NoError(t, err)
	live, err := svc.CreateCourse(ctx, staff, forms.CourseForm{Title: "Physics", Description: "Motion and force", Published: true})
	require.NoError(t, err)
	_, err = svc.CreateText(ctx, staff, live.ID, forms.TextForm{Title: "Intro", Order: 0})
	require.NoError(t, err)

	list, err := svc.ListCourses(ctx, student, "", "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, live.ID, list[0].ID)
	assert.Equal(t, 1, list[0].StepCount)

	list, err = svc.ListCourses(ctx, student, "FORCE", "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = svc.ListCourses(ctx, student, "", "someone-else")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.CourseDetail(ctx, student, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.CourseDetail(ctx, staff, draft.ID)
	assert.NoError(t, err)
}

func TestCourseStepsOrdered(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	al := seedAlgebra(t, svc) // quiz at order 1
	_, err := svc.CreateText(ctx, staff, al.course.ID, forms.TextForm{Title: "Later", Order: 2})
	require.NoError(t, err)
	txt, err := svc.CreateText(ctx, staff, al.course.ID, forms.TextForm{Title: "First", Order: 0})
	require.NoError(t, err)

	d, err := svc.TextDetail(ctx, student, al.course.ID, txt.ID)
	require.NoError(t, err)
	require.Len(t, d.Steps, 3)
	assert.Equal(t, []string{"First", "Algebra Basics", "Later"},
		[]string{d.Steps[0].Title, d.Steps[1].Title, d.Steps[2].Title})
}

func TestAttachVideo(t *testing.T) {
	ctx := context.Background()
	blobs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	svc := NewService(NewMemoryStore(), WithBlobs(blobs))
	c, err := svc.CreateCourse(ctx, staff, forms.CourseForm{Title: "Film", Description: "x", Published: true})
	require.NoError(t, err)
	txt, err := svc.CreateText(ctx, staff, c.ID, forms.TextForm{Title: "Watch"})
	require.NoError(t, err)

	first, err := svc.AttachVideo(ctx, staff, c.ID, txt.ID, "intro.mp4", bytes.NewReader([]byte("one")))
	require.NoError(t, err)
	assert.Equal(t, "intro.mp4", first.VideoName)

	second, err := svc.AttachVideo(ctx, staff, c.ID, txt.ID, "intro-v2.mp4", bytes.NewReader([]byte("two")))
	require.NoError(t, err)
	assert.NotEqual(t, first.VideoKey, second.VideoKey)

	_, err = blobs.Open(ctx, first.VideoKey)
	assert.ErrorIs(t, err, storage.ErrNotFound, "replaced video removed")
	rc, err := blobs.Open(ctx, second.VideoKey)
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "two", string(b))

	_, err = svc.AttachVideo(ctx, student, c.ID, txt.ID, "x.mp4", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestTakenQuizzes(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	al := seedAlgebra(t, svc)

	_, err := svc.Take(ctx, student, al.course.ID, al.quiz.ID, false)
	require.NoError(t, err)
	taken, err := svc.TakenQuizzes(ctx, student)
	require.NoError(t, err)
	assert.Empty(t, taken, "open attempts are not listed")

	_, err = svc.Submit(ctx, student, al.course.ID, al.quiz.ID, map[int64]string{al.q1.ID: id(al.q1Right), al.q2.ID: "42"})
	require.NoError(t, err)
	taken, err = svc.TakenQuizzes(ctx, student)
	require.NoError(t, err)
	require.Len(t, taken, 1)
	assert.Equal(t, "Algebra Basics", taken[0].Quiz.Title)
	assert.Equal(t, al.course.ID, taken[0].CourseID)

	res, err := svc.LatestResult(ctx, student, al.course.ID, al.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempt.CorrectAnswers)
}

func TestQuizAttemptsIsStaffOnly(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	al := seedAlgebra(t, svc)
	other := Viewer{UserID: "student-2"}

	_, err := svc.Take(ctx, student, al.course.ID, al.quiz.ID, false)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, student, al.course.ID, al.quiz.ID, map[int64]string{al.q1.ID: id(al.q1Right), al.q2.ID: "42"})
	require.NoError(t, err)
	_, err = svc.Take(ctx, other, al.course.ID, al.quiz.ID, false)
	require.NoError(t, err)

	_, err = svc.QuizAttempts(ctx, student, al.course.ID, al.quiz.ID, AttemptListOpts{})
	assert.ErrorIs(t, err, ErrForbidden)

	all, err := svc.QuizAttempts(ctx, staff, al.course.ID, al.quiz.ID, AttemptListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, student.UserID, all[0].UserID)

	done, err := svc.QuizAttempts(ctx, staff, al.course.ID, al.quiz.ID, AttemptListOpts{CompletedOnly: true})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, 2, done[0].CorrectAnswers)

	page, err := svc.QuizAttempts(ctx, staff, al.course.ID, al.quiz.ID, AttemptListOpts{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, other.UserID, page[0].UserID)

	_, err = svc.QuizAttempts(ctx, staff, al.course.ID+100, al.quiz.ID, AttemptListOpts{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCoursesByTeacherUsername(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetUsername(staff.UserID, "mrsmith")
	svc := NewService(store)
	c, err := svc.CreateCourse(ctx, staff, forms.CourseForm{Title: "Maths", Description: "Numbers", Published: true})
	require.NoError(t, err)

	for _, teacher := range []string{"mrsmith", staff.UserID} {
		list, err := svc.ListCourses(ctx, Viewer{}, "", teacher)
		require.NoError(t, err, teacher)
		require.Len(t, list, 1, teacher)
		assert.Equal(t, c.ID, list[0].ID)
		assert.Equal(t, "mrsmith", list[0].Teacher)
	}
	list, err := svc.ListCourses(ctx, Viewer{}, "", "mrjones")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListAttemptsLimitIsCapped(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	al := seedAlgebra(t, svc)
	for i := 0; i < 510; i++ {
		_, err := svc.Take(ctx, Viewer{UserID: fmt.Sprintf("s-%03d", i)}, al.course.ID, al.quiz.ID, false)
		require.NoError(t, err)
	}

	got, err := svc.QuizAttempts(ctx, staff, al.course.ID, al.quiz.ID, AttemptListOpts{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, got, 500)
	got, err = svc.QuizAttempts(ctx, staff, al.course.ID, al.quiz.ID, AttemptListOpts{})
	require.NoError(t, err)
	assert.Len(t, got, 50)
}

func TestLatestResultHidesDraftCourses(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	al := seedAlgebra(t, svc)
	_, err := svc.Take(ctx, student, al.course.ID, al.quiz.ID, false)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, student, al.course.ID, al.quiz.ID, map[int64]string{al.q1.ID: id(al.q1Right), al.q2.ID: "42"})
	require.NoError(t, err)

	_, err = svc.EditCourse(ctx, staff, al.course.ID, forms.CourseForm{Title: "Maths", Description: "Numbers", Published: false})
	require.NoError(t, err)

	_, err = svc.LatestResult(ctx, student, al.course.ID, al.quiz.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	staffView := Viewer{UserID: student.UserID, Staff: true}
	res, err := svc.LatestResult(ctx, staffView, al.course.ID, al.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempt.CorrectAnswers)
}
