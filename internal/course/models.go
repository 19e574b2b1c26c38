package course

import (
	"sort"

	"github.com/mind-engage/learning-site/internal/forms"
	"github.com/mind-engage/learning-site/internal/grading"
)

type Course struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Subject     string `json:"subject"`
	Length      string `json:"course_length"`
	Published   bool   `json:"published"`
	TeacherID   string `json:"teacher_id"`
	Teacher     string `json:"teacher,omitempty"` // username, filled on reads
	CreatedAt   int64  `json:"created_at"`
	StepCount   int    `json:"total_steps"`
}

type Text struct {
	ID          int64  `json:"id"`
	CourseID    int64  `json:"course_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	VideoName   string `json:"video_name,omitempty"`
	VideoKey    string `json:"video_key,omitempty"`
	Content     string `json:"content,omitempty"`
}

type Quiz struct {
	ID             int64  `json:"id"`
	CourseID       int64  `json:"course_id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Order          int    `json:"order"`
	TotalQuestions int    `json:"total_questions"`
	TimesTaken     int    `json:"times_taken"` // completed attempts, computed on read
}

type StepKind string

const (
	StepText StepKind = "text"
	StepQuiz StepKind = "quiz"
)

// Step is one entry of a course's ordered outline.
type Step struct {
	Kind  StepKind `json:"kind"`
	ID    int64    `json:"id"`
	Title string   `json:"title"`
	Order int      `json:"order"`
}

// Steps merges texts and quizzes into one outline ordered by Order; ties
// fall back to kind and id so the result is stable.
func Steps(texts []Text, quizzes []Quiz) []Step {
	out := make([]Step, 0, len(texts)+len(quizzes))
	for _, t := range texts {
		out = append(out, Step{Kind: StepText, ID: t.ID, Title: t.Title, Order: t.Order})
	}
	for _, q := range quizzes {
		out = append(out, Step{Kind: StepQuiz, ID: q.ID, Title: q.Title, Order: q.Order})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.ID < b.ID
	})
	return out
}

type QuestionType string

const (
	MultipleChoice QuestionType = grading.TypeMultipleChoice
	TrueFalse      QuestionType = grading.TypeTrueFalse
	UserInput      QuestionType = grading.TypeUserInput
)

// TypeFromCode maps a URL type code to a question type. Unknown codes fall
// back to multiple-choice.
func TypeFromCode(code string) QuestionType {
	switch code {
	case "tf":
		return TrueFalse
	case "ui":
		return UserInput
	default:
		return MultipleChoice
	}
}

func (t QuestionType) Code() string {
	switch t {
	case TrueFalse:
		return "tf"
	case UserInput:
		return "ui"
	default:
		return "mc"
	}
}

// Question is keyed by Type; ShuffleAnswers only applies to multiple-choice.
type Question struct {
	ID             int64        `json:"id"`
	QuizID         int64        `json:"quiz_id"`
	Order          int          `json:"order"`
	Prompt         string       `json:"prompt"`
	Type           QuestionType `json:"question_type"`
	ShuffleAnswers bool         `json:"shuffle_answers,omitempty"`
	Answers        []Answer     `json:"answers,omitempty"`
}

type Answer struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Order      int    `json:"order"`
	Text       string `json:"text"`
	Correct    bool   `json:"correct"`
}

// Attempt is one user's take of one quiz. Only the latest survives.
type Attempt struct {
	ID             int64  `json:"id"`
	UserID         string `json:"user_id"`
	QuizID         int64  `json:"quiz_id"`
	CorrectAnswers int    `json:"correct_answers"`
	Completed      bool   `json:"completed"`
	CreatedAt      int64  `json:"created_at"`
}

// TakenQuiz is a completed attempt joined with its quiz for profile pages.
type TakenQuiz struct {
	Attempt  Attempt `json:"attempt"`
	Quiz     Quiz    `json:"quiz"`
	CourseID int64   `json:"course_id"`
}

// ResultItem is one graded question. Chosen is set for choice questions,
// Given for user-input ones.
type ResultItem struct {
	Question      Question `json:"question"`
	Chosen        *Answer  `json:"chosen,omitempty"`
	Given         string   `json:"given,omitempty"`
	CorrectAnswer Answer   `json:"correct_answer"`
	Correct       bool     `json:"correct"`
}

// Result is returned by grading and never stored.
type Result struct {
	Quiz    Quiz         `json:"quiz"`
	Attempt Attempt      `json:"attempt"`
	Items   []ResultItem `json:"items"`
}

// AnswerRows converts stored answers to form rows.
func AnswerRows(answers []Answer) []forms.AnswerRow {
	rows := make([]forms.AnswerRow, 0, len(answers))
	for _, a := range answers {
		rows = append(rows, forms.AnswerRow{ID: a.ID, Order: a.Order, Text: a.Text, Correct: a.Correct})
	}
	return rows
}

func gradingView(q Question) grading.Q {
	choices := make([]grading.Choice, 0, len(q.Answers))
	for _, a := range q.Answers {
		choices = append(choices, grading.Choice{ID: a.ID, Text: a.Text, Correct: a.Correct})
	}
	return grading.Q{ID: q.ID, Type: string(q.Type), Choices: choices}
}

func sortQuestions(qs []Question) {
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].Order != qs[j].Order {
			return qs[i].Order < qs[j].Order
		}
		return qs[i].ID < qs[j].ID
	})
}

func sortAnswers(as []Answer) {
	sort.SliceStable(as, func(i, j int) bool {
		if as[i].Order != as[j].Order {
			return as[i].Order < as[j].Order
		}
		return as[i].ID < as[j].ID
	})
}
