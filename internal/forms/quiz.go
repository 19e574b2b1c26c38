package forms

import (
	"fmt"
	"strings"
)

// ExtraAnswerRows is how many blank answer rows an empty formset offers.
const ExtraAnswerRows = 2

type QuizForm struct {
	Title          string `json:"title" validate:"required,max=255"`
	Description    string `json:"description"`
	Order          int    `json:"order" validate:"gte=0"`
	TotalQuestions *int   `json:"total_questions,omitempty" validate:"omitempty,gte=0"`
}

func (f *QuizForm) Validate() error {
	f.Title = strings.TrimSpace(f.Title)
	ve := &ValidationError{}
	check(ve, f)
	return ve.orNil()
}

// QuestionForm is shared by the three question types; Type is fixed by the
// caller from the URL type code or the stored discriminator.
type QuestionForm struct {
	Order          int         `json:"order" validate:"gte=0"`
	QuestionType   string      `json:"question_type,omitempty" validate:"omitempty,oneof=MCQ TFQ UIQ"`
	Prompt         string      `json:"prompt" validate:"required"`
	ShuffleAnswers bool        `json:"shuffle_answers,omitempty"`
	Answers        []AnswerRow `json:"answers" validate:"dive"`
}

// Validate checks the question fields against questionType and the answer
// rows against minAnswers.
func (f *QuestionForm) Validate(questionType string, minAnswers int) error {
	f.Prompt = strings.TrimSpace(f.Prompt)
	ve := &ValidationError{}
	check(ve, f)
	if f.QuestionType != "" && f.QuestionType != questionType {
		ve.add("question_type", "Select a valid choice.")
	}
	f.QuestionType = questionType
	if questionType != "MCQ" {
		f.ShuffleAnswers = false
	}
	checkRows(ve, f.Answers, minAnswers)
	return ve.orNil()
}

type AnswerRow struct {
	ID      int64  `json:"id,omitempty"`
	Order   int    `json:"order" validate:"gte=0"`
	Text    string `json:"text" validate:"max=255"`
	Correct bool   `json:"correct"`
	Delete  bool   `json:"delete,omitempty"`
}

// Blank reports an extra row the user left untouched.
func (r AnswerRow) Blank() bool {
	return r.ID == 0 && strings.TrimSpace(r.Text) == "" && !r.Correct && !r.Delete
}

// AnswerFormSet is the multi-row answer form for one question.
type AnswerFormSet struct {
	Answers []AnswerRow `json:"answers" validate:"dive"`
}

// NewAnswerFormSet returns rows for the existing answers followed by
// ExtraAnswerRows blank rows.
func NewAnswerFormSet(existing []AnswerRow) AnswerFormSet {
	rows := make([]AnswerRow, 0, len(existing)+ExtraAnswerRows)
	rows = append(rows, existing...)
	for i := 0; i < ExtraAnswerRows; i++ {
		rows = append(rows, AnswerRow{Order: len(rows)})
	}
	return AnswerFormSet{Answers: rows}
}

func (f *AnswerFormSet) Validate(minAnswers int) error {
	ve := &ValidationError{}
	check(ve, f)
	checkRows(ve, f.Answers, minAnswers)
	return ve.orNil()
}

// Clean splits rows into the ones to insert or update and the ids to delete.
// Blank rows are dropped.
func Clean(rows []AnswerRow) (save []AnswerRow, deleteIDs []int64) {
	for _, r := range rows {
		switch {
		case r.Blank():
		case r.Delete:
			if r.ID != 0 {
				deleteIDs = append(deleteIDs, r.ID)
			}
		default:
			r.Text = strings.TrimSpace(r.Text)
			save = append(save, r)
		}
	}
	return save, deleteIDs
}

func checkRows(ve *ValidationError, rows []AnswerRow, minAnswers int) {
	kept := 0
	seen := map[int64]bool{}
	for i, r := range rows {
		if r.Blank() {
			continue
		}
		if r.ID != 0 {
			if seen[r.ID] {
				ve.add(fmt.Sprintf("answers[%d].id", i), "Please correct the duplicate data for id.")
			}
			seen[r.ID] = true
		}
		if r.Delete {
			continue
		}
		if strings.TrimSpace(r.Text) == "" {
			ve.add(fmt.Sprintf("answers[%d].text", i), "This field is required.")
			continue
		}
		kept++
	}
	if kept < minAnswers {
		ve.add("__all__", fmt.Sprintf("Please submit at least %d answer.", minAnswers))
	}
}
