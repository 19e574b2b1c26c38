package grading

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNoResponse means nothing (or only whitespace) was submitted.
	ErrNoResponse = errors.New("no response")
	// ErrUnknownChoice means the submitted id is not one of the question's answers.
	ErrUnknownChoice = errors.New("response does not match any answer")
	// ErrAnswerKey means the question does not have exactly one correct answer.
	ErrAnswerKey = errors.New("question must have exactly one correct answer")
)

const (
	TypeMultipleChoice = "MCQ"
	TypeTrueFalse      = "TFQ"
	TypeUserInput      = "UIQ"
)

// Choice is the grading view of an answer row.
type Choice struct {
	ID      int64
	Text    string
	Correct bool
}

// Q is a minimal view of a question needed for grading.
type Q struct {
	ID      int64
	Type    string
	Choices []Choice
}

// Result is the outcome of grading a single question response.
type Result struct {
	Correct bool
	Chosen  *Choice // choice-based questions only
	Given   string  // user-input questions only, after normalisation
	Key     Choice  // the designated correct answer
}

// Strategy grades a single question.
type Strategy interface {
	Grade(ctx context.Context, q Q, response string) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, response string) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
	fallback   Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, response string) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		s = g.fallback
	}
	return s.Grade(ctx, q, response)
}

// Engine options

type Option func(*config)

type config struct {
	CaseSensitive bool
	TrimSpace     bool
}

func WithCaseSensitive(b bool) Option { return func(c *config) { c.CaseSensitive = b } }
func WithTrimSpace(b bool) Option     { return func(c *config) { c.TrimSpace = b } }

// NewDefaultGrader installs built-in strategies. User-input answers are
// compared case-sensitively after trimming surrounding whitespace unless
// overridden.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{
		CaseSensitive: true,
		TrimSpace:     true,
	}
	for _, o := range opts {
		o(cfg)
	}
	choice := choiceStrategy{}
	return &defaultGrader{
		strategies: map[string]Strategy{
			TypeMultipleChoice: choice,
			TypeTrueFalse:      choice,
			TypeUserInput:      userInputStrategy{caseSensitive: cfg.CaseSensitive, trim: cfg.TrimSpace},
		},
		fallback: choice,
	}
}

// --- Strategies ---

// choiceStrategy reads the response as an answer id and only consults the
// chosen row's correct flag.
type choiceStrategy struct{}

func (choiceStrategy) Grade(_ context.Context, q Q, response string) (Result, error) {
	key, err := answerKey(q)
	if err != nil {
		return Result{}, err
	}
	res := Result{Key: key}
	raw := strings.TrimSpace(response)
	if raw == "" {
		return res, ErrNoResponse
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return res, fmt.Errorf("%w: %q", ErrUnknownChoice, raw)
	}
	for i := range q.Choices {
		if q.Choices[i].ID == id {
			c := q.Choices[i]
			res.Chosen = &c
			res.Correct = c.Correct
			return res, nil
		}
	}
	return res, fmt.Errorf("%w: %d", ErrUnknownChoice, id)
}

type userInputStrategy struct {
	caseSensitive bool
	trim          bool
}

func (s userInputStrategy) Grade(_ context.Context, q Q, response string) (Result, error) {
	key, err := answerKey(q)
	if err != nil {
		return Result{}, err
	}
	res := Result{Key: key}
	given := s.normalize(response)
	if strings.TrimSpace(given) == "" {
		return res, ErrNoResponse
	}
	res.Given = given
	want := s.normalize(key.Text)
	if s.caseSensitive {
		res.Correct = given == want
	} else {
		res.Correct = strings.EqualFold(given, want)
	}
	return res, nil
}

func (s userInputStrategy) normalize(v string) string {
	if s.trim {
		return strings.TrimSpace(v)
	}
	return v
}

// answerKey returns the single correct choice of q.
func answerKey(q Q) (Choice, error) {
	var key Choice
	n := 0
	for _, c := range q.Choices {
		if c.Correct {
			key = c
			n++
		}
	}
	if n != 1 {
		return Choice{}, fmt.Errorf("%w (question %d has %d)", ErrAnswerKey, q.ID, n)
	}
	return key, nil
}
