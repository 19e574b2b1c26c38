package grading

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mcq() Q {
	return Q{ID: 1, Type: TypeMultipleChoice, Choices: []Choice{
		{ID: 5, Text: "x = 2", Correct: true},
		{ID: 6, Text: "x = 3"},
	}}
}

func uiq(text string) Q {
	return Q{ID: 2, Type: TypeUserInput, Choices: []Choice{{ID: 9, Text: text, Correct: true}}}
}

func TestChoiceStrategy(t *testing.T) {
	g := NewDefaultGrader()
	ctx := context.Background()

	res, err := g.Grade(ctx, mcq(), "5")
	require.NoError(t, err)
	assert.True(t, res.Correct)
	require.NotNil(t, res.Chosen)
	assert.EqualValues(t, 5, res.Chosen.ID)
	assert.EqualValues(t, 5, res.Key.ID)

	res, err = g.Grade(ctx, mcq(), " 6 ")
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.EqualValues(t, 6, res.Chosen.ID)
}

func TestChoiceStrategyIgnoresText(t *testing.T) {
	q := Q{ID: 3, Type: TypeTrueFalse, Choices: []Choice{
		{ID: 1, Text: "True", Correct: false},
		{ID: 2, Text: "True", Correct: true},
	}}
	res, err := NewDefaultGrader().Grade(context.Background(), q, "1")
	require.NoError(t, err)
	assert.False(t, res.Correct)
}

func TestChoiceStrategyRejectsMissingOrForeign(t *testing.T) {
	g := NewDefaultGrader()
	ctx := context.Background()

	_, err := g.Grade(ctx, mcq(), "")
	assert.ErrorIs(t, err, ErrNoResponse)
	_, err = g.Grade(ctx, mcq(), "77")
	assert.ErrorIs(t, err, ErrUnknownChoice)
	_, err = g.Grade(ctx, mcq(), "five")
	assert.ErrorIs(t, err, ErrUnknownChoice)
}

func TestAnswerKeyIntegrity(t *testing.T) {
	g := NewDefaultGrader()
	none := Q{ID: 4, Type: TypeMultipleChoice, Choices: []Choice{{ID: 1}, {ID: 2}}}
	_, err := g.Grade(context.Background(), none, "1")
	assert.ErrorIs(t, err, ErrAnswerKey)

	two := Q{ID: 4, Type: TypeUserInput, Choices: []Choice{{ID: 1, Text: "a", Correct: true}, {ID: 2, Text: "b", Correct: true}}}
	_, err = g.Grade(context.Background(), two, "a")
	assert.ErrorIs(t, err, ErrAnswerKey)
}

func TestUserInputDefaultPolicy(t *testing.T) {
	g := NewDefaultGrader()
	ctx := context.Background()

	res, err := g.Grade(ctx, uiq("42"), "42")
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, "42", res.Given)

	// surrounding whitespace is ignored
	res, err = g.Grade(ctx, uiq("Paris"), "  Paris\n")
	require.NoError(t, err)
	assert.True(t, res.Correct)

	// case is significant
	res, err = g.Grade(ctx, uiq("Paris"), "paris")
	require.NoError(t, err)
	assert.False(t, res.Correct)

	_, err = g.Grade(ctx, uiq("Paris"), "   ")
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestUserInputOptions(t *testing.T) {
	ctx := context.Background()

	res, err := NewDefaultGrader(WithCaseSensitive(false)).Grade(ctx, uiq("Paris"), "PARIS")
	require.NoError(t, err)
	assert.True(t, res.Correct)

	res, err = NewDefaultGrader(WithTrimSpace(false)).Grade(ctx, uiq("Paris"), "Paris ")
	require.NoError(t, err)
	assert.False(t, res.Correct)
}
