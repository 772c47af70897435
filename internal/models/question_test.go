package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionListDecodesArrayShape(t *testing.T) {
	raw := `[{"text":"3","is_correct":false},{"text":"4","is_correct":true}]`
	var opts OptionList
	require.NoError(t, json.Unmarshal([]byte(raw), &opts))
	require.Len(t, opts, 2)
	assert.Equal(t, "A", opts[0].ID)
	assert.Equal(t, "B", opts[1].ID)

	correct, ok := opts.CorrectOption()
	require.True(t, ok)
	assert.Equal(t, "4", correct.Text)
}

func TestOptionListDecodesKeyedMapShape(t *testing.T) {
	raw := `{"B":"Paris","A":"London","C":"Rome"}`
	var opts OptionList
	require.NoError(t, json.Unmarshal([]byte(raw), &opts))
	require.Len(t, opts, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{opts[0].ID, opts[1].ID, opts[2].ID})
	assert.Equal(t, "London", opts[0].Text)

	_, ok := opts.CorrectOption()
	assert.False(t, ok, "keyed map shape carries no correctness")

	require.True(t, opts.MarkCorrect("B"))
	correct, ok := opts.CorrectOption()
	require.True(t, ok)
	assert.Equal(t, "Paris", correct.Text)
}

func TestOptionListRejectsUnknownShape(t *testing.T) {
	var opts OptionList
	err := json.Unmarshal([]byte(`"not options"`), &opts)
	require.Error(t, err)
}

func TestQuestionSanitizedStripsCorrectness(t *testing.T) {
	q := Question{
		Text: "capital of France?",
		Options: OptionList{
			{ID: "A", Text: "Paris", IsCorrect: true},
			{ID: "B", Text: "Lyon"},
		},
	}
	clean := q.Sanitized()
	for _, opt := range clean.Options {
		assert.False(t, opt.IsCorrect)
	}
	// Original untouched.
	correct, ok := q.Options.CorrectOption()
	require.True(t, ok)
	assert.Equal(t, "A", correct.ID)
}
