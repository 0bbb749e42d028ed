package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskJSONCarriesType(t *testing.T) {
	task := Task{
		Origin:     OriginStored,
		Difficulty: Easy,
		Question:   "Соедините",
		Content:    MatchingContent{Pairs: []Pair{{Left: "a", Right: "1"}}},
		SourceID:   "row-1",
	}
	raw, err := json.Marshal(task)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "matching", fields["type"])
	assert.Equal(t, "STORED", fields["origin"])
	assert.Equal(t, "row-1", fields["sourceId"])

	var back Task
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, task, back)
	assert.Equal(t, Matching, back.Type())
}

func TestTaskWithoutContent(t *testing.T) {
	_, err := json.Marshal(Task{Question: "empty"})
	assert.Error(t, err)
	assert.Equal(t, TaskType(""), Task{}.Type())
}

func TestDecodeContentRejectsInvalidPayload(t *testing.T) {
	_, err := DecodeContent(SingleChoice, json.RawMessage(`{"options":["a","b"],"correctIndex":5}`))
	assert.ErrorContains(t, err, "out of range")

	_, err = DecodeContent(FillBlanks, json.RawMessage(`{"text":"x","blanks":[]}`))
	assert.ErrorContains(t, err, "no blanks")

	_, err = DecodeContent("essay", json.RawMessage(`{}`))
	assert.ErrorContains(t, err, "unknown task type")
}

func TestValidateContent(t *testing.T) {
	valid := []Content{
		SingleChoiceContent{Options: []string{"a", "b"}, CorrectIndex: 1},
		MultipleChoiceContent{Options: []string{"a", "b"}, CorrectIndices: []int{0, 1}},
		TrueFalseContent{},
		ShortAnswerContent{Answer: "4"},
		LongAnswerContent{Rubric: "полный ответ"},
		FillBlanksContent{Text: "{{blank}}", Blanks: []Blank{{Answer: "x"}}},
		MatchingContent{Pairs: []Pair{{Left: "a", Right: "b"}}},
	}
	for _, c := range valid {
		assert.NoError(t, ValidateContent(c), "%T", c)
	}

	invalid := []Content{
		nil,
		SingleChoiceContent{Options: []string{"a"}},
		MultipleChoiceContent{Options: []string{"a", "b"}},
		ShortAnswerContent{},
		LongAnswerContent{},
		MatchingContent{},
	}
	for _, c := range invalid {
		assert.Error(t, ValidateContent(c), "%T", c)
	}
}

func TestParseEnums(t *testing.T) {
	tt, ok := ParseTaskType("Fill-Blanks")
	assert.True(t, ok)
	assert.Equal(t, FillBlanks, tt)

	_, ok = ParseTaskType("essay")
	assert.False(t, ok)

	d, ok := ParseDifficulty(" HARD ")
	assert.True(t, ok)
	assert.Equal(t, Hard, d)

	f, ok := ParseFormat("olympiad")
	assert.True(t, ok)
	assert.Equal(t, FormatOlympiad, f)
	assert.Equal(t, "olympiad", f.Tag())

	assert.True(t, IsAllSentinel("all"))
	assert.True(t, IsAllSentinel(" Any "))
	assert.False(t, IsAllSentinel("easy"))
}

func TestCountByOrigin(t *testing.T) {
	counts := CountByOrigin([]Task{
		{Origin: OriginGenerated},
		{Origin: OriginStored},
		{Origin: OriginStored},
	})
	assert.Equal(t, 1, counts[OriginGenerated])
	assert.Equal(t, 2, counts[OriginStored])
}
