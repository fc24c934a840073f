package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Time     string `json:"time"`
	Duration string `json:"duration"`
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"Plain", "  [1, 2]  ", "[1, 2]"},
		{"JSONFence", "```json\n[1]\n```", "[1]"},
		{"BareFence", "```\n{\"a\": 1}\n```", "{\"a\": 1}"},
		{"InnerFencesRemovedWhenLeading", "```json\n[1]\n```\nmore ```json\n[2]```", "[1]\nmore [2]"},
		{"FenceNotLeading", "Here: ```json\n[1]\n```", "Here: ```json\n[1]\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.raw))
		})
	}
}

func TestCandidateSpan(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		shape Shape
		want  string
	}{
		{"Unfenced", `[{"name":"A"}]`, ShapeArray, `[{"name":"A"}]`},
		{"Fenced", "```json\n[{\"name\":\"A\"}]\n```", ShapeArray, `[{"name":"A"}]`},
		{"Commentary", "Sure! Here is your plan:\n[{\"name\":\"A\"}]\nEnjoy.", ShapeArray, `[{"name":"A"}]`},
		{"MultiplePairsGreedy", "[1] and [2]", ShapeArray, "[1] and [2]"},
		{"Object", "Replacement: {\"name\":\"B\",\"tags\":{\"x\":1}} done", ShapeObject, `{"name":"B","tags":{"x":1}}`},
		{"ObjectInsideArrayText", `[{"name":"C"}]`, ShapeObject, `{"name":"C"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CandidateSpan(tt.raw, tt.shape)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCandidateSpanNoCandidate(t *testing.T) {
	for _, raw := range []string{"", "I could not plan that.", "] backwards [", "{ only open"} {
		_, err := CandidateSpan(raw, ShapeArray)
		require.Error(t, err, raw)

		var extractErr *Error
		require.True(t, errors.As(err, &extractErr))
		assert.Equal(t, "span", extractErr.Stage)
		assert.True(t, errors.Is(err, ErrNoCandidate))
	}
}

func TestCandidateSpanIdempotent(t *testing.T) {
	fixtures := []string{
		"```json\n[{\"name\":\"A\"}]\n```",
		"prefix [1, [2, 3]] suffix ] tail",
		"[ ] ```json [ ]",
		"  {\"a\": [1]}  ",
		"```\n[{\"tip\": \"Use ``` sparingly\"}]\n```",
		"[x]",
	}

	for _, shape := range []Shape{ShapeArray, ShapeObject} {
		for _, raw := range fixtures {
			once, err := CandidateSpan(raw, shape)
			if err != nil {
				continue
			}
			twice, err := CandidateSpan(once, shape)
			require.NoError(t, err)
			assert.Equal(t, once, twice, "shape %s, input %q", shape, raw)
		}
	}
}

func TestDecode(t *testing.T) {
	t.Run("FencedFixture", func(t *testing.T) {
		raw := "```json\n[{\"type\":\"food\",\"name\":\"X\",\"time\":\"09:00 AM\",\"duration\":\"1 hr\",\"description\":\"d\"}]\n```"

		entries, err := Decode[[]entry](raw, ShapeArray)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "X", entries[0].Name)
		assert.Equal(t, "food", entries[0].Type)
	})

	t.Run("Object", func(t *testing.T) {
		got, err := Decode[entry]("Here you go {\"name\": \"Y\", \"type\": \"museum\"}", ShapeObject)
		require.NoError(t, err)
		assert.Equal(t, "Y", got.Name)
	})

	t.Run("DecodeFailure", func(t *testing.T) {
		_, err := Decode[[]entry]("[{\"name\": \"X\",}]", ShapeArray)
		require.Error(t, err)

		var extractErr *Error
		require.True(t, errors.As(err, &extractErr))
		assert.Equal(t, "decode", extractErr.Stage)
		assert.False(t, errors.Is(err, ErrNoCandidate))
	})

	t.Run("GreedySpanBreaksOnProseBrackets", func(t *testing.T) {
		_, err := Decode[[]entry]("[{\"name\": \"X\"}] see [notes]", ShapeArray)
		var extractErr *Error
		require.True(t, errors.As(err, &extractErr))
		assert.Equal(t, "decode", extractErr.Stage)
	})
}
