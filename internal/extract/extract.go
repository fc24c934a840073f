// Package extract pulls a JSON value out of free-form model output.
//
// Models are asked to answer with bare JSON but regularly wrap it in code
// fences or surround it with commentary. The helpers here strip fences,
// locate the bracketed span and decode it. The scan is greedy and not
// nesting-aware: it assumes one top-level value and no stray brackets in
// the surrounding prose.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Shape selects which bracket pair delimits the candidate span.
type Shape int

const (
	ShapeArray Shape = iota
	ShapeObject
)

func (s Shape) delimiters() (opening, closing string) {
	if s == ShapeObject {
		return "{", "}"
	}
	return "[", "]"
}

func (s Shape) String() string {
	if s == ShapeObject {
		return "object"
	}
	return "array"
}

// ErrNoCandidate is wrapped by Error when no bracketed span exists.
var ErrNoCandidate = errors.New("no json candidate found")

// Error is a typed extraction failure. Stage is "span" or "decode".
type Error struct {
	Stage string
	Raw   string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

const fence = "```"

var (
	jsonFence  = regexp.MustCompile("```json\\n?")
	plainFence = regexp.MustCompile("```\\n?")
)

// StripFences trims raw and, when it opens with a code fence, removes every
// fence marker wherever it appears.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, fence) {
		return text
	}
	text = jsonFence.ReplaceAllString(text, "")
	text = plainFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// CandidateSpan returns the substring from the first opening to the last
// closing delimiter of shape, after fences are stripped.
// CandidateSpan(CandidateSpan(x)) == CandidateSpan(x) for any x it accepts.
func CandidateSpan(raw string, shape Shape) (string, error) {
	text := StripFences(raw)
	opening, closing := shape.delimiters()

	start := strings.Index(text, opening)
	end := strings.LastIndex(text, closing)
	if start == -1 || end == -1 || end < start {
		return "", &Error{Stage: "span", Raw: raw, Err: fmt.Errorf("%w (%s)", ErrNoCandidate, shape)}
	}
	return text[start : end+1], nil
}

// Decode extracts the candidate span for shape and unmarshals it into T.
func Decode[T any](raw string, shape Shape) (T, error) {
	var out T
	span, err := CandidateSpan(raw, shape)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(span), &out); err != nil {
		return out, &Error{Stage: "decode", Raw: raw, Err: err}
	}
	return out, nil
}
