package itinerary

import (
	"context"
	"errors"
	"fmt"

	"ai-day-planner/internal/extract"
	"ai-day-planner/internal/llm"
)

// ErrCredentialMissing is returned before any network call when no API
// key is available.
var ErrCredentialMissing = errors.New("api credential missing")

// Reasons carried by RequestError.
const (
	ReasonHTTPStatus    = "http_status"
	ReasonEmptyResponse = "empty_response"
	ReasonTransport     = "transport"
)

// RequestError is a failed call to the model endpoint.
type RequestError struct {
	Reason  string
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ParseError means the reply could not be turned into entries.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse model reply: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newRequestError(err error) error {
	var statusErr *llm.StatusError
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		return ErrCredentialMissing
	case errors.As(err, &statusErr):
		return &RequestError{Reason: ReasonHTTPStatus, Message: "failed to generate itinerary, check your API key", Err: err}
	case errors.Is(err, llm.ErrEmptyResponse), errors.Is(err, llm.ErrMalformedResponse):
		return &RequestError{Reason: ReasonEmptyResponse, Message: "empty response from model", Err: err}
	default:
		return &RequestError{Reason: ReasonTransport, Message: "could not reach the model", Err: err}
	}
}

func newParseError(raw string, err error) error {
	return &ParseError{Raw: raw, Err: err}
}

// UserMessage turns a generation failure into the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var reqErr *RequestError
	var parseErr *ParseError
	var extractErr *extract.Error
	switch {
	case errors.Is(err, ErrCredentialMissing):
		return "An API key is required to generate an itinerary."
	case errors.Is(err, context.Canceled):
		return "Generation was cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "The model took too long to answer. Please try again."
	case errors.As(err, &reqErr) && reqErr.Reason == ReasonHTTPStatus:
		return "Failed to generate itinerary. Check your API key."
	case errors.As(err, &reqErr) && reqErr.Reason == ReasonEmptyResponse:
		return "The model returned an empty response. Please try again."
	case errors.As(err, &reqErr):
		return "Could not reach the model. Please try again."
	case errors.As(err, &parseErr) && errors.As(err, &extractErr) && extractErr.Stage == "span":
		return "No valid itinerary found in the response. Please try again."
	case errors.As(err, &parseErr):
		return "The itinerary could not be read. Please try again."
	default:
		return "Failed to generate itinerary. Please try again."
	}
}
