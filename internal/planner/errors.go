package planner

import (
	"errors"
	"fmt"
)

// ValidationError reports bad or missing user input. The user corrects
// the form and resubmits.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// GenerationError wraps a failed call to the generation provider:
// network failure, API error, timeout or rate limiting.
type GenerationError struct {
	Op          string
	RateLimited bool
	Err         error
}

func (e *GenerationError) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("%s: rate limited: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ParseError reports a provider response that does not follow the
// meal plan format. Raw keeps the offending text for logging.
type ParseError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse meal plan: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to parse meal plan: %s", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UserMessage turns an error returned by this package into text fit for
// the person using the planner.
func UserMessage(err error) string {
	var validationErr *ValidationError
	var generationErr *GenerationError
	var parseErr *ParseError

	switch {
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.As(err, &generationErr) && generationErr.RateLimited:
		return "The meal service is busy right now. Please wait a minute and try again."
	case errors.As(err, &generationErr):
		return "Could not reach the meal service. Please try again."
	case errors.As(err, &parseErr):
		return "The meal service returned something unexpected. Please try again."
	}
	return "Something went wrong. Please try again."
}
