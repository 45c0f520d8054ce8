package agent

import (
	"errors"
	"fmt"
)

// ErrInvalidResponseFormat is returned when the agent answered with a shape that
// carries no text. It is never retried.
var ErrInvalidResponseFormat = errors.New("invalid AI response format")

// StatusError is a non-2xx answer from the agent endpoint
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("agent returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("agent returned status %d: %s", e.StatusCode, e.Body)
}

// RequestError is the terminal failure of CallAgent after all attempts were used
type RequestError struct {
	Agent    string
	Attempts int
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("agent %s failed after %d attempt(s): %v", e.Agent, e.Attempts, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
