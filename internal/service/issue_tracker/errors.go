package issue_tracker

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-2xx tracker response with its structured error body.
type APIError struct {
	StatusCode    int
	ErrorMessages []string          `json:"errorMessages,omitempty"`
	Errors        map[string]string `json:"errors,omitempty"`
	Err           error             `json:"-"`
}

func (e *APIError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "jira: HTTP %d", e.StatusCode)
	for _, msg := range e.ErrorMessages {
		fmt.Fprintf(&sb, "; %s", msg)
	}
	for field, msg := range e.Errors {
		fmt.Fprintf(&sb, "; %s: %s", field, msg)
	}
	if len(e.ErrorMessages) == 0 && len(e.Errors) == 0 && e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Details renders the tracker's error payload as indented JSON, or "" when
// the response carried none.
func (e *APIError) Details() string {
	if len(e.ErrorMessages) == 0 && len(e.Errors) == 0 {
		return ""
	}
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}
