package utils

import (
	"errors"
	"fmt"
	"strings"

	"eisen/internal/task"
)

// ErrorWithSuggestion pairs a failure with a next step the user can take.
// The CLI prints both; the TUI shows only the underlying message in the
// status bar.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

func (e *ErrorWithSuggestion) Error() string {
	if e.Err == nil {
		return e.Suggestion
	}
	return fmt.Sprintf("%s\n\nSuggestion: %s", e.Err.Error(), e.Suggestion)
}

func (e *ErrorWithSuggestion) Unwrap() error { return e.Err }

// GetSuggestion returns the suggestion text.
func (e *ErrorWithSuggestion) GetSuggestion() string {
	return e.Suggestion
}

// WrapWithSuggestion attaches a suggestion to an existing error.
func WrapWithSuggestion(err error, suggestion string) error {
	return &ErrorWithSuggestion{Err: err, Suggestion: suggestion}
}

// ErrBackendNotConfigured returns an error for when no API base URL is set.
// Every mutating operation short-circuits on this before any network call.
func ErrBackendNotConfigured() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("backend not configured"),
		Suggestion: "Set api.base_url in your config file or export EISEN_API_URL",
	}
}

// ErrTaskNotFound returns an error for when a task is not in local state.
func ErrTaskNotFound(id string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("task not found: %s", id),
		Suggestion: "Run 'eisen list' to see the current board",
	}
}

// ErrInvalidStatus returns an error for a status outside the known set.
func ErrInvalidStatus(status string) error {
	valid := make([]string, len(task.KnownStatuses))
	for i, s := range task.KnownStatuses {
		valid[i] = string(s)
	}
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid status: %s", status),
		Suggestion: fmt.Sprintf("Valid options: %s", strings.Join(valid, ", ")),
	}
}

// ErrSyncInProgress returns an error for a mutation attempted while another
// mutation on the same task is still in flight.
func ErrSyncInProgress(id string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("task %s has a sync in progress", id),
		Suggestion: "Wait for the current change to finish, then retry",
	}
}

// ErrBackendOffline returns an error when the backend is unreachable with a
// context-aware suggestion derived from the transport failure.
func ErrBackendOffline(reason string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("backend is offline: %s", reason),
		Suggestion: getSmartSuggestion(reason),
	}
}

var transportSuggestions = []struct {
	marker     string
	suggestion string
}{
	{"no such host", "Check your DNS settings and internet connection"},
	{"dns", "Check your DNS settings and internet connection"},
	{"connection refused", "Check if the server is running and accessible"},
	{"timeout", "The server may be slow or unreachable. Try again later"},
}

func getSmartSuggestion(reason string) string {
	lower := strings.ToLower(reason)
	for _, t := range transportSuggestions {
		if strings.Contains(lower, t.marker) {
			return t.suggestion
		}
	}
	return "Check your internet connection and try again"
}

// ErrAuthenticationFailed returns an error when the backend rejects the
// bearer token.
func ErrAuthenticationFailed() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("authentication failed"),
		Suggestion: "Verify your API token with 'eisen token set'",
	}
}
