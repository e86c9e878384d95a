// Package task defines the task entity of the Eisenhower board and its
// wire-format conversion helpers. The remote backend is the authority on task
// contents; everything here decodes tolerantly and never invents data beyond
// the defaults a freshly created task needs.
package task

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Status is the matrix bucket a task lives in.
type Status string

const (
	StatusUncategorized         Status = "uncategorized"
	StatusUrgentImportant       Status = "urgent_important"
	StatusNotUrgentImportant    Status = "not_urgent_important"
	StatusUrgentNotImportant    Status = "urgent_not_important"
	StatusNotUrgentNotImportant Status = "not_urgent_not_important"
	StatusCompleted             Status = "completed"
)

// KnownStatuses lists the statuses a client may request, in display order.
// Inbound tasks may carry other strings; those are kept as-is since the
// server decides what a valid status is.
var KnownStatuses = []Status{
	StatusUncategorized,
	StatusUrgentImportant,
	StatusNotUrgentImportant,
	StatusUrgentNotImportant,
	StatusNotUrgentNotImportant,
	StatusCompleted,
}

// IsKnown reports whether s is one of the six statuses this client is
// allowed to write.
func (s Status) IsKnown() bool {
	for _, known := range KnownStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Label returns a human-readable name for a status. Unknown statuses are
// shown verbatim.
func (s Status) Label() string {
	switch s {
	case StatusUncategorized:
		return "Uncategorized"
	case StatusUrgentImportant:
		return "Urgent & Important"
	case StatusNotUrgentImportant:
		return "Important, Not Urgent"
	case StatusUrgentNotImportant:
		return "Urgent, Not Important"
	case StatusNotUrgentNotImportant:
		return "Neither Urgent Nor Important"
	case StatusCompleted:
		return "Completed"
	}
	return string(s)
}

// MaxTitleLen is the client-side title limit, matching the backend's
// sanitizer so oversized input is rejected before a request is made.
const MaxTitleLen = 100

// ValidationError reports locally rejected input. It is raised before any
// network call is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateTitle trims the title and checks the local constraints. It returns
// the trimmed title on success.
func ValidateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(trimmed) > MaxTitleLen {
		return "", &ValidationError{
			Field:  "title",
			Reason: fmt.Sprintf("must not exceed %d characters", MaxTitleLen),
		}
	}
	return trimmed, nil
}

// Task is one item on the board. Instances are treated as immutable values;
// mutations go through the synchronization engine, which works on copies.
type Task struct {
	ID              string
	Title           string
	Status          Status
	ParentTaskID    string // set when this task came out of an AI breakdown
	ParentTaskTitle string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time // nil until the task completes, then fixed
}

// New constructs a locally created task pending server confirmation. The ID
// is client-generated and replaced by the server-assigned one once the
// creation round-trips.
func New(title string, status Status) (*Task, error) {
	trimmed, err := ValidateTitle(title)
	if err != nil {
		return nil, err
	}
	if status == "" {
		status = StatusUncategorized
	}
	now := time.Now()
	return &Task{
		ID:        GenerateID(),
		Title:     trimmed,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GenerateID produces a client-side task identifier. The format is
// task-<unix-millis>-<random> so locally minted IDs are recognizable in
// logs next to server-assigned ones.
func GenerateID() string {
	return fmt.Sprintf("task-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// Clone returns a value snapshot of the task. The synchronization engine
// snapshots before every optimistic mutation so a failed request can restore
// the exact prior field values.
func (t *Task) Clone() Task {
	clone := *t
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		clone.CompletedAt = &completed
	}
	return clone
}

// Completed reports whether the task reached its terminal state.
func (t *Task) Completed() bool {
	return t.Status == StatusCompleted
}
