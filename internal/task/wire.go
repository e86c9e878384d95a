package task

import (
	"encoding/json"
	"time"
)

// Wire is the JSON shape tasks travel in. The documented backend emits
// snake_case but deployments exist that emit camelCase, so both are accepted
// on read with snake_case taking precedence. Writes always emit snake_case.
type Wire struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`

	ParentTaskID    *string `json:"parent_task_id"`
	ParentTaskTitle *string `json:"parent_task_title"`
	CreatedAt       *string `json:"created_at"`
	UpdatedAt       *string `json:"updated_at"`
	CompletedAt     *string `json:"completed_at"`

	// camelCase fallbacks
	ParentTaskIDAlt    *string `json:"parentTaskId"`
	ParentTaskTitleAlt *string `json:"parentTaskTitle"`
	CreatedAtAlt       *string `json:"createdAt"`
	UpdatedAtAlt       *string `json:"updatedAt"`
	CompletedAtAlt     *string `json:"completedAt"`
}

// firstOf returns the snake_case value when present, otherwise the camelCase
// fallback, otherwise the empty string.
func firstOf(snake, camel *string) string {
	if snake != nil {
		return *snake
	}
	if camel != nil {
		return *camel
	}
	return ""
}

// parseTime accepts RFC 3339 timestamps. Anything unparseable falls back to
// the provided default instead of failing the whole decode: the server owns
// these fields and a bad timestamp should not drop the task from the board.
func parseTime(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed
	}
	return fallback
}

// FromWire converts an inbound payload to a Task. Missing optional fields
// default to zero values, missing timestamps to the current time. The status
// string is passed through unchanged even when unknown.
func FromWire(w Wire) Task {
	now := time.Now()
	t := Task{
		ID:              w.ID,
		Title:           w.Title,
		Status:          Status(w.Status),
		ParentTaskID:    firstOf(w.ParentTaskID, w.ParentTaskIDAlt),
		ParentTaskTitle: firstOf(w.ParentTaskTitle, w.ParentTaskTitleAlt),
		CreatedAt:       parseTime(firstOf(w.CreatedAt, w.CreatedAtAlt), now),
	}
	t.UpdatedAt = parseTime(firstOf(w.UpdatedAt, w.UpdatedAtAlt), t.CreatedAt)
	if completed := firstOf(w.CompletedAt, w.CompletedAtAlt); completed != "" {
		parsed := parseTime(completed, now)
		t.CompletedAt = &parsed
	}
	if t.Status == "" {
		t.Status = StatusUncategorized
	}
	return t
}

// DecodeWire parses a raw JSON task object into a Task.
func DecodeWire(raw json.RawMessage) (Task, error) {
	var w Wire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Task{}, err
	}
	return FromWire(w), nil
}

// DecodeWireList parses a raw JSON array of task objects.
func DecodeWireList(raw json.RawMessage) ([]Task, error) {
	var wires []Wire
	if err := json.Unmarshal(raw, &wires); err != nil {
		return nil, err
	}
	tasks := make([]Task, len(wires))
	for i, w := range wires {
		tasks[i] = FromWire(w)
	}
	return tasks, nil
}

// ToWire converts a Task to its outbound JSON shape, emitting snake_case.
func (t *Task) ToWire() map[string]any {
	out := map[string]any{
		"id":     t.ID,
		"title":  t.Title,
		"status": string(t.Status),
	}
	if t.ParentTaskID != "" {
		out["parent_task_id"] = t.ParentTaskID
	}
	if t.ParentTaskTitle != "" {
		out["parent_task_title"] = t.ParentTaskTitle
	}
	return out
}
