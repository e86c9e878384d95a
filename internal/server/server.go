// Package server implements an in-memory reference backend speaking the
// task board wire protocol: the payload envelope, CSRF token rotation, the
// task CRUD endpoints, weekly stats and a simulated breakdown. It exists
// for local trial runs (`eisen serve`) and as the end-to-end test target;
// it deliberately persists nothing.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"eisen/internal/task"
	"eisen/internal/utils"
)

// Options tune the demo backend's behavior.
type Options struct {
	APIToken       string        // when set, requests must carry ?token=
	RequireCSRF    bool          // reject mutations without the last issued token
	BreakdownDelay time.Duration // simulated asynchronous breakdown latency
	WithoutHealth  bool          // serve 404 on /health to exercise the fallback probe
}

// Server holds the in-memory task set and the rotating CSRF token.
type Server struct {
	opts Options
	log  *utils.Logger

	mu        sync.Mutex
	tasks     []storedTask
	csrfToken string
}

type storedTask struct {
	ID              string
	Title           string
	Status          task.Status
	ParentTaskID    string
	ParentTaskTitle string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// New creates a demo backend.
func New(opts Options) *Server {
	return &Server{opts: opts, log: utils.GetLogger()}
}

// Handler returns the HTTP handler for the wire API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.authMiddleware)

	r.Get("/tasks", s.handleListTasks)
	r.Post("/tasks", s.handleCreateTask)
	r.Post("/tasks/update", s.handleUpdateStatus)
	r.Post("/tasks/{id}/complete", s.handleCompleteTask)
	r.Post("/tasks/{id}/delete", s.handleDeleteTask)
	r.Post("/tasks/{id}/breakdown", s.handleBreakdown)
	r.Get("/stats/weekly", s.handleWeeklyStats)
	if !s.opts.WithoutHealth {
		r.Get("/health", s.handleHealth)
	}
	return r
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIToken != "" && r.URL.Query().Get("token") != s.opts.APIToken {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Seed inserts a task directly, bypassing the wire protocol. Test setup
// helper.
func (s *Server) Seed(t task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, storedTask{
		ID:              t.ID,
		Title:           t.Title,
		Status:          t.Status,
		ParentTaskID:    t.ParentTaskID,
		ParentTaskTitle: t.ParentTaskTitle,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		CompletedAt:     t.CompletedAt,
	})
}

// TaskCount returns the number of stored tasks.
func (s *Server) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// decodePayload extracts the JSON payload from the form-encoded request
// body. Clients send `payload=<json>` as text/plain; the occasional direct
// JSON body is accepted too.
func decodePayload(r *http.Request) (map[string]any, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(string(raw))
	if body == "" {
		return map[string]any{}, nil
	}
	if strings.HasPrefix(body, "{") {
		var direct map[string]any
		if err := json.Unmarshal([]byte(body), &direct); err != nil {
			return nil, err
		}
		return direct, nil
	}
	form, err := url.ParseQuery(body)
	if err != nil {
		return nil, err
	}
	payload := form.Get("payload")
	if payload == "" {
		return map[string]any{}, nil
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

// checkCSRF validates the token carried in the payload or the query against
// the last issued one. The first mutation of a session, before any token
// was issued, passes.
func (s *Server) checkCSRF(r *http.Request, payload map[string]any) bool {
	if !s.opts.RequireCSRF {
		return true
	}
	s.mu.Lock()
	expected := s.csrfToken
	s.mu.Unlock()
	if expected == "" {
		return true
	}
	if got, _ := payload["csrf_token"].(string); got == expected {
		return true
	}
	return r.URL.Query().Get("csrf_token") == expected
}

// rotateCSRF issues a fresh session token and returns it.
func (s *Server) rotateCSRF() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.csrfToken = uuid.NewString()
	return s.csrfToken
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	// Served as text/plain on purpose: the reference deployment does the
	// same and clients must parse JSON regardless of content type.
	w.Header().Set("Content-Type", "text/plain;charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeCSRFError(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":    false,
		"code":       "CSRF_TOKEN_MISMATCH",
		"message":    "missing or stale session token",
		"csrf_token": s.rotateCSRF(),
	})
}

func wireTask(t storedTask) map[string]any {
	out := map[string]any{
		"id":         t.ID,
		"title":      t.Title,
		"status":     string(t.Status),
		"created_at": t.CreatedAt.Format(time.RFC3339),
		"updated_at": t.UpdatedAt.Format(time.RFC3339),
	}
	if t.ParentTaskID != "" {
		out["parent_task_id"] = t.ParentTaskID
		out["parent_task_title"] = t.ParentTaskTitle
	}
	if t.CompletedAt != nil {
		out["completed_at"] = t.CompletedAt.Format(time.RFC3339)
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	wire := make([]map[string]any, len(s.tasks))
	for i, t := range s.tasks {
		wire[i] = wireTask(t)
	}
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"tasks":      wire,
		"csrf_token": s.rotateCSRF(),
	})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.checkCSRF(r, payload) {
		s.writeCSRFError(w)
		return
	}

	title, _ := payload["title"].(string)
	trimmed, err := task.ValidateTitle(title)
	if err != nil {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success":    false,
			"code":       "INVALID_TITLE",
			"message":    err.Error(),
			"csrf_token": s.rotateCSRF(),
		})
		return
	}

	status := task.StatusUncategorized
	if raw, ok := payload["status"].(string); ok && raw != "" {
		status = task.Status(raw)
	}
	parentID, _ := payload["parent_task_id"].(string)
	parentTitle, _ := payload["parent_task_title"].(string)

	now := time.Now()
	created := storedTask{
		ID:              "srv-" + uuid.NewString()[:12],
		Title:           trimmed,
		Status:          status,
		ParentTaskID:    parentID,
		ParentTaskTitle: parentTitle,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.mu.Lock()
	s.tasks = append(s.tasks, created)
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"task":       wireTask(created),
		"csrf_token": s.rotateCSRF(),
	})
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.checkCSRF(r, payload) {
		s.writeCSRFError(w)
		return
	}

	id, _ := payload["id"].(string)
	status, _ := payload["status"].(string)
	if !task.Status(status).IsKnown() {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success":    false,
			"code":       "INVALID_STATUS",
			"message":    fmt.Sprintf("unknown status %q", status),
			"csrf_token": s.rotateCSRF(),
		})
		return
	}

	s.mu.Lock()
	idx := s.findLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		http.NotFound(w, r)
		return
	}
	s.tasks[idx].Status = task.Status(status)
	s.tasks[idx].UpdatedAt = time.Now()
	updated := s.tasks[idx]
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"task":       wireTask(updated),
		"csrf_token": s.rotateCSRF(),
	})
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	payload, _ := decodePayload(r)
	if !s.checkCSRF(r, payload) {
		s.writeCSRFError(w)
		return
	}

	id := chi.URLParam(r, "id")
	now := time.Now()

	s.mu.Lock()
	idx := s.findLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		http.NotFound(w, r)
		return
	}
	if s.tasks[idx].CompletedAt == nil {
		s.tasks[idx].Status = task.StatusCompleted
		s.tasks[idx].UpdatedAt = now
		s.tasks[idx].CompletedAt = &now
	}
	updated := s.tasks[idx]
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"task":       wireTask(updated),
		"csrf_token": s.rotateCSRF(),
	})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	payload, _ := decodePayload(r)
	if !s.checkCSRF(r, payload) {
		s.writeCSRFError(w)
		return
	}

	id := chi.URLParam(r, "id")

	s.mu.Lock()
	idx := s.findLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		http.NotFound(w, r)
		return
	}
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"result":     "deleted",
		"csrf_token": s.rotateCSRF(),
	})
}

// handleBreakdown simulates the AI decomposition: the response returns
// immediately and the subtasks materialize after the configured delay, the
// way a real deployment's asynchronous pipeline would.
func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	payload, _ := decodePayload(r)
	if !s.checkCSRF(r, payload) {
		s.writeCSRFError(w)
		return
	}

	id := chi.URLParam(r, "id")

	s.mu.Lock()
	idx := s.findLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		http.NotFound(w, r)
		return
	}
	parent := s.tasks[idx]
	s.mu.Unlock()

	materialize := func() {
		now := time.Now()
		steps := []string{"Plan", "Execute", "Review"}
		s.mu.Lock()
		for _, step := range steps {
			s.tasks = append(s.tasks, storedTask{
				ID:              "srv-" + uuid.NewString()[:12],
				Title:           fmt.Sprintf("%s: %s", step, parent.Title),
				Status:          task.StatusUncategorized,
				ParentTaskID:    parent.ID,
				ParentTaskTitle: parent.Title,
				CreatedAt:       now,
				UpdatedAt:       now,
			})
		}
		s.mu.Unlock()
		s.log.Debug("breakdown of %s produced %d subtasks", parent.ID, len(steps))
	}

	if s.opts.BreakdownDelay > 0 {
		time.AfterFunc(s.opts.BreakdownDelay, materialize)
	} else {
		materialize()
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"result":     "breakdown queued",
		"csrf_token": s.rotateCSRF(),
	})
}

func (s *Server) handleWeeklyStats(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // weeks start on Monday
	}
	weekStart := now.AddDate(0, 0, -(weekday - 1)).Truncate(24 * time.Hour)
	weekEnd := weekStart.AddDate(0, 0, 7)

	s.mu.Lock()
	created, completed := 0, 0
	var lifetimeSum float64
	for _, t := range s.tasks {
		if !t.CreatedAt.Before(weekStart) && t.CreatedAt.Before(weekEnd) {
			created++
		}
		if t.CompletedAt != nil && !t.CompletedAt.Before(weekStart) && t.CompletedAt.Before(weekEnd) {
			completed++
			lifetimeSum += t.CompletedAt.Sub(t.CreatedAt).Hours() / 24
		}
	}
	s.mu.Unlock()

	stats := map[string]any{
		"week_start":      weekStart.Format("2006-01-02"),
		"week_end":        weekEnd.AddDate(0, 0, -1).Format("2006-01-02"),
		"total_created":   created,
		"total_completed": completed,
		"updated_at":      now.Format(time.RFC3339),
	}
	if created > 0 {
		stats["completion_rate"] = float64(completed) / float64(created)
		stats["adoption_rate"] = 1.0
	}
	if completed > 0 {
		stats["avg_lifetime_days"] = lifetimeSum / float64(completed)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"stats":      stats,
		"csrf_token": s.rotateCSRF(),
	})
}

// findLocked returns the index of the task with the given ID. Caller holds
// the lock.
func (s *Server) findLocked(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
