package engine_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"eisen/internal/engine"
	"eisen/internal/gateway"
	"eisen/internal/server"
	"eisen/internal/state"
	"eisen/internal/task"
)

// harness wires a real gateway and engine against the in-process backend,
// with CSRF enforcement on. This is the full client stack minus the TUI.
type harness struct {
	backend *server.Server
	store   *state.Store
	eng     *engine.Engine
}

func newHarness(t *testing.T, opts server.Options) *harness {
	t.Helper()
	opts.RequireCSRF = true

	backend := server.New(opts)
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	store := state.NewStore()
	gw := gateway.New(gateway.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, store)
	eng := engine.New(store, gw, nil, engine.WithBreakdownPoll(20, 10*time.Millisecond))
	return &harness{backend: backend, store: store, eng: eng}
}

func TestEndToEndLifecycle(t *testing.T) {
	h := newHarness(t, server.Options{})
	ctx := context.Background()

	if err := h.eng.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if status, _ := h.store.Connection(); status != state.Connected {
		t.Fatalf("expected Connected, got %s", status)
	}

	// Create flows through the CSRF handshake: the initial reload already
	// banked a token, and every response rotates it.
	if err := h.eng.CreateTask(ctx, "ship the release"); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	tasks := h.store.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	id := tasks[0].ID

	if err := h.eng.UpdateStatus(ctx, id, task.StatusUrgentImportant); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	moved, _, _ := h.store.Find(id)
	if moved.Status != task.StatusUrgentImportant {
		t.Errorf("expected urgent_important, got %s", moved.Status)
	}

	if err := h.eng.CompleteTask(ctx, id); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	done, _, _ := h.store.Find(id)
	if !done.Completed() || done.CompletedAt == nil {
		t.Errorf("expected completed task with timestamp, got %+v", done)
	}

	// Stats piggyback on completion.
	stats := h.store.WeeklyStats()
	if stats == nil || stats.TotalCompleted < 1 {
		t.Errorf("expected completion reflected in stats, got %+v", stats)
	}

	if err := h.eng.DeleteTask(ctx, id); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if len(h.store.Tasks()) != 0 {
		t.Error("expected empty board after delete")
	}
	if h.backend.TaskCount() != 0 {
		t.Error("expected empty backend after delete")
	}
}

func TestEndToEndTokenSurvivesMismatch(t *testing.T) {
	h := newHarness(t, server.Options{})
	ctx := context.Background()

	if err := h.eng.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := h.eng.CreateTask(ctx, "first"); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	// Poison the client's token. The next mutation fails, but the backend
	// attaches a fresh token to the rejection, so the one after succeeds.
	h.store.SetCSRFToken("stale-token")
	id := h.store.Tasks()[0].ID

	if err := h.eng.UpdateStatus(ctx, id, task.StatusNotUrgentImportant); err == nil {
		t.Fatal("expected CSRF rejection with a poisoned token")
	}
	got, _, _ := h.store.Find(id)
	if got.Status == task.StatusNotUrgentImportant {
		t.Error("rejected mutation must be rolled back")
	}

	if err := h.eng.UpdateStatus(ctx, id, task.StatusNotUrgentImportant); err != nil {
		t.Fatalf("expected recovery with the reissued token, got %v", err)
	}
}

func TestEndToEndBreakdown(t *testing.T) {
	h := newHarness(t, server.Options{BreakdownDelay: 30 * time.Millisecond})
	ctx := context.Background()

	if err := h.eng.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := h.eng.CreateTask(ctx, "launch the product"); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	parentID := h.store.Tasks()[0].ID

	if err := h.eng.RequestBreakdown(ctx, parentID); err != nil {
		t.Fatalf("RequestBreakdown failed: %v", err)
	}

	subtasks := 0
	for _, tk := range h.store.Tasks() {
		if tk.ParentTaskID == parentID {
			subtasks++
		}
	}
	if subtasks != 3 {
		t.Fatalf("expected 3 subtasks after poll, got %d", subtasks)
	}

	selected := h.store.SelectedTaskID()
	if selected == "" || selected == parentID {
		t.Errorf("expected a subtask selected, got %q", selected)
	}
	sel, _, ok := h.store.Find(selected)
	if !ok || sel.ParentTaskID != parentID || sel.Completed() {
		t.Errorf("selection must be a pending subtask, got %+v", sel)
	}
}

func TestEndToEndDisplayOnlyWithoutBackend(t *testing.T) {
	store := state.NewStore()
	gw := gateway.New(gateway.Config{}, store)
	eng := engine.New(store, gw, nil)

	if err := eng.Initialize(context.Background()); err != nil {
		t.Fatalf("expected display-only init to succeed, got %v", err)
	}
	if status, _ := store.Connection(); status != state.Disconnected {
		t.Errorf("expected Disconnected, got %s", status)
	}
	if err := eng.CreateTask(context.Background(), "nope"); err == nil {
		t.Error("expected mutation rejected without a backend")
	}
}
