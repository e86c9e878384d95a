// Package engine implements the task synchronization engine: the only
// component that mutates application state. Every state-changing user action
// follows the same shape: precondition check, snapshot, optimistic apply,
// remote call, reconcile on success, rollback on failure. Failures never
// leave the store inconsistent with what the server last confirmed.
package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"eisen/internal/gateway"
	"eisen/internal/state"
	"eisen/internal/task"
	"eisen/internal/utils"
)

// Gateway is the remote operation surface the engine needs. *gateway.Client
// satisfies it; tests substitute a fake to simulate failures.
type Gateway interface {
	Configured() bool
	LoadTasks(ctx context.Context) ([]task.Task, error)
	CreateTask(ctx context.Context, params gateway.CreateParams) (*task.Task, error)
	UpdateStatus(ctx context.Context, id string, status task.Status) (*task.Task, error)
	CompleteTask(ctx context.Context, id string) (*task.Task, error)
	DeleteTask(ctx context.Context, id string) error
	FetchWeeklyStats(ctx context.Context) (*task.WeeklyStats, error)
	RequestBreakdown(ctx context.Context, id string) (json.RawMessage, error)
}

// Level classifies user-facing feedback messages.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

// Presenter is the UI surface the engine drives: repaints after each state
// mutation and short user-facing notices. Implementations must be safe to
// call from the goroutine running the operation.
type Presenter interface {
	Repaint()
	Feedback(level Level, message string)
}

// NopPresenter discards all presentation calls. Used by headless tests.
type NopPresenter struct{}

func (NopPresenter) Repaint()               {}
func (NopPresenter) Feedback(Level, string) {}

// Engine orchestrates every remote operation against the gateway and owns
// all writes to the task fields of the store.
type Engine struct {
	store *state.Store
	gw    Gateway
	ui    Presenter
	log   *utils.Logger
	now   func() time.Time

	// Per-task in-flight guard: a second mutation on a task whose first
	// mutation has not resolved is rejected locally, so a late response
	// can never overwrite the wrong snapshot.
	inflightMu sync.Mutex
	inflight   map[string]struct{}

	pollAttempts int
	pollInterval time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock substitutes the time source. Tests use this to pin timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithBreakdownPoll tunes the bounded reload poll that follows a breakdown
// request. Breakdown is asynchronous server work, so the engine re-reads the
// task list up to attempts times, interval apart, until subtasks appear.
func WithBreakdownPoll(attempts int, interval time.Duration) Option {
	return func(e *Engine) {
		e.pollAttempts = attempts
		e.pollInterval = interval
	}
}

// New creates an engine over the given store, gateway and presenter.
func New(store *state.Store, gw Gateway, ui Presenter, opts ...Option) *Engine {
	if ui == nil {
		ui = NopPresenter{}
	}
	e := &Engine{
		store:        store,
		gw:           gw,
		ui:           ui,
		log:          utils.GetLogger(),
		now:          time.Now,
		inflight:     make(map[string]struct{}),
		pollAttempts: 5,
		pollInterval: time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) acquire(id string) bool {
	e.inflightMu.Lock()
	defer e.inflightMu.Unlock()
	if _, busy := e.inflight[id]; busy {
		return false
	}
	e.inflight[id] = struct{}{}
	return true
}

func (e *Engine) release(id string) {
	e.inflightMu.Lock()
	defer e.inflightMu.Unlock()
	delete(e.inflight, id)
}

// Initialize performs the initial full reload and, when a backend is
// configured, the first stats fetch. Connection monitoring is started by the
// caller, which owns the monitor's lifecycle.
func (e *Engine) Initialize(ctx context.Context) error {
	if err := e.ReloadTasks(ctx, true); err != nil {
		return err
	}
	if e.gw.Configured() {
		_ = e.RefreshStats(ctx)
	}
	return nil
}

// ReloadTasks fetches the complete task collection and replaces local state
// wholesale. No merging: the server is authoritative and the client holds
// no durable state to reconcile against. A selection that no longer exists
// in the new collection is cleared.
func (e *Engine) ReloadTasks(ctx context.Context, showLoader bool) error {
	if !e.gw.Configured() {
		e.store.SetConnection(state.Disconnected, "set api.base_url in the config file")
		e.store.ReplaceTasks(nil)
		e.ui.Repaint()
		return nil
	}

	if showLoader {
		e.store.SetConnection(state.Connecting, "syncing...")
		e.ui.Repaint()
	}

	tasks, err := e.gw.LoadTasks(ctx)
	if err != nil {
		e.log.Error("task reload failed: %v", err)
		e.store.SetConnection(state.Disconnected, "sync failed, check the backend service")
		e.ui.Repaint()
		return err
	}

	e.store.ReplaceTasks(tasks)
	e.store.SetConnection(state.Connected, "connected to backend")
	e.store.SetLastSync(e.now())
	e.ui.Repaint()
	return nil
}

// CreateTask validates the title locally and creates the task remotely. The
// result set of a creation cannot be predicted locally (the server assigns
// the ID and may normalize fields), so reconciliation is a full reload
// rather than an optimistic insert.
func (e *Engine) CreateTask(ctx context.Context, title string) error {
	if !e.gw.Configured() {
		err := utils.ErrBackendNotConfigured()
		e.ui.Feedback(LevelError, "no backend configured")
		return err
	}

	trimmed, err := task.ValidateTitle(title)
	if err != nil {
		e.ui.Feedback(LevelError, err.Error())
		return err
	}

	e.ui.Feedback(LevelInfo, "syncing...")

	if _, err := e.gw.CreateTask(ctx, gateway.CreateParams{Title: trimmed}); err != nil {
		e.log.Error("task creation failed: %v", err)
		e.ui.Feedback(LevelError, "sync failed, please retry")
		return err
	}
	if err := e.ReloadTasks(ctx, false); err != nil {
		return err
	}
	e.ui.Feedback(LevelSuccess, "task created")
	_ = e.RefreshStats(ctx)
	return nil
}

// UpdateStatus moves a task to another matrix bucket, optimistically. A
// request for the task's current status, for a completed task, or for a
// status outside the known set is rejected locally with no network call.
// Completed is terminal; a completion timestamp must never coexist with a
// non-completed status.
func (e *Engine) UpdateStatus(ctx context.Context, id string, status task.Status) error {
	if !e.gw.Configured() {
		err := utils.ErrBackendNotConfigured()
		e.ui.Feedback(LevelError, "no backend configured")
		return err
	}

	current, _, ok := e.store.Find(id)
	if !ok || current.Status == status {
		return nil
	}
	if current.Completed() {
		e.ui.Feedback(LevelInfo, "task is already completed")
		return nil
	}
	if !status.IsKnown() {
		err := utils.ErrInvalidStatus(string(status))
		e.ui.Feedback(LevelError, "invalid task status")
		return err
	}
	if !e.acquire(id) {
		err := utils.ErrSyncInProgress(id)
		e.ui.Feedback(LevelError, "task is still syncing")
		return err
	}
	defer e.release(id)

	snapshot := current.Clone()
	optimistic := current.Clone()
	optimistic.Status = status
	optimistic.UpdatedAt = e.now()
	e.store.PutTask(optimistic)
	e.ui.Repaint()

	updated, err := e.gw.UpdateStatus(ctx, id, status)
	if err != nil {
		e.log.Error("status update failed: %v", err)
		e.store.PutTask(snapshot)
		e.ui.Repaint()
		e.ui.Feedback(LevelError, "sync failed, change reverted")
		return err
	}
	if updated != nil {
		e.store.PutTask(*updated)
	}
	e.store.SetLastSync(e.now())
	e.ui.Repaint()
	return nil
}

// CompleteTask marks a task completed, optimistically setting the terminal
// status and the completion timestamp. Completing an already completed task
// is a local no-op.
func (e *Engine) CompleteTask(ctx context.Context, id string) error {
	if !e.gw.Configured() {
		err := utils.ErrBackendNotConfigured()
		e.ui.Feedback(LevelError, "no backend configured")
		return err
	}

	current, _, ok := e.store.Find(id)
	if !ok || current.Completed() {
		return nil
	}
	if !e.acquire(id) {
		err := utils.ErrSyncInProgress(id)
		e.ui.Feedback(LevelError, "task is still syncing")
		return err
	}
	defer e.release(id)

	snapshot := current.Clone()
	timestamp := e.now()
	optimistic := current.Clone()
	optimistic.Status = task.StatusCompleted
	optimistic.UpdatedAt = timestamp
	optimistic.CompletedAt = &timestamp
	e.store.PutTask(optimistic)
	e.ui.Repaint()

	updated, err := e.gw.CompleteTask(ctx, id)
	if err != nil {
		e.log.Error("task completion failed: %v", err)
		e.store.PutTask(snapshot)
		e.ui.Repaint()
		e.ui.Feedback(LevelError, "sync failed, please retry")
		return err
	}
	if updated != nil {
		e.store.PutTask(*updated)
	}
	e.store.SetLastSync(e.now())
	e.ui.Repaint()
	e.ui.Feedback(LevelSuccess, "task completed")
	_ = e.RefreshStats(ctx)
	return nil
}

// DeleteTask removes a task optimistically. Unlike field-level mutations the
// snapshot here is list membership, the task, its index and the selection,
// because a failed delete must reinsert the removed element at its original
// position and re-select it if it was the selected task.
func (e *Engine) DeleteTask(ctx context.Context, id string) error {
	if !e.gw.Configured() {
		err := utils.ErrBackendNotConfigured()
		e.ui.Feedback(LevelError, "no backend configured")
		return err
	}
	if !e.acquire(id) {
		err := utils.ErrSyncInProgress(id)
		e.ui.Feedback(LevelError, "task is still syncing")
		return err
	}
	defer e.release(id)

	wasSelected := e.store.SelectedTaskID() == id
	removed, index, ok := e.store.RemoveTask(id)
	if !ok {
		return nil
	}
	e.ui.Repaint()

	if err := e.gw.DeleteTask(ctx, id); err != nil {
		e.log.Error("task deletion failed: %v", err)
		e.store.InsertTaskAt(index, removed)
		if wasSelected {
			e.store.SetSelectedTaskID(id)
		}
		e.ui.Repaint()
		e.ui.Feedback(LevelError, "sync failed, please retry")
		return err
	}

	e.store.SetLastSync(e.now())
	e.ui.Feedback(LevelSuccess, "task deleted")
	_ = e.RefreshStats(ctx)
	return nil
}

// RefreshStats fetches the weekly aggregate. Failure clears the snapshot
// rather than leaving a stale one, and the stats pane repaints either way.
func (e *Engine) RefreshStats(ctx context.Context) error {
	if !e.gw.Configured() {
		return nil
	}
	stats, err := e.gw.FetchWeeklyStats(ctx)
	if err != nil {
		e.log.Error("stats fetch failed: %v", err)
		e.store.SetWeeklyStats(nil)
		e.ui.Feedback(LevelError, "stats unavailable")
		e.ui.Repaint()
		return err
	}
	e.store.SetWeeklyStats(stats)
	e.ui.Repaint()
	return nil
}

// RequestBreakdown asks the backend to decompose a task into subtasks, then
// polls reloads until the subtasks appear. Breakdown duration is not bounded
// by the HTTP call, so a single immediate reload could find nothing; the
// poll is bounded by the configured attempts. Once subtasks of the parent
// are visible, the first non-completed one is selected; if every subtask is
// already completed, or the poll times out empty, selection is cleared.
// Breakdown failure rolls nothing back; no local mutation was made.
func (e *Engine) RequestBreakdown(ctx context.Context, id string) error {
	if !e.gw.Configured() {
		err := utils.ErrBackendNotConfigured()
		e.ui.Feedback(LevelError, "no backend configured")
		return err
	}
	if _, _, ok := e.store.Find(id); !ok {
		return nil
	}

	e.ui.Feedback(LevelInfo, "breaking down task...")

	if _, err := e.gw.RequestBreakdown(ctx, id); err != nil {
		e.log.Error("breakdown request failed: %v", err)
		e.ui.Feedback(LevelError, "AI breakdown is unavailable, please retry later")
		return err
	}

	found := false
	for attempt := 0; attempt < e.pollAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.pollInterval):
			}
		}
		if err := e.ReloadTasks(ctx, false); err != nil {
			return err
		}
		if e.selectFirstSubtask(id) {
			found = true
			break
		}
	}
	if !found {
		e.store.SetSelectedTaskID("")
		e.ui.Repaint()
	}

	e.ui.Feedback(LevelSuccess, "breakdown finished")
	_ = e.RefreshStats(ctx)
	return nil
}

// selectFirstSubtask looks for subtasks of the given parent. It reports
// whether any exist; when they do, the first non-completed one becomes the
// selection, or the selection is cleared if all are completed.
func (e *Engine) selectFirstSubtask(parentID string) bool {
	any := false
	for _, t := range e.store.Tasks() {
		if t.ParentTaskID != parentID {
			continue
		}
		any = true
		if !t.Completed() {
			e.store.SetSelectedTaskID(t.ID)
			e.ui.Repaint()
			return true
		}
	}
	if any {
		e.store.SetSelectedTaskID("")
		e.ui.Repaint()
	}
	return any
}

// SelectTask toggles the selection: selecting the currently selected task
// deselects it, any other ID (or "") replaces the selection. Selecting an
// ID absent from local state clears the selection. No network effect.
func (e *Engine) SelectTask(id string) {
	switch {
	case id == "" || id == e.store.SelectedTaskID():
		e.store.SetSelectedTaskID("")
	default:
		if _, _, ok := e.store.Find(id); ok {
			e.store.SetSelectedTaskID(id)
		} else {
			e.store.SetSelectedTaskID("")
		}
	}
	e.ui.Repaint()
}
