// Package state holds the single in-memory application state: the task
// list, current selection, connection status, last sync time, weekly stats
// and the rotating CSRF token. It is never persisted; the remote backend is
// the source of truth and a fresh process starts empty.
package state

import (
	"sync"
	"time"

	"eisen/internal/task"
)

// ConnectionStatus describes the last observed backend reachability.
type ConnectionStatus string

const (
	Disconnected ConnectionStatus = "disconnected"
	Connecting   ConnectionStatus = "connecting"
	Connected    ConnectionStatus = "connected"
)

// Store is the shared mutable application state. The synchronization engine
// and the connection monitor are its only writers; they run on separate
// goroutines, hence the lock. Writes replace whole fields; the task slice
// is swapped wholesale on reload, never merged.
type Store struct {
	mu             sync.RWMutex
	tasks          []task.Task
	selectedTaskID string
	connStatus     ConnectionStatus
	connDetail     string
	lastSync       time.Time
	weeklyStats    *task.WeeklyStats
	csrfToken      string
}

// NewStore returns an empty, disconnected store.
func NewStore() *Store {
	return &Store{connStatus: Disconnected}
}

// Tasks returns a copy of the current task list.
func (s *Store) Tasks() []task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]task.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Find returns a copy of the task with the given ID and its index, or
// ok=false when no such task exists locally.
func (s *Store) Find(id string) (task.Task, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, t := range s.tasks {
		if t.ID == id {
			return t.Clone(), i, true
		}
	}
	return task.Task{}, -1, false
}

// ReplaceTasks swaps the whole task list for the given one. If the selected
// task is no longer present, the selection is cleared.
func (s *Store) ReplaceTasks(tasks []task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make([]task.Task, len(tasks))
	copy(s.tasks, tasks)
	if s.selectedTaskID != "" && !containsID(s.tasks, s.selectedTaskID) {
		s.selectedTaskID = ""
	}
}

func containsID(tasks []task.Task, id string) bool {
	for _, t := range tasks {
		if t.ID == id {
			return true
		}
	}
	return false
}

// PutTask overwrites the stored task with the same ID. Unknown IDs are
// ignored; a reload will reconcile them.
func (s *Store) PutTask(updated task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t.ID == updated.ID {
			s.tasks[i] = updated
			return
		}
	}
}

// RemoveTask deletes the task with the given ID, returning the removed task
// and its index for a possible rollback reinsertion.
func (s *Store) RemoveTask(id string) (task.Task, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t.ID == id {
			removed := t
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			if s.selectedTaskID == id {
				s.selectedTaskID = ""
			}
			return removed, i, true
		}
	}
	return task.Task{}, -1, false
}

// InsertTaskAt reinserts a task at the given index. Used only by delete
// rollback, which must restore the original list position.
func (s *Store) InsertTaskAt(index int, t task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index > len(s.tasks) {
		index = len(s.tasks)
	}
	s.tasks = append(s.tasks[:index], append([]task.Task{t}, s.tasks[index:]...)...)
}

// SelectedTaskID returns the current selection, or "" when nothing is
// selected.
func (s *Store) SelectedTaskID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedTaskID
}

// SetSelectedTaskID replaces the selection. An empty string clears it.
func (s *Store) SetSelectedTaskID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedTaskID = id
}

// Connection returns the current connection status and its detail message.
func (s *Store) Connection() (ConnectionStatus, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connStatus, s.connDetail
}

// SetConnection replaces the connection status. The monitor and the engine
// both write here; task fields are untouched so the writes stay disjoint.
func (s *Store) SetConnection(status ConnectionStatus, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connStatus = status
	s.connDetail = detail
}

// LastSync returns the time of the last confirmed server round-trip.
func (s *Store) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}

// SetLastSync records a confirmed server round-trip.
func (s *Store) SetLastSync(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSync = t
}

// WeeklyStats returns the last fetched stats snapshot, or nil.
func (s *Store) WeeklyStats() *task.WeeklyStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weeklyStats
}

// SetWeeklyStats replaces the stats snapshot. nil means unavailable.
func (s *Store) SetWeeklyStats(stats *task.WeeklyStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weeklyStats = stats
}

// CSRFToken returns the held session token, or "" when none was issued yet.
func (s *Store) CSRFToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.csrfToken
}

// SetCSRFToken overwrites the held session token. Rotation is a plain
// overwrite; tokens are never merged or compared.
func (s *Store) SetCSRFToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.csrfToken = token
}
