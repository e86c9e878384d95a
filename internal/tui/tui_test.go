package tui_test

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"eisen/internal/engine"
	"eisen/internal/gateway"
	"eisen/internal/server"
	"eisen/internal/state"
	"eisen/internal/task"
	"eisen/internal/tui"
)

// boardTest wires the full client stack against an in-process backend and
// hands the model to teatest.
type boardTest struct {
	backend *server.Server
	store   *state.Store
	eng     *engine.Engine
}

func newBoardTest(t *testing.T, seed ...task.Task) *boardTest {
	t.Helper()

	backend := server.New(server.Options{})
	for _, tk := range seed {
		backend.Seed(tk)
	}
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	store := state.NewStore()
	gw := gateway.New(gateway.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, store)
	eng := engine.New(store, gw, nil, engine.WithBreakdownPoll(20, 10*time.Millisecond))
	return &boardTest{backend: backend, store: store, eng: eng}
}

func (b *boardTest) model() *tui.Model {
	return tui.New(context.Background(), b.eng, b.store, true)
}

func seedTask(id, title string, status task.Status) task.Task {
	created := time.Now().Add(-time.Hour)
	return task.Task{ID: id, Title: title, Status: status, CreatedAt: created, UpdatedAt: created}
}

// sendKeyAndWait sends a key message and waits briefly for processing.
func sendKeyAndWait(tm *teatest.TestModel, key tea.KeyMsg) {
	tm.Send(key)
	time.Sleep(20 * time.Millisecond)
}

func sendRunesAndWait(tm *teatest.TestModel, runes []rune) {
	sendKeyAndWait(tm, tea.KeyMsg{Type: tea.KeyRunes, Runes: runes})
}

func readAll(t *testing.T, r io.Reader) []byte {
	t.Helper()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	return out
}

func waitForState(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("state condition not met in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestBoardRendersQuadrants(t *testing.T) {
	bt := newBoardTest(t,
		seedTask("t1", "fix the outage", task.StatusUrgentImportant),
		seedTask("t2", "plan the quarter", task.StatusNotUrgentImportant),
		seedTask("t3", "triage inbox", task.StatusUncategorized),
	)

	tm := teatest.NewTestModel(t, bt.model(), teatest.WithInitialTermSize(100, 40))
	waitForState(t, func() bool { return len(bt.store.Tasks()) == 3 })
	time.Sleep(50 * time.Millisecond)

	sendRunesAndWait(tm, []rune{'q'})
	out := readAll(t, tm.FinalOutput(t, teatest.WithFinalTimeout(2*time.Second)))

	for _, want := range []string{
		"Urgent & Important",
		"Important, Not Urgent",
		"Uncategorized",
		"fix the outage",
		"plan the quarter",
		"triage inbox",
	} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("expected board to show %q", want)
		}
	}
}

func TestAddTaskDialog(t *testing.T) {
	bt := newBoardTest(t)

	tm := teatest.NewTestModel(t, bt.model(), teatest.WithInitialTermSize(100, 40))
	waitForState(t, func() bool {
		status, _ := bt.store.Connection()
		return status == state.Connected
	})

	sendRunesAndWait(tm, []rune{'a'})
	for _, r := range "water the plants" {
		tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	sendKeyAndWait(tm, tea.KeyMsg{Type: tea.KeyEnter})

	waitForState(t, func() bool { return bt.backend.TaskCount() == 1 })
	waitForState(t, func() bool { return len(bt.store.Tasks()) == 1 })

	sendRunesAndWait(tm, []rune{'q'})
	out := readAll(t, tm.FinalOutput(t, teatest.WithFinalTimeout(2*time.Second)))
	if !bytes.Contains(out, []byte("water the plants")) {
		t.Error("expected created task on the board")
	}
}

func TestCompleteFromKeyboard(t *testing.T) {
	bt := newBoardTest(t, seedTask("t1", "finish the draft", task.StatusUrgentImportant))

	tm := teatest.NewTestModel(t, bt.model(), teatest.WithInitialTermSize(100, 40))
	waitForState(t, func() bool { return len(bt.store.Tasks()) == 1 })
	time.Sleep(50 * time.Millisecond)

	sendRunesAndWait(tm, []rune{'c'})
	waitForState(t, func() bool {
		tk, _, ok := bt.store.Find("t1")
		return ok && tk.Completed()
	})

	sendRunesAndWait(tm, []rune{'q'})
	_ = readAll(t, tm.FinalOutput(t, teatest.WithFinalTimeout(2*time.Second)))
}

func TestReclassifyFromKeyboard(t *testing.T) {
	bt := newBoardTest(t, seedTask("t1", "sort me", task.StatusUncategorized))

	tm := teatest.NewTestModel(t, bt.model(), teatest.WithInitialTermSize(100, 40))
	waitForState(t, func() bool { return len(bt.store.Tasks()) == 1 })
	time.Sleep(50 * time.Millisecond)

	sendRunesAndWait(tm, []rune{'1'})
	waitForState(t, func() bool {
		tk, _, ok := bt.store.Find("t1")
		return ok && tk.Status == task.StatusUrgentImportant
	})

	sendRunesAndWait(tm, []rune{'q'})
	_ = readAll(t, tm.FinalOutput(t, teatest.WithFinalTimeout(2*time.Second)))
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	bt := newBoardTest(t, seedTask("t1", "keep me", task.StatusUncategorized))

	tm := teatest.NewTestModel(t, bt.model(), teatest.WithInitialTermSize(100, 40))
	waitForState(t, func() bool { return len(bt.store.Tasks()) == 1 })
	time.Sleep(50 * time.Millisecond)

	// Decline the confirmation: nothing is deleted.
	sendRunesAndWait(tm, []rune{'d'})
	sendRunesAndWait(tm, []rune{'n'})
	time.Sleep(50 * time.Millisecond)
	if bt.backend.TaskCount() != 1 {
		t.Error("declined delete must not touch the backend")
	}

	// Confirm: the task goes away.
	sendRunesAndWait(tm, []rune{'d'})
	sendRunesAndWait(tm, []rune{'y'})
	waitForState(t, func() bool { return bt.backend.TaskCount() == 0 })

	sendRunesAndWait(tm, []rune{'q'})
	_ = readAll(t, tm.FinalOutput(t, teatest.WithFinalTimeout(2*time.Second)))
}

func TestHelpOverlay(t *testing.T) {
	bt := newBoardTest(t)

	tm := teatest.NewTestModel(t, bt.model(), teatest.WithInitialTermSize(100, 40))
	time.Sleep(50 * time.Millisecond)

	sendRunesAndWait(tm, []rune{'?'})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return bytes.Contains(out, []byte("AI breakdown into subtasks"))
	}, teatest.WithDuration(2*time.Second))

	// Any key closes the overlay, then quit.
	sendKeyAndWait(tm, tea.KeyMsg{Type: tea.KeyEsc})
	sendRunesAndWait(tm, []rune{'q'})
	_ = readAll(t, tm.FinalOutput(t, teatest.WithFinalTimeout(2*time.Second)))
}
