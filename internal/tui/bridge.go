package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"eisen/internal/engine"
	"eisen/internal/utils"
)

// Bridge adapts the engine's presenter surface to bubbletea messages. The
// engine and the connection monitor run on their own goroutines; the bridge
// forwards their repaint and feedback calls into the program's update loop.
// Before a program is attached (or after it exits), feedback falls back to
// the logger so nothing is silently dropped.
type Bridge struct {
	mu   sync.RWMutex
	prog *tea.Program
}

// NewBridge creates a detached bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach connects the bridge to a running program.
func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prog = p
}

// Detach disconnects the bridge, routing later feedback to the logger.
func (b *Bridge) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prog = nil
}

func (b *Bridge) program() *tea.Program {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.prog
}

// Repaint implements engine.Presenter and monitor.Repainter.
func (b *Bridge) Repaint() {
	if p := b.program(); p != nil {
		p.Send(RepaintMsg{})
	}
}

// Feedback implements engine.Presenter.
func (b *Bridge) Feedback(level engine.Level, message string) {
	if p := b.program(); p != nil {
		p.Send(FeedbackMsg{Level: level, Text: message})
		return
	}
	switch level {
	case engine.LevelError:
		utils.Errorf("%s", message)
	default:
		utils.Infof("%s", message)
	}
}

// RepaintMsg asks the model to re-read the store and redraw.
type RepaintMsg struct{}

// FeedbackMsg carries a short user-facing notice for the status bar.
type FeedbackMsg struct {
	Level engine.Level
	Text  string
}
