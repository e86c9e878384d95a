// Package tui renders the Eisenhower matrix board in the terminal. It is
// pure presentation over the application state store: every state change
// goes through the synchronization engine, and keyboard reclassification
// stands in for the reference client's drag-and-drop.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"eisen/internal/engine"
	"eisen/internal/state"
	"eisen/internal/task"
)

// Mode indicates the current input mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeAdd
	ModeConfirmDelete
	ModeHelp
)

// quadrantOrder is the display order of the board's buckets.
var quadrantOrder = []task.Status{
	task.StatusUrgentImportant,
	task.StatusNotUrgentImportant,
	task.StatusUrgentNotImportant,
	task.StatusNotUrgentNotImportant,
	task.StatusUncategorized,
	task.StatusCompleted,
}

// Model is the board's bubbletea model.
type Model struct {
	engine *engine.Engine
	store  *state.Store
	ctx    context.Context

	visible       []task.Task // flattened display order, rebuilt each repaint
	cursor        int
	mode          Mode
	textInput     textinput.Model
	showCompleted bool
	showStats     bool

	feedback      string
	feedbackLevel engine.Level

	width  int
	height int

	paneStyle      lipgloss.Style
	titleStyle     lipgloss.Style
	cursorStyle    lipgloss.Style
	selectedStyle  lipgloss.Style
	completedStyle lipgloss.Style
	statusBarStyle lipgloss.Style
	feedbackStyles map[engine.Level]lipgloss.Style
	helpStyle      lipgloss.Style
	dialogStyle    lipgloss.Style
	accentStyles   map[task.Status]lipgloss.Style
}

// opDoneMsg signals a finished engine operation launched from a key press.
type opDoneMsg struct{ err error }

// clearFeedbackMsg expires the transient status bar notice.
type clearFeedbackMsg struct{ stamp time.Time }

// New creates the board model.
func New(ctx context.Context, eng *engine.Engine, store *state.Store, showCompleted bool) *Model {
	ti := textinput.New()
	ti.Placeholder = "New task title..."
	ti.CharLimit = task.MaxTitleLen

	m := &Model{
		engine:        eng,
		store:         store,
		ctx:           ctx,
		textInput:     ti,
		showCompleted: showCompleted,
		showStats:     true,
		paneStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		titleStyle: lipgloss.NewStyle().Bold(true),
		cursorStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		selectedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("219")),
		completedStyle: lipgloss.NewStyle().
			Strikethrough(true).
			Foreground(lipgloss.Color("240")),
		statusBarStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1),
		helpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		dialogStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
		feedbackStyles: map[engine.Level]lipgloss.Style{
			engine.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
			engine.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			engine.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		},
		accentStyles: map[task.Status]lipgloss.Style{
			task.StatusUrgentImportant:       lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
			task.StatusNotUrgentImportant:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			task.StatusUrgentNotImportant:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			task.StatusNotUrgentNotImportant: lipgloss.NewStyle().Foreground(lipgloss.Color("246")),
			task.StatusUncategorized:         lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
			task.StatusCompleted:             lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		},
	}
	m.rebuildVisible()
	return m
}

// Init starts the initial load.
func (m *Model) Init() tea.Cmd {
	return m.runOp(func() error {
		return m.engine.Initialize(m.ctx)
	})
}

// runOp launches an engine operation off the update loop. The engine has
// already rolled back and surfaced feedback by the time the error returns,
// so opDoneMsg only triggers a redraw.
func (m *Model) runOp(op func() error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: op()}
	}
}

// rebuildVisible flattens the store's task list into display order and
// clamps the cursor.
func (m *Model) rebuildVisible() {
	tasks := m.store.Tasks()
	m.visible = m.visible[:0]
	for _, status := range quadrantOrder {
		if status == task.StatusCompleted && !m.showCompleted {
			continue
		}
		for _, t := range tasks {
			if bucketOf(t) == status {
				m.visible = append(m.visible, t)
			}
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// bucketOf maps a task to its display bucket. Unknown statuses land in
// uncategorized so server-side additions stay visible.
func bucketOf(t task.Task) task.Status {
	if t.Status.IsKnown() {
		return t.Status
	}
	return task.StatusUncategorized
}

func (m *Model) cursorTask() (task.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return task.Task{}, false
	}
	return m.visible[m.cursor], true
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case RepaintMsg:
		m.rebuildVisible()
		return m, nil

	case opDoneMsg:
		m.rebuildVisible()
		return m, nil

	case FeedbackMsg:
		m.feedback = msg.Text
		m.feedbackLevel = msg.Level
		stamp := time.Now()
		return m, tea.Tick(4*time.Second, func(time.Time) tea.Msg {
			return clearFeedbackMsg{stamp: stamp}
		})

	case clearFeedbackMsg:
		m.feedback = ""
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeAdd:
			return m.handleAddMode(msg)
		case ModeConfirmDelete:
			return m.handleConfirmDeleteMode(msg)
		case ModeHelp:
			m.mode = ModeNormal
			return m, nil
		}
		return m.handleNormalMode(msg)
	}
	return m, nil
}

func (m *Model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
		return m, nil

	case "enter", " ":
		if t, ok := m.cursorTask(); ok {
			m.engine.SelectTask(t.ID)
			m.rebuildVisible()
		}
		return m, nil

	case "a":
		m.mode = ModeAdd
		m.textInput.Reset()
		m.textInput.Focus()
		return m, textinput.Blink

	case "c":
		if t, ok := m.cursorTask(); ok {
			id := t.ID
			return m, m.runOp(func() error { return m.engine.CompleteTask(m.ctx, id) })
		}
		return m, nil

	case "d":
		if _, ok := m.cursorTask(); ok {
			m.mode = ModeConfirmDelete
		}
		return m, nil

	case "b":
		if t, ok := m.cursorTask(); ok {
			id := t.ID
			return m, m.runOp(func() error { return m.engine.RequestBreakdown(m.ctx, id) })
		}
		return m, nil

	case "r":
		return m, m.runOp(func() error {
			if err := m.engine.ReloadTasks(m.ctx, true); err != nil {
				return err
			}
			return m.engine.RefreshStats(m.ctx)
		})

	case "s":
		m.showStats = !m.showStats
		return m, nil

	case "C":
		m.showCompleted = !m.showCompleted
		m.rebuildVisible()
		return m, nil

	case "?":
		m.mode = ModeHelp
		return m, nil

	case "0", "1", "2", "3", "4":
		return m.reclassify(msg.String())
	}
	return m, nil
}

// reclassify moves the task under the cursor to the bucket bound to the
// pressed digit, the keyboard analog of dragging a card across quadrants.
func (m *Model) reclassify(key string) (tea.Model, tea.Cmd) {
	t, ok := m.cursorTask()
	if !ok {
		return m, nil
	}
	var target task.Status
	switch key {
	case "0":
		target = task.StatusUncategorized
	case "1":
		target = task.StatusUrgentImportant
	case "2":
		target = task.StatusNotUrgentImportant
	case "3":
		target = task.StatusUrgentNotImportant
	case "4":
		target = task.StatusNotUrgentNotImportant
	}
	id := t.ID
	return m, m.runOp(func() error { return m.engine.UpdateStatus(m.ctx, id, target) })
}

func (m *Model) handleAddMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ModeNormal
		m.textInput.Blur()
		return m, nil
	case "enter":
		title := m.textInput.Value()
		m.mode = ModeNormal
		m.textInput.Blur()
		return m, m.runOp(func() error { return m.engine.CreateTask(m.ctx, title) })
	}
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmDeleteMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.mode = ModeNormal
		if t, ok := m.cursorTask(); ok {
			id := t.ID
			return m, m.runOp(func() error { return m.engine.DeleteTask(m.ctx, id) })
		}
		return m, nil
	case "n", "N", "esc":
		m.mode = ModeNormal
		return m, nil
	}
	return m, nil
}

// View renders the board.
func (m *Model) View() string {
	if m.mode == ModeHelp {
		return m.helpView()
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.boardView())
	if m.showStats {
		b.WriteString("\n")
		b.WriteString(m.statsView())
	}
	b.WriteString("\n")
	b.WriteString(m.footerView())

	if m.mode == ModeAdd {
		b.WriteString("\n")
		b.WriteString(m.dialogStyle.Render("Add task\n" + m.textInput.View() + "\n(enter to save, esc to cancel)"))
	}
	if m.mode == ModeConfirmDelete {
		if t, ok := m.cursorTask(); ok {
			b.WriteString("\n")
			b.WriteString(m.dialogStyle.Render(fmt.Sprintf("Delete %q? (y/n)", t.Title)))
		}
	}
	return b.String()
}

func (m *Model) headerView() string {
	status, detail := m.store.Connection()
	var dot string
	switch status {
	case state.Connected:
		dot = m.feedbackStyles[engine.LevelSuccess].Render("●")
	case state.Connecting:
		dot = m.feedbackStyles[engine.LevelInfo].Render("●")
	default:
		dot = m.feedbackStyles[engine.LevelError].Render("●")
	}
	lastSync := "never"
	if t := m.store.LastSync(); !t.IsZero() {
		lastSync = t.Format("15:04:05")
	}
	header := fmt.Sprintf("%s eisen — %s  last sync %s", dot, detail, lastSync)
	return m.statusBarStyle.Render(header)
}

func (m *Model) boardView() string {
	paneWidth := m.width/2 - 4
	if paneWidth < 24 {
		paneWidth = 24
	}

	panes := make(map[task.Status]string, len(quadrantOrder))
	for _, status := range quadrantOrder {
		if status == task.StatusCompleted && !m.showCompleted {
			continue
		}
		panes[status] = m.paneView(status, paneWidth)
	}

	rows := []string{
		lipgloss.JoinHorizontal(lipgloss.Top,
			panes[task.StatusUrgentImportant],
			panes[task.StatusNotUrgentImportant]),
		lipgloss.JoinHorizontal(lipgloss.Top,
			panes[task.StatusUrgentNotImportant],
			panes[task.StatusNotUrgentNotImportant]),
		panes[task.StatusUncategorized],
	}
	if m.showCompleted {
		rows = append(rows, panes[task.StatusCompleted])
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m *Model) paneView(status task.Status, width int) string {
	accent := m.accentStyles[status]
	var lines []string
	lines = append(lines, m.titleStyle.Inherit(accent).Render(status.Label()))

	selected := m.store.SelectedTaskID()
	count := 0
	for i, t := range m.visible {
		if bucketOf(t) != status {
			continue
		}
		count++
		marker := "  "
		if i == m.cursor {
			marker = m.cursorStyle.Render("▸ ")
		}
		title := truncate(t.Title, width-6)
		line := marker + title
		switch {
		case t.Completed():
			line = marker + m.completedStyle.Render(title)
		case t.ID == selected:
			line = marker + m.selectedStyle.Render(title+" *")
		}
		if t.ParentTaskID != "" {
			line += m.helpStyle.Render(" ↳")
		}
		lines = append(lines, line)
	}
	if count == 0 {
		lines = append(lines, m.helpStyle.Render("  (empty)"))
	}
	return m.paneStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m *Model) statsView() string {
	stats := m.store.WeeklyStats()
	if stats == nil {
		return m.helpStyle.Render("weekly stats unavailable")
	}
	line := fmt.Sprintf("week %s – %s: %d created, %d completed",
		stats.WeekStart, stats.WeekEnd, stats.TotalCreated, stats.TotalCompleted)
	if stats.CompletionRate != nil {
		line += fmt.Sprintf(", %.0f%% done", *stats.CompletionRate*100)
	}
	if stats.AvgLifetimeDays != nil {
		line += fmt.Sprintf(", avg lifetime %.1fd", *stats.AvgLifetimeDays)
	}
	return m.helpStyle.Render(line)
}

func (m *Model) footerView() string {
	if m.feedback != "" {
		return m.feedbackStyles[m.feedbackLevel].Render(m.feedback)
	}
	return m.helpStyle.Render("j/k move · enter select · a add · 1-4/0 move to quadrant · c complete · d delete · b breakdown · r reload · ? help · q quit")
}

func (m *Model) helpView() string {
	help := `eisen — Eisenhower matrix board

  j/k, up/down   move the cursor
  enter, space   select / deselect the task
  a              add a task
  1              move task to Urgent & Important
  2              move task to Important, Not Urgent
  3              move task to Urgent, Not Important
  4              move task to Neither
  0              move task back to Uncategorized
  c              complete the task
  d              delete the task (asks to confirm)
  b              AI breakdown into subtasks
  r              reload from the backend
  s              toggle the stats line
  C              toggle the completed pane
  q              quit

press any key to close`
	return m.dialogStyle.Render(help)
}

func truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// Run wires the model into a program, attaches the bridge and blocks until
// the user quits.
func Run(ctx context.Context, eng *engine.Engine, store *state.Store, bridge *Bridge, showCompleted bool) error {
	m := New(ctx, eng, store, showCompleted)
	p := tea.NewProgram(m, tea.WithAltScreen())
	bridge.Attach(p)
	defer bridge.Detach()
	_, err := p.Run()
	return err
}
