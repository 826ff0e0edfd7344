// Package tui renders a timeline in the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"freelance/tracker/internal/timeline"
)

const (
	progressStep = 5
	maxNotes     = 4
)

type Options struct {
	Title  string
	Logger *zap.Logger
}

// opDoneMsg reports a persistence call that ran outside Update.
type opDoneMsg struct {
	op  string
	err error
}

type Model struct {
	tl     *timeline.Timeline
	events EventQueue
	ctx    context.Context
	logger *zap.Logger
	title  string

	bar      progress.Model
	cursor   int
	notes    []timeline.Notification
	form     *milestoneForm
	quitting bool
	// confirmQuit is set after a q pressed while a session is running.
	confirmQuit bool
}

func New(tl *timeline.Timeline, events EventQueue, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	title := opts.Title
	if title == "" {
		title = tl.ProjectID()
	}
	return &Model{
		tl:     tl,
		events: events,
		ctx:    context.Background(),
		logger: logger,
		title:  title,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m *Model) Init() tea.Cmd {
	return m.events.wait()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := msg.Width - 20
		if width < 10 {
			width = 10
		}
		if width > 60 {
			width = 60
		}
		m.bar.Width = width
		return m, nil

	case eventMsg:
		if n, ok := msg.event.(timeline.Notification); ok {
			m.addNote(n)
		}
		return m, m.events.wait()

	case opDoneMsg:
		m.handleDone(msg)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.form != nil {
			return m, m.updateForm(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	confirmed := m.confirmQuit
	m.confirmQuit = false
	switch msg.String() {
	case "q":
		if m.tl.TimeTracking().IsTracking && !confirmed {
			m.confirmQuit = true
			m.addNote(timeline.Notification{
				Level:   timeline.LevelWarning,
				Message: "Session not saved, press s to stop or q again to quit",
			})
			return m, nil
		}
		return m.quit()
	case "left", "h", "-":
		m.nudgeProgress(-progressStep)
	case "right", "l", "+", "=":
		m.nudgeProgress(progressStep)
	case "enter", "p":
		return m, m.run("progress", m.tl.CommitProgress)
	case "s":
		if m.tl.TimeTracking().IsTracking {
			return m, m.run("stop", m.tl.StopTracking)
		}
		m.tl.StartTracking()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.tl.Milestones())-1 {
			m.cursor++
		}
	case "a":
		return m, m.advanceSelected()
	case "n":
		m.form = newMilestoneForm()
	case "r":
		m.tl.ToggleReminder()
	case "[":
		m.changeReminderDays(-1)
	case "]":
		m.changeReminderDays(1)
	}
	return m, nil
}

func (m *Model) updateForm(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.form = nil
		return nil
	case "tab", "down":
		m.form.move(1)
		return nil
	case "shift+tab", "up":
		m.form.move(-1)
		return nil
	case "enter":
		if !m.form.last() {
			m.form.move(1)
			return nil
		}
		in := m.form.input()
		return m.run("add", func(ctx context.Context) error {
			_, err := m.tl.AddMilestone(ctx, in)
			return err
		})
	}
	return m.form.update(msg)
}

func (m *Model) advanceSelected() tea.Cmd {
	milestones := m.tl.Milestones()
	if m.cursor < 0 || m.cursor >= len(milestones) {
		return nil
	}
	selected := milestones[m.cursor]
	action, ok := timeline.NextAction(selected)
	if !ok {
		return nil
	}
	return m.run("advance", func(ctx context.Context) error {
		return m.tl.AdvanceStatus(ctx, selected.ID, action.To)
	})
}

func (m *Model) nudgeProgress(delta int) {
	value := m.tl.Progress() + delta
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	_ = m.tl.SetProgress(value)
}

func (m *Model) changeReminderDays(delta int) {
	days := m.tl.Reminder().Days + delta
	if err := m.tl.SetReminderDays(days); err != nil {
		m.addNote(timeline.Notification{Level: timeline.LevelWarning, Message: "Reminder needs at least 1 day"})
	}
}

// run performs a persistence call as a command so Update never blocks on the
// network.
func (m *Model) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(m.ctx)}
	}
}

func (m *Model) handleDone(msg opDoneMsg) {
	switch {
	case msg.err == nil:
		if msg.op == "add" {
			m.form = nil
		}
	case errors.Is(msg.err, timeline.ErrBusy):
		m.addNote(timeline.Notification{Level: timeline.LevelWarning, Message: "Still saving, please wait"})
	case errors.Is(msg.err, timeline.ErrClosed), errors.Is(msg.err, timeline.ErrNotTracking):
	default:
		m.logger.Debug("operation failed", zap.String("op", msg.op), zap.Error(msg.err))
	}
}

func (m *Model) addNote(n timeline.Notification) {
	m.notes = append(m.notes, n)
	if len(m.notes) > maxNotes {
		m.notes = m.notes[len(m.notes)-maxNotes:]
	}
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.tl.Close()
	return m, tea.Quit
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(m.deadlineLine())

	b.WriteString(sectionStyle.Render("Progress"))
	b.WriteString("\n")
	value := m.tl.Progress()
	b.WriteString(m.bar.ViewAs(float64(value) / 100))
	if saved := m.tl.CommittedProgress(); saved != value {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  saved %d%%, enter to save", saved)))
	}
	if m.tl.ProgressBusy() {
		b.WriteString(mutedStyle.Render("  saving..."))
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Time tracked"))
	b.WriteString("\n")
	b.WriteString(m.tl.Display())
	switch state := m.tl.TimeTracking(); {
	case m.tl.StopBusy():
		b.WriteString(mutedStyle.Render("  saving..."))
	case state.IsTracking:
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  tracking, session %s", timeline.FormatTime(state.SessionTime))))
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Milestones"))
	b.WriteString("\n")
	b.WriteString(m.milestonesView())

	if m.form != nil {
		b.WriteString(m.form.view())
		b.WriteString("\n")
	}

	for _, n := range m.notes {
		b.WriteString(levelStyle(n.Level).Render(n.Message))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(m.helpView()))
	return b.String()
}

func (m *Model) deadlineLine() string {
	reminder := m.tl.Reminder()
	state := "off"
	if reminder.Enabled {
		state = fmt.Sprintf("on, %d day(s) before", reminder.Days)
	}
	deadline, ok := m.tl.Deadline()
	if !ok {
		return mutedStyle.Render("No deadline | reminder "+state) + "\n"
	}
	days := timeline.DaysUntil(deadline, time.Now())
	return mutedStyle.Render(fmt.Sprintf("Deadline %s (%d day(s)) | reminder %s",
		deadline.Format("2006-01-02"), days, state)) + "\n"
}

func (m *Model) milestonesView() string {
	milestones := m.tl.Milestones()
	if len(milestones) == 0 {
		return mutedStyle.Render("No milestones yet") + "\n"
	}

	var b strings.Builder
	for i, ms := range milestones {
		line := fmt.Sprintf("%s %s  %.2f  due %s", timeline.Marker(ms.Status), ms.Title, ms.Amount, ms.DueDate.Format("2006-01-02"))
		switch {
		case m.tl.Transitioning(ms.ID):
			line += "  [updating...]"
		default:
			if action, ok := timeline.NextAction(ms); ok {
				line += "  [" + action.Label + "]"
			}
		}
		if i == m.cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) helpView() string {
	if m.form != nil {
		return "tab: next field • enter: submit • esc: cancel"
	}
	return "←/→: progress • enter: save • s: start/stop • ↑/↓: select • a: advance • n: new milestone • r: reminder • [/]: days • q: quit"
}
