package tui

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"freelance/tracker/internal/timeline"
)

const (
	fieldTitle = iota
	fieldDescription
	fieldDueDate
	fieldAmount
	fieldCount
)

type milestoneForm struct {
	inputs []textinput.Model
	focus  int
}

func newMilestoneForm() *milestoneForm {
	f := &milestoneForm{inputs: make([]textinput.Model, fieldCount)}
	labels := []string{"Title", "Description", "Due date (YYYY-MM-DD)", "Amount"}
	for i := range f.inputs {
		input := textinput.New()
		input.Prompt = labels[i] + ": "
		input.CharLimit = 120
		input.Cursor.SetMode(cursor.CursorStatic)
		f.inputs[i] = input
	}
	f.inputs[fieldTitle].Focus()
	return f
}

func (f *milestoneForm) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + fieldCount) % fieldCount
	f.inputs[f.focus].Focus()
}

func (f *milestoneForm) last() bool {
	return f.focus == fieldCount-1
}

func (f *milestoneForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// input leaves unparseable dates zero and amounts NaN so the timeline's
// validation rejects them.
func (f *milestoneForm) input() timeline.MilestoneInput {
	in := timeline.MilestoneInput{
		Title:       strings.TrimSpace(f.inputs[fieldTitle].Value()),
		Description: strings.TrimSpace(f.inputs[fieldDescription].Value()),
		Amount:      math.NaN(),
	}
	if due, err := time.Parse("2006-01-02", strings.TrimSpace(f.inputs[fieldDueDate].Value())); err == nil {
		in.DueDate = due
	}
	if amount, err := strconv.ParseFloat(strings.TrimSpace(f.inputs[fieldAmount].Value()), 64); err == nil {
		in.Amount = amount
	}
	return in
}

func (f *milestoneForm) view() string {
	lines := make([]string, 0, fieldCount+1)
	lines = append(lines, "New milestone")
	for _, input := range f.inputs {
		lines = append(lines, input.View())
	}
	return formStyle.Render(strings.Join(lines, "\n"))
}
