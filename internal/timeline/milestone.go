package timeline

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is one of the known milestone statuses.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

// Next returns the single status a milestone may move to from s.
// Completed milestones have no next status.
func (s Status) Next() (Status, bool) {
	switch s {
	case StatusPending:
		return StatusInProgress, true
	case StatusInProgress:
		return StatusCompleted, true
	default:
		return "", false
	}
}

// CanTransition allows pending->in_progress and in_progress->completed only.
func CanTransition(from, to Status) bool {
	next, ok := from.Next()
	return ok && next == to
}

type Milestone struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     time.Time  `json:"dueDate"`
	Amount      float64    `json:"amount"`
	Status      Status     `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type MilestoneInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"dueDate"`
	Amount      float64   `json:"amount"`
}

// Validate checks a milestone draft before anything is sent to the project service.
func (in MilestoneInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.DueDate.IsZero() {
		return fmt.Errorf("%w: due date is required", ErrValidation)
	}
	if in.Amount < 0 || math.IsNaN(in.Amount) {
		return fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	return nil
}

// Action is the user-facing transition offered for a milestone.
type Action struct {
	Label string
	To    Status
}

// NextAction returns the only transition the view should offer for m.
func NextAction(m Milestone) (Action, bool) {
	switch m.Status {
	case StatusPending:
		return Action{Label: "Start", To: StatusInProgress}, true
	case StatusInProgress:
		return Action{Label: "Complete", To: StatusCompleted}, true
	default:
		return Action{}, false
	}
}

// Marker is the status glyph drawn next to each milestone.
func Marker(s Status) string {
	switch s {
	case StatusInProgress:
		return "◐"
	case StatusCompleted:
		return "●"
	default:
		return "○"
	}
}

func allCompleted(milestones []Milestone) bool {
	if len(milestones) == 0 {
		return false
	}
	for _, m := range milestones {
		if m.Status != StatusCompleted {
			return false
		}
	}
	return true
}

func cloneMilestones(milestones []Milestone) []Milestone {
	out := make([]Milestone, len(milestones))
	copy(out, milestones)
	return out
}
