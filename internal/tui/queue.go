package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"freelance/tracker/internal/timeline"
)

// EventQueue carries timeline events into the bubbletea loop. Register Push
// with timeline.WithSubscriber so events emitted on mount are kept too.
type EventQueue chan timeline.Event

func NewEventQueue(size int) EventQueue {
	return make(EventQueue, size)
}

// Push never blocks the timeline; when the view falls behind the event is
// dropped and the next render reads current state anyway.
func (q EventQueue) Push(e timeline.Event) {
	select {
	case q <- e:
	default:
	}
}

type eventMsg struct {
	event timeline.Event
}

func (q EventQueue) wait() tea.Cmd {
	return func() tea.Msg {
		return eventMsg{event: <-q}
	}
}
