package timeline

// Event is emitted by a Timeline to its owner. Concrete types are
// ProgressChanged, MilestonesChanged, Notification and Tick.
type Event interface {
	event()
}

// ProgressChanged is emitted after the project service accepted a progress value.
type ProgressChanged struct {
	Progress int
}

// MilestonesChanged carries the full ledger after a successful create or status change.
type MilestonesChanged struct {
	Milestones []Milestone
}

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a user-facing toast.
type Notification struct {
	Level   Level
	Message string
}

// Tick reports the current elapsed total while a session is tracking.
type Tick struct {
	Elapsed int64
}

func (ProgressChanged) event()   {}
func (MilestonesChanged) event() {}
func (Notification) event()      {}
func (Tick) event()              {}

func notify(level Level, message string) Notification {
	return Notification{Level: level, Message: message}
}
