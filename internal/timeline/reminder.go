package timeline

import (
	"fmt"
	"math"
	"time"
)

const DefaultReminderDays = 3

type Reminder struct {
	Enabled bool `json:"enabled"`
	Days    int  `json:"days"`
}

type reminderState struct {
	settings Reminder
	deadline *time.Time
}

// DaysUntil rounds the remaining time up to whole days; it is zero or
// negative once the deadline has passed.
func DaysUntil(deadline, now time.Time) int {
	return int(math.Ceil(deadline.Sub(now).Hours() / 24))
}

// ShouldRemind reports whether r fires for deadline at now.
func ShouldRemind(r Reminder, deadline, now time.Time) bool {
	if !r.Enabled {
		return false
	}
	days := DaysUntil(deadline, now)
	return days > 0 && days <= r.Days
}

func (t *Timeline) Reminder() Reminder {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reminder.settings
}

func (t *Timeline) Deadline() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reminder.deadline == nil {
		return time.Time{}, false
	}
	return *t.reminder.deadline, true
}

// ToggleReminder flips the reminder and returns the new enabled state.
func (t *Timeline) ToggleReminder() bool {
	t.mu.Lock()
	if t.closed {
		enabled := t.reminder.settings.Enabled
		t.mu.Unlock()
		return enabled
	}
	t.reminder.settings.Enabled = !t.reminder.settings.Enabled
	enabled := t.reminder.settings.Enabled
	var events []Event
	if enabled {
		events = append(events, notify(LevelInfo,
			fmt.Sprintf("You will be reminded %d day(s) before the deadline", t.reminder.settings.Days)))
	}
	events = append(events, t.evaluateReminderLocked()...)
	t.mu.Unlock()

	t.emit(events...)
	return enabled
}

// SetReminderDays changes the warning threshold and re-evaluates.
func (t *Timeline) SetReminderDays(days int) error {
	if days < 1 {
		return fmt.Errorf("%w: reminder days must be at least 1", ErrValidation)
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.reminder.settings.Days = days
	events := t.evaluateReminderLocked()
	t.mu.Unlock()

	t.emit(events...)
	return nil
}

// SetDeadline replaces the project deadline and re-evaluates.
func (t *Timeline) SetDeadline(deadline time.Time) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.reminder.deadline = &deadline
	events := t.evaluateReminderLocked()
	t.mu.Unlock()

	t.emit(events...)
}

// EvaluateReminder runs the reminder check and reports whether it fired.
// Every call that matches fires again; there is no "already warned" state.
func (t *Timeline) EvaluateReminder() bool {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false
	}
	events := t.evaluateReminderLocked()
	t.mu.Unlock()

	t.emit(events...)
	return len(events) > 0
}

func (t *Timeline) evaluateReminderLocked() []Event {
	if t.reminder.deadline == nil {
		return nil
	}
	now := t.now()
	if !ShouldRemind(t.reminder.settings, *t.reminder.deadline, now) {
		return nil
	}
	days := DaysUntil(*t.reminder.deadline, now)
	return []Event{notify(LevelWarning, fmt.Sprintf("Project deadline is in %d day(s)", days))}
}
