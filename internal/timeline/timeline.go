// Package timeline holds the state of one opened project view: completion
// progress, the time tracking stopwatch, the milestone ledger and the deadline
// reminder. Durable facts are written through a ProjectService and the owner is
// informed through emitted events.
package timeline

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultTickInterval = time.Second

// Snapshot is the persisted project state a Timeline is mounted with.
type Snapshot struct {
	ProjectID   string
	Progress    int
	TimeTracked int64
	Deadline    *time.Time
	Milestones  []Milestone
	Reminder    Reminder
}

type Option func(*Timeline)

func WithLogger(logger *zap.Logger) Option {
	return func(t *Timeline) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Timeline) {
		if now != nil {
			t.now = now
		}
	}
}

// WithSubscriber registers fn before the timeline is mounted, so it also sees
// the events emitted by New.
func WithSubscriber(fn func(Event)) Option {
	return func(t *Timeline) {
		if fn != nil {
			t.subs[t.nextSub] = fn
			t.nextSub++
		}
	}
}

func WithTickInterval(d time.Duration) Option {
	return func(t *Timeline) {
		if d > 0 {
			t.tickInterval = d
		}
	}
}

type Timeline struct {
	projectID    string
	svc          ProjectService
	logger       *zap.Logger
	now          func() time.Time
	tickInterval time.Duration

	mu       sync.Mutex
	closed   bool
	subs     map[int]func(Event)
	nextSub  int
	progress progressState
	clock    stopwatch
	ledger   ledger
	reminder reminderState
}

// New mounts a timeline for the given project snapshot. The reminder is
// evaluated once immediately, like any later settings change.
func New(snap Snapshot, svc ProjectService, opts ...Option) *Timeline {
	t := &Timeline{
		projectID:    snap.ProjectID,
		svc:          svc,
		logger:       zap.NewNop(),
		now:          time.Now,
		tickInterval: DefaultTickInterval,
		subs:         make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With(zap.String("project_id", snap.ProjectID))

	progress := clampProgress(snap.Progress)
	t.progress = progressState{value: progress, committed: progress}
	t.clock = stopwatch{totalTime: snap.TimeTracked}
	t.ledger = ledger{
		items:    cloneMilestones(snap.Milestones),
		inflight: make(map[string]Status),
	}
	t.reminder = reminderState{settings: snap.Reminder}
	if t.reminder.settings.Days <= 0 {
		t.reminder.settings.Days = DefaultReminderDays
	}
	if snap.Deadline != nil {
		deadline := *snap.Deadline
		t.reminder.deadline = &deadline
	}

	t.mu.Lock()
	events := t.evaluateReminderLocked()
	t.mu.Unlock()
	t.emit(events...)
	return t
}

func (t *Timeline) ProjectID() string {
	return t.projectID
}

// Subscribe registers fn for every event emitted after this call. The returned
// func removes the subscription.
func (t *Timeline) Subscribe(fn func(Event)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return func() {}
	}
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// Close unmounts the timeline: the stopwatch ticker is cancelled, subscribers
// are dropped and any persistence call still in flight becomes a no-op.
func (t *Timeline) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.subs = make(map[int]func(Event))
	handle := t.clock.ticker
	t.clock.ticker = nil
	t.mu.Unlock()

	handle.stop()
	t.logger.Debug("timeline closed")
}

// emit must be called without t.mu held.
func (t *Timeline) emit(events ...Event) {
	if len(events) == 0 {
		return
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	subs := make([]func(Event), 0, len(t.subs))
	for id := 0; id < t.nextSub; id++ {
		if fn, ok := t.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	t.mu.Unlock()

	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}
