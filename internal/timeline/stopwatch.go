package timeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// TimeTrackingState is a read-only copy of the stopwatch. TotalTime covers
// closed sessions only; SessionTime is the open session.
type TimeTrackingState struct {
	IsTracking  bool       `json:"isTracking"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	TotalTime   int64      `json:"totalTime"`
	SessionTime int64      `json:"sessionTime"`
}

// Elapsed is what the stopwatch displays.
func (s TimeTrackingState) Elapsed() int64 {
	return s.TotalTime + s.SessionTime
}

type stopwatch struct {
	tracking    bool
	stopping    bool
	startTime   time.Time
	totalTime   int64
	sessionTime int64
	ticker      *tickerHandle
}

// tickerHandle owns the goroutine that refreshes the session time.
type tickerHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// stop cancels the ticker and waits for its goroutine. Safe on nil.
func (h *tickerHandle) stop() {
	if h == nil {
		return
	}
	h.cancel()
	<-h.done
}

// StartTracking opens a session. It returns false, changing nothing, when a
// session is already open or a stop is still being persisted.
func (t *Timeline) StartTracking() bool {
	t.mu.Lock()
	if t.closed || t.clock.tracking || t.clock.stopping {
		t.mu.Unlock()
		return false
	}
	t.clock.tracking = true
	t.clock.startTime = t.now()
	t.clock.sessionTime = 0

	ctx, cancel := context.WithCancel(context.Background())
	handle := &tickerHandle{cancel: cancel, done: make(chan struct{})}
	t.clock.ticker = handle
	t.mu.Unlock()

	go t.runTicker(ctx, handle)

	t.logger.Info("time tracking started")
	t.emit(notify(LevelInfo, "Time tracking started"))
	return true
}

func (t *Timeline) runTicker(ctx context.Context, handle *tickerHandle) {
	defer close(handle.done)
	ticker := time.NewTicker(t.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.mu.Lock()
			if ctx.Err() != nil || !t.clock.tracking {
				t.mu.Unlock()
				return
			}
			t.clock.sessionTime = t.sessionSecondsLocked()
			elapsed := t.clock.totalTime + t.clock.sessionTime
			t.mu.Unlock()
			t.emit(Tick{Elapsed: elapsed})
		}
	}
}

func (t *Timeline) sessionSecondsLocked() int64 {
	d := t.now().Sub(t.clock.startTime)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// StopTracking closes the open session and persists the new total. The
// session ends locally even when persisting fails; only TotalTime is held back.
func (t *Timeline) StopTracking(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if !t.clock.tracking {
		t.mu.Unlock()
		return ErrNotTracking
	}
	if t.clock.stopping {
		t.mu.Unlock()
		return ErrBusy
	}
	handle := t.clock.ticker
	t.clock.ticker = nil
	t.clock.stopping = true
	t.clock.sessionTime = t.sessionSecondsLocked()
	newTotal := t.clock.totalTime + t.clock.sessionTime
	t.mu.Unlock()

	handle.stop()

	err := t.svc.UpdateTimeTracked(ctx, t.projectID, newTotal)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.clock.stopping = false
	t.clock.tracking = false
	t.clock.sessionTime = 0
	t.clock.startTime = time.Time{}
	if err != nil {
		t.mu.Unlock()
		t.logger.Error("failed to save tracked time", zap.Int64("total_seconds", newTotal), zap.Error(err))
		t.emit(notify(LevelError, "Failed to save tracked time"))
		return fmt.Errorf("update time tracked: %w", err)
	}
	t.clock.totalTime = newTotal
	t.mu.Unlock()

	t.logger.Info("time tracking stopped", zap.Int64("total_seconds", newTotal))
	t.emit(notify(LevelSuccess, "Time tracked: "+FormatTime(newTotal)))
	return nil
}

func (t *Timeline) TimeTracking() TimeTrackingState {
	t.mu.Lock()
	defer t.mu.Unlock()
	state := TimeTrackingState{
		IsTracking:  t.clock.tracking,
		TotalTime:   t.clock.totalTime,
		SessionTime: t.clock.sessionTime,
	}
	if t.clock.tracking {
		start := t.clock.startTime
		state.StartTime = &start
	}
	return state
}

// StopBusy reports whether a stop is being persisted.
func (t *Timeline) StopBusy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clock.stopping
}

// Display formats the elapsed total as shown on the stopwatch.
func (t *Timeline) Display() string {
	return FormatTime(t.TimeTracking().Elapsed())
}
