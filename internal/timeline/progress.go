package timeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type progressState struct {
	value     int
	committed int
	busy      bool
	// completeQueued marks a forced 100 waiting on the in-flight commit.
	completeQueued bool
}

func clampProgress(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// SetProgress changes the displayed value only. Nothing is persisted until CommitProgress.
func (t *Timeline) SetProgress(value int) error {
	if value < 0 || value > 100 {
		return fmt.Errorf("%w: progress must be between 0 and 100", ErrValidation)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.progress.value = value
	return nil
}

// Progress is the value currently displayed, committed or not.
func (t *Timeline) Progress() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress.value
}

// CommittedProgress is the last value the project service accepted.
func (t *Timeline) CommittedProgress() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress.committed
}

// ProgressBusy reports whether a commit is in flight.
func (t *Timeline) ProgressBusy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress.busy
}

// CommitProgress sends the displayed value to the project service. A failed
// commit leaves the displayed value as is and the committed value untouched.
func (t *Timeline) CommitProgress(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.progress.busy {
		t.mu.Unlock()
		return ErrBusy
	}
	value := t.progress.value
	t.progress.busy = true
	t.mu.Unlock()

	return t.finishProgressCommit(ctx, value)
}

// forceComplete sets progress to 100 and commits it without user action.
// With a commit already in flight the 100 is queued and committed by that
// commit's caller once the service answers.
func (t *Timeline) forceComplete(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.progress.value = 100
	if t.progress.busy {
		t.progress.completeQueued = true
		t.mu.Unlock()
		t.logger.Info("all milestones completed, progress 100 queued behind in-flight commit")
		return nil
	}
	t.progress.busy = true
	t.mu.Unlock()

	t.logger.Info("all milestones completed, forcing progress to 100")
	return t.finishProgressCommit(ctx, 100)
}

func (t *Timeline) finishProgressCommit(ctx context.Context, value int) error {
	err := t.svc.UpdateProgress(ctx, t.projectID, value)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	queued := t.progress.completeQueued && (err != nil || value != 100)
	t.progress.completeQueued = false
	if queued {
		t.progress.value = 100
	} else {
		t.progress.busy = false
	}
	if err != nil {
		t.mu.Unlock()
		t.logger.Error("failed to update progress", zap.Int("progress", value), zap.Error(err))
		t.emit(notify(LevelError, "Failed to update progress"))
		err = fmt.Errorf("update progress: %w", err)
	} else {
		t.progress.committed = value
		t.mu.Unlock()

		t.logger.Info("progress updated", zap.Int("progress", value))
		t.emit(
			ProgressChanged{Progress: value},
			notify(LevelSuccess, "Progress updated successfully"),
		)
	}

	if queued {
		// busy is still held; the forced commit reports through its own notifications.
		t.logger.Info("all milestones completed, forcing progress to 100")
		_ = t.finishProgressCommit(ctx, 100)
	}
	return err
}
