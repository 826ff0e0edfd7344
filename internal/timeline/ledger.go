package timeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type ledger struct {
	items      []Milestone
	inflight   map[string]Status
	submitting bool
}

func (l *ledger) index(id string) int {
	for i, m := range l.items {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Milestones returns the ledger in insertion order.
func (t *Timeline) Milestones() []Milestone {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneMilestones(t.ledger.items)
}

// Transitioning reports whether a status change for the milestone is in flight.
func (t *Timeline) Transitioning(milestoneID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.ledger.inflight[milestoneID]
	return ok
}

// Submitting reports whether a milestone creation is in flight.
func (t *Timeline) Submitting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.submitting
}

// AddMilestone validates in, creates it through the project service and
// appends the server copy. On any error the caller keeps its draft.
func (t *Timeline) AddMilestone(ctx context.Context, in MilestoneInput) (Milestone, error) {
	if err := in.Validate(); err != nil {
		t.emit(notify(LevelError, "Please fill in all milestone fields"))
		return Milestone{}, err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Milestone{}, ErrClosed
	}
	if t.ledger.submitting {
		t.mu.Unlock()
		return Milestone{}, ErrBusy
	}
	t.ledger.submitting = true
	t.mu.Unlock()

	created, err := t.svc.CreateMilestone(ctx, t.projectID, in)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Milestone{}, ErrClosed
	}
	t.ledger.submitting = false
	if err != nil {
		t.mu.Unlock()
		t.logger.Error("failed to add milestone", zap.String("title", in.Title), zap.Error(err))
		t.emit(notify(LevelError, "Failed to add milestone"))
		return Milestone{}, fmt.Errorf("create milestone: %w", err)
	}
	if created.Status == "" {
		created.Status = StatusPending
	}
	t.ledger.items = append(t.ledger.items, created)
	snapshot := cloneMilestones(t.ledger.items)
	t.mu.Unlock()

	t.logger.Info("milestone added", zap.String("milestone_id", created.ID))
	t.emit(
		MilestonesChanged{Milestones: snapshot},
		notify(LevelSuccess, "Milestone added successfully"),
	)
	return created, nil
}

// AdvanceStatus moves a milestone one step forward. The change is tentative
// while the project service call is in flight and rolled back if it fails.
// Completing the last open milestone forces progress to 100.
func (t *Timeline) AdvanceStatus(ctx context.Context, milestoneID string, next Status) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	idx := t.ledger.index(milestoneID)
	if idx < 0 {
		t.mu.Unlock()
		return ErrMilestoneNotFound
	}
	if _, ok := t.ledger.inflight[milestoneID]; ok {
		t.mu.Unlock()
		return ErrBusy
	}
	current := t.ledger.items[idx]
	if !CanTransition(current.Status, next) {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next)
	}
	t.ledger.inflight[milestoneID] = next
	t.mu.Unlock()

	confirmed, err := t.svc.UpdateMilestoneStatus(ctx, t.projectID, milestoneID, next)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	delete(t.ledger.inflight, milestoneID)
	if err != nil {
		t.mu.Unlock()
		t.logger.Error("failed to update milestone status",
			zap.String("milestone_id", milestoneID),
			zap.String("status", string(next)),
			zap.Error(err),
		)
		t.emit(notify(LevelError, "Failed to update milestone status"))
		return fmt.Errorf("update milestone status: %w", err)
	}

	// The ledger may have grown while the call was in flight; look the entry up again.
	idx = t.ledger.index(milestoneID)
	updated := current
	if idx >= 0 {
		updated = t.ledger.items[idx]
	}
	updated.Status = next
	if next == StatusCompleted && updated.CompletedAt == nil {
		completedAt := t.now().UTC()
		updated.CompletedAt = &completedAt
	}
	if confirmed.ID == milestoneID {
		updated = confirmed
	}
	if idx >= 0 {
		t.ledger.items[idx] = updated
	}
	snapshot := cloneMilestones(t.ledger.items)
	done := next == StatusCompleted && allCompleted(t.ledger.items)
	t.mu.Unlock()

	t.logger.Info("milestone status updated",
		zap.String("milestone_id", milestoneID),
		zap.String("status", string(next)),
	)
	t.emit(
		MilestonesChanged{Milestones: snapshot},
		notify(LevelSuccess, "Milestone status updated"),
	)

	if done {
		// The milestone change itself succeeded; a failed progress commit
		// reports through its own notification.
		_ = t.forceComplete(ctx)
	}
	return nil
}
