package timeline

import "context"

// ProjectService persists timeline facts. It is the only way durable state leaves a Timeline.
type ProjectService interface {
	UpdateProgress(ctx context.Context, projectID string, progress int) error
	UpdateTimeTracked(ctx context.Context, projectID string, totalSeconds int64) error
	CreateMilestone(ctx context.Context, projectID string, in MilestoneInput) (Milestone, error)
	UpdateMilestoneStatus(ctx context.Context, projectID, milestoneID string, status Status) (Milestone, error)
}
