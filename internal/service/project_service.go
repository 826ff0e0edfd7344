package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "freelance/tracker/internal/errors"
	"freelance/tracker/internal/events"
	"freelance/tracker/internal/metrics"
	"freelance/tracker/internal/model"
	"freelance/tracker/internal/repository"
)

type ProjectService struct {
	projects   *repository.ProjectRepository
	milestones *repository.MilestoneRepository
	publisher  events.Publisher
	logger     *zap.Logger
	now        func() time.Time
}

type CreateProjectInput struct {
	Title       string
	Description string
	Deadline    *time.Time
	Budget      float64
}

type CreateMilestoneInput struct {
	Title       string
	Description string
	DueDate     time.Time
	Amount      float64
}

type ProjectDetail struct {
	Project    model.Project     `json:"project"`
	Milestones []model.Milestone `json:"milestones"`
}

func NewProjectService(
	projects *repository.ProjectRepository,
	milestones *repository.MilestoneRepository,
	publisher events.Publisher,
	logger *zap.Logger,
) *ProjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	return &ProjectService{
		projects:   projects,
		milestones: milestones,
		publisher:  publisher,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *ProjectService) CreateProject(ctx context.Context, ownerID string, in CreateProjectInput) (*model.Project, *apperrors.APIError) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.Validation("title", "title is required")
	}
	if in.Budget < 0 || math.IsNaN(in.Budget) {
		return nil, apperrors.Validation("budget", "budget must not be negative")
	}

	now := s.now()
	project := model.Project{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Budget:      in.Budget,
		Deadline:    in.Deadline,
		Status:      model.ProjectStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.projects.Create(ctx, &project); err != nil {
		s.logger.Error("create project", zap.Error(err))
		return nil, apperrors.Internal("failed to create project")
	}

	s.publish(ctx, events.ProjectCreated, events.ProjectPayload{
		ProjectID: project.ID,
		OwnerID:   project.OwnerID,
		Title:     project.Title,
	})
	return &project, nil
}

func (s *ProjectService) ListProjects(ctx context.Context, ownerID string) ([]model.Project, *apperrors.APIError) {
	projects, err := s.projects.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("list projects", zap.Error(err))
		return nil, apperrors.Internal("failed to list projects")
	}
	return projects, nil
}

func (s *ProjectService) GetProject(ctx context.Context, ownerID, projectID string) (*ProjectDetail, *apperrors.APIError) {
	project, err := s.projects.Get(ctx, projectID)
	if apiErr := s.ownedProject(project, err, ownerID); apiErr != nil {
		return nil, apiErr
	}

	milestones, err := s.milestones.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("list milestones", zap.Error(err))
		return nil, apperrors.Internal("failed to list milestones")
	}
	return &ProjectDetail{Project: *project, Milestones: milestones}, nil
}

// UpdateProgress stores progress and marks the project completed at 100.
func (s *ProjectService) UpdateProgress(ctx context.Context, ownerID, projectID string, progress int) (*model.Project, *apperrors.APIError) {
	if progress < 0 || progress > 100 {
		return nil, apperrors.Validation("progress", "progress must be between 0 and 100")
	}

	tx, err := s.projects.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	project, apiErr := s.ownedProjectTx(ctx, tx, ownerID, projectID)
	if apiErr != nil {
		return nil, apiErr
	}

	project.Progress = progress
	// Status follows progress on every write: 100 completes, anything lower reopens.
	project.Status = model.ProjectStatusActive
	if progress == 100 {
		project.Status = model.ProjectStatusCompleted
	}
	project.UpdatedAt = s.now()

	if err := s.projects.UpdateProgressTx(ctx, tx, project); err != nil {
		s.logger.Error("update progress", zap.Error(err))
		metrics.IncrementProjectMutation("progress", "failure")
		return nil, apperrors.Internal("failed to update progress")
	}
	if commitErr := tx.Commit(); commitErr != nil {
		metrics.IncrementProjectMutation("progress", "failure")
		return nil, apperrors.Internal("failed to commit transaction")
	}
	metrics.IncrementProjectMutation("progress", "success")

	s.publish(ctx, events.ProgressUpdated, events.ProgressPayload{
		ProjectID: project.ID,
		Progress:  project.Progress,
		Status:    project.Status,
	})
	return project, nil
}

// UpdateTimeTracked replaces the cumulative tracked seconds.
func (s *ProjectService) UpdateTimeTracked(ctx context.Context, ownerID, projectID string, totalSeconds int64) (*model.Project, *apperrors.APIError) {
	if totalSeconds < 0 {
		return nil, apperrors.Validation("totalSeconds", "totalSeconds must not be negative")
	}

	tx, err := s.projects.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	project, apiErr := s.ownedProjectTx(ctx, tx, ownerID, projectID)
	if apiErr != nil {
		return nil, apiErr
	}

	previous := project.TimeTrackedSeconds
	project.TimeTrackedSeconds = totalSeconds
	project.UpdatedAt = s.now()

	if err := s.projects.UpdateTimeTrackedTx(ctx, tx, project); err != nil {
		s.logger.Error("update time tracked", zap.Error(err))
		metrics.IncrementProjectMutation("time_tracked", "failure")
		return nil, apperrors.Internal("failed to update time tracked")
	}
	if commitErr := tx.Commit(); commitErr != nil {
		metrics.IncrementProjectMutation("time_tracked", "failure")
		return nil, apperrors.Internal("failed to commit transaction")
	}
	metrics.IncrementProjectMutation("time_tracked", "success")
	metrics.AddTrackedSeconds(totalSeconds - previous)

	s.publish(ctx, events.TimeTracked, events.TimeTrackedPayload{
		ProjectID:    project.ID,
		TotalSeconds: project.TimeTrackedSeconds,
	})
	return project, nil
}

func (s *ProjectService) CreateMilestone(ctx context.Context, ownerID, projectID string, in CreateMilestoneInput) (*model.Milestone, *apperrors.APIError) {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return nil, apperrors.Validation("title", "title is required")
	case in.DueDate.IsZero():
		return nil, apperrors.Validation("dueDate", "dueDate is required")
	case in.Amount < 0 || math.IsNaN(in.Amount):
		return nil, apperrors.Validation("amount", "amount must not be negative")
	}

	tx, err := s.projects.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	if _, apiErr := s.ownedProjectTx(ctx, tx, ownerID, projectID); apiErr != nil {
		return nil, apiErr
	}

	position, err := s.milestones.NextPositionTx(ctx, tx, projectID)
	if err != nil {
		s.logger.Error("next milestone position", zap.Error(err))
		return nil, apperrors.Internal("failed to create milestone")
	}

	now := s.now()
	milestone := model.Milestone{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Position:    position,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		DueDate:     in.DueDate.UTC(),
		Amount:      in.Amount,
		Status:      model.MilestoneStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.milestones.InsertTx(ctx, tx, &milestone); err != nil {
		s.logger.Error("insert milestone", zap.Error(err))
		metrics.IncrementProjectMutation("milestone_created", "failure")
		return nil, apperrors.Internal("failed to create milestone")
	}
	if commitErr := tx.Commit(); commitErr != nil {
		metrics.IncrementProjectMutation("milestone_created", "failure")
		return nil, apperrors.Internal("failed to commit transaction")
	}
	metrics.IncrementProjectMutation("milestone_created", "success")

	s.publish(ctx, events.MilestoneCreated, events.MilestonePayload{
		ProjectID:   projectID,
		MilestoneID: milestone.ID,
		Title:       milestone.Title,
		Amount:      milestone.Amount,
		Status:      milestone.Status,
	})
	return &milestone, nil
}

// UpdateMilestoneStatus moves a milestone one step forward. Anything other
// than the single permitted next status is a conflict.
func (s *ProjectService) UpdateMilestoneStatus(ctx context.Context, ownerID, projectID, milestoneID, status string) (*model.Milestone, *apperrors.APIError) {
	switch status {
	case model.MilestoneStatusPending, model.MilestoneStatusInProgress, model.MilestoneStatusCompleted:
	default:
		return nil, apperrors.Validation("status", "status must be pending, in_progress or completed")
	}

	tx, err := s.projects.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	if _, apiErr := s.ownedProjectTx(ctx, tx, ownerID, projectID); apiErr != nil {
		return nil, apiErr
	}

	milestone, err := s.milestones.GetTx(ctx, tx, projectID, milestoneID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("milestone_not_found", "milestone not found")
	}
	if err != nil {
		s.logger.Error("get milestone", zap.Error(err))
		return nil, apperrors.Internal("failed to get milestone")
	}

	from := milestone.Status
	if next, ok := model.NextMilestoneStatus(from); !ok || next != status {
		metrics.IncrementProjectMutation("milestone_status", "rejected")
		return nil, apperrors.Conflict("invalid_transition", "milestone cannot move to "+status, map[string]string{
			"from": from,
			"to":   status,
		})
	}

	now := s.now()
	milestone.Status = status
	milestone.UpdatedAt = now
	if status == model.MilestoneStatusCompleted {
		milestone.CompletedAt = &now
	}

	if err := s.milestones.UpdateStatusTx(ctx, tx, milestone); err != nil {
		s.logger.Error("update milestone status", zap.Error(err))
		metrics.IncrementProjectMutation("milestone_status", "failure")
		return nil, apperrors.Internal("failed to update milestone status")
	}
	if commitErr := tx.Commit(); commitErr != nil {
		metrics.IncrementProjectMutation("milestone_status", "failure")
		return nil, apperrors.Internal("failed to commit transaction")
	}
	metrics.IncrementProjectMutation("milestone_status", "success")

	s.publish(ctx, events.MilestoneStatusChanged, events.MilestonePayload{
		ProjectID:   projectID,
		MilestoneID: milestone.ID,
		Title:       milestone.Title,
		Amount:      milestone.Amount,
		From:        from,
		Status:      milestone.Status,
	})
	return milestone, nil
}

func (s *ProjectService) ownedProjectTx(ctx context.Context, tx *sql.Tx, ownerID, projectID string) (*model.Project, *apperrors.APIError) {
	project, err := s.projects.GetTx(ctx, tx, projectID)
	if apiErr := s.ownedProject(project, err, ownerID); apiErr != nil {
		return nil, apiErr
	}
	return project, nil
}

// ownedProject hides projects of other users behind the same 404 as missing ones.
func (s *ProjectService) ownedProject(project *model.Project, err error, ownerID string) *apperrors.APIError {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("project_not_found", "project not found")
	}
	if err != nil {
		s.logger.Error("get project", zap.Error(err))
		return apperrors.Internal("failed to get project")
	}
	if project.OwnerID != ownerID {
		return apperrors.NotFound("project_not_found", "project not found")
	}
	return nil
}

// publish is best effort; the mutation is already committed.
func (s *ProjectService) publish(ctx context.Context, routingKey string, payload any) {
	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		s.logger.Warn("publish event failed",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}
