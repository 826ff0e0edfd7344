package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"freelance/tracker/internal/dedup"
	"freelance/tracker/internal/events"
	"freelance/tracker/internal/metrics"
	"freelance/tracker/internal/repository"
	"freelance/tracker/internal/timeline"
)

// DeadlineSweeper periodically warns about active projects whose deadline
// falls within the reminder window, at most once per project per day.
type DeadlineSweeper struct {
	projects  *repository.ProjectRepository
	deduper   dedup.Deduper
	publisher events.Publisher
	logger    *zap.Logger
	days      int
	now       func() time.Time
	cron      *cron.Cron
}

func NewDeadlineSweeper(
	projects *repository.ProjectRepository,
	deduper dedup.Deduper,
	publisher events.Publisher,
	logger *zap.Logger,
	days int,
) *DeadlineSweeper {
	if days < 1 {
		days = timeline.DefaultReminderDays
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deduper == nil {
		deduper = dedup.NewMemoryDeduper(24 * time.Hour)
	}
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	return &DeadlineSweeper{
		projects:  projects,
		deduper:   deduper,
		publisher: publisher,
		logger:    logger,
		days:      days,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules Sweep. schedule accepts six-field cron specs and
// descriptors such as "@every 1h".
func (s *DeadlineSweeper) Start(schedule string) error {
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("deadline sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule deadline sweep: %w", err)
	}
	s.cron = c
	s.cron.Start()
	s.logger.Info("deadline sweeper started", zap.String("schedule", schedule), zap.Int("days", s.days))
	return nil
}

// Stop gracefully stops the scheduler.
func (s *DeadlineSweeper) Stop(ctx context.Context) {
	if s == nil || s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.logger.Info("deadline sweeper stopped")
}

// Sweep publishes one reminder per due project and returns how many went out.
func (s *DeadlineSweeper) Sweep(ctx context.Context) (int, error) {
	projects, err := s.projects.ListActiveWithDeadline(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	rule := timeline.Reminder{Enabled: true, Days: s.days}
	published := 0
	for _, project := range projects {
		if project.Deadline == nil || !timeline.ShouldRemind(rule, *project.Deadline, now) {
			continue
		}

		key := fmt.Sprintf("deadline:%s:%s", project.ID, now.Format("2006-01-02"))
		if !s.deduper.AcquireOnce(ctx, key) {
			metrics.IncrementDeadlineReminder("skipped")
			continue
		}

		payload := events.DeadlinePayload{
			ProjectID: project.ID,
			OwnerID:   project.OwnerID,
			Title:     project.Title,
			Deadline:  *project.Deadline,
			DaysLeft:  timeline.DaysUntil(*project.Deadline, now),
		}
		if err := s.publisher.Publish(ctx, events.DeadlineApproaching, payload); err != nil {
			metrics.IncrementDeadlineReminder("failed")
			s.deduper.Release(ctx, key)
			s.logger.Warn("publish deadline reminder",
				zap.String("project_id", project.ID),
				zap.Error(err),
			)
			continue
		}
		metrics.IncrementDeadlineReminder("published")
		published++
	}

	if published > 0 {
		s.logger.Info("deadline reminders published", zap.Int("count", published))
	}
	return published, nil
}
