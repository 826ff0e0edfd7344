// Package events publishes project domain events after successful mutations.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ExchangeName = "events"

	ProjectCreated         = "project.created"
	ProgressUpdated        = "project.progress_updated"
	TimeTracked            = "project.time_tracked"
	MilestoneCreated       = "milestone.created"
	MilestoneStatusChanged = "milestone.status_changed"
	DeadlineApproaching    = "project.deadline_approaching"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close()
}

// Envelope wraps every payload on the wire.
type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

func NewEnvelope(routingKey string, payload any) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Type:       routingKey,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type ProgressPayload struct {
	ProjectID string `json:"projectId"`
	Progress  int    `json:"progress"`
	Status    string `json:"status"`
}

type TimeTrackedPayload struct {
	ProjectID    string `json:"projectId"`
	TotalSeconds int64  `json:"totalSeconds"`
}

type MilestonePayload struct {
	ProjectID   string  `json:"projectId"`
	MilestoneID string  `json:"milestoneId"`
	Title       string  `json:"title"`
	Amount      float64 `json:"amount"`
	From        string  `json:"from,omitempty"`
	Status      string  `json:"status"`
}

type ProjectPayload struct {
	ProjectID string `json:"projectId"`
	OwnerID   string `json:"ownerId"`
	Title     string `json:"title"`
}

type DeadlinePayload struct {
	ProjectID string    `json:"projectId"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	Deadline  time.Time `json:"deadline"`
	DaysLeft  int       `json:"daysLeft"`
}

// LogPublisher is used when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, routingKey string, payload any) error {
	p.logger.Info("event", zap.String("routing_key", routingKey), zap.Any("payload", payload))
	return nil
}

func (p *LogPublisher) Close() {}
