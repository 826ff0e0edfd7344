package model

import "time"

const (
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"

	MilestoneStatusPending    = "pending"
	MilestoneStatusInProgress = "in_progress"
	MilestoneStatusCompleted  = "completed"
)

type Project struct {
	ID                 string     `json:"id"`
	OwnerID            string     `json:"ownerId"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Budget             float64    `json:"budget"`
	Deadline           *time.Time `json:"deadline,omitempty"`
	Status             string     `json:"status"`
	Progress           int        `json:"progress"`
	TimeTrackedSeconds int64      `json:"timeTracked"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type Milestone struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	Position    int        `json:"position"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     time.Time  `json:"dueDate"`
	Amount      float64    `json:"amount"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NextMilestoneStatus returns the only status a milestone may move to.
func NextMilestoneStatus(status string) (string, bool) {
	switch status {
	case MilestoneStatusPending:
		return MilestoneStatusInProgress, true
	case MilestoneStatusInProgress:
		return MilestoneStatusCompleted, true
	default:
		return "", false
	}
}
