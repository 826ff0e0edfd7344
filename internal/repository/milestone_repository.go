package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"freelance/tracker/internal/model"
)

type MilestoneRepository struct {
	db *sql.DB
}

func NewMilestoneRepository(db *sql.DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

// NextPositionTx returns the position the next milestone of a project takes.
func (r *MilestoneRepository) NextPositionTx(ctx context.Context, tx *sql.Tx, projectID string) (int, error) {
	var position int
	err := tx.QueryRowContext(
		ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM milestones WHERE project_id = $1`,
		projectID,
	).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("next milestone position: %w", err)
	}
	return position, nil
}

func (r *MilestoneRepository) InsertTx(ctx context.Context, tx *sql.Tx, m *model.Milestone) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO milestones (
			id, project_id, position, title, description, due_date, amount,
			status, completed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID,
		m.ProjectID,
		m.Position,
		m.Title,
		m.Description,
		formatTime(m.DueDate),
		m.Amount,
		m.Status,
		nullableTime(m.CompletedAt),
		formatTime(m.CreatedAt),
		formatTime(m.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert milestone: %w", err)
	}
	return nil
}

const milestoneColumns = `id, project_id, position, title, description, due_date, amount,
		        status, completed_at, created_at, updated_at`

func (r *MilestoneRepository) GetTx(ctx context.Context, tx *sql.Tx, projectID, milestoneID string) (*model.Milestone, error) {
	row := tx.QueryRowContext(
		ctx,
		`SELECT `+milestoneColumns+`
		 FROM milestones
		 WHERE id = $1 AND project_id = $2`,
		milestoneID,
		projectID,
	)
	return scanMilestone(row)
}

func (r *MilestoneRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, m *model.Milestone) error {
	_, err := tx.ExecContext(
		ctx,
		`UPDATE milestones
		 SET status = $1,
		     completed_at = $2,
		     updated_at = $3
		 WHERE id = $4`,
		m.Status,
		nullableTime(m.CompletedAt),
		formatTime(m.UpdatedAt),
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("update milestone status: %w", err)
	}
	return nil
}

// ListByProject returns milestones in insertion order.
func (r *MilestoneRepository) ListByProject(ctx context.Context, projectID string) ([]model.Milestone, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+milestoneColumns+`
		 FROM milestones
		 WHERE project_id = $1
		 ORDER BY position ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer rows.Close()

	milestones := make([]model.Milestone, 0)
	for rows.Next() {
		m, scanErr := scanMilestone(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		milestones = append(milestones, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate milestones: %w", err)
	}
	return milestones, nil
}

func scanMilestone(s scanner) (*model.Milestone, error) {
	m := model.Milestone{}
	var dueDate string
	var completedAt sql.NullString
	var createdAt string
	var updatedAt string
	err := s.Scan(
		&m.ID,
		&m.ProjectID,
		&m.Position,
		&m.Title,
		&m.Description,
		&dueDate,
		&m.Amount,
		&m.Status,
		&completedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan milestone: %w", err)
	}

	if m.DueDate, err = parseTime(dueDate); err != nil {
		return nil, fmt.Errorf("parse milestone due_date: %w", err)
	}
	if m.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, fmt.Errorf("parse milestone completed_at: %w", err)
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse milestone created_at: %w", err)
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse milestone updated_at: %w", err)
	}
	return &m, nil
}
