package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"freelance/tracker/internal/model"
)

type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

func (r *ProjectRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *ProjectRepository) Create(ctx context.Context, project *model.Project) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO projects (
			id, owner_id, title, description, budget, deadline, status,
			progress, time_tracked_seconds, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		project.ID,
		project.OwnerID,
		project.Title,
		project.Description,
		project.Budget,
		nullableTime(project.Deadline),
		project.Status,
		project.Progress,
		project.TimeTrackedSeconds,
		formatTime(project.CreatedAt),
		formatTime(project.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

const projectColumns = `id, owner_id, title, description, budget, deadline, status,
		        progress, time_tracked_seconds, created_at, updated_at`

func (r *ProjectRepository) GetTx(ctx context.Context, tx *sql.Tx, projectID string) (*model.Project, error) {
	row := tx.QueryRowContext(
		ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`,
		projectID,
	)
	return scanProject(row)
}

func (r *ProjectRepository) Get(ctx context.Context, projectID string) (*model.Project, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`,
		projectID,
	)
	return scanProject(row)
}

func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Project, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+projectColumns+`
		 FROM projects
		 WHERE owner_id = $1
		 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return collectProjects(rows)
}

// ListActiveWithDeadline returns active projects that have a deadline, soonest first.
func (r *ProjectRepository) ListActiveWithDeadline(ctx context.Context) ([]model.Project, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+projectColumns+`
		 FROM projects
		 WHERE status = $1 AND deadline IS NOT NULL
		 ORDER BY deadline ASC`,
		model.ProjectStatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("list projects with deadline: %w", err)
	}
	return collectProjects(rows)
}

func (r *ProjectRepository) UpdateProgressTx(ctx context.Context, tx *sql.Tx, project *model.Project) error {
	_, err := tx.ExecContext(
		ctx,
		`UPDATE projects
		 SET progress = $1,
		     status = $2,
		     updated_at = $3
		 WHERE id = $4`,
		project.Progress,
		project.Status,
		formatTime(project.UpdatedAt),
		project.ID,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

func (r *ProjectRepository) UpdateTimeTrackedTx(ctx context.Context, tx *sql.Tx, project *model.Project) error {
	_, err := tx.ExecContext(
		ctx,
		`UPDATE projects
		 SET time_tracked_seconds = $1,
		     updated_at = $2
		 WHERE id = $3`,
		project.TimeTrackedSeconds,
		formatTime(project.UpdatedAt),
		project.ID,
	)
	if err != nil {
		return fmt.Errorf("update time tracked: %w", err)
	}
	return nil
}

func collectProjects(rows *sql.Rows) ([]model.Project, error) {
	defer rows.Close()

	projects := make([]model.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(s scanner) (*model.Project, error) {
	project := model.Project{}
	var deadline sql.NullString
	var createdAt string
	var updatedAt string
	err := s.Scan(
		&project.ID,
		&project.OwnerID,
		&project.Title,
		&project.Description,
		&project.Budget,
		&deadline,
		&project.Status,
		&project.Progress,
		&project.TimeTrackedSeconds,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}

	project.Deadline, err = parseNullTime(deadline)
	if err != nil {
		return nil, fmt.Errorf("parse project deadline: %w", err)
	}
	if project.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse project created_at: %w", err)
	}
	if project.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse project updated_at: %w", err)
	}
	return &project, nil
}
