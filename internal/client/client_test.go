package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freelance/tracker/internal/client"
	"freelance/tracker/internal/db"
	"freelance/tracker/internal/handler"
	"freelance/tracker/internal/repository"
	"freelance/tracker/internal/router"
	"freelance/tracker/internal/service"
	"freelance/tracker/internal/timeline"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database, db.DriverSQLite))

	authService := service.NewAuthService(repository.NewUserRepository(database), "test-secret", time.Hour, nil)
	projectService := service.NewProjectService(
		repository.NewProjectRepository(database),
		repository.NewMilestoneRepository(database),
		nil,
		nil,
	)
	engine := router.New(authService, handler.NewAuthHandler(authService), handler.NewProjectHandler(projectService), router.Options{})

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)
	return server
}

func newProject(t *testing.T, c *client.Client) *client.Project {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, "owner@example.com", "123456"))

	deadline := time.Now().UTC().Add(48 * time.Hour)
	project, err := c.CreateProject(ctx, client.NewProject{Title: "Website redesign", Deadline: &deadline, Budget: 4000})
	require.NoError(t, err)
	return project
}

func TestTimelineAgainstServer(t *testing.T) {
	server := newServer(t)
	c := client.New(server.URL)
	project := newProject(t, c)
	ctx := context.Background()

	detail, err := c.GetProject(ctx, project.ID)
	require.NoError(t, err)
	snap := detail.Snapshot()
	snap.Reminder = timeline.Reminder{Enabled: true, Days: 3}

	var warnings int
	tl := timeline.New(snap, c, timeline.WithSubscriber(func(e timeline.Event) {
		if n, ok := e.(timeline.Notification); ok && n.Level == timeline.LevelWarning {
			warnings++
		}
	}))
	defer tl.Close()
	assert.Equal(t, 1, warnings)

	_, err = tl.AddMilestone(ctx, timeline.MilestoneInput{
		Title:   "Design",
		DueDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Amount:  1000,
	})
	require.NoError(t, err)
	milestones := tl.Milestones()
	require.Len(t, milestones, 1)
	id := milestones[0].ID
	assert.NotEmpty(t, id)

	require.NoError(t, tl.AdvanceStatus(ctx, id, timeline.StatusInProgress))
	require.NoError(t, tl.AdvanceStatus(ctx, id, timeline.StatusCompleted))
	assert.Equal(t, 100, tl.CommittedProgress())

	detail, err = c.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, detail.Project.Progress)
	assert.Equal(t, "completed", detail.Project.Status)
	require.Len(t, detail.Milestones, 1)
	assert.Equal(t, timeline.StatusCompleted, detail.Milestones[0].Status)
	assert.NotNil(t, detail.Milestones[0].CompletedAt)
}

func TestUpdateTimeTracked(t *testing.T) {
	server := newServer(t)
	c := client.New(server.URL)
	project := newProject(t, c)
	ctx := context.Background()

	require.NoError(t, c.UpdateTimeTracked(ctx, project.ID, 150))

	detail, err := c.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), detail.Project.TimeTracked)
}

func TestErrorsAreDecoded(t *testing.T) {
	server := newServer(t)
	c := client.New(server.URL)
	project := newProject(t, c)
	ctx := context.Background()

	milestone, err := c.CreateMilestone(ctx, project.ID, timeline.MilestoneInput{
		Title:   "Design",
		DueDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = c.UpdateMilestoneStatus(ctx, project.ID, milestone.ID, timeline.StatusCompleted)
	var apiErr *client.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "invalid_transition", apiErr.Code)

	anonymous := client.New(server.URL)
	_, err = anonymous.ListProjects(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestLoginKeepsToken(t *testing.T) {
	server := newServer(t)
	ctx := context.Background()
	require.NoError(t, client.New(server.URL).Register(ctx, "owner@example.com", "123456"))

	c := client.New(server.URL)
	require.NoError(t, c.Login(ctx, "owner@example.com", "123456"))
	assert.NotEmpty(t, c.Token())

	projects, err := c.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)
}
