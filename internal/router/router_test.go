package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"freelance/tracker/internal/db"
	"freelance/tracker/internal/handler"
	"freelance/tracker/internal/repository"
	"freelance/tracker/internal/router"
	"freelance/tracker/internal/service"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type projectEnvelope struct {
	Project struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		Progress    int    `json:"progress"`
		TimeTracked int64  `json:"timeTracked"`
	} `json:"project"`
}

type milestoneEnvelope struct {
	Milestone struct {
		ID          string     `json:"id"`
		Status      string     `json:"status"`
		CompletedAt *time.Time `json:"completedAt"`
	} `json:"milestone"`
}

type detailEnvelope struct {
	Project struct {
		ID string `json:"id"`
	} `json:"project"`
	Milestones []struct {
		Title  string `json:"title"`
		Status string `json:"status"`
	} `json:"milestones"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			Field string `json:"field"`
			From  string `json:"from"`
			To    string `json:"to"`
		} `json:"details"`
	} `json:"error"`
}

func TestProjectLifecycle(t *testing.T) {
	engine := setupTestEngine(t, nil)
	owner := registerUser(t, engine, "owner@example.com", "123456")

	project := createProject(t, engine, owner.Token)

	status, raw := requestJSON(t, engine, http.MethodPut, "/api/projects/"+project+"/progress", owner.Token, map[string]int{
		"progress": 60,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on progress, got %d: %s", status, raw)
	}

	status, raw = requestJSON(t, engine, http.MethodPut, "/api/projects/"+project+"/time-tracked", owner.Token, map[string]int64{
		"totalSeconds": 150,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on time tracked, got %d: %s", status, raw)
	}
	var tracked projectEnvelope
	decode(t, raw, &tracked)
	if tracked.Project.TimeTracked != 150 || tracked.Project.Progress != 60 {
		t.Fatalf("unexpected project after tracking: %+v", tracked.Project)
	}

	design := createMilestone(t, engine, owner.Token, project, "Design")
	createMilestone(t, engine, owner.Token, project, "Build")

	milestonePath := "/api/projects/" + project + "/milestones/" + design + "/status"
	status, raw = requestJSON(t, engine, http.MethodPut, milestonePath, owner.Token, map[string]string{"status": "in_progress"})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on start milestone, got %d: %s", status, raw)
	}
	status, raw = requestJSON(t, engine, http.MethodPut, milestonePath, owner.Token, map[string]string{"status": "completed"})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on complete milestone, got %d: %s", status, raw)
	}
	var completed milestoneEnvelope
	decode(t, raw, &completed)
	if completed.Milestone.CompletedAt == nil {
		t.Fatal("expected completedAt to be set")
	}

	status, raw = requestJSON(t, engine, http.MethodGet, "/api/projects/"+project, owner.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on get project, got %d: %s", status, raw)
	}
	var detail detailEnvelope
	decode(t, raw, &detail)
	if len(detail.Milestones) != 2 {
		t.Fatalf("expected 2 milestones, got %d", len(detail.Milestones))
	}
	if detail.Milestones[0].Title != "Design" || detail.Milestones[0].Status != "completed" {
		t.Fatalf("unexpected first milestone: %+v", detail.Milestones[0])
	}
	if detail.Milestones[1].Status != "pending" {
		t.Fatalf("expected second milestone pending, got %s", detail.Milestones[1].Status)
	}
}

func TestMilestoneInvalidTransition(t *testing.T) {
	engine := setupTestEngine(t, nil)
	owner := registerUser(t, engine, "owner@example.com", "123456")
	project := createProject(t, engine, owner.Token)
	milestone := createMilestone(t, engine, owner.Token, project, "Design")

	status, raw := requestJSON(t, engine, http.MethodPut,
		"/api/projects/"+project+"/milestones/"+milestone+"/status", owner.Token,
		map[string]string{"status": "completed"})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 skipping in_progress, got %d", status)
	}
	var resp apiErrorEnvelope
	decode(t, raw, &resp)
	if resp.Error.Code != "invalid_transition" {
		t.Fatalf("expected invalid_transition, got %s", resp.Error.Code)
	}
	if resp.Error.Details.From != "pending" || resp.Error.Details.To != "completed" {
		t.Fatalf("unexpected transition details: %+v", resp.Error.Details)
	}
}

func TestMilestoneValidation(t *testing.T) {
	engine := setupTestEngine(t, nil)
	owner := registerUser(t, engine, "owner@example.com", "123456")
	project := createProject(t, engine, owner.Token)

	status, raw := requestJSON(t, engine, http.MethodPost, "/api/projects/"+project+"/milestones", owner.Token, map[string]interface{}{
		"title":   "Design",
		"dueDate": "2026-04-01",
		"amount":  -5,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative amount, got %d", status)
	}
	var resp apiErrorEnvelope
	decode(t, raw, &resp)
	if resp.Error.Code != "validation_failed" || resp.Error.Details.Field != "amount" {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	status, _ = requestJSON(t, engine, http.MethodPut, "/api/projects/"+project+"/progress", owner.Token, map[string]int{
		"progress": 120,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for progress 120, got %d", status)
	}

	status, _ = requestJSON(t, engine, http.MethodPut, "/api/projects/"+project+"/progress", owner.Token, map[string]int{})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing progress, got %d", status)
	}
}

func TestProjectIsolation(t *testing.T) {
	engine := setupTestEngine(t, nil)
	owner := registerUser(t, engine, "owner@example.com", "123456")
	other := registerUser(t, engine, "other@example.com", "123456")
	project := createProject(t, engine, owner.Token)

	status, _ := requestJSON(t, engine, http.MethodGet, "/api/projects/"+project, other.Token, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for another user's project, got %d", status)
	}

	status, raw := requestJSON(t, engine, http.MethodGet, "/api/projects", other.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on list, got %d", status)
	}
	var list struct {
		Projects []json.RawMessage `json:"projects"`
	}
	decode(t, raw, &list)
	if len(list.Projects) != 0 {
		t.Fatalf("expected no projects for other user, got %d", len(list.Projects))
	}

	status, _ = requestJSON(t, engine, http.MethodGet, "/api/projects", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
}

func TestCORSPreflight(t *testing.T) {
	engine := setupTestEngine(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/projects/abc/progress", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	recorder := httptest.NewRecorder()

	engine.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin header: %s", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
	if !strings.Contains(recorder.Header().Get("Access-Control-Allow-Methods"), "PUT") {
		t.Fatalf("expected PUT to be allowed, got %s", recorder.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestReadinessAndMetrics(t *testing.T) {
	engine := setupTestEngine(t, map[string]router.ReadinessCheck{
		"mq": func(context.Context) error { return errors.New("connection closed") },
	})

	status, raw := requestJSON(t, engine, http.MethodGet, "/readyz", "", nil)
	if status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with failing check, got %d: %s", status, raw)
	}

	status, raw = requestJSON(t, engine, http.MethodGet, "/metrics", "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on metrics, got %d", status)
	}
	if !bytes.Contains(raw, []byte("http_request_duration_seconds")) {
		t.Fatal("expected request duration histogram in metrics output")
	}
}

func setupTestEngine(t *testing.T, checks map[string]router.ReadinessCheck) http.Handler {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	if err := db.RunMigrations(database, db.DriverSQLite); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(database)
	projectRepo := repository.NewProjectRepository(database)
	milestoneRepo := repository.NewMilestoneRepository(database)
	authService := service.NewAuthService(userRepo, "test-secret", 24*time.Hour, nil)
	projectService := service.NewProjectService(projectRepo, milestoneRepo, nil, nil)

	authHandler := handler.NewAuthHandler(authService)
	projectHandler := handler.NewProjectHandler(projectService)

	return router.New(authService, authHandler, projectHandler, router.Options{
		CORSOrigins: []string{"http://localhost:5173"},
		Checks:      checks,
	})
}

func registerUser(t *testing.T, server http.Handler, email, password string) authResponse {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s failed with status %d: %s", email, status, string(body))
	}
	var resp authResponse
	decode(t, body, &resp)
	if resp.Token == "" {
		t.Fatalf("empty token for user %s", email)
	}
	return resp
}

func createProject(t *testing.T, server http.Handler, token string) string {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodPost, "/api/projects", token, map[string]interface{}{
		"title":    "Website redesign",
		"deadline": "2026-05-01",
		"budget":   4000,
	})
	if status != http.StatusCreated {
		t.Fatalf("create project failed with status %d: %s", status, string(body))
	}
	var resp projectEnvelope
	decode(t, body, &resp)
	if resp.Project.Status != "active" {
		t.Fatalf("expected new project active, got %s", resp.Project.Status)
	}
	return resp.Project.ID
}

func createMilestone(t *testing.T, server http.Handler, token, projectID, title string) string {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodPost, "/api/projects/"+projectID+"/milestones", token, map[string]interface{}{
		"title":   title,
		"dueDate": "2026-04-01T00:00:00Z",
		"amount":  1000,
	})
	if status != http.StatusCreated {
		t.Fatalf("create milestone failed with status %d: %s", status, string(body))
	}
	var resp milestoneEnvelope
	decode(t, body, &resp)
	if resp.Milestone.Status != "pending" {
		t.Fatalf("expected new milestone pending, got %s", resp.Milestone.Status)
	}
	return resp.Milestone.ID
}

func decode(t *testing.T, raw []byte, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("unmarshal response: %v (%s)", err, raw)
	}
}

func requestJSON(
	t *testing.T,
	server http.Handler,
	method, path, token string,
	body interface{},
) (int, []byte) {
	t.Helper()

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		payload = raw
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder.Code, recorder.Body.Bytes()
}
