package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "freelance/tracker/internal/errors"
	"freelance/tracker/internal/middleware"
	"freelance/tracker/internal/model"
	"freelance/tracker/internal/service"
)

type ProjectHandler struct {
	projectService *service.ProjectService
}

type createProjectRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Deadline    string  `json:"deadline"`
	Budget      float64 `json:"budget"`
}

type progressRequest struct {
	Progress *int `json:"progress"`
}

type timeTrackedRequest struct {
	TotalSeconds *int64 `json:"totalSeconds"`
}

type createMilestoneRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueDate     string  `json:"dueDate"`
	Amount      float64 `json:"amount"`
}

type milestoneStatusRequest struct {
	Status string `json:"status"`
}

func NewProjectHandler(projectService *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

func (h *ProjectHandler) List(c *gin.Context) {
	projects, apiErr := h.projectService.ListProjects(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	if status := c.Query("status"); status != "" {
		filtered := make([]model.Project, 0, len(projects))
		for _, project := range projects {
			if project.Status == status {
				filtered = append(filtered, project)
			}
		}
		projects = filtered
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	var deadline *time.Time
	if strings.TrimSpace(req.Deadline) != "" {
		parsed, ok := parseDate(req.Deadline)
		if !ok {
			writeError(c, apperrors.Validation("deadline", "deadline must be RFC3339 or YYYY-MM-DD"))
			return
		}
		deadline = &parsed
	}

	project, apiErr := h.projectService.CreateProject(c.Request.Context(), middleware.UserID(c), service.CreateProjectInput{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    deadline,
		Budget:      req.Budget,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": project})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	detail, apiErr := h.projectService.GetProject(c.Request.Context(), middleware.UserID(c), c.Param("projectId"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *ProjectHandler) UpdateProgress(c *gin.Context) {
	var req progressRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Progress == nil {
		writeError(c, apperrors.Validation("progress", "progress is required"))
		return
	}

	project, apiErr := h.projectService.UpdateProgress(c.Request.Context(), middleware.UserID(c), c.Param("projectId"), *req.Progress)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": project})
}

func (h *ProjectHandler) UpdateTimeTracked(c *gin.Context) {
	var req timeTrackedRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.TotalSeconds == nil {
		writeError(c, apperrors.Validation("totalSeconds", "totalSeconds is required"))
		return
	}

	project, apiErr := h.projectService.UpdateTimeTracked(c.Request.Context(), middleware.UserID(c), c.Param("projectId"), *req.TotalSeconds)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": project})
}

func (h *ProjectHandler) CreateMilestone(c *gin.Context) {
	var req createMilestoneRequest
	if !bindJSON(c, &req) {
		return
	}

	var dueDate time.Time
	if strings.TrimSpace(req.DueDate) != "" {
		parsed, ok := parseDate(req.DueDate)
		if !ok {
			writeError(c, apperrors.Validation("dueDate", "dueDate must be RFC3339 or YYYY-MM-DD"))
			return
		}
		dueDate = parsed
	}

	milestone, apiErr := h.projectService.CreateMilestone(c.Request.Context(), middleware.UserID(c), c.Param("projectId"), service.CreateMilestoneInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     dueDate,
		Amount:      req.Amount,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"milestone": milestone})
}

func (h *ProjectHandler) UpdateMilestoneStatus(c *gin.Context) {
	var req milestoneStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	milestone, apiErr := h.projectService.UpdateMilestoneStatus(
		c.Request.Context(),
		middleware.UserID(c),
		c.Param("projectId"),
		c.Param("milestoneId"),
		req.Status,
	)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"milestone": milestone})
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
