package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dolphinlong/timetable-core/internal/dto"
	"github.com/dolphinlong/timetable-core/internal/service"
	"github.com/dolphinlong/timetable-core/internal/store"
	appErrors "github.com/dolphinlong/timetable-core/pkg/errors"
	"github.com/dolphinlong/timetable-core/pkg/response"
)

// runGenerator is the subset of *service.RunService this handler drives.
type runGenerator interface {
	Generate(ctx context.Context, s store.EntityStore, req dto.GenerateRunRequest) (*dto.RunResponse, error)
	Get(runID string) (*dto.RunResponse, error)
	Commit(ctx context.Context, s store.EntityStore, runID string) error
}

// RunHandler exposes the scheduling-run endpoints.
type RunHandler struct {
	service runGenerator
	store   store.EntityStore
}

// NewRunHandler constructs the handler.
func NewRunHandler(svc *service.RunService, s store.EntityStore) *RunHandler {
	return &RunHandler{service: svc, store: s}
}

// Generate godoc
// @Summary Run the scheduling orchestrator against the stored entity snapshot
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param payload body dto.GenerateRunRequest true "Run request"
// @Success 200 {object} response.Envelope
// @Router /v1/schedule/runs [post]
func (h *RunHandler) Generate(c *gin.Context) {
	var req dto.GenerateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid run request payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), h.store, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Get godoc
// @Summary Fetch a prior run's result and Explainer report
// @Tags Scheduling
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /v1/schedule/runs/{id} [get]
func (h *RunHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Commit godoc
// @Summary Persist a cached run's placements as the active schedule
// @Tags Scheduling
// @Param id path string true "Run ID"
// @Success 204
// @Router /v1/schedule/runs/{id}/commit [post]
func (h *RunHandler) Commit(c *gin.Context) {
	if err := h.service.Commit(c.Request.Context(), h.store, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
