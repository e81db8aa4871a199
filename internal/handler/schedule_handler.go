package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/dto"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/service"
	appErrors "github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/errors"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/response"
)

type scheduleSolver interface {
	Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, error)
	Resolve(ctx context.Context, req dto.ResolveRequest) (*dto.SolveResponse, error)
	Get(ctx context.Context, termID string) (*dto.ScheduleResponse, error)
}

// ScheduleHandler exposes solve, re-solve and schedule read endpoints.
type ScheduleHandler struct {
	service scheduleSolver
	metrics *service.MetricsService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc *service.ScheduleService, metrics *service.MetricsService) *ScheduleHandler {
	return &ScheduleHandler{service: svc, metrics: metrics}
}

// Solve runs a full two-phase solve for a term.
func (h *ScheduleHandler) Solve(c *gin.Context) {
	var req dto.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid solve payload"))
		return
	}
	result, err := h.service.Solve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.observe("full", result)
	response.JSON(c, http.StatusOK, result, nil)
}

// Resolve runs the incremental repair-only pass seeded from the committed
// schedule.
func (h *ScheduleHandler) Resolve(c *gin.Context) {
	var req dto.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid re-solve payload"))
		return
	}
	result, err := h.service.Resolve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.observe("incremental", result)
	response.JSON(c, http.StatusOK, result, nil)
}

// Get returns the committed schedule for a term.
func (h *ScheduleHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func (h *ScheduleHandler) observe(mode string, result *dto.SolveResponse) {
	if h.metrics == nil || result == nil {
		return
	}
	h.metrics.ObserveSolve(mode, result.TermID, len(result.Assignments), len(result.Unassigned),
		result.Stats.SoftPenalty, time.Duration(result.Stats.ElapsedMillis)*time.Millisecond)
}
