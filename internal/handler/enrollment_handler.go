package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/dto"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/service"
	appErrors "github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/errors"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/response"
)

type enrollmentAllocator interface {
	Submit(ctx context.Context, termID string, input dto.EnrollmentRequestInput) (*dto.EnrollmentRequestView, error)
	Allocate(ctx context.Context, req dto.AllocateRequest) (*dto.AllocationResponse, error)
	Drop(ctx context.Context, termID string, req dto.DropRequest) (*dto.AllocationResponse, error)
	SetCapacity(ctx context.Context, termID string, req dto.CapacityRequest) (*dto.AllocationResponse, error)
	Waitlist(ctx context.Context, termID, sectionID string) ([]dto.WaitlistView, error)
	Request(ctx context.Context, termID, requestID string) (*dto.EnrollmentRequestView, error)
}

// EnrollmentHandler exposes the enrollment request, allocation and waitlist
// endpoints. All routes are scoped under a term.
type EnrollmentHandler struct {
	service enrollmentAllocator
	metrics *service.MetricsService
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(svc *service.EnrollmentService, metrics *service.MetricsService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc, metrics: metrics}
}

// Submit buffers one enrollment request.
func (h *EnrollmentHandler) Submit(c *gin.Context) {
	var input dto.EnrollmentRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}
	view, err := h.service.Submit(c.Request.Context(), c.Param("termId"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Allocate runs an allocation pass for a section, or for all sections.
func (h *EnrollmentHandler) Allocate(c *gin.Context) {
	req := dto.AllocateRequest{
		TermID:    c.Param("termId"),
		SectionID: c.Query("sectionId"),
	}
	result, err := h.service.Allocate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.observe(result)
	response.JSON(c, http.StatusOK, result, nil)
}

// Drop withdraws a request and returns any promotion it triggered.
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	req := dto.DropRequest{
		RequestID: c.Param("requestId"),
		Reason:    c.Query("reason"),
	}
	result, err := h.service.Drop(c.Request.Context(), c.Param("termId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.observe(result)
	response.JSON(c, http.StatusOK, result, nil)
}

// SetCapacity adjusts a section's seats.
func (h *EnrollmentHandler) SetCapacity(c *gin.Context) {
	var req dto.CapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid capacity payload"))
		return
	}
	req.SectionID = c.Param("sectionId")
	result, err := h.service.SetCapacity(c.Request.Context(), c.Param("termId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.observe(result)
	response.JSON(c, http.StatusOK, result, nil)
}

// Waitlist returns a section's waitlist in promotion order.
func (h *EnrollmentHandler) Waitlist(c *gin.Context) {
	entries, err := h.service.Waitlist(c.Request.Context(), c.Param("termId"), c.Param("sectionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.SetWaitlistDepth(c.Param("sectionId"), len(entries))
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Request returns one request's current state.
func (h *EnrollmentHandler) Request(c *gin.Context) {
	view, err := h.service.Request(c.Request.Context(), c.Param("termId"), c.Param("requestId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

func (h *EnrollmentHandler) observe(result *dto.AllocationResponse) {
	if h.metrics == nil || result == nil {
		return
	}
	decisions := make([]models.Decision, 0, len(result.Decisions))
	for _, d := range result.Decisions {
		decisions = append(decisions, models.Decision{
			Status:       models.RequestStatus(d.Status),
			PromotedFrom: d.PromotedFrom,
		})
	}
	h.metrics.ObserveDecisions(decisions)
}
