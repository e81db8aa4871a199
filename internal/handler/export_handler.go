package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/service"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/response"
)

type exporter interface {
	Schedule(ctx context.Context, termID, format string) (*service.ExportFile, error)
	Roster(ctx context.Context, termID, format string) (*service.ExportFile, error)
}

// ExportHandler serves schedule and roster downloads.
type ExportHandler struct {
	service exporter
	enabled bool
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc *service.ExportService, enabled bool) *ExportHandler {
	return &ExportHandler{service: svc, enabled: enabled}
}

// Schedule streams the committed schedule as CSV or PDF.
func (h *ExportHandler) Schedule(c *gin.Context) {
	if !h.enabled {
		response.NoContent(c)
		return
	}
	file, err := h.service.Schedule(c.Request.Context(), c.Param("termId"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, file)
}

// Roster streams the approved roster and waitlist as CSV or PDF.
func (h *ExportHandler) Roster(c *gin.Context) {
	if !h.enabled {
		response.NoContent(c)
		return
	}
	file, err := h.service.Roster(c.Request.Context(), c.Param("termId"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, file)
}

func serveFile(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Payload)
}
