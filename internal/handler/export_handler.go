package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/studyport/schedule-api/internal/service"
	appErrors "github.com/studyport/schedule-api/pkg/errors"
	"github.com/studyport/schedule-api/pkg/response"
)

type scheduleExporter interface {
	Render(studentID, format string) (*service.ExportResult, error)
}

// ExportHandler serves schedule downloads.
type ExportHandler struct {
	service scheduleExporter
}

// NewExportHandler constructs handler.
func NewExportHandler(svc scheduleExporter) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Download godoc
// @Summary Download the current schedule
// @Tags Schedule
// @Produce text/csv,application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Router /schedule/export [get]
func (h *ExportHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.service.Render(claims.UserID, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(200, result.ContentType, result.Data)
}
