package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyport/schedule-api/internal/dto"
	appErrors "github.com/studyport/schedule-api/pkg/errors"
	"github.com/studyport/schedule-api/pkg/response"
)

type scheduleViewer interface {
	View(ctx context.Context, studentID, batchID string) (*dto.ScheduleViewResponse, error)
	SetPage(studentID string, req dto.SetPageRequest) (*dto.ScheduleViewResponse, error)
	RefreshNow(ctx context.Context, studentID string) (*dto.ScheduleViewResponse, error)
}

// ScheduleHandler exposes the reconciled schedule view and its controls.
type ScheduleHandler struct {
	service scheduleViewer
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleViewer) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// View godoc
// @Summary Reconciled schedule for a batch
// @Tags Schedule
// @Produce json
// @Param batchId query string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /schedule [get]
func (h *ScheduleHandler) View(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	view, err := h.service.View(c.Request.Context(), claims.UserID, c.Query("batchId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// SetPage godoc
// @Summary Move the schedule page cursor
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.SetPageRequest true "Page selection"
// @Success 200 {object} response.Envelope
// @Router /schedule/page [put]
func (h *ScheduleHandler) SetPage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.SetPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	view, err := h.service.SetPage(claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Refresh godoc
// @Summary Force an out-of-cycle schedule refresh
// @Tags Schedule
// @Produce json
// @Success 202 {object} response.Envelope
// @Router /schedule/refresh [post]
func (h *ScheduleHandler) Refresh(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	view, err := h.service.RefreshNow(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, view, nil)
}
