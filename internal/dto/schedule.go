package dto

import (
	"time"

	"github.com/studyport/schedule-api/internal/models"
)

// ScheduleViewResponse is the reconciled schedule as served to the
// rendering client.
type ScheduleViewResponse struct {
	BatchID       string                 `json:"batch_id"`
	Phase         models.RefreshPhase    `json:"phase"`
	IsColdLoading bool                   `json:"is_cold_loading"`
	Items         []models.ScheduleEntry `json:"items"`
	PageSlice     []models.ScheduleEntry `json:"page_slice"`
	Page          int                    `json:"page"`
	TotalPages    int                    `json:"total_pages"`
	LastError     *string                `json:"last_error,omitempty"`
	ComputedAt    *time.Time             `json:"computed_at,omitempty"`
}

// SetPageRequest selects a schedule page.
type SetPageRequest struct {
	Page int `json:"page" validate:"required,min=1"`
}

// WatchRequest selects the batch a student is viewing.
type WatchRequest struct {
	BatchID string `json:"batch_id" validate:"required"`
}
