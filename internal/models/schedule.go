package models

import "time"

// Classification is the temporal annotation attached to each session in a
// reconciled schedule. All fields are judged against the single timestamp
// captured for the reconciliation pass.
type Classification struct {
	IsToday         bool `json:"is_today"`
	IsFuture        bool `json:"is_future"`
	IsFirstUpcoming bool `json:"is_first_upcoming"`
	IsCompleted     bool `json:"is_completed"`
	CanJoin         bool `json:"can_join"`
}

// ScheduleEntry pairs a session with its classification.
type ScheduleEntry struct {
	Session        Session        `json:"session"`
	Classification Classification `json:"classification"`
}

// ReconciledSchedule is the deterministic output of one reconciliation
// pass: the ordered, capped, classified and reordered entries plus the
// effective total driving pagination arithmetic.
type ReconciledSchedule struct {
	BatchID        string          `json:"batch_id"`
	Items          []ScheduleEntry `json:"items"`
	EffectiveTotal int             `json:"effective_total"`
	ComputedAt     time.Time       `json:"computed_at"`
}

// SchedulePage is one page slice of a reconciled schedule.
type SchedulePage struct {
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	StartIndex int             `json:"start_index"`
	EndIndex   int             `json:"end_index"`
	Slice      []ScheduleEntry `json:"slice"`
}

// Pagination carries page arithmetic in API responses.
type Pagination struct {
	Page           int `json:"page"`
	PageSize       int `json:"page_size"`
	TotalPages     int `json:"total_pages"`
	EffectiveTotal int `json:"effective_total"`
}

// RefreshPhase describes where a watcher is in its refresh lifecycle.
type RefreshPhase string

const (
	RefreshPhaseIdle       RefreshPhase = "IDLE"
	RefreshPhaseLoading    RefreshPhase = "LOADING"
	RefreshPhaseReady      RefreshPhase = "READY"
	RefreshPhaseRefreshing RefreshPhase = "REFRESHING"
	RefreshPhaseError      RefreshPhase = "ERROR"
)
