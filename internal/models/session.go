package models

// SessionStatus is the lifecycle state reported by the portal for a session.
type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "SCHEDULED"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusCancelled SessionStatus = "CANCELLED"
)

// Session is one scheduled class occurrence within a batch, exactly as the
// portal reports it. Date and Time stay raw strings: the portal offers no
// quality guarantee, so parsing happens in the classifier where malformed
// values have defined fallbacks.
type Session struct {
	ID                 string        `json:"id"`
	BatchID            string        `json:"batch_id"`
	SessionNumber      *int          `json:"session_number,omitempty"`
	Date               string        `json:"date,omitempty"`
	Time               string        `json:"time,omitempty"`
	JoinURL            string        `json:"join_url,omitempty"`
	Note               string        `json:"note,omitempty"`
	Status             SessionStatus `json:"status,omitempty"`
	CancellationReason string        `json:"cancellation_reason,omitempty"`
}

// IsCompleted reports whether the portal marked the session completed.
func (s Session) IsCompleted() bool {
	return s.Status == SessionStatusCompleted
}

// IsCancelled reports whether the portal marked the session cancelled.
func (s Session) IsCancelled() bool {
	return s.Status == SessionStatusCancelled
}

// BatchScheduleMeta is the batch's authoritative scheduling contract. When
// ExpectedTotalSessions is present it is the single source of truth for how
// many sessions the batch will ever have, independent of how many rows the
// session source currently returns.
type BatchScheduleMeta struct {
	BatchID               string `json:"batch_id"`
	ExpectedTotalSessions *int   `json:"expected_total_sessions,omitempty"`
}

// ExpectedTotal returns the declared session count, or 0 when the
// declaration is absent or malformed (non-positive values fail open to
// "use the full session list").
func (m *BatchScheduleMeta) ExpectedTotal() int {
	if m == nil || m.ExpectedTotalSessions == nil || *m.ExpectedTotalSessions <= 0 {
		return 0
	}
	return *m.ExpectedTotalSessions
}
