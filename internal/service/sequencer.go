package service

import (
	"sort"
	"time"

	"github.com/studyport/schedule-api/internal/models"
)

var sessionDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseSessionDate interprets a raw portal date string as a calendar day in
// the given location. The bool result is false for absent or malformed
// values.
func parseSessionDate(raw string, loc *time.Location) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range sessionDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			y, m, d := t.In(loc).Date()
			return time.Date(y, m, d, 0, 0, 0, 0, loc), true
		}
	}
	return time.Time{}, false
}

// SequenceSessions filters raw rows down to one batch and produces the
// canonical order: ascending session number when both sides have one,
// ascending date when both sides parse, input order otherwise. The sort is
// stable so rows with no comparable key never move relative to the rest,
// and sequencing an already-sequenced list is a no-op.
func SequenceSessions(raw []models.Session, batchID string, loc *time.Location) []models.Session {
	filtered := make([]models.Session, 0, len(raw))
	for _, s := range raw {
		if s.BatchID == batchID {
			filtered = append(filtered, s)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if a.SessionNumber != nil && b.SessionNumber != nil {
			return *a.SessionNumber < *b.SessionNumber
		}
		dayA, okA := parseSessionDate(a.Date, loc)
		dayB, okB := parseSessionDate(b.Date, loc)
		if okA && okB {
			return dayA.Before(dayB)
		}
		return false
	})

	return filtered
}

// CapSessions truncates the sequence to the batch's declared session count.
// The declared count is ground truth for how many sessions exist; the row
// source is ground truth for what each session contains. A zero expected
// total means the declaration is absent and the sequence passes unchanged.
func CapSessions(seq []models.Session, expectedTotal int) []models.Session {
	if expectedTotal <= 0 || len(seq) <= expectedTotal {
		return seq
	}
	return seq[:expectedTotal]
}
