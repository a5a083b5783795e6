package service

import (
	"time"

	"github.com/studyport/schedule-api/internal/models"
)

// Reconcile runs the full pure pipeline against one snapshot of both
// upstream sources and a single captured reference instant: sequence,
// cap, classify, reorder. The result is deterministic for a given
// (raw sessions, meta, now) triple and carries the effective total that
// downstream pagination must use.
func Reconcile(raw []models.Session, meta *models.BatchScheduleMeta, batchID string, now time.Time, loc *time.Location) models.ReconciledSchedule {
	seq := SequenceSessions(raw, batchID, loc)
	capped := CapSessions(seq, meta.ExpectedTotal())
	entries := ClassifySessions(capped, now, loc)
	ordered := ReorderCompletedLast(entries)

	effective := meta.ExpectedTotal()
	if effective <= 0 {
		effective = len(capped)
	}

	return models.ReconciledSchedule{
		BatchID:        batchID,
		Items:          ordered,
		EffectiveTotal: effective,
		ComputedAt:     now,
	}
}
