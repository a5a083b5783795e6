package service

import "github.com/studyport/schedule-api/internal/models"

// ReorderCompletedLast stable-partitions the classified sequence so
// completed sessions sink to the end. Order within each partition is the
// original sequence order; this must run after first-upcoming assignment so
// moving completed sessions cannot change which session is first upcoming.
func ReorderCompletedLast(entries []models.ScheduleEntry) []models.ScheduleEntry {
	active := make([]models.ScheduleEntry, 0, len(entries))
	var completed []models.ScheduleEntry
	for _, e := range entries {
		if e.Classification.IsCompleted {
			completed = append(completed, e)
		} else {
			active = append(active, e)
		}
	}
	return append(active, completed...)
}

// Paginate slices the reordered sequence into one page. Page arithmetic is
// driven by effectiveTotal rather than the slice's own length: when the row
// source under-reports against the batch's declared total, later pages
// legitimately come back empty instead of vanishing. A page beyond the
// computed range resets to 1.
func Paginate(entries []models.ScheduleEntry, effectiveTotal, pageSize, page int) models.SchedulePage {
	if pageSize < 1 {
		pageSize = 1
	}
	if effectiveTotal < 0 {
		effectiveTotal = 0
	}

	totalPages := (effectiveTotal + pageSize - 1) / pageSize
	if page < 1 || page > totalPages {
		page = 1
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > effectiveTotal {
		end = effectiveTotal
	}

	sliceStart := start
	if sliceStart > len(entries) {
		sliceStart = len(entries)
	}
	sliceEnd := end
	if sliceEnd > len(entries) {
		sliceEnd = len(entries)
	}

	return models.SchedulePage{
		Page:       page,
		TotalPages: totalPages,
		StartIndex: start,
		EndIndex:   end,
		Slice:      entries[sliceStart:sliceEnd],
	}
}
