package service

import (
	"time"

	"github.com/studyport/schedule-api/internal/models"
)

var sessionTimeLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
}

func parseSessionTime(raw string) (hour, minute, second int, ok bool) {
	if raw == "" {
		return 0, 0, 0, false
	}
	for _, layout := range sessionTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Hour(), t.Minute(), t.Second(), true
		}
	}
	return 0, 0, 0, false
}

// sessionStartAt combines a session's date and time-of-day into one instant.
// It fails when either part is absent or malformed.
func sessionStartAt(s models.Session, loc *time.Location) (time.Time, bool) {
	day, ok := parseSessionDate(s.Date, loc)
	if !ok {
		return time.Time{}, false
	}
	h, m, sec, ok := parseSessionTime(s.Time)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, sec, 0, day.Location()), true
}

// classifySession computes the per-record temporal tags against the single
// reference instant of the reconciliation pass. A session with no parseable
// date has no determinable temporal position and defaults to future, never
// today. First-upcoming is a sequence property and is assigned by
// ClassifySessions, not here.
func classifySession(s models.Session, now time.Time, loc *time.Location) models.Classification {
	if loc == nil {
		loc = time.UTC
	}
	cls := models.Classification{IsCompleted: s.IsCompleted()}

	day, ok := parseSessionDate(s.Date, loc)
	if !ok {
		cls.IsFuture = true
		return cls
	}

	ny, nm, nd := now.In(loc).Date()
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, loc)
	switch {
	case day.Equal(today):
		cls.IsToday = true
	case day.After(today):
		cls.IsFuture = true
	}
	return cls
}

// canJoinSession decides whether the join action may be exposed. Completed
// and cancelled sessions are never joinable; neither are sessions without a
// join link or a date. Today's sessions are joinable at any hour; any other
// non-future session must have started at or before now, and a time that
// cannot be parsed denies access rather than guessing.
func canJoinSession(s models.Session, cls models.Classification, now time.Time, loc *time.Location) bool {
	if cls.IsFuture || cls.IsCompleted || s.IsCancelled() {
		return false
	}
	if s.JoinURL == "" || s.Date == "" {
		return false
	}
	if cls.IsToday {
		return true
	}
	startAt, ok := sessionStartAt(s, loc)
	if !ok {
		return false
	}
	return !startAt.After(now)
}

// ClassifySessions annotates a capped sequence in order: per-record tags
// first, then the single first-upcoming marker (the earliest future,
// non-today session in sequence order), then the join gate. The reference
// instant is captured once by the caller so every session in the pass is
// judged against the same moment.
func ClassifySessions(seq []models.Session, now time.Time, loc *time.Location) []models.ScheduleEntry {
	entries := make([]models.ScheduleEntry, 0, len(seq))
	for _, s := range seq {
		entries = append(entries, models.ScheduleEntry{
			Session:        s,
			Classification: classifySession(s, now, loc),
		})
	}

	for i := range entries {
		if entries[i].Classification.IsFuture && !entries[i].Classification.IsToday {
			entries[i].Classification.IsFirstUpcoming = true
			break
		}
	}

	for i := range entries {
		entries[i].Classification.CanJoin = canJoinSession(entries[i].Session, entries[i].Classification, now, loc)
	}

	return entries
}
