package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyport/schedule-api/internal/models"
)

var classifyNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

func TestClassifySessionTemporalTags(t *testing.T) {
	tests := []struct {
		name    string
		session models.Session
		today   bool
		future  bool
	}{
		{name: "today", session: models.Session{Date: "2026-03-10"}, today: true},
		{name: "tomorrow", session: models.Session{Date: "2026-03-11"}, future: true},
		{name: "yesterday", session: models.Session{Date: "2026-03-09"}},
		{name: "rfc3339 date", session: models.Session{Date: "2026-03-10T00:00:00Z"}, today: true},
		{name: "missing date defaults to future", session: models.Session{}, future: true},
		{name: "malformed date defaults to future", session: models.Session{Date: "next tuesday"}, future: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := classifySession(tt.session, classifyNow, time.UTC)
			assert.Equal(t, tt.today, cls.IsToday)
			assert.Equal(t, tt.future, cls.IsFuture)
		})
	}
}

func TestClassifySessionCompletedStatus(t *testing.T) {
	cls := classifySession(models.Session{Date: "2026-03-09", Status: models.SessionStatusCompleted}, classifyNow, time.UTC)
	assert.True(t, cls.IsCompleted)
	assert.False(t, cls.IsToday)
}

func TestClassifySessionsMarksSingleFirstUpcoming(t *testing.T) {
	seq := []models.Session{
		{ID: "past", Date: "2026-03-09", Status: models.SessionStatusCompleted},
		{ID: "today", Date: "2026-03-10"},
		{ID: "next", Date: "2026-03-11"},
		{ID: "later", Date: "2026-03-12"},
	}

	entries := ClassifySessions(seq, classifyNow, time.UTC)
	require.Len(t, entries, 4)

	marked := 0
	for _, e := range entries {
		if e.Classification.IsFirstUpcoming {
			marked++
			assert.Equal(t, "next", e.Session.ID)
		}
	}
	assert.Equal(t, 1, marked)
	assert.True(t, entries[1].Classification.IsToday)
	assert.False(t, entries[1].Classification.IsFirstUpcoming)
}

func TestClassifySessionsNoFutureSessions(t *testing.T) {
	seq := []models.Session{
		{ID: "done", Date: "2026-03-08", Status: models.SessionStatusCompleted},
		{ID: "today", Date: "2026-03-10"},
	}

	entries := ClassifySessions(seq, classifyNow, time.UTC)
	for _, e := range entries {
		assert.False(t, e.Classification.IsFirstUpcoming)
	}
}

func TestCanJoinSession(t *testing.T) {
	tests := []struct {
		name    string
		session models.Session
		want    bool
	}{
		{
			name:    "today with link joins without a time",
			session: models.Session{Date: "2026-03-10", JoinURL: "https://meet/x"},
			want:    true,
		},
		{
			name:    "today without link",
			session: models.Session{Date: "2026-03-10"},
			want:    false,
		},
		{
			name:    "started earlier day",
			session: models.Session{Date: "2026-03-09", Time: "08:00", JoinURL: "https://meet/x"},
			want:    true,
		},
		{
			name:    "earlier day with unparsable time stays closed",
			session: models.Session{Date: "2026-03-09", Time: "morning", JoinURL: "https://meet/x"},
			want:    false,
		},
		{
			name:    "completed never joins",
			session: models.Session{Date: "2026-03-10", JoinURL: "https://meet/x", Status: models.SessionStatusCompleted},
			want:    false,
		},
		{
			name:    "cancelled never joins",
			session: models.Session{Date: "2026-03-10", JoinURL: "https://meet/x", Status: models.SessionStatusCancelled},
			want:    false,
		},
		{
			name:    "future never joins",
			session: models.Session{Date: "2026-03-12", JoinURL: "https://meet/x"},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := classifySession(tt.session, classifyNow, time.UTC)
			assert.Equal(t, tt.want, canJoinSession(tt.session, cls, classifyNow, time.UTC))
		})
	}
}

func TestParseSessionTimeLayouts(t *testing.T) {
	h, m, _, ok := parseSessionTime("14:30")
	require.True(t, ok)
	assert.Equal(t, 14, h)
	assert.Equal(t, 30, m)

	h, _, _, ok = parseSessionTime("2:15 PM")
	require.True(t, ok)
	assert.Equal(t, 14, h)

	_, _, _, ok = parseSessionTime("")
	assert.False(t, ok)
}
