package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studyport/schedule-api/internal/models"
)

type stubSource struct {
	mu           sync.Mutex
	sessions     map[string][]models.Session
	meta         map[string]*models.BatchScheduleMeta
	sessionsErr  error
	metaErr      error
	sessionCalls int
	metaCalls    int
}

func newStubSource() *stubSource {
	return &stubSource{
		sessions: make(map[string][]models.Session),
		meta:     make(map[string]*models.BatchScheduleMeta),
	}
}

func (s *stubSource) FetchSessions(_ context.Context, batchID string) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionCalls++
	if s.sessionsErr != nil {
		return nil, s.sessionsErr
	}
	return append([]models.Session(nil), s.sessions[batchID]...), nil
}

func (s *stubSource) FetchBatchMeta(_ context.Context, batchID string) (*models.BatchScheduleMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metaCalls++
	if s.metaErr != nil {
		return nil, s.metaErr
	}
	if m, ok := s.meta[batchID]; ok {
		copied := *m
		return &copied, nil
	}
	return &models.BatchScheduleMeta{BatchID: batchID}, nil
}

func (s *stubSource) setSessions(batchID string, sessions []models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[batchID] = sessions
}

func (s *stubSource) setSessionsErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionsErr = err
}

func (s *stubSource) sessionCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionCalls
}

func stubBatchSessions(batchID string, n int) []models.Session {
	sessions := make([]models.Session, 0, n)
	for i := 1; i <= n; i++ {
		sessions = append(sessions, models.Session{
			ID:            batchID + "-s" + string(rune('0'+i)),
			BatchID:       batchID,
			SessionNumber: num(i),
			Date:          "2030-01-0" + string(rune('0'+i)),
		})
	}
	return sessions
}

func newTestWatcher(src ScheduleSource, pageSize int) *BatchWatcher {
	return NewBatchWatcher(src, NewMetricsService(), zap.NewNop(), WatcherConfig{
		SessionPollInterval: time.Hour,
		MetaPollInterval:    time.Hour,
		PageSize:            pageSize,
		Location:            time.UTC,
	})
}

func waitForPhase(t *testing.T, w *BatchWatcher, phase models.RefreshPhase) {
	t.Helper()
	require.Eventually(t, func() bool {
		return w.Snapshot().Phase == phase
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBatchWatcherColdLoad(t *testing.T) {
	src := newStubSource()
	src.setSessions("batch-a", stubBatchSessions("batch-a", 2))

	w := newTestWatcher(src, 5)
	defer w.Stop()
	w.SetBatch(context.Background(), "batch-a")

	waitForPhase(t, w, models.RefreshPhaseReady)
	snap := w.Snapshot()
	require.NotNil(t, snap.View)
	assert.Equal(t, "batch-a", snap.BatchID)
	assert.Len(t, snap.View.Items, 2)
	assert.Equal(t, 1, snap.Page.Page)
	assert.NoError(t, snap.LastError)
}

func TestBatchWatcherColdFailureSurfacesError(t *testing.T) {
	src := newStubSource()
	src.setSessionsErr(errors.New("portal down"))

	w := newTestWatcher(src, 5)
	defer w.Stop()
	w.SetBatch(context.Background(), "batch-a")

	waitForPhase(t, w, models.RefreshPhaseError)
	snap := w.Snapshot()
	assert.Nil(t, snap.View)
	assert.Error(t, snap.LastError)
}

func TestBatchWatcherBackgroundFailureKeepsView(t *testing.T) {
	src := newStubSource()
	src.setSessions("batch-a", stubBatchSessions("batch-a", 2))

	w := newTestWatcher(src, 5)
	defer w.Stop()
	w.SetBatch(context.Background(), "batch-a")
	waitForPhase(t, w, models.RefreshPhaseReady)

	calls := src.sessionCallCount()
	src.setSessionsErr(errors.New("portal down"))
	w.RefreshNow(context.Background())

	require.Eventually(t, func() bool {
		snap := w.Snapshot()
		return src.sessionCallCount() > calls && snap.Phase == models.RefreshPhaseReady
	}, 2*time.Second, 10*time.Millisecond)

	snap := w.Snapshot()
	require.NotNil(t, snap.View)
	assert.Len(t, snap.View.Items, 2)
	assert.NoError(t, snap.LastError)
}

func TestBatchWatcherEmptyRefreshKeepsView(t *testing.T) {
	src := newStubSource()
	src.setSessions("batch-a", stubBatchSessions("batch-a", 2))

	w := newTestWatcher(src, 5)
	defer w.Stop()
	w.SetBatch(context.Background(), "batch-a")
	waitForPhase(t, w, models.RefreshPhaseReady)

	calls := src.sessionCallCount()
	src.setSessions("batch-a", nil)
	w.RefreshNow(context.Background())

	require.Eventually(t, func() bool {
		snap := w.Snapshot()
		return src.sessionCallCount() > calls && snap.Phase == models.RefreshPhaseReady
	}, 2*time.Second, 10*time.Millisecond)

	snap := w.Snapshot()
	require.NotNil(t, snap.View)
	assert.Len(t, snap.View.Items, 2)
}

func TestBatchWatcherStaleEpochIgnored(t *testing.T) {
	src := newStubSource()
	w := newTestWatcher(src, 5)
	defer w.Stop()

	w.tickSessions(context.Background(), 5, "batch-a")

	assert.Equal(t, 0, src.sessionCallCount())
	snap := w.Snapshot()
	assert.Nil(t, snap.View)
	assert.Equal(t, models.RefreshPhaseIdle, snap.Phase)
}

func TestBatchWatcherSwitchBatchResetsState(t *testing.T) {
	src := newStubSource()
	src.setSessions("batch-a", stubBatchSessions("batch-a", 3))
	src.setSessions("batch-b", stubBatchSessions("batch-b", 2))

	w := newTestWatcher(src, 1)
	defer w.Stop()
	w.SetBatch(context.Background(), "batch-a")
	waitForPhase(t, w, models.RefreshPhaseReady)
	w.SetPage(3)
	require.Equal(t, 3, w.Snapshot().Page.Page)

	w.SetBatch(context.Background(), "batch-b")
	require.Eventually(t, func() bool {
		snap := w.Snapshot()
		return snap.BatchID == "batch-b" && snap.View != nil && len(snap.View.Items) == 2
	}, 2*time.Second, 10*time.Millisecond)

	snap := w.Snapshot()
	assert.Equal(t, "batch-b", snap.View.BatchID)
	assert.Equal(t, 1, snap.Page.Page)
}

func TestBatchWatcherSameBatchIsNoOp(t *testing.T) {
	src := newStubSource()
	src.setSessions("batch-a", stubBatchSessions("batch-a", 1))

	w := newTestWatcher(src, 5)
	defer w.Stop()
	w.SetBatch(context.Background(), "batch-a")
	waitForPhase(t, w, models.RefreshPhaseReady)

	calls := src.sessionCallCount()
	w.SetBatch(context.Background(), "batch-a")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, src.sessionCallCount())
}

func TestBatchWatcherSetPageClamp(t *testing.T) {
	src := newStubSource()
	src.setSessions("batch-a", stubBatchSessions("batch-a", 3))

	w := newTestWatcher(src, 1)
	defer w.Stop()
	w.SetBatch(context.Background(), "batch-a")
	waitForPhase(t, w, models.RefreshPhaseReady)

	w.SetPage(2)
	assert.Equal(t, 2, w.Snapshot().Page.Page)

	w.SetPage(9)
	assert.Equal(t, 1, w.Snapshot().Page.Page)
}

func TestBatchWatcherMetaCapsSessions(t *testing.T) {
	src := newStubSource()
	src.setSessions("batch-a", stubBatchSessions("batch-a", 3))
	src.meta["batch-a"] = &models.BatchScheduleMeta{BatchID: "batch-a", ExpectedTotalSessions: num(1)}

	w := newTestWatcher(src, 5)
	defer w.Stop()
	w.SetBatch(context.Background(), "batch-a")

	require.Eventually(t, func() bool {
		snap := w.Snapshot()
		return snap.View != nil && len(snap.View.Items) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, w.Snapshot().View.EffectiveTotal)
}
