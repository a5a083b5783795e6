package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studyport/schedule-api/internal/models"
)

// sourceInvalidator is implemented by sources that keep a shared fetch
// window which a forced refresh must bypass.
type sourceInvalidator interface {
	Invalidate(ctx context.Context, batchID string)
}

// WatcherConfig tunes one refresh loop.
type WatcherConfig struct {
	SessionPollInterval time.Duration
	MetaPollInterval    time.Duration
	PageSize            int
	Location            *time.Location
}

// WatcherSnapshot is a point-in-time copy of a watcher's reconciled state,
// safe to hand to handlers while the loop keeps running.
type WatcherSnapshot struct {
	BatchID   string
	Phase     models.RefreshPhase
	View      *models.ReconciledSchedule
	Page      models.SchedulePage
	LastError error
}

// BatchWatcher owns the refresh cycle for one watched batch: two
// independent poll timers, the cold/background state machine, the page
// cursor and the last-known-good reconciled view. All fetches happen off
// the caller's path; readers only ever see a completed reconciliation.
type BatchWatcher struct {
	id      string
	source  ScheduleSource
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
	cfg     WatcherConfig

	refreshCh chan struct{}

	mu           sync.Mutex
	batchID      string
	epoch        uint64
	cancel       context.CancelFunc
	phase        models.RefreshPhase
	lastErr      error
	sessions     []models.Session
	haveSessions bool
	meta         *models.BatchScheduleMeta
	view         *models.ReconciledSchedule
	page         int
	lastAccess   time.Time
}

// NewBatchWatcher constructs a watcher in the idle state; nothing polls
// until SetBatch selects a target.
func NewBatchWatcher(source ScheduleSource, metrics *MetricsService, logger *zap.Logger, cfg WatcherConfig) *BatchWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionPollInterval <= 0 {
		cfg.SessionPollInterval = 45 * time.Second
	}
	if cfg.MetaPollInterval <= 0 {
		cfg.MetaPollInterval = 5 * time.Minute
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 5
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &BatchWatcher{
		id:        uuid.NewString(),
		source:    source,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
		refreshCh: make(chan struct{}, 1),
		phase:     models.RefreshPhaseIdle,
		page:      1,
	}
}

// SetBatch points the watcher at a batch. Switching targets cancels the
// running loop and any in-flight fetch, resets all per-batch state and
// starts a cold cycle; the epoch bump makes late responses for the old
// batch detectably stale so they are discarded instead of merged.
func (w *BatchWatcher) SetBatch(ctx context.Context, batchID string) {
	w.mu.Lock()
	if w.batchID == batchID && w.cancel != nil {
		w.lastAccess = w.now()
		w.mu.Unlock()
		return
	}

	if w.cancel != nil {
		w.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.epoch++
	epoch := w.epoch

	w.batchID = batchID
	w.phase = models.RefreshPhaseLoading
	w.lastErr = nil
	w.sessions = nil
	w.haveSessions = false
	w.meta = nil
	w.view = nil
	w.page = 1
	w.lastAccess = w.now()
	w.mu.Unlock()

	w.logger.Info("watching batch",
		zap.String("watcher_id", w.id),
		zap.String("batch_id", batchID),
	)
	go w.run(runCtx, epoch, batchID)
}

// Stop cancels the loop and any in-flight fetch.
func (w *BatchWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.phase = models.RefreshPhaseIdle
}

// RefreshNow requests an out-of-cycle tick. The shared fetch window, when
// one exists, is dropped first so the tick reaches the portal.
func (w *BatchWatcher) RefreshNow(ctx context.Context) {
	w.mu.Lock()
	batchID := w.batchID
	w.lastAccess = w.now()
	w.mu.Unlock()
	if batchID == "" {
		return
	}

	if inv, ok := w.source.(sourceInvalidator); ok {
		inv.Invalidate(ctx, batchID)
	}

	select {
	case w.refreshCh <- struct{}{}:
	default:
	}
}

// SetPage moves the page cursor. The cursor is clamped against the current
// view's page arithmetic when one exists; out-of-range requests land on
// page 1, matching what the next reconcile would do anyway.
func (w *BatchWatcher) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastAccess = w.now()
	w.page = page
	if w.view != nil {
		w.page = Paginate(w.view.Items, w.view.EffectiveTotal, w.cfg.PageSize, page).Page
	}
}

// Snapshot returns a copy of the current state plus the resolved page slice.
func (w *BatchWatcher) Snapshot() WatcherSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastAccess = w.now()

	snap := WatcherSnapshot{
		BatchID:   w.batchID,
		Phase:     w.phase,
		LastError: w.lastErr,
	}
	if w.view != nil {
		view := *w.view
		view.Items = append([]models.ScheduleEntry(nil), w.view.Items...)
		snap.View = &view
		snap.Page = Paginate(view.Items, view.EffectiveTotal, w.cfg.PageSize, w.page)
	}
	return snap
}

// LastAccess reports when a caller last touched this watcher, for idle
// eviction.
func (w *BatchWatcher) LastAccess() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastAccess
}

func (w *BatchWatcher) run(ctx context.Context, epoch uint64, batchID string) {
	w.tickMeta(ctx, epoch, batchID)
	w.tickSessions(ctx, epoch, batchID)

	sessionTicker := time.NewTicker(w.cfg.SessionPollInterval)
	defer sessionTicker.Stop()
	metaTicker := time.NewTicker(w.cfg.MetaPollInterval)
	defer metaTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sessionTicker.C:
			w.tickSessions(ctx, epoch, batchID)
		case <-metaTicker.C:
			w.tickMeta(ctx, epoch, batchID)
		case <-w.refreshCh:
			w.tickMeta(ctx, epoch, batchID)
			w.tickSessions(ctx, epoch, batchID)
		}
	}
}

func (w *BatchWatcher) tickSessions(ctx context.Context, epoch uint64, batchID string) {
	if !w.beginTick(epoch) {
		return
	}

	sessions, err := w.source.FetchSessions(ctx, batchID)

	w.mu.Lock()
	defer w.mu.Unlock()
	if epoch != w.epoch {
		w.metrics.RecordStaleDiscard()
		return
	}

	if err != nil {
		w.metrics.RecordRefreshTick("sessions", "error")
		w.failTickLocked("sessions", err)
		return
	}
	w.metrics.RecordRefreshTick("sessions", "ok")

	// A background tick that suddenly reports nothing keeps the previous
	// view; only a cold tick may show an empty schedule.
	if len(sessions) == 0 && w.view != nil && len(w.view.Items) > 0 {
		w.logger.Warn("ignoring empty session refresh",
			zap.String("watcher_id", w.id),
			zap.String("batch_id", batchID),
		)
		w.phase = models.RefreshPhaseReady
		return
	}

	w.sessions = sessions
	w.haveSessions = true
	w.recomputeLocked()
}

func (w *BatchWatcher) tickMeta(ctx context.Context, epoch uint64, batchID string) {
	if !w.beginTick(epoch) {
		return
	}

	meta, err := w.source.FetchBatchMeta(ctx, batchID)

	w.mu.Lock()
	defer w.mu.Unlock()
	if epoch != w.epoch {
		w.metrics.RecordStaleDiscard()
		return
	}

	if err != nil {
		w.metrics.RecordRefreshTick("meta", "error")
		w.failTickLocked("meta", err)
		return
	}
	w.metrics.RecordRefreshTick("meta", "ok")

	w.meta = meta
	if w.haveSessions {
		w.recomputeLocked()
	}
}

// beginTick flips the phase for the duration of a fetch: Loading when no
// view exists yet, Refreshing otherwise. It refuses to run for a stale
// epoch.
func (w *BatchWatcher) beginTick(epoch uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if epoch != w.epoch {
		return false
	}
	if w.view == nil {
		if w.phase != models.RefreshPhaseError {
			w.phase = models.RefreshPhaseLoading
		}
	} else {
		w.phase = models.RefreshPhaseRefreshing
	}
	return true
}

// failTickLocked applies the failure policy: a cold failure surfaces the
// error, a background failure is swallowed and the last good view stays up.
func (w *BatchWatcher) failTickLocked(source string, err error) {
	if w.view == nil {
		w.phase = models.RefreshPhaseError
		w.lastErr = err
		w.logger.Error("cold schedule load failed",
			zap.String("watcher_id", w.id),
			zap.String("batch_id", w.batchID),
			zap.String("source", source),
			zap.Error(err),
		)
		return
	}
	w.phase = models.RefreshPhaseReady
	w.logger.Warn("background refresh failed, keeping last good view",
		zap.String("watcher_id", w.id),
		zap.String("batch_id", w.batchID),
		zap.String("source", source),
		zap.Error(err),
	)
}

// recomputeLocked re-runs the pure pipeline against the latest snapshots of
// both sources. The reference instant is read exactly once per pass. A
// cursor left beyond the recomputed page range resets to 1.
func (w *BatchWatcher) recomputeLocked() {
	now := w.now()
	view := Reconcile(w.sessions, w.meta, w.batchID, now, w.cfg.Location)

	w.page = Paginate(view.Items, view.EffectiveTotal, w.cfg.PageSize, w.page).Page
	w.view = &view
	w.phase = models.RefreshPhaseReady
	w.lastErr = nil
}
