package service

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studyport/schedule-api/internal/dto"
	"github.com/studyport/schedule-api/internal/models"
	"github.com/studyport/schedule-api/pkg/config"
	appErrors "github.com/studyport/schedule-api/pkg/errors"
)

// ScheduleService hosts one BatchWatcher per authenticated student and
// exposes the engine's operations to the HTTP layer. Idle watchers are
// evicted by a janitor sweep so abandoned views stop polling the portal.
type ScheduleService struct {
	source    ScheduleSource
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.ScheduleConfig
	loc       *time.Location

	mu       sync.Mutex
	watchers map[string]*BatchWatcher
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  bool
}

// NewScheduleService constructs the service. An unknown timezone name
// falls back to UTC rather than failing startup.
func NewScheduleService(source ScheduleSource, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg config.ScheduleConfig) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil || loc == nil {
		if cfg.Timezone != "" {
			logger.Warn("unknown schedule timezone, using UTC", zap.String("timezone", cfg.Timezone))
		}
		loc = time.UTC
	}
	return &ScheduleService{
		source:    source,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		loc:       loc,
		watchers:  make(map[string]*BatchWatcher),
	}
}

// Start launches the idle-eviction janitor. Safe to call once.
func (s *ScheduleService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	s.wg.Add(1)
	go s.janitor()
}

// Stop cancels every watcher and the janitor, waiting for them to exit.
func (s *ScheduleService) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	for key, w := range s.watchers {
		w.Stop()
		delete(s.watchers, key)
	}
	s.started = false
	s.mu.Unlock()
	s.wg.Wait()
	s.metrics.SetLiveWatchers(0)
}

// View returns the reconciled schedule for the student's selected batch,
// creating a watcher on first sight and switching targets when the batch
// differs from the one currently watched.
func (s *ScheduleService) View(ctx context.Context, studentID, batchID string) (*dto.ScheduleViewResponse, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing student identity")
	}
	if batchID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batchId is required")
	}

	w, runCtx, err := s.watcherFor(studentID)
	if err != nil {
		return nil, err
	}
	w.SetBatch(runCtx, batchID)
	return s.buildView(w.Snapshot()), nil
}

// SetPage moves the student's page cursor and returns the updated view.
func (s *ScheduleService) SetPage(studentID string, req dto.SetPageRequest) (*dto.ScheduleViewResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid page payload")
	}
	w, ok := s.lookup(studentID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no schedule is being watched")
	}
	w.SetPage(req.Page)
	return s.buildView(w.Snapshot()), nil
}

// RefreshNow forces an out-of-cycle tick for the student's watcher.
func (s *ScheduleService) RefreshNow(ctx context.Context, studentID string) (*dto.ScheduleViewResponse, error) {
	w, ok := s.lookup(studentID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no schedule is being watched")
	}
	w.RefreshNow(ctx)
	return s.buildView(w.Snapshot()), nil
}

// CurrentSchedule exposes the last reconciled schedule for export.
func (s *ScheduleService) CurrentSchedule(studentID string) (*models.ReconciledSchedule, error) {
	w, ok := s.lookup(studentID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no schedule is being watched")
	}
	snap := w.Snapshot()
	if snap.View == nil {
		return nil, appErrors.Clone(appErrors.ErrColdLoad, "schedule is still loading")
	}
	return snap.View, nil
}

func (s *ScheduleService) watcherFor(studentID string) (*BatchWatcher, context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, nil, appErrors.Clone(appErrors.ErrInternal, "schedule service not started")
	}
	w, ok := s.watchers[studentID]
	if !ok {
		w = NewBatchWatcher(s.source, s.metrics, s.logger, WatcherConfig{
			SessionPollInterval: s.cfg.SessionPollInterval,
			MetaPollInterval:    s.cfg.MetaPollInterval,
			PageSize:            s.cfg.PageSize,
			Location:            s.loc,
		})
		s.watchers[studentID] = w
		s.metrics.SetLiveWatchers(len(s.watchers))
	}
	return w, s.ctx, nil
}

func (s *ScheduleService) lookup(studentID string) (*BatchWatcher, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.watchers[studentID]
	return w, ok
}

func (s *ScheduleService) buildView(snap WatcherSnapshot) *dto.ScheduleViewResponse {
	resp := &dto.ScheduleViewResponse{
		BatchID:       snap.BatchID,
		Phase:         snap.Phase,
		IsColdLoading: snap.Phase == models.RefreshPhaseLoading,
		Items:         []models.ScheduleEntry{},
		PageSlice:     []models.ScheduleEntry{},
		Page:          1,
	}
	if snap.LastError != nil {
		msg := appErrors.FromError(snap.LastError).Message
		resp.LastError = &msg
	}
	if snap.View != nil {
		resp.Items = snap.View.Items
		resp.PageSlice = snap.Page.Slice
		resp.Page = snap.Page.Page
		resp.TotalPages = snap.Page.TotalPages
		computed := snap.View.ComputedAt
		resp.ComputedAt = &computed
	}
	return resp
}

func (s *ScheduleService) janitor() {
	defer s.wg.Done()

	interval := s.cfg.WatcherIdleTTL
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.evictIdle(interval)
		}
	}
}

func (s *ScheduleService) evictIdle(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, w := range s.watchers {
		if w.LastAccess().Before(cutoff) {
			w.Stop()
			delete(s.watchers, key)
			s.logger.Info("evicted idle schedule watcher", zap.String("student_id", key))
		}
	}
	s.metrics.SetLiveWatchers(len(s.watchers))
}
