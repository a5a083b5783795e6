package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studyport/schedule-api/internal/models"
	appErrors "github.com/studyport/schedule-api/pkg/errors"
)

type fakeCacheRepo struct {
	mu    sync.Mutex
	store map[string][]byte
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{store: make(map[string][]byte)}
}

func (r *fakeCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (r *fakeCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[key] = data
	return nil
}

func (r *fakeCacheRepo) Invalidate(_ context.Context, pattern string) error {
	prefix, suffix, _ := strings.Cut(pattern, "*")
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.store {
		if strings.HasPrefix(key, prefix) && strings.HasSuffix(key, suffix) {
			delete(r.store, key)
		}
	}
	return nil
}

func (s *stubSource) metaCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metaCalls
}

func newCachedSource(upstream ScheduleSource, repo CacheRepository, enabled bool) *CachedScheduleSource {
	cache := NewCacheService(repo, NewMetricsService(), time.Minute, zap.NewNop(), enabled)
	return NewCachedScheduleSource(upstream, cache, NewMetricsService(), time.Minute, zap.NewNop())
}

func TestCachedScheduleSourceSharesSessionFetches(t *testing.T) {
	upstream := newStubSource()
	upstream.setSessions("batch-a", stubBatchSessions("batch-a", 2))
	src := newCachedSource(upstream, newFakeCacheRepo(), true)

	first, err := src.FetchSessions(context.Background(), "batch-a")
	require.NoError(t, err)
	second, err := src.FetchSessions(context.Background(), "batch-a")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, upstream.sessionCallCount())
}

func TestCachedScheduleSourceSharesMetaFetches(t *testing.T) {
	upstream := newStubSource()
	upstream.meta["batch-a"] = &models.BatchScheduleMeta{BatchID: "batch-a", ExpectedTotalSessions: num(8)}
	src := newCachedSource(upstream, newFakeCacheRepo(), true)

	first, err := src.FetchBatchMeta(context.Background(), "batch-a")
	require.NoError(t, err)
	second, err := src.FetchBatchMeta(context.Background(), "batch-a")
	require.NoError(t, err)

	assert.Equal(t, 8, first.ExpectedTotal())
	assert.Equal(t, first.ExpectedTotal(), second.ExpectedTotal())
	assert.Equal(t, 1, upstream.metaCallCount())
}

func TestCachedScheduleSourceInvalidateForcesRefetch(t *testing.T) {
	upstream := newStubSource()
	upstream.setSessions("batch-a", stubBatchSessions("batch-a", 1))
	src := newCachedSource(upstream, newFakeCacheRepo(), true)

	_, err := src.FetchSessions(context.Background(), "batch-a")
	require.NoError(t, err)
	_, err = src.FetchBatchMeta(context.Background(), "batch-a")
	require.NoError(t, err)

	src.Invalidate(context.Background(), "batch-a")

	_, err = src.FetchSessions(context.Background(), "batch-a")
	require.NoError(t, err)
	_, err = src.FetchBatchMeta(context.Background(), "batch-a")
	require.NoError(t, err)

	assert.Equal(t, 2, upstream.sessionCallCount())
	assert.Equal(t, 2, upstream.metaCallCount())
}

func TestCachedScheduleSourceDisabledCacheAlwaysFetches(t *testing.T) {
	upstream := newStubSource()
	upstream.setSessions("batch-a", stubBatchSessions("batch-a", 1))
	src := newCachedSource(upstream, newFakeCacheRepo(), false)

	_, err := src.FetchSessions(context.Background(), "batch-a")
	require.NoError(t, err)
	_, err = src.FetchSessions(context.Background(), "batch-a")
	require.NoError(t, err)

	assert.Equal(t, 2, upstream.sessionCallCount())
}

func TestCachedScheduleSourceUpstreamErrorPassesThrough(t *testing.T) {
	upstream := newStubSource()
	upstream.setSessionsErr(errors.New("portal down"))
	src := newCachedSource(upstream, newFakeCacheRepo(), true)

	_, err := src.FetchSessions(context.Background(), "batch-a")
	require.Error(t, err)

	upstream.setSessionsErr(nil)
	upstream.setSessions("batch-a", stubBatchSessions("batch-a", 1))
	sessions, err := src.FetchSessions(context.Background(), "batch-a")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}
