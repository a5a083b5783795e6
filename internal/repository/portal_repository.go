package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/studyport/schedule-api/internal/models"
	"github.com/studyport/schedule-api/pkg/config"
	appErrors "github.com/studyport/schedule-api/pkg/errors"
)

// PortalRepository talks to the learning-portal API that owns session rows
// and batch metadata. It performs plain GETs with a bounded timeout and no
// retries: the refresh loop's next tick is the retry.
type PortalRepository struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewPortalRepository constructs a portal repository.
func NewPortalRepository(cfg config.PortalConfig, logger *zap.Logger) *PortalRepository {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortalRepository{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type sessionListPayload struct {
	Sessions []models.Session `json:"sessions"`
}

type batchMetaPayload struct {
	Batch models.BatchScheduleMeta `json:"batch"`
}

// FetchSessions returns the raw session rows for a batch. The portal may
// include rows for other batches when the batch was merged upstream; the
// sequencer filters those out.
func (r *PortalRepository) FetchSessions(ctx context.Context, batchID string) ([]models.Session, error) {
	var payload sessionListPayload
	endpoint := fmt.Sprintf("%s/batches/%s/sessions", r.baseURL, url.PathEscape(batchID))
	if err := r.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Sessions, nil
}

// FetchBatchMeta returns the batch's scheduling contract. The expected
// session count may be absent.
func (r *PortalRepository) FetchBatchMeta(ctx context.Context, batchID string) (*models.BatchScheduleMeta, error) {
	var payload batchMetaPayload
	endpoint := fmt.Sprintf("%s/batches/%s", r.baseURL, url.PathEscape(batchID))
	if err := r.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	meta := payload.Batch
	if meta.BatchID == "" {
		meta.BatchID = batchID
	}
	return &meta, nil
}

func (r *PortalRepository) getJSON(ctx context.Context, endpoint string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "build portal request")
	}
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "portal request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return appErrors.Clone(appErrors.ErrNotFound, "batch not found")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		r.logger.Warn("portal returned non-200",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Duration("latency", time.Since(start)),
			zap.ByteString("body", body),
		)
		return appErrors.Clone(appErrors.ErrUpstream, fmt.Sprintf("portal returned status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "decode portal response")
	}
	return nil
}
