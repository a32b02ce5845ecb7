package regime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"SigCouncil/internal/domain/models"
	domsvc "SigCouncil/internal/domain/service"
	"SigCouncil/pkg/cache"
	"SigCouncil/pkg/config"
	xhttp "SigCouncil/pkg/http"
)

const defaultTimeout = 3 * time.Second

// HTTPClassifier calls the external regime classification service. The core
// treats classification as a read-only collaborator; a failed call degrades to
// UNKNOWN upstream, it never fails a scan.
type HTTPClassifier struct {
	baseURL  string
	client   *xhttp.Client
	retryMax int
}

// NewHTTPClassifier builds a classifier client from config.
func NewHTTPClassifier(cfg *config.Config) *HTTPClassifier {
	timeout := cfg.Regime.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retryMax := cfg.Regime.RetryMax
	if retryMax <= 0 {
		retryMax = 3
	}
	return &HTTPClassifier{
		baseURL:  cfg.Regime.ServiceURL,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		retryMax: retryMax,
	}
}

type classifyRequest struct {
	Asset   string    `json:"asset"`
	Returns []float64 `json:"returns"`
}

type classifyResponse struct {
	State      string  `json:"state"`
	Confidence float64 `json:"confidence"`
}

// Classify posts the return series and maps the service's label onto a known
// regime. Transient failures are retried with exponential backoff.
func (c *HTTPClassifier) Classify(ctx context.Context, asset string, returns []float64) (models.RegimeState, error) {
	if c.baseURL == "" {
		return models.RegimeState{}, fmt.Errorf("regime service url not configured")
	}

	var resp classifyResponse
	op := func() error {
		return c.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodPost,
			URL:    c.baseURL + "/regime/classify",
			Headers: map[string]string{
				"Content-Type": "application/json",
			},
			Body: classifyRequest{Asset: asset, Returns: returns},
		}, &resp)
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.retryMax)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return models.RegimeState{}, fmt.Errorf("classify regime for %s: %w", asset, err)
	}

	return models.RegimeState{
		Asset:      asset,
		Regime:     models.NormalizeRegime(resp.State),
		Confidence: resp.Confidence,
		Timestamp:  time.Now(),
	}, nil
}

var _ domsvc.RegimeClassifier = (*HTTPClassifier)(nil)

// CachedClassifier wraps a classifier with a TTL cache so repeated scans of
// the same asset within the TTL reuse one classification. States are stored
// as JSON strings so any cache tier (memory, Redis, layered) round-trips them.
type CachedClassifier struct {
	inner domsvc.RegimeClassifier
	cache cache.Service
	ttl   time.Duration
}

// NewCachedClassifier wraps inner with per-asset in-memory caching. A
// non-positive TTL disables caching.
func NewCachedClassifier(inner domsvc.RegimeClassifier, ttl time.Duration) *CachedClassifier {
	return NewCachedClassifierWithCache(inner, cache.NewMemoryCache(), ttl)
}

// NewCachedClassifierWithCache wraps inner with caching on the given tier.
func NewCachedClassifierWithCache(inner domsvc.RegimeClassifier, svc cache.Service, ttl time.Duration) *CachedClassifier {
	return &CachedClassifier{
		inner: inner,
		cache: svc,
		ttl:   ttl,
	}
}

func (c *CachedClassifier) Classify(ctx context.Context, asset string, returns []float64) (models.RegimeState, error) {
	if c.ttl <= 0 {
		return c.inner.Classify(ctx, asset, returns)
	}

	key := "regime:" + asset
	var raw string
	if err := c.cache.Get(ctx, key, &raw); err == nil {
		var st models.RegimeState
		if json.Unmarshal([]byte(raw), &st) == nil {
			return st, nil
		}
	}

	st, err := c.inner.Classify(ctx, asset, returns)
	if err != nil {
		return models.RegimeState{}, err
	}
	if b, merr := json.Marshal(st); merr == nil {
		_ = c.cache.Set(ctx, key, string(b), c.ttl)
	}
	return st, nil
}

var _ domsvc.RegimeClassifier = (*CachedClassifier)(nil)
