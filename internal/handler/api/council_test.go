package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SigCouncil/internal/domain/models"
	"SigCouncil/internal/services/optimizer"
	"SigCouncil/internal/services/tracker"
	xlogger "SigCouncil/pkg/logger"

	"github.com/labstack/echo/v4"
)

type memRecStore struct {
	recs []*models.Recommendation
}

func (m *memRecStore) Append(_ context.Context, r *models.Recommendation) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memRecStore) AppendBatch(_ context.Context, rs []*models.Recommendation) error {
	m.recs = append(m.recs, rs...)
	return nil
}

func (m *memRecStore) Latest(_ context.Context, asset string, limit int) ([]*models.Recommendation, error) {
	out := make([]*models.Recommendation, 0, limit)
	for i := len(m.recs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.recs[i].Asset == asset {
			out = append(out, m.recs[i])
		}
	}
	return out, nil
}

func (m *memRecStore) Health(context.Context) error { return nil }
func (m *memRecStore) Close() error                 { return nil }

type memOutcomeStore struct {
	events []*models.OutcomeEvent
}

func (m *memOutcomeStore) Append(_ context.Context, ev *models.OutcomeEvent) error {
	m.events = append(m.events, ev)
	return nil
}

func (m *memOutcomeStore) ByBot(_ context.Context, botID string, limit int) ([]*models.OutcomeEvent, error) {
	out := make([]*models.OutcomeEvent, 0, limit)
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if m.events[i].BotID == botID {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

func (m *memOutcomeStore) Close() error { return nil }

func newHandler(t *testing.T, recs *memRecStore, outs *memOutcomeStore) (*CouncilHandler, *tracker.Tracker) {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	trk := tracker.New()
	opt := optimizer.New(nil, log)
	return NewCouncilHandler(log, recs, outs, trk, opt), trk
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// doGET performs the request and decodes the response envelope. Errors are
// reported through the envelope status, not the transport status.
func doGET(t *testing.T, e *echo.Echo, target string) envelope {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("transport status %d: %s", rec.Code, rec.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v: %s", err, rec.Body.String())
	}
	return env
}

func TestRecommendationsEndpoint(t *testing.T) {
	recs := &memRecStore{}
	for i := 0; i < 3; i++ {
		recs.recs = append(recs.recs, &models.Recommendation{
			Asset:      "BTCUSDT",
			Direction:  models.DirectionLong,
			Confidence: 0.7,
			CreatedAt:  time.Now(),
		})
	}
	h, _ := newHandler(t, recs, &memOutcomeStore{})
	e := echo.New()
	h.RegisterRoutes(e)

	env := doGET(t, e, "/api/recommendations?asset=BTCUSDT&limit=2")
	if env.Status != http.StatusOK {
		t.Fatalf("status %d: %s", env.Status, env.Data)
	}
	var out []*models.Recommendation
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(out))
	}
}

func TestRecommendationsRequiresAsset(t *testing.T) {
	h, _ := newHandler(t, &memRecStore{}, &memOutcomeStore{})
	e := echo.New()
	h.RegisterRoutes(e)

	env := doGET(t, e, "/api/recommendations")
	if env.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", env.Status)
	}
}

func TestPerformanceEndpoint(t *testing.T) {
	h, trk := newHandler(t, &memRecStore{}, &memOutcomeStore{})
	trk.TrackPrediction(&models.BotPrediction{ID: "p1", BotID: "momentum-1", Asset: "BTCUSDT"})
	trk.RecordOutcome(&models.OutcomeEvent{
		PredictionID: "p1", BotID: "momentum-1", Asset: "BTCUSDT",
		Outcome: models.OutcomeTPHit, DetectedAt: time.Now(),
	})

	e := echo.New()
	h.RegisterRoutes(e)

	env := doGET(t, e, "/api/performance?bot_id=momentum-1")
	if env.Status != http.StatusOK {
		t.Fatalf("status %d: %s", env.Status, env.Data)
	}
	if !strings.Contains(string(env.Data), `"successes":1`) {
		t.Fatalf("missing success count: %s", env.Data)
	}

	env = doGET(t, e, "/api/performance?bot_id=nobody")
	if env.Status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown bot, got %d", env.Status)
	}

	env = doGET(t, e, "/api/performance")
	if env.Status != http.StatusOK {
		t.Fatalf("roster listing failed: %d", env.Status)
	}
}

func TestWeightsEndpoint(t *testing.T) {
	h, _ := newHandler(t, &memRecStore{}, &memOutcomeStore{})
	e := echo.New()
	h.RegisterRoutes(e)

	env := doGET(t, e, "/api/weights")
	if env.Status != http.StatusOK {
		t.Fatalf("status %d", env.Status)
	}
	if !strings.Contains(string(env.Data), `"version":0`) {
		t.Fatalf("expected version 0 before first optimization: %s", env.Data)
	}
}

func TestOutcomesEndpoint(t *testing.T) {
	outs := &memOutcomeStore{}
	outs.events = append(outs.events, &models.OutcomeEvent{
		BotID: "momentum-1", PredictionID: "p1", Asset: "BTCUSDT",
		Outcome: models.OutcomeSLHit, DetectedAt: time.Now(),
	})
	h, _ := newHandler(t, &memRecStore{}, outs)
	e := echo.New()
	h.RegisterRoutes(e)

	env := doGET(t, e, "/api/outcomes?bot_id=momentum-1")
	if env.Status != http.StatusOK {
		t.Fatalf("status %d: %s", env.Status, env.Data)
	}
	if !strings.Contains(string(env.Data), "SL_HIT") {
		t.Fatalf("missing outcome: %s", env.Data)
	}

	env = doGET(t, e, "/api/outcomes")
	if env.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 without bot_id, got %d", env.Status)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := newHandler(t, &memRecStore{}, &memOutcomeStore{})
	e := echo.New()
	h.RegisterRoutes(e)

	env := doGET(t, e, "/health")
	if env.Status != http.StatusOK {
		t.Fatalf("status %d", env.Status)
	}
}
