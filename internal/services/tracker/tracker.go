package tracker

import (
	"sync"
	"time"

	"SigCouncil/internal/domain/models"
)

// Defaults for the rolling accuracy window and the reinstatement rule.
const (
	DefaultWindowSize       = 50
	DefaultReinstateWindow  = 20
	DefaultExpiredAsFailure = false
)

// botRecord is the tracker's internal state for one bot. A ring buffer of the
// most recent outcomes backs the rolling accuracy.
type botRecord struct {
	perf    models.BotPerformance
	window  []bool // true = success, most recent last
	maxSize int
}

// Tracker maintains rolling accuracy and lifecycle status per bot. It is the
// only writer of performance records; the aggregator reads snapshots.
type Tracker struct {
	mu        sync.RWMutex
	bots      map[string]*botRecord
	seen      map[string]struct{} // prediction IDs with a recorded outcome
	window    int
	reinstate int
	// expiredAsFailure controls whether EXPIRED counts against accuracy or is
	// dropped from the window entirely.
	expiredAsFailure bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithWindow sets the rolling accuracy window size.
func WithWindow(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.window = n
		}
	}
}

// WithReinstateWindow sets how many recent outcomes a Retired bot is judged on
// for reinstatement.
func WithReinstateWindow(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.reinstate = n
		}
	}
}

// WithExpiredAsFailure counts EXPIRED outcomes as failures instead of
// dropping them.
func WithExpiredAsFailure(b bool) Option {
	return func(t *Tracker) { t.expiredAsFailure = b }
}

// New creates a Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		bots:             make(map[string]*botRecord),
		seen:             make(map[string]struct{}),
		window:           DefaultWindowSize,
		reinstate:        DefaultReinstateWindow,
		expiredAsFailure: DefaultExpiredAsFailure,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TrackPrediction registers an emitted prediction as pending.
func (t *Tracker) TrackPrediction(p *models.BotPrediction) {
	if p == nil || p.BotID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.record(p.BotID)
	r.perf.Pending++
	r.perf.UpdatedAt = time.Now()
}

// RecordOutcome applies one outcome event. Processing is idempotent per
// prediction ID: replaying the same event is a no-op and returns false.
// Status is re-evaluated on every applied outcome; a bot may move directly
// between any two states.
func (t *Tracker) RecordOutcome(ev *models.OutcomeEvent) bool {
	if ev == nil || ev.BotID == "" || ev.PredictionID == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, dup := t.seen[ev.PredictionID]; dup {
		return false
	}
	t.seen[ev.PredictionID] = struct{}{}

	r := t.record(ev.BotID)
	if r.perf.Pending > 0 {
		r.perf.Pending--
	}
	r.perf.Total++

	switch ev.Outcome {
	case models.OutcomeTPHit:
		r.perf.Successes++
		r.push(true)
	case models.OutcomeSLHit:
		r.perf.Failures++
		r.push(false)
	case models.OutcomeExpired:
		if t.expiredAsFailure {
			r.perf.Failures++
			r.push(false)
		}
	}

	r.perf.RollingAccuracy = r.accuracy(len(r.window))
	r.perf.Status = t.nextStatus(r)
	r.perf.UpdatedAt = time.Now()
	return true
}

// nextStatus recomputes lifecycle status from the rolling window. Retired
// bots keep accruing history and climb back to Probation once their recent
// accuracy holds the Probation threshold over the reinstatement window.
func (t *Tracker) nextStatus(r *botRecord) models.BotStatus {
	// Expired predictions count toward Total but not the window, so judge
	// maturity on decided outcomes only.
	if len(r.window) < models.MinTrackedPredictions {
		return models.StatusNew
	}

	if r.perf.Status == models.StatusRetired {
		if len(r.window) >= t.reinstate &&
			r.accuracy(t.reinstate) >= models.MonitoringThreshold {
			return models.StatusProbation
		}
		// still judged on the full window below, so a broad recovery also counts
	}

	acc := r.perf.RollingAccuracy
	switch {
	case acc >= models.ActiveThreshold:
		return models.StatusActive
	case acc >= models.MonitoringThreshold:
		return models.StatusMonitoring
	case acc >= models.ProbationThreshold:
		return models.StatusProbation
	default:
		return models.StatusRetired
	}
}

// Performance returns a copy of one bot's record.
func (t *Tracker) Performance(botID string) (models.BotPerformance, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.bots[botID]
	if !ok {
		return models.BotPerformance{}, false
	}
	return r.perf, true
}

// All returns a copy of every tracked record.
func (t *Tracker) All() []models.BotPerformance {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.BotPerformance, 0, len(t.bots))
	for _, r := range t.bots {
		out = append(out, r.perf)
	}
	return out
}

// RetiredBots returns the IDs of currently retired bots. The optimizer uses
// this to force their weights to zero.
func (t *Tracker) RetiredBots() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for id, r := range t.bots {
		if r.perf.Status == models.StatusRetired {
			out = append(out, id)
		}
	}
	return out
}

func (t *Tracker) record(botID string) *botRecord {
	r, ok := t.bots[botID]
	if !ok {
		r = &botRecord{
			perf:    models.BotPerformance{BotID: botID, Status: models.StatusNew},
			maxSize: t.window,
		}
		t.bots[botID] = r
	}
	return r
}

func (r *botRecord) push(success bool) {
	r.window = append(r.window, success)
	if len(r.window) > r.maxSize {
		r.window = r.window[len(r.window)-r.maxSize:]
	}
}

// accuracy over the most recent n window entries.
func (r *botRecord) accuracy(n int) float64 {
	if n <= 0 || len(r.window) == 0 {
		return 0
	}
	if n > len(r.window) {
		n = len(r.window)
	}
	hits := 0
	for _, ok := range r.window[len(r.window)-n:] {
		if ok {
			hits++
		}
	}
	return float64(hits) / float64(n)
}
