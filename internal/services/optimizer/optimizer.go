package optimizer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"SigCouncil/internal/domain/models"
	"SigCouncil/internal/domain/repository"
	"SigCouncil/pkg/logger"
)

// Defaults for the incremental reward update and the weight envelope.
const (
	DefaultLearningRate  = 0.1
	DefaultDecay         = 0.99
	DefaultExpiredReward = -0.05
	DefaultMinWeight     = 0.1
	DefaultMaxWeight     = 3.0

	confidenceBuckets = 10
)

// Optimizer turns delayed outcome events into per-bot influence weights. It is
// the cold path: scans never call into it, they only read the snapshots it
// commits between runs.
type Optimizer struct {
	mu      sync.Mutex
	states  map[string]*models.RLWeightState
	current *models.WeightSnapshot

	learningRate  float64
	decay         float64
	expiredReward float64
	minWeight     float64
	maxWeight     float64

	store repository.WeightStore
	log   *logger.Logger
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLearningRate sets the step size of the incremental reward update.
func WithLearningRate(lr float64) Option {
	return func(o *Optimizer) {
		if lr > 0 && lr <= 1 {
			o.learningRate = lr
		}
	}
}

// WithDecay sets the multiplicative decay applied to every estimate on each
// optimize run, so stale state keys fade instead of being deleted.
func WithDecay(d float64) Option {
	return func(o *Optimizer) {
		if d > 0 && d <= 1 {
			o.decay = d
		}
	}
}

// WithWeightBounds sets the clip range of published weights.
func WithWeightBounds(min, max float64) Option {
	return func(o *Optimizer) {
		if min > 0 && max > min {
			o.minWeight = min
			o.maxWeight = max
		}
	}
}

// New creates an Optimizer. The store may be nil in tests; snapshots are then
// kept in memory only.
func New(store repository.WeightStore, log *logger.Logger, opts ...Option) *Optimizer {
	o := &Optimizer{
		states:        make(map[string]*models.RLWeightState),
		learningRate:  DefaultLearningRate,
		decay:         DefaultDecay,
		expiredReward: DefaultExpiredReward,
		minWeight:     DefaultMinWeight,
		maxWeight:     DefaultMaxWeight,
		store:         store,
		log:           log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Restore loads the last committed snapshot so versions keep increasing across
// restarts. A missing snapshot is not an error.
func (o *Optimizer) Restore(ctx context.Context) error {
	if o.store == nil {
		return nil
	}
	snap, err := o.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore weight snapshot: %w", err)
	}
	if snap == nil {
		return nil
	}

	o.mu.Lock()
	o.current = snap
	o.mu.Unlock()

	if o.log != nil {
		o.log.Info("weight snapshot restored",
			logger.Int64("version", int64(snap.Version)),
			logger.Int("bots", len(snap.Weights)))
	}
	return nil
}

// Observe applies one outcome event to its RL state key. Reward is positive
// for TP_HIT and negative for SL_HIT, scaled by realized magnitude; expired
// predictions earn a small penalty for tying up capital.
func (o *Optimizer) Observe(ev *models.OutcomeEvent) {
	if ev == nil || ev.BotID == "" {
		return
	}

	var reward float64
	switch ev.Outcome {
	case models.OutcomeTPHit:
		reward = math.Abs(ev.Magnitude)
	case models.OutcomeSLHit:
		reward = -math.Abs(ev.Magnitude)
	case models.OutcomeExpired:
		reward = o.expiredReward
	default:
		return
	}

	key := stateKey(ev.Regime, ev.Confidence, ev.BotID)

	o.mu.Lock()
	defer o.mu.Unlock()

	st, ok := o.states[key]
	if !ok {
		st = &models.RLWeightState{Key: key}
		o.states[key] = st
	}
	st.Estimate += o.learningRate * (reward - st.Estimate)
	st.Updates++
}

// Optimize publishes a new immutable weight snapshot from the accumulated
// estimates. Weights are derived from per-bot mean estimates, centered so the
// average bot keeps weight 1.0, clipped to the configured bounds, and zeroed
// for retired bots. The version is strictly increasing and the snapshot is
// committed to the store before it becomes visible to readers.
func (o *Optimizer) Optimize(ctx context.Context, retired []string) (*models.WeightSnapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	perBot := make(map[string]float64)
	counts := make(map[string]int)
	for key, st := range o.states {
		bot := botFromKey(key)
		perBot[bot] += st.Estimate
		counts[bot]++
		st.Estimate *= o.decay
	}

	mean := 0.0
	if len(perBot) > 0 {
		for bot, sum := range perBot {
			perBot[bot] = sum / float64(counts[bot])
			mean += perBot[bot]
		}
		mean /= float64(len(perBot))
	}

	weights := make(map[string]float64, len(perBot))
	for bot, est := range perBot {
		weights[bot] = clamp(models.DefaultBotWeight+(est-mean), o.minWeight, o.maxWeight)
	}
	for _, bot := range retired {
		weights[bot] = 0
	}

	var version uint64 = 1
	if o.current != nil {
		version = o.current.Version + 1
	}
	snap := &models.WeightSnapshot{
		Version:   version,
		Weights:   weights,
		CreatedAt: time.Now(),
	}

	if o.store != nil {
		if err := o.store.Save(ctx, snap); err != nil {
			return nil, fmt.Errorf("commit weight snapshot v%d: %w", version, err)
		}
	}
	o.current = snap

	if o.log != nil {
		o.log.Info("weight snapshot published",
			logger.Int64("version", int64(snap.Version)),
			logger.Int("bots", len(snap.Weights)),
			logger.Int("retired", len(retired)))
	}
	return snap, nil
}

// Current returns the latest committed snapshot, or a version-0 empty snapshot
// before the first run so every bot gets the default weight.
func (o *Optimizer) Current() *models.WeightSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return &models.WeightSnapshot{Version: 0, Weights: map[string]float64{}}
	}
	return o.current
}

// stateKey discretizes (regime, confidence, bot) into the RL state space.
func stateKey(regime models.Regime, confidence float64, botID string) string {
	bucket := int(confidence * confidenceBuckets)
	if bucket < 0 {
		bucket = 0
	}
	if bucket >= confidenceBuckets {
		bucket = confidenceBuckets - 1
	}
	return fmt.Sprintf("%s|c%d|%s", models.NormalizeRegime(string(regime)), bucket, botID)
}

func botFromKey(key string) string {
	i := strings.LastIndexByte(key, '|')
	if i < 0 {
		return key
	}
	return key[i+1:]
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// States returns a sorted copy of the RL state table for inspection endpoints.
func (o *Optimizer) States() []models.RLWeightState {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.RLWeightState, 0, len(o.states))
	for _, st := range o.states {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
