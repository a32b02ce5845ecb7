package optimizer

import (
	"context"
	"errors"
	"testing"

	"SigCouncil/internal/domain/models"
)

type memWeightStore struct {
	snap  *models.WeightSnapshot
	saves int
	fail  bool
}

func (m *memWeightStore) Save(_ context.Context, snap *models.WeightSnapshot) error {
	if m.fail {
		return errors.New("store down")
	}
	m.snap = snap
	m.saves++
	return nil
}

func (m *memWeightStore) Load(_ context.Context) (*models.WeightSnapshot, error) {
	return m.snap, nil
}

func (m *memWeightStore) Close() error { return nil }

func event(botID string, o models.Outcome, magnitude float64) *models.OutcomeEvent {
	return &models.OutcomeEvent{
		BotID:        botID,
		PredictionID: "p",
		Asset:        "BTCUSDT",
		Outcome:      o,
		Magnitude:    magnitude,
		Regime:       models.RegimeTrending,
		Confidence:   0.75,
	}
}

func TestObserveMovesEstimateTowardReward(t *testing.T) {
	o := New(nil, nil, WithLearningRate(0.5))
	o.Observe(event("b1", models.OutcomeTPHit, 1.0))

	states := o.States()
	if len(states) != 1 {
		t.Fatalf("expected 1 state key, got %d", len(states))
	}
	if states[0].Estimate != 0.5 {
		t.Fatalf("expected estimate 0.5 after one update, got %v", states[0].Estimate)
	}

	// Second identical reward closes half the remaining gap.
	o.Observe(event("b1", models.OutcomeTPHit, 1.0))
	if got := o.States()[0].Estimate; got != 0.75 {
		t.Fatalf("expected estimate 0.75, got %v", got)
	}
}

func TestObserveNegativeRewardOnStopLoss(t *testing.T) {
	o := New(nil, nil)
	o.Observe(event("b1", models.OutcomeSLHit, 2.0))
	if got := o.States()[0].Estimate; got >= 0 {
		t.Fatalf("stop-loss must pull the estimate negative, got %v", got)
	}
}

func TestOptimizeWinnersOutweighLosers(t *testing.T) {
	o := New(nil, nil)
	for i := 0; i < 20; i++ {
		o.Observe(event("winner", models.OutcomeTPHit, 1.0))
		o.Observe(event("loser", models.OutcomeSLHit, 1.0))
	}

	snap, err := o.Optimize(context.Background(), nil)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if snap.Weights["winner"] <= snap.Weights["loser"] {
		t.Fatalf("winner %v must outweigh loser %v",
			snap.Weights["winner"], snap.Weights["loser"])
	}
	for bot, w := range snap.Weights {
		if w < DefaultMinWeight || w > DefaultMaxWeight {
			t.Fatalf("%s weight %v outside clip range", bot, w)
		}
	}
}

func TestOptimizeRetiredForcedToZero(t *testing.T) {
	o := New(nil, nil)
	for i := 0; i < 20; i++ {
		o.Observe(event("dead", models.OutcomeTPHit, 5.0)) // great estimate, retired anyway
	}

	snap, err := o.Optimize(context.Background(), []string{"dead"})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if snap.Weights["dead"] != 0 {
		t.Fatalf("retired bot must get weight 0, got %v", snap.Weights["dead"])
	}
}

func TestOptimizeVersionsStrictlyIncreasing(t *testing.T) {
	store := &memWeightStore{}
	o := New(store, nil)

	var prev uint64
	for i := 0; i < 5; i++ {
		snap, err := o.Optimize(context.Background(), nil)
		if err != nil {
			t.Fatalf("optimize %d: %v", i, err)
		}
		if snap.Version <= prev {
			t.Fatalf("version %d not strictly above %d", snap.Version, prev)
		}
		prev = snap.Version
	}
	if store.saves != 5 {
		t.Fatalf("expected 5 commits, got %d", store.saves)
	}
}

func TestOptimizeStoreFailureKeepsOldSnapshot(t *testing.T) {
	store := &memWeightStore{}
	o := New(store, nil)

	first, err := o.Optimize(context.Background(), nil)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}

	store.fail = true
	if _, err := o.Optimize(context.Background(), nil); err == nil {
		t.Fatal("expected commit error")
	}
	if got := o.Current().Version; got != first.Version {
		t.Fatalf("failed commit must not advance the visible snapshot, got v%d", got)
	}
}

func TestRestoreContinuesVersionSequence(t *testing.T) {
	store := &memWeightStore{snap: &models.WeightSnapshot{
		Version: 41,
		Weights: map[string]float64{"b1": 1.2},
	}}
	o := New(store, nil)
	if err := o.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if o.Current().Version != 41 {
		t.Fatalf("expected restored v41, got v%d", o.Current().Version)
	}

	snap, err := o.Optimize(context.Background(), nil)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if snap.Version != 42 {
		t.Fatalf("expected v42 after restore, got v%d", snap.Version)
	}
}

func TestCurrentBeforeFirstRunDefaultsEveryBot(t *testing.T) {
	o := New(nil, nil)
	snap := o.Current()
	if snap.Version != 0 {
		t.Fatalf("expected version 0 before first run, got %d", snap.Version)
	}
	if w := snap.Weight("unseen"); w != models.DefaultBotWeight {
		t.Fatalf("unseen bot must get default weight, got %v", w)
	}
}

func TestDecayFadesStaleEstimates(t *testing.T) {
	o := New(nil, nil, WithDecay(0.5))
	o.Observe(event("b1", models.OutcomeTPHit, 1.0))
	before := o.States()[0].Estimate

	if _, err := o.Optimize(context.Background(), nil); err != nil {
		t.Fatalf("optimize: %v", err)
	}
	after := o.States()[0].Estimate
	if after != before*0.5 {
		t.Fatalf("expected estimate halved by decay, got %v from %v", after, before)
	}
}

func TestStateKeyBuckets(t *testing.T) {
	cases := []struct {
		conf float64
		want string
	}{
		{0.0, "TRENDING|c0|b"},
		{0.75, "TRENDING|c7|b"},
		{1.0, "TRENDING|c9|b"}, // top bucket is closed
		{-1.0, "TRENDING|c0|b"},
	}
	for _, tc := range cases {
		if got := stateKey(models.RegimeTrending, tc.conf, "b"); got != tc.want {
			t.Fatalf("conf %v: expected %q, got %q", tc.conf, tc.want, got)
		}
	}
}
