package usecase

import (
	"context"
	"testing"
	"time"

	"SigCouncil/internal/domain/models"
	"SigCouncil/internal/services/optimizer"
	"SigCouncil/internal/services/tracker"
)

type outcomeFixture struct {
	uc      *OutcomeUseCase
	tracker *tracker.Tracker
	opt     *optimizer.Optimizer
	store   *memOutcomeStore
	metrics *nopMetrics
}

func newOutcomeFixture(expiry time.Duration) *outcomeFixture {
	tr := tracker.New()
	opt := optimizer.New(nil, nil)
	store := &memOutcomeStore{}
	met := newNopMetrics()
	uc := NewOutcomeUseCase(tr, opt, store, met, testLogger(), expiry)
	return &outcomeFixture{uc: uc, tracker: tr, opt: opt, store: store, metrics: met}
}

func watchLong(fx *outcomeFixture, predID string) {
	fx.uc.Watch(&models.BotPrediction{
		ID:         predID,
		BotID:      "b1",
		Asset:      "BTCUSDT",
		Direction:  models.DirectionLong,
		Entry:      100,
		TakeProfit: 110,
		StopLoss:   95,
	}, models.RegimeTrending, 0.8)
}

func tick(price float64) *models.PriceTick {
	return &models.PriceTick{Asset: "BTCUSDT", Price: price, Volume: 1, Timestamp: time.Now()}
}

func TestTickBetweenLevelsResolvesNothing(t *testing.T) {
	fx := newOutcomeFixture(time.Hour)
	watchLong(fx, "p1")

	if err := fx.uc.Process(context.Background(), tick(105)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if fx.uc.OpenCount() != 1 {
		t.Fatalf("prediction resolved early, open=%d", fx.uc.OpenCount())
	}
	if len(fx.store.events) != 0 {
		t.Fatalf("unexpected events %v", fx.store.events)
	}
}

func TestTakeProfitCrossing(t *testing.T) {
	fx := newOutcomeFixture(time.Hour)
	watchLong(fx, "p1")

	if err := fx.uc.Process(context.Background(), tick(111)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if fx.uc.OpenCount() != 0 {
		t.Fatal("crossed prediction still watched")
	}
	if len(fx.store.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(fx.store.events))
	}

	ev := fx.store.events[0]
	if ev.Outcome != models.OutcomeTPHit {
		t.Fatalf("expected TP_HIT, got %s", ev.Outcome)
	}
	if ev.Magnitude <= 0.10 || ev.Magnitude >= 0.12 {
		t.Fatalf("magnitude should be ~0.11, got %v", ev.Magnitude)
	}

	p, _ := fx.tracker.Performance("b1")
	if p.Successes != 1 {
		t.Fatalf("tracker did not record success: %+v", p)
	}
	if len(fx.opt.States()) != 1 {
		t.Fatal("optimizer did not observe the outcome")
	}
}

func TestStopLossCrossing(t *testing.T) {
	fx := newOutcomeFixture(time.Hour)
	watchLong(fx, "p1")

	if err := fx.uc.Process(context.Background(), tick(94)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(fx.store.events) != 1 || fx.store.events[0].Outcome != models.OutcomeSLHit {
		t.Fatalf("expected SL_HIT, got %v", fx.store.events)
	}
}

func TestShortCrossings(t *testing.T) {
	fx := newOutcomeFixture(time.Hour)
	fx.uc.Watch(&models.BotPrediction{
		ID:         "s1",
		BotID:      "b2",
		Asset:      "BTCUSDT",
		Direction:  models.DirectionShort,
		Entry:      100,
		TakeProfit: 90,
		StopLoss:   105,
	}, models.RegimeVolatile, 0.6)

	if err := fx.uc.Process(context.Background(), tick(89)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(fx.store.events) != 1 || fx.store.events[0].Outcome != models.OutcomeTPHit {
		t.Fatalf("short TP is below entry, got %v", fx.store.events)
	}
}

func TestDuplicateResolutionIgnored(t *testing.T) {
	fx := newOutcomeFixture(time.Hour)
	watchLong(fx, "p1")

	if err := fx.uc.Process(context.Background(), tick(111)); err != nil {
		t.Fatalf("process: %v", err)
	}
	// Same prediction arrives again over Kafka.
	fx.uc.Resolve(context.Background(), &models.OutcomeEvent{
		BotID:        "b1",
		PredictionID: "p1",
		Asset:        "BTCUSDT",
		Outcome:      models.OutcomeSLHit,
	})

	if len(fx.store.events) != 1 {
		t.Fatalf("duplicate resolution persisted: %d events", len(fx.store.events))
	}
	p, _ := fx.tracker.Performance("b1")
	if p.Total != 1 {
		t.Fatalf("duplicate changed counters: %+v", p)
	}
}

func TestWatchIsIdempotent(t *testing.T) {
	fx := newOutcomeFixture(time.Hour)
	watchLong(fx, "p1")
	watchLong(fx, "p1")
	if fx.uc.OpenCount() != 1 {
		t.Fatalf("re-watching duplicated the entry: %d", fx.uc.OpenCount())
	}
}

func TestExpireStale(t *testing.T) {
	fx := newOutcomeFixture(time.Minute)
	watchLong(fx, "p1")
	watchLong(fx, "p2")

	if n := fx.uc.ExpireStale(context.Background(), time.Now()); n != 0 {
		t.Fatalf("nothing should expire yet, got %d", n)
	}
	if n := fx.uc.ExpireStale(context.Background(), time.Now().Add(2*time.Minute)); n != 2 {
		t.Fatalf("expected 2 expiries, got %d", n)
	}
	if fx.uc.OpenCount() != 0 {
		t.Fatal("expired predictions still watched")
	}
	for _, ev := range fx.store.events {
		if ev.Outcome != models.OutcomeExpired {
			t.Fatalf("expected EXPIRED, got %s", ev.Outcome)
		}
	}
}

func TestOtherAssetTicksIgnored(t *testing.T) {
	fx := newOutcomeFixture(time.Hour)
	watchLong(fx, "p1")

	err := fx.uc.Process(context.Background(), &models.PriceTick{
		Asset: "ETHUSDT", Price: 9999, Volume: 1, Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if fx.uc.OpenCount() != 1 {
		t.Fatal("tick for another asset resolved the prediction")
	}
}

func TestInvalidTickRejected(t *testing.T) {
	fx := newOutcomeFixture(time.Hour)
	if err := fx.uc.Process(context.Background(), tick(0)); err == nil {
		t.Fatal("zero price tick must be rejected")
	}
}
