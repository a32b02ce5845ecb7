package usecase

import (
	"context"
	"testing"
	"time"

	"SigCouncil/internal/domain/models"
)

func TestKafkaOutcomesHandlerResolves(t *testing.T) {
	fx := newOutcomeFixture(time.Hour)
	h := NewKafkaOutcomesHandler("outcomes", fx.uc, fx.metrics)

	if h.Topic() != "outcomes" {
		t.Fatalf("unexpected topic %q", h.Topic())
	}

	msg := []byte(`{"bot_id":"b1","prediction_id":"p1","asset":"BTCUSDT",` +
		`"outcome":"TP_HIT","realized_price":111,"magnitude":0.11,` +
		`"regime":"TRENDING","confidence":0.8,"detected_at":1700000000}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(fx.store.events) != 1 {
		t.Fatalf("expected 1 persisted event, got %d", len(fx.store.events))
	}
	ev := fx.store.events[0]
	if ev.Outcome != models.OutcomeTPHit || ev.Regime != models.RegimeTrending {
		t.Fatalf("event mangled: %+v", ev)
	}

	p, _ := fx.tracker.Performance("b1")
	if p.Successes != 1 {
		t.Fatalf("tracker missed the event: %+v", p)
	}
}

func TestKafkaOutcomesHandlerRejectsGarbage(t *testing.T) {
	fx := newOutcomeFixture(time.Hour)
	h := NewKafkaOutcomesHandler("outcomes", fx.uc, fx.metrics)

	cases := [][]byte{
		[]byte(`not json`),
		[]byte(`{"bot_id":"","prediction_id":"p1","outcome":"TP_HIT"}`),
		[]byte(`{"bot_id":"b1","prediction_id":"p1","outcome":"MOON"}`),
	}
	for i, msg := range cases {
		if err := h.Handle(context.Background(), msg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
	if len(fx.store.events) != 0 {
		t.Fatalf("garbage persisted: %d events", len(fx.store.events))
	}
}
