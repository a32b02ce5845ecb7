package tracker

import (
	"fmt"
	"testing"

	"SigCouncil/internal/domain/models"
)

func outcome(botID, predID string, o models.Outcome) *models.OutcomeEvent {
	return &models.OutcomeEvent{
		BotID:        botID,
		PredictionID: predID,
		Asset:        "BTCUSDT",
		Outcome:      o,
	}
}

func feed(t *testing.T, tr *Tracker, botID string, n int, o models.Outcome, tag string) {
	t.Helper()
	for i := 0; i < n; i++ {
		if !tr.RecordOutcome(outcome(botID, fmt.Sprintf("%s-%s-%d", botID, tag, i), o)) {
			t.Fatalf("outcome %s-%s-%d rejected", botID, tag, i)
		}
	}
}

func TestNewBotStaysNewUnderMinimum(t *testing.T) {
	tr := New()
	feed(t, tr, "b1", models.MinTrackedPredictions-1, models.OutcomeTPHit, "w")

	p, ok := tr.Performance("b1")
	if !ok {
		t.Fatal("bot not tracked")
	}
	if p.Status != models.StatusNew {
		t.Fatalf("expected NEW below minimum, got %s", p.Status)
	}
}

func TestPerfectBotGoesActive(t *testing.T) {
	tr := New()
	feed(t, tr, "b1", models.MinTrackedPredictions, models.OutcomeTPHit, "w")

	p, _ := tr.Performance("b1")
	if p.Status != models.StatusActive {
		t.Fatalf("expected ACTIVE, got %s", p.Status)
	}
	if p.RollingAccuracy != 1.0 {
		t.Fatalf("expected accuracy 1.0, got %v", p.RollingAccuracy)
	}
}

func TestFailingBotRetires(t *testing.T) {
	tr := New()
	feed(t, tr, "b1", models.MinTrackedPredictions, models.OutcomeSLHit, "l")

	p, _ := tr.Performance("b1")
	if p.Status != models.StatusRetired {
		t.Fatalf("expected RETIRED at 0%% accuracy, got %s", p.Status)
	}
}

func TestStatusBands(t *testing.T) {
	cases := []struct {
		hits, misses int
		want         models.BotStatus
	}{
		{6, 4, models.StatusActive},     // 0.60
		{5, 5, models.StatusMonitoring}, // 0.50
		{4, 6, models.StatusMonitoring}, // 0.40 inclusive
		{3, 7, models.StatusProbation},  // 0.30
		{2, 8, models.StatusRetired},    // 0.20
	}
	for i, tc := range cases {
		tr := New()
		bot := fmt.Sprintf("b%d", i)
		feed(t, tr, bot, tc.hits, models.OutcomeTPHit, "h")
		feed(t, tr, bot, tc.misses, models.OutcomeSLHit, "m")

		p, _ := tr.Performance(bot)
		if p.Status != tc.want {
			t.Fatalf("case %d (%d/%d): expected %s, got %s",
				i, tc.hits, tc.hits+tc.misses, tc.want, p.Status)
		}
	}
}

func TestRecordOutcomeIdempotent(t *testing.T) {
	tr := New()
	ev := outcome("b1", "pred-1", models.OutcomeTPHit)
	if !tr.RecordOutcome(ev) {
		t.Fatal("first delivery rejected")
	}
	if tr.RecordOutcome(ev) {
		t.Fatal("replayed event must be a no-op")
	}

	p, _ := tr.Performance("b1")
	if p.Total != 1 || p.Successes != 1 {
		t.Fatalf("replay changed counters: %+v", p)
	}
}

func TestExpiredDroppedFromWindowByDefault(t *testing.T) {
	tr := New()
	feed(t, tr, "b1", 20, models.OutcomeExpired, "e")

	p, _ := tr.Performance("b1")
	if p.Status != models.StatusNew {
		t.Fatalf("expired-only bot has no decided outcomes, expected NEW, got %s", p.Status)
	}
	if p.Total != 20 {
		t.Fatalf("expired must still count toward total, got %d", p.Total)
	}
}

func TestExpiredAsFailure(t *testing.T) {
	tr := New(WithExpiredAsFailure(true))
	feed(t, tr, "b1", models.MinTrackedPredictions, models.OutcomeExpired, "e")

	p, _ := tr.Performance("b1")
	if p.Status != models.StatusRetired {
		t.Fatalf("expected RETIRED with expired-as-failure, got %s", p.Status)
	}
}

func TestRollingWindowForgets(t *testing.T) {
	// A small window must forget old failures entirely.
	tr := New(WithWindow(10))
	feed(t, tr, "b1", 10, models.OutcomeSLHit, "old")
	feed(t, tr, "b1", 10, models.OutcomeTPHit, "new")

	p, _ := tr.Performance("b1")
	if p.RollingAccuracy != 1.0 {
		t.Fatalf("old failures should have rolled out, accuracy %v", p.RollingAccuracy)
	}
	if p.Status != models.StatusActive {
		t.Fatalf("expected ACTIVE, got %s", p.Status)
	}
}

func TestRetiredBotReinstatedToProbation(t *testing.T) {
	tr := New()
	feed(t, tr, "b1", 30, models.OutcomeSLHit, "bad")
	if p, _ := tr.Performance("b1"); p.Status != models.StatusRetired {
		t.Fatalf("setup: expected RETIRED, got %s", p.Status)
	}

	// 12 more losses, then 8 wins: the most recent 20 outcomes sit exactly at
	// the 40% reinstatement bar.
	feed(t, tr, "b1", 12, models.OutcomeSLHit, "worse")
	feed(t, tr, "b1", 8, models.OutcomeTPHit, "recover")

	p, _ := tr.Performance("b1")
	if p.Status != models.StatusProbation {
		t.Fatalf("expected reinstatement to PROBATION, got %s", p.Status)
	}
}

func TestPendingLifecycle(t *testing.T) {
	tr := New()
	tr.TrackPrediction(&models.BotPrediction{ID: "pred-1", BotID: "b1", Asset: "BTCUSDT"})

	p, _ := tr.Performance("b1")
	if p.Pending != 1 {
		t.Fatalf("expected 1 pending, got %d", p.Pending)
	}

	tr.RecordOutcome(outcome("b1", "pred-1", models.OutcomeTPHit))
	p, _ = tr.Performance("b1")
	if p.Pending != 0 {
		t.Fatalf("expected 0 pending after outcome, got %d", p.Pending)
	}
}

func TestRetiredBots(t *testing.T) {
	tr := New()
	feed(t, tr, "dead", models.MinTrackedPredictions, models.OutcomeSLHit, "l")
	feed(t, tr, "live", models.MinTrackedPredictions, models.OutcomeTPHit, "w")

	retired := tr.RetiredBots()
	if len(retired) != 1 || retired[0] != "dead" {
		t.Fatalf("expected [dead], got %v", retired)
	}
}
