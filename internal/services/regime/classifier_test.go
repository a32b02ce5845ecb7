package regime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"SigCouncil/internal/domain/models"
	xhttp "SigCouncil/pkg/http"
)

func testClassifier(url string) *HTTPClassifier {
	return &HTTPClassifier{
		baseURL:  url,
		client:   xhttp.NewClient(xhttp.WithTimeout(2 * time.Second)),
		retryMax: 1,
	}
}

func TestClassifyNormalizesLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req classifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Asset != "BTCUSDT" {
			t.Errorf("unexpected asset %q", req.Asset)
		}
		json.NewEncoder(w).Encode(classifyResponse{State: "TRENDING", Confidence: 0.9})
	}))
	defer srv.Close()

	st, err := testClassifier(srv.URL).Classify(context.Background(), "BTCUSDT", []float64{0.01, -0.02})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if st.Regime != models.RegimeTrending {
		t.Fatalf("expected TRENDING, got %s", st.Regime)
	}
	if st.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %v", st.Confidence)
	}
}

func TestClassifyUnknownLabelMapsToUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(classifyResponse{State: "SIDEWAYS_CHOP"})
	}))
	defer srv.Close()

	st, err := testClassifier(srv.URL).Classify(context.Background(), "BTCUSDT", nil)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if st.Regime != models.RegimeUnknown {
		t.Fatalf("unrecognized label must map to UNKNOWN, got %s", st.Regime)
	}
}

func TestClassifyServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := testClassifier(srv.URL).Classify(context.Background(), "BTCUSDT", nil); err == nil {
		t.Fatal("expected error from failing service")
	}
}

func TestCachedClassifierReusesResult(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(classifyResponse{State: "RANGING", Confidence: 0.8})
	}))
	defer srv.Close()

	c := NewCachedClassifier(testClassifier(srv.URL), time.Minute)
	for i := 0; i < 3; i++ {
		st, err := c.Classify(context.Background(), "ETHUSDT", nil)
		if err != nil {
			t.Fatalf("classify %d: %v", i, err)
		}
		if st.Regime != models.RegimeRanging {
			t.Fatalf("expected RANGING, got %s", st.Regime)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}
}

func TestCachedClassifierZeroTTLBypasses(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(classifyResponse{State: "RANGING"})
	}))
	defer srv.Close()

	c := NewCachedClassifier(testClassifier(srv.URL), 0)
	for i := 0; i < 2; i++ {
		if _, err := c.Classify(context.Background(), "ETHUSDT", nil); err != nil {
			t.Fatalf("classify: %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected cache bypass with zero TTL, got %d calls", got)
	}
}
