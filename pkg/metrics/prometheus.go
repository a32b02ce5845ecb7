package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	scansTotal      prometheus.Counter
	scanDuration    prometheus.Histogram
	scanAssets      prometheus.Gauge
	recommendations *prometheus.CounterVec
	suppressed      *prometheus.CounterVec
	abstentions     *prometheus.CounterVec
	outcomes        *prometheus.CounterVec
	snapshotVersion prometheus.Gauge
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		scansTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sigcouncil_scans_total",
				Help: "Total number of completed scan cycles",
			},
		),
		scanDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sigcouncil_scan_duration_seconds",
				Help:    "Duration of full scan cycles in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		scanAssets: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sigcouncil_scan_assets",
				Help: "Number of assets covered by the last scan",
			},
		),
		recommendations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigcouncil_recommendations_total",
				Help: "Recommendations emitted by asset and direction",
			},
			[]string{"asset", "direction"},
		),
		suppressed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigcouncil_suppressed_total",
				Help: "Suppressed recommendations by asset and reason",
			},
			[]string{"asset", "reason"},
		),
		abstentions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigcouncil_abstentions_total",
				Help: "Bot abstentions by bot",
			},
			[]string{"bot"},
		),
		outcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigcouncil_outcomes_total",
				Help: "Resolved prediction outcomes by kind",
			},
			[]string{"outcome"},
		),
		snapshotVersion: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sigcouncil_weight_snapshot_version",
				Help: "Version of the weight snapshot used by the last scan",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigcouncil_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sigcouncil_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordScan records one completed scan cycle.
func (r *Recorder) RecordScan(assets int, dur time.Duration) {
	r.scansTotal.Inc()
	r.scanAssets.Set(float64(assets))
	r.scanDuration.Observe(dur.Seconds())
}

// RecordRecommendation records an emitted recommendation.
func (r *Recorder) RecordRecommendation(asset, direction string) {
	r.recommendations.WithLabelValues(asset, direction).Inc()
}

// RecordSuppressed records a suppressed recommendation.
func (r *Recorder) RecordSuppressed(asset, reason string) {
	r.suppressed.WithLabelValues(asset, reason).Inc()
}

// RecordAbstention records a bot abstention.
func (r *Recorder) RecordAbstention(botID string) {
	r.abstentions.WithLabelValues(botID).Inc()
}

// RecordOutcome records a resolved outcome.
func (r *Recorder) RecordOutcome(outcome string) {
	r.outcomes.WithLabelValues(outcome).Inc()
}

// RecordSnapshotVersion records the weight snapshot version in use.
func (r *Recorder) RecordSnapshotVersion(v uint64) {
	r.snapshotVersion.Set(float64(v))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
