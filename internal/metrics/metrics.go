package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "stemswap"
	subsystem = "run"
)

// Run collects the counters of one stemswap pass on a private registry.
type Run struct {
	registry *prometheus.Registry

	// TracksTotal counts catalog tracks by outcome (processed, skipped, failed).
	TracksTotal *prometheus.CounterVec
	// SkippedTotal counts skipped tracks by reason.
	SkippedTotal *prometheus.CounterVec
	// CandidatesTotal counts search hits kept after self-match removal.
	CandidatesTotal prometheus.Counter
	// MatchesTotal counts compatible stem matches by match type.
	MatchesTotal *prometheus.CounterVec
	// ProposalsTotal counts combination proposals emitted.
	ProposalsTotal prometheus.Counter
	// SearchDurationSeconds measures catalog search latency.
	SearchDurationSeconds prometheus.Histogram
	// SearchErrorsTotal counts failed catalog searches.
	SearchErrorsTotal prometheus.Counter
	// DurationSeconds holds the wall time of the last finished run by status.
	DurationSeconds *prometheus.GaugeVec
	// LastFinishedTimestamp holds the unix time the last run finished.
	LastFinishedTimestamp prometheus.Gauge
}

// NewRun builds a metric set on a fresh registry.
func NewRun() *Run {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Run{
		registry: reg,
		TracksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tracks_total",
			Help:      "Catalog tracks visited by outcome",
		}, []string{"outcome"}),
		SkippedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tracks_skipped_total",
			Help:      "Skipped catalog tracks by reason",
		}, []string{"reason"}),
		CandidatesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "candidates_total",
			Help:      "Similar tracks considered after removing self matches",
		}),
		MatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stem_matches_total",
			Help:      "Compatible stem matches by match type",
		}, []string{"match_type"}),
		ProposalsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "proposals_total",
			Help:      "Stem replacement proposals emitted",
		}),
		SearchDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "search_duration_seconds",
			Help:      "Latency of catalog similarity searches",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SearchErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "search_errors_total",
			Help:      "Catalog searches that returned an error",
		}),
		DurationSeconds: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "Wall time of the last finished run by status",
		}, []string{"status"}),
		LastFinishedTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_finished_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Run) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveTrack counts a visited track. Skipped tracks also count their reason.
func (r *Run) ObserveTrack(outcome, reason string) {
	r.TracksTotal.WithLabelValues(outcome).Inc()
	if reason != "" {
		r.SkippedTotal.WithLabelValues(reason).Inc()
	}
}

// ObserveSearch records one catalog search.
func (r *Run) ObserveSearch(elapsed time.Duration, hits int, err error) {
	r.SearchDurationSeconds.Observe(elapsed.Seconds())
	if err != nil {
		r.SearchErrorsTotal.Inc()
		return
	}
	r.CandidatesTotal.Add(float64(hits))
}

// ObserveMatch counts one compatible stem match.
func (r *Run) ObserveMatch(matchType string) {
	r.MatchesTotal.WithLabelValues(matchType).Inc()
}

// AddProposals counts emitted proposals.
func (r *Run) AddProposals(n int) {
	if n > 0 {
		r.ProposalsTotal.Add(float64(n))
	}
}

// Finish stamps the run duration and completion time.
func (r *Run) Finish(status string, elapsed time.Duration, finished time.Time) {
	r.DurationSeconds.WithLabelValues(status).Set(elapsed.Seconds())
	r.LastFinishedTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile writes the registry in text exposition format for the node
// exporter textfile collector.
func (r *Run) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
