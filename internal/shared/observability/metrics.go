package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "retest_parse_seconds",
		Help:    "Time spent reading and parsing a source file.",
		Buckets: prometheus.DefBuckets,
	})

	IndexModules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "retest_index_modules_total",
		Help: "Number of modules in the last built project index.",
	})

	IndexFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "retest_index_files_total",
		Help: "Number of parsed files in the last built project index.",
	})

	SelectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "retest_selection_seconds",
		Help:    "Time spent on a full impact selection pass.",
		Buckets: prometheus.DefBuckets,
	})

	ImpactedTests = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "retest_impacted_tests",
		Help:    "Number of impacted tests per selection pass.",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500},
	})

	SelectionWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retest_selection_warnings_total",
		Help: "Total number of warnings accumulated across selection passes.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retest_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
