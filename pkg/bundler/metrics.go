package bundler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hgpack_build_duration_seconds",
			Help:    "Duration of artifact builds in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	buildTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hgpack_build_total",
			Help: "Total number of build attempts",
		},
		[]string{"status"}, // success, configuration, backend, environment, canceled, error
	)

	artifactSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hgpack_artifact_size_bytes",
			Help: "Total size of the last published artifact",
		},
	)

	artifactModules = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hgpack_artifact_modules",
			Help: "Number of modules embedded in the last published artifact",
		},
	)
)

// WriteMetricsFile writes the default registry in text exposition format
// to path, for the node_exporter textfile collector.
func WriteMetricsFile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
