// Package metrics counts migrated records per job.
package metrics

import (
	"db-tube/internal/engine"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements engine.Observer on a private registry.
type Recorder struct {
	Registry *prometheus.Registry

	migrated *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	batches  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		migrated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dbtube_records_migrated_total",
			Help: "Records written to the destination (or counted in dry-run).",
		}, []string{"job"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dbtube_records_skipped_total",
			Help: "Source records dropped because they could not be mapped.",
		}, []string{"job"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dbtube_batches_flushed_total",
			Help: "Batches handed to the writer.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dbtube_job_duration_seconds",
			Help:    "Wall time of a job run.",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
		}, []string{"job"}),
	}
	r.Registry.MustRegister(r.migrated, r.skipped, r.batches, r.duration)
	return r
}

func (r *Recorder) RecordSkipped(job string, _ error) {
	r.skipped.WithLabelValues(job).Inc()
}

func (r *Recorder) BatchFlushed(job string, written int) {
	r.batches.WithLabelValues(job).Inc()
	r.migrated.WithLabelValues(job).Add(float64(written))
}

func (r *Recorder) JobFinished(stats engine.Stats) {
	r.duration.WithLabelValues(stats.Job).Observe(stats.Elapsed.Seconds())
}

// WriteFile stores the current values in the text exposition format, for
// the node exporter textfile collector.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.Registry)
}

var _ engine.Observer = (*Recorder)(nil)
