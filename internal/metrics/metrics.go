package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"alert-digest/internal/digest"
)

const namespace = "alertdigest"

// Recorder tracks the outcome of processing runs on a private registry.
type Recorder struct {
	registry    *prometheus.Registry
	records     *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	reportLines prometheus.Gauge
	duration    prometheus.Gauge
	lastRun     prometheus.Gauge
}

// NewRecorder registers the run metrics on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Raw records processed, by outcome",
		}, []string{"outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Rejected inputs, by kind",
		}, []string{"kind"}),
		reportLines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_lines",
			Help:      "Lines in the last rendered report",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
	r.registry.MustRegister(r.records, r.rejections, r.reportLines, r.duration, r.lastRun)
	return r
}

// Accepted counts records that produced an event.
func (r *Recorder) Accepted(n int) {
	if r == nil {
		return
	}
	r.records.WithLabelValues("accepted").Add(float64(n))
}

// Rejected counts rejections by kind. Source failures are not records and
// only feed the rejection counter.
func (r *Recorder) Rejected(rejections []digest.Rejection) {
	if r == nil {
		return
	}
	for _, rej := range rejections {
		r.rejections.WithLabelValues(string(rej.Kind)).Inc()
		if rej.Kind != digest.SourceUnavailable {
			r.records.WithLabelValues("rejected").Inc()
		}
	}
}

// Finished records report size and timing of a completed run.
func (r *Recorder) Finished(lines int, took time.Duration, at time.Time) {
	if r == nil {
		return
	}
	r.reportLines.Set(float64(lines))
	r.duration.Set(took.Seconds())
	r.lastRun.Set(float64(at.Unix()))
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
