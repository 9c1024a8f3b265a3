package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "modinput"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics records run measurements in its own Prometheus registry.
// It satisfies modinput.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	runs             *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	lastRun          prometheus.Gauge
	events           *prometheus.CounterVec
	eventBytes       *prometheus.CounterVec
	instanceFailures *prometheus.CounterVec
	instanceDuration prometheus.Histogram
}

// New creates the collectors and registers them in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Runs by mode and result.",
		}, []string{"mode", "result"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a run from start to exit.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"mode"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events written to the stream per stanza.",
		}, []string{"stanza"}),
		eventBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_bytes_total",
			Help:      "Encoded event bytes written per stanza.",
		}, []string{"stanza"}),
		instanceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instance_failures_total",
			Help:      "Instances that returned an error or panicked.",
		}, []string{"stanza"}),
		instanceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "instance_duration_seconds",
			Help:      "Time an instance spent from start to end.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	m.registry.MustRegister(
		m.runs,
		m.runDuration,
		m.lastRun,
		m.events,
		m.eventBytes,
		m.instanceFailures,
		m.instanceDuration,
	)
	return m
}

// Registry exposes the registry, for callers that want to add their own
// collectors or serve it.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RunStarted(mode string) {
	// Pre-create the series so a run that dies early still reports zero.
	m.runs.WithLabelValues(mode, ResultSuccess)
	m.runs.WithLabelValues(mode, ResultFailure)
}

func (m *Metrics) RunFinished(mode string, elapsed time.Duration, err error) {
	m.runs.WithLabelValues(mode, result(err)).Inc()
	m.runDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	m.lastRun.SetToCurrentTime()
}

func (m *Metrics) EventWritten(stanza string, size int) {
	m.events.WithLabelValues(stanza).Inc()
	m.eventBytes.WithLabelValues(stanza).Add(float64(size))
}

func (m *Metrics) InstanceFinished(stanza string, elapsed time.Duration, err error) {
	m.instanceDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.instanceFailures.WithLabelValues(stanza).Inc()
	}
}

// WriteTextfile writes the current values in the text exposition format,
// for pickup by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
