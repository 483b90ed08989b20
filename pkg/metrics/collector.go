package metrics

import (
	"strconv"
	"time"

	"github.com/ottermq/otterconf/internal/core/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector records run measurements as Prometheus metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	objects      *prometheus.CounterVec
	fetchErrors  *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
	runs         *prometheus.CounterVec
	lastErrors   *prometheus.GaugeVec
	lastDuration *prometheus.GaugeVec
	lastRun      *prometheus.GaugeVec
}

// Config holds configuration for metrics collection
type Config struct {
	Namespace string
}

func DefaultConfig() *Config {
	return &Config{Namespace: "otterconf"}
}

// NewCollector creates a collector with the given configuration. A nil
// config uses DefaultConfig.
func NewCollector(config *Config) *Collector {
	if config == nil {
		config = DefaultConfig()
	}
	ns := config.Namespace

	c := &Collector{
		registry: prometheus.NewRegistry(),
		objects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "objects_total",
				Help:      "Declared objects handled, by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		fetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "fetch_errors_total",
				Help:      "Failed reads of existing broker objects, by kind.",
			},
			[]string{"kind"},
		),
		passDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Subsystem: "pass",
				Name:      "duration_seconds",
				Help:      "Duration of a reconciliation pass over one kind.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "runs_total",
				Help:      "Finished runs, by mode and success.",
			},
			[]string{"mode", "success"},
		),
		lastErrors: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "last_run",
				Name:      "errors",
				Help:      "Number of errors reported by the last run.",
			},
			[]string{"mode"},
		),
		lastDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "last_run",
				Name:      "duration_seconds",
				Help:      "Duration of the last run.",
			},
			[]string{"mode"},
		),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "last_run",
				Name:      "timestamp_seconds",
				Help:      "Unix time the last run finished.",
			},
			[]string{"mode"},
		),
	}
	c.registry.MustRegister(c.objects, c.fetchErrors, c.passDuration, c.runs, c.lastErrors, c.lastDuration, c.lastRun)
	return c
}

// Registry exposes the collector's registry, e.g. for an HTTP handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) RecordOutcome(kind models.Kind, outcome models.Outcome) {
	c.objects.WithLabelValues(string(kind), string(outcome)).Inc()
}

func (c *Collector) RecordFetchError(kind models.Kind) {
	c.fetchErrors.WithLabelValues(string(kind)).Inc()
}

func (c *Collector) ObservePass(kind models.Kind, elapsed time.Duration) {
	c.passDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

func (c *Collector) RecordRun(mode string, errors int, elapsed time.Duration) {
	c.runs.WithLabelValues(mode, strconv.FormatBool(errors == 0)).Inc()
	c.lastErrors.WithLabelValues(mode).Set(float64(errors))
	c.lastDuration.WithLabelValues(mode).Set(elapsed.Seconds())
	c.lastRun.WithLabelValues(mode).SetToCurrentTime()
}

// WriteTextfile writes the current metrics in the text exposition format,
// for the node exporter's textfile collector. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
