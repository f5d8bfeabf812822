package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"
)

// Recorder collects the metrics of one pipeline run on a private registry.
type Recorder struct {
	registry     *prometheus.Registry
	stepDuration *prometheus.GaugeVec
	stepFailures *prometheus.CounterVec
	records      prometheus.Counter
	packages     prometheus.Counter
	reportRows   prometheus.Gauge
	ratioLookups *prometheus.CounterVec
	lastSuccess  prometheus.Gauge
}

// New creates a recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		stepDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lumator_step_duration_seconds",
				Help: "Duration of the last execution of a pipeline step",
			},
			[]string{"step"},
		),
		stepFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lumator_step_failures_total",
				Help: "Number of failed pipeline steps",
			},
			[]string{"step"},
		),
		records: factory.NewCounter(prometheus.CounterOpts{
			Name: "lumator_demand_records_total",
			Help: "Demand records written to the demand file",
		}),
		packages: factory.NewCounter(prometheus.CounterOpts{
			Name: "lumator_demand_packages_total",
			Help: "Packages allocated across shipping option groups",
		}),
		reportRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lumator_report_rows",
			Help: "Rows in the last reconstructed report",
		}),
		ratioLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lumator_ratio_lookups_total",
				Help: "Ratio lookups by cache outcome",
			},
			[]string{"outcome"},
		),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lumator_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
	}
}

// RecordStep records the duration and outcome of a pipeline step.
func (r *Recorder) RecordStep(step string, d time.Duration, err error) {
	r.stepDuration.WithLabelValues(step).Set(d.Seconds())
	if err != nil {
		r.stepFailures.WithLabelValues(step).Inc()
	}
}

// RecordDemand records the written demand records and their packages.
func (r *Recorder) RecordDemand(records int, packages int64) {
	r.records.Add(float64(records))
	r.packages.Add(float64(packages))
}

// RecordReport records the number of reconstructed report rows.
func (r *Recorder) RecordReport(rows int) {
	r.reportRows.Set(float64(rows))
}

// RecordRatioCache records cache hits and misses.
func (r *Recorder) RecordRatioCache(hits, misses int) {
	r.ratioLookups.WithLabelValues("hit").Add(float64(hits))
	r.ratioLookups.WithLabelValues("miss").Add(float64(misses))
}

// MarkSuccess stamps the completion time of a successful run.
func (r *Recorder) MarkSuccess(at time.Time) {
	r.lastSuccess.Set(float64(at.Unix()))
}

// Push sends the registry to a Pushgateway. An empty URL disables pushing.
func (r *Recorder) Push(url, job, runID string) error {
	if url == "" {
		return nil
	}
	err := push.New(url, job).
		Gatherer(r.registry).
		Grouping("run_id", runID).
		Push()
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	log.Debug().Str("url", url).Str("job", job).Msg("Metrics pushed")
	return nil
}
