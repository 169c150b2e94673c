package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/LeCoonEtSaBande/foil-report/internal/model"
)

// Namespace is the namespace for all foilreport metrics.
const Namespace = "foilreport"

// Recorder holds the metrics of the publish pipeline in its own registry.
type Recorder struct {
	registry *prometheus.Registry

	RunsTotal            *prometheus.CounterVec
	FailuresTotal        *prometheus.CounterVec
	StepDurationSeconds  *prometheus.GaugeVec
	RawFiles             prometheus.Gauge
	FailedSites          prometheus.Gauge
	ReportBytes          prometheus.Gauge
	LastRunTimestamp     prometheus.Gauge
	LastSuccessTimestamp prometheus.Gauge
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "runs_total",
				Help:      "Total number of pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		FailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "failures_total",
				Help:      "Total number of failed runs by stage and error kind",
			},
			[]string{"stage", "kind"},
		),
		StepDurationSeconds: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of each step of the last run in seconds",
			},
			[]string{"step"},
		),
		RawFiles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "raw_files",
			Help:      "Number of raw data files written by the last run",
		}),
		FailedSites: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "failed_sites",
			Help:      "Number of sites without data in the last run",
		}),
		ReportBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "report_bytes",
			Help:      "Size of the last verified report in bytes",
		}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Start time of the last run as a Unix timestamp",
		}),
		LastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Start time of the last run that swapped the pointer as a Unix timestamp",
		}),
	}
}

// Observe records a finished run.
func (r *Recorder) Observe(run *model.Run) {
	r.RunsTotal.WithLabelValues(run.Outcome()).Inc()
	r.LastRunTimestamp.Set(unix(run.StartedAt))

	r.StepDurationSeconds.Reset()
	for step, d := range run.StepDurations {
		r.StepDurationSeconds.WithLabelValues(step).Set(d.Seconds())
	}
	r.RawFiles.Set(float64(len(run.RawFiles)))
	r.FailedSites.Set(float64(len(run.FailedSites)))

	if run.Succeeded() {
		r.ReportBytes.Set(float64(run.ReportSize))
		r.LastSuccessTimestamp.Set(unix(run.StartedAt))
	}
	if run.Stage == model.StageFailed {
		r.FailuresTotal.WithLabelValues(run.FailedStage, model.KindName(run.Err)).Inc()
	}
	if run.PublishErr != nil {
		r.FailuresTotal.WithLabelValues(model.StageDeployed.String(), model.KindName(run.PublishErr)).Inc()
	}
}

// SetLastSuccess seeds the last success timestamp, typically from the run
// history, so a failed one-shot run still exports it.
func (r *Recorder) SetLastSuccess(t time.Time) {
	if t.IsZero() {
		return
	}
	r.LastSuccessTimestamp.Set(unix(t))
}

// Gatherer returns the registry for custom exporters.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile atomically writes all metrics in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

func unix(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
