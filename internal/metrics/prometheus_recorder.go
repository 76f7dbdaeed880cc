package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "docpublish"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg              *prom.Registry
	pushAttempts     *prom.CounterVec
	rebases          *prom.CounterVec
	retriesExhausted prom.Counter
	outcomes         *prom.CounterVec
	publishDuration  prom.Histogram
	stageDuration    *prom.HistogramVec
	lastRun          prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{reg: reg}
	pr.pushAttempts = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "push_attempts_total",
		Help:      "Push attempts against the target branch by result",
	}, []string{"result"})
	pr.rebases = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "rebases_total",
		Help:      "Pull-rebase operations after a rejected push by result",
	}, []string{"result"})
	pr.retriesExhausted = prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "retries_exhausted_total",
		Help:      "Publish runs that used every push attempt without landing",
	})
	pr.outcomes = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "run_outcomes_total",
		Help:      "Run outcomes by final status",
	}, []string{"outcome"})
	pr.publishDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "publish_duration_seconds",
		Help:      "Duration of the publish step from staging to final push",
		Buckets:   prom.DefBuckets,
	})
	pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of individual run stages",
		Buckets:   prom.DefBuckets,
	}, []string{"stage"})
	pr.lastRun = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time of the last recorded run outcome",
	})
	reg.MustRegister(pr.pushAttempts, pr.rebases, pr.retriesExhausted, pr.outcomes, pr.publishDuration, pr.stageDuration, pr.lastRun)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

func (p *PrometheusRecorder) IncPushAttempt(result PushResultLabel) {
	if p == nil {
		return
	}
	p.pushAttempts.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncRebase(result RebaseResultLabel) {
	if p == nil {
		return
	}
	p.rebases.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncRetriesExhausted() {
	if p == nil {
		return
	}
	p.retriesExhausted.Inc()
}

func (p *PrometheusRecorder) IncOutcome(outcome string) {
	if p == nil {
		return
	}
	p.outcomes.WithLabelValues(outcome).Inc()
	p.lastRun.SetToCurrentTime()
}

func (p *PrometheusRecorder) ObservePublishDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.publishDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
