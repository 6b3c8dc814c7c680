package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	stageDuration    *prom.HistogramVec
	pipelineDuration prom.Histogram
	stageResults     *prom.CounterVec
	dependentOutcome *prom.CounterVec
	stagingDuration  *prom.HistogramVec
	stagingResults   *prom.CounterVec
	activeWorkers    prom.Gauge
	retries          *prom.CounterVec
	retriesExhausted *prom.CounterVec
	registryRequests *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics.
// Each call registers a fresh set of collectors, so calling it twice
// with the same registry panics on duplicate registration.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "crusader",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages (fetch/check/test)",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.pipelineDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "crusader",
			Name:      "pipeline_duration_seconds",
			Help:      "Total duration of a single version's three-step pipeline run",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "crusader",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.dependentOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "crusader",
			Name:      "dependent_outcomes_total",
			Help:      "Dependent reports by final verdict",
		}, []string{"outcome"})
		pr.stagingDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "crusader",
			Name:      "staging_ensure_duration_seconds",
			Help:      "Duration of staging-store ensure operations (download+extract)",
			Buckets:   prom.DefBuckets,
		}, []string{"dependent", "result"})
		pr.stagingResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "crusader",
			Name:      "staging_ensure_results_total",
			Help:      "Staging ensure results by success/failure",
		}, []string{"result"})
		pr.activeWorkers = prom.NewGauge(prom.GaugeOpts{
			Namespace: "crusader",
			Name:      "active_workers",
			Help:      "Number of dependent-orchestrator tasks currently running",
		})
		pr.retries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "crusader",
			Name:      "pipeline_retries_total",
			Help:      "Total pipeline stage retries (transient failures)",
		}, []string{"stage"})
		pr.retriesExhausted = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "crusader",
			Name:      "pipeline_retry_exhausted_total",
			Help:      "Count of stages where retries were exhausted",
		}, []string{"stage"})
		pr.registryRequests = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "crusader",
			Name:      "registry_requests_total",
			Help:      "Registry client HTTP requests by endpoint and outcome",
		}, []string{"endpoint", "result"})
		reg.MustRegister(
			pr.stageDuration, pr.pipelineDuration, pr.stageResults, pr.dependentOutcome,
			pr.stagingDuration, pr.stagingResults, pr.activeWorkers, pr.retries,
			pr.retriesExhausted, pr.registryRequests,
		)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObservePipelineDuration(d time.Duration) {
	if p == nil || p.pipelineDuration == nil {
		return
	}
	p.pipelineDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result StageResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncDependentOutcome(outcome OutcomeLabel) {
	if p == nil || p.dependentOutcome == nil {
		return
	}
	p.dependentOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveStagingDuration(dependent string, d time.Duration, success bool) {
	if p == nil || p.stagingDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.stagingDuration.WithLabelValues(dependent, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStagingResult(success bool) {
	if p == nil || p.stagingResults == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.stagingResults.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) SetActiveWorkers(n int) {
	if p == nil || p.activeWorkers == nil {
		return
	}
	p.activeWorkers.Set(float64(n))
}

func (p *PrometheusRecorder) IncPipelineRetry(stage string) {
	if p == nil || p.retries == nil {
		return
	}
	p.retries.WithLabelValues(stage).Inc()
}

func (p *PrometheusRecorder) IncPipelineRetryExhausted(stage string) {
	if p == nil || p.retriesExhausted == nil {
		return
	}
	p.retriesExhausted.WithLabelValues(stage).Inc()
}

func (p *PrometheusRecorder) IncRegistryRequest(endpoint string, success bool) {
	if p == nil || p.registryRequests == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.registryRequests.WithLabelValues(endpoint, res).Inc()
}
