package metrics

import "time"

// OutcomeLabel is used for dependent-report outcome metrics dimensions.
type OutcomeLabel string

const (
	OutcomePassed    OutcomeLabel = "passed"
	OutcomeRegressed OutcomeLabel = "regressed"
	OutcomeBroken    OutcomeLabel = "broken"
	OutcomeSkipped   OutcomeLabel = "skipped"
	OutcomeError     OutcomeLabel = "error"
)

// StageResultLabel enumerates per-stage result categories for counters.
type StageResultLabel string

const (
	StageResultSuccess StageResultLabel = "success"
	StageResultFailed  StageResultLabel = "failed"
	StageResultSkipped StageResultLabel = "skipped"
)

// Recorder defines observability hooks for pipeline and dependent metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe for nil receivers when using the NoopRecorder (allowing
// optional injection).
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObservePipelineDuration(d time.Duration)
	IncStageResult(stage string, result StageResultLabel)
	IncDependentOutcome(outcome OutcomeLabel)
	ObserveStagingDuration(dependent string, d time.Duration, success bool)
	IncStagingResult(success bool)
	SetActiveWorkers(n int)
	IncPipelineRetry(stage string)
	IncPipelineRetryExhausted(stage string)
	IncRegistryRequest(endpoint string, success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)         {}
func (NoopRecorder) ObservePipelineDuration(time.Duration)              {}
func (NoopRecorder) IncStageResult(string, StageResultLabel)            {}
func (NoopRecorder) IncDependentOutcome(OutcomeLabel)                   {}
func (NoopRecorder) ObserveStagingDuration(string, time.Duration, bool) {}
func (NoopRecorder) IncStagingResult(bool)                              {}
func (NoopRecorder) SetActiveWorkers(int)                               {}
func (NoopRecorder) IncPipelineRetry(string)                            {}
func (NoopRecorder) IncPipelineRetryExhausted(string)                   {}
func (NoopRecorder) IncRegistryRequest(string, bool)                    {}
