package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("check", 150*time.Millisecond)
	pr.ObservePipelineDuration(500 * time.Millisecond)
	pr.IncStageResult("check", StageResultSuccess)
	pr.IncDependentOutcome(OutcomePassed)
	pr.ObserveStagingDuration("load_image", 2*time.Second, true)
	pr.IncStagingResult(true)
	pr.SetActiveWorkers(3)
	pr.IncPipelineRetry("fetch")
	pr.IncPipelineRetryExhausted("fetch")
	pr.IncRegistryRequest("versions", true)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
}
