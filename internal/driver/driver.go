// Package driver implements the Concurrent Driver (spec.md §4.10): a
// bounded worker pool that runs one Orchestrator invocation per
// dependent and delivers DependentReports back to the caller in strict
// enqueue order, regardless of completion order. Adapted from the
// teacher's internal/build/queue.BuildQueue worker-goroutine shape
// (git.home.luguber.info/inful/docbuilder/internal/build/queue) —
// genuinely rewritten on the consumption side, since the teacher's
// queue fans results into a shared active-job map with no ordering
// guarantee, while spec.md §4.10/§5(c) requires the table to be
// deterministic.
package driver

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/imazen/crusader/internal/model"
)

// Job is one unit of work: run produces the DependentReport for a
// single enqueued dependent. The driver never inspects its contents —
// this keeps the package free of any orchestrator/registry import.
type Job struct {
	run func(ctx context.Context) model.DependentReport
}

// NewJob wraps a report-producing function as a driver Job.
func NewJob(run func(ctx context.Context) model.DependentReport) Job {
	return Job{run: run}
}

// Pool is a bounded worker pool sized per spec.md §4.10's `--jobs`
// (default 1, must be >= 1).
type Pool struct {
	workers int
}

// NewPool constructs a Pool. A non-positive size is clamped to 1.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Run submits jobs to the pool and returns their DependentReports in
// the same order jobs were given, independent of which worker finished
// first (spec.md §5(c)). Each job gets its own single-producer/
// single-consumer result channel, as spec.md §4.10 describes; the pool
// itself only bounds how many jobs run concurrently.
func (p *Pool) Run(ctx context.Context, jobs []Job) []model.DependentReport {
	results := make([]model.DependentReport, len(jobs))
	channels := make([]chan model.DependentReport, len(jobs))
	for i := range jobs {
		channels[i] = make(chan model.DependentReport, 1)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.workers)

	for i, job := range jobs {
		i, job := i, job
		group.Go(func() error {
			channels[i] <- job.run(groupCtx)
			return nil
		})
	}

	// Consume in enqueue order: receiving from channels[i] blocks until
	// job i's worker has sent, but other workers keep running meanwhile
	// (each channel is buffered, so a fast worker never stalls waiting
	// for a slow earlier one to be drained).
	for i, ch := range channels {
		results[i] = <-ch
	}

	_ = group.Wait()
	return results
}
