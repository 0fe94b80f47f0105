// Package schedule runs periodic background jobs (snapshot writes,
// conversation and activity pruning) on cron expressions.
package schedule

import "context"

// Job defines a periodic background task.
type Job interface {
	// Name returns a unique identifier for this job, used for logging
	// and duplicate detection.
	Name() string

	// Schedule returns a 5-field cron expression (e.g. "*/5 * * * *").
	Schedule() string

	// Run executes the job. Implementations should check ctx.Done() for
	// graceful cancellation.
	Run(ctx context.Context) error
}

// funcJob adapts a plain function into a Job.
type funcJob struct {
	name string
	spec string
	fn   func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Schedule() string              { return j.spec }
func (j funcJob) Run(ctx context.Context) error { return j.fn(ctx) }

// JobFunc wraps fn as a Job with the given name and cron expression.
func JobFunc(name, spec string, fn func(ctx context.Context) error) Job {
	return funcJob{name: name, spec: spec, fn: fn}
}
