// Package cronrunner schedules background jobs, currently only the daily
// portfolio snapshot. Specs use the six-field form with a leading seconds
// column.
package cronrunner

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Runner struct {
	sched   *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

// New builds a stopped runner whose jobs inherit baseCtx, so a server
// shutdown cancels in-flight jobs.
func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		sched:   cron.New(cron.WithSeconds()),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

// Add registers job under spec. The job runs with the runner's base context.
func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.sched.AddFunc(spec, func() {
		ctx := context.Background()
		if r != nil && r.baseCtx != nil {
			ctx = r.baseCtx
		}
		job(ctx)
	})
}

func (r *Runner) Start() {
	if r.logger != nil {
		r.logger.Info("scheduler started")
	}
	r.sched.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (r *Runner) Stop() {
	ctx := r.sched.Stop()
	<-ctx.Done()
	if r.logger != nil {
		r.logger.Info("scheduler stopped")
	}
}
