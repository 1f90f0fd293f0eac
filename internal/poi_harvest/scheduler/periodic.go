package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Periodic repeats a job on a cron schedule until ctx is cancelled.
type Periodic struct {
	Log      *zap.Logger
	Schedule cron.Schedule
	Now      func() time.Time

	// RunImmediately runs the job once before waiting for the first tick.
	RunImmediately bool
}

// NewPeriodic parses a standard five-field cron expression or a descriptor
// such as "@daily" or "@every 6h".
func NewPeriodic(spec string, log *zap.Logger) (*Periodic, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Periodic{
		Log:            log,
		Schedule:       sched,
		Now:            time.Now,
		RunImmediately: true,
	}, nil
}

func (p *Periodic) Run(ctx context.Context, job func(ctx context.Context) error) {
	if p.Log == nil {
		p.Log = zap.NewNop()
	}
	if p.RunImmediately {
		p.runOnce(ctx, job)
	}

	for {
		select {
		case <-ctx.Done():
			p.Log.Info("Periodic runner stopped")
			return
		default:
		}

		next := p.Schedule.Next(now(p))
		sleep := next.Sub(now(p))
		if sleep < 0 {
			sleep = 0
		}
		p.Log.Info("Next run scheduled", zap.Time("at", next), zap.Duration("in", sleep))

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.Log.Info("Periodic runner stopped")
			return
		case <-timer.C:
			p.runOnce(ctx, job)
		}
	}
}

func (p *Periodic) runOnce(ctx context.Context, job func(ctx context.Context) error) {
	start := now(p)
	if err := job(ctx); err != nil {
		// A failed run is retried on the next tick.
		p.Log.Error("Scheduled run failed", zap.Error(err), zap.Duration("took", now(p).Sub(start)))
		return
	}
	p.Log.Info("Scheduled run finished", zap.Duration("took", now(p).Sub(start)))
}

func now(p *Periodic) time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
