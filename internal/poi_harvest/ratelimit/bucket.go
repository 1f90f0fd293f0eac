package ratelimit

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"poi-harvest/internal/poi_harvest/clock"
)

// Bucket paces requests with a token bucket of burst 1, spreading calls
// evenly instead of letting a full window go out at once.
type Bucket struct {
	limiter *rate.Limiter
	clock   clock.Clock
	log     *zap.Logger
}

func NewBucket(perSecond float64, clk clock.Clock, log *zap.Logger) *Bucket {
	if perSecond <= 0 {
		perSecond = 1
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bucket{
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		clock:   clk,
		log:     log,
	}
}

func (b *Bucket) Admit(ctx context.Context) error {
	now := b.clock.Now()
	r := b.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	b.log.Debug("Rate limiter: waiting before request", zap.Duration("delay", delay))
	if err := b.clock.Sleep(ctx, delay); err != nil {
		r.CancelAt(b.clock.Now())
		return err
	}
	return nil
}

// New picks the limiter implementation by name ("window" or "bucket").
func New(kind string, perSecond int, clk clock.Clock, log *zap.Logger) Limiter {
	if kind == "bucket" {
		return NewBucket(float64(perSecond), clk, log)
	}
	return NewWindow(perSecond, clk, log)
}
