// Package ratelimit throttles outbound provider calls.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"poi-harvest/internal/poi_harvest/clock"
)

// Limiter suspends the caller until a request may be sent. The context only
// cancels the wait; admission itself never fails.
type Limiter interface {
	Admit(ctx context.Context) error
}

// Window admits at most Max requests per rolling window. Waiters are served
// strictly in arrival order: only the head of the queue evaluates the window.
type Window struct {
	Max    int
	Period time.Duration

	clock clock.Clock
	log   *zap.Logger

	mu      sync.Mutex
	stamps  []time.Time
	waiters []chan struct{}
}

// NewWindow creates a sliding-window limiter of perSecond admissions per second.
func NewWindow(perSecond int, clk clock.Clock, log *zap.Logger) *Window {
	if perSecond <= 0 {
		perSecond = 1
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Window{
		Max:    perSecond,
		Period: time.Second,
		clock:  clk,
		log:    log,
	}
}

func (w *Window) Admit(ctx context.Context) error {
	turn := make(chan struct{})

	w.mu.Lock()
	w.waiters = append(w.waiters, turn)
	head := len(w.waiters) == 1
	w.mu.Unlock()

	if !head {
		select {
		case <-turn:
		case <-ctx.Done():
			w.leave(turn)
			return ctx.Err()
		}
	}
	defer w.leave(turn)

	// Loop: the window can still be full after waking.
	for {
		w.mu.Lock()
		now := w.clock.Now()
		w.prune(now)
		if len(w.stamps) < w.Max {
			w.stamps = append(w.stamps, now)
			w.mu.Unlock()
			return nil
		}
		wait := w.stamps[0].Add(w.Period).Sub(now)
		w.mu.Unlock()

		w.log.Debug("Rate limit window full, waiting",
			zap.Int("max", w.Max),
			zap.Duration("delay", wait),
		)
		if err := w.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// prune drops admissions that are a full period old. Caller holds mu.
func (w *Window) prune(now time.Time) {
	i := 0
	for i < len(w.stamps) && now.Sub(w.stamps[i]) >= w.Period {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// leave removes turn from the queue and hands the head position on.
func (w *Window) leave(turn chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, ch := range w.waiters {
		if ch != turn {
			continue
		}
		w.waiters = append(w.waiters[:i], w.waiters[i+1:]...)
		if i == 0 && len(w.waiters) > 0 {
			close(w.waiters[0])
		}
		return
	}
}

// Pending reports how many callers are queued, including the head.
func (w *Window) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.waiters)
}
