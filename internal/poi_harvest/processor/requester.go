package processor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"poi-harvest/internal/poi_harvest/clock"
	"poi-harvest/internal/poi_harvest/model"
	"poi-harvest/internal/poi_harvest/ratelimit"
	"poi-harvest/internal/poi_harvest/usage"
)

// RetryConfig bounds the retry policy.
type RetryConfig struct {
	// MaxAttempts bounds transient failures (network, 5xx).
	MaxAttempts int
	// BaseDelay is the first backoff; attempt i waits BaseDelay * 2^i.
	BaseDelay time.Duration
	// MaxDelay caps a single backoff. Zero means no cap.
	MaxDelay time.Duration
	// MaxRateLimitAttempts bounds consecutive over-quota responses.
	MaxRateLimitAttempts int
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:          3,
		BaseDelay:            2 * time.Second,
		MaxDelay:             60 * time.Second,
		MaxRateLimitAttempts: 5,
	}
}

// Call performs one provider request.
type Call func(ctx context.Context) (model.Page, error)

// Requester wraps a single provider call with rate limiting and bounded retry.
type Requester struct {
	Log     *zap.Logger
	Limiter ratelimit.Limiter
	Usage   *usage.Reporter
	Clock   clock.Clock
	Config  RetryConfig
}

// NewRequester fills zero RetryConfig fields with defaults.
func NewRequester(log *zap.Logger, limiter ratelimit.Limiter, reporter *usage.Reporter, clk clock.Clock, cfg RetryConfig) *Requester {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxRateLimitAttempts <= 0 {
		cfg.MaxRateLimitAttempts = def.MaxRateLimitAttempts
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Requester{
		Log:     log,
		Limiter: limiter,
		Usage:   reporter,
		Clock:   clk,
		Config:  cfg,
	}
}

// Backoff returns the wait before retry i (0-indexed): BaseDelay * 2^i.
func (r *Requester) Backoff(i int) time.Duration {
	delay := r.Config.BaseDelay
	for n := 0; n < i; n++ {
		delay *= 2
		if r.Config.MaxDelay > 0 && delay >= r.Config.MaxDelay {
			return r.Config.MaxDelay
		}
	}
	if r.Config.MaxDelay > 0 && delay > r.Config.MaxDelay {
		return r.Config.MaxDelay
	}
	return delay
}

// Execute runs call until it succeeds, hits a terminal status, or exhausts
// its budget. Rate-limited responses and transient failures are counted
// separately. Every attempt is reported to Usage.
func (r *Requester) Execute(ctx context.Context, item model.WorkItem, call Call) (model.Page, error) {
	var (
		attempt   int
		transient int
		limited   int
	)
	partition, category := item.Partition, item.UsageCategory()

	for {
		attempt++
		if err := r.Limiter.Admit(ctx); err != nil {
			return model.Page{}, err
		}
		r.Usage.Log(partition, category)

		page, err := call(ctx)
		err = classify(page, err)
		if err == nil {
			return page, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.Page{}, ctxErr
		}
		r.Usage.LogError(partition, category, item.SubLabel(), err)

		var delay time.Duration
		switch {
		case model.IsTerminal(err):
			r.Log.Warn("Terminal provider status, not retrying",
				zap.String("partition", partition),
				zap.String("category", item.SubLabel()),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return page, err

		case model.IsRateLimited(err):
			limited++
			if limited >= r.Config.MaxRateLimitAttempts {
				return model.Page{}, &model.FetchError{Cause: err, Attempts: attempt}
			}
			delay = r.Backoff(limited - 1)
			r.Log.Warn("Rate limited, backing off",
				zap.String("partition", partition),
				zap.String("category", item.SubLabel()),
				zap.Int("attempt", limited),
				zap.Int("maxRetries", r.Config.MaxRateLimitAttempts),
				zap.Duration("delay", delay),
			)

		default:
			transient++
			if transient >= r.Config.MaxAttempts {
				r.Log.Error("Retry max attempts exceeded, giving up",
					zap.String("partition", partition),
					zap.String("category", item.SubLabel()),
					zap.Int("maxRetries", r.Config.MaxAttempts),
					zap.Error(err),
				)
				return model.Page{}, &model.FetchError{Cause: err, Attempts: attempt}
			}
			delay = r.Backoff(transient - 1)
			r.Log.Warn("Request failed, retry scheduled",
				zap.String("partition", partition),
				zap.String("category", item.SubLabel()),
				zap.Int("attempt", transient),
				zap.Int("maxRetries", r.Config.MaxAttempts),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		}

		if err := r.Clock.Sleep(ctx, delay); err != nil {
			return model.Page{}, err
		}
	}
}

// classify folds page statuses into the error taxonomy.
func classify(page model.Page, err error) error {
	if err != nil {
		return err
	}
	switch page.Status {
	case model.StatusRateLimited:
		if page.Message != "" {
			return &rateLimitedError{code: page.Code, msg: page.Message}
		}
		return model.ErrRateLimited
	case model.StatusTerminal:
		return &model.TerminalError{Status: page.Code, Message: page.Message}
	}
	return nil
}

type rateLimitedError struct {
	code string
	msg  string
}

func (e *rateLimitedError) Error() string {
	return model.ErrRateLimited.Error() + " (" + e.code + "): " + e.msg
}

func (e *rateLimitedError) Is(target error) bool {
	return errors.Is(model.ErrRateLimited, target)
}
