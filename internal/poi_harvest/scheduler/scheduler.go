package scheduler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poi-harvest/internal/poi_harvest/model"
)

var ErrCursorNotFound = errors.New("resume cursor not found in work items")

// ItemFunc processes one work item. index is the position within the slice
// handed to Run. Returning an error aborts the run, so callers return only
// fatal errors and absorb per-item failures themselves.
type ItemFunc func(ctx context.Context, index int, item model.WorkItem) error

// FanOut drives items in fixed-size batches. Batches run strictly in order;
// items inside a batch run concurrently and the batch drains fully before
// the next one starts.
type FanOut struct {
	Log *zap.Logger
}

func NewFanOut(log *zap.Logger) *FanOut {
	if log == nil {
		log = zap.NewNop()
	}
	return &FanOut{Log: log}
}

func (f *FanOut) Run(ctx context.Context, items []model.WorkItem, width int, fn ItemFunc) error {
	if width < 1 {
		width = 1
	}
	batches := (len(items) + width - 1) / width

	for b, start := 0, 0; start < len(items); b, start = b+1, start+width {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+width, len(items))

		f.Log.Info("Processing batch",
			zap.Int("batch", b+1),
			zap.Int("batches", batches),
			zap.Int("items", end-start),
		)

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				return fn(gctx, i, items[i])
			})
		}
		if err := g.Wait(); err != nil {
			f.Log.Error("Batch aborted", zap.Int("batch", b+1), zap.Error(err))
			return err
		}
	}
	return nil
}

// Remaining skips every item up to and including the one whose key equals
// cursor. An empty cursor means nothing has completed yet.
func Remaining(items []model.WorkItem, cursor string) ([]model.WorkItem, error) {
	if cursor == "" {
		return items, nil
	}
	for i, it := range items {
		if it.Key() == cursor {
			return items[i+1:], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrCursorNotFound, cursor)
}
