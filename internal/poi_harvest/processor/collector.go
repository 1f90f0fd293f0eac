package processor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"poi-harvest/internal/poi_harvest/clock"
	"poi-harvest/internal/poi_harvest/model"
)

// Fetcher issues one page request. token is empty for the first page.
type Fetcher interface {
	Fetch(ctx context.Context, item model.WorkItem, token string) (model.Page, error)
}

type pageState int

const (
	morePages pageState = iota
	done
	aborted
)

// Result is what one work item produced.
type Result struct {
	Entities []model.Entity
	Pages    int
}

// Collector drives multi-page retrieval for one work item. Tokens live only
// inside Collect, so a retried item always starts again from page 1.
type Collector struct {
	Log       *zap.Logger
	Requester *Requester
	Provider  Fetcher
	Clock     clock.Clock
	MaxPages  int
	// PageDelay is the provider's token activation latency.
	PageDelay time.Duration
}

func NewCollector(log *zap.Logger, req *Requester, provider Fetcher, clk clock.Clock, maxPages int, pageDelay time.Duration) *Collector {
	if maxPages <= 0 {
		maxPages = 3
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Collector{
		Log:       log,
		Requester: req,
		Provider:  provider,
		Clock:     clk,
		MaxPages:  maxPages,
		PageDelay: pageDelay,
	}
}

// Collect fetches pages until no token is returned, MaxPages is reached, or a
// terminal status is seen. On a terminal status the entities of earlier pages
// are returned together with the *model.TerminalError. Any other error means
// the item contributes nothing.
func (c *Collector) Collect(ctx context.Context, item model.WorkItem) (Result, error) {
	var (
		res     Result
		token   string
		state   = morePages
		stopErr error
	)

	for state == morePages {
		res.Pages++
		c.Log.Debug("Fetching page",
			zap.String("item", item.String()),
			zap.Int("page", res.Pages),
			zap.Int("maxPages", c.MaxPages),
		)

		page, err := c.Requester.Execute(ctx, item, func(ctx context.Context) (model.Page, error) {
			return c.Provider.Fetch(ctx, item, token)
		})
		switch {
		case model.IsTerminal(err):
			c.Log.Warn("Stopping pagination on terminal status",
				zap.String("item", item.String()),
				zap.Int("page", res.Pages),
				zap.Error(err),
			)
			stopErr = err
			state = aborted
			continue
		case err != nil:
			return Result{Pages: res.Pages}, err
		}

		res.Entities = append(res.Entities, enrich(page.Entities, item, c.Clock.Now())...)
		c.Log.Debug("Page fetched",
			zap.String("item", item.String()),
			zap.Int("page", res.Pages),
			zap.String("status", page.Status.String()),
			zap.Int("entities", len(page.Entities)),
		)

		// An empty page with a token still continues.
		switch {
		case page.NextToken == "":
			state = done
		case res.Pages >= c.MaxPages:
			state = done
		default:
			token = page.NextToken
			if err := c.Clock.Sleep(ctx, c.PageDelay); err != nil {
				return Result{Pages: res.Pages}, err
			}
		}
	}

	return res, stopErr
}

// enrich stamps entities with the originating item's context. The input
// slice is left untouched.
func enrich(in []model.Entity, item model.WorkItem, at time.Time) []model.Entity {
	out := make([]model.Entity, len(in))
	for i, e := range in {
		e.Partition = item.Partition
		if item.Category != "" {
			e.Category = item.Category
		}
		e.FetchedAt = at.UTC()
		out[i] = e
	}
	return out
}
