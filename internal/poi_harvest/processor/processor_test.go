package processor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"poi-harvest/internal/poi_harvest/clock"
	"poi-harvest/internal/poi_harvest/model"
	"poi-harvest/internal/poi_harvest/processor"
	"poi-harvest/internal/poi_harvest/ratelimit"
	"poi-harvest/internal/poi_harvest/usage"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type response struct {
	page model.Page
	err  error
}

// scriptedProvider replays responses in order and records the tokens it saw.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []response
	tokens    []string
}

func (p *scriptedProvider) Fetch(_ context.Context, _ model.WorkItem, token string) (model.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens = append(p.tokens, token)
	if len(p.responses) == 0 {
		return model.Page{Status: model.StatusEmpty}, nil
	}
	r := p.responses[0]
	p.responses = p.responses[1:]
	return r.page, r.err
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tokens)
}

func entities(ids ...string) []model.Entity {
	out := make([]model.Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Entity{ID: id, Name: "place " + id})
	}
	return out
}

func newHarness(p processor.Fetcher, cfg processor.RetryConfig) (*processor.Collector, *clock.Fake, *usage.Reporter) {
	clk := clock.NewFake(epoch)
	rep := usage.NewReporter(clk, nil)
	lim := ratelimit.NewWindow(1000, clk, nil)
	req := processor.NewRequester(zap.NewNop(), lim, rep, clk, cfg)
	return processor.NewCollector(zap.NewNop(), req, p, clk, 3, 2*time.Second), clk, rep
}

var cityItem = model.NewAreaQuery("CityA", 1, 2, 5000, "museum")

func TestBackoffDoubles(t *testing.T) {
	req := processor.NewRequester(zap.NewNop(), nil, nil, nil, processor.RetryConfig{BaseDelay: 2000 * time.Millisecond})

	assert.Equal(t, 2000*time.Millisecond, req.Backoff(0))
	assert.Equal(t, 4000*time.Millisecond, req.Backoff(1))
	assert.Equal(t, 8000*time.Millisecond, req.Backoff(2))
}

func TestBackoffIsCapped(t *testing.T) {
	req := processor.NewRequester(zap.NewNop(), nil, nil, nil, processor.RetryConfig{
		BaseDelay: time.Second,
		MaxDelay:  5 * time.Second,
	})
	assert.Equal(t, 4*time.Second, req.Backoff(2))
	assert.Equal(t, 5*time.Second, req.Backoff(3))
	assert.Equal(t, 5*time.Second, req.Backoff(10))
}

func TestRequesterRetriesTransientThenSucceeds(t *testing.T) {
	p := &scriptedProvider{responses: []response{
		{err: &model.TransientError{Err: errors.New("connection reset")}},
		{err: &model.TransientError{Err: errors.New("502")}},
		{page: model.Page{Status: model.StatusOK, Entities: entities("a")}},
	}}
	c, clk, rep := newHarness(p, processor.RetryConfig{MaxAttempts: 3, BaseDelay: 2 * time.Second})

	res, err := c.Collect(context.Background(), cityItem)
	require.NoError(t, err)
	assert.Len(t, res.Entities, 1)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, clk.Sleeps())

	r := rep.Report()
	assert.Equal(t, 3, r.TotalCalls)
	assert.Equal(t, 2, r.ErrorCount)
	assert.Equal(t, "museum", r.Errors[0].Label)
}

func TestRequesterGivesUpAfterMaxAttempts(t *testing.T) {
	boom := &model.TransientError{Err: errors.New("timeout")}
	p := &scriptedProvider{responses: []response{{err: boom}, {err: boom}, {err: boom}, {err: boom}}}
	c, _, _ := newHarness(p, processor.RetryConfig{MaxAttempts: 3, BaseDelay: time.Second})

	res, err := c.Collect(context.Background(), cityItem)

	var fe *model.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 3, fe.Attempts)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, res.Entities)
	assert.Equal(t, 3, p.calls())
}

func TestRequesterCapsRateLimitedRetries(t *testing.T) {
	limited := response{page: model.Page{Status: model.StatusRateLimited, Code: "OVER_QUERY_LIMIT"}}
	p := &scriptedProvider{responses: []response{limited, limited, limited, limited, limited, limited}}
	c, clk, rep := newHarness(p, processor.RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, MaxRateLimitAttempts: 5})

	_, err := c.Collect(context.Background(), cityItem)

	var fe *model.FetchError
	require.ErrorAs(t, err, &fe)
	assert.True(t, model.IsRateLimited(err))
	assert.Equal(t, 5, fe.Attempts)
	assert.Equal(t, 5, p.calls())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}, clk.Sleeps())
	assert.Equal(t, 5, rep.Report().TotalCalls)
}

func TestRequesterRateLimitDoesNotConsumeTransientBudget(t *testing.T) {
	p := &scriptedProvider{responses: []response{
		{page: model.Page{Status: model.StatusRateLimited}},
		{page: model.Page{Status: model.StatusRateLimited}},
		{page: model.Page{Status: model.StatusRateLimited}},
		{err: &model.TransientError{Err: errors.New("reset")}},
		{page: model.Page{Status: model.StatusOK, Entities: entities("x")}},
	}}
	c, _, _ := newHarness(p, processor.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond})

	res, err := c.Collect(context.Background(), cityItem)
	require.NoError(t, err)
	assert.Len(t, res.Entities, 1)
	assert.Equal(t, 5, p.calls())
}

func TestCollectorStopsWhenTokenAbsent(t *testing.T) {
	p := &scriptedProvider{responses: []response{
		{page: model.Page{Status: model.StatusOK, Entities: entities("a", "b"), NextToken: "t1"}},
		{page: model.Page{Status: model.StatusOK, Entities: entities("c"), NextToken: "t2"}},
		{page: model.Page{Status: model.StatusOK, Entities: entities("d")}},
		{page: model.Page{Status: model.StatusOK, Entities: entities("never")}},
	}}
	c, clk, _ := newHarness(p, processor.RetryConfig{})
	c.MaxPages = 10

	res, err := c.Collect(context.Background(), cityItem)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 3, p.calls())
	assert.Equal(t, []string{"", "t1", "t2"}, p.tokens)
	assert.Len(t, res.Entities, 4)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, clk.Sleeps())
}

func TestCollectorTerminalOnFirstPage(t *testing.T) {
	p := &scriptedProvider{responses: []response{
		{page: model.Page{Status: model.StatusTerminal, Code: "REQUEST_DENIED", Message: "bad key"}},
		{page: model.Page{Status: model.StatusOK, Entities: entities("a")}},
	}}
	c, _, rep := newHarness(p, processor.RetryConfig{})

	res, err := c.Collect(context.Background(), cityItem)
	assert.True(t, model.IsTerminal(err))
	assert.Equal(t, 1, res.Pages)
	assert.Empty(t, res.Entities)
	assert.Equal(t, 1, p.calls())
	assert.Equal(t, 1, rep.Report().ErrorCount)
}

func TestCollectorTerminalKeepsEarlierPages(t *testing.T) {
	p := &scriptedProvider{responses: []response{
		{page: model.Page{Status: model.StatusOK, Entities: entities("a"), NextToken: "t1"}},
		{page: model.Page{Status: model.StatusTerminal, Code: "INVALID_REQUEST"}},
	}}
	c, _, _ := newHarness(p, processor.RetryConfig{})

	res, err := c.Collect(context.Background(), cityItem)
	assert.True(t, model.IsTerminal(err))
	assert.Equal(t, 2, res.Pages)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "a", res.Entities[0].ID)
}

func TestCollectorRespectsPageCap(t *testing.T) {
	var responses []response
	for i := 0; i < 5; i++ {
		responses = append(responses, response{page: model.Page{Status: model.StatusOK, Entities: entities("p"), NextToken: "more"}})
	}
	p := &scriptedProvider{responses: responses}
	c, _, _ := newHarness(p, processor.RetryConfig{})

	res, err := c.Collect(context.Background(), cityItem)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 3, p.calls())
}

func TestCollectorEmptyPageWithTokenContinues(t *testing.T) {
	p := &scriptedProvider{responses: []response{
		{page: model.Page{Status: model.StatusEmpty, NextToken: "t1"}},
		{page: model.Page{Status: model.StatusOK, Entities: entities("a")}},
	}}
	c, _, _ := newHarness(p, processor.RetryConfig{})

	res, err := c.Collect(context.Background(), cityItem)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Len(t, res.Entities, 1)
}

func TestCollectorEnrichesWithItemContext(t *testing.T) {
	raw := entities("a")
	p := &scriptedProvider{responses: []response{{page: model.Page{Status: model.StatusOK, Entities: raw}}}}
	c, _, _ := newHarness(p, processor.RetryConfig{})

	res, err := c.Collect(context.Background(), cityItem)
	require.NoError(t, err)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "CityA", res.Entities[0].Partition)
	assert.Equal(t, "museum", res.Entities[0].Category)
	assert.Equal(t, epoch, res.Entities[0].FetchedAt)
	assert.Empty(t, raw[0].Partition, "enrichment must not touch the provider page")
}

func TestCollectorStopsOnCancelledContext(t *testing.T) {
	p := &scriptedProvider{responses: []response{{err: &model.TransientError{Err: errors.New("x")}}}}
	c, _, _ := newHarness(p, processor.RetryConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Collect(ctx, cityItem)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectorDetailKeepsSourceCategory(t *testing.T) {
	p := &scriptedProvider{responses: []response{{page: model.Page{Status: model.StatusOK, Entities: entities("a")}}}}
	c, _, _ := newHarness(p, processor.RetryConfig{})

	res, err := c.Collect(context.Background(), model.NewDetailLookup("CityA", "museum", "a"))
	require.NoError(t, err)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "CityA", res.Entities[0].Partition)
	assert.Equal(t, "museum", res.Entities[0].Category)
}
