// Package usage accumulates call counts and errors for the run report.
package usage

import (
	"sync"
	"time"

	"poi-harvest/internal/poi_harvest/clock"
	"poi-harvest/internal/poi_harvest/model"
)

// Reporter is shared by every concurrently running work item; all mutation
// is serialized by mu.
type Reporter struct {
	mu         sync.Mutex
	clock      clock.Clock
	start      time.Time
	prior      float64 // seconds accumulated by earlier sessions of a resumed run
	calls      int
	byPart     map[string]int
	byCategory map[string]int
	errors     []model.UsageError

	metrics *Metrics
}

func NewReporter(clk clock.Clock, metrics *Metrics) *Reporter {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Reporter{
		clock:      clk,
		start:      clk.Now(),
		byPart:     make(map[string]int),
		byCategory: make(map[string]int),
		metrics:    metrics,
	}
}

// Log counts one outbound call.
func (r *Reporter) Log(partition, category string) {
	r.mu.Lock()
	r.calls++
	r.byPart[partition]++
	r.byCategory[category]++
	r.mu.Unlock()

	r.metrics.call(partition, category)
}

// LogError records a failed attempt. label is the category or entity id.
func (r *Reporter) LogError(partition, category, label string, err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	r.errors = append(r.errors, model.UsageError{
		Partition: partition,
		Label:     label,
		Error:     err.Error(),
		Timestamp: r.clock.Now().UTC(),
	})
	r.mu.Unlock()

	r.metrics.failure(partition, category)
}

// Entities counts entities admitted for a partition (metrics only).
func (r *Reporter) Entities(partition string, n int) {
	r.metrics.entities(partition, n)
}

// Restore seeds the reporter with a report saved by an interrupted session.
func (r *Reporter) Restore(prev model.UsageReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls += prev.TotalCalls
	r.prior += prev.Duration
	for k, v := range prev.CallsByPartition {
		r.byPart[k] += v
	}
	for k, v := range prev.CallsByCategory {
		r.byCategory[k] += v
	}
	r.errors = append(append([]model.UsageError(nil), prev.Errors...), r.errors...)
}

// Report returns a copy of the current totals.
func (r *Reporter) Report() model.UsageReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := model.UsageReport{
		TotalCalls:       r.calls,
		Duration:         r.prior + r.clock.Now().Sub(r.start).Seconds(),
		CallsByPartition: make(map[string]int, len(r.byPart)),
		CallsByCategory:  make(map[string]int, len(r.byCategory)),
		ErrorCount:       len(r.errors),
		Errors:           make([]model.UsageError, len(r.errors)),
	}
	for k, v := range r.byPart {
		rep.CallsByPartition[k] = v
	}
	for k, v := range r.byCategory {
		rep.CallsByCategory[k] = v
	}
	copy(rep.Errors, r.errors)
	return rep
}
