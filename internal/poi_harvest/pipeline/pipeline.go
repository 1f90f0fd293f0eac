// Package pipeline runs one resumable harvest: it fans work items out over
// the collector, deduplicates what comes back, snapshots progress after every
// item and writes the final artifacts.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"poi-harvest/internal/poi_harvest/clock"
	"poi-harvest/internal/poi_harvest/dedup"
	"poi-harvest/internal/poi_harvest/events"
	"poi-harvest/internal/poi_harvest/model"
	"poi-harvest/internal/poi_harvest/output"
	"poi-harvest/internal/poi_harvest/processor"
	"poi-harvest/internal/poi_harvest/progress"
	"poi-harvest/internal/poi_harvest/scheduler"
	"poi-harvest/internal/poi_harvest/sink"
	"poi-harvest/internal/poi_harvest/usage"
)

type Collector interface {
	Collect(ctx context.Context, item model.WorkItem) (processor.Result, error)
}

// DedupFactory builds the run-scoped deduplicator once the run id is known.
type DedupFactory func(ctx context.Context, runID string) (dedup.Deduplicator, error)

func MemoryDedup(context.Context, string) (dedup.Deduplicator, error) {
	return dedup.NewSet(), nil
}

type Pipeline struct {
	Log       *zap.Logger
	Collector Collector
	Usage     *usage.Reporter
	Progress  *progress.Store
	Writer    *output.Writer
	Scheduler *scheduler.FanOut
	Sinks     []sink.Sink
	Events    events.Publisher
	NewDedup  DedupFactory
	Clock     clock.Clock

	// Width is the number of items run concurrently in one batch.
	Width int
	// Fresh discards saved progress instead of resuming from it.
	Fresh bool
}

// Summary describes a finished run.
type Summary struct {
	RunID     string
	Resumed   bool
	Processed int // items run by this session
	Skipped   int // items already completed by an earlier session
	Entities  []model.Entity
	Report    model.UsageReport
	Paths     output.Paths
}

type run struct {
	mu     sync.Mutex
	state  *model.RunState
	cursor *progress.Cursor
	base   int
	dedup  dedup.Deduplicator
}

// Run processes items to completion. Per-item failures are absorbed and show
// up only in the usage report; the returned error is a *model.FatalError or
// the context error.
func (p *Pipeline) Run(ctx context.Context, items []model.WorkItem) (*Summary, error) {
	p.defaults()

	state, resumed, err := p.loadState()
	if err != nil {
		return nil, err
	}

	remaining, err := scheduler.Remaining(items, state.Cursor)
	if err != nil {
		return nil, model.Fatal("resume", err)
	}

	dd, err := p.NewDedup(ctx, state.RunID)
	if err != nil {
		return nil, model.Fatal("dedup setup", err)
	}
	// A shared backend can hold ids admitted after the last snapshot; reset it
	// to exactly the saved entities so re-run items admit them again.
	if resumed {
		if err := dd.Clear(ctx); err != nil {
			return nil, model.Fatal("dedup reset", err)
		}
	}
	if len(state.Entities) > 0 {
		ids := make([]string, len(state.Entities))
		for i, e := range state.Entities {
			ids[i] = e.ID
		}
		if err := dd.Seed(ctx, ids); err != nil {
			return nil, model.Fatal("dedup seed", err)
		}
	}

	r := &run{
		state:  state,
		cursor: progress.NewCursor(remaining, state.Cursor),
		base:   len(items) - len(remaining),
		dedup:  dd,
	}

	p.Log.Info("Harvest started",
		zap.String("runId", state.RunID),
		zap.Bool("resumed", resumed),
		zap.Int("items", len(items)),
		zap.Int("remaining", len(remaining)),
		zap.Int("width", p.Width),
	)

	err = p.Scheduler.Run(ctx, remaining, p.Width, func(ctx context.Context, i int, item model.WorkItem) error {
		return p.process(ctx, r, i, item)
	})
	if err != nil {
		return nil, err
	}

	return p.finish(ctx, r, resumed, len(remaining))
}

func (p *Pipeline) defaults() {
	if p.Log == nil {
		p.Log = zap.NewNop()
	}
	if p.Clock == nil {
		p.Clock = clock.Real{}
	}
	if p.Usage == nil {
		p.Usage = usage.NewReporter(p.Clock, nil)
	}
	if p.Scheduler == nil {
		p.Scheduler = scheduler.NewFanOut(p.Log)
	}
	if p.Events == nil {
		p.Events = events.Nop{}
	}
	if p.NewDedup == nil {
		p.NewDedup = MemoryDedup
	}
	if p.Width < 1 {
		p.Width = 1
	}
}

func (p *Pipeline) loadState() (*model.RunState, bool, error) {
	state, err := p.Progress.Load()
	if err != nil {
		return nil, false, model.Fatal("load progress", err)
	}
	if state != nil && p.Fresh {
		p.Log.Info("Discarding saved progress", zap.String("runId", state.RunID))
		if err := p.Progress.Remove(); err != nil {
			return nil, false, model.Fatal("discard progress", err)
		}
		state = nil
	}
	if state == nil {
		return &model.RunState{
			RunID:     uuid.NewString(),
			Timestamp: p.Clock.Now().UTC(),
			Usage: model.UsageReport{
				CallsByPartition: map[string]int{},
				CallsByCategory:  map[string]int{},
			},
		}, false, nil
	}
	p.Usage.Restore(state.Usage)
	return state, true, nil
}

// process runs one item. Only dedup backend and snapshot failures escape as
// errors; everything else degrades to a smaller contribution.
func (p *Pipeline) process(ctx context.Context, r *run, i int, item model.WorkItem) error {
	res, err := p.Collector.Collect(ctx, item)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		p.itemFailed(item, err)
	}

	admitted := make([]model.Entity, 0, len(res.Entities))
	for _, e := range res.Entities {
		ok, derr := r.dedup.Admit(ctx, e.ID)
		if derr != nil {
			return model.Fatal("dedup admit", derr)
		}
		if ok {
			admitted = append(admitted, e)
		}
	}
	p.Usage.Entities(item.Partition, len(admitted))

	if err := p.record(r, i, item, admitted); err != nil {
		return err
	}

	p.Log.Info("Item finished",
		zap.String("item", item.String()),
		zap.Int("pages", res.Pages),
		zap.Int("found", len(res.Entities)),
		zap.Int("admitted", len(admitted)),
	)

	ev := events.ItemCompleted{
		RunID:     r.state.RunID,
		Item:      item.Key(),
		Partition: item.Partition,
		Category:  item.Category,
		Admitted:  len(admitted),
		Pages:     res.Pages,
		At:        p.Clock.Now().UTC(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if perr := p.Events.Publish(ctx, ev); perr != nil {
		p.Log.Debug("Event not published", zap.String("item", item.Key()), zap.Error(perr))
	}
	return nil
}

func (p *Pipeline) itemFailed(item model.WorkItem, err error) {
	var fe *model.FetchError
	switch {
	case errors.As(err, &fe):
		p.Log.Error("Item abandoned, contributes no entities",
			zap.String("item", item.String()),
			zap.Int("attempts", fe.Attempts),
			zap.Error(err),
		)
	case model.IsTerminal(err):
		p.Log.Warn("Item stopped early", zap.String("item", item.String()), zap.Error(err))
	default:
		p.Log.Error("Item failed", zap.String("item", item.String()), zap.Error(err))
	}
}

// record appends admitted entities and snapshots the run. Snapshots are
// serialized so the file always reflects a single consistent state.
func (p *Pipeline) record(r *run, i int, item model.WorkItem, admitted []model.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.state
	s.Entities = append(s.Entities, admitted...)
	s.TotalEntities = len(s.Entities)
	s.CurrentPartition = item.Partition
	s.CurrentCategory = item.SubLabel()
	s.Cursor = r.cursor.Complete(i)
	s.Completed = r.base + r.cursor.Completed()
	s.Usage = p.Usage.Report()
	s.Timestamp = p.Clock.Now().UTC()

	if err := p.Progress.Snapshot(s); err != nil {
		return model.Fatal("snapshot", err)
	}
	return nil
}

func (p *Pipeline) finish(ctx context.Context, r *run, resumed bool, processed int) (*Summary, error) {
	entities := r.state.Entities
	report := p.Usage.Report()

	paths, err := p.Writer.WriteAll(entities, report, p.Clock.Now())
	if err != nil {
		return nil, err
	}

	for _, s := range p.Sinks {
		start := time.Now()
		n, err := s.Write(ctx, entities)
		if err != nil {
			return nil, model.Fatal("sink "+s.Name(), err)
		}
		p.Log.Info("Sink updated",
			zap.String("sink", s.Name()),
			zap.Int("rows", n),
			zap.Duration("took", time.Since(start)),
		)
	}

	if err := p.Progress.Remove(); err != nil {
		return nil, model.Fatal("remove progress", err)
	}
	if err := r.dedup.Clear(ctx); err != nil {
		p.Log.Warn("Failed to clear dedup set", zap.Error(err))
	}

	p.Log.Info("Harvest finished",
		zap.String("runId", r.state.RunID),
		zap.Int("entities", len(entities)),
		zap.Int("calls", report.TotalCalls),
		zap.Int("errors", report.ErrorCount),
	)
	return &Summary{
		RunID:     r.state.RunID,
		Resumed:   resumed,
		Processed: processed,
		Skipped:   r.base,
		Entities:  entities,
		Report:    report,
		Paths:     paths,
	}, nil
}
