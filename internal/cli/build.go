package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"poi-harvest/internal/poi_harvest/clock"
	"poi-harvest/internal/poi_harvest/dedup"
	"poi-harvest/internal/poi_harvest/events"
	"poi-harvest/internal/poi_harvest/helper"
	"poi-harvest/internal/poi_harvest/model"
	"poi-harvest/internal/poi_harvest/output"
	"poi-harvest/internal/poi_harvest/pipeline"
	"poi-harvest/internal/poi_harvest/processor"
	"poi-harvest/internal/poi_harvest/progress"
	"poi-harvest/internal/poi_harvest/provider"
	"poi-harvest/internal/poi_harvest/ratelimit"
	"poi-harvest/internal/poi_harvest/scheduler"
	"poi-harvest/internal/poi_harvest/sink"
	"poi-harvest/internal/poi_harvest/usage"
)

// phase selects the artifact names and width of one pipeline run.
type phase struct {
	name         string
	progressFile string
	finalFile    string
	reportFile   string
	prefix       string
	timestamped  bool
	width        int
}

func (a *app) areaPhase() phase {
	o := a.cfg.Output
	return phase{
		name:         "area",
		progressFile: o.ProgressFile,
		finalFile:    o.FinalFile,
		reportFile:   o.ReportFile,
		prefix:       o.PartitionPrefix,
		width:        a.cfg.Fetch.Concurrency,
	}
}

func (a *app) detailPhase() phase {
	o := a.cfg.Output
	return phase{
		name:         "detail",
		progressFile: o.DetailProgressFile,
		finalFile:    o.DetailFinalFile,
		reportFile:   o.DetailReportFile,
		prefix:       o.DetailPartitionPrefix,
		timestamped:  o.DetailTimestamped,
		width:        a.cfg.Fetch.DetailConcurrency,
	}
}

func (a *app) path(name string) string {
	return filepath.Join(a.cfg.Output.Directory, name)
}

// newPipeline connects every configured backend. The returned cleanup must
// be called even when err is non-nil.
func (a *app) newPipeline(ctx context.Context, ph phase, fresh bool) (*pipeline.Pipeline, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	cfg := a.cfg
	log := a.log.With(zap.String("phase", ph.name))
	clk := clock.Real{}

	prov, err := provider.New(cfg.Provider.Name, provider.Options{
		BaseURL:      cfg.Provider.BaseURL,
		APIKey:       cfg.Provider.APIKey,
		Timeout:      cfg.Provider.Timeout,
		Limit:        cfg.Search.Limit,
		ExcludeKinds: cfg.Search.ExcludeKinds,
		Log:          log,
	})
	if err != nil {
		return nil, cleanup, model.Fatal("provider setup", err)
	}

	reporter := usage.NewReporter(clk, a.metrics)
	limiter := ratelimit.New(cfg.Fetch.Limiter, cfg.Fetch.RatePerSecond, clk, log)
	requester := processor.NewRequester(log, limiter, reporter, clk, processor.RetryConfig{
		MaxAttempts:          cfg.Fetch.MaxAttempts,
		BaseDelay:            cfg.Fetch.BaseDelay,
		MaxDelay:             cfg.Fetch.MaxDelay,
		MaxRateLimitAttempts: cfg.Fetch.MaxRateLimitAttempts,
	})

	p := &pipeline.Pipeline{
		Log:       log,
		Collector: processor.NewCollector(log, requester, prov, clk, cfg.Search.MaxPages, cfg.Search.PageDelay),
		Usage:     reporter,
		Progress:  progress.NewStore(a.path(ph.progressFile), log),
		Writer: output.NewWriter(output.Layout{
			Dir:             cfg.Output.Directory,
			FinalFile:       ph.finalFile,
			ReportFile:      ph.reportFile,
			PartitionPrefix: ph.prefix,
			Timestamped:     ph.timestamped,
		}, log),
		Scheduler: scheduler.NewFanOut(log),
		Events:    events.Nop{},
		NewDedup:  pipeline.MemoryDedup,
		Clock:     clk,
		Width:     ph.width,
		Fresh:     fresh,
	}

	if cfg.Dedup.Backend == "redis" {
		client, err := dedup.NewRedisClient(ctx, cfg.Dedup.Redis)
		if err != nil {
			return nil, cleanup, model.Fatal("redis setup", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		p.NewDedup = func(_ context.Context, runID string) (dedup.Deduplicator, error) {
			return dedup.NewRedis(client, ph.name+":"+runID), nil
		}
	}

	if cfg.Mongo.Host != "" {
		stores, err := helper.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, cleanup, model.Fatal("mongo setup", err)
		}
		closers = append(closers, func() { _ = stores.Close(context.Background()) })
		p.Sinks = append(p.Sinks, sink.NewMongo(stores.Places, log))
	}

	if cfg.Postgres.DSN != "" {
		db, err := sink.OpenPostgres(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, cleanup, model.Fatal("postgres setup", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		pg, err := sink.NewPostgres(db, cfg.Postgres.Table, log)
		if err != nil {
			return nil, cleanup, model.Fatal("postgres setup", err)
		}
		if cfg.Postgres.BatchSize > 0 {
			pg.BatchSize = cfg.Postgres.BatchSize
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, cleanup, model.Fatal("postgres setup", err)
		}
		p.Sinks = append(p.Sinks, pg)
	}

	if cfg.NATS.URL != "" {
		pub, err := events.ConnectNATS(cfg.NATS.URL, cfg.NATS.Subject, log)
		if err != nil {
			// events are advisory; the harvest runs without them
			log.Warn("NATS unavailable, events disabled", zap.Error(err))
		} else {
			closers = append(closers, func() { _ = pub.Close() })
			p.Events = pub
		}
	}

	log.Debug("Pipeline assembled",
		zap.String("provider", prov.Name()),
		zap.String("limiter", cfg.Fetch.Limiter),
		zap.Int("sinks", len(p.Sinks)),
		zap.String("dedup", cfg.Dedup.Backend),
	)
	return p, cleanup, nil
}

// runPhase builds a pipeline, runs items through it and prints the summary.
func (a *app) runPhase(ctx context.Context, ph phase, items []model.WorkItem, fresh bool, report func(*pipeline.Summary)) (*pipeline.Summary, error) {
	p, cleanup, err := a.newPipeline(ctx, ph, fresh)
	defer cleanup()
	if err != nil {
		return nil, err
	}
	sum, err := p.Run(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("%s phase: %w", ph.name, err)
	}
	if report != nil {
		report(sum)
	}
	return sum, nil
}
