package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poi-harvest/internal/poi_harvest/model"
	"poi-harvest/internal/poi_harvest/pipeline"
	"poi-harvest/internal/poi_harvest/scheduler"
	"poi-harvest/internal/poi_harvest/usage"
)

type harvestFlags struct {
	fresh       bool
	schedule    string
	withDetails bool
	listen      string
}

func (a *app) harvestCommand() *cobra.Command {
	var f harvestFlags
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Fetch every city x category area query, resuming saved progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.sync()
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()

			if f.listen != "" {
				stop := a.startServer(f.listen, a.areaPhase())
				defer stop()
			}

			// --fresh applies to the first run only; later ticks resume.
			once := func(ctx context.Context) error {
				err := a.harvestOnce(ctx, cmd, f)
				f.fresh = false
				return err
			}
			if f.schedule == "" {
				return once(ctx)
			}
			periodic, err := scheduler.NewPeriodic(f.schedule, a.log)
			if err != nil {
				return err
			}
			periodic.RunImmediately = true
			periodic.Run(ctx, once)
			return nil
		},
	}
	cmd.Flags().BoolVar(&f.fresh, "fresh", false, "discard saved progress and start a new run")
	cmd.Flags().StringVar(&f.schedule, "schedule", "", "repeat the harvest on a cron schedule, e.g. \"0 3 * * *\"")
	cmd.Flags().BoolVar(&f.withDetails, "with-details", false, "run the detail phase over the harvested entities")
	cmd.Flags().StringVar(&f.listen, "listen", "", "serve progress and metrics on this address while harvesting")
	return cmd
}

func (a *app) harvestOnce(ctx context.Context, cmd *cobra.Command, f harvestFlags) error {
	cfg := a.cfg
	cities := make([]pipeline.City, 0, len(cfg.Cities))
	for _, c := range cfg.Cities {
		cities = append(cities, pipeline.City{Name: c.Name, Lat: c.Lat, Lng: c.Lng})
	}
	items := pipeline.AreaItems(cities, cfg.Search.Categories, cfg.Search.Radius)
	a.log.Info("Starting harvest",
		zap.Int("cities", len(cities)),
		zap.Int("categories", len(cfg.Search.Categories)),
		zap.Int("items", len(items)),
	)

	out := cmd.OutOrStdout()
	sum, err := a.runPhase(ctx, a.areaPhase(), items, f.fresh, func(s *pipeline.Summary) {
		usage.PrintSummary(out, s.Report, len(s.Entities))
	})
	if err != nil {
		return err
	}
	if !f.withDetails {
		return nil
	}
	_, err = a.runDetails(ctx, cmd, sum.Entities, f.fresh)
	return err
}

func (a *app) runDetails(ctx context.Context, cmd *cobra.Command, entities []model.Entity, fresh bool) (*pipeline.Summary, error) {
	items := pipeline.DetailItems(entities)
	a.log.Info("Starting detail phase", zap.Int("items", len(items)))
	out := cmd.OutOrStdout()
	return a.runPhase(ctx, a.detailPhase(), items, fresh, func(s *pipeline.Summary) {
		usage.PrintSummary(out, s.Report, len(s.Entities))
	})
}

// startServer runs the API next to a harvest so progress and metrics can be
// watched live. The returned func shuts it down.
func (a *app) startServer(addr string, ph phase) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.apiServer(ph, nil).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		a.log.Info("API listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("API server stopped", zap.Error(err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
