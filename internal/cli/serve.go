package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poi-harvest/internal/poi_harvest/api"
	"poi-harvest/internal/poi_harvest/helper"
	"poi-harvest/internal/poi_harvest/sink"
)

func (a *app) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve harvested places, the usage report and progress over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.sync()
			ctx := cmd.Context()
			if addr == "" {
				addr = a.cfg.Server.Address
			}

			var finder api.EntityFinder
			if a.cfg.Mongo.Host != "" {
				stores, err := helper.ConnectMongo(ctx, a.cfg.Mongo)
				if err != nil {
					return err
				}
				defer func() { _ = stores.Close(context.Background()) }()
				finder = sink.NewMongo(stores.Places, a.log)
			}

			s := a.apiServer(a.areaPhase(), finder)
			s.Gatherer = prometheus.Gatherers{prometheus.DefaultGatherer, a.registry}
			srv := &http.Server{
				Addr:              addr,
				Handler:           s.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				a.log.Info("API listening", zap.String("addr", addr))
				errc <- srv.ListenAndServe()
			}()
			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				a.log.Info("Shutting down API")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.address)")
	return cmd
}

func (a *app) apiServer(ph phase, finder api.EntityFinder) *api.Server {
	return &api.Server{
		Finder:       finder,
		FinalPath:    a.path(ph.finalFile),
		ReportPath:   a.path(ph.reportFile),
		ProgressPath: a.path(ph.progressFile),
		Gatherer:     a.registry,
		Log:          a.log,
	}
}
