package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poi-harvest/internal/poi_harvest/filter"
	"poi-harvest/internal/poi_harvest/helper"
	"poi-harvest/internal/poi_harvest/model"
)

func (a *app) filterCommand() *cobra.Command {
	var (
		from       string
		minReviews int
		topN       int
	)
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Keep the most reviewed places of every city",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.sync()
			if from == "" {
				from = a.path(a.cfg.Output.FinalFile)
			}
			if !cmd.Flags().Changed("min-reviews") {
				minReviews = a.cfg.Filter.MinReviews
			}
			if !cmd.Flags().Changed("top") {
				topN = a.cfg.Filter.TopN
			}

			var entities []model.Entity
			if err := helper.ReadJSON(from, &entities); err != nil {
				return fmt.Errorf("load entities: %w", err)
			}
			top := filter.TopByReviews(entities, minReviews, topN)
			dest := a.path(a.cfg.Filter.OutputFile)
			if err := helper.WriteJSON(dest, top); err != nil {
				return err
			}
			a.log.Info("Filtered places written",
				zap.String("path", dest),
				zap.Int("cities", len(top)),
				zap.Int("kept", filter.Count(top)),
				zap.Int("input", len(entities)),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d places kept across %d cities -> %s\n",
				filter.Count(top), len(entities), len(top), dest)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "entity artifact to filter (default: the area final file)")
	cmd.Flags().IntVar(&minReviews, "min-reviews", filter.DefaultMinReviews, "minimum rating count")
	cmd.Flags().IntVar(&topN, "top", filter.DefaultTopN, "places kept per city")
	return cmd
}
