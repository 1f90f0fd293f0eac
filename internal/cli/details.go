package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"poi-harvest/internal/poi_harvest/helper"
	"poi-harvest/internal/poi_harvest/model"
)

func (a *app) detailsCommand() *cobra.Command {
	var (
		from  string
		fresh bool
	)
	cmd := &cobra.Command{
		Use:   "details",
		Short: "Fetch per-entity details for a harvested artifact",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.sync()
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			if from == "" {
				from = a.path(a.cfg.Output.FinalFile)
			}
			var entities []model.Entity
			if err := helper.ReadJSON(from, &entities); err != nil {
				return fmt.Errorf("load entities: %w", err)
			}
			_, err := a.runDetails(cmd.Context(), cmd, entities, fresh)
			return err
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "entity artifact to look up (default: the area final file)")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "discard saved detail progress")
	return cmd
}
