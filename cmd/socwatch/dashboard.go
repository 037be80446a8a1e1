package main

import (
	"github.com/spf13/cobra"

	"socwatch/internal/dashboard"
	"socwatch/internal/logger"
)

func newDashboardCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the terminal SOC dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The terminal belongs to the UI.
			cfg, err := opts.load(false)
			if err != nil {
				return err
			}
			api, err := newClient(cfg)
			if err != nil {
				return err
			}

			dc := cfg.SocWatch.Dashboard
			logger.Infof("Dashboard polling %s", api.BaseURL())
			return dashboard.Run(cmd.Context(), dashboard.Config{
				API:              api,
				AlertsInterval:   dc.AlertsInterval,
				RealtimeInterval: dc.RealtimeInterval,
				PriorityInterval: dc.PriorityInterval,
				AlertsLimit:      dc.AlertsLimit,
				PriorityLimit:    dc.PriorityLimit,
			})
		},
	}
}
