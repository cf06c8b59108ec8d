package cli

import (
	"github.com/spf13/cobra"

	"odds-picks/internal/app"
)

var (
	simulateEvents string
	simulateNotify bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Score a saved odds payload offline and print the picks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Simulate(cmd.Context(), app.SimulateOptions{
			EventsPath: simulateEvents,
			Notify:     simulateNotify,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateEvents, "events", "", "Path to a JSON array of events as returned by the odds API")
	simulateCmd.Flags().BoolVar(&simulateNotify, "notify", false, "Send the run summary through the configured alert channel")
}
