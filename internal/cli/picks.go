package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"odds-picks/internal/app"
)

var (
	picksLimit        int
	picksSport        string
	picksByConfidence bool
)

var picksCmd = &cobra.Command{
	Use:   "picks",
	Short: "Display persisted picks",
	RunE: func(cmd *cobra.Command, args []string) error {
		if picksLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.PicksOptions{
			Limit:        picksLimit,
			Sport:        picksSport,
			ByConfidence: picksByConfidence,
		}

		return getApp().ShowPicks(cmd.Context(), opts)
	},
}

func init() {
	picksCmd.Flags().IntVar(&picksLimit, "limit", 20, "Number of picks to display")
	picksCmd.Flags().StringVar(&picksSport, "sport", "", "Only show picks for this sport key")
	picksCmd.Flags().BoolVar(&picksByConfidence, "top", false, "Order by confidence instead of recency")
}
