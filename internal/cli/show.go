package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pizza-index-watcher/internal/app"
)

var (
	showLimit   int
	spikesLimit int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent readings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		return getApp().Show(cmd.Context(), app.ShowOptions{Limit: showLimit})
	},
}

var spikesCmd = &cobra.Command{
	Use:   "spikes",
	Short: "Display recent spike records",
	RunE: func(cmd *cobra.Command, args []string) error {
		if spikesLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		return getApp().Spikes(cmd.Context(), app.ShowOptions{Limit: spikesLimit})
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of readings to display")
	spikesCmd.Flags().IntVar(&spikesLimit, "limit", 20, "Number of spikes to display")
}
