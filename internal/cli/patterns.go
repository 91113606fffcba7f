package cli

import (
	"github.com/spf13/cobra"
)

var patternsForecast int

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Display hourly/weekday patterns and the blended forecast",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Patterns(cmd.Context(), patternsForecast)
	},
}

func init() {
	patternsCmd.Flags().IntVar(&patternsForecast, "forecast", 10, "Number of forecast rows to display (0 to skip)")
}
