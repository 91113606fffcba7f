package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	simulatePopularity []float64
	simulatePrevious   float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "模拟一次采集并评估 spike 判定",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(simulatePopularity) == 0 {
			return errors.New("--popularity 至少需要一个值")
		}

		var previous *float64
		if cmd.Flags().Changed("previous") {
			previous = &simulatePrevious
		}

		return getApp().SimulateTick(cmd.Context(), simulatePopularity, previous)
	},
}

func init() {
	simulateCmd.Flags().Float64SliceVar(&simulatePopularity, "popularity", nil, "Per-location popularity values for the simulated payload")
	simulateCmd.Flags().Float64Var(&simulatePrevious, "previous", 0, "Previous index value to compare against")
}
