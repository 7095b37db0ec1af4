package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulatePass float64
	simulateFail float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-report",
	Short: "模拟一组通过/否决价格并触发报告",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePass <= 0 || simulateFail <= 0 {
			return errors.New("--pass 与 --fail 必须大于 0")
		}

		passPrice := decimal.NewFromFloat(simulatePass)
		failPrice := decimal.NewFromFloat(simulateFail)
		return getApp().SimulateReport(cmd.Context(), passPrice, failPrice)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulatePass, "pass", 0, "通过市场价格")
	simulateCmd.Flags().Float64Var(&simulateFail, "fail", 0, "否决市场价格")
}
