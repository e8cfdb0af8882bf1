package cli

import (
	"github.com/spf13/cobra"

	"p2p-premium/internal/app"
)

var (
	runCSVPath   string
	runPNGPath   string
	runMaxPoints int
	runPrint     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Refresh premiums on a fixed interval until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context(), app.RunOptions{
			CSVPath:   runCSVPath,
			PNGPath:   runPNGPath,
			MaxPoints: runMaxPoints,
			Print:     runPrint,
		})
	},
}

func init() {
	runCmd.Flags().StringVar(&runCSVPath, "csv", "", "Rewrite the premium history as CSV after each cycle (defaults to config)")
	runCmd.Flags().StringVar(&runPNGPath, "png", "", "Rewrite the premium trend chart as PNG after each cycle (defaults to config)")
	runCmd.Flags().IntVar(&runMaxPoints, "max-points", 0, "Maximum data points in CSV/PNG output (defaults to config)")
	runCmd.Flags().BoolVar(&runPrint, "print", false, "Print a table for every cycle")
}
