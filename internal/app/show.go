package app

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"p2p-premium/internal/premium"
	"p2p-premium/internal/service"
)

// PrintReport writes one cycle as a table. Absent values print as
// "unavailable".
func PrintReport(w io.Writer, report service.CycleReport) error {
	fmt.Fprintf(w, "Cycle %s at %s\n", report.CycleID, report.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "USD/%s: %s\n\n", report.Fiat, service.Format(report.ExchangeRate, 4))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Asset\tP2P (%s)\tGlobal (USD)\tPremium %%\n", report.Fiat)
	for _, a := range report.Assets {
		global := service.Format(a.GlobalPrice, 2)
		if a.Stable && a.GlobalPrice.Valid {
			global += " (fixed)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			a.Symbol,
			service.Format(a.LocalPrice, 2),
			global,
			service.Format(a.Premium, premium.Places),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	status := "discarded (missing data)"
	if report.Recorded {
		status = "recorded"
	}
	_, err := fmt.Fprintf(w, "\nObservation: %s; trend points: %d\n", status, len(report.History))
	return err
}
