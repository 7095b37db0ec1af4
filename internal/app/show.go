package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
)

// Show prints the most recent threshold history entries.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	hist, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if len(hist.Entries) == 0 {
		fmt.Fprintln(os.Stdout, "no history entries found")
		return nil
	}

	entries := hist.Entries
	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[len(entries)-opts.Limit:]
	}

	fmt.Fprintf(os.Stdout, "Proposal: %s\n", hist.ProposalID)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tThreshold%\tPass\tFail")

	for _, entry := range entries {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\n",
			entry.Timestamp.UTC().Format(time.RFC3339),
			formatDecimal(entry.Threshold, 4),
			formatDecimal(entry.PassPrice, 4),
			formatDecimal(entry.FailPrice, 4),
		)
	}

	writer.Flush()
	return nil
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
