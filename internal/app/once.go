package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"futarchy-alerts/internal/proposal"
	"futarchy-alerts/internal/source"
)

// Once executes a single acquisition cycle outside the scheduler and prints
// the resulting report as JSON. The history is updated exactly as a
// scheduled cycle would update it.
func (a *App) Once(ctx context.Context) error {
	if a.Config.Proposal.Address == "" {
		return errors.New("proposal.address is required")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	snap, err := a.newCascade().Fetch(ctx)
	if err != nil {
		if errors.Is(err, source.ErrUnavailable) {
			fmt.Fprintln(os.Stdout, "no data: every source came up empty")
			return nil
		}
		return err
	}

	hist, err := store.Append(ctx, *snap)
	if err != nil {
		a.Logger.Error().Err(err).Msg("failed to append history entry")
		hist = nil
	}

	report := proposal.BuildReport(*snap, hist)

	if notifier := a.newNotifier(); notifier != nil {
		if err := notifier.NotifyReport(ctx, report); err != nil {
			a.Logger.Error().Err(err).Msg("failed to dispatch report")
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
