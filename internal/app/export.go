package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"futarchy-alerts/internal/proposal"
)

// Export renders the stored threshold history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

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

	entries := filterEntries(hist.Entries, opts.From, opts.To)
	if len(entries) == 0 {
		a.Logger.Info().Msg("no history entries found for export window")
		return nil
	}

	downsampled := downsampleEntries(entries, opts.MaxPoints)
	a.Logger.Info().Int("total", len(entries)).Int("exported", len(downsampled)).Msg("exporting history")

	if opts.CSVPath != "" {
		if err := writeHistoryCSV(opts.CSVPath, hist.ProposalID, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeHistoryPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func filterEntries(entries []proposal.HistoryEntry, from, to *time.Time) []proposal.HistoryEntry {
	if from == nil && to == nil {
		return entries
	}

	result := make([]proposal.HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		if from != nil && entry.Timestamp.Before(*from) {
			continue
		}
		if to != nil && !entry.Timestamp.Before(*to) {
			continue
		}
		result = append(result, entry)
	}
	return result
}

func downsampleEntries(entries []proposal.HistoryEntry, max int) []proposal.HistoryEntry {
	if max <= 0 || len(entries) <= max {
		return entries
	}

	result := make([]proposal.HistoryEntry, 0, max)
	step := float64(len(entries)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(entries) {
			idx = len(entries) - 1
		}
		result = append(result, entries[idx])
	}
	return result
}

func writeHistoryCSV(path, proposalID string, entries []proposal.HistoryEntry) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"ts", "proposal_id", "threshold_pct", "pass_price", "fail_price"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, entry := range entries {
		record := []string{
			entry.Timestamp.UTC().Format(time.RFC3339),
			proposalID,
			entry.Threshold.String(),
			entry.PassPrice.String(),
			entry.FailPrice.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeHistoryPNG(path string, entries []proposal.HistoryEntry) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(entries))
	threshold := make([]float64, len(entries))
	passPrice := make([]float64, len(entries))
	failPrice := make([]float64, len(entries))

	for i, entry := range entries {
		x[i] = entry.Timestamp
		threshold[i] = entry.Threshold.InexactFloat64()
		passPrice[i] = entry.PassPrice.InexactFloat64()
		failPrice[i] = entry.FailPrice.InexactFloat64()
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.3f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Threshold (%)",
			ValueFormatter: valueFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Price",
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Threshold %",
				XValues: x,
				YValues: threshold,
			},
			chart.TimeSeries{
				Name:    "Pass",
				XValues: x,
				YValues: passPrice,
				YAxis:   chart.YAxisSecondary,
			},
			chart.TimeSeries{
				Name:    "Fail",
				XValues: x,
				YValues: failPrice,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
