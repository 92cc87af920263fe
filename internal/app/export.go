package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	chart "github.com/wcharczuk/go-chart/v2"

	"alert-digest/internal/digest"
)

// Export writes the accepted events as CSV and/or a per-date PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	result, err := a.run(ctx, opts.Paths)
	if err != nil {
		return err
	}
	if len(result.Events) == 0 {
		a.Logger.Info().Msg("no events to export")
		return nil
	}

	a.Logger.Info().Int("events", len(result.Events)).Msg("exporting events")

	if opts.CSVPath != "" {
		if err := writeEventsCSV(opts.CSVPath, result.Events); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		counts := countByDate(result.Events)
		if err := writeEventsPNG(opts.PNGPath, counts, a.Config.Export.ChartWidth, a.Config.Export.ChartHeight); err != nil {
			return err
		}
	}

	return nil
}

func writeEventsCSV(path string, events []digest.Event) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"date", "time", "kind", "alert_name", "subject", "original_subject"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, ev := range events {
		record := []string{
			ev.Date,
			ev.Time,
			ev.Kind.String(),
			ev.AlertName,
			ev.NormalizedSubject,
			ev.OriginalSubject,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// dateCount is the number of accepted events seen on one date.
type dateCount struct {
	Date  string
	Count int
}

// countByDate tallies events per date in first-seen order.
func countByDate(events []digest.Event) []dateCount {
	index := make(map[string]int)
	var counts []dateCount
	for _, ev := range events {
		i, ok := index[ev.Date]
		if !ok {
			i = len(counts)
			index[ev.Date] = i
			counts = append(counts, dateCount{Date: ev.Date})
		}
		counts[i].Count++
	}
	return counts
}

func writeEventsPNG(path string, counts []dateCount, width, height int) error {
	if len(counts) == 0 {
		return errors.New("no events to chart")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	bars := make([]chart.Value, len(counts))
	peak := 0
	for i, c := range counts {
		bars[i] = chart.Value{Label: c.Date, Value: float64(c.Count)}
		if c.Count > peak {
			peak = c.Count
		}
	}

	graph := chart.BarChart{
		Title:    "Alert emails per day",
		Width:    width,
		Height:   height,
		BarWidth: 40,
		YAxis: chart.YAxis{
			Name: "Events",
			Range: &chart.ContinuousRange{
				Min: 0,
				Max: float64(peak + 1),
			},
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		Bars: bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := graph.Render(chart.PNG, file); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
