package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"odds-picks/internal/storage"
)

const defaultExportWindow = 7 * 24 * time.Hour

// Export renders persisted picks as CSV and/or a PNG confidence chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-defaultExportWindow)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	store, closeStore, err := a.requireStore(ctx, "export")
	if err != nil {
		return err
	}
	defer closeStore()

	picks, err := store.ListPicksBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(picks) == 0 {
		a.Logger.Info().Time("from", from).Time("to", to).Msg("no picks found for export window")
		return nil
	}

	downsampled := downsamplePicks(picks, opts.MaxPoints)
	a.Logger.Info().Int("total", len(picks)).Int("exported", len(downsampled)).Msg("exporting picks")

	if opts.CSVPath != "" {
		if err := writePicksCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writePicksPNG(opts.PNGPath, downsampled, a.Config.Model.Threshold, from, to); err != nil {
			return err
		}
	}

	return nil
}

func downsamplePicks(picks []storage.PickRecord, max int) []storage.PickRecord {
	if max <= 0 || len(picks) <= max {
		return picks
	}
	if max == 1 {
		return picks[:1]
	}

	result := make([]storage.PickRecord, 0, max)
	step := float64(len(picks)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(picks) {
			idx = len(picks) - 1
		}
		result = append(result, picks[idx])
	}
	return result
}

func writePicksCSV(path string, picks []storage.PickRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"id", "timestamp", "sport_key", "market_key", "pick", "confidence"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, pick := range picks {
		record := []string{
			strconv.FormatInt(pick.ID, 10),
			pick.Timestamp.UTC().Format(time.RFC3339),
			pick.SportKey,
			pick.MarketKey,
			pick.Pick,
			strconv.FormatFloat(pick.Confidence, 'f', 6, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// writePicksPNG plots one dot series per sport plus the selection threshold.
func writePicksPNG(path string, picks []storage.PickRecord, threshold float64, from, to time.Time) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	bySport := make(map[string][]storage.PickRecord)
	for _, pick := range picks {
		bySport[pick.SportKey] = append(bySport[pick.SportKey], pick)
	}
	sports := make([]string, 0, len(bySport))
	for sport := range bySport {
		sports = append(sports, sport)
	}
	sort.Strings(sports)

	series := make([]chart.Series, 0, len(sports)+1)
	for _, sport := range sports {
		group := bySport[sport]
		x := make([]time.Time, len(group))
		y := make([]float64, len(group))
		for i, pick := range group {
			x[i] = pick.Timestamp.UTC()
			y[i] = pick.Confidence
		}
		series = append(series, chart.TimeSeries{
			Name: sport,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    3,
			},
			XValues: x,
			YValues: y,
		})
	}
	series = append(series, chart.TimeSeries{
		Name:    "Threshold",
		XValues: []time.Time{from, to},
		YValues: []float64{threshold, threshold},
	})

	confidenceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Confidence",
			ValueFormatter: confidenceFormatter,
			Range: &chart.ContinuousRange{
				Min: math.Max(0, threshold-0.05),
				Max: 1,
			},
		},
		Series: series,
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
