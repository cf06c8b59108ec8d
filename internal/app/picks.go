package app

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"odds-picks/internal/storage"
)

// ShowPicks prints persisted picks, newest first unless ordered by confidence.
func (a *App) ShowPicks(ctx context.Context, opts PicksOptions) error {
	store, closeStore, err := a.requireStore(ctx, "list picks")
	if err != nil {
		return err
	}
	defer closeStore()

	var picks []storage.PickRecord
	if opts.ByConfidence || opts.Sport != "" {
		picks, err = store.TopPicks(ctx, storage.PickFilter{SportKey: opts.Sport, Limit: opts.Limit})
	} else {
		picks, err = store.RecentPicks(ctx, opts.Limit)
	}
	if err != nil {
		return err
	}
	return writePicksTable(a.Out, picks)
}

func writePicksTable(out io.Writer, picks []storage.PickRecord) error {
	if len(picks) == 0 {
		_, err := fmt.Fprintln(out, "no picks found")
		return err
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tTime (UTC)\tSport\tMarket\tPick\tConfidence")

	for _, pick := range picks {
		fmt.Fprintf(
			writer,
			"%d\t%s\t%s\t%s\t%s\t%s\n",
			pick.ID,
			pick.Timestamp.UTC().Format(time.RFC3339),
			pick.SportKey,
			pick.MarketKey,
			sanitizeInline(pick.Pick),
			strconv.FormatFloat(pick.Confidence, 'f', 3, 64),
		)
	}

	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	return cleaned
}
