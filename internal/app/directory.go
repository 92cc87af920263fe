package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"alert-digest/internal/directory"
)

// Directory prints the subscription table the extractor resolves against.
func (a *App) Directory(ctx context.Context, opts DirectoryOptions) error {
	dir, err := a.loadDirectory(ctx)
	if err != nil {
		return err
	}
	return writeDirectory(os.Stdout, dir.Entries(), opts.Filter)
}

func writeDirectory(w io.Writer, entries []directory.Subscription, filter string) error {
	filter = strings.ToLower(strings.TrimSpace(filter))

	rows := make([]directory.Subscription, 0, len(entries))
	for _, entry := range entries {
		if filter != "" && !matchesFilter(entry, filter) {
			continue
		}
		rows = append(rows, entry)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "no subscriptions found")
		return err
	}

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Subscription ID\tName\tClient")
	for _, entry := range rows {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\n",
			entry.ID,
			sanitizeInline(entry.Name),
			sanitizeInline(entry.Client),
		)
	}
	return writer.Flush()
}

func matchesFilter(entry directory.Subscription, filter string) bool {
	return strings.Contains(strings.ToLower(entry.Name), filter) ||
		strings.Contains(strings.ToLower(entry.Client), filter) ||
		strings.Contains(entry.ID, filter)
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
