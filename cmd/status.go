package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/inmetrica/valuation-cli/internal/model"
)

var statusRuns int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show warehouse row counts and recent builds",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		counts, err := st.Counts(ctx)
		if err != nil {
			return err
		}
		runs, err := st.Runs(ctx, statusRuns)
		if err != nil {
			return err
		}

		formatStatus(os.Stdout, counts, runs)
		return nil
	},
}

// statusTables is the relation display order.
var statusTables = []string{
	"listings", "amenities", "crime_records", "boundaries",
	"neighborhoods", "features", "runs",
}

// formatStatus writes the counts table and recent runs to w.
func formatStatus(out io.Writer, counts map[string]int, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RELATION\tROWS")
	_, _ = fmt.Fprintln(w, "--------\t----")
	for _, name := range statusTables {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", name, counts[name])
	}
	_ = w.Flush()

	if len(runs) == 0 {
		_, _ = fmt.Fprintln(out, "\nno builds recorded yet")
		return
	}

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tSTATUS\tSTARTED\tDURATION\tERROR")
	_, _ = fmt.Fprintln(w, "---\t------\t-------\t--------\t-----")
	for _, r := range runs {
		dur := "-"
		if !r.FinishedAt.IsZero() {
			dur = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			shortID(r.ID),
			r.Status,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
			truncate(r.Error, 60),
		)
	}
	_ = w.Flush()
}

// shortID keeps run IDs readable in the table.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate limits s to n runes with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func init() {
	statusCmd.Flags().IntVar(&statusRuns, "runs", 10, "number of recent builds to show")
	rootCmd.AddCommand(statusCmd)
}
