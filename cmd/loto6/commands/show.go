package commands

import (
	"fmt"
	"io"
	"strings"

	"loto6-archive/internal/chrono"
	"loto6-archive/internal/draw"
	"loto6-archive/internal/telemetry"
	"loto6-archive/lib/wareki"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var showLimit int

func init() {
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 10, "Number of rounds to show, 0 shows all.")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show [--limit N]",
	Short: "Prints the archived results, newest first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context(), cfg, telemetry.SlogAPI{})
		if err != nil {
			return err
		}
		defer store.Close()

		aggregate, err := store.LoadAggregate(cmd.Context())
		if err != nil {
			return err
		}
		renderTable(cmd.OutOrStdout(), aggregate, showLimit)
		return nil
	},
}

func formatNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = fmt.Sprintf("%02d", n)
	}
	return strings.Join(parts, " ")
}

// renderTable writes the first limit results of aggregate as a table,
// every result when limit is 0.
func renderTable(w io.Writer, aggregate []draw.Result, limit int) {
	if limit > 0 && len(aggregate) > limit {
		aggregate = aggregate[:limit]
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"Round", "Date", "和暦", "Numbers", "Bonus"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	for _, result := range aggregate {
		japanese := ""
		if date, err := result.Time(chrono.Tokyo()); err == nil {
			japanese, _ = wareki.Format(date)
		}
		t.AppendRow(table.Row{
			result.Round,
			result.Date,
			japanese,
			formatNumbers(result.Numbers),
			fmt.Sprintf("%02d", result.Bonus),
		})
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d results", len(aggregate)), ""})
	t.Render()
}
