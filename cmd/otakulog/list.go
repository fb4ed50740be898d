package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/kerbaras/otakulog/pkg/data"
)

var (
	purple      = lipgloss.Color("99")
	headerStyle = lipgloss.NewStyle().Foreground(purple).Bold(true).Align(lipgloss.Center)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(purple)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

var listCmd = &cobra.Command{
	Use:   "list [kind]",
	Short: "List catalog entries of one kind",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind, err := parseKind(args[0])
		cobra.CheckErr(err)

		_, db, log := setup()
		defer db.Close()
		defer log.Sync()

		store := data.NewStore(db)
		entries, err := store.ListEntries(context.Background(), kind)
		cobra.CheckErr(err)

		if len(entries) == 0 {
			fmt.Printf("No %s entries yet. Use 'otakulog ingest' to add some.\n", kind)
			return
		}

		t := newTable("Title", "Type", "Status", "Vols", "Chaps", "Score")
		for _, e := range entries {
			t.Row(
				truncateString(e.Title, 48),
				e.Type,
				e.Status,
				formatCount(e.VolumesCount),
				formatCount(e.ChaptersCount),
				fmt.Sprintf("%.2f", e.Score),
			)
		}

		fmt.Printf("\n%d %s entries\n", len(entries), kind)
		fmt.Println(t)
	},
}

func formatCount(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
