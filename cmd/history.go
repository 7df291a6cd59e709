package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dt-pm-tools/r2c/internal/config"
	"github.com/dt-pm-tools/r2c/internal/ledger"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent migrations",
	Long:  `Lists the migrations recorded in the local ledger, newest first.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Only the ledger path is needed; no credentials.
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		l, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			return err
		}
		defer l.Close()

		records, err := l.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No migrations recorded yet.")
			return nil
		}

		fmt.Println(historyTable(records).Render())
		return nil
	},
}

func historyTable(records []ledger.Record) *table.Table {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			"#" + strconv.Itoa(r.IssueID),
			r.Subject,
			r.TaskURL,
			r.MigratedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return titleStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("ISSUE", "SUBJECT", "TASK", "MIGRATED").
		Rows(rows...)
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of migrations to show")
	rootCmd.AddCommand(historyCmd)
}
