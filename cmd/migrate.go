package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dt-pm-tools/r2c/internal/clickup"
	"github.com/dt-pm-tools/r2c/internal/ledger"
	"github.com/dt-pm-tools/r2c/internal/migrate"
	"github.com/dt-pm-tools/r2c/internal/redmine"
	"github.com/spf13/cobra"
)

var (
	migrateIssue  string
	migrateList   string
	migrateDryRun bool
	migrateForce  bool
	migrateJSON   bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate a Redmine issue to a ClickUp task",
	Long: `Fetches a Redmine issue, creates a ClickUp task from it in the given list,
sets the resource and blocks-automation fields, then closes the Redmine issue
with a link to the new task.

Missing --id or --list values are asked for. Use --dry-run to preview the task
without writing to either system.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	addMigrateFlags(migrateCmd)
	rootCmd.AddCommand(migrateCmd)
}

func addMigrateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&migrateIssue, "id", "", "Redmine issue ID")
	cmd.Flags().StringVar(&migrateList, "list", "", "ClickUp list ID")
	cmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "show the task that would be created without writing anything")
	cmd.Flags().BoolVar(&migrateForce, "force", false, "migrate even if the issue was migrated before")
	cmd.Flags().BoolVar(&migrateJSON, "json", false, "with --dry-run, print the request body as JSON")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	mp, err := loadMapping()
	if err != nil {
		return err
	}

	issueID, listID, err := migrationTarget()
	if err != nil {
		return err
	}

	m := &migrate.Migrator{
		Issues:  redmine.NewClient(appConfig),
		Tasks:   clickup.NewClient(appConfig),
		Mapping: mp,
		Logger:  logger,
		DryRun:  migrateDryRun,
		Force:   migrateForce,
	}

	hist, err := ledger.Open(appConfig.LedgerPath)
	if err != nil {
		logger.Warn("migration history unavailable", "path", appConfig.LedgerPath, "error", err)
	} else {
		defer hist.Close()
		m.History = hist
	}

	fmt.Fprintf(os.Stderr, "Migrating Redmine issue #%d to ClickUp list %s\n\n", issueID, listID)
	report, err := m.Run(cmd.Context(), issueID, listID)
	if err != nil {
		return err
	}

	if report.DryRun {
		return printDryRun(report)
	}

	printReport(os.Stderr, report)
	if !report.Created() {
		return fmt.Errorf("no task was created; issue #%d is unchanged", issueID)
	}
	if n := len(report.Failures()); n > 0 {
		fmt.Fprintf(os.Stderr, "\n%d step(s) failed; finish them by hand in ClickUp or Redmine.\n", n)
	}
	return nil
}

// migrationTarget returns the issue and list IDs from flags, asking for any
// that are missing.
func migrationTarget() (int, string, error) {
	var err error
	if migrateIssue == "" {
		migrateIssue, err = askTarget("Redmine issue ID", "The issue to migrate, e.g. 12345", validateIssueID)
		if err != nil {
			return 0, "", err
		}
	}
	issueID, err := redmine.ParseIssueID(migrateIssue)
	if err != nil {
		return 0, "", err
	}

	if migrateList == "" {
		migrateList, err = askTarget("ClickUp list ID", "The list the task is created in", validateListID)
		if err != nil {
			return 0, "", err
		}
	}
	if err := validateListID(migrateList); err != nil {
		return 0, "", err
	}
	return issueID, migrateList, nil
}

func printDryRun(report *migrate.Report) error {
	fmt.Fprintf(os.Stderr, "Dry run: would create %q in list %s\n", report.Payload.Name, report.ListID)
	if report.Payload.CustomItemID != nil {
		fmt.Fprintf(os.Stderr, "Task type: %d (tracker %s)\n", *report.Payload.CustomItemID, report.Issue.Tracker.Name)
	}
	fmt.Fprintln(os.Stderr)

	if migrateJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report.Payload); err != nil {
			return fmt.Errorf("encoding payload: %w", err)
		}
		return nil
	}
	fmt.Println(renderMarkdown(report.Payload.Description))
	return nil
}
