package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/dt-pm-tools/r2c/internal/mapping"
	"github.com/dt-pm-tools/r2c/internal/migrate"
	"github.com/dt-pm-tools/r2c/internal/redmine"
	"github.com/spf13/cobra"
)

var (
	showOutputDir string
	showRaw       bool
)

var showCmd = &cobra.Command{
	Use:   "show <issue-id-or-url>",
	Short: "Fetch a Redmine issue and print its description as Markdown",
	Long: `Fetches a Redmine issue and prints the task description a migration would
create, without writing anything. Accepts an issue ID or a full issue URL:
  r2c show 12345
  r2c show https://redmine.example.com/issues/12345

Writes to stdout by default, or to <dir>/<id>.md with --output-dir.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		issueID, err := extractIssueID(args[0])
		if err != nil {
			return err
		}

		if err := loadConfig(); err != nil {
			return err
		}

		client := redmine.NewClient(appConfig)
		issue, err := client.GetIssue(cmd.Context(), issueID)
		if err != nil {
			return fmt.Errorf("fetching issue %d: %w", issueID, err)
		}

		var md string
		if showRaw {
			md = issue.Description
		} else {
			md = migrate.BuildPayload(issue, client.IssueURL(issueID), mapping.Default()).Description
		}
		md = fmt.Sprintf("# %s\n\n%s\n", issue.Subject, md)

		if showOutputDir != "" {
			if err := os.MkdirAll(showOutputDir, 0755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}

			filename := filepath.Join(showOutputDir, strconv.Itoa(issueID)+".md")
			if err := os.WriteFile(filename, []byte(md), 0644); err != nil {
				return fmt.Errorf("writing file: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Written to %s\n", filename)
			return nil
		}

		if showRaw {
			fmt.Print(md)
		} else {
			fmt.Print(renderMarkdown(md))
		}
		return nil
	},
}

var issueURLPattern = regexp.MustCompile(`/issues/(\d+)`)

// extractIssueID accepts "123", "#123" or a Redmine issue URL.
func extractIssueID(input string) (int, error) {
	if m := issueURLPattern.FindStringSubmatch(input); m != nil {
		return redmine.ParseIssueID(m[1])
	}
	return redmine.ParseIssueID(input)
}

func init() {
	showCmd.Flags().StringVar(&showOutputDir, "output-dir", "", "write output to <dir>/<id>.md instead of stdout")
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "print the Textile description unconverted")
	rootCmd.AddCommand(showCmd)
}
