package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/dt-pm-tools/r2c/internal/textile"
	"github.com/spf13/cobra"
)

var (
	convertFile    string
	convertExplain bool
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert Redmine Textile to Markdown",
	Long: `Reads Textile from a file (-f) or stdin and writes the Markdown a migration
would put in the task description. Needs no credentials.

Use --explain to print the text after every conversion pass that changed it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			content []byte
			err     error
		)
		if convertFile == "" || convertFile == "-" {
			content, err = io.ReadAll(os.Stdin)
		} else {
			content, err = os.ReadFile(convertFile)
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		if convertExplain {
			n := 0
			out := textile.Trace(string(content), func(pass, result string) {
				n++
				fmt.Fprintf(os.Stderr, "%s\n%s\n\n", titleStyle.Render(fmt.Sprintf("%d. %s", n, pass)), result)
			})
			fmt.Println(out)
			return nil
		}

		fmt.Println(textile.Convert(string(content)))
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVarP(&convertFile, "file", "f", "", "Textile file to convert (default stdin)")
	convertCmd.Flags().BoolVar(&convertExplain, "explain", false, "show the text after each conversion pass")
	rootCmd.AddCommand(convertCmd)
}
