package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dt-pm-tools/r2c/internal/config"
	"github.com/dt-pm-tools/r2c/internal/logging"
	"github.com/dt-pm-tools/r2c/internal/mapping"
	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	mappingFile string
	verbose     bool
	appConfig   config.Config
	logger      = logging.Discard()
	flushLogs   = func() {}
	version     = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "r2c",
	Short: "Migrate Redmine issues to ClickUp tasks",
	Long: `Moves one Redmine issue into a ClickUp list: the description is converted from
Textile to Markdown, tracker and custom fields are mapped onto the task, and the
Redmine issue is closed with a link to the new task.

Running r2c without a subcommand is the same as 'r2c migrate'.`,
	Version:      version,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runMigrate,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging("")
	},
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	flushLogs()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.r2c.yaml)")
	rootCmd.PersistentFlags().StringVar(&mappingFile, "mapping", "", "field mapping file overriding the built-in tables")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every request")
	addMigrateFlags(rootCmd)
}

// loadConfig loads the configuration, asking for and saving any missing
// required key. Commands that need Redmine or ClickUp access call this.
func loadConfig() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if missing := cfg.Missing(); len(missing) > 0 {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}
		fmt.Fprintf(os.Stderr, "Some settings are missing; they will be saved to %s\n", path)
		if err := promptMissing(&cfg, missing); err != nil {
			return err
		}
		err = config.Persist(path, func(stored *config.Config) {
			for _, k := range missing {
				k.Set(stored, k.Get(&cfg))
			}
		})
		if err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w\nRun 'r2c config' to set up credentials", err)
	}
	appConfig = cfg
	return initLogging(cfg.SentryDSN)
}

// loadMapping reads the field mapping named by --mapping or the config file.
func loadMapping() (mapping.Mapping, error) {
	path := mappingFile
	if path == "" {
		path = appConfig.MappingFile
	}
	m, err := mapping.Load(path)
	if err != nil {
		return mapping.Mapping{}, fmt.Errorf("loading mapping: %w", err)
	}
	return m, nil
}

func initLogging(sentryDSN string) error {
	flushLogs()
	l, flush, err := logging.New(logging.Config{
		Verbose:   verbose,
		SentryDSN: sentryDSN,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	logger, flushLogs = l, flush
	return nil
}
