package cmd

import (
	"fmt"

	"github.com/dt-pm-tools/r2c/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure Redmine and ClickUp connection settings",
	Long:  `Interactively set up the Redmine URL and API key and the ClickUp URL, API key and team. Settings are saved to ~/.r2c.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := stdinReader

		// Load existing config for defaults
		cfg, _ := config.Load(cfgFile)

		var err error
		if cfg.RedmineURL, err = askLine(reader, "Redmine URL", cfg.RedmineURL); err != nil {
			return err
		}
		if cfg.RedmineAPIKey, err = askSecret("Redmine API key", cfg.RedmineAPIKey); err != nil {
			return err
		}
		if cfg.ClickUpURL, err = askLine(reader, "ClickUp API URL", cfg.ClickUpURL); err != nil {
			return err
		}
		if cfg.ClickUpAPIKey, err = askSecret("ClickUp API key", cfg.ClickUpAPIKey); err != nil {
			return err
		}
		if cfg.ClickUpTeamID, err = askLine(reader, "ClickUp team ID", cfg.ClickUpTeamID); err != nil {
			return err
		}

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}

		err = config.Persist(path, func(stored *config.Config) {
			stored.RedmineURL = cfg.RedmineURL
			stored.RedmineAPIKey = cfg.RedmineAPIKey
			stored.ClickUpURL = cfg.ClickUpURL
			stored.ClickUpAPIKey = cfg.ClickUpAPIKey
			stored.ClickUpTeamID = cfg.ClickUpTeamID
		})
		if err != nil {
			return err
		}

		fmt.Printf("Configuration saved to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
