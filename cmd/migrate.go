package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"homecheff/config"
	"homecheff/config/database"
	"homecheff/internal/logger"
)

var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations.",
	Long:  `Applies the embedded schema migrations to DATABASE_URL. serve does this on startup too.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log, err := logger.New(cfg.Env, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer log.Sync()

		verbose, _ := cmd.Flags().GetBool("verbose")
		if err := database.Migrate(cfg.DB.URL, verbose, log); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		return nil
	},
}

func init() {
	MigrateCmd.Flags().Bool("verbose", true, "Log every applied migration")
}
