package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-files/pkg/simplefiles/config"
	repopg "github.com/tendant/simple-files/pkg/simplefiles/repo/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dbType, err := cfg.DatabaseType()
		if err != nil {
			return err
		}
		if dbType != config.BackendPostgres {
			return errors.New("migrate requires DATABASE_URL to point at Postgres")
		}

		if err := repopg.Migrate(cmd.Context(), cfg.DatabaseURL); err != nil {
			return err
		}
		slog.Info("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
