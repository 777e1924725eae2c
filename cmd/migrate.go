package main

import (
	"fmt"
	"log/slog"

	"face_verification/internal/config"
	"face_verification/internal/storage/postgres"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply Postgres schema migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustLoad(configPath)
		log := setupLogger(cfg.Env)

		pg, err := postgres.New(cmd.Context(), cfg.Postgres)
		if err != nil {
			return fmt.Errorf("failed to connect postgres: %w", err)
		}
		defer pg.Close()

		if err := pg.Migrate(cmd.Context()); err != nil {
			return err
		}

		log.Info("migrations applied", slog.String("database", cfg.Postgres.DBName))

		return nil
	},
}
