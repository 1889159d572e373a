package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvetinski/phonebook/config"
	"github.com/kvetinski/phonebook/internal/adapters/repository"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the contacts table for the configured SQL backend",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		driver, dsn, ok := sqlTarget(cfg)
		if !ok {
			return fmt.Errorf("store backend %q has no schema", cfg.StoreBackend)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		db, err := repository.Open(ctx, driver, dsn)
		if err != nil {
			return err
		}
		defer db.Close()

		if err = repository.EnsureSchema(ctx, db); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "contacts table ready (%s)\n", cfg.StoreBackend)
		return nil
	},
}

func sqlTarget(cfg config.Config) (driver, dsn string, ok bool) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return repository.DriverPostgres, cfg.PostgresURI, true
	case config.BackendSQLite:
		return repository.DriverSQLite, cfg.SQLitePath, true
	default:
		return "", "", false
	}
}
