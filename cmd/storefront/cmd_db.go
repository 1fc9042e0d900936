package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/config"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the Postgres schema",
}

// storefront migrate up
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return db.ApplyMigrations(cfg.Postgres)
	},
}

// storefront migrate down
var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return db.RollbackMigration(cfg.Postgres)
	},
}

var seedPath string

// storefront seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo users and products into Postgres",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.App.StorageDriver == config.StorageDriverMemory {
			return errors.New("seed needs STORAGE_DRIVER=postgres; the memory driver seeds at serve time via SEED_PATH")
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		return applySeed(cmd.Context(), a, seedPath)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	seedCmd.Flags().StringVar(&seedPath, "file", "seed/catalog.yaml", "path to the YAML fixture")
}
