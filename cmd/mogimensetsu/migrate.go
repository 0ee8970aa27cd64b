package main

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		// The pool provider migrates before handing out the pool.
		pool, err := do.Invoke[*pgxpool.Pool](setupDI(loadedConfig))
		if err != nil {
			return err
		}
		pool.Close()
		slog.Info("database schema is up to date")
		return nil
	},
}
