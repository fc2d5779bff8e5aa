package main

import (
	"agentchain/internal/config"
	"agentchain/internal/db"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Storage.Driver != config.DriverPostgres {
			return errors.New("migrate requires storage.driver=postgres")
		}

		gdb, err := db.Open(cfg.Storage.DSN)
		if err != nil {
			return err
		}
		defer db.Close(gdb)

		if err := db.Ping(cmd.Context(), gdb); err != nil {
			return errors.Wrap(err, "ping database")
		}
		return db.Migrate(gdb)
	},
}
