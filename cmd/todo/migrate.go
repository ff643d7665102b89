package main

import (
	"errors"

	"github.com/spf13/cobra"

	log "github.com/freundallein/todo/backend/chassis/logging"

	"github.com/freundallein/todo/backend/chassis/config"
	"github.com/freundallein/todo/backend/chassis/storage"
)

func newMigrateCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply postgres schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			log.Init("migrate", appCfg.LogLevel)
			if appCfg.Storage.Driver != config.DriverPostgres {
				return errors.New("migrate requires the postgres storage driver")
			}
			return storage.Migrate(appCfg.Storage.DSN)
		},
	}
}
