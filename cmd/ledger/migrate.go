package main

import (
	"fmt"

	"stakeledger/internal/config"
	"stakeledger/internal/database"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.InitConfig()
			if err != nil {
				return err
			}
			dsn := database.DSN(cfg.Postgres)

			switch args[0] {
			case "up":
				return database.MigrateUp(dsn)
			case "down":
				return database.MigrateDown(dsn)
			}
			return fmt.Errorf("unknown direction %q, want up or down", args[0])
		},
	}
}
