package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpattn/payrolldesk/internal/db"
)

func newMigrateCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := global.load()
			if err != nil {
				return err
			}

			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			switch direction {
			case "up":
				return db.RunMigrations(cfg.Database, logger)
			case "down":
				return db.RollbackMigration(cfg.Database, logger)
			}
			return fmt.Errorf("unknown direction %q", direction)
		},
	}
}
