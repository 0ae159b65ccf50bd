package main

import (
	"github.com/spf13/cobra"

	"flashdeck-backend/internal/config"
	"flashdeck-backend/internal/database"
	"flashdeck-backend/internal/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply, roll back or list database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}

			databaseURL, err := config.LoadDatabaseURL()
			if err != nil {
				return err
			}
			logger.Setup("info", "development")
			return database.Migrate(cmd.Context(), databaseURL, command)
		},
	}
}
