package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "flashdeck",
		Short:        "Flashcard decks with AI-generated cards and randomized study passes",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(newServeCmd(), newMigrateCmd(), newParseCardsCmd())
	return root
}
