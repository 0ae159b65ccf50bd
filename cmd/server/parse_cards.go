package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"flashdeck-backend/internal/cardparse"
)

func newParseCardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse-cards [file]",
		Short: "Parse raw model output into flashcards and print them as JSON",
		Long: "Reads model output from the given file, or stdin when no file is given, and prints " +
			"the question/answer records that would be stored.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return parseCards(in, cmd.OutOrStdout())
		},
	}
}

func parseCards(in io.Reader, out io.Writer) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	cards, err := cardparse.Parse(string(raw))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(cards)
}
