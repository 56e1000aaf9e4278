package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pdf-rag/internal/domain"
	"pdf-rag/internal/tui"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question from the indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer and its context as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Service.AnswerQuery(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return err
		}
		logger.Error().Err(err).Msg("Chat request failed")
		return errors.New(tui.FailureMessage)
	}
	if askJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(res.Answer)
	cmd.Println()
	cmd.Printf("Answered by: %s\n", res.Source)
	for i, c := range res.Context {
		cmd.Printf("  [%d] %v p.%v\n", i+1, c.Metadata["filename"], c.Metadata["page"])
		cmd.Printf("      %s\n", strings.ReplaceAll(c.Content, "\n", " "))
	}
	return nil
}
