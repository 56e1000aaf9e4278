package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"pdf-rag/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:         "chat",
	Short:       "Chat with the indexed documents in a terminal UI",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{"tui": "true"},
	RunE:        runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = tea.NewProgram(tui.New(cmd.Context(), a.Service, "PDF Chat"), tea.WithAltScreen()).Run()
	return err
}
