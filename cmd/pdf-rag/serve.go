package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pdf-rag/internal/tui"
)

var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Run the worker, the inbox watcher and the chat UI together",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{"tui": "true"},
	RunE:        runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Worker.Run(ctx) })
	g.Go(func() error { return a.Inbox.Run(ctx) })
	g.Go(func() error {
		defer cancel()
		title := "PDF Chat  (drop files into " + cfg.Inbox.Dir + ")"
		_, err := tea.NewProgram(tui.New(ctx, a.Service, title), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
	return g.Wait()
}
