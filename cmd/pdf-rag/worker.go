package main

import (
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued ingestion jobs until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runWorker,
}

var workerWatch bool

func init() {
	workerCmd.Flags().BoolVar(&workerWatch, "watch", false, "also queue files dropped into the inbox directory")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if workerWatch {
		go func() {
			if err := a.Inbox.Run(cmd.Context()); err != nil {
				logger.Error().Err(err).Msg("Inbox watcher stopped")
			}
		}()
	}
	return a.Worker.Run(cmd.Context())
}
