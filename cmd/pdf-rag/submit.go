package main

import (
	"github.com/spf13/cobra"
)

var submitCmd = &cobra.Command{
	Use:   "submit <file>...",
	Short: "Queue documents for ingestion",
	Long:  `Records an ingestion job for each file and puts it on the upload queue. Run "worker" or "serve" to process it.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = submitAll(cmd, a.Service, args)
	return err
}
