package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"pdf-rag/internal/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Queue documents and process the queue until it is empty",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

type submitter interface {
	SubmitDocument(ctx context.Context, filename, path string) (string, error)
	Job(ctx context.Context, id string) (*domain.Job, error)
}

// submitAll submits every path, printing one line per file. It fails if any submit failed.
func submitAll(cmd *cobra.Command, svc submitter, paths []string) ([]string, error) {
	var ids []string
	var errs []error
	for _, p := range paths {
		id, err := svc.SubmitDocument(cmd.Context(), "", p)
		if err != nil {
			cmd.PrintErrf("%s: %v\n", p, err)
			errs = append(errs, err)
			continue
		}
		cmd.Printf("%s queued as job %s\n", p, id)
		ids = append(ids, id)
	}
	return ids, errors.Join(errs...)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ids, submitErr := submitAll(cmd, a.Service, args)
	if err := a.Worker.Drain(cmd.Context()); err != nil {
		return fmt.Errorf("ingestion interrupted: %w", err)
	}

	failed := 0
	for _, id := range ids {
		job, err := a.Service.Job(cmd.Context(), id)
		if err != nil {
			return err
		}
		printJob(cmd, job)
		if job.State == domain.JobFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d job(s) failed", failed, len(ids))
	}
	return submitErr
}
