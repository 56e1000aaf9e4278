package main

import (
	"slices"
	"time"

	"github.com/spf13/cobra"

	"pdf-rag/internal/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show pipeline health, or the state of one ingestion job",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		job, err := a.Service.Job(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printJob(cmd, job)
		return nil
	}

	st, err := a.Service.Status(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("Queue %-20s %d message(s)\n", a.Queue.Name(), st.QueueDepth)
	cmd.Printf("Indexed records          %d\n", st.Records)
	cmd.Printf("Embedder                 %s\n", st.Embedder)
	states := make([]string, 0, len(st.Jobs))
	for s := range st.Jobs {
		states = append(states, string(s))
	}
	slices.Sort(states)
	for _, s := range states {
		cmd.Printf("Jobs %-19s %d\n", s, st.Jobs[domain.JobState(s)])
	}

	recent, err := a.Jobs.ListJobs(cmd.Context(), "", 5)
	if err != nil {
		return err
	}
	if len(recent) > 0 {
		cmd.Println()
		cmd.Println("Recent jobs:")
		for _, j := range recent {
			cmd.Printf("  %s  %-10s %s\n", j.ID, j.State, j.Payload.Filename)
		}
	}
	return nil
}

func printJob(cmd *cobra.Command, job *domain.Job) {
	cmd.Printf("Job %s (%s)\n", job.ID, job.Payload.Filename)
	cmd.Printf("  state:    %s\n", job.State)
	cmd.Printf("  attempts: %d\n", job.Attempts)
	if job.State == domain.JobCompleted {
		cmd.Printf("  chunks:   %d\n", job.Chunks)
	}
	if job.Error != "" {
		cmd.Printf("  error:    %s\n", job.Error)
	}
	if job.CompletedAt != nil {
		cmd.Printf("  finished: %s\n", job.CompletedAt.Format(time.RFC3339))
	}
	if job.Summary != "" {
		cmd.Printf("  summary:  %s\n", job.Summary)
	}
}
