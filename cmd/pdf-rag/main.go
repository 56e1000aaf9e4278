package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"pdf-rag/internal/app"
	"pdf-rag/internal/config"
	"pdf-rag/internal/logging"
)

var (
	cfgPath string

	cfg    *config.AppConfig
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "pdf-rag",
	Short: "Ask questions about your PDF documents",
	Long: `pdf-rag ingests PDF and text documents into a local vector index and answers
questions from the most relevant passages, using Gemini or Claude when an API key
is configured and a local extractive answer otherwise.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		if cfgPath == "" {
			cfg, _, err = config.LoadDefault()
		} else {
			cfg, err = config.Load(cfgPath)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logCfg := cfg.Logging
		if cmd.Annotations["tui"] == "true" {
			logCfg = logging.WithoutConsole(logCfg)
		}
		logger = logging.New(logCfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (.yaml or .toml; defaults to ./config.yaml or ~/.config/pdf-rag/config.yaml)")
}

// openApp wires every component for the current command.
func openApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}
	return a, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCmd.SetOut(os.Stdout)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
