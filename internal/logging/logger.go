package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"

	"pdf-rag/internal/config"
)

const defaultLogFile = "logs/pdf-rag.log"

// New builds the arbor logger described by cfg. An empty output list logs nowhere.
func New(cfg config.LoggingConfig) arbor.ILogger {
	hasFile, hasConsole := false, false
	for _, output := range cfg.Output {
		switch output {
		case "file":
			hasFile = true
		case "stdout", "console":
			hasConsole = true
		}
	}
	if !hasFile && !hasConsole {
		return arbor.NewLogger()
	}

	logger := arbor.NewLogger()
	if hasFile {
		logFile := cfg.File
		if logFile == "" {
			logFile = defaultLogFile
		}
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to create log directory: %v\n", err)
		} else {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:             models.LogWriterTypeFile,
				FileName:         logFile,
				TimeFormat:       "15:04:05",
				MaxSize:          50 * 1024 * 1024,
				MaxBackups:       3,
				DisableTimestamp: false,
			})
		}
	}
	if hasConsole {
		logger = logger.WithConsoleWriter(models.WriterConfiguration{
			Type:             models.LogWriterTypeConsole,
			TimeFormat:       "15:04:05",
			DisableTimestamp: false,
		})
	}
	return logger.WithLevelFromString(cfg.Level)
}

// WithoutConsole drops console outputs, for commands that own the terminal.
// File output is kept so a full-screen UI can still be debugged.
func WithoutConsole(cfg config.LoggingConfig) config.LoggingConfig {
	out := cfg
	out.Output = nil
	for _, o := range cfg.Output {
		if o == "file" {
			out.Output = append(out.Output, o)
		}
	}
	return out
}
