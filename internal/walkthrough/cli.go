package walkthrough

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/skillcheck/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends log output to the console and to logFile.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) error {
	if logFile == "" {
		logFile = "walkthrough_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			return err
		}
	}
	return nil
}

// ShowHelp prints usage information for the walkthrough tool.
func ShowHelp() {
	os.Stdout.WriteString(`Skillcheck Walkthrough
======================

Plays complete assessment sessions against a running server and checks
every response against the API contract.

Usage:
  go run ./cmd/walkthrough [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -sessions int
        Number of complete sessions to run (default 5)
  -workers int
        Number of concurrent sessions (default 2)
  -timeout duration
        HTTP request timeout (default 60s)
  -max-mentor-turns int
        Upper bound on mentor turns per session (default 12)
  -output string
        Write session transcripts to this JSON file
  -log string
        Log file (default: walkthrough_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # One session against a local server
  go run ./cmd/walkthrough -sessions 1

  # Keep the transcripts
  go run ./cmd/walkthrough -sessions 10 -workers 4 -output out/transcripts.json
`)
}
