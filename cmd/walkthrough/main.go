package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/skillcheck/internal/walkthrough"
)

// Default configuration constants.
const (
	defaultSessions       = 5
	defaultWorkers        = 2
	defaultMaxMentorTurns = 12
	defaultTimeout        = 60 * time.Second
	defaultRunTimeout     = 30 * time.Minute
)

func main() {
	var (
		baseURL        = flag.String("url", "http://localhost:8080", "Base URL of the service")
		sessions       = flag.Int("sessions", defaultSessions, "Number of complete sessions to run")
		workers        = flag.Int("workers", defaultWorkers, "Number of concurrent sessions")
		timeout        = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		maxMentorTurns = flag.Int("max-mentor-turns", defaultMaxMentorTurns, "Upper bound on mentor turns per session")
		outputFile     = flag.String("output", "", "Write session transcripts to this JSON file")
		logFile        = flag.String("log", "", "Log file (default: walkthrough_TIMESTAMP.log)")
		verbose        = flag.Bool("verbose", false, "Enable verbose logging")
		help           = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		walkthrough.ShowHelp()
		return
	}

	if err := walkthrough.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &walkthrough.Config{
		BaseURL:        *baseURL,
		Sessions:       *sessions,
		Workers:        *workers,
		Timeout:        *timeout,
		MaxMentorTurns: *maxMentorTurns,
		OutputFile:     *outputFile,
		Verbose:        *verbose,
	}

	if _, err := walkthrough.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Walkthrough failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called above
	}
}
