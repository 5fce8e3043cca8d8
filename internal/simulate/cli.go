package simulate

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/celebratehub/confetti/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "simulation_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the webhook simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Confetti Webhook Simulator
==========================

A concurrent tool that fires synthetic GitHub webhook deliveries at a running
confetti service and verifies the milestones it records.

Usage:
  go run cmd/test-webhooks/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8090")
  -deliveries int
        Number of webhook deliveries to generate (default 1000)
  -contributors int
        Number of distinct contributor logins (default 20)
  -repos int
        Number of distinct repositories (default 5)
  -dup float
        Fraction of deliveries redelivered with the same delivery id (default 0.05)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Log file for simulation output (default: simulation_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Simulate with default settings
  go run cmd/test-webhooks/main.go

  # Hammer a small contributor pool so high thresholds fire
  go run cmd/test-webhooks/main.go -deliveries 50000 -contributors 3 -workers 16

  # Exercise the ingress dedupe path heavily
  go run cmd/test-webhooks/main.go -dup 0.5 -verbose
`)
}
