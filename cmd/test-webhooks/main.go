package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/celebratehub/confetti/internal/simulate"
)

// Default configuration constants.
const (
	defaultDeliveries    = 1000
	defaultContributors  = 20
	defaultRepositories  = 5
	defaultDuplicateRate = 0.05
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 30 * time.Second
	defaultRunTimeout    = 10 * time.Minute
)

func main() {
	var (
		baseURL       = flag.String("url", "http://localhost:8090", "Base URL of the service")
		deliveries    = flag.Int("deliveries", defaultDeliveries, "Number of webhook deliveries to generate")
		contributors  = flag.Int("contributors", defaultContributors, "Number of distinct contributor logins")
		repositories  = flag.Int("repos", defaultRepositories, "Number of distinct repositories")
		duplicateRate = flag.Float64("dup", defaultDuplicateRate, "Fraction of deliveries redelivered with the same delivery id")
		workers       = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout       = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile       = flag.String("log", "", "Log file for simulation output (default: simulation_log_TIMESTAMP.log)")
		verbose       = flag.Bool("verbose", false, "Enable verbose logging")
		help          = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	// Setup logging
	if err := simulate.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	// Create simulation configuration
	config := &simulate.Config{
		BaseURL:       *baseURL,
		NumDeliveries: *deliveries,
		Contributors:  *contributors,
		Repositories:  *repositories,
		DuplicateRate: *duplicateRate,
		Workers:       *workers,
		Timeout:       *timeout,
		LogFile:       *logFile,
		Verbose:       *verbose,
	}

	// Run the simulation
	if err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		return
	}
}
