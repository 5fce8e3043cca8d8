package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/celebratehub/confetti/pkg/logger"
)

// Run executes the complete webhook simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting confetti webhook simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("deliveries", config.NumDeliveries),
		logger.Int("contributors", config.Contributors),
		logger.Int("repositories", config.Repositories),
		logger.Float64("duplicateRate", config.DuplicateRate),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate deliveries
	deliveries, err := generateDeliveries(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("delivery generation failed: %w", err)
	}

	// Step 3: Submit deliveries concurrently
	if err := submitDeliveries(ctx, config, deliveries, stats); err != nil {
		return fmt.Errorf("delivery submission failed: %w", err)
	}

	// Step 4: Give channel fan-out a moment to drain
	logger.Get().Info(ctx, "waiting for deliveries to settle")
	time.Sleep(processingDelay)

	// Step 5: Verify stored milestones against what the acks reported
	if err := verifyMilestones(ctx, config, stats); err != nil {
		return fmt.Errorf("milestone verification failed: %w", err)
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != statusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// milestoneStats mirrors the service's /milestones/stats response.
type milestoneStats struct {
	TotalMilestones    int            `json:"total_milestones"`
	UniqueContributors int            `json:"unique_contributors"`
	MilestoneTypes     map[string]int `json:"milestone_types"`
}

// verifyMilestones cross-checks the store against the per-delivery acks.
func verifyMilestones(ctx context.Context, config *Config, stats *Stats) error {
	log.Println("🔍 Verifying stored milestones...")

	client := newHTTPClient(config.Timeout)

	resp, err := client.Get(config.BaseURL + "/milestones/stats")
	if err != nil {
		return fmt.Errorf("failed to fetch milestone stats: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read milestone stats: %w", err)
	}
	if resp.StatusCode != statusOK {
		return fmt.Errorf("milestone stats request failed with status: %d", resp.StatusCode)
	}

	var ms milestoneStats
	if err := json.Unmarshal(body, &ms); err != nil {
		return fmt.Errorf("failed to parse milestone stats: %w", err)
	}
	stats.MilestonesObserved = ms.TotalMilestones

	log.Printf("🏆 Store holds %d milestones from %d contributors", ms.TotalMilestones, ms.UniqueContributors)
	for category, count := range ms.MilestoneTypes {
		log.Printf("   %s: %d", category, count)
	}

	// Simulator runs share the store with whatever ran before them, so the
	// store can only hold at least as many milestones as this run celebrated.
	if ms.TotalMilestones < stats.Celebrations {
		return fmt.Errorf("store holds %d milestones but acks reported %d celebrations",
			ms.TotalMilestones, stats.Celebrations)
	}

	log.Println("✅ Milestone verification completed")
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, deliveriesPerSecond float64

	if stats.DeliveriesSubmitted > 0 {
		acceptRate = float64(stats.DeliveriesAccepted) / float64(stats.DeliveriesSubmitted) * percentageMultiplier
	}

	if stats.Duration > 0 {
		deliveriesPerSecond = float64(stats.DeliveriesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("deliveriesGenerated", stats.DeliveriesGenerated),
		logger.Int("deliveriesSubmitted", stats.DeliveriesSubmitted),
		logger.Int("deliveriesAccepted", stats.DeliveriesAccepted),
		logger.Int("deliveriesDuplicate", stats.DeliveriesDuplicate),
		logger.Int("deliveriesFailed", stats.DeliveriesFailed),
		logger.Int("celebrations", stats.Celebrations),
		logger.Int("milestonesObserved", stats.MilestonesObserved),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("deliveriesPerSecond", deliveriesPerSecond))
}
