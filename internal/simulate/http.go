package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(url string) (*http.Response, error) {
	return c.client.Get(url)
}

// PostDelivery performs a POST with GitHub webhook headers set.
func (c *HTTPClient) PostDelivery(ctx context.Context, url string, d Delivery) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(d.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", d.EventType)
	req.Header.Set("X-GitHub-Delivery", d.DeliveryID)
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitDeliveries submits deliveries concurrently using worker pools
func submitDeliveries(ctx context.Context, config *Config, deliveries []Delivery, stats *Stats) error {
	log.Printf("📤 Submitting %d deliveries with %d workers...", len(deliveries), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/webhook"

	// Counters for statistics
	var (
		accepted     int64
		duplicate    int64
		failed       int64
		submitted    int64
		celebrations int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	deliveryChan := make(chan Delivery, config.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for d := range deliveryChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSingleDelivery(ctx, client, url, d)

					// Update counters
					atomic.AddInt64(&submitted, 1)
					switch result {
					case outcomeAccepted:
						atomic.AddInt64(&accepted, 1)
					case outcomeCelebrated:
						atomic.AddInt64(&accepted, 1)
						atomic.AddInt64(&celebrations, 1)
					case outcomeDuplicate:
						atomic.AddInt64(&duplicate, 1)
					case outcomeFailed:
						atomic.AddInt64(&failed, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						acc := atomic.LoadInt64(&accepted)
						dup := atomic.LoadInt64(&duplicate)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Progress: %d/%d submitted (accepted: %d, duplicate: %d, failed: %d)",
								total, len(deliveries), acc, dup, fail)
						} else {
							fmt.Printf("\r📤 Submitted: %d/%d (accepted: %d, duplicate: %d, failed: %d)",
								total, len(deliveries), acc, dup, fail)
						}
					}
				}
			}
		}()
	}

	// Send deliveries to workers
	go func() {
		defer close(deliveryChan)
		for _, d := range deliveries {
			select {
			case <-ctx.Done():
				return
			case deliveryChan <- d:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Update stats
	stats.DeliveriesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.DeliveriesAccepted = int(atomic.LoadInt64(&accepted))
	stats.DeliveriesDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.DeliveriesFailed = int(atomic.LoadInt64(&failed))
	stats.Celebrations = int(atomic.LoadInt64(&celebrations))

	log.Printf(`✅ Delivery submission completed:
   Accepted: %d
   Celebrations: %d
   Duplicate: %d
   Failed: %d
`, stats.DeliveriesAccepted, stats.Celebrations, stats.DeliveriesDuplicate, stats.DeliveriesFailed)

	return nil
}

// Submission outcomes.
const (
	outcomeAccepted   = "accepted"
	outcomeCelebrated = "celebrated"
	outcomeDuplicate  = "duplicate"
	outcomeFailed     = "failed"
)

// submitSingleDelivery submits a single delivery and classifies the outcome.
func submitSingleDelivery(ctx context.Context, client *HTTPClient, url string, d Delivery) string {
	resp, err := client.PostDelivery(ctx, url, d)
	if err != nil {
		return outcomeFailed
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return outcomeFailed
	}

	if resp.StatusCode != statusOK {
		return outcomeFailed
	}

	var ack WebhookAck
	if err := json.Unmarshal(body, &ack); err != nil || !ack.Success {
		return outcomeFailed
	}
	switch {
	case len(ack.Milestone) > 0:
		return outcomeCelebrated
	case d.Redelivery:
		return outcomeDuplicate
	default:
		return outcomeAccepted
	}
}
