package simulate

import (
	"encoding/json"
	"time"
)

// Config holds configuration for the webhook simulation run
type Config struct {
	BaseURL       string        // Base URL of the service
	NumDeliveries int           // Number of webhook deliveries to generate
	Contributors  int           // Number of distinct contributor logins
	Repositories  int           // Number of distinct repositories
	DuplicateRate float64       // Fraction of deliveries redelivered with the same delivery id
	Workers       int           // Number of concurrent workers
	Timeout       time.Duration // HTTP request timeout
	LogFile       string        // Log file for simulation output
	Verbose       bool          // Enable verbose logging
}

// Delivery is one synthetic GitHub webhook delivery ready to POST.
type Delivery struct {
	EventType  string // X-GitHub-Event header value
	DeliveryID string // X-GitHub-Delivery header value
	Body       []byte
	Redelivery bool // true when this reuses an earlier delivery id
}

// WebhookAck mirrors the service's webhook response.
type WebhookAck struct {
	Success         bool            `json:"success"`
	Milestone       json.RawMessage `json:"milestone,omitempty"`
	CelebrationPost string          `json:"celebration_post,omitempty"`
	Message         string          `json:"message,omitempty"`
}

// Stats holds simulation statistics
type Stats struct {
	DeliveriesGenerated int
	DeliveriesSubmitted int
	DeliveriesAccepted  int
	DeliveriesDuplicate int
	DeliveriesFailed    int
	MilestonesObserved  int
	Celebrations        int
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
}
