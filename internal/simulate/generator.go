package simulate

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"strconv"

	"github.com/google/uuid"

	"github.com/celebratehub/confetti/pkg/logger"
)

// Constants for delivery mix selection.
const (
	eventTypeDivisor = 10
	maxPushCommits   = 5
)

// Event mix cases. Pushes and pull requests dominate so counter categories
// with low thresholds fire early in a run.
const (
	casePullRequestMerged = 0 // cases 0-2
	caseStarCreated       = 3 // cases 3-4
	caseIssueOpened       = 5 // cases 5-6
	casePushCommits       = 7 // cases 7-8
	caseIgnored           = 9 // non-counting action, exercises the unknown path
)

// randomInt returns a random int in [0, n) using crypto/rand.
func randomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// webhookBody is the generated GitHub payload subset the service reads.
type webhookBody struct {
	Action     string `json:"action,omitempty"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	Sender struct {
		Login string `json:"login"`
	} `json:"sender"`
	PullRequest *struct {
		Merged bool `json:"merged"`
	} `json:"pull_request,omitempty"`
	Commits []struct {
		ID string `json:"id"`
	} `json:"commits,omitempty"`
}

// generateDeliveries creates the configured number of synthetic deliveries.
// A configurable fraction reuses an earlier delivery id to exercise the
// ingress dedupe path.
func generateDeliveries(ctx context.Context, config *Config, stats *Stats) ([]Delivery, error) {
	logger.Get().Info(ctx, "generating webhook deliveries",
		logger.Int("numDeliveries", config.NumDeliveries),
		logger.Int("contributors", config.Contributors),
		logger.Int("repositories", config.Repositories),
	)

	contributors := make([]string, config.Contributors)
	for i := range contributors {
		contributors[i] = "contributor-" + strconv.Itoa(i+1)
	}
	repositories := make([]string, config.Repositories)
	for i := range repositories {
		repositories[i] = "celebratehub/repo-" + strconv.Itoa(i+1)
	}

	deliveries := make([]Delivery, 0, config.NumDeliveries)
	for i := 0; i < config.NumDeliveries; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		d, err := generateSingleDelivery(
			repositories[randomInt(len(repositories))],
			contributors[randomInt(len(contributors))],
		)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)

		// Redeliver some fraction with the same id and body.
		if config.DuplicateRate > 0 && randomInt(1000) < int(config.DuplicateRate*1000) {
			dup := d
			dup.Redelivery = true
			deliveries = append(deliveries, dup)
		}
	}

	stats.DeliveriesGenerated = len(deliveries)
	logger.Get().Info(ctx, "generated deliveries successfully", logger.Int("count", len(deliveries)))

	return deliveries, nil
}

// generateSingleDelivery creates one delivery with a fresh delivery id.
func generateSingleDelivery(repository, contributor string) (Delivery, error) {
	var body webhookBody
	body.Repository.FullName = repository
	body.Sender.Login = contributor

	var eventType string
	switch c := randomInt(eventTypeDivisor); {
	case c >= casePullRequestMerged && c < caseStarCreated:
		eventType = "pull_request"
		body.Action = "closed"
		body.PullRequest = &struct {
			Merged bool `json:"merged"`
		}{Merged: true}
	case c >= caseStarCreated && c < caseIssueOpened:
		eventType = "star"
		body.Action = "created"
	case c >= caseIssueOpened && c < casePushCommits:
		eventType = "issues"
		body.Action = "opened"
	case c >= casePushCommits && c < caseIgnored:
		eventType = "push"
		n := 1 + randomInt(maxPushCommits)
		body.Commits = make([]struct {
			ID string `json:"id"`
		}, n)
		for i := range body.Commits {
			body.Commits[i].ID = uuid.New().String()
		}
	default:
		// Non-merged close; the service accepts it and counts nothing.
		eventType = "pull_request"
		body.Action = "closed"
		body.PullRequest = &struct {
			Merged bool `json:"merged"`
		}{Merged: false}
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return Delivery{}, err
	}

	return Delivery{
		EventType:  eventType,
		DeliveryID: uuid.New().String(),
		Body:       raw,
	}, nil
}
