package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category names a milestone counter. Values match the document fields used
// by the dashboard, so they appear verbatim in API responses.
type Category string

const (
	CategoryPullRequest      Category = "pull_request"
	CategoryStar             Category = "star"
	CategoryIssue            Category = "issue"
	CategoryCommit           Category = "commit"
	CategoryContributionDays Category = "contribution_days"
)

// Categories lists every known category in a stable order.
func Categories() []Category {
	return []Category{
		CategoryPullRequest,
		CategoryStar,
		CategoryIssue,
		CategoryCommit,
		CategoryContributionDays,
	}
}

// milestoneNamespace seeds the deterministic milestone id derivation.
var milestoneNamespace = uuid.MustParse("8e2f4a1c-5b7d-4e90-a3c6-1d8f0b52e7a4")

// MilestoneID derives the identity of a threshold crossing. The same
// (repository, actor, category, threshold) tuple always maps to the same id,
// which is what makes redundant deliveries and racing detectors converge on
// a single stored milestone.
func MilestoneID(repository, actor string, category Category, threshold int) string {
	name := fmt.Sprintf("%s|%s|%s|%d", repository, actor, category, threshold)
	return uuid.NewSHA1(milestoneNamespace, []byte(name)).String()
}

// Milestone is an emitted achievement. Immutable once created; never updated
// or deleted.
type Milestone struct {
	ID              string    `json:"id"`
	Category        Category  `json:"type"`
	Repository      string    `json:"repository"`
	Contributor     string    `json:"contributor"`
	Count           int       `json:"count"`
	Threshold       int       `json:"milestone_reached"`
	UserID          string    `json:"userId,omitempty"`
	CelebrationPost string    `json:"celebration_post,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewMilestone builds a milestone with its derived id.
func NewMilestone(repository, actor string, category Category, count, threshold int, now time.Time) Milestone {
	return Milestone{
		ID:          MilestoneID(repository, actor, category, threshold),
		Category:    category,
		Repository:  repository,
		Contributor: actor,
		Count:       count,
		Threshold:   threshold,
		CreatedAt:   now.UTC(),
	}
}

// PipelineResult is the outcome of processing one delivery end to end.
// Milestone is nil when no threshold was crossed or when the crossing had
// already been recorded.
type PipelineResult struct {
	Milestone         *Milestone
	CelebrationPost   string
	DuplicateDelivery bool
}

// MilestoneStats is the aggregate read shape served to the dashboard.
type MilestoneStats struct {
	TotalMilestones    int              `json:"total_milestones"`
	UniqueContributors int              `json:"unique_contributors"`
	MilestoneTypes     map[Category]int `json:"milestone_types"`
}
