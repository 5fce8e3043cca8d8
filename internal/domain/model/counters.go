package model

import (
	"time"
)

// CounterKey identifies one (repository, contributor) counter record.
type CounterKey struct {
	Repository string
	Actor      string
}

// String renders the key in the document-id form used by the stores.
func (k CounterKey) String() string {
	return k.Repository + "_" + k.Actor
}

// ContributorCounters is the per-(repository, contributor) tally. Counters
// only ever increase and the contribution-day set only ever grows; the record
// is the sole source of truth for how many actions the actor performed in the
// repository. Created lazily on first event, never deleted.
type ContributorCounters struct {
	PullRequests     int                 `json:"pull_requests"`
	Stars            int                 `json:"stars"`
	Issues           int                 `json:"issues"`
	Commits          int                 `json:"commits"`
	ContributionDays map[string]struct{} `json:"contribution_days"`
	LastUpdated      time.Time           `json:"last_updated"`
}

// Clone returns a deep copy safe to mutate during a load-modify-CAS cycle.
func (c ContributorCounters) Clone() ContributorCounters {
	days := make(map[string]struct{}, len(c.ContributionDays))
	for d := range c.ContributionDays {
		days[d] = struct{}{}
	}
	out := c
	out.ContributionDays = days
	return out
}

// AddContributionDay records one UTC calendar date (ISO "2006-01-02").
func (c *ContributorCounters) AddContributionDay(day string) {
	if c.ContributionDays == nil {
		c.ContributionDays = make(map[string]struct{})
	}
	c.ContributionDays[day] = struct{}{}
}

// ValueFor returns the current counter value for a category.
func (c ContributorCounters) ValueFor(cat Category) int {
	switch cat {
	case CategoryPullRequest:
		return c.PullRequests
	case CategoryStar:
		return c.Stars
	case CategoryIssue:
		return c.Issues
	case CategoryCommit:
		return c.Commits
	case CategoryContributionDays:
		return len(c.ContributionDays)
	default:
		return 0
	}
}
