// Package detect implements milestone detection over the counter store.
//
// One call consumes one normalized event: it applies the category increment
// under an optimistic load-modify-compareAndSwap cycle, then checks whether
// the new counter value landed exactly on a configured threshold. "No
// milestone this time" is a nil result, not an error; only counter-store
// unavailability uses the error channel.
package detect

import (
	"context"
	"math/rand"
	"time"

	"github.com/celebratehub/confetti/internal/domain/model"
	"github.com/celebratehub/confetti/internal/domain/thresholds"
	"github.com/celebratehub/confetti/pkg/logger"
	"github.com/celebratehub/confetti/pkg/metrics"
)

// Default detector configuration constants.
const (
	defaultMaxAttempts    = 5
	defaultRetryBackoff   = 10 * time.Millisecond
	contributionDayFormat = "2006-01-02"
)

// CounterStore is the slice of the store contract the detector needs.
type CounterStore interface {
	Load(ctx context.Context, key model.CounterKey) (model.ContributorCounters, uint64, error)
	CompareAndSwap(ctx context.Context, key model.CounterKey, expected uint64, record model.ContributorCounters) (bool, error)
}

// UserDirectory resolves a GitHub login to an account id, best effort.
type UserDirectory interface {
	LookupByLogin(ctx context.Context, login string) (string, error)
}

// Detector consumes events and emits at most one milestone per call.
type Detector struct {
	counters  CounterStore
	table     *thresholds.Table
	directory UserDirectory

	maxAttempts  int
	retryBackoff time.Duration

	logger logger.Logger
}

// NewDetector creates a detector over the given counter store and threshold
// table with configuration options.
func NewDetector(counters CounterStore, table *thresholds.Table, opts ...Option) *Detector {
	d := &Detector{
		counters:     counters,
		table:        table,
		maxAttempts:  defaultMaxAttempts,
		retryBackoff: defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logger.Get().Named("detect")
	}
	return d
}

// Detect updates the counters for the event and returns the milestone whose
// threshold the update crossed, or nil. It retries the load-modify-CAS cycle
// on version conflicts, bounded, so a storm of conflicting writers degrades
// to a visible error rather than spinning forever.
func (d *Detector) Detect(ctx context.Context, ev model.Event) (*model.Milestone, error) {
	const op = "detect.detect"

	if ev.Kind == model.KindUnknown || ev.Repository == "" || ev.Actor == "" {
		return nil, nil
	}

	key := model.CounterKey{Repository: ev.Repository, Actor: ev.Actor}

	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		current, version, err := d.counters.Load(ctx, key)
		if err != nil {
			return nil, WrapKind(op, ErrCountersUnavailable, err)
		}

		updated := current.Clone()
		primary, streak := d.apply(&updated, ev)
		updated.LastUpdated = ev.ReceivedAt

		ok, err := d.counters.CompareAndSwap(ctx, key, version, updated)
		if err != nil {
			return nil, WrapKind(op, ErrCountersUnavailable, err)
		}
		if !ok {
			metrics.RecordCounterConflict()
			if err := d.sleepWithJitter(ctx, attempt); err != nil {
				return nil, WrapKind(op, ErrCountersUnavailable, err)
			}
			continue
		}

		return d.crossed(ctx, ev, updated, primary, streak), nil
	}

	metrics.RecordDetectRetryExhausted()
	return nil, NewKind(op, ErrCountersUnavailable)
}

// apply mutates c with the event's increment and reports the primary
// category (empty when nothing counted) and whether the contribution-day
// set was touched.
func (d *Detector) apply(c *model.ContributorCounters, ev model.Event) (model.Category, bool) {
	var primary model.Category
	switch ev.Kind {
	case model.KindPullRequestMerged:
		c.PullRequests++
		primary = model.CategoryPullRequest
	case model.KindStarCreated:
		c.Stars++
		primary = model.CategoryStar
	case model.KindIssueOpened:
		c.Issues++
		primary = model.CategoryIssue
	case model.KindPushCommits:
		if ev.CommitCount > 0 {
			c.Commits += ev.CommitCount
			primary = model.CategoryCommit
		}
	}

	streak := false
	if ev.Kind == model.KindPullRequestMerged || ev.Kind == model.KindPushCommits {
		c.AddContributionDay(ev.ReceivedAt.UTC().Format(contributionDayFormat))
		streak = true
	}
	return primary, streak
}

// crossed checks the primary category first; the contribution-day streak is
// only consulted when the primary produced no milestone.
func (d *Detector) crossed(ctx context.Context, ev model.Event, c model.ContributorCounters, primary model.Category, streak bool) *model.Milestone {
	category := primary
	value := 0
	threshold, matched := 0, false

	if primary != "" {
		value = c.ValueFor(primary)
		threshold, matched = d.table.Match(primary, value)
	}
	if !matched && streak {
		category = model.CategoryContributionDays
		value = len(c.ContributionDays)
		threshold, matched = d.table.Match(category, value)
	}
	if !matched {
		return nil
	}

	m := model.NewMilestone(ev.Repository, ev.Actor, category, value, threshold, ev.ReceivedAt)
	m.UserID = d.resolveUser(ctx, ev.Actor)

	d.logger.Info(ctx, "milestone detected",
		logger.String("repository", m.Repository),
		logger.String("contributor", m.Contributor),
		logger.String("category", string(m.Category)),
		logger.Int("threshold", m.Threshold),
	)
	metrics.RecordMilestoneEmitted(string(m.Category))
	return &m
}

// resolveUser is best effort: any failure logs and leaves the id empty.
func (d *Detector) resolveUser(ctx context.Context, login string) string {
	if d.directory == nil {
		return ""
	}
	id, err := d.directory.LookupByLogin(ctx, login)
	if err != nil {
		d.logger.Debug(ctx, "no account for contributor",
			logger.String("login", login), logger.Error(err))
		return ""
	}
	return id
}

func (d *Detector) sleepWithJitter(ctx context.Context, attempt int) error {
	backoff := d.retryBackoff << attempt
	jitter := time.Duration(rand.Int63n(int64(d.retryBackoff))) //nolint:gosec // jitter, not crypto
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff + jitter):
		return nil
	}
}
