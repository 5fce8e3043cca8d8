// Package store defines the durable state interfaces and their
// implementations: a sharded in-memory store and a Postgres-backed one.
package store

import (
	"context"

	"github.com/celebratehub/confetti/internal/domain/model"
)

// CounterStore provides versioned access to per-(repository, contributor)
// counters. Load never fails solely because the key is new; absent keys
// return the zero record with version 0.
//
// CompareAndSwap is the sole serialization point for concurrent deliveries
// of the same key: the write succeeds only when the caller still holds the
// current version. Plain load-then-overwrite silently drops concurrent
// increments, hence it is not part of the contract.
type CounterStore interface {
	Load(ctx context.Context, key model.CounterKey) (model.ContributorCounters, uint64, error)
	CompareAndSwap(ctx context.Context, key model.CounterKey, expected uint64, record model.ContributorCounters) (bool, error)
}

// MilestoneFilter narrows milestone listings. Zero values mean "no filter".
type MilestoneFilter struct {
	Contributor string
	Repository  string
	Limit       int
}

// MilestoneStore is the append-only record of emitted milestones.
type MilestoneStore interface {
	// Append stores the milestone unless a record with the same derived id
	// already exists. Returns false without error on the duplicate path.
	Append(ctx context.Context, m model.Milestone) (bool, error)

	// List returns milestones newest-first, applying the filter.
	List(ctx context.Context, f MilestoneFilter) ([]model.Milestone, error)

	// Stats aggregates totals, unique contributors, and per-category counts.
	Stats(ctx context.Context) (model.MilestoneStats, error)
}

// UserDirectory resolves a GitHub login to an authenticated account id.
// Lookups are best-effort: a missing mapping is ErrNotFound, and callers
// tolerate any failure by leaving the user id empty.
type UserDirectory interface {
	LookupByLogin(ctx context.Context, login string) (string, error)
}
