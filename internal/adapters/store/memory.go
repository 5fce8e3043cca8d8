package store

import (
	"context"
	"sort"
	"sync"

	"github.com/twmb/murmur3"

	"github.com/celebratehub/confetti/internal/domain/model"
	"github.com/celebratehub/confetti/pkg/metrics"
)

// Default memory store configuration constants.
const (
	defaultShardCount = 8
)

// counterEntry pairs a counter record with its optimistic version.
type counterEntry struct {
	version  uint64
	counters model.ContributorCounters
}

// counterShard owns a slice of the key space behind one lock.
type counterShard struct {
	mu      sync.RWMutex
	entries map[string]counterEntry
}

// MemoryCounterStore is a sharded in-memory CounterStore. Shard selection
// hashes the counter key so unrelated (repository, contributor) pairs do not
// contend on one lock.
type MemoryCounterStore struct {
	shards []*counterShard
}

// NewMemoryCounterStore creates an in-memory counter store with options.
func NewMemoryCounterStore(opts ...MemoryOption) *MemoryCounterStore {
	cfg := memoryConfig{shardCount: defaultShardCount}
	for _, opt := range opts {
		opt(&cfg)
	}

	shards := make([]*counterShard, cfg.shardCount)
	for i := range shards {
		shards[i] = &counterShard{entries: make(map[string]counterEntry)}
	}
	return &MemoryCounterStore{shards: shards}
}

func (s *MemoryCounterStore) shardFor(key string) *counterShard {
	h := murmur3.Sum32([]byte(key))
	return s.shards[int(h)%len(s.shards)]
}

// Load returns the current counters and version for key. Absent keys yield
// the zero record at version 0.
func (s *MemoryCounterStore) Load(ctx context.Context, key model.CounterKey) (model.ContributorCounters, uint64, error) {
	shard := s.shardFor(key.String())
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	e, ok := shard.entries[key.String()]
	if !ok {
		return model.ContributorCounters{}, 0, nil
	}
	return e.counters.Clone(), e.version, nil
}

// CompareAndSwap writes record only if the stored version still equals
// expected. Returns false when another writer got there first.
func (s *MemoryCounterStore) CompareAndSwap(ctx context.Context, key model.CounterKey, expected uint64, record model.ContributorCounters) (bool, error) {
	shard := s.shardFor(key.String())
	shard.mu.Lock()
	defer shard.mu.Unlock()

	current := shard.entries[key.String()].version
	if current != expected {
		return false, nil
	}
	shard.entries[key.String()] = counterEntry{
		version:  expected + 1,
		counters: record.Clone(),
	}
	return true, nil
}

// MemoryMilestoneStore is an in-memory MilestoneStore. Appends keep insertion
// order so listings can serve newest-first without re-sorting on every read.
type MemoryMilestoneStore struct {
	mu      sync.RWMutex
	byID    map[string]struct{}
	ordered []model.Milestone // append order, oldest first
}

// NewMemoryMilestoneStore creates an empty in-memory milestone store.
func NewMemoryMilestoneStore() *MemoryMilestoneStore {
	return &MemoryMilestoneStore{byID: make(map[string]struct{})}
}

// Append stores m unless its id already exists. The duplicate path is the
// designed idempotency outcome, not an error.
func (s *MemoryMilestoneStore) Append(ctx context.Context, m model.Milestone) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[m.ID]; exists {
		return false, nil
	}
	s.byID[m.ID] = struct{}{}
	s.ordered = append(s.ordered, m)
	metrics.UpdateMilestoneCount(len(s.ordered))
	return true, nil
}

// List returns milestones newest-first applying f.
func (s *MemoryMilestoneStore) List(ctx context.Context, f MilestoneFilter) ([]model.Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Milestone, 0, len(s.ordered))
	for i := len(s.ordered) - 1; i >= 0; i-- {
		m := s.ordered[i]
		if f.Contributor != "" && m.Contributor != f.Contributor {
			continue
		}
		if f.Repository != "" && m.Repository != f.Repository {
			continue
		}
		out = append(out, m)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// Stats aggregates the dashboard statistics over all stored milestones.
func (s *MemoryMilestoneStore) Stats(ctx context.Context) (model.MilestoneStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contributors := make(map[string]struct{})
	types := make(map[model.Category]int)
	for _, m := range s.ordered {
		contributors[m.Contributor] = struct{}{}
		types[m.Category]++
	}
	return model.MilestoneStats{
		TotalMilestones:    len(s.ordered),
		UniqueContributors: len(contributors),
		MilestoneTypes:     types,
	}, nil
}

// MemoryDirectory is an in-memory UserDirectory keyed by GitHub login.
type MemoryDirectory struct {
	mu      sync.RWMutex
	byLogin map[string]string
}

// NewMemoryDirectory creates a directory seeded with login -> user id pairs.
func NewMemoryDirectory(seed map[string]string) *MemoryDirectory {
	byLogin := make(map[string]string, len(seed))
	for login, id := range seed {
		byLogin[login] = id
	}
	return &MemoryDirectory{byLogin: byLogin}
}

// Register adds or replaces a login mapping.
func (d *MemoryDirectory) Register(login, userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byLogin[login] = userID
}

// LookupByLogin resolves login to a user id, or ErrNotFound.
func (d *MemoryDirectory) LookupByLogin(ctx context.Context, login string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byLogin[login]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

// Logins returns the registered logins sorted, mainly for diagnostics.
func (d *MemoryDirectory) Logins() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, 0, len(d.byLogin))
	for login := range d.byLogin {
		out = append(out, login)
	}
	sort.Strings(out)
	return out
}
