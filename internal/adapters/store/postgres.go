package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/celebratehub/confetti/internal/domain/model"
)

const (
	postgresOperationTimeout = 5 * time.Second
)

// PostgresStore backs all three store interfaces with a single database.
// The connection and schema are initialized lazily on first use.
type PostgresStore struct {
	dsn    string
	openDB func(driverName, dsn string) (*sql.DB, error)

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

// NewPostgresStore creates a store for the given DSN. No connection is made
// until the first operation.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres dsn must not be empty")
	}
	return &PostgresStore{dsn: dsn, openDB: sql.Open}, nil
}

func (s *PostgresStore) ensureReady(ctx context.Context) error {
	s.initOnce.Do(func() {
		db, err := s.openDB("postgres", s.dsn)
		if err != nil {
			s.initErr = err
			return
		}
		schema := []string{
			`CREATE TABLE IF NOT EXISTS contributor_stats (
				stats_key TEXT PRIMARY KEY,
				version BIGINT NOT NULL,
				counters JSONB NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS milestones (
				id TEXT PRIMARY KEY,
				category TEXT NOT NULL,
				repository TEXT NOT NULL,
				contributor TEXT NOT NULL,
				count INTEGER NOT NULL,
				threshold INTEGER NOT NULL,
				user_id TEXT NOT NULL DEFAULT '',
				celebration_post TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS users (
				login TEXT PRIMARY KEY,
				user_id TEXT NOT NULL
			)`,
		}
		for _, stmt := range schema {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				s.initErr = err
				return
			}
		}
		s.db = db
	})
	return s.initErr
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// persistedCounters is the JSONB document shape. The contribution-day set is
// stored as a sorted array.
type persistedCounters struct {
	PullRequests     int       `json:"pull_requests"`
	Stars            int       `json:"stars"`
	Issues           int       `json:"issues"`
	Commits          int       `json:"commits"`
	ContributionDays []string  `json:"contribution_days"`
	LastUpdated      time.Time `json:"last_updated"`
}

func toPersisted(c model.ContributorCounters) persistedCounters {
	days := make([]string, 0, len(c.ContributionDays))
	for d := range c.ContributionDays {
		days = append(days, d)
	}
	sort.Strings(days)
	return persistedCounters{
		PullRequests:     c.PullRequests,
		Stars:            c.Stars,
		Issues:           c.Issues,
		Commits:          c.Commits,
		ContributionDays: days,
		LastUpdated:      c.LastUpdated,
	}
}

func fromPersisted(p persistedCounters) model.ContributorCounters {
	c := model.ContributorCounters{
		PullRequests: p.PullRequests,
		Stars:        p.Stars,
		Issues:       p.Issues,
		Commits:      p.Commits,
		LastUpdated:  p.LastUpdated,
	}
	for _, d := range p.ContributionDays {
		c.AddContributionDay(d)
	}
	return c
}

// Load implements CounterStore.
func (s *PostgresStore) Load(ctx context.Context, key model.CounterKey) (model.ContributorCounters, uint64, error) {
	const op = "store.postgres.load"
	if err := s.ensureReady(ctx); err != nil {
		return model.ContributorCounters{}, 0, WrapKind(op, ErrUnavailable, err)
	}
	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	var version uint64
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT version, counters FROM contributor_stats WHERE stats_key = $1`,
		key.String(),
	).Scan(&version, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ContributorCounters{}, 0, nil
	}
	if err != nil {
		return model.ContributorCounters{}, 0, WrapKind(op, ErrUnavailable, err)
	}
	var p persistedCounters
	if err := json.Unmarshal(payload, &p); err != nil {
		return model.ContributorCounters{}, 0, WrapKind(op, ErrUnavailable, err)
	}
	return fromPersisted(p), version, nil
}

// CompareAndSwap implements CounterStore. Version 0 means the row must not
// exist yet; the guarded INSERT/UPDATE makes the swap atomic on the server.
func (s *PostgresStore) CompareAndSwap(ctx context.Context, key model.CounterKey, expected uint64, record model.ContributorCounters) (bool, error) {
	const op = "store.postgres.cas"
	if err := s.ensureReady(ctx); err != nil {
		return false, WrapKind(op, ErrUnavailable, err)
	}
	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	payload, err := json.Marshal(toPersisted(record))
	if err != nil {
		return false, WrapKind(op, ErrUnavailable, err)
	}

	var res sql.Result
	if expected == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO contributor_stats (stats_key, version, counters)
			 VALUES ($1, 1, $2)
			 ON CONFLICT (stats_key) DO NOTHING`,
			key.String(), payload,
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE contributor_stats SET version = $1, counters = $2
			 WHERE stats_key = $3 AND version = $4`,
			expected+1, payload, key.String(), expected,
		)
	}
	if err != nil {
		return false, WrapKind(op, ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, WrapKind(op, ErrUnavailable, err)
	}
	return n == 1, nil
}

// Append implements MilestoneStore. ON CONFLICT DO NOTHING is the idempotent
// path for redelivered crossings.
func (s *PostgresStore) Append(ctx context.Context, m model.Milestone) (bool, error) {
	const op = "store.postgres.append"
	if err := s.ensureReady(ctx); err != nil {
		return false, WrapKind(op, ErrUnavailable, err)
	}
	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO milestones
		   (id, category, repository, contributor, count, threshold, user_id, celebration_post, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO NOTHING`,
		m.ID, string(m.Category), m.Repository, m.Contributor,
		m.Count, m.Threshold, m.UserID, m.CelebrationPost, m.CreatedAt,
	)
	if err != nil {
		return false, WrapKind(op, ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, WrapKind(op, ErrUnavailable, err)
	}
	return n == 1, nil
}

// List implements MilestoneStore.
func (s *PostgresStore) List(ctx context.Context, f MilestoneFilter) ([]model.Milestone, error) {
	const op = "store.postgres.list"
	if err := s.ensureReady(ctx); err != nil {
		return nil, WrapKind(op, ErrUnavailable, err)
	}
	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	query := `SELECT id, category, repository, contributor, count, threshold, user_id, celebration_post, created_at
	          FROM milestones WHERE 1=1`
	args := []any{}
	if f.Contributor != "" {
		args = append(args, f.Contributor)
		query += ` AND contributor = $` + strconv.Itoa(len(args))
	}
	if f.Repository != "" {
		args = append(args, f.Repository)
		query += ` AND repository = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, WrapKind(op, ErrUnavailable, err)
	}
	defer rows.Close()

	var out []model.Milestone
	for rows.Next() {
		var m model.Milestone
		var category string
		if err := rows.Scan(&m.ID, &category, &m.Repository, &m.Contributor,
			&m.Count, &m.Threshold, &m.UserID, &m.CelebrationPost, &m.CreatedAt); err != nil {
			return nil, WrapKind(op, ErrUnavailable, err)
		}
		m.Category = model.Category(category)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapKind(op, ErrUnavailable, err)
	}
	return out, nil
}

// Stats implements MilestoneStore.
func (s *PostgresStore) Stats(ctx context.Context) (model.MilestoneStats, error) {
	const op = "store.postgres.stats"
	if err := s.ensureReady(ctx); err != nil {
		return model.MilestoneStats{}, WrapKind(op, ErrUnavailable, err)
	}
	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	stats := model.MilestoneStats{MilestoneTypes: make(map[model.Category]int)}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT contributor) FROM milestones`,
	).Scan(&stats.TotalMilestones, &stats.UniqueContributors)
	if err != nil {
		return model.MilestoneStats{}, WrapKind(op, ErrUnavailable, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM milestones GROUP BY category`,
	)
	if err != nil {
		return model.MilestoneStats{}, WrapKind(op, ErrUnavailable, err)
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return model.MilestoneStats{}, WrapKind(op, ErrUnavailable, err)
		}
		stats.MilestoneTypes[model.Category(category)] = n
	}
	if err := rows.Err(); err != nil {
		return model.MilestoneStats{}, WrapKind(op, ErrUnavailable, err)
	}
	return stats, nil
}

// LookupByLogin implements UserDirectory.
func (s *PostgresStore) LookupByLogin(ctx context.Context, login string) (string, error) {
	const op = "store.postgres.lookup"
	if err := s.ensureReady(ctx); err != nil {
		return "", WrapKind(op, ErrUnavailable, err)
	}
	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM users WHERE login = $1`, login,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", WrapKind(op, ErrUnavailable, err)
	}
	return id, nil
}
