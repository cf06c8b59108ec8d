package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrPickNotFound is returned when feedback references an unknown pick.
	ErrPickNotFound = errors.New("storage: pick not found")
)

const (
	createRawOddsSQL = `CREATE TABLE IF NOT EXISTS raw_odds (
        id SERIAL PRIMARY KEY,
        sport_key TEXT,
        market_key TEXT,
        team TEXT,
        price FLOAT,
        point FLOAT,
        timestamp TIMESTAMP
    );`

	createPicksSQL = `CREATE TABLE IF NOT EXISTS picks (
        id SERIAL PRIMARY KEY,
        sport_key TEXT,
        market_key TEXT,
        pick TEXT,
        confidence FLOAT,
        timestamp TIMESTAMP
    );`

	createFeedbackSQL = `CREATE TABLE IF NOT EXISTS feedback (
        id SERIAL PRIMARY KEY,
        pick_id INTEGER NOT NULL,
        feedback_type TEXT NOT NULL,
        created_at TIMESTAMP NOT NULL DEFAULT NOW()
    );`

	pickColumnsSQL = `id,
        COALESCE(sport_key, ''),
        COALESCE(market_key, ''),
        COALESCE(pick, ''),
        COALESCE(confidence, 0),
        timestamp`

	listTopPicksSQL = `SELECT ` + pickColumnsSQL + `
    FROM picks
    ORDER BY confidence DESC NULLS LAST, id DESC
    LIMIT $1;`

	listTopPicksBySportSQL = `SELECT ` + pickColumnsSQL + `
    FROM picks
    WHERE sport_key = $1
    ORDER BY confidence DESC NULLS LAST, id DESC
    LIMIT $2;`

	listRecentPicksSQL = `SELECT ` + pickColumnsSQL + `
    FROM picks
    ORDER BY timestamp DESC NULLS LAST, id DESC
    LIMIT $1;`

	listPicksBetweenSQL = `SELECT ` + pickColumnsSQL + `
    FROM picks
    WHERE timestamp >= $1
      AND timestamp < $2
    ORDER BY timestamp, id;`

	insertFeedbackSQL = `INSERT INTO feedback (pick_id, feedback_type)
    SELECT $1::integer, $2::text
    WHERE EXISTS (SELECT 1 FROM picks WHERE id = $1::integer)
    RETURNING id, pick_id, feedback_type, created_at;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

var (
	runSchema = []string{createRawOddsSQL, createPicksSQL}

	rawOddsColumns = []string{"sport_key", "market_key", "team", "price", "point", "timestamp"}
	pickColumns    = []string{"sport_key", "market_key", "pick", "confidence", "timestamp"}
)

// RunStore persists the output of one batch run.
type RunStore interface {
	SaveRun(ctx context.Context, raw []RawOddsRecord, picks []PickRecord) (SaveResult, error)
}

// PickReader lists persisted picks.
type PickReader interface {
	TopPicks(ctx context.Context, filter PickFilter) ([]PickRecord, error)
	RecentPicks(ctx context.Context, limit int) ([]PickRecord, error)
	ListPicksBetween(ctx context.Context, from, to time.Time) ([]PickRecord, error)
}

// FeedbackStore records operator feedback on picks.
type FeedbackStore interface {
	InsertFeedback(ctx context.Context, feedback FeedbackRecord) (FeedbackRecord, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to odds, picks and feedback.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// EnsureSchema creates the raw_odds and picks tables when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.execAll(ctx, runSchema)
}

// EnsureFeedbackSchema creates the feedback table when absent.
func (s *Store) EnsureFeedbackSchema(ctx context.Context) error {
	return s.execAll(ctx, []string{createFeedbackSQL})
}

func (s *Store) execAll(ctx context.Context, statements []string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveRun creates the run tables if needed and bulk-copies raw rows and picks
// in one transaction. Nothing is committed unless every step succeeds.
func (s *Store) SaveRun(ctx context.Context, raw []RawOddsRecord, picks []PickRecord) (SaveResult, error) {
	pool, err := s.getPool()
	if err != nil {
		return SaveResult{}, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return SaveResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// no-op once committed
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	for _, stmt := range runSchema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return SaveResult{}, fmt.Errorf("ensure schema: %w", err)
		}
	}

	var result SaveResult
	if len(raw) > 0 {
		result.RawRows, err = tx.CopyFrom(ctx, pgx.Identifier{"raw_odds"}, rawOddsColumns, pgx.CopyFromRows(rawOddsRows(raw)))
		if err != nil {
			return SaveResult{}, fmt.Errorf("copy raw odds: %w", err)
		}
	}
	if len(picks) > 0 {
		result.PickRows, err = tx.CopyFrom(ctx, pgx.Identifier{"picks"}, pickColumns, pgx.CopyFromRows(pickRows(picks)))
		if err != nil {
			return SaveResult{}, fmt.Errorf("copy picks: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return SaveResult{}, fmt.Errorf("commit run: %w", err)
	}
	return result, nil
}

// TopPicks lists picks by descending confidence.
func (s *Store) TopPicks(ctx context.Context, filter PickFilter) ([]PickRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var rows pgx.Rows
	if filter.SportKey != "" {
		rows, err = pool.Query(ctx, listTopPicksBySportSQL, filter.SportKey, filter.Limit)
	} else {
		rows, err = pool.Query(ctx, listTopPicksSQL, filter.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list top picks: %w", err)
	}
	return collectPicks(rows)
}

// RecentPicks lists the most recently captured picks.
func (s *Store) RecentPicks(ctx context.Context, limit int) ([]PickRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, listRecentPicksSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent picks: %w", err)
	}
	return collectPicks(rows)
}

// ListPicksBetween lists picks captured in [from, to).
func (s *Store) ListPicksBetween(ctx context.Context, from, to time.Time) ([]PickRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, listPicksBetweenSQL, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("list picks between: %w", err)
	}
	return collectPicks(rows)
}

// InsertFeedback stores feedback for an existing pick.
func (s *Store) InsertFeedback(ctx context.Context, feedback FeedbackRecord) (FeedbackRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return FeedbackRecord{}, err
	}

	var rec FeedbackRecord
	scanErr := pool.QueryRow(ctx, insertFeedbackSQL, feedback.PickID, feedback.FeedbackType).
		Scan(&rec.ID, &rec.PickID, &rec.FeedbackType, &rec.CreatedAt)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return FeedbackRecord{}, ErrPickNotFound
	}
	if scanErr != nil {
		return FeedbackRecord{}, fmt.Errorf("insert feedback: %w", scanErr)
	}
	return rec, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// a failed unlock is released with the session anyway
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func collectPicks(rows pgx.Rows) ([]PickRecord, error) {
	defer rows.Close()

	picks := make([]PickRecord, 0)
	for rows.Next() {
		var (
			rec PickRecord
			ts  sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.SportKey, &rec.MarketKey, &rec.Pick, &rec.Confidence, &ts); err != nil {
			return nil, fmt.Errorf("scan pick: %w", err)
		}
		if ts.Valid {
			rec.Timestamp = ts.Time
		}
		picks = append(picks, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return picks, nil
}

func rawOddsRows(records []RawOddsRecord) [][]any {
	out := make([][]any, len(records))
	for i, rec := range records {
		out[i] = []any{
			rec.SportKey,
			rec.MarketKey,
			rec.Team,
			nullableFloat(rec.Price),
			nullableFloat(rec.Point),
			rec.Timestamp.UTC(),
		}
	}
	return out
}

func pickRows(records []PickRecord) [][]any {
	out := make([][]any, len(records))
	for i, rec := range records {
		out[i] = []any{
			rec.SportKey,
			rec.MarketKey,
			rec.Pick,
			rec.Confidence,
			rec.Timestamp.UTC(),
		}
	}
	return out
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

var (
	_ RunStore       = (*Store)(nil)
	_ PickReader     = (*Store)(nil)
	_ FeedbackStore  = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
