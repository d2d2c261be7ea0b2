// Package postgres keeps memory entries, context buckets and the semantic
// index in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/log"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/retry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS memory_entries (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	session_id       TEXT NOT NULL,
	memory_type      TEXT NOT NULL,
	summary          TEXT NOT NULL,
	details          JSONB,
	confidence       DOUBLE PRECISION NOT NULL DEFAULT 0,
	importance       DOUBLE PRECISION NOT NULL DEFAULT 0,
	related_symptoms TEXT[] NOT NULL DEFAULT '{}',
	tags             TEXT[] NOT NULL DEFAULT '{}',
	source_excerpts  TEXT[] NOT NULL DEFAULT '{}',
	extracted_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memory_entries_user ON memory_entries (user_id, extracted_at DESC);

CREATE TABLE IF NOT EXISTS user_context (
	user_id         TEXT NOT NULL,
	memory_type     TEXT NOT NULL,
	items           JSONB NOT NULL DEFAULT '[]',
	session_count   INTEGER NOT NULL DEFAULT 0,
	last_session_id TEXT NOT NULL DEFAULT '',
	last_updated    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, memory_type)
);
`

// NewPool connects to databaseURL, retrying while the server starts up.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	err = retry.NewDefaultRetrier().Do(ctx, func() error {
		if err := pool.Ping(ctx); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Msg("postgres not ready")
			return err
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time

	schemaMu sync.Mutex
	ready    bool
}

var _ core.MemoryStore = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.ready {
		return nil
	}
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	s.ready = true
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) SaveEntry(ctx context.Context, e core.Entry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO memory_entries
			(id, user_id, session_id, memory_type, summary, details, confidence, importance,
			 related_symptoms, tags, source_excerpts, extracted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.UserID, e.SessionID, string(e.Type), e.Summary, details,
		e.Confidence, e.Importance, nonNil(e.RelatedSymptoms), nonNil(e.Tags), nonNil(e.SourceExcerpts),
		e.ExtractedAt,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, userID string, limit int) ([]core.Entry, error) {
	query := `
		SELECT id, user_id, session_id, memory_type, summary, details, confidence, importance,
		       related_symptoms, tags, source_excerpts, extracted_at
		FROM memory_entries
		WHERE user_id = $1
		ORDER BY extracted_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		var (
			e       core.Entry
			memType string
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.SessionID, &memType, &e.Summary, &details,
			&e.Confidence, &e.Importance, &e.RelatedSymptoms, &e.Tags, &e.SourceExcerpts, &e.ExtractedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Type = core.MemoryType(memType)
		e.Details = core.DecodeDetails(e.Type, details)
		e.ExtractedAt = e.ExtractedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// AppendContext locks the bucket row with SELECT ... FOR UPDATE so
// concurrent appends are applied one after another.
func (s *Store) AppendContext(ctx context.Context, userID string, t core.MemoryType, sessionID string, items []core.Projection, maxItems int) (core.ContextBucket, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return core.ContextBucket{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// make sure a row exists to lock
	_, err = tx.Exec(ctx, `
		INSERT INTO user_context (user_id, memory_type, last_updated)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, memory_type) DO NOTHING`, userID, string(t), s.now())
	if err != nil {
		return core.ContextBucket{}, fmt.Errorf("seed context: %w", err)
	}

	bucket, err := scanBucket(tx.QueryRow(ctx, `
		SELECT user_id, memory_type, items, session_count, last_session_id, last_updated
		FROM user_context WHERE user_id = $1 AND memory_type = $2
		FOR UPDATE`, userID, string(t)))
	if err != nil {
		return core.ContextBucket{}, err
	}

	bucket = core.FoldBucket(bucket, userID, t, sessionID, items, maxItems, s.now())
	encoded, err := json.Marshal(bucket.Items)
	if err != nil {
		return core.ContextBucket{}, fmt.Errorf("marshal items: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE user_context
		SET items = $3, session_count = $4, last_session_id = $5, last_updated = $6
		WHERE user_id = $1 AND memory_type = $2`,
		userID, string(t), encoded, bucket.SessionCount, bucket.LastSessionID, bucket.LastUpdated)
	if err != nil {
		return core.ContextBucket{}, fmt.Errorf("update context: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return core.ContextBucket{}, fmt.Errorf("commit: %w", err)
	}
	return bucket, nil
}

func (s *Store) GetContextBuckets(ctx context.Context, userID string) ([]core.ContextBucket, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, memory_type, items, session_count, last_session_id, last_updated
		FROM user_context WHERE user_id = $1 AND session_count > 0
		ORDER BY memory_type`, userID)
	if err != nil {
		return nil, fmt.Errorf("query context: %w", err)
	}
	defer rows.Close()

	var buckets []core.ContextBucket
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate context: %w", err)
	}
	return buckets, nil
}

func scanBucket(row pgx.Row) (core.ContextBucket, error) {
	var (
		b       core.ContextBucket
		memType string
		items   []byte
	)
	err := row.Scan(&b.UserID, &memType, &items, &b.SessionCount, &b.LastSessionID, &b.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ContextBucket{}, core.ErrNotFound
	}
	if err != nil {
		return core.ContextBucket{}, fmt.Errorf("scan context: %w", err)
	}

	b.Type = core.MemoryType(memType)
	b.LastUpdated = b.LastUpdated.UTC()
	b.Items, err = core.DecodeProjections(b.Type, items)
	if err != nil {
		return core.ContextBucket{}, err
	}
	return b, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
