package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
)

// Store keeps entries and context buckets in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	return migrate(ctx, s.db)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveEntry(ctx context.Context, e core.Entry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	related, _ := json.Marshal(nonNil(e.RelatedSymptoms))
	tags, _ := json.Marshal(nonNil(e.Tags))
	excerpts, _ := json.Marshal(nonNil(e.SourceExcerpts))

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memory_entries
			(id, user_id, session_id, memory_type, summary, details, confidence, importance,
			 related_symptoms, tags, source_excerpts, extracted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.SessionID, string(e.Type), e.Summary, string(details),
		e.Confidence, e.Importance, string(related), string(tags), string(excerpts),
		e.ExtractedAt.UnixNano(),
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
		WHERE user_id = ?
		ORDER BY extracted_at DESC, rowid DESC`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		var (
			e                       core.Entry
			memType, details        string
			related, tags, excerpts string
			extractedAt             int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.SessionID, &memType, &e.Summary, &details,
			&e.Confidence, &e.Importance, &related, &tags, &excerpts, &extractedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Type = core.MemoryType(memType)
		e.Details = core.DecodeDetails(e.Type, json.RawMessage(details))
		_ = json.Unmarshal([]byte(related), &e.RelatedSymptoms)
		_ = json.Unmarshal([]byte(tags), &e.Tags)
		_ = json.Unmarshal([]byte(excerpts), &e.SourceExcerpts)
		e.ExtractedAt = time.Unix(0, extractedAt).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AppendContext folds items into the bucket inside one immediate
// transaction, so concurrent appends for the same bucket never lose items.
func (s *Store) AppendContext(ctx context.Context, userID string, t core.MemoryType, sessionID string, items []core.Projection, maxItems int) (core.ContextBucket, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.ContextBucket{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	bucket, err := scanBucket(tx.QueryRowContext(ctx, `
		SELECT user_id, memory_type, items, session_count, last_session_id, last_updated
		FROM user_context WHERE user_id = ? AND memory_type = ?`, userID, string(t)))
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return core.ContextBucket{}, err
	}

	bucket = core.FoldBucket(bucket, userID, t, sessionID, items, maxItems, s.now())
	encoded, err := json.Marshal(bucket.Items)
	if err != nil {
		return core.ContextBucket{}, fmt.Errorf("marshal items: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_context (user_id, memory_type, items, session_count, last_session_id, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, memory_type) DO UPDATE SET
			items = excluded.items,
			session_count = excluded.session_count,
			last_session_id = excluded.last_session_id,
			last_updated = excluded.last_updated`,
		userID, string(t), string(encoded), bucket.SessionCount, bucket.LastSessionID, bucket.LastUpdated.UnixNano(),
	)
	if err != nil {
		return core.ContextBucket{}, fmt.Errorf("upsert context: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.ContextBucket{}, fmt.Errorf("commit: %w", err)
	}
	return bucket, nil
}

func (s *Store) GetContextBuckets(ctx context.Context, userID string) ([]core.ContextBucket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, memory_type, items, session_count, last_session_id, last_updated
		FROM user_context WHERE user_id = ?
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
	return buckets, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBucket(row scanner) (core.ContextBucket, error) {
	var (
		b           core.ContextBucket
		memType     string
		items       string
		lastUpdated int64
	)
	err := row.Scan(&b.UserID, &memType, &items, &b.SessionCount, &b.LastSessionID, &lastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ContextBucket{}, core.ErrNotFound
	}
	if err != nil {
		return core.ContextBucket{}, fmt.Errorf("scan context: %w", err)
	}

	b.Type = core.MemoryType(memType)
	b.LastUpdated = time.Unix(0, lastUpdated).UTC()
	b.Items, err = core.DecodeProjections(b.Type, []byte(items))
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
