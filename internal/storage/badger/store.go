// Package badger keeps memory entries and context buckets in an embedded
// Badger database.
package badger

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/log"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/retry"
	"github.com/dgraph-io/badger/v4"
)

type Config struct {
	Path       string
	InMemory   bool
	SyncWrites bool
}

type Store struct {
	db      *badger.DB
	retrier *retry.Retrier
	now     func() time.Time
}

var _ core.MemoryStore = (*Store)(nil)

func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = badgerLogger{ctx: ctx}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	rc := retry.NewQuickConfig()
	rc.Retryable = func(err error) bool { return errors.Is(err, badger.ErrConflict) }

	return &Store{db: db, retrier: retry.NewRetrier(rc), now: time.Now}, nil
}

// Key layout, with {user} hex encoded so no user id is a prefix of
// another's keys:
//
//	entry:{user}:{unix nanos, zero padded}:{id} -> Entry JSON
//	entryid:{id}                               -> empty
//	ctx:{user}:{type}                          -> ContextBucket JSON
func userSegment(userID string) string {
	return hex.EncodeToString([]byte(userID))
}

func entryPrefix(userID string) []byte {
	return []byte(fmt.Sprintf("entry:%s:", userSegment(userID)))
}

func entryKey(e core.Entry) []byte {
	return []byte(fmt.Sprintf("entry:%s:%020d:%s", userSegment(e.UserID), e.ExtractedAt.UnixNano(), e.ID))
}

func entryIDKey(id string) []byte {
	return []byte("entryid:" + id)
}

func contextPrefix(userID string) []byte {
	return []byte(fmt.Sprintf("ctx:%s:", userSegment(userID)))
}

func contextKey(userID string, t core.MemoryType) []byte {
	return []byte(fmt.Sprintf("ctx:%s:%s", userSegment(userID), t))
}

// EnsureSchema is a no-op; Badger has no schema.
func (s *Store) EnsureSchema(context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveEntry(ctx context.Context, e core.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	return s.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(entryIDKey(e.ID)); err == nil {
			return retry.Permanent(fmt.Errorf("entry %s already exists", e.ID))
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(entryIDKey(e.ID), nil); err != nil {
			return err
		}
		return txn.Set(entryKey(e), data)
	})
}

func (s *Store) ListEntries(ctx context.Context, userID string, limit int) ([]core.Entry, error) {
	prefix := entryPrefix(userID)
	var entries []core.Entry

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(bytes.Clone(prefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e core.Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("decode entry %s: %w", it.Item().Key(), err)
			}
			entries = append(entries, e)
			if limit > 0 && len(entries) == limit {
				break
			}
		}
		return nil
	})
	return entries, err
}

// AppendContext folds items in an optimistic transaction. Conflicting
// writers are retried.
func (s *Store) AppendContext(ctx context.Context, userID string, t core.MemoryType, sessionID string, items []core.Projection, maxItems int) (core.ContextBucket, error) {
	key := contextKey(userID, t)
	var out core.ContextBucket

	err := s.update(ctx, func(txn *badger.Txn) error {
		var bucket core.ContextBucket
		item, err := txn.Get(key)
		switch {
		case err == nil:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &bucket)
			}); err != nil {
				return retry.Permanent(fmt.Errorf("decode bucket: %w", err))
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		bucket = core.FoldBucket(bucket, userID, t, sessionID, items, maxItems, s.now())
		data, err := json.Marshal(bucket)
		if err != nil {
			return retry.Permanent(fmt.Errorf("marshal bucket: %w", err))
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		out = bucket
		return nil
	})
	return out, err
}

func (s *Store) GetContextBuckets(ctx context.Context, userID string) ([]core.ContextBucket, error) {
	prefix := contextPrefix(userID)
	var buckets []core.ContextBucket

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var b core.ContextBucket
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &b)
			}); err != nil {
				return fmt.Errorf("decode bucket %s: %w", it.Item().Key(), err)
			}
			buckets = append(buckets, b)
		}
		return nil
	})
	return buckets, err
}

func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	return s.retrier.Do(ctx, func() error {
		return s.db.Update(fn)
	})
}

type badgerLogger struct {
	ctx context.Context
}

func (l badgerLogger) Errorf(format string, args ...any) {
	log.FromCtx(l.ctx).Error().Str("component", "badger").Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...any) {
	log.FromCtx(l.ctx).Warn().Str("component", "badger").Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...any) {
	log.FromCtx(l.ctx).Debug().Str("component", "badger").Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...any) {
	log.FromCtx(l.ctx).Trace().Str("component", "badger").Msgf(format, args...)
}
