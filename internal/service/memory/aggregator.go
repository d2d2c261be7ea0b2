package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/providers/rag"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/log"
	"github.com/google/uuid"
)

const (
	DefaultContextBucketCap = 50
	DefaultSummaryMaxTokens = 800
)

// Store is what the aggregator needs from durable storage.
type Store interface {
	core.EntryRepository
	core.ContextRepository
}

type AggregatorOptions struct {
	BucketCap        int
	SummaryMaxTokens int
	Tokenizer        core.Tokenizer
	Metrics          *Metrics
}

// Aggregator persists entries, folds them into per-type context buckets and
// serves the reconstructed context.
type Aggregator struct {
	store     Store
	semantic  core.SemanticStore
	tokenizer core.Tokenizer
	metrics   *Metrics

	bucketCap        int
	summaryMaxTokens int

	now   func() time.Time
	newID func() string
}

// NewAggregator wires an aggregator. semantic may be nil.
func NewAggregator(store Store, semantic core.SemanticStore, opts AggregatorOptions) *Aggregator {
	if opts.BucketCap <= 0 {
		opts.BucketCap = DefaultContextBucketCap
	}
	if opts.SummaryMaxTokens <= 0 {
		opts.SummaryMaxTokens = DefaultSummaryMaxTokens
	}
	if opts.Tokenizer == nil {
		opts.Tokenizer = rag.NewHeuristicTokenizer()
	}
	return &Aggregator{
		store:            store,
		semantic:         semantic,
		tokenizer:        opts.Tokenizer,
		metrics:          opts.Metrics,
		bucketCap:        opts.BucketCap,
		summaryMaxTokens: opts.SummaryMaxTokens,
		now:              func() time.Time { return time.Now().UTC() },
		newID:            uuid.NewString,
	}
}

// StoreMemoryEntries persists one entry per candidate and returns the ones
// that were written, in order. Failed writes are logged and skipped.
func (a *Aggregator) StoreMemoryEntries(ctx context.Context, userID, sessionID string, candidates []core.Candidate) []core.Entry {
	logger := log.FromCtx(ctx)
	stored := make([]core.Entry, 0, len(candidates))

	for _, c := range candidates {
		entry := core.Entry{
			ID:          a.newID(),
			UserID:      userID,
			SessionID:   sessionID,
			ExtractedAt: a.now(),
			Candidate:   c,
		}
		if err := a.store.SaveEntry(ctx, entry); err != nil {
			perr := &core.PersistenceError{Op: "save entry", Key: entry.ID, Cause: err}
			logger.Error().Err(perr).Str("user_id", userID).Str("type", string(c.Type)).Msg("memory entry not stored")
			a.metrics.observePersistenceFailure("entry")
			continue
		}
		stored = append(stored, entry)
	}
	return stored
}

// UpdateUserContext folds entries into the user's buckets, one append per
// (type, session) group. A failed bucket is logged and the rest continue;
// the joined failures are returned.
func (a *Aggregator) UpdateUserContext(ctx context.Context, userID string, entries []core.Entry) error {
	type groupKey struct {
		t         core.MemoryType
		sessionID string
	}

	var order []groupKey
	groups := make(map[groupKey][]core.Projection)
	for _, e := range entries {
		k := groupKey{t: e.Type, sessionID: e.SessionID}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e.Projection())
	}

	logger := log.FromCtx(ctx)
	var errs []error
	for _, k := range order {
		if _, err := a.store.AppendContext(ctx, userID, k.t, k.sessionID, groups[k], a.bucketCap); err != nil {
			perr := &core.PersistenceError{Op: "append context", Key: userID + "/" + string(k.t), Cause: err}
			logger.Error().Err(perr).Str("user_id", userID).Msg("context bucket not updated")
			a.metrics.observePersistenceFailure("bucket")
			errs = append(errs, perr)
		}
	}
	return errors.Join(errs...)
}

// IndexCandidates forwards candidates to the semantic store. Failures are
// logged only.
func (a *Aggregator) IndexCandidates(ctx context.Context, userID, sessionID string, candidates []core.Candidate) {
	if a.semantic == nil || len(candidates) == 0 {
		return
	}
	if err := a.semantic.BatchStoreMemories(ctx, userID, sessionID, candidates); err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("user_id", userID).Msg("semantic indexing failed")
		a.metrics.observePersistenceFailure("index")
	}
}

// GetUserContext rebuilds the typed context of a user from all buckets.
func (a *Aggregator) GetUserContext(ctx context.Context, userID string) (*core.UserContext, error) {
	buckets, err := a.store.GetContextBuckets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get context buckets: %w", err)
	}

	uc := &core.UserContext{
		UserID:  userID,
		Buckets: make(map[core.MemoryType]core.ContextBucket, len(buckets)),
	}
	for _, b := range buckets {
		uc.Buckets[b.Type] = b
		if b.LastUpdated.After(uc.LastUpdated) {
			uc.LastUpdated = b.LastUpdated
		}

		labels := bucketLabels(b)
		switch b.Type {
		case core.MemorySymptom:
			uc.Symptoms = labels
		case core.MemoryMedication:
			uc.Medications = labels
		case core.MemoryMedicalHistory:
			uc.MedicalHistory = labels
		case core.MemoryConcern:
			uc.Concerns = labels
		case core.MemoryLifestyle:
			uc.Lifestyle = labels
		case core.MemoryPreference:
			uc.Preferences = labels
		case core.MemoryFollowUp:
			uc.FollowUps = labels
		}
	}
	return uc, nil
}

// GetSemanticContext asks the semantic store for memories relevant to
// query. Without a semantic store the answer is empty.
func (a *Aggregator) GetSemanticContext(ctx context.Context, userID, query string, relatedSymptoms []string) (string, error) {
	if a.semantic == nil {
		return "", nil
	}
	return a.semantic.GetContextualMemories(ctx, userID, query, relatedSymptoms)
}

// ListEntries returns the newest entries of a user.
func (a *Aggregator) ListEntries(ctx context.Context, userID string, limit int) ([]core.Entry, error) {
	return a.store.ListEntries(ctx, userID, limit)
}

func bucketLabels(b core.ContextBucket) []string {
	items := byImportance(b.Items)
	labels := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, p := range items {
		label := strings.TrimSpace(projectionLabel(b.Type, p))
		key := strings.ToLower(label)
		if label == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		labels = append(labels, label)
	}
	return labels
}

func projectionLabel(t core.MemoryType, p core.Projection) string {
	if p.Details != nil {
		if l := p.Details.Label(); l != "" {
			return l
		}
	}
	if raw := p.RawDetails(); len(raw) > 0 {
		var fields map[string]any
		if json.Unmarshal(raw, &fields) == nil {
			if l := core.LegacyLabel(t, fields); l != "" {
				return l
			}
		}
	}
	return p.Summary
}

// byImportance returns a copy ordered by importance, newest first on ties.
func byImportance(items []core.Projection) []core.Projection {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b core.Projection) int {
		if c := cmp.Compare(b.Importance, a.Importance); c != 0 {
			return c
		}
		return b.ExtractedAt.Compare(a.ExtractedAt)
	})
	return out
}
