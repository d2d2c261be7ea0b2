package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := NewDB(ctx, filepath.Join(t.TempDir(), "healthmem.db"))
	require.NoError(t, err)
	s := NewStore(db)
	require.NoError(t, s.EnsureSchema(ctx))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_EnsureSchemaIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureSchema(context.Background()))
}

func TestStore_EntriesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	first := core.Entry{
		ID: "e1", UserID: "u1", SessionID: "s1", ExtractedAt: base,
		Candidate: core.Candidate{
			Type:            core.MemoryMedication,
			Summary:         "Takes metformin 500mg twice daily",
			Details:         core.MedicationDetails{Name: "metformin", Dosage: "500mg", Frequency: "twice daily"},
			Confidence:      0.9,
			Importance:      0.72,
			RelatedSymptoms: []string{"fatigue"},
			Tags:            []string{"diabetes"},
		},
	}
	second := core.Entry{
		ID: "e2", UserID: "u1", SessionID: "s1", ExtractedAt: base.Add(time.Minute),
		Candidate: core.Candidate{Type: core.MemorySymptom, Summary: "Tired after meals"},
	}
	other := core.Entry{ID: "e3", UserID: "u2", SessionID: "s9", ExtractedAt: base,
		Candidate: core.Candidate{Type: core.MemoryConcern, Summary: "Worried"}}

	for _, e := range []core.Entry{first, second, other} {
		require.NoError(t, s.SaveEntry(ctx, e))
	}
	assert.Error(t, s.SaveEntry(ctx, first), "entries are append-only")

	got, err := s.ListEntries(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e2", got[0].ID, "newest first")

	m := got[1]
	assert.Equal(t, first.Summary, m.Summary)
	assert.Equal(t, first.Details, m.Details)
	assert.Equal(t, []string{"fatigue"}, m.RelatedSymptoms)
	assert.Equal(t, []string{"diabetes"}, m.Tags)
	assert.Empty(t, m.SourceExcerpts)
	assert.True(t, base.Equal(m.ExtractedAt))
	assert.InDelta(t, 0.72, m.Importance, 1e-9)

	limited, err := s.ListEntries(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_AppendContext(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	b, err := s.AppendContext(ctx, "u1", core.MemorySymptom, "s1", []core.Projection{
		{Summary: "Headache", Details: core.SymptomDetails{Name: "headache", Severity: "mild"}, Importance: 0.4, ExtractedAt: now},
	}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, b.SessionCount)

	_, err = s.AppendContext(ctx, "u1", core.MemorySymptom, "s1", []core.Projection{
		{Summary: "Nausea", Details: core.SymptomDetails{Name: "nausea"}, Importance: 0.9, ExtractedAt: now.Add(time.Second)},
	}, 2)
	require.NoError(t, err)
	_, err = s.AppendContext(ctx, "u1", core.MemorySymptom, "s2", []core.Projection{
		{Summary: "Dizzy", Importance: 0.1, ExtractedAt: now.Add(2 * time.Second)},
		{Summary: "Fever", Details: core.SymptomDetails{Name: "fever"}, Importance: 0.6, ExtractedAt: now.Add(3 * time.Second)},
	}, 2)
	require.NoError(t, err)

	buckets, err := s.GetContextBuckets(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, buckets, 1)

	got := buckets[0]
	assert.Equal(t, core.MemorySymptom, got.Type)
	assert.Equal(t, 2, got.SessionCount)
	assert.Equal(t, "s2", got.LastSessionID)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Nausea", got.Items[0].Summary)
	assert.Equal(t, "Fever", got.Items[1].Summary)
	assert.Equal(t, core.SymptomDetails{Name: "fever"}, got.Items[1].Details)

	none, err := s.GetContextBuckets(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_ConcurrentAppendsKeepEveryItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AppendContext(ctx, "u1", core.MemoryLifestyle, fmt.Sprintf("s%d", i), []core.Projection{
				{Summary: fmt.Sprintf("habit %d", i), Importance: 0.5, ExtractedAt: time.Now()},
			}, 50)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	buckets, err := s.GetContextBuckets(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Len(t, buckets[0].Items, 8)
	assert.Equal(t, 8, buckets[0].SessionCount)
}
