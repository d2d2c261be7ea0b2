package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/providers/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAggregator(store *memStore, semantic core.SemanticStore, opts AggregatorOptions) *Aggregator {
	a := NewAggregator(store, semantic, opts)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	a.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	a.newID = func() string { return fmt.Sprintf("entry-%d", n) }
	return a
}

func symptom(summary, name string, importance float64) core.Candidate {
	return core.Candidate{
		Type:       core.MemorySymptom,
		Summary:    summary,
		Details:    core.SymptomDetails{Name: name},
		Confidence: 0.9,
		Importance: importance,
	}
}

func TestStoreMemoryEntries_SkipsFailedWrites(t *testing.T) {
	store := newMemStore()
	store.saveErr = func(e core.Entry) error {
		if e.Summary == "bad" {
			return errBoom
		}
		return nil
	}
	a := newTestAggregator(store, nil, AggregatorOptions{})

	got := a.StoreMemoryEntries(context.Background(), "u1", "s1", []core.Candidate{
		symptom("first", "a", 0.5),
		symptom("bad", "b", 0.5),
		symptom("third", "c", 0.5),
	})

	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Summary)
	assert.Equal(t, "third", got[1].Summary)
	for _, e := range got {
		assert.Equal(t, "u1", e.UserID)
		assert.Equal(t, "s1", e.SessionID)
		assert.Equal(t, time.UTC, e.ExtractedAt.Location())
		assert.NotEmpty(t, e.ID)
	}
	assert.Len(t, store.entries, 2)
}

func TestUpdateUserContext_GroupsByTypeAndCountsSessions(t *testing.T) {
	store := newMemStore()
	a := newTestAggregator(store, nil, AggregatorOptions{})
	ctx := context.Background()

	run := func(session string, candidates ...core.Candidate) {
		entries := a.StoreMemoryEntries(ctx, "u1", session, candidates)
		require.NoError(t, a.UpdateUserContext(ctx, "u1", entries))
	}

	run("s1", symptom("headache", "headache", 0.5), core.Candidate{Type: core.MemoryMedication, Summary: "ibuprofen"})
	run("s1", symptom("nausea", "nausea", 0.5))
	run("s2", symptom("dizziness", "dizziness", 0.5))

	b := store.bucket("u1", core.MemorySymptom)
	assert.Len(t, b.Items, 3)
	assert.Equal(t, 2, b.SessionCount)
	assert.Equal(t, "s2", b.LastSessionID)

	m := store.bucket("u1", core.MemoryMedication)
	assert.Len(t, m.Items, 1)
	assert.Equal(t, 1, m.SessionCount)
}

func TestUpdateUserContext_BucketCap(t *testing.T) {
	store := newMemStore()
	a := newTestAggregator(store, nil, AggregatorOptions{BucketCap: 3})
	ctx := context.Background()

	var candidates []core.Candidate
	for i, imp := range []float64{0.2, 0.9, 0.1, 0.7, 0.5} {
		candidates = append(candidates, symptom(fmt.Sprintf("s%d", i), "", imp))
	}
	entries := a.StoreMemoryEntries(ctx, "u1", "s1", candidates)
	require.NoError(t, a.UpdateUserContext(ctx, "u1", entries))

	b := store.bucket("u1", core.MemorySymptom)
	got := make([]string, 0, len(b.Items))
	for _, p := range b.Items {
		got = append(got, p.Summary)
	}
	assert.Equal(t, []string{"s1", "s3", "s4"}, got)
}

func TestUpdateUserContext_FailureReported(t *testing.T) {
	store := newMemStore()
	store.appendErr = errBoom
	a := newTestAggregator(store, nil, AggregatorOptions{})

	err := a.UpdateUserContext(context.Background(), "u1", []core.Entry{{SessionID: "s1", Candidate: symptom("x", "x", 1)}})
	var perr *core.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, err, errBoom)
}

func TestGetUserContext_Labels(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	now := time.Now().UTC()

	// a projection read back from storage in a legacy shape
	var legacy core.Projection
	require.NoError(t, json.Unmarshal([]byte(`{"summary":"Has been taking a statin","details":{"medication":"Atorvastatin"},"importance":0.3}`), &legacy))

	_, err := store.AppendContext(ctx, "u1", core.MemorySymptom, "s1", []core.Projection{
		{Summary: "Mild headache", Details: core.SymptomDetails{Name: "Headache"}, Importance: 0.4, ExtractedAt: now},
		{Summary: "Severe headache", Details: core.SymptomDetails{Name: "headache"}, Importance: 0.9, ExtractedAt: now},
		{Summary: "Feels faint when standing", Details: core.SymptomDetails{}, Importance: 0.5, ExtractedAt: now},
	}, 50)
	require.NoError(t, err)
	_, err = store.AppendContext(ctx, "u1", core.MemoryMedication, "s1", []core.Projection{legacy}, 50)
	require.NoError(t, err)

	a := newTestAggregator(store, nil, AggregatorOptions{})
	uc, err := a.GetUserContext(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, []string{"headache", "Feels faint when standing"}, uc.Symptoms)
	assert.Equal(t, []string{"Atorvastatin"}, uc.Medications)
	assert.Empty(t, uc.Concerns)
	assert.Len(t, uc.Buckets, 2)
	assert.False(t, uc.IsEmpty())
	assert.False(t, uc.LastUpdated.IsZero())
}

func TestGenerateContextualSummary_SymptomsOnly(t *testing.T) {
	store := newMemStore()
	a := newTestAggregator(store, nil, AggregatorOptions{})
	ctx := context.Background()

	entries := a.StoreMemoryEntries(ctx, "u1", "s1", []core.Candidate{
		{
			Type:       core.MemorySymptom,
			Summary:    "Throbbing morning headache",
			Details:    core.SymptomDetails{Name: "headache", Duration: "two weeks", Severity: "moderate"},
			Importance: 0.8,
		},
	})
	require.NoError(t, a.UpdateUserContext(ctx, "u1", entries))

	got, err := a.GenerateContextualSummary(ctx, "u1", "", nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "Known context for this user:"))
	assert.Contains(t, strings.ToLower(got), "symptoms")
	assert.Contains(t, got, "- Throbbing morning headache (severity: moderate, duration: two weeks)")
	for _, absent := range []string{"Medications", "Medical history", "Concerns", "Lifestyle", "Follow-ups", "Preferences"} {
		assert.NotContains(t, got, absent)
	}
}

func TestGenerateContextualSummary_NoHistory(t *testing.T) {
	a := newTestAggregator(newMemStore(), nil, AggregatorOptions{})
	got, err := a.GenerateContextualSummary(context.Background(), "nobody", "", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGenerateContextualSummary_SectionOrderAndLimits(t *testing.T) {
	store := newMemStore()
	a := newTestAggregator(store, nil, AggregatorOptions{})
	ctx := context.Background()

	var candidates []core.Candidate
	for i := 0; i < 7; i++ {
		candidates = append(candidates,
			core.Candidate{Type: core.MemoryConcern, Summary: fmt.Sprintf("concern %d", i), Importance: float64(i) / 10},
			core.Candidate{Type: core.MemorySymptom, Summary: fmt.Sprintf("symptom %d", i), Importance: float64(i) / 10},
		)
	}
	candidates = append(candidates, core.Candidate{Type: core.MemoryPreference, Summary: "prefers short answers"})
	entries := a.StoreMemoryEntries(ctx, "u1", "s1", candidates)
	require.NoError(t, a.UpdateUserContext(ctx, "u1", entries))

	got, err := a.GenerateContextualSummary(ctx, "u1", "", nil)
	require.NoError(t, err)

	symptoms := strings.Index(got, "### Symptoms")
	concerns := strings.Index(got, "### Concerns")
	prefs := strings.Index(got, "### Preferences")
	require.True(t, symptoms > 0 && concerns > symptoms && prefs > concerns, got)

	assert.Equal(t, 5, strings.Count(got, "- symptom "))
	assert.Equal(t, 3, strings.Count(got, "- concern "))
	assert.Contains(t, got, "- symptom 6")
	assert.NotContains(t, got, "- symptom 1")
	assert.Contains(t, got, "- concern 6")
	assert.NotContains(t, got, "- concern 3")
}

func TestGenerateContextualSummary_Truncated(t *testing.T) {
	store := newMemStore()
	a := newTestAggregator(store, nil, AggregatorOptions{SummaryMaxTokens: 60, Tokenizer: rag.NewHeuristicTokenizer()})
	ctx := context.Background()

	var candidates []core.Candidate
	for i := 0; i < 5; i++ {
		candidates = append(candidates,
			core.Candidate{Type: core.MemorySymptom, Summary: strings.Repeat("s", 60), Importance: 0.5},
			core.Candidate{Type: core.MemoryMedication, Summary: strings.Repeat("m", 60), Importance: 0.5},
		)
	}
	entries := a.StoreMemoryEntries(ctx, "u1", "s1", candidates)
	require.NoError(t, a.UpdateUserContext(ctx, "u1", entries))

	got, err := a.GenerateContextualSummary(ctx, "u1", "", nil)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.LessOrEqual(t, rag.NewHeuristicTokenizer().Count(got), 60)
	assert.False(t, strings.HasSuffix(got, "### Medications"), "dangling section title")
}

func TestGenerateContextualSummary_SemanticQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("semantic answer verbatim", func(t *testing.T) {
		sem := &fakeSemantic{answer: "Relevant memories for this user:\n1. [symptom] headache"}
		a := newTestAggregator(newMemStore(), sem, AggregatorOptions{})

		got, err := a.GenerateContextualSummary(ctx, "u1", "why does my head hurt", nil)
		require.NoError(t, err)
		assert.Equal(t, sem.answer, got)
		assert.Equal(t, []string{"why does my head hurt"}, sem.queries)
	})

	t.Run("related symptoms forwarded", func(t *testing.T) {
		sem := &fakeSemantic{answer: "Relevant memories for this user:\n1. [symptom] nausea"}
		a := newTestAggregator(newMemStore(), sem, AggregatorOptions{})

		got, err := a.GenerateContextualSummary(ctx, "u1", "what helps", []string{"nausea", "dizziness"})
		require.NoError(t, err)
		assert.Equal(t, sem.answer, got)
		assert.Equal(t, [][]string{{"nausea", "dizziness"}}, sem.related)
	})

	t.Run("semantic failure falls back", func(t *testing.T) {
		store := newMemStore()
		sem := &fakeSemantic{err: errBoom}
		a := newTestAggregator(store, sem, AggregatorOptions{})
		entries := a.StoreMemoryEntries(ctx, "u1", "s1", []core.Candidate{symptom("Back pain", "back pain", 0.5)})
		require.NoError(t, a.UpdateUserContext(ctx, "u1", entries))

		got, err := a.GenerateContextualSummary(ctx, "u1", "back", nil)
		require.NoError(t, err)
		assert.Contains(t, got, "### Symptoms")
	})

	t.Run("no semantic store", func(t *testing.T) {
		a := newTestAggregator(newMemStore(), nil, AggregatorOptions{})
		got, err := a.GetSemanticContext(ctx, "u1", "anything", nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
