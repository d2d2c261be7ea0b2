package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func proj(summary string, importance float64, at time.Time) Projection {
	return Projection{Summary: summary, Importance: importance, ExtractedAt: at}
}

func summaries(items []Projection) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.Summary
	}
	return out
}

func TestFoldProjections(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		existing []Projection
		items    []Projection
		max      int
		want     []string
	}{
		{
			name:  "under cap keeps everything in order",
			items: []Projection{proj("a", 0.1, t0), proj("b", 0.9, t0)},
			max:   5,
			want:  []string{"a", "b"},
		},
		{
			name:     "evicts least important",
			existing: []Projection{proj("low", 0.1, t0), proj("high", 0.9, t0)},
			items:    []Projection{proj("mid", 0.5, t0.Add(time.Hour))},
			max:      2,
			want:     []string{"high", "mid"},
		},
		{
			name:     "ties favor newer",
			existing: []Projection{proj("old", 0.5, t0)},
			items:    []Projection{proj("new", 0.5, t0.Add(time.Minute))},
			max:      1,
			want:     []string{"new"},
		},
		{
			name:     "same timestamp ties favor later append",
			existing: []Projection{proj("first", 0.5, t0)},
			items:    []Projection{proj("second", 0.5, t0)},
			max:      1,
			want:     []string{"second"},
		},
		{
			name:  "zero cap is unbounded",
			items: []Projection{proj("a", 0, t0), proj("b", 0, t0), proj("c", 0, t0)},
			max:   0,
			want:  []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FoldProjections(tt.existing, tt.items, tt.max)
			assert.Equal(t, tt.want, summaries(got))
		})
	}
}

func TestFoldBucket_SessionCount(t *testing.T) {
	now := time.Now()
	var b ContextBucket

	b = FoldBucket(b, "u1", MemorySymptom, "s1", []Projection{{Summary: "a"}}, 10, now)
	b = FoldBucket(b, "u1", MemorySymptom, "s1", []Projection{{Summary: "b"}}, 10, now)
	assert.Equal(t, 1, b.SessionCount)

	b = FoldBucket(b, "u1", MemorySymptom, "s2", []Projection{{Summary: "c"}}, 10, now)
	assert.Equal(t, 2, b.SessionCount)
	assert.Equal(t, "s2", b.LastSessionID)
	assert.Len(t, b.Items, 3)
	assert.Equal(t, MemorySymptom, b.Type)
}
