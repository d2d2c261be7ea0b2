package core

import (
	"cmp"
	"slices"
	"time"
)

// FoldProjections appends items to existing and keeps the maxItems most
// important, newer winning ties. Survivors keep chronological order.
// maxItems <= 0 keeps everything.
func FoldProjections(existing, items []Projection, maxItems int) []Projection {
	merged := make([]Projection, 0, len(existing)+len(items))
	merged = append(merged, existing...)
	merged = append(merged, items...)
	if maxItems <= 0 || len(merged) <= maxItems {
		return merged
	}

	idx := make([]int, len(merged))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		if c := cmp.Compare(merged[b].Importance, merged[a].Importance); c != 0 {
			return c
		}
		if c := merged[b].ExtractedAt.Compare(merged[a].ExtractedAt); c != 0 {
			return c
		}
		// same timestamp: the later append is newer
		return cmp.Compare(b, a)
	})

	keep := idx[:maxItems]
	slices.Sort(keep)
	out := make([]Projection, 0, maxItems)
	for _, i := range keep {
		out = append(out, merged[i])
	}
	return out
}

// FoldBucket applies one append to b. Stores call it inside the bucket's
// read-modify-write transaction. SessionCount grows only when the session
// differs from the last one seen.
func FoldBucket(b ContextBucket, userID string, t MemoryType, sessionID string, items []Projection, maxItems int, now time.Time) ContextBucket {
	b.UserID = userID
	b.Type = t
	b.Items = FoldProjections(b.Items, items, maxItems)
	if b.LastSessionID != sessionID {
		b.SessionCount++
		b.LastSessionID = sessionID
	}
	b.LastUpdated = now.UTC()
	return b
}
