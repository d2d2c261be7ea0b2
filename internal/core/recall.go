package core

import (
	"fmt"
	"strings"
	"time"
)

const recallBudget = 2000

// RecallHit is one similarity match returned by a semantic store.
type RecallHit struct {
	ID          string
	Type        MemoryType
	Summary     string
	Similarity  float32
	ExtractedAt time.Time
}

// FormatRecall renders semantic matches for prompt injection. The text
// budget is shared evenly between hits.
func FormatRecall(hits []RecallHit) string {
	if len(hits) == 0 {
		return ""
	}

	perHit := recallBudget / len(hits)
	if perHit < 100 {
		perHit = 100
	}

	var b strings.Builder
	b.WriteString("Relevant memories for this user:\n")
	for i, h := range hits {
		summary := h.Summary
		if r := []rune(summary); len(r) > perHit {
			summary = string(r[:perHit-3]) + "..."
		}
		fmt.Fprintf(&b, "%d. [%s] %s", i+1, h.Type, summary)
		if !h.ExtractedAt.IsZero() {
			fmt.Fprintf(&b, " (%s)", h.ExtractedAt.Format(time.DateOnly))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// RecallQuery folds related symptoms into the query text so the embedding
// leans toward them.
func RecallQuery(query string, relatedSymptoms []string) string {
	query = strings.TrimSpace(query)
	if len(relatedSymptoms) == 0 {
		return query
	}
	return query + "\nRelated symptoms: " + strings.Join(relatedSymptoms, ", ")
}
