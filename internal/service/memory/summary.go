package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/log"
)

const summaryHeader = "Known context for this user:"

type summarySection struct {
	t     core.MemoryType
	title string
	limit int
}

var summarySections = []summarySection{
	{core.MemorySymptom, "Symptoms", 5},
	{core.MemoryMedication, "Medications", 5},
	{core.MemoryMedicalHistory, "Medical history", 3},
	{core.MemoryConcern, "Concerns", 3},
	{core.MemoryLifestyle, "Lifestyle factors", 3},
	{core.MemoryFollowUp, "Follow-ups", 3},
	{core.MemoryPreference, "Preferences", 3},
}

// GenerateContextualSummary renders what is known about a user. With a
// query and a semantic store the semantic answer is returned as is, with
// relatedSymptoms widening the search; otherwise the buckets are rendered
// as a fixed-order summary. A user with no memories gets an empty string.
func (a *Aggregator) GenerateContextualSummary(ctx context.Context, userID, query string, relatedSymptoms []string) (string, error) {
	if strings.TrimSpace(query) != "" && a.semantic != nil {
		answer, err := a.GetSemanticContext(ctx, userID, query, relatedSymptoms)
		if err == nil {
			return answer, nil
		}
		log.FromCtx(ctx).Warn().Err(err).Str("user_id", userID).Msg("semantic recall failed, using bucket summary")
	}

	uc, err := a.GetUserContext(ctx, userID)
	if err != nil {
		return "", err
	}
	return a.renderSummary(uc), nil
}

func (a *Aggregator) renderSummary(uc *core.UserContext) string {
	lines := []string{summaryHeader}
	for _, sec := range summarySections {
		b, ok := uc.Buckets[sec.t]
		if !ok || len(b.Items) == 0 {
			continue
		}
		items := byImportance(b.Items)
		if len(items) > sec.limit {
			items = items[:sec.limit]
		}
		lines = append(lines, "", "### "+sec.title)
		for _, p := range items {
			lines = append(lines, summaryLine(p))
		}
	}
	if len(lines) == 1 {
		return ""
	}
	return a.truncateLines(lines)
}

func summaryLine(p core.Projection) string {
	summary := strings.TrimSpace(p.Summary)
	if p.Details == nil {
		return "- " + summary
	}
	if desc := core.DescribeDetails(p.Details); desc != "" {
		return fmt.Sprintf("- %s (%s)", summary, desc)
	}
	return "- " + summary
}

// truncateLines drops whole lines from the end until the text fits the
// token budget. A dangling section title is dropped with its last line.
func (a *Aggregator) truncateLines(lines []string) string {
	text := strings.Join(lines, "\n")
	for len(lines) > 1 && a.tokenizer.Count(text) > a.summaryMaxTokens {
		lines = lines[:len(lines)-1]
		for len(lines) > 1 {
			last := lines[len(lines)-1]
			if last != "" && !strings.HasPrefix(last, "### ") {
				break
			}
			lines = lines[:len(lines)-1]
		}
		text = strings.Join(lines, "\n")
	}
	if len(lines) == 1 {
		return ""
	}
	return text
}
