package memory

import (
	"strings"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
)

const extractionSystemPrompt = `You are a clinical memory extraction system for a health assistant.
Read the conversation and extract durable facts about the USER's health that would help in future conversations.

Output only a JSON array. Each element is an object:
{"type": string, "summary": string, "details": object, "confidence": number, "importance": number,
 "related_symptoms": [string], "tags": [string], "source_excerpts": [string]}

Allowed types and their "details" fields:
- symptom: {"name", "severity", "duration", "frequency", "body_location", "triggers": [string]}
- medication: {"name", "dosage", "frequency", "purpose", "side_effects": [string]}
- medical_history: {"condition", "diagnosed_at", "status", "treatment"}
- lifestyle: {"factor", "description", "frequency"}
- preference: {"topic", "preference"}
- concern: {"topic", "description", "severity"}
- follow_up: {"action", "due_by", "reason"}

Rules:
1. Only facts stated or clearly confirmed by the USER. Ignore greetings, small talk and the assistant's general advice.
2. "summary" is one self-contained sentence about the user.
3. "confidence" is how certain the fact is (0 to 1). "importance" is how useful it is for future care (0 to 1).
4. "related_symptoms" lists symptom names the fact relates to, in lowercase.
5. "source_excerpts" quotes the user's own words that support the fact.
6. Return [] when nothing qualifies.`

// buildExtractionMessages renders one chunk as an oracle request.
func buildExtractionMessages(chunk core.Chunk) []core.Message {
	return []core.Message{
		{Role: core.RoleSystem, Content: extractionSystemPrompt},
		{Role: core.RoleUser, Content: "Conversation:\n" + formatConversation(chunk.Messages)},
	}
}

func formatConversation(msgs []core.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(strings.ToUpper(m.Role))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(m.Content))
		b.WriteByte('\n')
	}
	return b.String()
}
