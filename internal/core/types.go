package core

import "strings"

const (
	AppName          = "healthmem"
	AppUserAgent     = "healthmem/0.1"
	AppRepositoryURL = "https://github.com/VolodkaGitHub/AITestAssistantBack-sub001"
	AppVersion       = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// IsConversational reports whether the message takes part in chunking.
// System and tool messages, and messages without content, are dropped.
func (m Message) IsConversational() bool {
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return false
	}
	return strings.TrimSpace(m.Content) != ""
}

// FilterConversation returns the user/assistant messages in original order.
func FilterConversation(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.IsConversational() {
			out = append(out, m)
		}
	}
	return out
}
