package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DecodeTranscript accepts either a JSON array of messages or an object
// with a "messages" array. Roles are lowercased.
func DecodeTranscript(data []byte) ([]Message, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty transcript")
	}

	var msgs []Message
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
	case '{':
		var wrapped struct {
			Messages *[]Message `json:"messages"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
		if wrapped.Messages == nil {
			return nil, errors.New(`transcript object has no "messages"`)
		}
		msgs = *wrapped.Messages
	default:
		return nil, errors.New("transcript must be a JSON array or object")
	}

	for i := range msgs {
		msgs[i].Role = strings.ToLower(strings.TrimSpace(msgs[i].Role))
	}
	return msgs, nil
}
