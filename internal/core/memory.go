package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type MemoryType string

const (
	MemorySymptom        MemoryType = "symptom"
	MemoryMedication     MemoryType = "medication"
	MemoryMedicalHistory MemoryType = "medical_history"
	MemoryLifestyle      MemoryType = "lifestyle"
	MemoryPreference     MemoryType = "preference"
	MemoryConcern        MemoryType = "concern"
	MemoryFollowUp       MemoryType = "follow_up"
)

// AllMemoryTypes is the extraction taxonomy in its canonical order.
var AllMemoryTypes = []MemoryType{
	MemorySymptom,
	MemoryMedication,
	MemoryMedicalHistory,
	MemoryLifestyle,
	MemoryPreference,
	MemoryConcern,
	MemoryFollowUp,
}

func (t MemoryType) Valid() bool {
	for _, known := range AllMemoryTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseMemoryType accepts loose spellings such as "Follow-up" or
// "medical history".
func ParseMemoryType(s string) (MemoryType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch norm {
	case "followup":
		norm = string(MemoryFollowUp)
	case "history":
		norm = string(MemoryMedicalHistory)
	}
	t := MemoryType(norm)
	if !t.Valid() {
		return "", fmt.Errorf("unknown memory type %q", s)
	}
	return t, nil
}

// Chunk is a contiguous slice of the filtered conversation.
// EndIndex-StartIndex+1 == len(Messages).
type Chunk struct {
	ID               string    `json:"id"`
	Messages         []Message `json:"messages"`
	StartIndex       int       `json:"start_index"`
	EndIndex         int       `json:"end_index"`
	TokenCount       int       `json:"token_count"`
	Importance       float64   `json:"importance"`
	HasHealthContent bool      `json:"has_health_content"`
}

func ChunkID(start, end int) string {
	return fmt.Sprintf("chunk_%d_%d", start, end)
}

// Candidate is a memory proposed by the oracle for a single chunk.
type Candidate struct {
	Type            MemoryType `json:"type"`
	Summary         string     `json:"summary"`
	Details         Details    `json:"details"`
	Confidence      float64    `json:"confidence"`
	Importance      float64    `json:"importance"`
	RelatedSymptoms []string   `json:"related_symptoms"`
	Tags            []string   `json:"tags"`
	SourceExcerpts  []string   `json:"source_excerpts"`
}

func (c *Candidate) UnmarshalJSON(data []byte) error {
	type alias Candidate
	var raw struct {
		alias
		Type    string          `json:"type"`
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Candidate(raw.alias)
	t, err := ParseMemoryType(raw.Type)
	if err != nil {
		c.Type = MemoryType(raw.Type)
		return nil
	}
	c.Type = t
	c.Details = DecodeDetails(t, raw.Details)
	return nil
}

// Entry is the durable, append-only record of one candidate.
type Entry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	ExtractedAt time.Time `json:"extracted_at"`
	Candidate
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var head struct {
		ID          string    `json:"id"`
		UserID      string    `json:"user_id"`
		SessionID   string    `json:"session_id"`
		ExtractedAt time.Time `json:"extracted_at"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	var c Candidate
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	*e = Entry{
		ID:          head.ID,
		UserID:      head.UserID,
		SessionID:   head.SessionID,
		ExtractedAt: head.ExtractedAt,
		Candidate:   c,
	}
	return nil
}

func (e Entry) Projection() Projection {
	return Projection{
		Summary:     e.Summary,
		Details:     e.Details,
		Confidence:  e.Confidence,
		Importance:  e.Importance,
		ExtractedAt: e.ExtractedAt,
	}
}

// Projection is the compact form kept inside a context bucket.
type Projection struct {
	Summary     string    `json:"summary"`
	Details     Details   `json:"details"`
	Confidence  float64   `json:"confidence"`
	Importance  float64   `json:"importance"`
	ExtractedAt time.Time `json:"extracted_at"`

	// raw keeps undecodable details from older rows for best-effort labels.
	raw json.RawMessage
}

// RawDetails returns the stored details payload when it could not be typed.
func (p Projection) RawDetails() json.RawMessage {
	return p.raw
}

// ContextBucket is the per-user, per-type aggregation.
type ContextBucket struct {
	UserID        string       `json:"user_id"`
	Type          MemoryType   `json:"type"`
	Items         []Projection `json:"items"`
	LastUpdated   time.Time    `json:"last_updated"`
	SessionCount  int          `json:"session_count"`
	LastSessionID string       `json:"last_session_id"`
}

// UserContext is the typed view reconstructed from every bucket of a user.
type UserContext struct {
	UserID         string                       `json:"user_id"`
	Symptoms       []string                     `json:"symptoms"`
	Medications    []string                     `json:"medications"`
	MedicalHistory []string                     `json:"medical_history"`
	Concerns       []string                     `json:"concerns"`
	Lifestyle      []string                     `json:"lifestyle"`
	Preferences    []string                     `json:"preferences"`
	FollowUps      []string                     `json:"follow_ups"`
	Buckets        map[MemoryType]ContextBucket `json:"buckets"`
	LastUpdated    time.Time                    `json:"last_updated"`
}

func (u *UserContext) IsEmpty() bool {
	for _, b := range u.Buckets {
		if len(b.Items) > 0 {
			return false
		}
	}
	return true
}

func (p *Projection) UnmarshalJSON(data []byte) error {
	var raw struct {
		Summary     string          `json:"summary"`
		Details     json.RawMessage `json:"details"`
		Confidence  float64         `json:"confidence"`
		Importance  float64         `json:"importance"`
		ExtractedAt time.Time       `json:"extracted_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Projection{
		Summary:     raw.Summary,
		Confidence:  raw.Confidence,
		Importance:  raw.Importance,
		ExtractedAt: raw.ExtractedAt,
		raw:         raw.Details,
	}
	return nil
}

// MarshalJSON keeps untyped legacy details intact across rewrites.
func (p Projection) MarshalJSON() ([]byte, error) {
	type alias struct {
		Summary     string    `json:"summary"`
		Details     any       `json:"details"`
		Confidence  float64   `json:"confidence"`
		Importance  float64   `json:"importance"`
		ExtractedAt time.Time `json:"extracted_at"`
	}
	a := alias{
		Summary:     p.Summary,
		Details:     p.Details,
		Confidence:  p.Confidence,
		Importance:  p.Importance,
		ExtractedAt: p.ExtractedAt,
	}
	if p.Details == nil && len(p.raw) > 0 {
		a.Details = p.raw
	}
	return json.Marshal(a)
}

func (p *Projection) bind(t MemoryType) {
	if p.Details == nil {
		p.Details = DecodeDetails(t, p.raw)
	}
}

// DecodeProjections decodes a stored bucket item list and types every
// details payload as t.
func DecodeProjections(t MemoryType, data []byte) ([]Projection, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var items []Projection
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode projections: %w", err)
	}
	for i := range items {
		items[i].bind(t)
	}
	return items, nil
}

func (b *ContextBucket) UnmarshalJSON(data []byte) error {
	type alias ContextBucket
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	for i := range a.Items {
		a.Items[i].bind(a.Type)
	}
	*b = ContextBucket(a)
	return nil
}
