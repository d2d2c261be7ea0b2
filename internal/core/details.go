package core

import (
	"encoding/json"
	"strings"
)

// Details is the type-specific payload of a memory. Every MemoryType has
// exactly one variant.
type Details interface {
	MemoryType() MemoryType
	// Label is the primitive a consumer usually wants, e.g. a symptom or
	// medication name. Empty when the oracle gave nothing usable.
	Label() string
}

type SymptomDetails struct {
	Name         string   `json:"name,omitempty"`
	Severity     string   `json:"severity,omitempty"`
	Duration     string   `json:"duration,omitempty"`
	Frequency    string   `json:"frequency,omitempty"`
	BodyLocation string   `json:"body_location,omitempty"`
	Triggers     []string `json:"triggers,omitempty"`
}

func (SymptomDetails) MemoryType() MemoryType { return MemorySymptom }
func (d SymptomDetails) Label() string        { return d.Name }

type MedicationDetails struct {
	Name        string   `json:"name,omitempty"`
	Dosage      string   `json:"dosage,omitempty"`
	Frequency   string   `json:"frequency,omitempty"`
	Purpose     string   `json:"purpose,omitempty"`
	SideEffects []string `json:"side_effects,omitempty"`
}

func (MedicationDetails) MemoryType() MemoryType { return MemoryMedication }
func (d MedicationDetails) Label() string        { return d.Name }

type MedicalHistoryDetails struct {
	Condition   string `json:"condition,omitempty"`
	DiagnosedAt string `json:"diagnosed_at,omitempty"`
	Status      string `json:"status,omitempty"`
	Treatment   string `json:"treatment,omitempty"`
}

func (MedicalHistoryDetails) MemoryType() MemoryType { return MemoryMedicalHistory }
func (d MedicalHistoryDetails) Label() string        { return d.Condition }

type LifestyleDetails struct {
	Factor      string `json:"factor,omitempty"`
	Description string `json:"description,omitempty"`
	Frequency   string `json:"frequency,omitempty"`
}

func (LifestyleDetails) MemoryType() MemoryType { return MemoryLifestyle }
func (d LifestyleDetails) Label() string        { return d.Factor }

type PreferenceDetails struct {
	Topic      string `json:"topic,omitempty"`
	Preference string `json:"preference,omitempty"`
}

func (PreferenceDetails) MemoryType() MemoryType { return MemoryPreference }
func (d PreferenceDetails) Label() string        { return d.Preference }

type ConcernDetails struct {
	Topic       string `json:"topic,omitempty"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

func (ConcernDetails) MemoryType() MemoryType { return MemoryConcern }
func (d ConcernDetails) Label() string        { return d.Topic }

type FollowUpDetails struct {
	Action string `json:"action,omitempty"`
	DueBy  string `json:"due_by,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (FollowUpDetails) MemoryType() MemoryType { return MemoryFollowUp }
func (d FollowUpDetails) Label() string        { return d.Action }

// legacyLabelKeys lists the keys older extraction prompts used for the
// primary value of each type, most specific first.
var legacyLabelKeys = map[MemoryType][]string{
	MemorySymptom:        {"name", "symptom", "symptom_name", "description"},
	MemoryMedication:     {"name", "medication", "medication_name", "drug"},
	MemoryMedicalHistory: {"condition", "diagnosis", "name", "description"},
	MemoryLifestyle:      {"factor", "habit", "activity", "description"},
	MemoryPreference:     {"preference", "value", "topic"},
	MemoryConcern:        {"topic", "concern", "description"},
	MemoryFollowUp:       {"action", "task", "follow_up", "description"},
}

// DecodeDetails types a raw details payload. It never fails: malformed or
// unknown shapes give the zero variant, with the label recovered from
// legacy keys where possible.
func DecodeDetails(t MemoryType, raw json.RawMessage) Details {
	d := emptyDetails(t)
	if d == nil {
		return nil
	}
	if len(raw) == 0 || string(raw) == "null" {
		return d
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return d
	}

	switch v := d.(type) {
	case SymptomDetails:
		_ = json.Unmarshal(raw, &v)
		if v.Name == "" {
			v.Name = LegacyLabel(t, fields)
		}
		return v
	case MedicationDetails:
		_ = json.Unmarshal(raw, &v)
		if v.Name == "" {
			v.Name = LegacyLabel(t, fields)
		}
		return v
	case MedicalHistoryDetails:
		_ = json.Unmarshal(raw, &v)
		if v.Condition == "" {
			v.Condition = LegacyLabel(t, fields)
		}
		return v
	case LifestyleDetails:
		_ = json.Unmarshal(raw, &v)
		if v.Factor == "" {
			v.Factor = LegacyLabel(t, fields)
		}
		return v
	case PreferenceDetails:
		_ = json.Unmarshal(raw, &v)
		if v.Preference == "" {
			v.Preference = LegacyLabel(t, fields)
		}
		return v
	case ConcernDetails:
		_ = json.Unmarshal(raw, &v)
		if v.Topic == "" {
			v.Topic = LegacyLabel(t, fields)
		}
		return v
	case FollowUpDetails:
		_ = json.Unmarshal(raw, &v)
		if v.Action == "" {
			v.Action = LegacyLabel(t, fields)
		}
		return v
	}
	return d
}

// LegacyLabel probes a loosely shaped details map for a primary value.
func LegacyLabel(t MemoryType, fields map[string]any) string {
	for _, key := range legacyLabelKeys[t] {
		if s, ok := fields[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func emptyDetails(t MemoryType) Details {
	switch t {
	case MemorySymptom:
		return SymptomDetails{}
	case MemoryMedication:
		return MedicationDetails{}
	case MemoryMedicalHistory:
		return MedicalHistoryDetails{}
	case MemoryLifestyle:
		return LifestyleDetails{}
	case MemoryPreference:
		return PreferenceDetails{}
	case MemoryConcern:
		return ConcernDetails{}
	case MemoryFollowUp:
		return FollowUpDetails{}
	}
	return nil
}

// DescribeDetails renders the non-empty secondary fields of d, e.g.
// "severity: moderate, duration: two weeks".
func DescribeDetails(d Details) string {
	var parts []string
	add := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, k+": "+v)
		}
	}
	switch v := d.(type) {
	case SymptomDetails:
		add("severity", v.Severity)
		add("duration", v.Duration)
		add("frequency", v.Frequency)
		add("location", v.BodyLocation)
		add("triggers", strings.Join(v.Triggers, "/"))
	case MedicationDetails:
		add("dosage", v.Dosage)
		add("frequency", v.Frequency)
		add("purpose", v.Purpose)
		add("side effects", strings.Join(v.SideEffects, "/"))
	case MedicalHistoryDetails:
		add("diagnosed", v.DiagnosedAt)
		add("status", v.Status)
		add("treatment", v.Treatment)
	case LifestyleDetails:
		add("frequency", v.Frequency)
	case ConcernDetails:
		add("severity", v.Severity)
	case FollowUpDetails:
		add("due", v.DueBy)
		add("reason", v.Reason)
	}
	return strings.Join(parts, ", ")
}
