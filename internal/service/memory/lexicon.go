package memory

import (
	"regexp"
	"strings"
)

// healthTerms is matched at word starts against lowercased content. A
// trailing "*" marks a stem that may continue ("nause*" covers nausea and
// nauseous); everything else must end at a word boundary.
var healthTerms = []string{
	// symptoms
	"symptom*", "pain", "pains", "painful", "ache", "aches", "aching", "headache*", "migraine*",
	"fever*", "feverish", "nause*", "vomit*", "dizz*", "faint*", "fatigue*", "tired",
	"exhausted", "cough*", "rash*", "itch*", "swell*", "swollen", "bleed*", "bruis*",
	"insomnia", "sleepless*", "anxiety", "anxious", "panic attack*", "depress*",
	"breathless*", "short of breath", "shortness of breath", "wheez*", "palpitation*",
	"sore", "cramp*", "numb", "numbness", "tingl*", "diarrh*", "constipat*", "chills", "sweats",
	"sneez*", "congest*", "stiff*", "sprain*", "inflam*",
	// conditions
	"diabet*", "asthma*", "hypertension", "blood pressure", "cholesterol", "allerg*",
	"infection*", "arthritis", "cancer*", "tumou?r*", "thyroid*", "eczema", "psoriasis",
	"covid*", "flu", "influenza", "pneumonia", "anemi*", "anaemi*", "obes*",
	// medications
	"medication*", "medicine*", "meds", "pill", "pills", "tablet*", "capsule*", "dose", "doses", "dosing", "dosage*",
	"prescri*", "ibuprofen", "paracetamol", "acetaminophen", "aspirin", "antibiotic*",
	"insulin", "metformin", "statin*", "inhaler*", "antihistamine*", "steroid*",
	"supplement*", "vitamin*", "painkiller*", "side effect*",
	// clinical
	"doctor*", "physician*", "gp", "nurse*", "clinic*", "hospital*", "diagnos*",
	"treatment*", "therap*", "surgery", "surgeon*", "appointment*", "blood test*",
	"x-ray*", "mri", "ultrasound", "biopsy", "specialist*", "emergency room", "er visit*",
	// anatomy
	"chest", "stomach*", "abdom*", "throat", "lung*", "heart*", "kidney*", "liver",
	"joint*", "muscle*", "spine", "knee*", "ankle*", "wrist*", "shoulder*",
	"back pain", "neck pain", "sinus*", "bowel*", "bladder",
}

var healthPattern = compileLexicon(healthTerms)

func compileLexicon(terms []string) *regexp.Regexp {
	alts := make([]string, 0, len(terms))
	for _, t := range terms {
		if stem, ok := strings.CutSuffix(t, "*"); ok {
			alts = append(alts, quoteTerm(stem)+`\w*`)
			continue
		}
		alts = append(alts, quoteTerm(t)+`\b`)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(alts, "|") + `)`)
}

// quoteTerm escapes a term but keeps the "?" quantifier used for spelling
// variants.
func quoteTerm(t string) string {
	return strings.ReplaceAll(regexp.QuoteMeta(t), `\?`, `?`)
}

// ContainsHealthTerm reports whether text mentions any health vocabulary.
func ContainsHealthTerm(text string) bool {
	return healthPattern.MatchString(strings.ToLower(text))
}
