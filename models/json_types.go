package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
}

// ContactInfo is the nested contact block on an application form.
type ContactInfo struct {
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

func (c ContactInfo) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *ContactInfo) Scan(value interface{}) error {
	return scanJSON(value, c)
}

// StudyDuration holds the planned start/end of the study.
type StudyDuration struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (s StudyDuration) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StudyDuration) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// DocumentChecklist records which supporting documents the applicant claims
// to have attached.
type DocumentChecklist struct {
	ApplicationForm   bool `json:"application_form"`
	ResearchProtocol  bool `json:"research_protocol"`
	ConsentForm       bool `json:"consent_form"`
	TechnicalReview   bool `json:"technical_review"`
	EndorsementLetter bool `json:"endorsement_letter"`
	Questionnaire     bool `json:"questionnaire"`
}

func (d DocumentChecklist) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *DocumentChecklist) Scan(value interface{}) error {
	return scanJSON(value, d)
}

// Researcher is one entry in a protocol's ordered researcher list. Exactly
// one of SignaturePath/SignatureBase64 is normally set once the protocol has
// been saved; both may be present when the client round-trips an unsaved
// signature.
type Researcher struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	SignaturePath   string `json:"signature_path,omitempty"`
	SignatureBase64 string `json:"signature_base64,omitempty"`
}

// ResearcherList is stored as a JSON array, order preserved.
type ResearcherList []Researcher

func (r ResearcherList) Value() (driver.Value, error) {
	if r == nil {
		return json.Marshal([]Researcher{})
	}
	return json.Marshal(r)
}

func (r *ResearcherList) Scan(value interface{}) error {
	return scanJSON(value, r)
}

// ConsentNarrative holds the bilingual narrative fields of an adult consent
// or minor assent section.
type ConsentNarrative struct {
	Language        string `json:"language"`
	Introduction    string `json:"introduction"`
	Purpose         string `json:"purpose"`
	Procedures      string `json:"procedures"`
	Risks           string `json:"risks"`
	Benefits        string `json:"benefits"`
	Confidentiality string `json:"confidentiality"`
	Participation   string `json:"participation"`
}

// ConsentSection maps language code to its narrative.
type ConsentSection map[string]ConsentNarrative

func (c ConsentSection) Value() (driver.Value, error) {
	if c == nil {
		return json.Marshal(map[string]ConsentNarrative{})
	}
	return json.Marshal(c)
}

func (c *ConsentSection) Scan(value interface{}) error {
	return scanJSON(value, c)
}

// StringList is a JSON-encoded list of plain strings (co-authors).
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(s)
}

func (s *StringList) Scan(value interface{}) error {
	return scanJSON(value, s)
}
