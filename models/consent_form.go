package models

import "time"

// Consent types accepted by the step-4 workflow.
const (
	ConsentTypeAdult = "adult"
	ConsentTypeMinor = "minor"
	ConsentTypeBoth  = "both"
)

// ConsentForm represents the consent_forms table. AdultConsent and
// MinorAssent hold the bilingual narrative blocks keyed by language code;
// which sections must be present depends on ConsentType.
type ConsentForm struct {
	ConsentID     int            `gorm:"primaryKey;column:consent_id" json:"consent_id"`
	SubmissionID  int            `gorm:"column:submission_id" json:"submission_id"`
	ConsentType   string         `gorm:"column:consent_type" json:"consent_type"`
	AdultConsent  ConsentSection `gorm:"column:adult_consent" json:"adult_consent"`
	MinorAssent   ConsentSection `gorm:"column:minor_assent" json:"minor_assent"`
	ContactPerson string         `gorm:"column:contact_person" json:"contact_person"`
	ContactNumber string         `gorm:"column:contact_number" json:"contact_number"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name for ConsentForm
func (ConsentForm) TableName() string {
	return "consent_forms"
}
