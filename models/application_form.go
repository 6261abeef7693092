package models

import "time"

// ApplicationForm represents the application_forms table. One row per
// submission, upserted by the step-2 workflow, never deleted independently.
type ApplicationForm struct {
	FormID          int               `gorm:"primaryKey;column:form_id" json:"form_id"`
	SubmissionID    int               `gorm:"column:submission_id" json:"submission_id"`
	ResearcherName  string            `gorm:"column:researcher_name" json:"researcher_name"`
	Institution     string            `gorm:"column:institution" json:"institution"`
	PositionTitle   string            `gorm:"column:position_title" json:"position_title"`
	Adviser         *string           `gorm:"column:adviser" json:"adviser,omitempty"`
	CoResearchers   StringList        `gorm:"column:co_researchers" json:"co_researchers"`
	FundingSource   string            `gorm:"column:funding_source" json:"funding_source"`
	StudyType       string            `gorm:"column:study_type" json:"study_type"`
	StudySite       string            `gorm:"column:study_site" json:"study_site"`
	ContactInfo     ContactInfo       `gorm:"column:contact_info" json:"contact_info"`
	StudyDuration   StudyDuration     `gorm:"column:study_duration" json:"study_duration"`
	Checklist       DocumentChecklist `gorm:"column:document_checklist" json:"document_checklist"`
	CreatedAt       time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name for ApplicationForm
func (ApplicationForm) TableName() string {
	return "application_forms"
}
