package models

import "time"

// Submission statuses written by the revision workflows. Approved/rejected
// are set by reviewer endpoints only.
const (
	StatusPending       = "pending"
	StatusNeedsRevision = "needs_revision"
	StatusApproved      = "approved"
	StatusRejected      = "rejected"
)

// Submission represents the submissions table
type Submission struct {
	SubmissionID     int        `gorm:"primaryKey;column:submission_id" json:"submission_id"`
	SubmissionNumber string     `gorm:"column:submission_number" json:"submission_number"`
	UserID           int        `gorm:"column:user_id" json:"user_id"`
	Title            string     `gorm:"column:title" json:"title"`
	Status           string     `gorm:"column:status" json:"status"`
	CoAuthors        StringList `gorm:"column:co_authors" json:"co_authors"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt        *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	User          *User                  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Documents     []UploadedDocument     `gorm:"foreignKey:SubmissionID" json:"documents,omitempty"`
	Verifications []DocumentVerification `gorm:"foreignKey:SubmissionID" json:"verifications,omitempty"`
	Comments      []SubmissionComment    `gorm:"foreignKey:SubmissionID" json:"comments,omitempty"`
}

// TableName overrides the table name for Submission
func (Submission) TableName() string {
	return "submissions"
}

// IsEditable reports whether the researcher may still change the submission.
func (s *Submission) IsEditable() bool {
	return s.Status == StatusPending || s.Status == StatusNeedsRevision
}

// SubmissionStatusHistory tracks historical status changes for submissions.
type SubmissionStatusHistory struct {
	HistoryID    int       `gorm:"primaryKey;column:history_id" json:"history_id"`
	SubmissionID int       `gorm:"column:submission_id" json:"submission_id"`
	OldStatus    *string   `gorm:"column:old_status" json:"old_status"`
	NewStatus    string    `gorm:"column:new_status" json:"new_status"`
	ChangedBy    int       `gorm:"column:changed_by" json:"changed_by"`
	Reason       *string   `gorm:"column:reason" json:"reason"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table for SubmissionStatusHistory.
func (SubmissionStatusHistory) TableName() string {
	return "submission_status_history"
}
