package models

import (
	"strings"
	"time"
)

// Document types tracked per submission. Protocol image documents use
// DocTypeProtocolImagePrefix + section name.
const (
	DocTypeApplicationForm     = "application_form"
	DocTypeResearchProtocol    = "research_protocol"
	DocTypeConsentForm         = "consent_form"
	DocTypeTechnicalReview     = "technical_review"
	DocTypeEndorsementLetter   = "endorsement_letter"
	DocTypeProtocolImagePrefix = "protocol_image_"
)

// ProtocolImageType builds the document type for an image extracted from the
// named protocol section.
func ProtocolImageType(section string) string {
	return DocTypeProtocolImagePrefix + section
}

// IsProtocolImageType reports whether the document type names an extracted
// protocol image.
func IsProtocolImageType(documentType string) bool {
	return strings.HasPrefix(documentType, DocTypeProtocolImagePrefix)
}

// UploadedDocument represents the uploaded_documents table. At most one row
// per (submission_id, document_type) for the generated document types;
// protocol images accumulate one row per extracted image.
type UploadedDocument struct {
	DocumentID    int       `gorm:"primaryKey;column:document_id" json:"document_id"`
	SubmissionID  int       `gorm:"column:submission_id" json:"submission_id"`
	DocumentType  string    `gorm:"column:document_type" json:"document_type"`
	FileName      string    `gorm:"column:file_name" json:"file_name"`
	FileURL       string    `gorm:"column:file_url" json:"file_url"`
	FileSize      int64     `gorm:"column:file_size" json:"file_size"`
	RevisionCount int       `gorm:"column:revision_count" json:"revision_count"`
	UploadedAt    time.Time `gorm:"column:uploaded_at" json:"uploaded_at"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name for UploadedDocument
func (UploadedDocument) TableName() string {
	return "uploaded_documents"
}

// DocumentVerification represents the document_verifications table. Exactly
// one row is intended per uploaded document; IsApproved nil means the
// reviewer has not decided yet.
type DocumentVerification struct {
	VerificationID  int        `gorm:"primaryKey;column:verification_id" json:"verification_id"`
	DocumentID      *int       `gorm:"column:document_id" json:"document_id"`
	SubmissionID    int        `gorm:"column:submission_id" json:"submission_id"`
	IsApproved      *bool      `gorm:"column:is_approved" json:"is_approved"`
	FeedbackComment *string    `gorm:"column:feedback_comment" json:"feedback_comment"`
	VerifiedBy      *int       `gorm:"column:verified_by" json:"verified_by"`
	VerifiedAt      *time.Time `gorm:"column:verified_at" json:"verified_at"`
	CreatedAt       time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at" json:"updated_at"`

	Document *UploadedDocument `gorm:"foreignKey:DocumentID" json:"document,omitempty"`
}

// TableName overrides the table name for DocumentVerification
func (DocumentVerification) TableName() string {
	return "document_verifications"
}

// SubmissionComment represents the submission_comments table. Comments are
// resolved in bulk only when a whole-submission verification check passes.
type SubmissionComment struct {
	CommentID    int       `gorm:"primaryKey;column:comment_id" json:"comment_id"`
	SubmissionID int       `gorm:"column:submission_id" json:"submission_id"`
	CommentText  string    `gorm:"column:comment_text" json:"comment_text"`
	IsResolved   bool      `gorm:"column:is_resolved" json:"is_resolved"`
	CreatedBy    int       `gorm:"column:created_by" json:"created_by"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the table name for SubmissionComment
func (SubmissionComment) TableName() string {
	return "submission_comments"
}
