package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"ethics-submission-api/config"
	"ethics-submission-api/models"

	"gorm.io/gorm"
)

// ErrNotAuthenticated is returned when a workflow is invoked without an
// acting user.
var ErrNotAuthenticated = errors.New("no authenticated user")

// RegenerationResult mirrors the produced interface of the regeneration
// service: success plus the document row id and the new storage path, or a
// failure message.
type RegenerationResult struct {
	Success    bool   `json:"success"`
	DocumentID int    `json:"document_id,omitempty"`
	PDFPath    string `json:"pdf_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

func regenerationFailure(format string, args ...interface{}) RegenerationResult {
	return RegenerationResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

// RegenerationService re-renders one document type to PDF and replaces its
// stored file. It never touches document_verifications; resetting those is
// the calling workflow's job.
type RegenerationService struct {
	db    *gorm.DB
	store BlobStore
}

func NewRegenerationService(db *gorm.DB, store BlobStore) *RegenerationService {
	if db == nil {
		db = config.DB
	}
	return &RegenerationService{db: db, store: store}
}

// decodeBase64Payload decodes a base64 payload, tolerating a data-URL
// prefix ("data:application/pdf;base64,....").
func decodeBase64Payload(payload string) ([]byte, error) {
	if idx := strings.Index(payload, "base64,"); idx >= 0 {
		payload = payload[idx+len("base64,"):]
	}
	return base64.StdEncoding.DecodeString(payload)
}

// Regenerate renders the document type via renderFn, uploads the new PDF and
// points the uploaded_documents row at it. The new blob is uploaded before
// the old one is removed so there is no window with neither present; the
// delete is best-effort.
func (s *RegenerationService) Regenerate(ctx context.Context, actorID, submissionID int, documentType string, renderFn RenderFunc, filePrefix string) RegenerationResult {
	if actorID <= 0 {
		return regenerationFailure("%v", ErrNotAuthenticated)
	}

	// Title injection is best-effort; a missing submission row only loses
	// the title on the rendered document.
	var title string
	var submission models.Submission
	if err := s.db.WithContext(ctx).
		Select("submission_id", "title").
		Where("submission_id = ? AND deleted_at IS NULL", submissionID).
		First(&submission).Error; err != nil {
		log.Printf("regenerate %s: submission %d title lookup failed: %v", documentType, submissionID, err)
	} else {
		title = submission.Title
	}

	rendered := renderFn(ctx, title)
	if !rendered.Success || rendered.PDFData == "" {
		if rendered.Error == "" {
			rendered.Error = "renderer returned no PDF payload"
		}
		return regenerationFailure("rendering failed: %s", rendered.Error)
	}

	pdfBytes, err := decodeBase64Payload(rendered.PDFData)
	if err != nil {
		return regenerationFailure("invalid PDF payload: %v", err)
	}

	var doc models.UploadedDocument
	var oldPath string
	now := time.Now()
	err = s.db.WithContext(ctx).
		Where("submission_id = ? AND document_type = ?", submissionID, documentType).
		First(&doc).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		doc = models.UploadedDocument{
			SubmissionID: submissionID,
			DocumentType: documentType,
			FileName:     filePrefix + ".pdf",
			FileURL:      fmt.Sprintf("%d/%s.pdf", submissionID, filePrefix),
			FileSize:     0,
			UploadedAt:   now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
			return regenerationFailure("failed to create document record: %v", err)
		}
	case err != nil:
		return regenerationFailure("failed to look up document record: %v", err)
	default:
		// Only a pre-existing row has a prior blob to retire; the
		// placeholder path on a just-created row was never uploaded.
		oldPath = doc.FileURL
	}

	// Timestamped path namespaced by actor and submission; cannot collide
	// with the path it replaces.
	newPath := fmt.Sprintf("%d/%d/%s-%d.pdf", actorID, submissionID, filePrefix, now.UnixNano())
	if err := s.store.Upload(ctx, newPath, pdfBytes, "application/pdf"); err != nil {
		return regenerationFailure("failed to upload PDF: %v", err)
	}

	updates := map[string]interface{}{
		"file_name":   filePrefix + ".pdf",
		"file_url":    newPath,
		"file_size":   int64(len(pdfBytes)),
		"uploaded_at": now,
		"updated_at":  now,
	}
	if err := s.db.WithContext(ctx).Model(&models.UploadedDocument{}).
		Where("document_id = ?", doc.DocumentID).
		Updates(updates).Error; err != nil {
		return regenerationFailure("failed to update document record: %v", err)
	}

	if oldPath != "" && oldPath != newPath {
		if err := s.store.Remove(ctx, oldPath); err != nil {
			log.Printf("regenerate %s: failed to remove stale blob %s: %v", documentType, oldPath, err)
		}
	}

	return RegenerationResult{Success: true, DocumentID: doc.DocumentID, PDFPath: newPath}
}
