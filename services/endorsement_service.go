package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"ethics-submission-api/models"

	"gorm.io/gorm"
)

// EndorsementLetterInput carries the uploaded letter file.
type EndorsementLetterInput struct {
	FileName string
	Data     []byte
}

// EndorsementService is the endorsement-letter revision workflow: replace
// the uploaded letter, bump its revision counter, reset its verification and
// recompute submission status. Unlike the other steps nothing is rendered
// here; the letter is supplied by the researcher as a file.
type EndorsementService struct {
	workflowDeps
}

func NewEndorsementService(db *gorm.DB, store BlobStore) *EndorsementService {
	return &EndorsementService{workflowDeps: newWorkflowDeps(db, store)}
}

// Save uploads the new letter before removing the old blob so there is no
// window with neither present; the delete is best-effort.
func (s *EndorsementService) Save(ctx context.Context, actorID, submissionID int, input EndorsementLetterInput) SaveResult {
	if actorID <= 0 {
		return saveFailure("%v", ErrNotAuthenticated)
	}
	if len(input.Data) == 0 {
		return saveFailure("endorsement letter file is empty")
	}

	ext := strings.ToLower(filepath.Ext(input.FileName))
	if ext == "" {
		ext = ".pdf"
	}
	now := time.Now()
	newPath := fmt.Sprintf("%d/%d/endorsement-letter-%d%s", actorID, submissionID, now.UnixNano(), ext)
	if err := s.store.Upload(ctx, newPath, input.Data, contentTypeForExt(ext)); err != nil {
		return saveFailure("failed to upload endorsement letter: %v", err)
	}

	var doc models.UploadedDocument
	err := s.db.WithContext(ctx).
		Where("submission_id = ? AND document_type = ?", submissionID, models.DocTypeEndorsementLetter).
		First(&doc).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		doc = models.UploadedDocument{
			SubmissionID: submissionID,
			DocumentType: models.DocTypeEndorsementLetter,
			FileName:     input.FileName,
			FileURL:      newPath,
			FileSize:     int64(len(input.Data)),
			UploadedAt:   now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
			return saveFailure("failed to create endorsement letter record: %v", err)
		}
	case err != nil:
		return saveFailure("failed to look up endorsement letter: %v", err)
	default:
		oldPath := doc.FileURL
		updates := map[string]interface{}{
			"file_name":      input.FileName,
			"file_url":       newPath,
			"file_size":      int64(len(input.Data)),
			"revision_count": gorm.Expr("revision_count + 1"),
			"uploaded_at":    now,
			"updated_at":     now,
		}
		if err := s.db.WithContext(ctx).Model(&models.UploadedDocument{}).
			Where("document_id = ?", doc.DocumentID).
			Updates(updates).Error; err != nil {
			return saveFailure("failed to update endorsement letter record: %v", err)
		}
		if oldPath != "" && oldPath != newPath {
			if err := s.store.Remove(ctx, oldPath); err != nil {
				log.Printf("endorsement letter: failed to remove stale blob %s: %v", oldPath, err)
			}
		}
	}

	result := DocumentResult{
		DocumentType: models.DocTypeEndorsementLetter,
		Success:      true,
		DocumentID:   doc.DocumentID,
		PDFPath:      newPath,
	}

	if err := s.verify.Reset(ctx, submissionID, doc.DocumentID); err != nil {
		return SaveResult{Success: false, Error: err.Error(), Documents: []DocumentResult{result}}
	}

	status, err := s.status.Recompute(ctx, submissionID, actorID, RuleAllowApproved)
	if err != nil {
		return SaveResult{Success: false, Error: err.Error(), Documents: []DocumentResult{result}}
	}

	return SaveResult{
		Success:   true,
		Message:   "Endorsement letter saved",
		Status:    status,
		Documents: []DocumentResult{result},
	}
}
