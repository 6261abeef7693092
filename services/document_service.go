package services

import (
	"context"
	"fmt"

	"ethics-submission-api/models"

	"gorm.io/gorm"
)

// DocumentService exposes ad-hoc document operations outside the wizard
// steps: single-document regeneration and download URLs.
type DocumentService struct {
	workflowDeps
}

func NewDocumentService(db *gorm.DB, store BlobStore) *DocumentService {
	return &DocumentService{workflowDeps: newWorkflowDeps(db, store)}
}

// RegenerateWithTitle re-renders one generated document type from current
// database state. Verifications are not reset here; ad-hoc regeneration is
// not a revision.
func (s *DocumentService) RegenerateWithTitle(ctx context.Context, actorID, submissionID int, documentType string) RegenerationResult {
	state, err := s.loadRenderState(ctx, submissionID)
	if err != nil {
		return regenerationFailure("%v", err)
	}

	for _, task := range s.buildTasks(ctx, state) {
		if task.documentType == documentType {
			return s.regen.Regenerate(ctx, actorID, submissionID, task.documentType, task.render, task.filePrefix)
		}
	}
	return regenerationFailure("document type %s cannot be regenerated", documentType)
}

// DownloadURL returns a short-lived signed URL for one uploaded document.
func (s *DocumentService) DownloadURL(ctx context.Context, documentID int) (string, *models.UploadedDocument, error) {
	var doc models.UploadedDocument
	if err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		First(&doc).Error; err != nil {
		return "", nil, fmt.Errorf("document not found: %w", err)
	}

	url, err := s.store.SignedURL(ctx, doc.FileURL, signatureURLTTL)
	if err != nil {
		return "", nil, err
	}
	return url, &doc, nil
}
