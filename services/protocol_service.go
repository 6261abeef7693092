package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ethics-submission-api/models"

	"gorm.io/gorm"
)

// SignatureKind tags how a researcher's signature arrived. The variant is
// decided once at the API boundary; the workflow never re-sniffs payloads.
type SignatureKind int

const (
	// SignatureNone: researcher has no signature yet.
	SignatureNone SignatureKind = iota
	// SignatureNewFile: freshly uploaded image bytes.
	SignatureNewFile
	// SignatureBase64: inline base64 payload from the wizard canvas.
	SignatureBase64
	// SignatureStoredPath: an already-stored object path; nothing to upload.
	SignatureStoredPath
	// SignatureRemoteURL: an external URL; the base64 companion, when
	// present, is kept for rendering fallback.
	SignatureRemoteURL
)

// SignatureInput is the tagged signature variant for one researcher.
type SignatureInput struct {
	Kind     SignatureKind
	FileName string
	Data     []byte
	Base64   string
	Path     string
	URL      string
}

// ResearcherInput is one entry of the ordered researcher list in a step-3
// payload.
type ResearcherInput struct {
	ID        string
	Name      string
	Signature SignatureInput
}

// ProtocolInput is the validated step-3 payload: the study title, the
// twelve narrative sections as HTML, and the ordered researcher list.
type ProtocolInput struct {
	Title       string
	Sections    map[string]string
	Researchers []ResearcherInput
}

// ProtocolService is the step-3 revision workflow: extract inline images,
// resolve signatures, persist the protocol, regenerate the three documents,
// bump the protocol revision count, reset the research_protocol
// verification and recompute submission status.
type ProtocolService struct {
	workflowDeps
}

func NewProtocolService(db *gorm.DB, store BlobStore) *ProtocolService {
	return &ProtocolService{workflowDeps: newWorkflowDeps(db, store)}
}

// Save runs the workflow. As with the other steps, there is no transaction
// across storage and database; failures leave earlier writes in place.
func (s *ProtocolService) Save(ctx context.Context, actorID, submissionID int, input ProtocolInput) SaveResult {
	if actorID <= 0 {
		return saveFailure("%v", ErrNotAuthenticated)
	}

	rewritten, uploadedImages, err := s.extractAllImages(ctx, actorID, submissionID, input.Sections)
	if err != nil {
		return saveFailure("image extraction failed: %v", err)
	}

	researchers, err := s.resolveSignatures(ctx, actorID, submissionID, input.Researchers)
	if err != nil {
		return saveFailure("signature handling failed: %v", err)
	}

	if err := s.upsertProtocol(ctx, submissionID, input.Title, rewritten, researchers); err != nil {
		return saveFailure("failed to save research protocol: %v", err)
	}

	if err := s.recordImageDocuments(ctx, submissionID, uploadedImages); err != nil {
		return saveFailure("failed to record extracted images: %v", err)
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&models.Submission{}).
		Where("submission_id = ?", submissionID).
		Updates(map[string]interface{}{"title": input.Title, "updated_at": now}).Error; err != nil {
		return saveFailure("failed to update submission title: %v", err)
	}

	state, err := s.loadRenderState(ctx, submissionID)
	if err != nil {
		return saveFailure("%v", err)
	}

	results := s.regenerateAll(ctx, actorID, submissionID, s.buildTasks(ctx, state))

	for _, r := range results {
		if r.DocumentType != models.DocTypeResearchProtocol {
			continue
		}
		if !r.Success {
			break
		}
		// Revision bookkeeping happens only here: the protocol document
		// counts its revision cycles.
		if err := s.incrementRevisionCount(ctx, r.DocumentID); err != nil {
			return SaveResult{Success: false, Error: err.Error(), Documents: results}
		}
		if err := s.verify.Reset(ctx, submissionID, r.DocumentID); err != nil {
			return SaveResult{Success: false, Error: err.Error(), Documents: results}
		}
	}

	status, err := s.status.Recompute(ctx, submissionID, actorID, RuleAllowApproved)
	if err != nil {
		return SaveResult{Success: false, Error: err.Error(), Documents: results}
	}

	return SaveResult{
		Success:   true,
		Message:   "Research protocol saved",
		Status:    status,
		Documents: results,
	}
}

// extractAllImages runs inline-image extraction over every known section
// independently and gathers the bookkeeping list.
func (s *ProtocolService) extractAllImages(ctx context.Context, actorID, submissionID int, sections map[string]string) (map[string]string, []UploadedImage, error) {
	rewritten := make(map[string]string, len(sections))
	var all []UploadedImage
	for _, section := range models.ProtocolSections {
		html, ok := sections[section]
		if !ok {
			continue
		}
		out, uploaded, err := extractAndUploadImages(ctx, s.store, actorID, submissionID, section, html)
		if err != nil {
			return nil, nil, err
		}
		rewritten[section] = out
		all = append(all, uploaded...)
	}
	return rewritten, all, nil
}

// resolveSignatures turns the tagged signature variants into stored
// researcher entries, uploading new or inline signatures along the way.
func (s *ProtocolService) resolveSignatures(ctx context.Context, actorID, submissionID int, inputs []ResearcherInput) (models.ResearcherList, error) {
	researchers := make(models.ResearcherList, 0, len(inputs))
	for i, in := range inputs {
		r := models.Researcher{ID: in.ID, Name: in.Name}

		switch in.Signature.Kind {
		case SignatureNone:
			// nothing stored

		case SignatureNewFile:
			path, err := s.uploadSignature(ctx, actorID, submissionID, in.ID, in.Signature.Data)
			if err != nil {
				return nil, fmt.Errorf("researcher %d (%s): %w", i+1, in.Name, err)
			}
			r.SignaturePath = path

		case SignatureBase64:
			data, err := decodeBase64Payload(in.Signature.Base64)
			if err != nil {
				return nil, fmt.Errorf("researcher %d (%s): invalid signature payload: %w", i+1, in.Name, err)
			}
			path, err := s.uploadSignature(ctx, actorID, submissionID, in.ID, data)
			if err != nil {
				return nil, fmt.Errorf("researcher %d (%s): %w", i+1, in.Name, err)
			}
			r.SignaturePath = path

		case SignatureStoredPath:
			r.SignaturePath = in.Signature.Path

		case SignatureRemoteURL:
			// External URL: keep the base64 companion for rendering, leave
			// storage untouched.
			r.SignatureBase64 = in.Signature.Base64

		default:
			return nil, fmt.Errorf("researcher %d (%s): unknown signature kind %d", i+1, in.Name, in.Signature.Kind)
		}

		researchers = append(researchers, r)
	}
	return researchers, nil
}

func (s *ProtocolService) uploadSignature(ctx context.Context, actorID, submissionID int, researcherID string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("signature image is empty")
	}
	normalized := normalizeSignatureImage(data)
	path := fmt.Sprintf("%d/%d/signatures/%s-%d.png",
		actorID, submissionID, sanitizeKeyPart(researcherID), time.Now().UnixNano())
	if err := s.store.Upload(ctx, path, normalized, "image/png"); err != nil {
		return "", err
	}
	return path, nil
}

func sanitizeKeyPart(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

func (s *ProtocolService) upsertProtocol(ctx context.Context, submissionID int, title string, sections map[string]string, researchers models.ResearcherList) error {
	now := time.Now()

	var existing models.ResearchProtocol
	err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		First(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		protocol := models.ResearchProtocol{
			SubmissionID: submissionID,
			Title:        title,
			Researchers:  researchers,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		for section, html := range sections {
			protocol.SetSectionHTML(section, html)
		}
		return s.db.WithContext(ctx).Create(&protocol).Error
	case err != nil:
		return fmt.Errorf("failed to look up research protocol: %w", err)
	}

	updates := map[string]interface{}{
		"title":       title,
		"researchers": researchers,
		"updated_at":  now,
	}
	for section, html := range sections {
		updates[section] = html
	}
	return s.db.WithContext(ctx).Model(&models.ResearchProtocol{}).
		Where("protocol_id = ?", existing.ProtocolID).
		Updates(updates).Error
}

// recordImageDocuments inserts one uploaded_documents row per extracted
// image for audit and cleanup. No verification rows attach to these.
func (s *ProtocolService) recordImageDocuments(ctx context.Context, submissionID int, images []UploadedImage) error {
	now := time.Now()
	for _, img := range images {
		doc := models.UploadedDocument{
			SubmissionID: submissionID,
			DocumentType: models.ProtocolImageType(img.Section),
			FileName:     fmt.Sprintf("%s-image-%d", img.Section, img.ImageNumber),
			FileURL:      img.Path,
			FileSize:     img.Size,
			UploadedAt:   now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
			return fmt.Errorf("image %s #%d: %w", img.Section, img.ImageNumber, err)
		}
	}
	return nil
}

// incrementRevisionCount bumps the protocol document's revision counter,
// which starts at zero on the first generation.
func (s *ProtocolService) incrementRevisionCount(ctx context.Context, documentID int) error {
	if err := s.db.WithContext(ctx).Model(&models.UploadedDocument{}).
		Where("document_id = ?", documentID).
		Update("revision_count", gorm.Expr("revision_count + 1")).Error; err != nil {
		return fmt.Errorf("failed to increment revision count: %w", err)
	}
	return nil
}
