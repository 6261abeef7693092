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

// TechnicalReviewKind tags what the caller wants done with the
// technical-review attachment. The decision is made once at the API
// boundary instead of sniffing the payload here.
type TechnicalReviewKind int

const (
	// TechnicalReviewNone: no new file and no existing reference; any prior
	// technical_review document is removed.
	TechnicalReviewNone TechnicalReviewKind = iota
	// TechnicalReviewKeep: the existing uploaded file stays as is.
	TechnicalReviewKeep
	// TechnicalReviewNew: replace with the supplied file content.
	TechnicalReviewNew
)

// TechnicalReviewInput carries the technical-review attachment decision.
type TechnicalReviewInput struct {
	Kind     TechnicalReviewKind
	FileName string
	Data     []byte
}

// ApplicationFormInput is the validated step-2 payload.
type ApplicationFormInput struct {
	Title           string
	CoAuthors       []string
	ResearcherName  string
	Institution     string
	PositionTitle   string
	Adviser         string
	CoResearchers   []string
	FundingSource   string
	StudyType       string
	StudySite       string
	Address         string
	Phone           string
	Email           string
	StartDate       string
	EndDate         string
	Checklist       models.DocumentChecklist
	TechnicalReview TechnicalReviewInput
}

// ApplicationFormService is the step-2 revision workflow: persist the
// application form, keep titles in sync, regenerate the three documents,
// reset the application_form verification and recompute submission status.
type ApplicationFormService struct {
	workflowDeps
}

func NewApplicationFormService(db *gorm.DB, store BlobStore) *ApplicationFormService {
	return &ApplicationFormService{workflowDeps: newWorkflowDeps(db, store)}
}

// Save runs the workflow. Partial writes before a failure are not rolled
// back; the operations are independent best-effort steps with no
// transaction spanning storage and database.
func (s *ApplicationFormService) Save(ctx context.Context, actorID, submissionID int, input ApplicationFormInput) SaveResult {
	if actorID <= 0 {
		return saveFailure("%v", ErrNotAuthenticated)
	}

	if err := s.handleTechnicalReview(ctx, actorID, submissionID, input.TechnicalReview); err != nil {
		return saveFailure("technical review handling failed: %v", err)
	}

	if err := s.upsertForm(ctx, submissionID, input); err != nil {
		return saveFailure("failed to save application form: %v", err)
	}

	if err := s.syncTitles(ctx, submissionID, input.Title, input.CoAuthors); err != nil {
		return saveFailure("failed to update submission: %v", err)
	}

	state, err := s.loadRenderState(ctx, submissionID)
	if err != nil {
		return saveFailure("%v", err)
	}

	results := s.regenerateAll(ctx, actorID, submissionID, s.buildTasks(ctx, state))

	// Only the application_form verification is owned by this step;
	// protocol and consent verifications are untouched.
	for _, r := range results {
		if r.DocumentType != models.DocTypeApplicationForm {
			continue
		}
		if !r.Success {
			break
		}
		if err := s.verify.Reset(ctx, submissionID, r.DocumentID); err != nil {
			return SaveResult{Success: false, Error: err.Error(), Documents: results}
		}
	}

	status, err := s.status.Recompute(ctx, submissionID, actorID, RuleAllPending)
	if err != nil {
		return SaveResult{Success: false, Error: err.Error(), Documents: results}
	}

	return SaveResult{
		Success:   true,
		Message:   "Application form saved",
		Status:    status,
		Documents: results,
	}
}

// handleTechnicalReview applies the attachment decision: remove the row
// when nothing references a file anymore, replace file and row on a new
// upload, do nothing when the existing file is kept.
func (s *ApplicationFormService) handleTechnicalReview(ctx context.Context, actorID, submissionID int, input TechnicalReviewInput) error {
	switch input.Kind {
	case TechnicalReviewKeep:
		return nil

	case TechnicalReviewNone:
		return s.removeTechnicalReview(ctx, submissionID)

	case TechnicalReviewNew:
		if len(input.Data) == 0 {
			return errors.New("technical review file is empty")
		}

		ext := strings.ToLower(filepath.Ext(input.FileName))
		if ext == "" {
			ext = ".pdf"
		}
		now := time.Now()
		path := fmt.Sprintf("%d/%d/technical-review-%d%s", actorID, submissionID, now.UnixNano(), ext)
		if err := s.store.Upload(ctx, path, input.Data, contentTypeForExt(ext)); err != nil {
			return err
		}

		// Replace any stale row (and its blob) for this type.
		if err := s.removeTechnicalReview(ctx, submissionID); err != nil {
			return err
		}

		doc := models.UploadedDocument{
			SubmissionID: submissionID,
			DocumentType: models.DocTypeTechnicalReview,
			FileName:     input.FileName,
			FileURL:      path,
			FileSize:     int64(len(input.Data)),
			UploadedAt:   now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
			return fmt.Errorf("failed to create technical review record: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown technical review kind %d", input.Kind)
}

func (s *ApplicationFormService) removeTechnicalReview(ctx context.Context, submissionID int) error {
	var doc models.UploadedDocument
	err := s.db.WithContext(ctx).
		Where("submission_id = ? AND document_type = ?", submissionID, models.DocTypeTechnicalReview).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up technical review: %w", err)
	}

	if doc.FileURL != "" {
		if err := s.store.Remove(ctx, doc.FileURL); err != nil {
			log.Printf("technical review: failed to remove blob %s: %v", doc.FileURL, err)
		}
	}

	if err := s.db.WithContext(ctx).
		Where("document_id = ?", doc.DocumentID).
		Delete(&models.UploadedDocument{}).Error; err != nil {
		return fmt.Errorf("failed to delete technical review record: %w", err)
	}
	return nil
}

// upsertForm maps the flat input onto the application_forms row, creating
// it on first save.
func (s *ApplicationFormService) upsertForm(ctx context.Context, submissionID int, input ApplicationFormInput) error {
	contact := models.ContactInfo{Address: input.Address, Phone: input.Phone, Email: input.Email}
	duration := models.StudyDuration{StartDate: input.StartDate, EndDate: input.EndDate}

	var adviser *string
	if input.Adviser != "" {
		adviser = &input.Adviser
	}

	now := time.Now()
	var existing models.ApplicationForm
	err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		First(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		form := models.ApplicationForm{
			SubmissionID:   submissionID,
			ResearcherName: input.ResearcherName,
			Institution:    input.Institution,
			PositionTitle:  input.PositionTitle,
			Adviser:        adviser,
			CoResearchers:  models.StringList(input.CoResearchers),
			FundingSource:  input.FundingSource,
			StudyType:      input.StudyType,
			StudySite:      input.StudySite,
			ContactInfo:    contact,
			StudyDuration:  duration,
			Checklist:      input.Checklist,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		return s.db.WithContext(ctx).Create(&form).Error
	case err != nil:
		return fmt.Errorf("failed to look up application form: %w", err)
	}

	updates := map[string]interface{}{
		"researcher_name":    input.ResearcherName,
		"institution":        input.Institution,
		"position_title":     input.PositionTitle,
		"adviser":            adviser,
		"co_researchers":     models.StringList(input.CoResearchers),
		"funding_source":     input.FundingSource,
		"study_type":         input.StudyType,
		"study_site":         input.StudySite,
		"contact_info":       contact,
		"study_duration":     duration,
		"document_checklist": input.Checklist,
		"updated_at":         now,
	}
	return s.db.WithContext(ctx).Model(&models.ApplicationForm{}).
		Where("form_id = ?", existing.FormID).
		Updates(updates).Error
}

// syncTitles keeps the denormalized title copies consistent: submissions
// and research_protocols both carry the study title.
func (s *ApplicationFormService) syncTitles(ctx context.Context, submissionID int, title string, coAuthors []string) error {
	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&models.Submission{}).
		Where("submission_id = ?", submissionID).
		Updates(map[string]interface{}{
			"title":      title,
			"co_authors": models.StringList(coAuthors),
			"updated_at": now,
		}).Error; err != nil {
		return err
	}

	// The protocol row may not exist yet on a first-step save; that is fine.
	if err := s.db.WithContext(ctx).Model(&models.ResearchProtocol{}).
		Where("submission_id = ?", submissionID).
		Updates(map[string]interface{}{"title": title, "updated_at": now}).Error; err != nil {
		return err
	}
	return nil
}

func contentTypeForExt(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
