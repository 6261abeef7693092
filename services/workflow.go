package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ethics-submission-api/config"
	"ethics-submission-api/models"

	"gorm.io/gorm"
)

// File prefixes for the generated document types.
const (
	applicationFormPrefix  = "application-form"
	researchProtocolPrefix = "research-protocol"
	consentFormPrefix      = "consent-form"
)

// signatureURLTTL bounds how long a signed signature URL stays valid; it
// only needs to survive one render.
const signatureURLTTL = time.Hour

// DocumentResult reports the outcome of regenerating a single document
// type. Workflows return one per affected type instead of failing the whole
// batch on the first error.
type DocumentResult struct {
	DocumentType string `json:"document_type"`
	Success      bool   `json:"success"`
	DocumentID   int    `json:"document_id,omitempty"`
	PDFPath      string `json:"pdf_path,omitempty"`
	Error        string `json:"error,omitempty"`
}

// SaveResult is the envelope every revision-save workflow returns.
type SaveResult struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message,omitempty"`
	Error     string           `json:"error,omitempty"`
	Status    string           `json:"status,omitempty"`
	Documents []DocumentResult `json:"documents,omitempty"`
}

func saveFailure(format string, args ...interface{}) SaveResult {
	return SaveResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

// taskBuilder produces the regeneration tasks for a submission's current
// state.
type taskBuilder func(ctx context.Context, state *renderState) []regenTask

// workflowDeps bundles the collaborators every step workflow needs. A nil
// tasks field means the default browser-backed renderers.
type workflowDeps struct {
	db     *gorm.DB
	store  BlobStore
	regen  *RegenerationService
	verify *VerificationService
	status *StatusService
	tasks  taskBuilder
}

func newWorkflowDeps(db *gorm.DB, store BlobStore) workflowDeps {
	if db == nil {
		db = config.DB
	}
	return workflowDeps{
		db:     db,
		store:  store,
		regen:  NewRegenerationService(db, store),
		verify: NewVerificationService(db),
		status: NewStatusService(db),
	}
}

type regenTask struct {
	documentType string
	filePrefix   string
	render       RenderFunc
}

// regenerateAll runs the tasks in order and gathers every result. A failed
// task does not abort the others; callers inspect per-document outcomes.
// Storage writes for one submission stay in a single deterministic order.
func (d *workflowDeps) regenerateAll(ctx context.Context, actorID, submissionID int, tasks []regenTask) []DocumentResult {
	results := make([]DocumentResult, len(tasks))
	for i, task := range tasks {
		r := d.regen.Regenerate(ctx, actorID, submissionID, task.documentType, task.render, task.filePrefix)
		results[i] = DocumentResult{
			DocumentType: task.documentType,
			Success:      r.Success,
			DocumentID:   r.DocumentID,
			PDFPath:      r.PDFPath,
			Error:        r.Error,
		}
	}
	return results
}

// buildTasks applies the configured task builder, defaulting to the full
// three-document set.
func (d *workflowDeps) buildTasks(ctx context.Context, state *renderState) []regenTask {
	if d.tasks != nil {
		return d.tasks(ctx, state)
	}
	return d.allDocumentTasks(ctx, state)
}

// renderState is the current database state of the three generated
// documents. Missing rows come back as empty structs so a partially filled
// wizard still renders.
type renderState struct {
	submission models.Submission
	form       models.ApplicationForm
	protocol   models.ResearchProtocol
	consent    models.ConsentForm
}

func (d *workflowDeps) loadRenderState(ctx context.Context, submissionID int) (*renderState, error) {
	state := &renderState{}

	if err := d.db.WithContext(ctx).
		Where("submission_id = ? AND deleted_at IS NULL", submissionID).
		First(&state.submission).Error; err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	if err := d.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		First(&state.form).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load application form: %w", err)
	}
	if err := d.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		First(&state.protocol).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load research protocol: %w", err)
	}
	if err := d.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		First(&state.consent).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load consent form: %w", err)
	}

	return state, nil
}

// signatureRenderURLs builds per-researcher image URLs for PDF rendering:
// a short-lived signed URL for stored signatures, falling back to the raw
// base64 copy when signing fails or no path exists yet.
func (d *workflowDeps) signatureRenderURLs(ctx context.Context, researchers models.ResearcherList) map[string]string {
	urls := make(map[string]string, len(researchers))
	for _, r := range researchers {
		if r.SignaturePath != "" {
			signed, err := d.store.SignedURL(ctx, r.SignaturePath, signatureURLTTL)
			if err == nil {
				urls[r.ID] = signed
				continue
			}
			log.Printf("signature url for researcher %s: signing %s failed: %v", r.ID, r.SignaturePath, err)
		}
		if r.SignatureBase64 != "" {
			urls[r.ID] = signatureDataURL(r.SignatureBase64)
		}
	}
	return urls
}

// signatureDataURL wraps a bare base64 payload as a PNG data URL, leaving
// payloads that already carry a data: prefix untouched.
func signatureDataURL(b64 string) string {
	if len(b64) >= 5 && b64[:5] == "data:" {
		return b64
	}
	return "data:image/png;base64," + b64
}

// allDocumentTasks builds the regeneration tasks for the three generated
// document types from the current database state.
func (d *workflowDeps) allDocumentTasks(ctx context.Context, state *renderState) []regenTask {
	signatureURLs := d.signatureRenderURLs(ctx, state.protocol.Researchers)
	return []regenTask{
		{
			documentType: models.DocTypeApplicationForm,
			filePrefix:   applicationFormPrefix,
			render:       ApplicationFormRenderer(&state.form, &state.submission),
		},
		{
			documentType: models.DocTypeResearchProtocol,
			filePrefix:   researchProtocolPrefix,
			render:       ResearchProtocolRenderer(&state.protocol, signatureURLs),
		},
		{
			documentType: models.DocTypeConsentForm,
			filePrefix:   consentFormPrefix,
			render:       ConsentFormRenderer(&state.consent),
		},
	}
}
