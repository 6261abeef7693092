package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ethics-submission-api/models"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var consentValidator = validator.New()

// ConsentInput is the validated step-4 payload. QuickRevision marks the
// single-document revision mode where only the consent form PDF is rebuilt.
type ConsentInput struct {
	ConsentType   string                `validate:"required,oneof=adult minor both"`
	AdultConsent  models.ConsentSection `validate:"-"`
	MinorAssent   models.ConsentSection `validate:"-"`
	ContactPerson string                `validate:"required"`
	ContactNumber string                `validate:"required"`
	QuickRevision bool
}

// ValidateConsentInput enforces the bilingual-field rules for the selected
// consent type: every declared language block must carry the full
// narrative.
func ValidateConsentInput(input ConsentInput) error {
	if err := consentValidator.Struct(input); err != nil {
		return err
	}

	needAdult := input.ConsentType == models.ConsentTypeAdult || input.ConsentType == models.ConsentTypeBoth
	needMinor := input.ConsentType == models.ConsentTypeMinor || input.ConsentType == models.ConsentTypeBoth

	if needAdult {
		if err := validateConsentSection("adult_consent", input.AdultConsent); err != nil {
			return err
		}
	}
	if needMinor {
		if err := validateConsentSection("minor_assent", input.MinorAssent); err != nil {
			return err
		}
	}
	return nil
}

func validateConsentSection(name string, section models.ConsentSection) error {
	if len(section) == 0 {
		return fmt.Errorf("%s: at least one language is required", name)
	}
	for lang, narrative := range section {
		fields := map[string]string{
			"introduction":    narrative.Introduction,
			"purpose":         narrative.Purpose,
			"procedures":      narrative.Procedures,
			"risks":           narrative.Risks,
			"benefits":        narrative.Benefits,
			"confidentiality": narrative.Confidentiality,
			"participation":   narrative.Participation,
		}
		for field, value := range fields {
			if value == "" {
				return fmt.Errorf("%s (%s): %s is required", name, lang, field)
			}
		}
	}
	return nil
}

// ConsentService is the step-4 revision workflow: validate and persist the
// consent form, regenerate documents, reset the consent_form verification
// and recompute submission status.
type ConsentService struct {
	workflowDeps
}

func NewConsentService(db *gorm.DB, store BlobStore) *ConsentService {
	return &ConsentService{workflowDeps: newWorkflowDeps(db, store)}
}

// Save runs the workflow. QuickRevision limits regeneration to the consent
// form; the full wizard save rebuilds all three documents.
func (s *ConsentService) Save(ctx context.Context, actorID, submissionID int, input ConsentInput) SaveResult {
	if actorID <= 0 {
		return saveFailure("%v", ErrNotAuthenticated)
	}

	if err := ValidateConsentInput(input); err != nil {
		return saveFailure("invalid consent form: %v", err)
	}

	if err := s.upsertConsent(ctx, submissionID, input); err != nil {
		return saveFailure("failed to save consent form: %v", err)
	}

	state, err := s.loadRenderState(ctx, submissionID)
	if err != nil {
		return saveFailure("%v", err)
	}

	var tasks []regenTask
	if input.QuickRevision {
		tasks = []regenTask{{
			documentType: models.DocTypeConsentForm,
			filePrefix:   consentFormPrefix,
			render:       ConsentFormRenderer(&state.consent),
		}}
	} else {
		tasks = s.buildTasks(ctx, state)
	}

	results := s.regenerateAll(ctx, actorID, submissionID, tasks)

	for _, r := range results {
		if r.DocumentType != models.DocTypeConsentForm {
			continue
		}
		if !r.Success {
			break
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
		Message:   "Consent form saved",
		Status:    status,
		Documents: results,
	}
}

func (s *ConsentService) upsertConsent(ctx context.Context, submissionID int, input ConsentInput) error {
	now := time.Now()

	var existing models.ConsentForm
	err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		First(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		consent := models.ConsentForm{
			SubmissionID:  submissionID,
			ConsentType:   input.ConsentType,
			AdultConsent:  input.AdultConsent,
			MinorAssent:   input.MinorAssent,
			ContactPerson: input.ContactPerson,
			ContactNumber: input.ContactNumber,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return s.db.WithContext(ctx).Create(&consent).Error
	case err != nil:
		return fmt.Errorf("failed to look up consent form: %w", err)
	}

	updates := map[string]interface{}{
		"consent_type":   input.ConsentType,
		"adult_consent":  input.AdultConsent,
		"minor_assent":   input.MinorAssent,
		"contact_person": input.ContactPerson,
		"contact_number": input.ContactNumber,
		"updated_at":     now,
	}
	return s.db.WithContext(ctx).Model(&models.ConsentForm{}).
		Where("consent_id = ?", existing.ConsentID).
		Updates(updates).Error
}
