package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"ethics-submission-api/config"
	"ethics-submission-api/models"

	"gorm.io/gorm"
)

// StatusRule selects which verification states count as "passing" when a
// submission's status is recomputed. The two variants are inherited from the
// original workflows: the application-form save treats any decided
// verification as grounds for needs_revision, while the protocol and consent
// saves let approved documents pass. Both are kept deliberately; collapsing
// them is a product decision, not a code fix.
type StatusRule int

const (
	// RuleAllPending: pending only while every verification is undecided.
	RuleAllPending StatusRule = iota
	// RuleAllowApproved: pending while every verification is undecided or
	// approved; any rejection means needs_revision.
	RuleAllowApproved
)

// DeriveStatus reduces a submission's verification rows to a status. An
// empty set derives to pending.
func DeriveStatus(verifications []models.DocumentVerification, rule StatusRule) string {
	for _, v := range verifications {
		if v.IsApproved == nil {
			continue
		}
		if rule == RuleAllPending {
			return models.StatusNeedsRevision
		}
		if !*v.IsApproved {
			return models.StatusNeedsRevision
		}
	}
	return models.StatusPending
}

// StatusService recomputes and persists submission status after a revision
// save, with a history row per transition.
type StatusService struct {
	db *gorm.DB
}

func NewStatusService(db *gorm.DB) *StatusService {
	if db == nil {
		db = config.DB
	}
	return &StatusService{db: db}
}

// Recompute re-scans every verification for the submission, persists the
// derived status if it changed. Under RuleAllowApproved, when the
// derivation passes, it also resolves all open submission comments. Comments stay
// open while any reviewer has rejected a document.
func (s *StatusService) Recompute(ctx context.Context, submissionID, actorID int, rule StatusRule) (string, error) {
	var verifications []models.DocumentVerification
	if err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Find(&verifications).Error; err != nil {
		return "", fmt.Errorf("failed to load verifications: %w", err)
	}

	status := DeriveStatus(verifications, rule)

	var submission models.Submission
	if err := s.db.WithContext(ctx).
		Where("submission_id = ? AND deleted_at IS NULL", submissionID).
		First(&submission).Error; err != nil {
		return "", fmt.Errorf("failed to load submission: %w", err)
	}

	if submission.Status != status {
		now := time.Now()
		if err := s.db.WithContext(ctx).Model(&models.Submission{}).
			Where("submission_id = ?", submissionID).
			Updates(map[string]interface{}{"status": status, "updated_at": now}).Error; err != nil {
			return "", fmt.Errorf("failed to update submission status: %w", err)
		}

		oldStatus := submission.Status
		history := models.SubmissionStatusHistory{
			SubmissionID: submissionID,
			OldStatus:    &oldStatus,
			NewStatus:    status,
			ChangedBy:    actorID,
			CreatedAt:    now,
		}
		if err := s.db.WithContext(ctx).Create(&history).Error; err != nil {
			return "", fmt.Errorf("failed to record status history: %w", err)
		}

		// The owner learns about the transition in-app; a failed insert
		// never fails the save.
		notification := models.Notification{
			UserID:              submission.UserID,
			Title:               "Submission status changed",
			Message:             fmt.Sprintf("Submission %s is now %s.", submission.SubmissionNumber, status),
			Type:                "info",
			RelatedSubmissionID: &submissionID,
			CreateAt:            now,
		}
		if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
			log.Printf("status recompute: notification insert failed for submission %d: %v", submissionID, err)
		}
	}

	if rule == RuleAllowApproved && status == models.StatusPending {
		if err := s.db.WithContext(ctx).Model(&models.SubmissionComment{}).
			Where("submission_id = ? AND is_resolved = ?", submissionID, false).
			Update("is_resolved", true).Error; err != nil {
			return "", fmt.Errorf("failed to resolve comments: %w", err)
		}
	}

	return status, nil
}
