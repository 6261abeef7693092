package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ethics-submission-api/config"
	"ethics-submission-api/models"

	"gorm.io/gorm"
)

// VerificationService owns the document_verifications rows: workflows reset
// them after a revision, reviewers decide them.
type VerificationService struct {
	db *gorm.DB
}

func NewVerificationService(db *gorm.DB) *VerificationService {
	if db == nil {
		db = config.DB
	}
	return &VerificationService{db: db}
}

// Reset clears the verification for one document back to undecided. The row
// is created if it does not exist yet, so each document ends with exactly
// one verification row regardless of how often this runs.
func (s *VerificationService) Reset(ctx context.Context, submissionID, documentID int) error {
	var verification models.DocumentVerification
	err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		First(&verification).Error

	now := time.Now()
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		verification = models.DocumentVerification{
			DocumentID:   &documentID,
			SubmissionID: submissionID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.db.WithContext(ctx).Create(&verification).Error; err != nil {
			return fmt.Errorf("failed to create verification: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up verification: %w", err)
	}

	updates := map[string]interface{}{
		"is_approved":      nil,
		"feedback_comment": nil,
		"verified_by":      nil,
		"verified_at":      nil,
		"updated_at":       now,
	}
	if err := s.db.WithContext(ctx).Model(&models.DocumentVerification{}).
		Where("verification_id = ?", verification.VerificationID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to reset verification: %w", err)
	}
	return nil
}

// Decide records a reviewer judgment on one document.
func (s *VerificationService) Decide(ctx context.Context, submissionID, documentID, reviewerID int, approved bool, feedback string) error {
	var verification models.DocumentVerification
	err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		First(&verification).Error

	now := time.Now()
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		verification = models.DocumentVerification{
			DocumentID:   &documentID,
			SubmissionID: submissionID,
			IsApproved:   &approved,
			VerifiedBy:   &reviewerID,
			VerifiedAt:   &now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if feedback != "" {
			verification.FeedbackComment = &feedback
		}
		if err := s.db.WithContext(ctx).Create(&verification).Error; err != nil {
			return fmt.Errorf("failed to create verification: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up verification: %w", err)
	}

	updates := map[string]interface{}{
		"is_approved": approved,
		"verified_by": reviewerID,
		"verified_at": now,
		"updated_at":  now,
	}
	if feedback != "" {
		updates["feedback_comment"] = feedback
	} else {
		updates["feedback_comment"] = nil
	}
	if err := s.db.WithContext(ctx).Model(&models.DocumentVerification{}).
		Where("verification_id = ?", verification.VerificationID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update verification: %w", err)
	}
	return nil
}
