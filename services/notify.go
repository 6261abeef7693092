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

// NotifyService writes in-app notifications and sends best-effort emails
// when a reviewer decision lands on a submission.
type NotifyService struct {
	db *gorm.DB
}

func NewNotifyService(db *gorm.DB) *NotifyService {
	if db == nil {
		db = config.DB
	}
	return &NotifyService{db: db}
}

// NotifyDecision tells the submission owner about a reviewer decision on
// one of their documents. Email failure is logged, never fatal.
func (s *NotifyService) NotifyDecision(ctx context.Context, submissionID int, documentType string, approved bool, feedback string) error {
	var submission models.Submission
	if err := s.db.WithContext(ctx).
		Where("submission_id = ? AND deleted_at IS NULL", submissionID).
		First(&submission).Error; err != nil {
		return fmt.Errorf("failed to load submission: %w", err)
	}

	verdict := "approved"
	notifType := "success"
	if !approved {
		verdict = "returned for revision"
		notifType = "warning"
	}

	title := fmt.Sprintf("Document %s", verdict)
	message := fmt.Sprintf("Your %s for submission %s was %s.", documentType, submission.SubmissionNumber, verdict)
	if feedback != "" {
		message += " Reviewer feedback: " + feedback
	}

	notification := models.Notification{
		UserID:              submission.UserID,
		Title:               title,
		Message:             message,
		Type:                notifType,
		RelatedSubmissionID: &submissionID,
		CreateAt:            time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	var owner models.User
	if err := s.db.WithContext(ctx).
		Select("user_id", "email", "user_fname", "user_lname", "prefix").
		Where("user_id = ?", submission.UserID).
		First(&owner).Error; err != nil {
		log.Printf("notify decision: owner lookup failed for submission %d: %v", submissionID, err)
		return nil
	}

	html := fmt.Sprintf("<p>Dear %s,</p><p>%s</p><p>Submission: %s</p>", owner.FullName(), message, submission.Title)
	if err := config.SendMail([]string{owner.Email}, title, html); err != nil {
		log.Printf("notify decision: email to %s failed: %v", owner.Email, err)
	}
	return nil
}
