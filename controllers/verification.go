package controllers

import (
	"log"
	"net/http"
	"strconv"

	"ethics-submission-api/config"
	"ethics-submission-api/models"
	"ethics-submission-api/services"
	"ethics-submission-api/utils"

	"github.com/gin-gonic/gin"
)

type verificationDecisionRequest struct {
	IsApproved *bool  `json:"is_approved" binding:"required"`
	Feedback   string `json:"feedback"`
}

// DecideVerification records a reviewer's approve/reject decision on one
// document and recomputes the submission status.
func DecideVerification(c *gin.Context) {
	submissionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission id"})
		return
	}
	documentID, err := strconv.Atoi(c.Param("documentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document id"})
		return
	}

	var req verificationDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var document models.UploadedDocument
	if err := config.DB.Where("document_id = ? AND submission_id = ?", documentID, submissionID).
		First(&document).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	userID, _ := c.Get("userID")
	reviewerID := userID.(int)

	verify := services.NewVerificationService(config.DB)
	if err := verify.Decide(c.Request.Context(), submissionID, documentID, reviewerID, *req.IsApproved, req.Feedback); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record decision"})
		return
	}

	status := services.NewStatusService(config.DB)
	newStatus, err := status.Recompute(c.Request.Context(), submissionID, reviewerID, services.RuleAllowApproved)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to recompute status"})
		return
	}

	notify := services.NewNotifyService(config.DB)
	if err := notify.NotifyDecision(c.Request.Context(), submissionID, document.DocumentType, *req.IsApproved, req.Feedback); err != nil {
		log.Printf("Failed to notify submission owner for submission %d: %v", submissionID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  newStatus,
	})
}

// GetVerifications lists every verification row for a submission.
func GetVerifications(c *gin.Context) {
	submissionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission id"})
		return
	}

	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")

	var submission models.Submission
	query := config.DB.Where("submission_id = ? AND deleted_at IS NULL", submissionID)
	if roleID.(int) == models.RoleResearcher {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	var verifications []models.DocumentVerification
	if err := config.DB.Where("submission_id = ?", submissionID).
		Preload("Document").
		Find(&verifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch verifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"verifications": verifications,
	})
}

type commentRequest struct {
	CommentText string `json:"comment_text" binding:"required"`
}

// AddComment records a reviewer comment on a submission.
func AddComment(c *gin.Context) {
	submissionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission id"})
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")

	comment := models.SubmissionComment{
		SubmissionID: submissionID,
		CommentText:  utils.SanitizeInput(req.CommentText),
		IsResolved:   false,
		CreatedBy:    userID.(int),
	}
	if err := config.DB.Create(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save comment"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"comment": comment,
	})
}

// GetComments lists a submission's comments, unresolved first.
func GetComments(c *gin.Context) {
	submissionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission id"})
		return
	}

	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")

	var submission models.Submission
	query := config.DB.Where("submission_id = ? AND deleted_at IS NULL", submissionID)
	if roleID.(int) == models.RoleResearcher {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	var comments []models.SubmissionComment
	if err := config.DB.Where("submission_id = ?", submissionID).
		Order("is_resolved ASC, created_at DESC").
		Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"comments": comments,
	})
}
