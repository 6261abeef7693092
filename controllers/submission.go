package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ethics-submission-api/config"
	"ethics-submission-api/models"
	"ethics-submission-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ===================== SUBMISSION MANAGEMENT =====================

// GetSubmissions returns user's submissions
func GetSubmissions(c *gin.Context) {
	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")

	status := c.Query("status")

	var submissions []models.Submission
	query := config.DB.Preload("User").
		Preload("Documents").
		Preload("Verifications").
		Where("deleted_at IS NULL")

	// Researchers only see their own submissions
	if roleID.(int) == models.RoleResearcher {
		query = query.Where("user_id = ?", userID)
	}

	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch submissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"submissions": submissions,
		"total":       len(submissions),
	})
}

// GetSubmission returns a specific submission with its wizard state
func GetSubmission(c *gin.Context) {
	submissionID := c.Param("id")
	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")

	var submission models.Submission
	query := config.DB.Preload("User").
		Preload("Documents").
		Preload("Verifications").
		Preload("Comments")

	if roleID.(int) == models.RoleResearcher {
		query = query.Where("user_id = ?", userID)
	}

	if err := query.Where("submission_id = ? AND deleted_at IS NULL", submissionID).First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	// Load the step records; absence just means the wizard step was not
	// reached yet.
	var form models.ApplicationForm
	var protocol models.ResearchProtocol
	var consent models.ConsentForm
	var applicationForm, researchProtocol, consentForm interface{}
	if err := config.DB.Where("submission_id = ?", submission.SubmissionID).First(&form).Error; err == nil {
		applicationForm = form
	}
	if err := config.DB.Where("submission_id = ?", submission.SubmissionID).First(&protocol).Error; err == nil {
		researchProtocol = protocol
	}
	if err := config.DB.Where("submission_id = ?", submission.SubmissionID).First(&consent).Error; err == nil {
		consentForm = consent
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"submission":        submission,
		"application_form":  applicationForm,
		"research_protocol": researchProtocol,
		"consent_form":      consentForm,
	})
}

// CreateSubmission creates a new submission
func CreateSubmission(c *gin.Context) {
	userID, _ := c.Get("userID")

	type CreateSubmissionRequest struct {
		Title string `json:"title" binding:"required"`
	}

	var req CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	submission := models.Submission{
		SubmissionNumber: generateSubmissionNumber(),
		UserID:           userID.(int),
		Title:            utils.SanitizeInput(req.Title),
		Status:           models.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := config.DB.Create(&submission).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create submission"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    "Submission created successfully",
		"submission": submission,
	})
}

// DeleteSubmission soft deletes a submission (only while still editable)
func DeleteSubmission(c *gin.Context) {
	submissionID := c.Param("id")
	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")

	var submission models.Submission
	query := config.DB.Where("submission_id = ? AND deleted_at IS NULL", submissionID)

	if roleID.(int) != models.RoleAdmin {
		query = query.Where("user_id = ?", userID)
	}

	if err := query.First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	if !submission.IsEditable() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete a decided submission"})
		return
	}

	now := time.Now()
	submission.DeletedAt = &now

	if err := config.DB.Save(&submission).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete submission"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Submission deleted successfully",
	})
}

// generateSubmissionNumber builds a readable unique submission number.
func generateSubmissionNumber() string {
	year := time.Now().Year()

	var count int64
	if err := config.DB.Model(&models.Submission{}).
		Where("submission_number LIKE ?", fmt.Sprintf("ER-%d-%%", year)).
		Count(&count).Error; err != nil {
		// Fall back to a random suffix rather than failing the create.
		return fmt.Sprintf("ER-%d-%s", year, uuid.NewString()[:8])
	}

	return fmt.Sprintf("ER-%d-%s", year, padNumber(int(count)+1, 4))
}

func padNumber(n, width int) string {
	s := strconv.Itoa(n)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
