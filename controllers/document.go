package controllers

import (
	"net/http"
	"strconv"

	"ethics-submission-api/config"
	"ethics-submission-api/models"
	"ethics-submission-api/services"

	"github.com/gin-gonic/gin"
)

// GetSubmissionDocuments lists every stored document for a submission,
// generated PDFs and uploads alike.
func GetSubmissionDocuments(c *gin.Context) {
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

	var documents []models.UploadedDocument
	if err := config.DB.Where("submission_id = ?", submissionID).
		Order("uploaded_at DESC").Find(&documents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch documents"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"documents": documents,
	})
}

// DownloadDocument redirects to a short-lived signed URL for the document's
// stored file.
func DownloadDocument(c *gin.Context) {
	documentID, err := strconv.Atoi(c.Param("documentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document id"})
		return
	}

	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")

	service := services.NewDocumentService(config.DB, newBlobStore())
	url, document, err := service.DownloadURL(c.Request.Context(), documentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	if roleID.(int) == models.RoleResearcher {
		var submission models.Submission
		if err := config.DB.Where("submission_id = ? AND user_id = ?", document.SubmissionID, userID).
			First(&submission).Error; err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
	}

	c.Redirect(http.StatusFound, url)
}
