package controllers

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"ethics-submission-api/config"
	"ethics-submission-api/models"
	"ethics-submission-api/services"
	"ethics-submission-api/utils"

	"github.com/gin-gonic/gin"
)

// newBlobStore builds the storage backend for a request.
func newBlobStore() services.BlobStore {
	return services.NewMinioStore(config.Storage, config.StorageBucket)
}

// requireOwnedSubmission loads the submission and enforces that the current
// researcher owns it (admins bypass). Returns the id, or 0 after an error
// response has been written.
func requireOwnedSubmission(c *gin.Context) int {
	submissionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission id"})
		return 0
	}

	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")

	var submission models.Submission
	query := config.DB.Where("submission_id = ? AND deleted_at IS NULL", submissionID)
	if roleID.(int) != models.RoleAdmin {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return 0
	}

	if !submission.IsEditable() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Submission is not editable in its current status"})
		return 0
	}

	return submissionID
}

// decodeBase64Field strips an optional data-URL prefix and decodes.
func decodeBase64Field(payload string) ([]byte, error) {
	if idx := strings.Index(payload, "base64,"); idx >= 0 {
		payload = payload[idx+len("base64,"):]
	}
	return base64.StdEncoding.DecodeString(payload)
}

func writeSaveResult(c *gin.Context, result services.SaveResult) {
	if !result.Success {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":   false,
			"error":     result.Error,
			"documents": result.Documents,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   result.Message,
		"status":    result.Status,
		"documents": result.Documents,
	})
}

// ===================== STEP 2: APPLICATION FORM =====================

type technicalReviewRequest struct {
	KeepExisting bool   `json:"keep_existing"`
	FileName     string `json:"file_name"`
	DataBase64   string `json:"data_base64"`
}

type applicationFormRequest struct {
	Title          string                    `json:"title" binding:"required"`
	CoAuthors      []string                  `json:"co_authors"`
	ResearcherName string                    `json:"researcher_name" binding:"required"`
	Institution    string                    `json:"institution" binding:"required"`
	PositionTitle  string                    `json:"position_title"`
	Adviser        string                    `json:"adviser"`
	CoResearchers  []string                  `json:"co_researchers"`
	FundingSource  string                    `json:"funding_source"`
	StudyType      string                    `json:"study_type"`
	StudySite      string                    `json:"study_site"`
	Address        string                    `json:"address"`
	Phone          string                    `json:"phone"`
	Email          string                    `json:"email"`
	StartDate      string                    `json:"start_date"`
	EndDate        string                    `json:"end_date"`
	Checklist      models.DocumentChecklist  `json:"document_checklist"`
	Technical      *technicalReviewRequest   `json:"technical_review"`
}

// SaveApplicationForm persists the step-2 wizard payload and regenerates
// the submission's documents.
func SaveApplicationForm(c *gin.Context) {
	submissionID := requireOwnedSubmission(c)
	if submissionID == 0 {
		return
	}
	userID, _ := c.Get("userID")

	var req applicationFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Email != "" && !utils.ValidateEmail(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact email"})
		return
	}

	// Decide the technical-review variant once, here at the boundary.
	review := services.TechnicalReviewInput{Kind: services.TechnicalReviewNone}
	if req.Technical != nil {
		switch {
		case req.Technical.DataBase64 != "":
			data, err := decodeBase64Field(req.Technical.DataBase64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid technical review file payload"})
				return
			}
			review = services.TechnicalReviewInput{
				Kind:     services.TechnicalReviewNew,
				FileName: req.Technical.FileName,
				Data:     data,
			}
		case req.Technical.KeepExisting:
			review = services.TechnicalReviewInput{Kind: services.TechnicalReviewKeep}
		}
	}

	input := services.ApplicationFormInput{
		Title:           req.Title,
		CoAuthors:       req.CoAuthors,
		ResearcherName:  req.ResearcherName,
		Institution:     req.Institution,
		PositionTitle:   req.PositionTitle,
		Adviser:         req.Adviser,
		CoResearchers:   req.CoResearchers,
		FundingSource:   req.FundingSource,
		StudyType:       req.StudyType,
		StudySite:       req.StudySite,
		Address:         req.Address,
		Phone:           req.Phone,
		Email:           req.Email,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Checklist:       req.Checklist,
		TechnicalReview: review,
	}

	service := services.NewApplicationFormService(config.DB, newBlobStore())
	result := service.Save(c.Request.Context(), userID.(int), submissionID, input)
	writeSaveResult(c, result)
}

// ===================== STEP 3: RESEARCH PROTOCOL =====================

type signatureRequest struct {
	FileBase64 string `json:"file_base64"`
	Base64     string `json:"base64"`
	Path       string `json:"path"`
	URL        string `json:"url"`
}

type researcherRequest struct {
	ID        string            `json:"id" binding:"required"`
	Name      string            `json:"name" binding:"required"`
	Signature *signatureRequest `json:"signature"`
}

type protocolRequest struct {
	Title       string              `json:"title" binding:"required"`
	Sections    map[string]string   `json:"sections" binding:"required"`
	Researchers []researcherRequest `json:"researchers" binding:"required,dive"`
}

// resolveSignatureInput classifies the signature payload into its tagged
// variant, in priority order: new file, inline base64, stored path, remote
// URL.
func resolveSignatureInput(req *signatureRequest) (services.SignatureInput, error) {
	if req == nil {
		return services.SignatureInput{Kind: services.SignatureNone}, nil
	}
	switch {
	case req.FileBase64 != "":
		data, err := decodeBase64Field(req.FileBase64)
		if err != nil {
			return services.SignatureInput{}, err
		}
		return services.SignatureInput{Kind: services.SignatureNewFile, Data: data}, nil
	case req.Base64 != "":
		return services.SignatureInput{Kind: services.SignatureBase64, Base64: req.Base64}, nil
	case req.Path != "" && !strings.HasPrefix(req.Path, "http://") && !strings.HasPrefix(req.Path, "https://"):
		return services.SignatureInput{Kind: services.SignatureStoredPath, Path: req.Path}, nil
	case req.URL != "" || req.Path != "":
		url := req.URL
		if url == "" {
			url = req.Path
		}
		return services.SignatureInput{Kind: services.SignatureRemoteURL, URL: url, Base64: req.Base64}, nil
	}
	return services.SignatureInput{Kind: services.SignatureNone}, nil
}

// SaveResearchProtocol persists the step-3 wizard payload: narrative
// sections, researcher signatures and the extracted inline images.
func SaveResearchProtocol(c *gin.Context) {
	submissionID := requireOwnedSubmission(c)
	if submissionID == 0 {
		return
	}
	userID, _ := c.Get("userID")

	var req protocolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	researchers := make([]services.ResearcherInput, 0, len(req.Researchers))
	for _, r := range req.Researchers {
		sig, err := resolveSignatureInput(r.Signature)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature payload for " + r.Name})
			return
		}
		researchers = append(researchers, services.ResearcherInput{
			ID:        r.ID,
			Name:      r.Name,
			Signature: sig,
		})
	}

	input := services.ProtocolInput{
		Title:       req.Title,
		Sections:    req.Sections,
		Researchers: researchers,
	}

	service := services.NewProtocolService(config.DB, newBlobStore())
	result := service.Save(c.Request.Context(), userID.(int), submissionID, input)
	writeSaveResult(c, result)
}

// ===================== STEP 4: CONSENT FORM =====================

type consentRequest struct {
	ConsentType   string                `json:"consent_type" binding:"required"`
	AdultConsent  models.ConsentSection `json:"adult_consent"`
	MinorAssent   models.ConsentSection `json:"minor_assent"`
	ContactPerson string                `json:"contact_person" binding:"required"`
	ContactNumber string                `json:"contact_number" binding:"required"`
	QuickRevision bool                  `json:"quick_revision"`
}

// SaveConsentForm persists the step-4 wizard payload.
func SaveConsentForm(c *gin.Context) {
	submissionID := requireOwnedSubmission(c)
	if submissionID == 0 {
		return
	}
	userID, _ := c.Get("userID")

	var req consentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.ConsentInput{
		ConsentType:   req.ConsentType,
		AdultConsent:  req.AdultConsent,
		MinorAssent:   req.MinorAssent,
		ContactPerson: req.ContactPerson,
		ContactNumber: req.ContactNumber,
		QuickRevision: req.QuickRevision,
	}

	service := services.NewConsentService(config.DB, newBlobStore())
	result := service.Save(c.Request.Context(), userID.(int), submissionID, input)
	writeSaveResult(c, result)
}

// ===================== STEP 7: ENDORSEMENT LETTER =====================

type endorsementLetterRequest struct {
	FileName   string `json:"file_name" binding:"required"`
	DataBase64 string `json:"data_base64" binding:"required"`
}

// SaveEndorsementLetter replaces the uploaded endorsement letter and bumps
// its revision counter.
func SaveEndorsementLetter(c *gin.Context) {
	submissionID := requireOwnedSubmission(c)
	if submissionID == 0 {
		return
	}
	userID, _ := c.Get("userID")

	var req endorsementLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := decodeBase64Field(req.DataBase64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid endorsement letter payload"})
		return
	}

	input := services.EndorsementLetterInput{
		FileName: req.FileName,
		Data:     data,
	}

	service := services.NewEndorsementService(config.DB, newBlobStore())
	result := service.Save(c.Request.Context(), userID.(int), submissionID, input)
	writeSaveResult(c, result)
}

// ===================== AD-HOC REGENERATION =====================

// RegenerateDocument re-renders one generated document type on demand.
func RegenerateDocument(c *gin.Context) {
	submissionID := requireOwnedSubmission(c)
	if submissionID == 0 {
		return
	}
	userID, _ := c.Get("userID")

	documentType := c.Param("type")
	switch documentType {
	case models.DocTypeApplicationForm, models.DocTypeResearchProtocol, models.DocTypeConsentForm:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Document type cannot be regenerated"})
		return
	}

	service := services.NewDocumentService(config.DB, newBlobStore())
	result := service.RegenerateWithTitle(c.Request.Context(), userID.(int), submissionID, documentType)
	if !result.Success {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": result.Error})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"document_id": result.DocumentID,
		"pdf_path":    result.PDFPath,
	})
}
