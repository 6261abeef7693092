package routes

import (
	"ethics-submission-api/controllers"
	"ethics-submission-api/middleware"
	"ethics-submission-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/login", controllers.Login)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Ethics Submission API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// Auth management
			protected.POST("/refresh", controllers.RefreshToken)
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Submissions
			submissions := protected.Group("/submissions")
			{
				submissions.GET("", controllers.GetSubmissions)
				submissions.GET("/:id", controllers.GetSubmission)
				submissions.POST("", middleware.RequireRole(models.RoleResearcher), controllers.CreateSubmission)
				submissions.DELETE("/:id", middleware.RequireRole(models.RoleResearcher), controllers.DeleteSubmission)

				// Wizard step saves (researchers only)
				submissions.PUT("/:id/application-form", middleware.RequireRole(models.RoleResearcher), controllers.SaveApplicationForm)
				submissions.PUT("/:id/research-protocol", middleware.RequireRole(models.RoleResearcher), controllers.SaveResearchProtocol)
				submissions.PUT("/:id/consent-form", middleware.RequireRole(models.RoleResearcher), controllers.SaveConsentForm)
				submissions.PUT("/:id/endorsement-letter", middleware.RequireRole(models.RoleResearcher), controllers.SaveEndorsementLetter)

				// Ad-hoc regeneration of a generated document
				submissions.POST("/:id/documents/:type/regenerate", middleware.RequireRole(models.RoleResearcher), controllers.RegenerateDocument)

				// Documents
				submissions.GET("/:id/documents", controllers.GetSubmissionDocuments)

				// Reviewer surface
				submissions.GET("/:id/verifications", controllers.GetVerifications)
				submissions.PUT("/:id/verifications/:documentId", middleware.RequireRole(models.RoleReviewer), controllers.DecideVerification)
				submissions.GET("/:id/comments", controllers.GetComments)
				submissions.POST("/:id/comments", middleware.RequireRole(models.RoleReviewer), controllers.AddComment)
			}

			// Document download
			documents := protected.Group("/documents")
			{
				documents.GET("/download/:documentId", controllers.DownloadDocument)
			}

			// Notifications
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", controllers.GetNotifications)
				notifications.GET("/counter", controllers.GetNotificationCounter)
				notifications.PUT("/:id/read", controllers.MarkNotificationRead)
				notifications.PUT("/read-all", controllers.MarkAllNotificationsRead)
			}
		}
	}
}
