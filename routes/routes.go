package routes

import (
	"net/http"

	"coalition-api/controllers"
	"coalition-api/middleware"
	"coalition-api/models"
	"coalition-api/monitor"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, ctl *controllers.Controller, auth *middleware.Authenticator, mon *monitor.Monitor) {
	api := router.Group("/api")

	adminOnly := middleware.RequireRole(models.RoleAdmin)

	// Public routes
	public := api.Group("")
	{
		public.GET("/health", mon.Health)

		public.POST("/auth/register", ctl.Register)
		public.POST("/auth/login", ctl.Login)

		public.GET("/page-content/:page", ctl.GetPageContent)

		public.GET("/events/public", ctl.ListPublicEvents)
		public.GET("/events/public/:id", ctl.GetPublicEvent)
		public.POST("/events/public/:id/rsvp", ctl.PublicRSVP)
	}

	// Protected routes (require an ACTIVE organization)
	protected := api.Group("")
	protected.Use(auth.RequireAuth())
	{
		protected.GET("/auth/me", ctl.Me)
		protected.PUT("/auth/password", ctl.ChangePassword)

		protected.GET("/live", ctl.LiveFeed)

		organizations := protected.Group("/organizations")
		{
			organizations.GET("", adminOnly, ctl.ListOrganizations)
			organizations.GET("/tags", ctl.ListOrganizationTags)
			organizations.GET("/:id", ctl.GetOrganization)
			organizations.PUT("/:id", ctl.UpdateOrganization)
			organizations.POST("/:id/approve", adminOnly, ctl.ApproveOrganization)
			organizations.POST("/:id/status", adminOnly, ctl.SetOrganizationStatus)
		}

		alerts := protected.Group("/alerts")
		{
			alerts.GET("", ctl.ListAlerts)
			alerts.GET("/:id", ctl.GetAlert)
			alerts.POST("", adminOnly, ctl.CreateAlert)
			alerts.PUT("/:id", adminOnly, ctl.UpdateAlert)
			alerts.DELETE("/:id", adminOnly, ctl.DeleteAlert)
			alerts.POST("/:id/publish", adminOnly, ctl.PublishAlert)
			alerts.GET("/:id/summary", adminOnly, ctl.AlertSummary)
		}

		announcements := protected.Group("/announcements")
		{
			announcements.GET("", ctl.ListAnnouncements)
			announcements.GET("/:id", ctl.GetAnnouncement)
			announcements.POST("", adminOnly, ctl.CreateAnnouncement)
			announcements.PUT("/:id", adminOnly, ctl.UpdateAnnouncement)
			announcements.DELETE("/:id", adminOnly, ctl.DeleteAnnouncement)
			announcements.POST("/:id/publish", adminOnly, ctl.PublishAnnouncement)
			announcements.POST("/:id/unpublish", adminOnly, ctl.UnpublishAnnouncement)
		}

		events := protected.Group("/events")
		{
			events.GET("", ctl.ListEvents)
			events.GET("/:id", ctl.GetEvent)
			events.POST("", adminOnly, ctl.CreateEvent)
			events.PUT("/:id", adminOnly, ctl.UpdateEvent)
			events.DELETE("/:id", adminOnly, ctl.DeleteEvent)
			events.POST("/:id/publish", adminOnly, ctl.PublishEvent)
			events.POST("/:id/unpublish", adminOnly, ctl.UnpublishEvent)
			events.POST("/:id/cancel", adminOnly, ctl.CancelEvent)

			events.POST("/:id/rsvp", ctl.RSVPEvent)
			events.DELETE("/:id/rsvp", ctl.CancelRSVP)
			events.GET("/:id/rsvps", adminOnly, ctl.ListEventRSVPs)
		}

		surveys := protected.Group("/surveys")
		{
			surveys.GET("", ctl.ListSurveys)
			surveys.GET("/:id", ctl.GetSurvey)
			surveys.POST("", adminOnly, ctl.CreateSurvey)
			surveys.PUT("/:id", adminOnly, ctl.UpdateSurvey)
			surveys.DELETE("/:id", adminOnly, ctl.DeleteSurvey)
			surveys.POST("/:id/publish", adminOnly, ctl.PublishSurvey)
			surveys.POST("/:id/close", adminOnly, ctl.CloseSurvey)
			surveys.GET("/:id/summary", adminOnly, ctl.SurveySummary)
		}

		alertResponses := protected.Group("/alert-responses")
		{
			alertResponses.POST("", ctl.SubmitAlertResponse)
			alertResponses.GET("", adminOnly, ctl.ListAlertResponses)
			alertResponses.GET("/mine", ctl.MyAlertResponses)
		}

		surveyResponses := protected.Group("/survey-responses")
		{
			surveyResponses.POST("", ctl.SubmitSurveyResponse)
			surveyResponses.GET("", adminOnly, ctl.ListSurveyResponses)
			surveyResponses.GET("/mine", ctl.MySurveyResponses)
		}

		// Admin only
		admin := protected.Group("")
		admin.Use(adminOnly)
		{
			admin.POST("/page-content", ctl.CreatePageContent)
			admin.PUT("/page-content/bulk", ctl.BulkUpdatePageContent)
			admin.PUT("/page-content/items/:id", ctl.UpdatePageContent)
			admin.DELETE("/page-content/items/:id", ctl.DeletePageContent)

			admin.POST("/emails/recipients", ctl.ResolveRecipients)
			admin.POST("/emails/send", ctl.SendEmail)
			admin.GET("/emails/history", ctl.ListEmailHistory)
			admin.GET("/emails/history/:id", ctl.GetEmailHistory)
			admin.DELETE("/emails/history/:id", ctl.DeleteEmailHistory)

			admin.GET("/dashboard/stats", ctl.GetDashboardStats)

			admin.GET("/admin/monitor", mon.StatusHandler)
			admin.GET("/admin/logs", mon.Logs)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})
}
