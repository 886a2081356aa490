package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/wahajws/amast-crm-sub001/api/handlers"
	"github.com/wahajws/amast-crm-sub001/api/middleware"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, s *services.Services, apiKey, appSource string) {
	if s == nil {
		panic("Services cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	apiHandlers := handlers.InitHandlers(s)

	r.GET("/health", handlers.HealthCheck)

	api := r.Group("/v1")
	api.Use(middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  middleware.APIKeyHeader,
		ValidAPIKey: apiKey,
	}))
	api.Use(middleware.UserIdMiddleware())
	api.Use(middleware.CustomContextMiddleware(appSource))
	api.Use(middleware.TracingMiddleware())
	{
		labels := api.Group("/labels")
		{
			labels.GET("", apiHandlers.Sync.ListLabels())
			labels.PUT("/syncing", apiHandlers.Sync.SetLabelSyncing())
		}

		sync := api.Group("/sync")
		{
			sync.POST("", apiHandlers.Sync.SyncAll())
			sync.POST("/label", apiHandlers.Sync.SyncLabel())
			sync.GET("/logs", apiHandlers.Sync.ListSyncLogs())
		}

		emails := api.Group("/emails")
		{
			emails.GET("/unlinked", apiHandlers.Emails.ListUnlinked())
			emails.PUT("/:id/read", apiHandlers.Emails.SetRead())
			emails.PUT("/:id/starred", apiHandlers.Emails.SetStarred())
			emails.PUT("/:id/link", apiHandlers.Emails.Link())
			emails.DELETE("/:id", apiHandlers.Emails.Delete())
		}

		api.GET("/attachments/:id", apiHandlers.Emails.DownloadAttachment())

		campaigns := api.Group("/campaigns")
		{
			campaigns.GET("/analytics", apiHandlers.Campaigns.Analytics())
			campaigns.GET("/urgent", apiHandlers.Campaigns.UrgentRecommendations())
			campaigns.POST("/upsert", apiHandlers.Campaigns.Upsert())
			campaigns.POST("/bulk/sent", apiHandlers.Campaigns.BulkMarkAsSent())
			campaigns.GET("/contacts/:contactId", apiHandlers.Campaigns.GetStatus())
			campaigns.POST("/contacts/:contactId/sent", apiHandlers.Campaigns.MarkAsSent())
			campaigns.PUT("/contacts/:contactId/communication", apiHandlers.Campaigns.ToggleCommunicationStarted())
			campaigns.PUT("/contacts/:contactId/template", apiHandlers.Campaigns.SaveOutreachTemplate())
		}

		api.GET("/accounts/email-counts", apiHandlers.Accounts.EmailCounts())
	}
}
