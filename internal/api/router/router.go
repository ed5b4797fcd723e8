package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/talentbase/candidate-gateway/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "candidate-gateway",
		})
	})

	webhookHandler := handler.NewWebhookHandler(deps)
	candidateHandler := handler.NewCandidateHandler(deps)

	// Correlation subsystem: dispatch, status report, poll read
	r.POST("/webhook", webhookHandler.Dispatch)
	r.POST("/webhook/callback", webhookHandler.Callback)
	r.GET("/webhook/status", webhookHandler.Status)

	// Candidate CRUD proxy
	api := r.Group("/api")
	{
		candidates := api.Group("/candidates")
		{
			candidates.GET("", candidateHandler.List)
			candidates.POST("", candidateHandler.Create)
			candidates.PUT("/:id", candidateHandler.Update)
			candidates.DELETE("/:id", candidateHandler.Delete)
		}
	}

	return r
}
