package api

import (
	"net/http"
	"time"

	"flight-tracker-chat/backend/chat/service"
	"flight-tracker-chat/backend/pkg/config"

	"github.com/gin-gonic/gin"
)

// LiveFeedHandler serves the websocket live feed; implemented by the
// subscription gateway.
type LiveFeedHandler interface {
	Serve(c *gin.Context)
}

// RegisterRoutes registers the chat API routes
func RegisterRoutes(engine *gin.Engine, handler *ChatHandler, liveFeed LiveFeedHandler, sessions *service.SessionService, cfg *config.Config) {
	engine.Use(SessionMiddleware(sessions, cfg.Session.CookieName))

	v1 := engine.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
				"env":    cfg.Server.Env,
				"time":   time.Now().Format(time.RFC3339),
			})
		})

		v1.POST("/session", handler.BootstrapSession)

		chats := v1.Group("/chats")
		chats.Use(RequireSession())
		{
			chats.GET("/:chat_id/messages", handler.GetHistory)
			chats.POST("/:chat_id/messages", handler.PostMessage)
		}
	}

	// Live feed; its session policy is enforced by the chat service.
	engine.GET("/ws", liveFeed.Serve)
}
