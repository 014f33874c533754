package routes

import (
	"github.com/gin-gonic/gin"

	"helpdesk_backend/internal/handlers"
	"helpdesk_backend/internal/logger"
	"helpdesk_backend/internal/middleware"
	"helpdesk_backend/ws"
)

// RegisterRoutes регистрирует все HTTP и WebSocket маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	inboxHandler *handlers.InboxHandler,
	wsHandler *ws.Handler,
) {
	// Регистрация HTTP API v1
	api := ginRouter.Group("/api/v1")
	{
		inboxHandler.RegisterRoutes(api)
	}

	// Регистрация WebSocket
	wsGroup := ginRouter.Group("/ws")
	wsGroup.Use(middleware.AuthMiddleware(), middleware.RequireAdmin())
	{
		wsGroup.GET("", wsHandler.ServeWS)
	}
	logger.Info("WebSocket route /ws registered")
}
