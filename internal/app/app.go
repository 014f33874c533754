package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"

	"helpdesk_backend/database"
	"helpdesk_backend/internal/config"
	"helpdesk_backend/internal/email"
	"helpdesk_backend/internal/handlers"
	"helpdesk_backend/internal/logger"
	"helpdesk_backend/internal/middleware"
	"helpdesk_backend/internal/realtime"
	"helpdesk_backend/internal/repositories"
	"helpdesk_backend/internal/routes"
	"helpdesk_backend/internal/services"
	"helpdesk_backend/internal/validator"
	"helpdesk_backend/ws"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := database.ConnectGorm()
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.AutoMigrate(); err != nil {
		logger.Fatal("Migration failed", "error", err)
	}

	// Пул pgx живет отдельно от GORM: LISTEN требует выделенного
	// соединения, которым GORM не управляет
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("Failed to create pgx pool", "error", err)
	}
	defer pool.Close()

	listener := realtime.NewListener(pool, cfg.Realtime.Channel)
	go listener.Run(ctx)
	defer listener.Stop()

	ginRouter := SetupRouter(cfg, gormDB, listener)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info(fmt.Sprintf("🚀 Server starting on %s", address))
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

func SetupRouter(cfg *config.Config, gormDB *gorm.DB, feed realtime.Feed) *gin.Engine {
	// 1. Репозитории
	profileRepo := repositories.NewProfileRepository(gormDB)
	convRepo := repositories.NewConversationRepository(gormDB)
	msgRepo := repositories.NewMessageRepository(gormDB)

	// 2. Сессии операторов
	inboxes := services.NewInboxManager(profileRepo, convRepo, msgRepo, feed, cfg.Inbox.PreviewLength)

	// 3. Почтовые уведомления по пропущенным сообщениям
	notifier := email.NewNotifier(email.NewSender(cfg), inboxes, convRepo, profileRepo)
	notifier.Start(feed)

	// 4. WebSocket
	wsManager := ws.NewManager()
	go wsManager.Run()
	wsHandler := ws.NewHandler(wsManager, inboxes)

	// 5. Хэндлеры
	inboxHandler := handlers.NewInboxHandler(inboxes, validator.New())

	// 6. Gin
	ginRouter := initializeGinRouter()
	routes.RegisterRoutes(ginRouter, inboxHandler, wsHandler)

	return ginRouter
}

func initializeGinRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	return router
}
