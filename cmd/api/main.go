package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace-chat/config"
	"marketplace-chat/internal/handler"
	"marketplace-chat/internal/middleware"
	"marketplace-chat/internal/redis"
	"marketplace-chat/internal/relay"
	"marketplace-chat/internal/repository"
	"marketplace-chat/internal/services"
	"marketplace-chat/internal/websocket"
	"marketplace-chat/pkg/database"
	"marketplace-chat/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == "production" {
		mode = logger.ProductionMode
		gin.SetMode(gin.ReleaseMode)
	}
	l := logger.New(mode)
	defer l.Logger.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	redisClient := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	presence := redis.NewPresenceStore(redisClient, 5*time.Minute)

	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	authService := services.NewAuthService(userRepo, cfg)
	messageService := services.NewMessageService(messageRepo, userRepo)

	chatRelay := relay.NewChatRelay(messageService, presence, l)

	authHandler := handler.NewAuthHandler(authService)
	messageHandler := handler.NewMessageHandler(messageService)
	presenceHandler := handler.NewPresenceHandler(presence)
	wsHandler := websocket.NewHandler(authService, chatRelay, l)

	r := gin.Default()
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		authed := api.Group("")
		authed.Use(middleware.AuthMiddleware(authService))
		{
			authed.POST("/messages", messageHandler.Create)
			authed.GET("/messages/user/me", messageHandler.MyMessages)
			authed.GET("/messages/chat/:userId", messageHandler.ChatHistory)
			authed.GET("/messages/:id", messageHandler.GetByID)
			authed.PUT("/messages/:id", messageHandler.Update)
			authed.DELETE("/messages/:id", messageHandler.Delete)

			authed.GET("/presence/online", presenceHandler.Online)
			authed.GET("/presence/:userId", presenceHandler.User)
		}
	}

	r.GET("/ws", wsHandler.Connect)

	log.Printf("Starting server on port %s", cfg.AppPort)
	if err := r.Run(fmt.Sprintf(":%s", cfg.AppPort)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
