package http

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"facevoice-chat/internal/ai"
	appsvc "facevoice-chat/internal/app"
	"facevoice-chat/internal/bootstrap"
	rabbitmqClient "facevoice-chat/internal/platform/rabbitmq"
	"facevoice-chat/internal/repository"
	"facevoice-chat/internal/store"
	"facevoice-chat/internal/transport/http/handler"
	"facevoice-chat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	gateway := ai.NewClient(ai.Config{
		BaseURL:      app.Config.LLM.BaseURL,
		APIKey:       app.Config.LLM.APIKey,
		DefaultModel: app.Config.LLM.DefaultModel,
		Timeout:      time.Duration(app.Config.LLM.TimeoutSeconds) * time.Second,
	})

	chatStore := store.NewRedisStore(app.Redis, app.Config.App.Name)
	chatService := appsvc.NewChatService(gateway, chatStore, app.Config.LLM.DefaultModel)
	if err := chatService.LoadState(context.Background()); err != nil {
		log.Printf("restore chat state failed: %v", err)
	}

	userRepo := repository.NewUserRepository(app.MySQL)
	groupRepo := repository.NewGroupChatRepository(app.MySQL)
	toolRepo := repository.NewToolRepository(app.MySQL)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	groupService := appsvc.NewGroupChatService(groupRepo, chatStore, app.Config.Chat.ShareBaseURL)
	feedPublisher := rabbitmqClient.NewInteractionPublisher(app.MQConn, app.Config.RabbitMQ.InteractionQueue)
	feedService := appsvc.NewFeedService(toolRepo, feedPublisher)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)
	completionHandler := handler.NewCompletionHandler(gateway)
	groupHandler := handler.NewGroupChatHandler(groupService)
	feedHandler := handler.NewFeedHandler(feedService)

	// External contracts the site front-end depends on; raw shapes, no
	// envelope, no auth.
	router.POST("/api/chat", completionHandler.Complete)
	router.POST("/api/chat/group", groupHandler.Create)
	router.GET("/api/chat/group", groupHandler.Resolve)

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	chatGroup.POST("/sessions", chatHandler.CreateSession)
	chatGroup.GET("/sessions", chatHandler.ListSessions)
	chatGroup.GET("/sessions/:id", chatHandler.GetSession)
	chatGroup.POST("/sessions/:id/select", chatHandler.SelectSession)
	chatGroup.DELETE("/sessions/:id", chatHandler.DeleteSession)
	chatGroup.POST("/messages", chatHandler.SendMessage)
	chatGroup.POST("/model", chatHandler.SelectModel)
	chatGroup.GET("/projects", chatHandler.ListProjects)
	chatGroup.POST("/projects", chatHandler.CreateProject)
	chatGroup.DELETE("/projects/:id", chatHandler.DeleteProject)
	chatGroup.POST("/projects/:id/chats", chatHandler.AddSessionToProject)

	toolsGroup := v1.Group("/tools")
	toolsGroup.GET("", feedHandler.ListTools)
	toolsGroup.GET("/:id/comments", feedHandler.ListComments)
	toolsGroup.POST("/:id/like", middleware.AuthJWT(app.Config.Auth.JWTSecret), feedHandler.Like)
	toolsGroup.POST("/:id/share", middleware.AuthJWT(app.Config.Auth.JWTSecret), feedHandler.Share)
	toolsGroup.POST("/:id/comment", middleware.AuthJWT(app.Config.Auth.JWTSecret), feedHandler.Comment)

	return router
}
