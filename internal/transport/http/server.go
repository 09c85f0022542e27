package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "dairydesk/internal/app"
	"dairydesk/internal/bootstrap"
	"dairydesk/internal/cache"
	"dairydesk/internal/chat"
	"dairydesk/internal/platform/rabbitmq"
	"dairydesk/internal/repository"
	"dairydesk/internal/transport/http/handler"
	"dairydesk/internal/transport/http/middleware"
	"dairydesk/internal/tts"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	customerRepo := repository.NewCustomerRepository(app.MySQL)
	milkRepo := repository.NewMilkRepository(app.MySQL)
	paymentRepo := repository.NewPaymentRepository(app.MySQL)

	customerCache := cache.NewCustomerCache(
		app.Redis,
		time.Duration(app.Config.Redis.CustomerTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.CustomerDirtyTTLSeconds)*time.Second,
	)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireHour)*time.Hour,
	)
	farmService := appsvc.NewFarmService(
		customerRepo,
		milkRepo,
		paymentRepo,
		customerCache,
		app.Logger.With("component", "farm"),
	)

	sessions := chat.NewSessionStore(app.Config.Chat.MaxTurns)
	pipelineOpts := []chat.PipelineOption{
		chat.WithModelTimeout(time.Duration(app.Config.Gemini.TimeoutSeconds) * time.Second),
		chat.WithTranscripts(rabbitmq.NewTranscriptPublisher(app.MQConn, app.Config.RabbitMQ.TranscriptPersistQueue)),
	}
	if app.Config.Chat.VoiceEnabled {
		pipelineOpts = append(pipelineOpts, chat.WithVoice(tts.NewSynthesizer(app.Config.App.StaticDir)))
	}
	pipeline := chat.NewPipeline(
		sessions,
		app.Index,
		app.AI,
		app.Logger.With("component", "chat"),
		pipelineOpts...,
	)

	authHandler := handler.NewAuthHandler(authService)
	farmHandler := handler.NewFarmHandler(farmService)
	chatHandler := handler.NewChatHandler(pipeline, app.AI, app.Config.App.StaticDir)

	authGroup := router.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/profile", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Profile)

	// The mobile client talks to the chatbot without an account.
	chatGroup := router.Group("/chat")
	chatGroup.POST("/chatbot", chatHandler.Chatbot)
	chatGroup.GET("/voice/:filename", chatHandler.Voice)
	chatGroup.GET("/test", chatHandler.Test)
	chatGroup.GET("/models", chatHandler.Models)
	chatGroup.POST("/speech-to-text", chatHandler.SpeechToText)

	protected := router.Group("/")
	protected.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret), middleware.RequireAdmin())
	protected.POST("/customers", farmHandler.AddCustomer)
	protected.GET("/customers", farmHandler.ListCustomers)
	protected.PUT("/customers/:id", farmHandler.UpdateCustomer)
	protected.DELETE("/customers/:id", farmHandler.DeleteCustomer)
	protected.POST("/milk", farmHandler.AddMilkRecord)
	protected.GET("/milk", farmHandler.ListMilkRecords)
	protected.PUT("/milk/:id", farmHandler.UpdateMilkRecord)
	protected.DELETE("/milk/:id", farmHandler.DeleteMilkRecord)
	protected.POST("/payments", farmHandler.AddPayment)
	protected.GET("/payments", farmHandler.ListPayments)
	protected.PUT("/payments/:id", farmHandler.UpdatePayment)
	protected.DELETE("/payments/:id", farmHandler.DeletePayment)

	return router
}
