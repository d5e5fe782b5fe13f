package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"doctutor/internal/ai"
	appsvc "doctutor/internal/app"
	"doctutor/internal/bootstrap"
	"doctutor/internal/cache"
	"doctutor/internal/ingest"
	"doctutor/internal/quiz"
	"doctutor/internal/repository"
	"doctutor/internal/retrieval"
	"doctutor/internal/transport/http/handler"
	"doctutor/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	documentRepo := repository.NewDocumentRepository(app.MySQL)
	sessionRepo := repository.NewQuizSessionRepository(app.MySQL)
	questionRepo := repository.NewQuestionRepository(app.MySQL)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)

	retriever := retrieval.NewRetriever(app.Embedder, app.VectorIndex)
	publisher := ingest.NewPublisher(app.MQConn, app.Config.RabbitMQ.IngestQueue)
	documentService := appsvc.NewDocumentService(documentRepo, app.Blobs, publisher, retriever)

	primary := ai.ChatConfig{
		BaseURL: app.Config.LLM.BaseURL,
		APIKey:  app.Config.LLM.APIKey,
		Model:   app.Config.LLM.Model,
	}
	fallback := ai.ChatConfig{
		BaseURL: app.Config.LLM.FallbackBaseURL,
		APIKey:  app.Config.LLM.FallbackAPIKey,
		Model:   app.Config.LLM.FallbackModel,
	}
	generator := quiz.NewGenerator(retriever, app.AI, primary, fallback)
	evaluator := quiz.NewEvaluator(app.AI, primary, fallback)
	sessionCache := cache.NewSessionCache(app.Redis, time.Duration(app.Config.Redis.SessionTTLSeconds)*time.Second)
	sessionService := appsvc.NewSessionService(sessionRepo, questionRepo, documentRepo, generator, evaluator, sessionCache)

	authHandler := handler.NewAuthHandler(authService)
	documentHandler := handler.NewDocumentHandler(documentService)
	quizHandler := handler.NewQuizHandler(sessionService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	docGroup := v1.Group("/documents")
	docGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	docGroup.POST("/upload", documentHandler.Upload)
	docGroup.GET("", documentHandler.List)
	docGroup.GET("/:id", documentHandler.Get)
	docGroup.POST("/:id/search", documentHandler.Search)

	quizGroup := v1.Group("/quiz")
	quizGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	quizGroup.POST("/generate", quizHandler.Generate)
	quizGroup.POST("/sessions", quizHandler.CreateSession)
	quizGroup.GET("/sessions/:id", quizHandler.GetSession)
	quizGroup.GET("/sessions/:id/current", quizHandler.CurrentQuestion)
	quizGroup.POST("/sessions/:id/answer", quizHandler.SubmitAnswer)

	return router
}
