package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mvhoang/Solvio/config"
	"github.com/mvhoang/Solvio/database"
	_ "github.com/mvhoang/Solvio/docs" // Swagger docs - auto-generated
	"github.com/mvhoang/Solvio/internal/controller"
	"github.com/mvhoang/Solvio/internal/logger"
	"github.com/mvhoang/Solvio/internal/middleware"
	"github.com/mvhoang/Solvio/internal/model"
	"github.com/mvhoang/Solvio/internal/repository"
	"github.com/mvhoang/Solvio/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Solvio API
// @version 1.0
// @description Backend for the Solvio photo-math tutor: AI solutions, step-by-step walkthroughs with answer grading, problem history and study guides.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()

	app := fx.New(
		// Core Application Components
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
		),

		// Repositories Layer
		fx.Provide(
			repository.NewUserRepository,
			repository.NewQuestionRepository,
			repository.NewStudyGuideRepository,
		),

		// Services Layer
		fx.Provide(
			service.NewStepParserService,
			service.NewGeminiLLMService,
			service.NewStorageService,
			service.NewAuthService,
			func(gemini service.GeminiLLMService) service.AnswerGraderService {
				return service.NewAnswerGraderService(gemini)
			},
			service.NewQuestionService,
			func(
				guideRepo repository.StudyGuideRepository,
				questionRepo repository.QuestionRepository,
				gemini service.GeminiLLMService,
			) service.StudyGuideService {
				return service.NewStudyGuideService(guideRepo, questionRepo, gemini)
			},
		),

		// API Controllers Layer
		fx.Provide(
			controller.NewAuthController,
			controller.NewQuestionController,
			controller.NewStudyGuideController,
		),

		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(AutoMigrateDB),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine() *gin.Engine {
	r := gin.New()

	// Route gin's request log through zerolog.
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Be more specific in production
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Swagger UI at /swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	authService service.AuthService,
	authCtrl *controller.AuthController,
	questionCtrl *controller.QuestionController,
	guideCtrl *controller.StudyGuideController,
) {
	api := router.Group("/api/v1")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authCtrl.Register)
		authGroup.POST("/login", authCtrl.Login)
	}

	protected := api.Group("")
	protected.Use(middleware.RequireAuth(authService))
	{
		questions := protected.Group("/questions")
		questions.POST("", questionCtrl.CreateQuestion)
		questions.GET("", questionCtrl.ListQuestions)
		questions.GET("/:question_id", questionCtrl.GetQuestion)
		questions.DELETE("/:question_id", questionCtrl.DeleteQuestion)
		questions.GET("/:question_id/steps", questionCtrl.GetSteps)
		questions.PATCH("/:question_id/progress", questionCtrl.UpdateProgress)
		questions.PUT("/:question_id/tags", questionCtrl.UpdateTags)

		protected.POST("/grade", questionCtrl.GradeAnswer)

		guides := protected.Group("/study-guides")
		guides.POST("", guideCtrl.GenerateStudyGuide)
		guides.GET("", guideCtrl.ListStudyGuides)
		guides.GET("/:guide_id", guideCtrl.GetStudyGuide)
		guides.PATCH("/:guide_id", guideCtrl.RenameStudyGuide)
		guides.DELETE("/:guide_id", guideCtrl.DeleteStudyGuide)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Solvio API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.User{},
		&model.Question{},
		&model.StudyGuide{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
