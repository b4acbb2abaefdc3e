// Package main runs the recordings backend HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/voxnote/backend/config"
	"github.com/voxnote/backend/internal/auth"
	"github.com/voxnote/backend/internal/middleware"
	"github.com/voxnote/backend/internal/recordings"
	"github.com/voxnote/backend/internal/transcription"
	"github.com/voxnote/backend/pkg/database"
	"github.com/voxnote/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	gladia := transcription.NewClient(cfg.Gladia.APIKey, cfg.Gladia.BaseURL)

	userRepo := auth.NewRepository(pool)
	userHandler := auth.NewHandler(userRepo, jwtService, logger)

	recordingRepo := recordings.NewRepository(pool)
	recordingHandler := recordings.NewHandler(recordingRepo, gladia, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	// Health and metrics
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Uploaded files are served publicly so the transcription provider can
	// fetch them: /uploads/recordings/<file> maps to <upload dir>/<file>.
	router.Static(cfg.Upload.PublicPath, filepath.Dir(cfg.Upload.Dir))

	authGate := middleware.Auth(jwtService, userRepo)

	user := router.Group("/api/user")
	{
		user.POST("/register", userHandler.Register)
		user.POST("/login", userHandler.Login)
		user.PUT("/editProfile", authGate, userHandler.EditProfile)
	}

	recording := router.Group("/api/recording")
	recording.Use(authGate)
	{
		recording.POST("/createRecording",
			recordings.Upload(cfg.Upload.Dir, cfg.Upload.MaxSizeMB, logger),
			recordingHandler.Create)
		recording.GET("/getAll", recordingHandler.GetAll)
		recording.GET("/getById/:id", recordingHandler.GetByID)
		recording.POST("/createTranscription/:id", recordingHandler.CreateTranscription)
		recording.GET("/getTranscriptionResult/:id", recordingHandler.GetTranscriptionResult)
		recording.DELETE("/deleteById/:id", recordingHandler.Delete)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
