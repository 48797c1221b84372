package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/aiden-server/internal/api"
	"github.com/satriahrh/aiden-server/internal/config"
	"github.com/satriahrh/aiden-server/internal/providers"
	"github.com/satriahrh/aiden-server/internal/saga"
	"github.com/satriahrh/aiden-server/internal/saga/conversation"
	"github.com/satriahrh/aiden-server/internal/workspace"
)

func main() {
	// A missing .env is fine; the process environment still applies
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		newLogger(false).Fatal("Invalid configuration", zap.Error(err))
	}

	logger := newLogger(cfg.Debug)
	defer logger.Sync()

	if envErr != nil {
		logger.Debug("No .env file loaded", zap.Error(envErr))
	}
	if missing := config.LoadCredentials().Missing(cfg.Providers); len(missing) > 0 {
		// credentials are re-read per request, so this is only a heads-up
		logger.Warn("Credentials not set, requests will fail until they are", zap.Strings("missing", missing))
	}

	workspaces, err := workspace.NewManager(cfg.WorkDir, logger.Named("workspace"))
	if err != nil {
		logger.Fatal("Failed to prepare audio workspace", zap.Error(err))
	}

	factory := providers.NewFactory(cfg.Providers, &http.Client{}, logger.Named("providers"))

	sagaManager := saga.NewManager[conversation.Turn](logger.Named("saga"), cfg.RunHistorySize)
	conversationService := conversation.NewService(sagaManager, cfg.PipelineTimeout, logger.Named("conversation"))

	listenerCtx, stopListener := context.WithCancel(context.Background())
	defer stopListener()
	conversationService.StartEventListener(listenerCtx)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogMethod:   true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remoteIP", v.RemoteIP),
			}
			if v.Error != nil {
				logger.Error("Request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("Request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	handler := api.NewHandler(cfg.Providers, config.LoadCredentials, workspaces, factory, conversationService, logger.Named("api"))
	api.InitRoutes(e, handler)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("stt", cfg.Providers.STT),
		zap.String("llm", cfg.Providers.LLM),
		zap.String("tts", cfg.Providers.TTS))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(debug bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}
