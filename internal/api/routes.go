package api

import (
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/aiden-server/internal/config"
	"github.com/satriahrh/aiden-server/internal/providers"
	"github.com/satriahrh/aiden-server/internal/saga"
	"github.com/satriahrh/aiden-server/internal/saga/conversation"
	"github.com/satriahrh/aiden-server/internal/workspace"
)

const (
	serviceName      = "aiden-server"
	livenessMessage  = "Your server is running!"
	internalErrorMsg = "Internal server error"
	audioFormField   = "audio"
	audioContentType = "audio/mpeg"
)

// kindMessages are the client-facing messages per failure kind. Upstream
// detail stays in the logs and in /runs/:id.
var kindMessages = map[conversation.Kind]string{
	conversation.KindTranscriptionFailed: "Could not transcribe the recording",
	conversation.KindInferenceFailed:     "Could not generate a reply",
	conversation.KindSynthesisFailed:     "Could not synthesize the reply",
	conversation.KindTimeout:             "The request timed out",
}

// CredentialsLoader returns the upstream credentials for the current request
type CredentialsLoader func() config.Credentials

// Handler serves the voice pipeline endpoints
type Handler struct {
	providerCfg  config.Providers
	credentials  CredentialsLoader
	workspaces   *workspace.Manager
	builder      providers.Builder
	conversation *conversation.Service
	logger       *zap.Logger
}

// NewHandler creates a new handler. A nil loader reads the process environment.
func NewHandler(
	providerCfg config.Providers,
	credentials CredentialsLoader,
	workspaces *workspace.Manager,
	builder providers.Builder,
	conversationService *conversation.Service,
	logger *zap.Logger,
) *Handler {
	if credentials == nil {
		credentials = config.LoadCredentials
	}
	return &Handler{
		providerCfg:  providerCfg,
		credentials:  credentials,
		workspaces:   workspaces,
		builder:      builder,
		conversation: conversationService,
		logger:       logger,
	}
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, h *Handler) {
	e.GET("/", h.liveness)
	e.POST("/", h.processAudio)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:  "ok",
			Service: serviceName,
		})
	})

	e.GET("/runs/:id", h.getRun)
}

func (h *Handler) liveness(c echo.Context) error {
	return c.String(http.StatusOK, livenessMessage)
}

// processAudio runs one voice turn: the uploaded recording in, the spoken reply out
func (h *Handler) processAudio(c echo.Context) error {
	ctx := c.Request().Context()

	ws, err := h.workspaces.Acquire()
	if err != nil {
		h.logger.Error("Failed to acquire workspace", zap.Error(err))
		return internalError(c)
	}
	defer ws.Release()

	file, err := c.FormFile(audioFormField)
	if err != nil {
		h.logger.Warn("No audio file uploaded", zap.String("workspace", ws.ID), zap.Error(err))
		return internalError(c)
	}

	src, err := file.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded audio", zap.String("workspace", ws.ID), zap.Error(err))
		return internalError(c)
	}
	defer src.Close()

	inputPath, err := ws.SaveInput(audioFormField, src)
	if err != nil {
		h.logger.Error("Failed to save uploaded audio", zap.String("workspace", ws.ID), zap.Error(err))
		return internalError(c)
	}

	h.logger.Info("Audio received",
		zap.String("workspace", ws.ID),
		zap.String("filename", file.Filename),
		zap.String("size", humanize.Bytes(uint64(file.Size))))

	creds := h.credentials()
	if err := creds.Validate(h.providerCfg); err != nil {
		h.logger.Error("Credentials not configured", zap.String("workspace", ws.ID), zap.Error(err))
		return internalError(c)
	}

	set, err := h.builder.Build(ctx, creds)
	if err != nil {
		h.logger.Error("Failed to build providers", zap.String("workspace", ws.ID), zap.Error(err))
		return internalError(c)
	}

	result, err := h.conversation.Process(ctx, conversation.Request{
		Providers:  *set,
		InputPath:  inputPath,
		OutputPath: ws.OutputPath(),
	})
	if err != nil {
		var runID saga.SagaID
		if result != nil {
			runID = result.RunID
		}
		return h.pipelineError(c, runID, err)
	}

	c.Response().Header().Set(echo.HeaderContentType, audioContentType)
	return c.File(result.AudioPath)
}

func (h *Handler) pipelineError(c echo.Context, runID saga.SagaID, err error) error {
	kind, ok := conversation.KindOf(err)
	if !ok {
		h.logger.Error("Pipeline failed", zap.String("runID", string(runID)), zap.Error(err))
		return internalError(c)
	}

	status := http.StatusBadGateway
	if kind == conversation.KindTimeout {
		status = http.StatusGatewayTimeout
	}

	h.logger.Warn("Pipeline failed",
		zap.String("runID", string(runID)),
		zap.String("kind", string(kind)),
		zap.Error(err))

	return c.JSON(status, ErrorResponse{
		Error:   string(kind),
		Message: kindMessages[kind],
		RunID:   string(runID),
	})
}

func (h *Handler) getRun(c echo.Context) error {
	status, err := h.conversation.GetRunStatus(saga.SagaID(c.Param("id")))
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "run_not_found",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, status)
}

func internalError(c echo.Context) error {
	return c.String(http.StatusInternalServerError, internalErrorMsg)
}
