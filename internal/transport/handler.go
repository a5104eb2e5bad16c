package transport

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"go-ingredient-scanner/internal/capture"
	"go-ingredient-scanner/internal/config"
	apperrors "go-ingredient-scanner/internal/errors"
	"go-ingredient-scanner/internal/logger"
	"go-ingredient-scanner/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// AnalyzeRequest carries client-supplied image bytes for the device-less
// analysis path.
type AnalyzeRequest struct {
	ImageB64 string `json:"image_b64" binding:"required"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// NewHandler builds the HTTP presentation surface over the session
// coordinator. The handler renders whatever state the core exposes; all
// pipeline semantics live below it.
func NewHandler(coordinator *session.Coordinator, cfg *config.Config, gatherer prometheus.Gatherer) http.Handler {
	r := gin.Default()

	r.Use(requestSizeLimiter(cfg.MaxRequestBodySize))

	r.GET("/health", healthCheck(coordinator))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	r.GET("/session", getSession(coordinator))
	r.POST("/session/start", startSession(coordinator))
	r.POST("/session/capture", captureAndAnalyze(coordinator))
	r.POST("/session/analyze", analyzeUpload(coordinator))
	r.POST("/session/reset", resetSession(coordinator))

	return r
}

func healthCheck(coordinator *session.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot := coordinator.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"status":       "available",
			"version":      "1.0.0",
			"camera_state": snapshot.CameraState,
			"time":         time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func getSession(coordinator *session.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, coordinator.Snapshot())
	}
}

func startSession(coordinator *session.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := coordinator.Start(c.Request.Context()); err != nil {
			// Device-level failure: the controller sits in its Error
			// state with a retry affordance; report it on this channel
			// rather than as a pipeline ErrorReport.
			logger.WithError(err).Error("Camera start failed")
			respondError(c, http.StatusServiceUnavailable, "camera unavailable", err)
			return
		}
		c.JSON(http.StatusOK, coordinator.Snapshot())
	}
}

func captureAndAnalyze(coordinator *session.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := coordinator.CaptureAndAnalyze(c.Request.Context())
		switch {
		case err == nil:
			c.JSON(http.StatusOK, coordinator.Snapshot())
		case errors.Is(err, session.ErrAnalysisInFlight),
			errors.Is(err, capture.ErrNotStreaming),
			errors.Is(err, capture.ErrEmptyFrame):
			respondError(c, http.StatusConflict, "capture refused", err)
		default:
			respondError(c, http.StatusServiceUnavailable, "capture failed", err)
		}
	}
}

func analyzeUpload(coordinator *session.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		imageData, err := base64.StdEncoding.DecodeString(req.ImageB64)
		if err != nil || len(imageData) == 0 {
			respondError(c, http.StatusBadRequest, "invalid image payload", err)
			return
		}

		if err := coordinator.HandleCapture(c.Request.Context(), imageData); err != nil {
			respondError(c, http.StatusConflict, "analysis refused", err)
			return
		}

		// A stored ErrorReport is a completed pipeline run, not a
		// transport failure; the snapshot carries it either way.
		c.JSON(http.StatusOK, coordinator.Snapshot())
	}
}

func resetSession(coordinator *session.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := coordinator.Reset(c.Request.Context()); err != nil {
			respondError(c, http.StatusServiceUnavailable, "camera unavailable after reset", err)
			return
		}
		c.JSON(http.StatusOK, coordinator.Snapshot())
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	if appErr, ok := err.(*apperrors.AppError); ok {
		code = appErr.StatusCode
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
	})
}
