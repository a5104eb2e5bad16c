package container

import (
	"fmt"
	"net/http"

	"go-ingredient-scanner/internal/capture"
	"go-ingredient-scanner/internal/classifier"
	"go-ingredient-scanner/internal/config"
	"go-ingredient-scanner/internal/factory"
	"go-ingredient-scanner/internal/logger"
	"go-ingredient-scanner/internal/observer"
	"go-ingredient-scanner/internal/orchestrator"
	"go-ingredient-scanner/internal/session"
	"go-ingredient-scanner/internal/transport"
	"go-ingredient-scanner/internal/validator"

	"github.com/prometheus/client_golang/prometheus"
)

// Container holds all application dependencies
type Container struct {
	config      *Configs
	coordinator *session.Coordinator
	handler     http.Handler
}

// Configs bundles the loaded configuration for callers that need it back.
type Configs struct {
	App *config.Config
}

// NewContainer builds the full dependency graph: device → controller →
// service client → orchestrator → coordinator → handler.
func NewContainer(cfg *config.Config) (*Container, error) {
	camera, err := factory.NewCameraFactory().CreateCamera(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create camera: %w", err)
	}

	service, err := factory.NewServiceFactory().CreateService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis service: %w", err)
	}

	controller := capture.NewController(camera, capture.EncoderOptions{
		Quality: cfg.CaptureQuality,
		MaxEdge: cfg.CaptureMaxEdge,
	})

	classify := classifier.New(cfg.Locale)
	validate := validator.New(cfg.Locale)
	orch := orchestrator.New(service, config.Credential, validate, classify, cfg.AnalysisTimeout, cfg.Locale)

	registry := prometheus.NewRegistry()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(observer.NewMetricsObserver(registry))

	coordinator := session.NewCoordinator(controller, orch, events)
	handler := transport.NewHandler(coordinator, cfg, registry)

	return &Container{
		config:      &Configs{App: cfg},
		coordinator: coordinator,
		handler:     handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Coordinator returns the session coordinator
func (c *Container) Coordinator() *session.Coordinator {
	return c.coordinator
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config.App
}
