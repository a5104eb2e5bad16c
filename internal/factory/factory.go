package factory

import (
	"fmt"

	"go-ingredient-scanner/internal/config"
	"go-ingredient-scanner/internal/device"
	"go-ingredient-scanner/internal/vision"
)

// CameraFactory creates camera devices
type CameraFactory interface {
	CreateCamera(cfg *config.Config) (device.Camera, error)
}

// ServiceFactory creates vision analysis services
type ServiceFactory interface {
	CreateService(cfg *config.Config) (vision.Service, error)
}

// cameraFactory implements CameraFactory
type cameraFactory struct{}

// NewCameraFactory creates a new camera factory
func NewCameraFactory() CameraFactory {
	return &cameraFactory{}
}

// CreateCamera creates a camera based on the configured source
func (f *cameraFactory) CreateCamera(cfg *config.Config) (device.Camera, error) {
	switch cfg.CameraSource {
	case config.CameraSourceHTTP:
		return device.NewSnapshotCamera(cfg.CameraURL), nil
	case config.CameraSourceFile:
		return device.NewFileCamera(cfg.CameraFile), nil
	default:
		return nil, fmt.Errorf("unsupported camera source: %s", cfg.CameraSource)
	}
}

// serviceFactory implements ServiceFactory
type serviceFactory struct{}

// NewServiceFactory creates a new service factory
func NewServiceFactory() ServiceFactory {
	return &serviceFactory{}
}

// CreateService creates the vision analysis service client
func (f *serviceFactory) CreateService(cfg *config.Config) (vision.Service, error) {
	return vision.NewClient(vision.Options{
		Credentials: config.Credential,
		BaseURL:     cfg.GeminiBaseURL,
		Model:       cfg.GeminiModel,
	}), nil
}
