package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// CameraSource selects the camera implementation.
type CameraSource string

const (
	CameraSourceHTTP CameraSource = "http"
	CameraSourceFile CameraSource = "file"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64

	// Analysis service
	GeminiBaseURL   string
	GeminiModel     string
	AnalysisTimeout time.Duration
	Locale          string

	// Capture policy
	CaptureQuality float64
	CaptureMaxEdge int

	// Camera device
	CameraSource CameraSource
	CameraURL    string
	CameraFile   string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// Credential reads the analysis-service credential from the process
// environment. Deliberately not a struct field: the orchestrator consults it
// fresh on every analyze call, so a corrected deployment takes effect on the
// next capture without a restart.
func Credential() string {
	return os.Getenv("GEMINI_API_KEY")
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB

		GeminiBaseURL:   getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:     getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		AnalysisTimeout: parseDurationOrDefault("ANALYSIS_TIMEOUT", 40*time.Second),
		Locale:          getEnvOrDefault("LOCALE", "zh-CN"),

		CaptureQuality: parseFloatOrDefault("CAPTURE_QUALITY", 0.75),
		CaptureMaxEdge: int(parseIntOrDefault("CAPTURE_MAX_EDGE", 1280)),

		CameraSource: CameraSource(getEnvOrDefault("CAMERA_SOURCE", string(CameraSourceHTTP))),
		CameraURL:    getEnvOrDefault("CAMERA_URL", "http://127.0.0.1:8081/snapshot"),
		CameraFile:   os.Getenv("CAMERA_FILE"),
	}

	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout <= 0 || cfg.AnalysisTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, analysis=%s)",
			cfg.RequestTimeout, cfg.AnalysisTimeout)
	}
	if cfg.CaptureQuality <= 0 || cfg.CaptureQuality > 1 {
		return nil, fmt.Errorf("CAPTURE_QUALITY must be in (0, 1] (got %g)", cfg.CaptureQuality)
	}
	if cfg.CaptureMaxEdge <= 0 {
		return nil, fmt.Errorf("CAPTURE_MAX_EDGE must be > 0 (got %d)", cfg.CaptureMaxEdge)
	}
	switch cfg.CameraSource {
	case CameraSourceHTTP, CameraSourceFile:
	default:
		return nil, fmt.Errorf("invalid CAMERA_SOURCE: %q", cfg.CameraSource)
	}
	if cfg.CameraSource == CameraSourceFile && strings.TrimSpace(cfg.CameraFile) == "" {
		return nil, fmt.Errorf("CAMERA_FILE is required when CAMERA_SOURCE=file")
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
