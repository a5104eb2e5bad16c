package device

import (
	"context"
	"errors"
	"image"
)

// Config is the acquisition preference handed to a camera. The zero value
// means "any camera, any resolution" and is the fallback when the preferred
// configuration is refused.
type Config struct {
	// FacingMode selects the sensor: "environment" for the rear-facing
	// camera, "user" for the front-facing one, empty for no preference.
	FacingMode string
	Width      int
	Height     int
}

// PreferredConfig is the first acquisition attempt: rear-facing sensor at the
// target capture resolution.
func PreferredConfig() Config {
	return Config{FacingMode: "environment", Width: 1280, Height: 720}
}

// FallbackConfig requests any available camera.
func FallbackConfig() Config {
	return Config{}
}

// Stream is a live frame feed. It is exclusively owned by whoever acquired
// it and must be released with Stop on every exit from a streaming state.
type Stream interface {
	// Frame rasterizes the current frame. Implementations must return an
	// error rather than a zero-dimension image when no frame is available.
	Frame(ctx context.Context) (image.Image, error)

	// Stop releases the underlying device. Safe to call more than once.
	Stop()
}

// Camera is the platform capability at its interface boundary: it can be
// asked for a live stream with a preferred configuration, or refuse.
type Camera interface {
	Acquire(ctx context.Context, cfg Config) (Stream, error)
}

var (
	// ErrPermissionDenied indicates camera access was refused
	ErrPermissionDenied = errors.New("camera permission denied")

	// ErrDeviceUnavailable indicates no usable camera was found
	ErrDeviceUnavailable = errors.New("camera device unavailable")

	// ErrInsecureContext indicates the execution context lacks the security
	// properties required for camera access
	ErrInsecureContext = errors.New("camera requires a secure context")
)
