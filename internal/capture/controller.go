package capture

import (
	"context"
	"errors"
	"sync"

	"go-ingredient-scanner/internal/device"
	"go-ingredient-scanner/internal/logger"

	"github.com/sirupsen/logrus"
)

// State is the camera lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateStarting  State = "starting"
	StateStreaming State = "streaming"
	StateCaptured  State = "captured"
	StateError     State = "error"
)

var (
	// ErrNotStreaming marks the guarded no-op: a capture was requested
	// while no live frame feed was available.
	ErrNotStreaming = errors.New("capture requires a live stream")

	// ErrEmptyFrame marks a frame source reporting zero dimensions.
	ErrEmptyFrame = errors.New("frame source reported zero dimensions")
)

// Controller owns the camera device lifecycle and the state machine governing
// when a frame may be captured. At most one non-idle session exists at a
// time; the stream is exclusively owned here and released on every exit from
// Streaming/Captured and on Close.
//
// Device-level failures terminate in the controller's own Error state and are
// surfaced directly with a retry affordance (Start again); they do not travel
// through the analysis error classifier.
type Controller struct {
	mu      sync.Mutex
	camera  device.Camera
	encoder EncoderOptions

	state     State
	stream    device.Stream
	deviceErr error
}

// NewController creates an idle controller for the given camera.
func NewController(camera device.Camera, encoder EncoderOptions) *Controller {
	return &Controller{
		camera:  camera,
		encoder: encoder,
		state:   StateIdle,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DeviceError returns the device failure that drove the controller into the
// Error state, or nil.
func (c *Controller) DeviceError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deviceErr
}

// Start drives Idle/Captured/Error → Starting → Streaming. The preferred
// configuration (rear-facing sensor, target resolution) is tried first; if
// the device refuses it, a minimal "any camera" configuration is attempted
// before failing outright. Start while already Streaming is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateStreaming {
		return nil
	}

	c.releaseLocked()
	c.state = StateStarting
	c.deviceErr = nil

	stream, err := c.camera.Acquire(ctx, device.PreferredConfig())
	if err != nil {
		logger.WithError(err).Debug("Preferred camera configuration refused, falling back")
		stream, err = c.camera.Acquire(ctx, device.FallbackConfig())
	}
	if err != nil {
		c.state = StateError
		c.deviceErr = err
		logger.WithError(err).Error("Camera acquisition failed")
		return err
	}

	c.stream = stream
	c.state = StateStreaming
	logger.WithFields(logrus.Fields{"state": c.state}).Info("Camera streaming")
	return nil
}

// Capture freezes one frame from the live feed, re-encodes it per the capture
// policy and releases the device stream. It is a guarded no-op that returns
// no image when the controller is not Streaming (which also covers a capture
// already in flight, since a successful capture leaves Streaming
// synchronously) or when the frame source reports zero dimensions.
func (c *Controller) Capture(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateStreaming {
		return nil, ErrNotStreaming
	}

	frame, err := c.stream.Frame(ctx)
	if err != nil {
		// The feed stays live; the caller may retry the capture.
		logger.WithError(err).Warn("Frame rasterization failed")
		return nil, err
	}

	bounds := frame.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, ErrEmptyFrame
	}

	encoded, err := EncodeFrame(frame, c.encoder)
	if err != nil {
		return nil, err
	}

	// Conserve the device: the stream is released as soon as the still
	// frame exists. A new Start re-acquires it.
	c.releaseLocked()
	c.state = StateCaptured

	logger.WithFields(logrus.Fields{
		"bytes":  len(encoded),
		"width":  bounds.Dx(),
		"height": bounds.Dy(),
	}).Info("Frame captured")
	return encoded, nil
}

// Close stops any active device stream unconditionally, from any state.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
	c.state = StateIdle
	c.deviceErr = nil
}

func (c *Controller) releaseLocked() {
	if c.stream != nil {
		c.stream.Stop()
		c.stream = nil
	}
}
