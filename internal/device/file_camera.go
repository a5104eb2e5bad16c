package device

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// FileCamera serves frames from a still image on disk. Useful for local
// development and for environments without a reachable camera endpoint.
type FileCamera struct {
	path string
}

// NewFileCamera creates a camera backed by the image at path.
func NewFileCamera(path string) *FileCamera {
	return &FileCamera{path: path}
}

// Acquire decodes the file once; the resulting stream replays the same frame
// on every call. Config is accepted but ignored, a file has one resolution.
func (c *FileCamera) Acquire(ctx context.Context, cfg Config) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable file %s: %v", ErrDeviceUnavailable, c.path, err)
	}
	return &fileStream{img: img}, nil
}

type fileStream struct {
	img     image.Image
	stopped bool
}

func (s *fileStream) Frame(ctx context.Context) (image.Image, error) {
	if s.stopped {
		return nil, ErrDeviceUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.img, nil
}

func (s *fileStream) Stop() {
	s.stopped = true
}
