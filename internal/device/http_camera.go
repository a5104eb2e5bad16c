package device

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// SnapshotCamera adapts an IP-camera style HTTP snapshot endpoint to the
// Camera interface: each Frame call fetches and decodes one still image.
// Resolution preferences are passed as query hints; cameras that ignore them
// still work, the controller only cares that frames have non-zero dimensions.
type SnapshotCamera struct {
	endpoint string
	client   *http.Client
}

// NewSnapshotCamera creates a camera backed by the given snapshot URL.
func NewSnapshotCamera(endpoint string) *SnapshotCamera {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &SnapshotCamera{
		endpoint: endpoint,
		client: &http.Client{
			Transport: transport,
			Timeout:   15 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

// Acquire validates the endpoint, enforces the secure-context rule and probes
// for a first frame. The readiness signal of the device contract is exactly
// that probe: Acquire does not return until one decodable frame has arrived.
func (c *SnapshotCamera) Acquire(ctx context.Context, cfg Config) (Stream, error) {
	target, err := c.frameURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	if err := requireSecureContext(target); err != nil {
		return nil, err
	}

	stream := &snapshotStream{camera: c, frameURL: target}
	if _, err := stream.Frame(ctx); err != nil {
		return nil, err
	}
	return stream, nil
}

func (c *SnapshotCamera) frameURL(cfg Config) (*url.URL, error) {
	target, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, err
	}
	if target.Host == "" {
		return nil, fmt.Errorf("snapshot URL must have a host")
	}

	q := target.Query()
	if cfg.Width > 0 {
		q.Set("width", strconv.Itoa(cfg.Width))
	}
	if cfg.Height > 0 {
		q.Set("height", strconv.Itoa(cfg.Height))
	}
	if cfg.FacingMode != "" {
		q.Set("facing", cfg.FacingMode)
	}
	target.RawQuery = q.Encode()
	return target, nil
}

// requireSecureContext mirrors the platform rule for camera access: plain
// HTTP is only acceptable on loopback.
func requireSecureContext(target *url.URL) error {
	if target.Scheme == "https" {
		return nil
	}
	host := target.Hostname()
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("%w: %s endpoints must use https", ErrInsecureContext, target.Scheme)
}

type snapshotStream struct {
	camera   *SnapshotCamera
	frameURL *url.URL
	stopped  bool
}

// Frame fetches and decodes one snapshot. Transient server errors are
// retried twice; client errors are not.
func (s *snapshotStream) Frame(ctx context.Context) (image.Image, error) {
	if s.stopped {
		return nil, ErrDeviceUnavailable
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		img, retryable, err := s.fetchOnce(ctx)
		if err == nil {
			return img, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

func (s *snapshotStream) fetchOnce(ctx context.Context) (image.Image, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.frameURL.String(), nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "image/jpeg, image/png, */*")

	resp, err := s.camera.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, fmt.Errorf("%w: status %d", ErrPermissionDenied, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%w: status %d", ErrDeviceUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("%w: status %d", ErrDeviceUnavailable, resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("%w: undecodable frame: %v", ErrDeviceUnavailable, err)
	}
	return img, false, nil
}

func (s *snapshotStream) Stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	s.camera.client.CloseIdleConnections()
}
