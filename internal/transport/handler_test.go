package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-ingredient-scanner/internal/capture"
	"go-ingredient-scanner/internal/classifier"
	"go-ingredient-scanner/internal/config"
	"go-ingredient-scanner/internal/device"
	"go-ingredient-scanner/internal/observer"
	"go-ingredient-scanner/internal/orchestrator"
	"go-ingredient-scanner/internal/session"
	"go-ingredient-scanner/internal/validator"
	"go-ingredient-scanner/internal/vision"
	"go-ingredient-scanner/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type stubService struct {
	response string
	err      error
}

func (s *stubService) AnalyzeImage(ctx context.Context, req vision.Request) (string, error) {
	return s.response, s.err
}

type stubStream struct{}

func (stubStream) Frame(ctx context.Context) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 16, 16)), nil
}
func (stubStream) Stop() {}

type stubCamera struct{}

func (stubCamera) Acquire(ctx context.Context, cfg device.Config) (device.Stream, error) {
	return stubStream{}, nil
}

func testHandler(t *testing.T, service vision.Service, credential string) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{MaxRequestBodySize: 1 << 20}
	controller := capture.NewController(stubCamera{}, capture.DefaultEncoderOptions())
	orch := orchestrator.New(
		service,
		func() string { return credential },
		validator.New("zh-CN"),
		classifier.New("zh-CN"),
		time.Second,
		"zh-CN",
	)
	coordinator := session.NewCoordinator(controller, orch, observer.NewEventPublisher())
	t.Cleanup(coordinator.Close)
	return NewHandler(coordinator, cfg, prometheus.NewRegistry())
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encoding payload: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

const sampleResult = `{"ingredients":[{"name":"番茄","info":"富含维生素C","caloriesPer100g":18}],"recipes":[]}`

func TestHealthEndpoint(t *testing.T) {
	handler := testHandler(t, &stubService{response: sampleResult}, "real-looking-key-123456")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "available" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["camera_state"] != string(capture.StateIdle) {
		t.Errorf("camera_state = %v, want %s", body["camera_state"], capture.StateIdle)
	}
}

func TestAnalyzeUpload_Success(t *testing.T) {
	handler := testHandler(t, &stubService{response: sampleResult}, "real-looking-key-123456")

	w := postJSON(t, handler, "/session/analyze", map[string]string{
		"image_b64": base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8}),
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var snapshot models.SessionSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if snapshot.Result == nil || len(snapshot.Result.Ingredients) != 1 {
		t.Fatalf("snapshot result: %+v", snapshot.Result)
	}
	if snapshot.Result.Ingredients[0].Name != "番茄" {
		t.Errorf("ingredient name = %q", snapshot.Result.Ingredients[0].Name)
	}
}

func TestAnalyzeUpload_CompletedFailureIsStill200(t *testing.T) {
	handler := testHandler(t, &stubService{response: "not json"}, "real-looking-key-123456")

	w := postJSON(t, handler, "/session/analyze", map[string]string{
		"image_b64": base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8}),
	})

	// The run completed; its outcome happens to be an ErrorReport. That is
	// session state, not a transport failure.
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var snapshot models.SessionSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if snapshot.Error == nil || snapshot.Error.Kind != models.KindParse {
		t.Errorf("snapshot error: %+v", snapshot.Error)
	}
}

func TestAnalyzeUpload_BadRequests(t *testing.T) {
	handler := testHandler(t, &stubService{response: sampleResult}, "real-looking-key-123456")

	tests := []struct {
		name    string
		payload any
	}{
		{"missing field", map[string]string{}},
		{"invalid base64", map[string]string{"image_b64": "%%%not-base64%%%"}},
		{"empty image", map[string]string{"image_b64": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := postJSON(t, handler, "/session/analyze", tt.payload); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestCaptureWithoutStreamIsConflict(t *testing.T) {
	handler := testHandler(t, &stubService{response: sampleResult}, "real-looking-key-123456")

	if w := postJSON(t, handler, "/session/capture", nil); w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestStartCaptureResetFlow(t *testing.T) {
	handler := testHandler(t, &stubService{response: sampleResult}, "real-looking-key-123456")

	if w := postJSON(t, handler, "/session/start", nil); w.Code != http.StatusOK {
		t.Fatalf("start: status = %d, body = %s", w.Code, w.Body.String())
	}

	w := postJSON(t, handler, "/session/capture", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("capture: status = %d, body = %s", w.Code, w.Body.String())
	}
	var snapshot models.SessionSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if snapshot.Result == nil {
		t.Fatal("expected a stored result after capture")
	}

	w = postJSON(t, handler, "/session/reset", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset: status = %d", w.Code)
	}
	snapshot = models.SessionSnapshot{}
	if err := json.Unmarshal(w.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if snapshot.Result != nil || snapshot.Error != nil {
		t.Errorf("reset must clear outcomes: %+v / %+v", snapshot.Result, snapshot.Error)
	}
	if snapshot.CameraState != string(capture.StateStreaming) {
		t.Errorf("camera state = %s, want %s", snapshot.CameraState, capture.StateStreaming)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := testHandler(t, &stubService{response: sampleResult}, "real-looking-key-123456")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRequestBodySizeLimit(t *testing.T) {
	handler := testHandler(t, &stubService{response: sampleResult}, "real-looking-key-123456")

	oversized := map[string]string{
		"image_b64": base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0xAB}, 2<<20)),
	}
	if w := postJSON(t, handler, "/session/analyze", oversized); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for an oversized body", w.Code)
	}
}
