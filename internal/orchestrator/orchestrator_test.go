package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"go-ingredient-scanner/internal/classifier"
	"go-ingredient-scanner/internal/validator"
	"go-ingredient-scanner/internal/vision"
	"go-ingredient-scanner/pkg/models"
)

const validServiceResponse = `{"ingredients":[{"name":"番茄","info":"富含维生素C","caloriesPer100g":18}],"recipes":[]}`

// fakeService is a scriptable vision.Service that records its invocations.
type fakeService struct {
	calls    atomic.Int64
	response string
	err      error
	delay    time.Duration
	block    chan struct{} // when set, AnalyzeImage waits for it (or forever)
}

func (f *fakeService) AnalyzeImage(ctx context.Context, req vision.Request) (string, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.response, f.err
}

func newOrchestrator(service vision.Service, credential string, timeout time.Duration) *Orchestrator {
	return New(
		service,
		func() string { return credential },
		validator.New("zh-CN"),
		classifier.New("zh-CN"),
		timeout,
		"zh-CN",
	)
}

func TestAnalyze_Success(t *testing.T) {
	service := &fakeService{response: validServiceResponse}
	o := newOrchestrator(service, "real-looking-key-123456", time.Second)

	result, appErr := o.Analyze(context.Background(), "", []byte{0xFF, 0xD8})
	if appErr != nil {
		t.Fatalf("Analyze returned error: %v", appErr)
	}
	if len(result.Ingredients) != 1 || result.Ingredients[0].Name != "番茄" {
		t.Errorf("unexpected result: %+v", result)
	}
	if got := service.calls.Load(); got != 1 {
		t.Errorf("expected exactly one service call, got %d", got)
	}
}

func TestAnalyze_CredentialPrecondition(t *testing.T) {
	tests := []struct {
		name       string
		credential string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"too short", "abc"},
		{"placeholder sentinel", "YOUR_API_KEY"},
		{"dotenv placeholder", "PLACEHOLDER_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &fakeService{response: validServiceResponse}
			o := newOrchestrator(service, tt.credential, time.Second)

			start := time.Now()
			result, appErr := o.Analyze(context.Background(), "", []byte{0xFF})
			elapsed := time.Since(start)

			if appErr == nil {
				t.Fatalf("expected configuration error, got result %+v", result)
			}
			if appErr.Kind != models.KindConfiguration {
				t.Errorf("kind = %s, want %s", appErr.Kind, models.KindConfiguration)
			}
			if got := service.calls.Load(); got != 0 {
				t.Errorf("expected zero network calls, got %d", got)
			}
			if elapsed > 100*time.Millisecond {
				t.Errorf("precondition must short-circuit near-instantly, took %s", elapsed)
			}
		})
	}
}

func TestAnalyze_TimeoutAtDeadline(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	service := &fakeService{block: block, response: validServiceResponse}

	const deadline = 80 * time.Millisecond
	o := newOrchestrator(service, "real-looking-key-123456", deadline)

	start := time.Now()
	result, appErr := o.Analyze(context.Background(), "", []byte{0xFF})
	elapsed := time.Since(start)

	if appErr == nil {
		t.Fatalf("expected timeout error, got result %+v", result)
	}
	if appErr.Kind != models.KindTimeout {
		t.Errorf("kind = %s, want %s", appErr.Kind, models.KindTimeout)
	}
	if elapsed < deadline {
		t.Errorf("timed out early: %s < %s", elapsed, deadline)
	}
	if elapsed > deadline+500*time.Millisecond {
		t.Errorf("timeout fired far after the deadline: %s", elapsed)
	}
}

func TestAnalyze_LateResolutionIsAbandoned(t *testing.T) {
	service := &fakeService{delay: 150 * time.Millisecond, response: validServiceResponse}
	o := newOrchestrator(service, "real-looking-key-123456", 30*time.Millisecond)

	_, appErr := o.Analyze(context.Background(), "", []byte{0xFF})
	if appErr == nil || appErr.Kind != models.KindTimeout {
		t.Fatalf("expected timeout, got %v", appErr)
	}

	// The slow call eventually settles into its buffered channel and is
	// never read; nothing to assert beyond the goroutine not blocking,
	// which the race detector and test exit cover.
	time.Sleep(200 * time.Millisecond)

	if got := service.calls.Load(); got != 1 {
		t.Errorf("the abandoned call must not be retried, got %d calls", got)
	}
}

func TestAnalyze_ServiceFailureIsClassified(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind models.ErrorKind
	}{
		{
			name:     "credential rejection",
			err:      fmt.Errorf("analysis service status 400: API key not valid"),
			wantKind: models.KindConfiguration,
		},
		{
			name:     "transport failure",
			err:      fmt.Errorf("invoke analysis service: dial tcp: connection refused"),
			wantKind: models.KindNetwork,
		},
		{
			name:     "opaque service failure",
			err:      fmt.Errorf("internal model error"),
			wantKind: models.KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &fakeService{err: tt.err}
			o := newOrchestrator(service, "real-looking-key-123456", time.Second)

			_, appErr := o.Analyze(context.Background(), "", []byte{0xFF})
			if appErr == nil {
				t.Fatal("expected an error")
			}
			if appErr.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", appErr.Kind, tt.wantKind)
			}
		})
	}
}

func TestAnalyze_ValidatorFailureForwarded(t *testing.T) {
	service := &fakeService{response: "```json\n{\"ingredients\":[],\"recipes\":[]}\n```"}
	o := newOrchestrator(service, "real-looking-key-123456", time.Second)

	_, appErr := o.Analyze(context.Background(), "", []byte{0xFF})
	if appErr == nil {
		t.Fatal("expected a validation error")
	}
	if appErr.Kind != models.KindValidation {
		t.Errorf("kind = %s, want %s", appErr.Kind, models.KindValidation)
	}
}

func TestAnalyze_CredentialReadFreshPerCall(t *testing.T) {
	credential := ""
	service := &fakeService{response: validServiceResponse}
	o := New(
		service,
		func() string { return credential },
		validator.New("zh-CN"),
		classifier.New("zh-CN"),
		time.Second,
		"zh-CN",
	)

	if _, appErr := o.Analyze(context.Background(), "", []byte{0xFF}); appErr == nil || appErr.Kind != models.KindConfiguration {
		t.Fatalf("expected configuration error before the fix, got %v", appErr)
	}

	// Correcting the configuration takes effect on the very next call.
	credential = "real-looking-key-123456"
	if _, appErr := o.Analyze(context.Background(), "", []byte{0xFF}); appErr != nil {
		t.Fatalf("expected success after the fix, got %v", appErr)
	}
}
