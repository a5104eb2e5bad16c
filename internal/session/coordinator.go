package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-ingredient-scanner/internal/capture"
	"go-ingredient-scanner/internal/observer"
	"go-ingredient-scanner/internal/orchestrator"
	"go-ingredient-scanner/pkg/models"

	"github.com/google/uuid"
)

// ErrAnalysisInFlight marks a rejected re-entrant capture: one full pipeline
// run must resolve before the next may begin.
var ErrAnalysisInFlight = errors.New("an analysis is already in flight")

// Coordinator is the composition root of one capture session: it drives the
// capture controller and the orchestrator, holds at most one of
// {AnalysisResult, ErrorReport} at a time, and publishes pipeline events for
// whatever presentation is attached. The busy flag here is the authoritative
// re-entrancy guard; the controller's state machine backs it up by refusing
// captures outside Streaming.
type Coordinator struct {
	controller *capture.Controller
	orch       *orchestrator.Orchestrator
	events     observer.Subject

	mu         sync.Mutex
	processing bool
	result     *models.AnalysisResult
	errReport  *models.ErrorReport
}

// NewCoordinator wires a coordinator from its collaborators.
func NewCoordinator(controller *capture.Controller, orch *orchestrator.Orchestrator, events observer.Subject) *Coordinator {
	return &Coordinator{
		controller: controller,
		orch:       orch,
		events:     events,
	}
}

// Start arms the capture controller. It is also the retry affordance for the
// controller's Error state.
func (s *Coordinator) Start(ctx context.Context) error {
	if err := s.controller.Start(ctx); err != nil {
		return err
	}
	s.events.NotifyObservers(ctx, observer.PipelineEvent{
		EventType: observer.SessionStarted,
		Timestamp: time.Now(),
	})
	return nil
}

// CaptureAndAnalyze freezes a frame from the live feed and runs the full
// pipeline on it. Capture refusals (not streaming, zero-dimension frame,
// device trouble) surface directly as errors on the camera channel; they do
// not produce an ErrorReport.
func (s *Coordinator) CaptureAndAnalyze(ctx context.Context) error {
	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		return ErrAnalysisInFlight
	}
	s.mu.Unlock()

	imageData, err := s.controller.Capture(ctx)
	if err != nil {
		return err
	}

	s.events.NotifyObservers(ctx, observer.PipelineEvent{
		EventType: observer.CaptureCompleted,
		Timestamp: time.Now(),
	})

	return s.HandleCapture(ctx, imageData)
}

// HandleCapture runs one full pipeline run on already-encoded image bytes:
// set busy, clear any prior error, analyze, store exactly one outcome, clear
// busy. The stored outcome is replaced wholesale; it is written exactly once
// per invocation, so a service response arriving after the deadline race was
// lost can never double-apply.
func (s *Coordinator) HandleCapture(ctx context.Context, imageData []byte) error {
	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		return ErrAnalysisInFlight
	}
	s.processing = true
	s.errReport = nil
	s.mu.Unlock()

	requestID := uuid.NewString()
	start := time.Now()
	s.events.NotifyObservers(ctx, observer.PipelineEvent{
		EventType: observer.AnalysisStarted,
		Timestamp: start,
		RequestID: requestID,
	})

	result, appErr := s.orch.Analyze(ctx, requestID, imageData)
	duration := time.Since(start)

	s.mu.Lock()
	if appErr != nil {
		s.result = nil
		s.errReport = appErr.Report()
	} else {
		s.result = result
		s.errReport = nil
	}
	s.processing = false
	s.mu.Unlock()

	if appErr != nil {
		s.events.NotifyObservers(ctx, observer.PipelineEvent{
			EventType: observer.AnalysisFailed,
			Timestamp: time.Now(),
			RequestID: requestID,
			Duration:  duration,
			ErrorKind: appErr.Kind,
		})
	} else {
		s.events.NotifyObservers(ctx, observer.PipelineEvent{
			EventType:       observer.AnalysisCompleted,
			Timestamp:       time.Now(),
			RequestID:       requestID,
			Duration:        duration,
			IngredientCount: len(result.Ingredients),
		})
	}
	return nil
}

// Reset clears both stored outcomes unconditionally and re-arms the capture
// controller.
func (s *Coordinator) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.result = nil
	s.errReport = nil
	s.mu.Unlock()

	s.events.NotifyObservers(ctx, observer.PipelineEvent{
		EventType: observer.SessionReset,
		Timestamp: time.Now(),
	})
	return s.Start(ctx)
}

// Snapshot returns the presentation boundary state.
func (s *Coordinator) Snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SessionSnapshot{
		CameraState:  string(s.controller.State()),
		IsProcessing: s.processing,
		Result:       s.result,
		Error:        s.errReport,
	}
}

// Close tears the session down, stopping any active device stream.
func (s *Coordinator) Close() {
	s.controller.Close()
}
