package observer

import (
	"context"
	"sync"
	"time"

	"go-ingredient-scanner/pkg/models"

	"github.com/sirupsen/logrus"
)

// PipelineEvent is one observable state change of the capture/analysis
// pipeline. Presentation layers subscribe to these instead of polling.
type PipelineEvent struct {
	EventType EventType     `json:"event_type"`
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`

	// ErrorKind is set for analysis_failed events.
	ErrorKind models.ErrorKind `json:"error_kind,omitempty"`

	// IngredientCount is set for analysis_completed events.
	IngredientCount int `json:"ingredient_count,omitempty"`
}

// EventType represents the type of pipeline event
type EventType string

const (
	// SessionStarted when the camera reaches the streaming state
	SessionStarted EventType = "session_started"
	// CaptureCompleted when a still frame has been frozen and encoded
	CaptureCompleted EventType = "capture_completed"
	// AnalysisStarted when the analysis request leaves for the service
	AnalysisStarted EventType = "analysis_started"
	// AnalysisCompleted when a validated result has been stored
	AnalysisCompleted EventType = "analysis_completed"
	// AnalysisFailed when the run terminated in an error report
	AnalysisFailed EventType = "analysis_failed"
	// SessionReset when both stored outcomes were cleared
	SessionReset EventType = "session_reset"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event PipelineEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event PipelineEvent)
}

// LoggingObserver logs pipeline events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{logger: logger}
}

// OnEvent handles pipeline events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.Duration > 0 {
		fields["duration_ms"] = event.Duration.Milliseconds()
	}
	if event.ErrorKind != "" {
		fields["error_kind"] = event.ErrorKind
	}

	switch event.EventType {
	case SessionStarted:
		o.logger.WithFields(fields).Info("Capture session streaming")
	case CaptureCompleted:
		o.logger.WithFields(fields).Info("Frame captured")
	case AnalysisStarted:
		o.logger.WithFields(fields).Debug("Analysis started")
	case AnalysisCompleted:
		o.logger.WithFields(fields).Info("Analysis completed")
	case AnalysisFailed:
		o.logger.WithFields(fields).Error("Analysis failed")
	case SessionReset:
		o.logger.WithFields(fields).Info("Session reset")
	default:
		o.logger.WithFields(fields).Info("Pipeline event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() Subject {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event
func (p *EventPublisher) NotifyObservers(ctx context.Context, event PipelineEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		go func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}
