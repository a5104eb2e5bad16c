package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-ingredient-scanner/internal/capture"
	"go-ingredient-scanner/internal/classifier"
	apperrors "go-ingredient-scanner/internal/errors"
	"go-ingredient-scanner/internal/logger"
	"go-ingredient-scanner/internal/validator"
	"go-ingredient-scanner/internal/vision"
	"go-ingredient-scanner/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// minCredentialLength is the shortest credential considered structurally
// plausible. Real keys are far longer; anything shorter is a misconfiguration.
const minCredentialLength = 10

// placeholderCredentials are sentinel values that mean "not configured" even
// though the variable is technically set.
var placeholderCredentials = map[string]struct{}{
	"YOUR_API_KEY":        {},
	"PLACEHOLDER_API_KEY": {},
	"your-api-key-here":   {},
	"changeme":            {},
}

// Orchestrator performs exactly one outbound analysis call per capture,
// bounded by a deadline, and normalizes its outcome through the validator and
// the classifier. No automatic retry happens here: a failed analysis requires
// a new user-initiated capture.
type Orchestrator struct {
	service     vision.Service
	credentials vision.CredentialSource
	validate    *validator.Validator
	classify    *classifier.Classifier
	timeout     time.Duration
	locale      string
}

// New creates an orchestrator. The credential source is consulted fresh at
// the start of every Analyze call, never cached.
func New(service vision.Service, credentials vision.CredentialSource,
	v *validator.Validator, c *classifier.Classifier,
	timeout time.Duration, locale string) *Orchestrator {
	return &Orchestrator{
		service:     service,
		credentials: credentials,
		validate:    v,
		classify:    c,
		timeout:     timeout,
		locale:      locale,
	}
}

type serviceOutcome struct {
	text string
	err  error
}

// Analyze runs the single bounded analysis call for one captured frame. The
// request id ties logs and events of one run together; an empty id gets a
// fresh one.
//
// The service call races a deadline timer; whichever settles first wins. The
// losing call is abandoned, not cancelled: the transport may have no
// cancellation primitive, so a slow response that arrives after the deadline
// drains into the buffered channel and is never read.
func (o *Orchestrator) Analyze(ctx context.Context, requestID string, imageData []byte) (*models.AnalysisResult, *apperrors.AppError) {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	start := time.Now()

	// Precondition: a structurally plausible credential, read fresh so a
	// corrected configuration applies without restart. Short-circuits
	// before any network I/O.
	if err := o.checkCredential(); err != nil {
		logger.WithRequest(requestID).WithError(err).Error("Analysis rejected by credential precondition")
		return nil, o.classify.Classify(err)
	}

	req := vision.Request{
		ID:          requestID,
		ImageData:   imageData,
		MimeType:    capture.MimeType,
		Instruction: vision.Instruction(o.locale),
		Schema:      vision.ResponseSchema(),
	}

	outcome := make(chan serviceOutcome, 1)
	go func() {
		text, err := o.service.AnalyzeImage(ctx, req)
		outcome <- serviceOutcome{text: text, err: err}
	}()

	timer := time.NewTimer(o.timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		logger.WithRequest(requestID).WithFields(logrus.Fields{
			"timeout": o.timeout,
		}).Warn("Analysis deadline exceeded")
		return nil, o.classify.Classify(fmt.Errorf("analysis deadline exceeded after %s", o.timeout))

	case out := <-outcome:
		if out.err != nil {
			logger.WithRequest(requestID).WithError(out.err).Error("Analysis service call failed")
			return nil, o.classify.Classify(out.err)
		}

		result, appErr := o.validate.Validate(out.text)
		if appErr != nil {
			logger.WithRequest(requestID).WithError(appErr).Error("Analysis response rejected by validator")
			return nil, o.classify.Classify(appErr)
		}

		logger.WithRequest(requestID).WithFields(logrus.Fields{
			"ingredients": len(result.Ingredients),
			"recipes":     len(result.Recipes),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Analysis completed")
		return result, nil
	}
}

func (o *Orchestrator) checkCredential() error {
	key := strings.TrimSpace(o.credentials())
	if key == "" {
		return fmt.Errorf("api key credential is not configured")
	}
	if len(key) < minCredentialLength {
		return fmt.Errorf("api key credential is implausibly short")
	}
	if _, isPlaceholder := placeholderCredentials[key]; isPlaceholder {
		return fmt.Errorf("api key credential is a placeholder value")
	}
	return nil
}
