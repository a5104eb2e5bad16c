package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"strings"

	apperrors "go-ingredient-scanner/internal/errors"
	"go-ingredient-scanner/pkg/models"
)

// Classifier collapses heterogeneous failures (raw service errors, JSON
// errors, transport failures, deadline hits) into the closed ErrorKind set
// with a stable, localized user message. Classification is an ordered rule
// table evaluated top to bottom; the first matching rule wins. Classify never
// panics and never propagates: anything unrecognized degrades to unknown.
type Classifier struct {
	locale string
}

// New creates a classifier emitting messages for the given user locale.
func New(locale string) *Classifier {
	return &Classifier{locale: locale}
}

// Classify maps any raised failure to an AppError. Errors that are already
// AppErrors (e.g. from the validator or the credential precondition) pass
// through unchanged so classification stays idempotent.
func (c *Classifier) Classify(err error) *apperrors.AppError {
	if err == nil {
		return apperrors.NewUnknownError(c.message(models.KindUnknown), nil)
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	msg := strings.ToLower(err.Error())

	switch {
	case c.isConfiguration(msg):
		return apperrors.NewConfigurationError(c.message(models.KindConfiguration), err)
	case c.isTimeout(err, msg):
		// Checked ahead of the generic network rule so a timed-out
		// transport error keeps its more specific kind.
		return apperrors.NewTimeoutError(c.message(models.KindTimeout), err)
	case c.isNetwork(err, msg):
		return apperrors.NewNetworkError(c.message(models.KindNetwork), err)
	case c.isParse(err, msg):
		return apperrors.NewParseError(c.message(models.KindParse), err)
	case c.isValidation(msg):
		return apperrors.NewValidationError(c.message(models.KindValidation), err)
	default:
		return apperrors.NewUnknownError(c.message(models.KindUnknown), err)
	}
}

// Report is a convenience for callers that only need the terminal artifact.
func (c *Classifier) Report(err error) *models.ErrorReport {
	return c.Classify(err).Report()
}

func (c *Classifier) isConfiguration(msg string) bool {
	patterns := []string{
		"api key",
		"api_key",
		"credential",
		"unauthorized",
		"permission denied",
		"forbidden",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func (c *Classifier) isTimeout(err error, msg string) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout")
}

func (c *Classifier) isNetwork(err error, msg string) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	patterns := []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"failed to fetch",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func (c *Classifier) isParse(err error, msg string) bool {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return true
	}
	patterns := []string{
		"unexpected token",
		"invalid character",
		"unexpected end of json",
		"invalid json",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func (c *Classifier) isValidation(msg string) bool {
	return strings.Contains(msg, "no ingredients")
}

func (c *Classifier) message(kind models.ErrorKind) string {
	table := messagesEN
	if strings.HasPrefix(strings.ToLower(c.locale), "zh") {
		table = messagesZH
	}
	if m, ok := table[kind]; ok {
		return m
	}
	return table[models.KindUnknown]
}

var messagesZH = map[models.ErrorKind]string{
	models.KindConfiguration: "服务配置异常，请联系管理员检查部署设置",
	models.KindNetwork:       "网络连接异常，请检查网络后重试",
	models.KindParse:         "服务返回了意外的格式，请重试",
	models.KindValidation:    "未能识别出食材，请调整取景和光线后重新拍摄",
	models.KindTimeout:       "网络较慢，分析超时，请稍后重试",
	models.KindUnknown:       "系统繁忙，请稍后重试",
}

var messagesEN = map[models.ErrorKind]string{
	models.KindConfiguration: "The service is misconfigured. Please contact the administrator.",
	models.KindNetwork:       "Network problem. Check your connection and try again.",
	models.KindParse:         "The service returned an unexpected format. Please try again.",
	models.KindValidation:    "No ingredients were recognized. Retake the photo with better framing and lighting.",
	models.KindTimeout:       "The analysis timed out on a slow network. Please try again.",
	models.KindUnknown:       "The system is busy. Please try again later.",
}
