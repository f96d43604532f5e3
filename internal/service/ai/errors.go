package ai

import (
	"context"
	"errors"
	"strings"
)

// Reason classifies a generation failure without leaking backend detail.
type Reason string

const (
	ReasonInvalidCredential Reason = "invalid_credential"
	ReasonQuotaExceeded     Reason = "quota_exceeded"
	ReasonSafetyFiltered    Reason = "safety_filtered"
	ReasonCancelled         Reason = "cancelled"
	ReasonUnclassified      Reason = "unclassified"
)

// GenerationError is the only error shape this package surfaces. Message is
// human-readable and becomes the transcript content when a stream fails.
type GenerationError struct {
	Reason  Reason
	Message string
	cause   error
}

func NewGenerationError(reason Reason, message string, cause error) *GenerationError {
	return &GenerationError{Reason: reason, Message: message, cause: cause}
}

func (e *GenerationError) Error() string { return e.Message }

func (e *GenerationError) Unwrap() error { return e.cause }

// Classify folds an arbitrary backend error into the public taxonomy.
// Chunks delivered before the failure stay applied; rollback is the
// caller's decision.
func Classify(err error) *GenerationError {
	if err == nil {
		return nil
	}

	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &GenerationError{
			Reason:  ReasonCancelled,
			Message: "Response cancelled.",
			cause:   err,
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "api_key") ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "credential") ||
		strings.Contains(msg, "401"):
		return &GenerationError{
			Reason:  ReasonInvalidCredential,
			Message: "Invalid API key. Please check your API key configuration.",
			cause:   err,
		}
	case strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "429"):
		return &GenerationError{
			Reason:  ReasonQuotaExceeded,
			Message: "API quota exceeded. Please try again later.",
			cause:   err,
		}
	case strings.Contains(msg, "safety") || strings.Contains(msg, "blocked") ||
		strings.Contains(msg, "filtered"):
		return &GenerationError{
			Reason:  ReasonSafetyFiltered,
			Message: "Content filtered by safety settings. Please try rephrasing your message.",
			cause:   err,
		}
	}

	return &GenerationError{
		Reason:  ReasonUnclassified,
		Message: "Failed to generate response. Please try again.",
		cause:   err,
	}
}
