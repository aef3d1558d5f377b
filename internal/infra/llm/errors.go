package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/yanqian/content-digest/internal/domain/digest"
	apperrors "github.com/yanqian/content-digest/pkg/errors"
)

// FromStatus converts a non-2xx provider response into a coded error.
// providerMessage is the message extracted from the provider's error body.
func FromStatus(provider string, status int, providerMessage string) error {
	cause := &digest.StatusError{StatusCode: status, Body: providerMessage}
	if IsQuota(status, providerMessage) {
		return apperrors.Wrap(digest.CodeQuotaExceeded, "the AI service quota was exceeded; please try again later", cause)
	}
	msg := fmt.Sprintf("%s request failed with status %d", provider, status)
	if providerMessage != "" {
		msg += ": " + providerMessage
	}
	return apperrors.Wrap(digest.CodeProviderError, msg, cause)
}

// IsQuota reports whether a response indicates rate or quota exhaustion.
func IsQuota(status int, message string) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "quota") || strings.Contains(lower, "resource_exhausted") || strings.Contains(lower, "rate limit")
}

// Unconfigured stands in for a provider whose credentials are missing.
type Unconfigured struct{}

// Generate always fails with not_configured.
func (Unconfigured) Generate(context.Context, digest.GenerateRequest) (digest.GenerateResponse, error) {
	return digest.GenerateResponse{}, apperrors.Wrap(digest.CodeNotConfigured, "the AI service is not configured; please contact support", nil)
}

// SafetyBlocked is returned when the provider refuses the content.
func SafetyBlocked(reason string) error {
	return apperrors.Wrap(digest.CodeSafetyBlocked, "the content was blocked by the AI service safety filters", fmt.Errorf("block reason: %s", reason))
}

// EmptyResponse is returned when the provider answered without text.
func EmptyResponse(provider string) error {
	return apperrors.Wrap(digest.CodeEmptyResponse, "the AI service returned an empty response", fmt.Errorf("%s returned no text", provider))
}
