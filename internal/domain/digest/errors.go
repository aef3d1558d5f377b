package digest

import (
	"fmt"

	apperrors "github.com/yanqian/content-digest/pkg/errors"
)

// Error codes surfaced to callers. The HTTP layer maps them to status codes.
const (
	// validation
	CodeMissingField     = "missing_field"
	CodeInvalidMode      = "invalid_mode"
	CodeInvalidInputType = "invalid_input_type"
	CodeInvalidStyle     = "invalid_style"
	CodeContentTooLong   = "content_too_long"
	CodeContentTooShort  = "content_too_short"

	// extraction
	CodeInvalidURL          = "invalid_url"
	CodeInvalidYouTubeURL   = "invalid_youtube_url"
	CodeFetchFailed         = "fetch_failed"
	CodeInsufficientContent = "insufficient_content"

	// provider
	CodeNotConfigured = "not_configured"
	CodeProviderError = "api_error"
	CodeQuotaExceeded = "quota_exceeded"
	CodeSafetyBlocked = "safety_blocked"
	CodeEmptyResponse = "empty_response"

	// shared
	CodeTimeout   = "timeout"
	CodeCancelled = "cancelled"

	// history
	CodeNotFound           = "not_found"
	CodeHistoryUnavailable = "history_unavailable"
)

// StatusError reports a non-2xx response from an upstream HTTP collaborator.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func newError(code, message string, err error) error {
	return apperrors.Wrap(code, message, err)
}

func stageError(stage Stage, err error) error {
	return apperrors.WithStage(err, string(stage))
}
