package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/content-digest/internal/domain/digest"
	apperrors "github.com/yanqian/content-digest/pkg/errors"
)

const (
	codeInvalidRequest = "invalid_request"
	codeRateLimited    = "rate_limit_exceeded"
	codeInternal       = "internal_error"

	// nginx convention for a client that went away mid request.
	statusClientClosedRequest = 499
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Stage   string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// fromDomainError translates a coded service error into a response.
func fromDomainError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	message := apperrors.MessageOf(err)
	if code == "" || message == "" {
		return &HTTPError{
			Status:  http.StatusInternalServerError,
			Code:    codeInternal,
			Message: "something went wrong",
			Stage:   apperrors.StageOf(err),
			Err:     err,
		}
	}
	stage := apperrors.StageOf(err)
	return &HTTPError{
		Status:  statusFor(code, stage),
		Code:    code,
		Message: message,
		Stage:   stage,
		Err:     err,
	}
}

// statusFor maps an error code to a status. A timeout while fetching the
// source is the caller's problem (400); a provider timeout is 408.
func statusFor(code, stage string) int {
	if code == digest.CodeTimeout && stage == string(digest.StageNormalizing) {
		return http.StatusBadRequest
	}
	switch code {
	case digest.CodeMissingField,
		digest.CodeInvalidMode,
		digest.CodeInvalidInputType,
		digest.CodeInvalidStyle,
		digest.CodeContentTooLong,
		digest.CodeContentTooShort,
		digest.CodeInvalidURL,
		digest.CodeInvalidYouTubeURL,
		digest.CodeFetchFailed,
		digest.CodeInsufficientContent,
		codeInvalidRequest:
		return http.StatusBadRequest
	case digest.CodeTimeout:
		return http.StatusRequestTimeout
	case digest.CodeQuotaExceeded, codeRateLimited:
		return http.StatusTooManyRequests
	case digest.CodeNotFound:
		return http.StatusNotFound
	case digest.CodeHistoryUnavailable:
		return http.StatusServiceUnavailable
	case digest.CodeCancelled:
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return fromDomainError(err)
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
