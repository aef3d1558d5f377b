package errors

import "errors"

// AppError encodes domain specific error details.
type AppError struct {
	Code    string
	Message string
	// Stage names the pipeline step that produced the error, if any.
	Stage string
	Err   error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap produces a new AppError instance.
func Wrap(code, message string, err error) error {
	if err == nil {
		return &AppError{Code: code, Message: message}
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// IsCode helps handler differentiate failures.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost AppError, or "" when err carries none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// MessageOf returns the user facing message without the wrapped cause.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}

// StageOf returns the stage recorded on the error chain.
func StageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Stage
	}
	return ""
}

// WithStage tags err with stage unless a stage is already recorded.
// Errors that are not AppErrors are wrapped as internal failures.
func WithStage(err error, stage string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return &AppError{Code: "internal", Message: "unexpected failure", Stage: stage, Err: err}
	}
	if appErr.Stage != "" {
		return err
	}
	tagged := *appErr
	tagged.Stage = stage
	return &tagged
}
