package digest

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validator enforces request constraints before any expensive work happens.
type Validator struct {
	MaxUploadChars int
	MinUploadChars int
	// Strict enables the minimum upload length check.
	Strict bool
}

// NewValidator builds a validator from the pipeline config.
func NewValidator(cfg Config) Validator {
	cfg = cfg.withDefaults()
	return Validator{
		MaxUploadChars: cfg.MaxUploadChars,
		MinUploadChars: cfg.MinUploadChars,
		Strict:         cfg.StrictValidation,
	}
}

// Validate checks req and returns a coded error for the first violation.
func (v Validator) Validate(req Request) error {
	if strings.TrimSpace(req.Content) == "" {
		return newError(CodeMissingField, "content is required", nil)
	}
	if strings.TrimSpace(string(req.Mode)) == "" {
		return newError(CodeMissingField, "mode is required", nil)
	}
	if !req.Mode.Valid() {
		return newError(CodeInvalidMode, fmt.Sprintf("mode must be one of %s", joinModes()), nil)
	}
	if !req.InputType.Valid() {
		return newError(CodeInvalidInputType, "inputType must be one of url, youtube, upload", nil)
	}
	if req.Style != "" && !req.Style.Valid() {
		return newError(CodeInvalidStyle, "style must be structured or paragraph", nil)
	}
	if req.InputType != InputUpload {
		return nil
	}

	length := utf8.RuneCountInString(req.Content)
	if v.MaxUploadChars > 0 && length > v.MaxUploadChars {
		return newError(CodeContentTooLong, fmt.Sprintf("content is too long (%d characters, maximum is %d)", length, v.MaxUploadChars), nil)
	}
	if v.Strict && v.MinUploadChars > 0 && length < v.MinUploadChars {
		return newError(CodeContentTooShort, fmt.Sprintf("content is too short (%d characters, minimum is %d)", length, v.MinUploadChars), nil)
	}
	return nil
}

func joinModes() string {
	names := make([]string, 0, len(Modes))
	for _, m := range Modes {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}
