package service

import (
	"fmt"
	"regexp"
)

// slug 仅允许字母、数字、点和连字符，和公开 URL 的路径段保持一致。
var slugPattern = regexp.MustCompile(`^[a-zA-Z0-9.-]+$`)

// ValidationError carries a field-level form error back to the operator.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func validSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}
