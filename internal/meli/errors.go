// Package meli is the anti-corruption layer for the MercadoLibre-shaped
// marketplace API: a rate-limited retrying client, a rule importer, and the
// translation of marketplace errors into the canonical taxonomy.
package meli

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Code is a canonical error code. The taxonomy is closed: translation of an
// unknown marketplace code yields CodeUnknown, never a new code.
type Code string

const (
	CodeAuthFailed        Code = "AUTH_FAILED"
	CodeTokenExpired      Code = "TOKEN_EXPIRED"
	CodePermissions       Code = "INSUFFICIENT_PERMISSIONS"
	CodeItemNotFound      Code = "ITEM_NOT_FOUND"
	CodeCategoryNotFound  Code = "CATEGORY_NOT_FOUND"
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeRateLimit         Code = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavail    Code = "SERVICE_UNAVAILABLE"
	CodeInternal          Code = "INTERNAL_ERROR"
	CodeTimeout           Code = "TIMEOUT"
	CodeNetwork           Code = "NETWORK_ERROR"
	CodeConfiguration     Code = "CONFIGURATION_ERROR"
	CodeUnknown           Code = "UNKNOWN_ERROR"
)

// CanonicalError is the marketplace-agnostic error value every public
// boundary of this package returns.
type CanonicalError struct {
	Code        Code                   `json:"code"`
	Message     string                 `json:"message"`
	Severity    string                 `json:"severity"`
	Recoverable bool                   `json:"recoverable"`
	RetryAfter  int                    `json:"retry_after,omitempty"` // seconds
	Field       string                 `json:"field,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

func (e *CanonicalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// recoverableCodes are safe to retry after a delay.
var recoverableCodes = map[Code]bool{
	CodeRateLimit:      true,
	CodeServiceUnavail: true,
	CodeTimeout:        true,
	CodeNetwork:        true,
	CodeTokenExpired:   true,
}

// newError builds a CanonicalError with recoverability derived from the code.
func newError(code Code, msg string) *CanonicalError {
	sev := "error"
	if code == CodeRateLimit {
		sev = "warning"
	}
	return &CanonicalError{
		Code:        code,
		Message:     msg,
		Severity:    sev,
		Recoverable: recoverableCodes[code],
	}
}

// marketplaceCodes maps the marketplace's own error codes, lower-cased, to
// canonical codes.
var marketplaceCodes = map[string]Code{
	"invalid_token":            CodeAuthFailed,
	"invalid_grant":            CodeAuthFailed,
	"forbidden":                CodePermissions,
	"unauthorized":             CodeAuthFailed,
	"token_expired":            CodeTokenExpired,
	"not_found":                CodeItemNotFound,
	"category_not_found":       CodeCategoryNotFound,
	"validation_error":         CodeValidation,
	"item.attributes.invalid":  CodeValidation,
	"item.price.invalid":       CodeValidation,
	"too_many_requests":        CodeRateLimit,
	"local_rate_limited":       CodeRateLimit,
	"internal_error":           CodeInternal,
	"service_unavailable":      CodeServiceUnavail,
	"bad_gateway":              CodeServiceUnavail,
	"timeout":                  CodeTimeout,
}

// Translate maps a marketplace error payload to a CanonicalError. Unknown
// codes translate to CodeUnknown instead of failing.
func Translate(marketplaceCode, message string) *CanonicalError {
	code, ok := marketplaceCodes[strings.ToLower(strings.TrimSpace(marketplaceCode))]
	if !ok {
		code = CodeUnknown
	}
	e := newError(code, message)
	if e.Message == "" {
		e.Message = marketplaceCode
	}
	e.Details = map[string]interface{}{"marketplace_code": marketplaceCode}
	return e
}

// TranslateStatus maps a bare HTTP status to a CanonicalError, for transport
// failures that never carried a structured body.
func TranslateStatus(status int) *CanonicalError {
	switch {
	case status == http.StatusBadRequest:
		return newError(CodeValidation, "request rejected by the marketplace")
	case status == http.StatusUnauthorized:
		return newError(CodeAuthFailed, "authentication failed")
	case status == http.StatusForbidden:
		return newError(CodePermissions, "insufficient permissions")
	case status == http.StatusNotFound:
		return newError(CodeItemNotFound, "resource not found")
	case status == http.StatusTooManyRequests:
		return newError(CodeRateLimit, "rate limit exceeded")
	case status == http.StatusServiceUnavailable || status == http.StatusBadGateway || status == http.StatusGatewayTimeout:
		return newError(CodeServiceUnavail, fmt.Sprintf("marketplace unavailable (status %d)", status))
	case status >= 500:
		return newError(CodeInternal, fmt.Sprintf("marketplace internal error (status %d)", status))
	default:
		return newError(CodeUnknown, fmt.Sprintf("unexpected status %d", status))
	}
}

// ParseRetryAfter parses a Retry-After header value: either integer seconds
// or an HTTP date. The result is floored at 1 second; unparsable values
// default to 60.
func ParseRetryAfter(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 60
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 1 {
			return 1
		}
		return secs
	}
	if t, err := http.ParseTime(value); err == nil {
		secs := int(time.Until(t).Seconds())
		if secs < 1 {
			return 1
		}
		return secs
	}
	return 60
}

// Summary aggregates canonical errors for reporting.
type Summary struct {
	Total   int            `json:"total"`
	ByCode  map[Code]int   `json:"by_code"`
	ByField map[string]int `json:"by_field"`
}

// Summarize counts errors by code and by field.
func Summarize(errs []*CanonicalError) Summary {
	s := Summary{
		Total:   len(errs),
		ByCode:  make(map[Code]int),
		ByField: make(map[string]int),
	}
	for _, e := range errs {
		s.ByCode[e.Code]++
		if e.Field != "" {
			s.ByField[e.Field]++
		}
	}
	return s
}
