package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTimeout            ErrorCode = "COMMON_005"
	ErrCodeValidation         ErrorCode = "COMMON_006"
	ErrCodeSerialization      ErrorCode = "COMMON_007"
	ErrCodeDatabaseError      ErrorCode = "COMMON_008"
	ErrCodeCacheError         ErrorCode = "COMMON_009"
	ErrCodeExternalService    ErrorCode = "COMMON_010"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_011"
	ErrCodeUnknown            ErrorCode = "COMMON_012"

	CodeOK ErrorCode = "OK"
)

// Case lifecycle error codes — the taxonomy every orchestrator caller
// branches on.
const (
	// ErrCodeInvalidTransition: the requested event has no edge from the
	// current case status, or an edge guard rejected it.  User-facing,
	// never retried automatically.
	ErrCodeInvalidTransition ErrorCode = "CASE_001"

	// ErrCodeMissingDueDateInput: a procedure change requires due-date
	// overrides that were not supplied.  Surfaced before any persistence
	// attempt.
	ErrCodeMissingDueDateInput ErrorCode = "CASE_002"

	// ErrCodeConcurrencyConflict: the optimistic version check failed; the
	// caller should re-fetch and retry.
	ErrCodeConcurrencyConflict ErrorCode = "CASE_003"

	// ErrCodePersistence: the backing store failed mid-transaction; the
	// transition is guaranteed not committed.
	ErrCodePersistence ErrorCode = "CASE_004"

	// ErrCodeSideEffect: a notification, audit, or broadcast dispatch failed
	// after the transition committed.  Logged, never propagated to the
	// transition caller.
	ErrCodeSideEffect ErrorCode = "CASE_005"

	// ErrCodeCaseNotFound: the referenced appeal case does not exist.
	ErrCodeCaseNotFound ErrorCode = "CASE_006"
)

// Timetable error codes
const (
	ErrCodeUnknownAppealType     ErrorCode = "TT_001"
	ErrCodeUnknownProcedureType  ErrorCode = "TT_002"
	ErrCodeUnknownTimetableField ErrorCode = "TT_003"
)

// Calendar error codes
const (
	ErrCodeHolidayFeedUnavailable ErrorCode = "CAL_001"
	ErrCodeUnknownJurisdiction    ErrorCode = "CAL_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes for callers that
// surface engine failures over HTTP.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeUnknown:            http.StatusInternalServerError,

	ErrCodeInvalidTransition:   http.StatusBadRequest,
	ErrCodeMissingDueDateInput: http.StatusBadRequest,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodePersistence:         http.StatusInternalServerError,
	ErrCodeSideEffect:          http.StatusInternalServerError,
	ErrCodeCaseNotFound:        http.StatusNotFound,

	ErrCodeUnknownAppealType:     http.StatusBadRequest,
	ErrCodeUnknownProcedureType:  http.StatusBadRequest,
	ErrCodeUnknownTimetableField: http.StatusBadRequest,

	ErrCodeHolidayFeedUnavailable: http.StatusServiceUnavailable,
	ErrCodeUnknownJurisdiction:    http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeUnknown:            "unknown error",

	ErrCodeInvalidTransition:   "invalid state for action",
	ErrCodeMissingDueDateInput: "missing due-date input",
	ErrCodeConcurrencyConflict: "case was modified concurrently",
	ErrCodePersistence:         "transition could not be persisted",
	ErrCodeSideEffect:          "side effect dispatch failed",
	ErrCodeCaseNotFound:        "appeal case not found",

	ErrCodeUnknownAppealType:     "unknown appeal type",
	ErrCodeUnknownProcedureType:  "unknown procedure type",
	ErrCodeUnknownTimetableField: "unknown timetable field",

	ErrCodeHolidayFeedUnavailable: "holiday feed unavailable",
	ErrCodeUnknownJurisdiction:    "unknown jurisdiction",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
