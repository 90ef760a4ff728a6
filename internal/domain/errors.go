package domain

import (
	"errors"
	"fmt"
)

// Error codes surfaced to clients.
const (
	CodeNotFound               = "NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeValidation             = "VALIDATION_ERROR"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeRateLimited            = "RATE_LIMITED"
	CodeNoRerollsLeft          = "NO_REROLLS_LEFT"
	CodeQuestNotFound          = "QUEST_NOT_FOUND"
	CodeQuestInProgress        = "QUEST_IN_PROGRESS"
	CodeNoReplacementAvailable = "NO_REPLACEMENT_AVAILABLE"
	CodeStoreUnavailable       = "STORE_UNAVAILABLE"
	CodeInternal               = "INTERNAL_ERROR"
)

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Retryable reports whether the caller may retry the triggering action.
func (e *AppError) Retryable() bool {
	return e.Code == CodeStoreUnavailable
}

// HasCode reports whether err (or anything it wraps) is an AppError with code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrConflict(msg string) *AppError {
	return &AppError{Code: CodeConflict, Message: msg, Status: 409}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: CodeValidation, Message: msg, Status: 400}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: msg, Status: 401}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: CodeForbidden, Message: msg, Status: 403}
}

func ErrRateLimited(msg string) *AppError {
	return &AppError{Code: CodeRateLimited, Message: msg, Status: 429}
}

// Reroll precondition failures. None of them mutate state.

func ErrNoRerollsLeft() *AppError {
	return &AppError{Code: CodeNoRerollsLeft, Message: "no rerolls left today", Status: 409}
}

func ErrQuestNotFound(questID string) *AppError {
	return &AppError{Code: CodeQuestNotFound, Message: fmt.Sprintf("quest %s is not in the active set", questID), Status: 404}
}

func ErrQuestInProgress(questID string) *AppError {
	return &AppError{Code: CodeQuestInProgress, Message: fmt.Sprintf("quest %s already has progress", questID), Status: 409}
}

func ErrNoReplacementAvailable() *AppError {
	return &AppError{Code: CodeNoReplacementAvailable, Message: "no replacement quest available", Status: 409}
}

// ErrStoreUnavailable marks a transient persistence failure. Retryable by the caller.
func ErrStoreUnavailable(cause error) *AppError {
	return &AppError{Code: CodeStoreUnavailable, Message: "progress store unavailable", Status: 503, Cause: cause}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: msg, Status: 500, Cause: cause}
}
