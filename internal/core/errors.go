// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientCoins = errors.New("insufficient coins")
	ErrUpstream          = errors.New("upstream service failure")
	ErrSessionInvalid    = errors.New("session invalid")
	ErrRateLimited       = errors.New("rate limited")
)

// AppError is an error that knows how it should be rendered to a client.
// Extra is merged into the top level of the response body so clients can
// read hints such as needsCoins or redirectTo without unwrapping.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
	Extra      map[string]any
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// With returns a copy of e carrying an additional response hint.
func (e *AppError) With(key string, value any) *AppError {
	extra := make(map[string]any, len(e.Extra)+1)
	for k, v := range e.Extra {
		extra[k] = v
	}
	extra[key] = value

	cp := *e
	cp.Extra = extra
	return &cp
}

func NewAppError(err error, message string, statusCode int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Code:       code,
	}
}

func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		fmt.Sprintf("%s not found", capitalize(resource)),
		http.StatusNotFound,
		"NOT_FOUND",
	)
}

func DuplicateError(field string) *AppError {
	return NewAppError(
		ErrDuplicateKey,
		fmt.Sprintf("%s already exists", capitalize(field)),
		http.StatusBadRequest,
		"DUPLICATE",
	)
}

func ValidationError(message string) *AppError {
	return NewAppError(
		ErrInvalidInput,
		message,
		http.StatusBadRequest,
		"VALIDATION_ERROR",
	)
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "Unauthorized"
	}
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized, "UNAUTHORIZED")
}

// AuthRequiredError is what the auth gate returns when neither a session
// nor a token resolves to a user.
func AuthRequiredError() *AppError {
	return UnauthorizedError("Authentication required. Please log in again.").
		With("redirectTo", "/auth")
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "Access denied"
	}
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}

func ConflictError(message string) *AppError {
	return NewAppError(ErrConflict, message, http.StatusConflict, "CONFLICT")
}

// InsufficientCoinsError tells the client to show a purchase prompt. hint
// is the flag name the calling surface uses (needsCoins or needsPayment).
func InsufficientCoinsError(message, hint string) *AppError {
	return NewAppError(
		ErrInsufficientCoins,
		message,
		http.StatusPaymentRequired,
		"INSUFFICIENT_COINS",
	).With(hint, true)
}

// RateLimitedError carries retryAfter in whole seconds, never below one.
func RateLimitedError(message, code string, retryAfter time.Duration) *AppError {
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return NewAppError(
		ErrRateLimited,
		message,
		http.StatusTooManyRequests,
		code,
	).With("retryAfter", secs)
}

func UpstreamError(err error, message, code string) *AppError {
	return NewAppError(errors.Join(ErrUpstream, err), message, http.StatusBadGateway, code)
}

func InternalError(err error) *AppError {
	return NewAppError(
		err,
		"An unexpected error occurred",
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
	)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
