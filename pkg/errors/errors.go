package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the client error taxonomy. Every error surfaced by the
// gateway or a controller wraps exactly one of these.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrServerError        = errors.New("server error")
	ErrNetwork            = errors.New("network error")
	ErrUnexpectedStatus   = errors.New("unexpected status")
	ErrValidation         = errors.New("validation failed")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrAlreadyRegistered  = errors.New("already registered")
)

// Kind names one branch of the taxonomy.
type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindUserNotFound       Kind = "user_not_found"
	KindServerError        Kind = "server_error"
	KindNetwork            Kind = "network_error"
	KindUnexpectedStatus   Kind = "unexpected_status"
	KindValidation         Kind = "validation_error"
	KindNotAuthenticated   Kind = "not_authenticated"
	KindAlreadyRegistered  Kind = "already_registered"
	KindUnknown            Kind = "unknown"
)

// AppError represents a classified client-side failure. Status carries the
// HTTP status the server answered with, or 0 when no response was received.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// InvalidCredentials creates the error for a 401 with errorType "invalidPassword".
func InvalidCredentials(message string) *AppError {
	return &AppError{
		Code:    "INVALID_CREDENTIALS",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrInvalidCredentials,
	}
}

// UserNotFound creates the error for a 401 with errorType "invalidUser".
func UserNotFound(message string) *AppError {
	return &AppError{
		Code:    "USER_NOT_FOUND",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUserNotFound,
	}
}

// ServerError creates the error for an HTTP 500 answer.
func ServerError(message string) *AppError {
	return &AppError{
		Code:    "SERVER_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     ErrServerError,
	}
}

// Network creates the error for a request that never got a response.
func Network(cause error) *AppError {
	return &AppError{
		Code:    "NETWORK_ERROR",
		Message: "no response from server",
		Err:     fmt.Errorf("%w: %w", ErrNetwork, cause),
	}
}

// UnexpectedStatus creates the error for any status outside the known table.
func UnexpectedStatus(status int, message string) *AppError {
	return &AppError{
		Code:    "UNEXPECTED_STATUS",
		Message: message,
		Status:  status,
		Err:     ErrUnexpectedStatus,
	}
}

// MalformedResponse creates the error for a success status whose body does
// not match the endpoint schema.
func MalformedResponse(status int, cause error) *AppError {
	return &AppError{
		Code:    "MALFORMED_RESPONSE",
		Message: cause.Error(),
		Status:  status,
		Err:     ErrUnexpectedStatus,
	}
}

// Validation creates a client-side validation error; no request was sent.
func Validation(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Err:     ErrValidation,
	}
}

// NotAuthenticated creates the error for an operation that needs a session.
func NotAuthenticated(message string) *AppError {
	return &AppError{
		Code:    "NOT_AUTHENTICATED",
		Message: message,
		Err:     ErrNotAuthenticated,
	}
}

// AlreadyRegistered creates the error for a register call answered with 200.
func AlreadyRegistered(email string) *AppError {
	return &AppError{
		Code:    "ALREADY_REGISTERED",
		Message: fmt.Sprintf("email %q is already registered", email),
		Status:  http.StatusOK,
		Err:     ErrAlreadyRegistered,
	}
}

// KindOf returns the taxonomy branch of err.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrUserNotFound):
		return KindUserNotFound
	case errors.Is(err, ErrServerError):
		return KindServerError
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrUnexpectedStatus):
		return KindUnexpectedStatus
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotAuthenticated):
		return KindNotAuthenticated
	case errors.Is(err, ErrAlreadyRegistered):
		return KindAlreadyRegistered
	default:
		return KindUnknown
	}
}

// HTTPStatus returns the status carried by err, or 0 if none was received.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}

// UserMessage returns the notification text shown for err.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindInvalidCredentials:
		return "Wrong password!"
	case KindUserNotFound:
		return "User not Registered!"
	case KindServerError:
		return "Something went wrong! Please try after sometime."
	case KindNetwork:
		return "Unable to reach the server. Check your connection and try again."
	case KindAlreadyRegistered:
		return "Email is already registered! Please Login..."
	case KindNotAuthenticated:
		return "Please log in to continue."
	case KindValidation:
		var appErr *AppError
		if errors.As(err, &appErr) {
			return appErr.Message
		}
		return err.Error()
	case KindUnexpectedStatus:
		return fmt.Sprintf("Unexpected response from server (status %d).", HTTPStatus(err))
	default:
		return "Something went wrong!"
	}
}
