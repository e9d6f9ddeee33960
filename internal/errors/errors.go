package errors

import "fmt"

// ErrorType represents different categories of errors in the auth flow
type ErrorType string

const (
	// DiscoveryError represents failures fetching or parsing OAuth server metadata
	DiscoveryError ErrorType = "discovery_error"
	// UnsupportedServerError represents servers that do not advertise dynamic registration
	UnsupportedServerError ErrorType = "unsupported_server_error"
	// RegistrationError represents dynamic client registration failures
	RegistrationError ErrorType = "registration_error"
	// StateMismatchError represents a callback whose state does not match the generated one
	StateMismatchError ErrorType = "state_mismatch_error"
	// CallbackError represents an explicit error returned by the authorization server
	CallbackError ErrorType = "callback_error"
	// TimeoutError represents a callback that never arrived in time
	TimeoutError ErrorType = "timeout_error"
	// PortInUseError represents a callback listener bind conflict
	PortInUseError ErrorType = "port_in_use_error"
	// TokenExchangeError represents token endpoint failures
	TokenExchangeError ErrorType = "token_exchange_error"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(errorType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errorType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// As walks the error chain looking for an *AppError
func As(err error, target interface{}) bool {
	switch target := target.(type) {
	case **AppError:
		for err != nil {
			if appErr, ok := err.(*AppError); ok {
				*target = appErr
				return true
			}
			unwrapper, ok := err.(interface{ Unwrap() error })
			if !ok {
				break
			}
			err = unwrapper.Unwrap()
		}
	}
	return false
}
