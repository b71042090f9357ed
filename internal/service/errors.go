package service

import (
	"errors"
	"net/http"
)

// Kind classifies an Error into the HTTP-facing taxonomy.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindRateLimit
	KindDependency
)

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a client-safe failure. Message is the only text ever shown to the
// caller; Err carries the internal cause for logs.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Code, so wrapped instances still
// compare equal to the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Status returns the HTTP status code for e.
func (e *Error) Status() int { return e.Kind.Status() }

// withCause returns a copy of e carrying cause.
func (e *Error) withCause(cause error) *Error {
	c := *e
	c.Err = cause
	return &c
}

var (
	ErrMissingCredentials  = &Error{Kind: KindValidation, Code: "MissingCredentials", Message: "Please provide email and password"}
	ErrInvalidInput        = &Error{Kind: KindValidation, Code: "InvalidInput", Message: "Invalid request"}
	ErrWeakPassword        = &Error{Kind: KindValidation, Code: "WeakPassword", Message: "Password must be at least 8 characters"}
	ErrInvalidOrExpiredOTP = &Error{Kind: KindValidation, Code: "InvalidOrExpiredOtp", Message: "Invalid or expired OTP"}
	ErrAmbiguousAdmin      = &Error{Kind: KindValidation, Code: "AmbiguousAdmin", Message: "Multiple admin accounts exist; specify an email"}
	ErrSlugTaken           = &Error{Kind: KindValidation, Code: "SlugTaken", Message: "Portfolio with this slug already exists"}

	ErrInvalidCredentials = &Error{Kind: KindAuthentication, Code: "InvalidCredentials", Message: "Invalid credentials"}
	ErrInvalidToken       = &Error{Kind: KindAuthentication, Code: "InvalidToken", Message: "Not authorized, token invalid or expired"}
	ErrIncorrectPassword  = &Error{Kind: KindAuthentication, Code: "IncorrectPassword", Message: "Incorrect current password"}

	ErrAdminAlreadyExists = &Error{Kind: KindAuthorization, Code: "AdminAlreadyExists", Message: "Admin already exists."}
	ErrBootstrapDisabled  = &Error{Kind: KindAuthorization, Code: "BootstrapDisabled", Message: "Admin creation is disabled."}
	ErrInvalidMasterKey   = &Error{Kind: KindAuthorization, Code: "InvalidMasterKey", Message: "Invalid Master Key"}

	ErrAdminNotFound     = &Error{Kind: KindNotFound, Code: "AdminNotFound", Message: "No admin account found to reset."}
	ErrPortfolioNotFound = &Error{Kind: KindNotFound, Code: "PortfolioNotFound", Message: "Portfolio not found"}

	ErrTooManyAttempts = &Error{Kind: KindRateLimit, Code: "TooManyAttempts", Message: "Too many attempts, please try again later"}

	ErrDeliveryFailed      = &Error{Kind: KindDependency, Code: "DeliveryFailed", Message: "Failed to send OTP email"}
	ErrMisconfiguredServer = &Error{Kind: KindDependency, Code: "MisconfiguredServer", Message: "Recovery key not configured on server."}
	ErrStoreUnavailable    = &Error{Kind: KindDependency, Code: "StoreUnavailable", Message: "Server error"}
)

// AsError converts err into a client-safe *Error. Anything that is not
// already an *Error is reported as ErrStoreUnavailable with err as cause.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrStoreUnavailable.withCause(err)
}
