package domain

import "errors"

// Domain errors
var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAuthUnknown         = errors.New("unexpected authentication error")
	ErrUnauthenticated     = errors.New("not signed in")
	ErrForbidden           = errors.New("access denied")
	ErrPermissionDenied    = errors.New("permission denied by document store")
	ErrNotFound            = errors.New("document not found")
	ErrProfileUnverifiable = errors.New("could not verify profile")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrConfirmationNeeded  = errors.New("confirmation required")
	ErrDraftConflict       = errors.New("draft was modified concurrently")
	ErrInternalError       = errors.New("internal server error")
)

// User-facing messages shown on the sign-in screens.
const (
	MessageInvalidCredentials = "Invalid email or password. Please try again."
	MessageAuthUnknown        = "An unexpected error occurred. Please try again later."
	MessageAdminOnly          = "You do not have administrative privileges."
	MessageProfileError       = "An error occurred while verifying your profile. Please try again later."
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPermissionError reports whether err means the caller may not see or change the data.
func IsPermissionError(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrForbidden)
}

// MessageUnlinkedAccount is returned when a login matches neither a player nor a coach.
const MessageUnlinkedAccount = "Your login account is not linked to a player or coach profile. Please contact an administrator."
