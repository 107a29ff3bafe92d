package services

import "errors"

// Sentinel errors surfaced to the HTTP boundary. Handlers map them with
// errors.Is: not-found to 404, conflicts to 409, validation to 400.
// Anything else is an upstream failure and becomes a generic 500.
var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrActivityNotFound = errors.New("activity not found")
	ErrPlanNotFound     = errors.New("treatment plan not found")
	ErrSessionNotFound  = errors.New("no active session")
	ErrSessionActive    = errors.New("session already active")
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrValidation       = errors.New("validation failed")
)

// IsNotFound reports whether err is any of the store-level not-found errors
func IsNotFound(err error) bool {
	return errors.Is(err, ErrScheduleNotFound) ||
		errors.Is(err, ErrActivityNotFound) ||
		errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
