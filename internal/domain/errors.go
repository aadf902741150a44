package domain

import "errors"

var (
	// ErrValidation prefixes request values that fail basic checks before
	// any entity is built, such as a malformed query parameter.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID reports a missing or non-positive identifier.
	ErrInvalidID = errors.New("invalid ID")
)

// validationErrors lists every error whose text is safe to show a client.
var validationErrors = []error{
	ErrValidation,
	ErrInvalidID,
	ErrEmptyTitle,
	ErrTitleTooLong,
	ErrInvalidPriority,
	ErrEmptyTaskOwner,
	ErrInvalidEmail,
	ErrEmptyEmail,
	ErrInvalidUsername,
	ErrPasswordTooShort,
	ErrPasswordTooLong,
	ErrInvalidRole,
}

// IsValidation reports whether err stems from one of the domain's own
// validation rules.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
