package manager

import (
	"errors"
	"fmt"

	"vistora/internal/domain"
)

// IsNotFound reports whether err indicates an unknown job or profile (404).
func IsNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }

// IsInvalidTransition reports whether err indicates a lifecycle violation (409).
func IsInvalidTransition(err error) bool { return errors.Is(err, domain.ErrInvalidTransition) }

// IsInsufficientCredits reports whether a reservation was refused (402).
func IsInsufficientCredits(err error) bool { return errors.Is(err, domain.ErrInsufficientCredits) }

// IsBadRequest reports whether err is a caller error (400).
func IsBadRequest(err error) bool {
	return errors.Is(err, domain.ErrInvalidArgument) ||
		errors.Is(err, domain.ErrUnknownTier) ||
		errors.Is(err, domain.ErrUnknownModel)
}

func errNotFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", domain.ErrNotFound, kind, id)
}

func errTransition(id string, from, to domain.JobStatus) error {
	return fmt.Errorf("%w: job %s is %s, cannot become %s", domain.ErrInvalidTransition, id, from, to)
}

func errInvalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidArgument}, args...)...)
}
