package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrUnknownTier         = errors.New("unknown quality tier")
	ErrUnknownModel        = errors.New("unknown model")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrAlreadySettled      = errors.New("reservation already settled")
)
