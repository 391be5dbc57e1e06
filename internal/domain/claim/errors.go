package claim

import "errors"

var (
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("claim not found")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrDuplicatePolicyNumber = errors.New("policy number already exists")
	ErrGenerationExhausted   = errors.New("policy number generation exhausted")
)
