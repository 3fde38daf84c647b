package rewards

import "errors"

// Validation errors. They are always returned wrapped in ErrValidation.
var (
	ErrInvalidWallet  = errors.New("missing or invalid wallet")
	ErrInvalidSponsor = errors.New("invalid sponsor address")
	ErrInvalidAction  = errors.New("missing action")
	ErrInvalidPoints  = errors.New("points must be a finite number greater than zero")
	ErrSelfSponsor    = errors.New("wallet cannot sponsor itself")
)

// Sentinel errors for error classification
var (
	ErrValidation              = errors.New("validation failed")
	ErrIneligibleSponsor       = errors.New("sponsor is not eligible")
	ErrSponsorCheckUnavailable = errors.New("sponsor eligibility check unavailable")
	ErrStorageUnavailable      = errors.New("storage unavailable")
	ErrListingUnavailable      = errors.New("listing unavailable")
)
