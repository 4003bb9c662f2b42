package amcu

import "errors"

var (
	// ErrMissingField flags a packet without a required key (CID, QTY).
	ErrMissingField = errors.New("missing required field")
	// ErrBadField flags a required or supplied value that does not parse.
	ErrBadField = errors.New("invalid field value")
	// ErrCustomerNotFound flags an unknown or inactive AMCU customer id.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrRateUnavailable means no rate card matched and the device sent
	// no amount. An operator has to fix the rate cards, retrying won't help.
	ErrRateUnavailable = errors.New("no matching rate card")
	// ErrZeroAmount guards the invariant that an entry never persists
	// with a non-positive amount.
	ErrZeroAmount = errors.New("entry amount must be positive")
)
