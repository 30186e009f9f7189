package insteon

import "errors"

// Domain errors for Insteon value types.
var (
	// ErrInvalidAddress is returned when a device address string or byte
	// sequence cannot be parsed.
	ErrInvalidAddress = errors.New("insteon: invalid device address")

	// ErrInvalidRecord is returned when an ALDB record cannot be decoded
	// from its wire representation.
	ErrInvalidRecord = errors.New("insteon: invalid ALDB record")
)
