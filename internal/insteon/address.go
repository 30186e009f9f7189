package insteon

import (
	"fmt"
	"strconv"
	"strings"
)

// Address represents a 3-byte Insteon device address.
//
// Addresses are printed in the conventional dotted-hex form "1a.2b.3c".
// The zero value is not a valid device address and is used to mean
// "no address" (for example, modem-scoped commands).
type Address [3]byte

// addressPartCount is the number of dot-separated bytes in an address string.
const addressPartCount = 3

// ParseAddress parses a dotted-hex Insteon address.
//
// Accepts formats:
//   - "1a.2b.3c" (lowercase or uppercase hex, dot separated)
//
// Parameters:
//   - s: Address string
//
// Returns:
//   - Address: Parsed address
//   - error: ErrInvalidAddress if parsing fails
func ParseAddress(s string) (Address, error) {
	parts := strings.Split(s, ".")
	if len(parts) != addressPartCount {
		return Address{}, fmt.Errorf("%w: expected aa.bb.cc form, got %q", ErrInvalidAddress, s)
	}

	var addr Address
	for i, part := range parts {
		v, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return Address{}, fmt.Errorf("%w: byte %d of %q: %w", ErrInvalidAddress, i, s, err)
		}
		addr[i] = byte(v)
	}
	return addr, nil
}

// AddressFromBytes builds an Address from three raw bytes (high to low).
func AddressFromBytes(high, middle, low byte) Address {
	return Address{high, middle, low}
}

// String returns the dotted-hex form, e.g. "1a.2b.3c".
func (a Address) String() string {
	return fmt.Sprintf("%02x.%02x.%02x", a[0], a[1], a[2])
}

// IsZero reports whether the address is the zero (unset) address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Bytes returns the address as a 3-byte slice in wire order (high first).
func (a Address) Bytes() []byte {
	return []byte{a[0], a[1], a[2]}
}
