package insteon

// ControlFlags is the bit-decoded control byte of an ALDB record.
//
// Bit layout (high to low):
//
//	Bit 7: in use (0 = deleted/available slot)
//	Bit 6: controller (1) vs responder (0)
//	Bit 5: reserved (bit5)
//	Bit 4: high-water mark when CLEAR, an unused slot past the last link,
//	       terminating the table
//	Bit 3: reserved (bit4 of the low nibble, unused by this bridge)
//	Bits 2-0: unused
type ControlFlags struct {
	InUse         bool
	Controller    bool
	Bit5          bool
	Bit4          bool
	HighWaterMark bool
}

// Control byte bit positions.
const (
	ctlBitInUse      = 7
	ctlBitController = 6
	ctlBitFive       = 5
	ctlBitHWM        = 4
	ctlBitFour       = 3
)

// ControlFlagsFromByte decodes a raw control byte.
//
// The high-water-mark flag is inverted on the wire: a SET bit 4 means
// "more records follow", a CLEAR bit 4 marks the terminator slot.
func ControlFlagsFromByte(b byte) ControlFlags {
	return ControlFlags{
		InUse:         b&(1<<ctlBitInUse) != 0,
		Controller:    b&(1<<ctlBitController) != 0,
		Bit5:          b&(1<<ctlBitFive) != 0,
		HighWaterMark: b&(1<<ctlBitHWM) == 0,
		Bit4:          b&(1<<ctlBitFour) != 0,
	}
}

// Byte re-encodes the flags to their wire representation.
func (f ControlFlags) Byte() byte {
	var b byte
	if f.InUse {
		b |= 1 << ctlBitInUse
	}
	if f.Controller {
		b |= 1 << ctlBitController
	}
	if f.Bit5 {
		b |= 1 << ctlBitFive
	}
	if !f.HighWaterMark {
		b |= 1 << ctlBitHWM
	}
	if f.Bit4 {
		b |= 1 << ctlBitFour
	}
	return b
}

// RecordSize is the size of one ALDB slot in device memory. Record
// addresses form a strictly descending arithmetic sequence with this
// stride, counting down from the first (highest) slot.
const RecordSize = 8

// Record is one immutable ALDB entry, keyed by its memory address.
type Record struct {
	// MemAddr is the record's slot address in device memory.
	MemAddr uint16

	// Flags is the decoded control byte.
	Flags ControlFlags

	// Group is the All-Link group number the record belongs to.
	Group uint8

	// Target is the linked device's address.
	Target Address

	// Data1, Data2, Data3 carry command-specific payload (level, ramp
	// rate, button). Their semantics are outside the sync subsystem.
	Data1 uint8
	Data2 uint8
	Data3 uint8
}

// IsHighWaterMark reports whether the record is the table terminator.
func (r Record) IsHighWaterMark() bool {
	return r.Flags.HighWaterMark
}
