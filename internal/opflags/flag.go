package opflags

import "sync"

// WholeRegister binds a flag to the full register value instead of a
// single bit.
const WholeRegister = -1

// Binding ties a flag name to its register location and write commands.
type Binding struct {
	// Name identifies the flag.
	Name string

	// Group selects the register.
	Group uint8

	// Bit is the register bit, or WholeRegister for the full value.
	Bit int

	// SetCmd and UnsetCmd are the device commands that set and clear the
	// flag. Ignored when ReadOnly is true.
	SetCmd   byte
	UnsetCmd byte

	// ReadOnly marks a flag with no write commands; pending values are
	// silently discarded on write.
	ReadOnly bool
}

// Flag holds one operating flag's confirmed and pending values.
//
// A bit-bound flag uses 0 and 1; a whole-register flag holds the raw
// register byte. The flag is dirty when the pending value differs from
// the confirmed one.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Flag struct {
	mu      sync.RWMutex
	value   uint8
	pending uint8
}

// NewFlag creates a flag with both values zero.
func NewFlag() *Flag {
	return &Flag{}
}

// Value returns the last confirmed value.
func (f *Flag) Value() uint8 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

// IsSet reports whether the confirmed value is non-zero.
func (f *Flag) IsSet() bool {
	return f.Value() != 0
}

// Pending returns the value queued for the next write.
func (f *Flag) Pending() uint8 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.pending
}

// SetPending queues a value for the next write.
func (f *Flag) SetPending(v uint8) {
	f.mu.Lock()
	f.pending = v
	f.mu.Unlock()
}

// Dirty reports whether a pending value awaits writing.
func (f *Flag) Dirty() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.pending != f.value
}

// Load commits a confirmed value, clearing any pending change.
func (f *Flag) Load(v uint8) {
	f.mu.Lock()
	f.value = v
	f.pending = v
	f.mu.Unlock()
}
