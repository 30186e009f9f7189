package aldb

import (
	"sync"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

// modemFirstMemAddr is the synthetic first slot for the modem mirror. The
// modem's cursor protocol never reports real memory addresses, so the
// mirror assigns descending slots of its own as records arrive.
const modemFirstMemAddr uint16 = 0x1FFF

// ModemALDB is the in-memory mirror of the local modem's All-Link
// Database.
//
// Unlike a device mirror it has no high-water-mark terminator: the cursor
// protocol signals end-of-table by refusing to advance, so load status is
// set by the read manager when the drain completes, not derived from
// record contents.
type ModemALDB struct {
	mu           sync.RWMutex
	firstMemAddr uint16
	lastMemAddr  uint16
	loaded       bool
	records      map[uint16]insteon.Record
}

// NewModem creates an empty modem mirror.
func NewModem() *ModemALDB {
	return &ModemALDB{
		firstMemAddr: modemFirstMemAddr,
		lastMemAddr:  modemFirstMemAddr + insteon.RecordSize,
		records:      make(map[uint16]insteon.Record),
	}
}

// FirstMemAddr returns the synthetic first slot address.
func (a *ModemALDB) FirstMemAddr() uint16 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.firstMemAddr
}

// LastMemAddr returns the lowest slot written so far.
func (a *ModemALDB) LastMemAddr() uint16 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastMemAddr
}

// Append stores the next record from the cursor stream at the slot below
// the last one written, and returns the stored record.
func (a *ModemALDB) Append(flagsByte byte, group uint8, target insteon.Address, data1, data2, data3 uint8) insteon.Record {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.lastMemAddr - insteon.RecordSize
	rec := insteon.Record{
		MemAddr: next,
		Flags:   insteon.ControlFlagsFromByte(flagsByte),
		Group:   group,
		Target:  target,
		Data1:   data1,
		Data2:   data2,
		Data3:   data3,
	}
	a.records[next] = rec
	a.lastMemAddr = next
	return rec
}

// Get returns the record at a slot address.
func (a *ModemALDB) Get(memAddr uint16) (insteon.Record, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	rec, ok := a.records[memAddr]
	return rec, ok
}

// Len returns the number of mirrored records.
func (a *ModemALDB) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.records)
}

// Records returns a snapshot of all records in cursor (descending slot)
// order.
func (a *ModemALDB) Records() []insteon.Record {
	a.mu.RLock()
	defer a.mu.RUnlock()

	recs := make([]insteon.Record, 0, len(a.records))
	for addr := a.firstMemAddr; ; addr -= insteon.RecordSize {
		rec, ok := a.records[addr]
		if !ok {
			break
		}
		recs = append(recs, rec)
	}
	return recs
}

// Loaded reports whether a drain has completed since the last Reset.
func (a *ModemALDB) Loaded() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loaded
}

// SetLoaded marks the mirror's load status. Called by the read manager
// when the cursor stream terminates.
func (a *ModemALDB) SetLoaded(loaded bool) {
	a.mu.Lock()
	a.loaded = loaded
	a.mu.Unlock()
}

// Reset clears the mirror ahead of a fresh drain.
func (a *ModemALDB) Reset() {
	a.mu.Lock()
	a.records = make(map[uint16]insteon.Record)
	a.lastMemAddr = a.firstMemAddr + insteon.RecordSize
	a.loaded = false
	a.mu.Unlock()
}
