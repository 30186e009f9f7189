package aldb

import (
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

// DefaultFirstMemAddr is the first (highest) record slot on almost every
// Insteon device. Records occupy 8-byte slots counting down from here.
const DefaultFirstMemAddr uint16 = 0x0FFF

// ALDB is the in-memory mirror of one device's All-Link Database.
//
// Records are keyed by their memory address; duplicates overwrite, arrival
// order is irrelevant. The mirror is created empty alongside its device
// and mutated in place for the process lifetime; a re-read at any time
// simply overwrites.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Record delivery and load
//     status checks interleave freely.
type ALDB struct {
	mu           sync.RWMutex
	address      insteon.Address
	firstMemAddr uint16
	records      map[uint16]insteon.Record
}

// New creates an empty mirror for the device at the given address, with
// the conventional first record slot.
func New(address insteon.Address) *ALDB {
	return &ALDB{
		address:      address,
		firstMemAddr: DefaultFirstMemAddr,
		records:      make(map[uint16]insteon.Record),
	}
}

// Address returns the owning device's address.
func (a *ALDB) Address() insteon.Address {
	return a.address
}

// FirstMemAddr returns the table's first (highest) record slot address.
func (a *ALDB) FirstMemAddr() uint16 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.firstMemAddr
}

// Set stores a record keyed by its own memory address.
// This is the only mutation path into the mirror.
func (a *ALDB) Set(rec insteon.Record) {
	a.mu.Lock()
	a.records[rec.MemAddr] = rec
	a.mu.Unlock()
}

// Get returns the record at a memory address.
func (a *ALDB) Get(memAddr uint16) (insteon.Record, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	rec, ok := a.records[memAddr]
	return rec, ok
}

// Len returns the number of mirrored records.
func (a *ALDB) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.records)
}

// Addresses returns all mirrored memory addresses in descending order,
// the direction the table is allocated in.
func (a *ALDB) Addresses() []uint16 {
	a.mu.RLock()
	addrs := make([]uint16, 0, len(a.records))
	for addr := range a.records {
		addrs = append(addrs, addr)
	}
	a.mu.RUnlock()

	sort.Slice(addrs, func(i, j int) bool { return addrs[i] > addrs[j] })
	return addrs
}

// Records returns a snapshot of all mirrored records in descending
// address order.
func (a *ALDB) Records() []insteon.Record {
	addrs := a.Addresses()

	a.mu.RLock()
	defer a.mu.RUnlock()
	recs := make([]insteon.Record, 0, len(addrs))
	for _, addr := range addrs {
		recs = append(recs, a.records[addr])
	}
	return recs
}

// Loaded reports whether the mirror holds the complete table: a record at
// the first slot, every slot below it present with stride 8, and exactly
// the high-water-mark terminator ending the run.
func (a *ALDB) Loaded() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	expected := a.firstMemAddr
	for {
		rec, ok := a.records[expected]
		if !ok {
			return false
		}
		if rec.IsHighWaterMark() {
			return true
		}
		if expected < insteon.RecordSize {
			return false // Ran off the bottom of memory without a terminator
		}
		expected -= insteon.RecordSize
	}
}
