package aldb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
	"github.com/nerrad567/gray-logic-insteon/internal/plm"
)

// scriptedSender answers each Send from its script, repeating the last
// entry once the script runs out.
type scriptedSender struct {
	mu     sync.Mutex
	script []insteon.ResponseStatus
	calls  int
	after  func(call int)
}

func (s *scriptedSender) Send(_ context.Context, _ []byte) insteon.ResponseStatus {
	s.mu.Lock()
	call := s.calls
	s.calls++
	idx := call
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	status := s.script[idx]
	after := s.after
	s.mu.Unlock()

	if after != nil {
		after(call)
	}
	return status
}

func (s *scriptedSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func deliverLinkRecord(reg *plm.Registry, group uint8, target insteon.Address) {
	reg.Dispatch(plm.Message{
		Topic: plm.Topic{Command: insteon.CmdAllLinkRecordResponse},
		Kind:  plm.KindAllLinkRecord,
		LinkRecord: &plm.AllLinkRecord{
			FlagsByte: 0xE2,
			Group:     group,
			Address:   target,
			Data1:     0x01,
			Data2:     0x20,
			Data3:     0x45,
		},
	})
}

func TestModemReadManager_LoadDrainsTable(t *testing.T) {
	db := NewModem()
	reg := plm.NewRegistry()
	target := insteon.Address{0x4D, 0x5E, 0x6F}

	// The modem has 3 records: get-first yields the first, each of the
	// next two get-next calls yields one more, and from the third call on
	// the cursor refuses to advance.
	getFirst := &scriptedSender{
		script: []insteon.ResponseStatus{insteon.StatusSuccess},
		after: func(int) {
			go deliverLinkRecord(reg, 1, target)
		},
	}
	getNext := &scriptedSender{
		script: []insteon.ResponseStatus{
			insteon.StatusSuccess,
			insteon.StatusSuccess,
			insteon.StatusFailure,
		},
	}
	getNext.after = func(call int) {
		if call < 2 {
			go deliverLinkRecord(reg, uint8(call+2), target)
		}
	}

	m := NewModemReadManager(db, getFirst, getNext, reg)
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status := m.Load(ctx)

	if status != insteon.StatusSuccess {
		t.Fatalf("Load() = %v, want success", status)
	}
	if !db.Loaded() {
		t.Error("mirror not marked loaded after drain")
	}
	if db.Len() != 3 {
		t.Fatalf("mirror holds %d records, want 3", db.Len())
	}

	recs := db.Records()
	wantSlots := []uint16{0x1FFF, 0x1FF7, 0x1FEF}
	for i, rec := range recs {
		if rec.MemAddr != wantSlots[i] {
			t.Errorf("record %d slot = 0x%04X, want 0x%04X", i, rec.MemAddr, wantSlots[i])
		}
		if rec.Group != uint8(i+1) {
			t.Errorf("record %d group = %d, want %d", i, rec.Group, i+1)
		}
		if !rec.Flags.Controller {
			t.Errorf("record %d lost its controller flag", i)
		}
	}

	// Terminal get-next failed its whole retry budget; two advances
	// succeeded before it.
	if getNext.callCount() != 2+modemRetriesMax {
		t.Errorf("get-next calls = %d, want %d", getNext.callCount(), 2+modemRetriesMax)
	}
}

func TestModemReadManager_GetFirstNeverAcknowledged(t *testing.T) {
	db := NewModem()
	reg := plm.NewRegistry()
	getFirst := &scriptedSender{script: []insteon.ResponseStatus{insteon.StatusTimeout}}
	getNext := &scriptedSender{script: []insteon.ResponseStatus{insteon.StatusFailure}}

	m := NewModemReadManager(db, getFirst, getNext, reg)
	defer m.Close()

	status := m.Load(context.Background())

	if status != insteon.StatusFailure {
		t.Fatalf("Load() = %v, want failure", status)
	}
	if getFirst.callCount() != modemRetriesMax {
		t.Errorf("get-first calls = %d, want %d", getFirst.callCount(), modemRetriesMax)
	}
	if getNext.callCount() != 0 {
		t.Errorf("get-next calls = %d, want 0", getNext.callCount())
	}
	if db.Loaded() {
		t.Error("mirror marked loaded after a failed prime")
	}
}

func TestModemReadManager_ReloadReplacesMirror(t *testing.T) {
	db := NewModem()
	reg := plm.NewRegistry()
	db.Append(0xE2, 9, testAddress(), 0, 0, 0)
	db.SetLoaded(true)

	// Empty modem: get-first acks but no record ever arrives, so the
	// drain rendezvous would block forever; an empty table is surfaced
	// through context expiry with a reset mirror.
	getFirst := &scriptedSender{script: []insteon.ResponseStatus{insteon.StatusSuccess}}
	getNext := &scriptedSender{script: []insteon.ResponseStatus{insteon.StatusFailure}}

	m := NewModemReadManager(db, getFirst, getNext, reg)
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	status := m.Load(ctx)

	if status != insteon.StatusTimeout {
		t.Fatalf("Load() = %v, want timeout", status)
	}
	if db.Len() != 0 {
		t.Errorf("mirror holds %d records, want 0 after reset", db.Len())
	}
	if db.Loaded() {
		t.Error("mirror still marked loaded after reset")
	}
}
