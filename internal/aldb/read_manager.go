package aldb

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nerrad567/gray-logic-insteon/internal/handshake"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
	"github.com/nerrad567/gray-logic-insteon/internal/plm"
)

// Retry budgets and watchdog tuning for the device read manager.
const (
	// retriesAllMax bounds bulk (whole table) read attempts.
	retriesAllMax = 5

	// retriesOneMax bounds single-record read attempts at one address.
	retriesOneMax = 20

	// watchdogBase is the initial watchdog delay after issuing a read.
	watchdogBase = 10 * time.Second

	// watchdogIncrement widens the watchdog per consecutive retry of the
	// same command kind.
	watchdogIncrement = 3 * time.Second
)

// commandKind classifies the read sequence in flight.
type commandKind int

const (
	readAll commandKind = iota + 1
	readOne
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// RequestSender issues one device-directed command and reports its
// confirmation outcome. Satisfied by *handshake.DirectHandler.
type RequestSender interface {
	Send(ctx context.Context, cmd2 byte, userData []byte) insteon.ResponseStatus
}

// ReadManager drives retrieval of one remote device's ALDB.
//
// The device can stream its entire table in response to a bulk read, but
// any subset of the streamed records may be lost on the powerline. A bulk
// sequence therefore runs in two phases: repeat the bulk read while under
// budget, then walk the mirror for missing slots and repair them with
// single-record reads. A watchdog timer drives all policy decisions;
// record delivery itself only mutates the mirror.
//
// One read sequence is in flight at a time. A second Read call blocks on
// the completion gate until the first sequence ends.
type ReadManager struct {
	db      *ALDB
	handler RequestSender
	clock   clockwork.Clock
	gate    *handshake.Gate

	mu             sync.Mutex
	seq            uint64
	lastCommand    commandKind
	retriesAll     int
	retriesOne     int
	lastMemAddr    uint16
	watchdogCancel chan struct{}

	sub *plm.Subscription

	logger   Logger
	loggerMu sync.RWMutex
}

// NewReadManager creates a read manager for one device mirror and
// registers its interest in that device's ALDB record deliveries.
//
// Parameters:
//   - db: The device mirror to populate
//   - handler: Sender for ALDB read commands (two-stage direct handshake)
//   - registry: Transport registry delivering inbound records
//   - clock: Watchdog clock (clockwork.NewRealClock outside tests)
func NewReadManager(db *ALDB, handler RequestSender, registry *plm.Registry, clock clockwork.Clock) *ReadManager {
	m := &ReadManager{
		db:      db,
		handler: handler,
		clock:   clock,
		gate:    handshake.NewGate(),
	}
	m.sub = registry.Subscribe(
		plm.Topic{Address: db.Address(), Command: insteon.CmdReadWriteALDB},
		m.onMessage,
	)
	return m
}

// SetLogger sets the logger for this manager.
func (m *ReadManager) SetLogger(logger Logger) {
	m.loggerMu.Lock()
	m.logger = logger
	m.loggerMu.Unlock()
}

// Close cancels the manager's registry subscription.
func (m *ReadManager) Close() {
	m.sub.Cancel()
}

// Read synchronizes the mirror and blocks until the sequence ends.
//
// With memAddr and numRecs both zero the device is asked to stream its
// entire table; otherwise exactly one record at memAddr is requested. The
// sequence ends when the mirror is fully loaded (or, for a single read,
// when the target record arrives) or the retry budgets are exhausted.
// Either way the return value is the mirror's load status, and callers
// needing certainty should consult Loaded() after an interrupted context
// rather than trust a bare true/false.
//
// Parameters:
//   - ctx: Context for cancellation; ending it abandons the sequence
//   - memAddr: Record address, 0x0000 for the bulk read
//   - numRecs: Record count, 0 for the bulk read
//
// Returns:
//   - bool: The mirror's load status when the sequence ended
func (m *ReadManager) Read(ctx context.Context, memAddr uint16, numRecs uint8) bool {
	if err := m.gate.Begin(ctx); err != nil {
		return m.db.Loaded()
	}

	m.mu.Lock()
	m.seq++
	seq := m.seq
	if memAddr == 0x0000 && numRecs == 0 {
		m.lastCommand = readAll
	} else {
		m.lastCommand = readOne
	}
	m.retriesAll = 0
	m.retriesOne = 0
	m.lastMemAddr = 0
	m.mu.Unlock()

	m.logDebug("read sequence starting", "device", m.db.Address().String(),
		"mem_addr", memAddr, "num_recs", numRecs)
	m.issue(memAddr, numRecs, 0, seq)

	if err := m.gate.Wait(ctx); err != nil {
		// Caller gave up; end the sequence so the next Read can run.
		m.releaseSequence(seq)
		return m.db.Loaded()
	}
	return m.db.Loaded()
}

// Read requests are issued fire-and-forget: confirmation outcomes do not
// drive policy, the watchdog does. A lost request simply means the
// watchdog finds the mirror unchanged.
func (m *ReadManager) issue(memAddr uint16, numRecs uint8, retries int, seq uint64) {
	go m.handler.Send(context.Background(), 0x00, plm.EncodeALDBReadRequest(memAddr, numRecs))
	m.scheduleWatchdog(watchdogBase+time.Duration(retries)*watchdogIncrement, memAddr, numRecs, seq)
}

// scheduleWatchdog arms the sequence watchdog, cancelling any stale one
// so a superseding read cannot be re-evaluated by an old timer. Arming
// is a no-op when seq no longer identifies the live sequence.
func (m *ReadManager) scheduleWatchdog(d time.Duration, memAddr uint16, numRecs uint8, seq uint64) {
	m.mu.Lock()
	if seq != m.seq {
		m.mu.Unlock()
		return
	}
	if m.watchdogCancel != nil {
		close(m.watchdogCancel)
	}
	cancel := make(chan struct{})
	m.watchdogCancel = cancel
	m.mu.Unlock()

	timer := m.clock.After(d)
	go func() {
		select {
		case <-timer:
			m.evaluate(memAddr, numRecs, seq)
		case <-cancel:
		}
	}()
}

// releaseSequence ends the sequence identified by seq: it invalidates
// the sequence number, cancels its watchdog, and opens the gate. A call
// carrying a stale seq does nothing, so a finished or abandoned sequence
// can never tear down its successor's watchdog or gate.
func (m *ReadManager) releaseSequence(seq uint64) {
	m.mu.Lock()
	if seq != m.seq {
		m.mu.Unlock()
		return
	}
	m.seq++
	if m.watchdogCancel != nil {
		close(m.watchdogCancel)
		m.watchdogCancel = nil
	}
	m.mu.Unlock()
	m.gate.Release()
}

// evaluate is the watchdog body: decide whether the sequence is done,
// should repeat, or should repair a specific gap.
func (m *ReadManager) evaluate(memAddr uint16, numRecs uint8, seq uint64) {
	m.mu.Lock()
	if seq != m.seq {
		m.mu.Unlock()
		return
	}
	kind := m.lastCommand
	m.mu.Unlock()

	if kind == readAll {
		m.evaluateBulk(seq)
		return
	}
	m.evaluateSingle(memAddr, numRecs, seq)
}

// evaluateBulk manages a bulk-read sequence: repeat the full-table read
// while under budget, then repair gaps record by record until the mirror
// is loaded or the single-record budget runs out.
func (m *ReadManager) evaluateBulk(seq uint64) {
	if m.db.Loaded() {
		m.logDebug("mirror fully loaded", "device", m.db.Address().String(), "records", m.db.Len())
		m.releaseSequence(seq)
		return
	}

	m.mu.Lock()
	underAllBudget := m.retriesAll < retriesAllMax
	if underAllBudget {
		m.retriesAll++
	}
	retries := m.retriesAll
	m.mu.Unlock()

	if underAllBudget {
		m.issue(0x0000, 0, retries, seq)
		return
	}

	next, ok := m.nextMissingAddr()
	if !ok {
		// The walk hit the high-water mark yet Loaded() was false: the
		// mirror contradicts itself. Fail the sequence rather than stall.
		m.logError("gap search reached high-water mark on an unloaded mirror",
			"device", m.db.Address().String())
		m.releaseSequence(seq)
		return
	}

	m.mu.Lock()
	if next != m.lastMemAddr {
		// A different slot than the previous repair attempt; its retry
		// count starts fresh.
		m.lastMemAddr = next
		m.retriesOne = 0
		m.mu.Unlock()
		m.issue(next, 1, 0, seq)
		return
	}
	underOneBudget := m.retriesOne < retriesOneMax
	if underOneBudget {
		m.retriesOne++
	}
	retries = m.retriesOne
	m.mu.Unlock()

	if underOneBudget {
		m.issue(next, 1, retries, seq)
		return
	}
	// Same record refused to arrive too many times; give up with
	// whatever partial state the mirror holds.
	m.logWarn("single-record retry budget exhausted",
		"device", m.db.Address().String(), "mem_addr", next)
	m.releaseSequence(seq)
}

// evaluateSingle manages a targeted single-record read: done when the
// record is mirrored, retried under budget otherwise.
func (m *ReadManager) evaluateSingle(memAddr uint16, numRecs uint8, seq uint64) {
	if _, ok := m.db.Get(memAddr); ok {
		m.releaseSequence(seq)
		return
	}

	m.mu.Lock()
	underBudget := m.retriesOne < retriesOneMax
	if underBudget {
		m.retriesOne++
	}
	retries := m.retriesOne
	m.mu.Unlock()

	if underBudget {
		m.issue(memAddr, numRecs, retries, seq)
		return
	}
	m.releaseSequence(seq)
}

// nextMissingAddr walks the mirror in descending address order for the
// first unfilled slot.
//
// Returns (0, false) when the walk reaches the high-water mark, meaning
// the table is complete and nothing is missing.
func (m *ReadManager) nextMissingAddr() (uint16, bool) {
	if !m.hasFirstRecord() {
		// The first record itself is missing. Ask for a full stream via
		// 0x0000 first; once that request is out of budget, fall back to
		// the nominal first slot and stay there, so exhaustion against a
		// single address can end the sequence.
		m.mu.Lock()
		last := m.lastMemAddr
		retries := m.retriesOne
		m.mu.Unlock()
		if last == m.db.FirstMemAddr() || (last == 0x0000 && retries >= retriesOneMax) {
			return m.db.FirstMemAddr(), true
		}
		return 0x0000, true
	}

	var last uint16
	for _, addr := range m.db.Addresses() {
		rec, _ := m.db.Get(addr)
		if rec.IsHighWaterMark() {
			return 0, false
		}
		if last != 0 && last-insteon.RecordSize != addr {
			return last - insteon.RecordSize, true
		}
		last = addr
	}
	return last - insteon.RecordSize, true
}

// hasFirstRecord reports whether the table's first slot (or the
// conventional 0x0FFF fallback) is mirrored.
func (m *ReadManager) hasFirstRecord() bool {
	if m.db.Len() == 0 {
		return false
	}
	for _, addr := range m.db.Addresses() {
		if addr == m.db.FirstMemAddr() || addr == DefaultFirstMemAddr {
			return true
		}
	}
	return false
}

// onMessage receives asynchronous record deliveries. Keyed overwrite by
// the record's own address makes duplicate and out-of-order arrival safe.
func (m *ReadManager) onMessage(msg plm.Message) {
	if msg.ALDBRecord == nil {
		return
	}
	m.db.Set(*msg.ALDBRecord)
	m.logDebug("record received", "device", m.db.Address().String(),
		"mem_addr", msg.ALDBRecord.MemAddr)
}

// logDebug logs a debug message if logger is set.
func (m *ReadManager) logDebug(msg string, keysAndValues ...any) {
	m.loggerMu.RLock()
	logger := m.logger
	m.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (m *ReadManager) logWarn(msg string, keysAndValues ...any) {
	m.loggerMu.RLock()
	logger := m.logger
	m.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error if logger is set.
func (m *ReadManager) logError(msg string, keysAndValues ...any) {
	m.loggerMu.RLock()
	logger := m.logger
	m.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, keysAndValues...)
	}
}
