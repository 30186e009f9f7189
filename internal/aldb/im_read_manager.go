package aldb

import (
	"context"
	"sync"

	"github.com/nerrad567/gray-logic-insteon/internal/handshake"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
	"github.com/nerrad567/gray-logic-insteon/internal/plm"
)

// modemRetriesMax bounds get-first and get-next attempts. The modem is
// wired directly to the host, so losses here are rare and short budgets
// suffice.
const modemRetriesMax = 3

// ModemCommandSender issues one modem-scoped command and reports its echo
// confirmation. Satisfied by *handshake.Handler.
type ModemCommandSender interface {
	Send(ctx context.Context, payload []byte) insteon.ResponseStatus
}

// ModemReadManager drains the modem's own All-Link database.
//
// The modem exposes a cursor protocol rather than random access: get-first
// primes iteration and each confirmed record delivery triggers one
// get-next. The stream has no positive end marker: iteration is over when
// get-next stops being acknowledged, so budget exhaustion on get-next is
// the load's normal completion path, not an error.
type ModemReadManager struct {
	db       *ModemALDB
	getFirst ModemCommandSender
	getNext  ModemCommandSender
	gate     *handshake.Gate

	sub *plm.Subscription

	logger   Logger
	loggerMu sync.RWMutex
}

// NewModemReadManager creates a read manager for the modem mirror and
// registers its interest in All-Link record deliveries.
//
// Parameters:
//   - db: The modem mirror to populate
//   - getFirst: Sender for the get-first cursor command
//   - getNext: Sender for the get-next cursor command
//   - registry: Transport registry delivering inbound records
func NewModemReadManager(db *ModemALDB, getFirst, getNext ModemCommandSender, registry *plm.Registry) *ModemReadManager {
	m := &ModemReadManager{
		db:       db,
		getFirst: getFirst,
		getNext:  getNext,
		gate:     handshake.NewGate(),
	}
	m.sub = registry.Subscribe(
		plm.Topic{Command: insteon.CmdAllLinkRecordResponse},
		m.onMessage,
	)
	return m
}

// SetLogger sets the logger for this manager.
func (m *ModemReadManager) SetLogger(logger Logger) {
	m.loggerMu.Lock()
	m.logger = logger
	m.loggerMu.Unlock()
}

// Close cancels the manager's registry subscription.
func (m *ModemReadManager) Close() {
	m.sub.Cancel()
}

// Load drains the modem's link table into the mirror and blocks until
// iteration ends.
//
// The mirror is reset first so a re-load replaces rather than extends the
// previous drain. Get-first is attempted up to the retry budget; if it is
// never acknowledged the load fails outright. Otherwise the caller blocks
// until the get-next chain stops being acknowledged, which is the
// protocol's only end-of-table signal.
//
// Parameters:
//   - ctx: Context for cancellation; ending it abandons the drain
//
// Returns:
//   - insteon.ResponseStatus: StatusSuccess when iteration completed,
//     StatusFailure when get-first was never acknowledged, StatusTimeout
//     when ctx ended first
func (m *ModemReadManager) Load(ctx context.Context) insteon.ResponseStatus {
	if err := m.gate.Begin(ctx); err != nil {
		return insteon.StatusTimeout
	}
	m.db.Reset()

	primed := false
	for attempt := 0; attempt < modemRetriesMax && !primed; attempt++ {
		primed = m.getFirst.Send(ctx, nil) == insteon.StatusSuccess
	}
	if !primed {
		m.logWarn("modem get-first never acknowledged")
		m.gate.Release()
		return insteon.StatusFailure
	}

	if err := m.gate.Wait(ctx); err != nil {
		m.gate.Release()
		return insteon.StatusTimeout
	}
	m.db.SetLoaded(true)
	m.logDebug("modem mirror loaded", "records", m.db.Len())
	return insteon.StatusSuccess
}

// onMessage appends each delivered record at the next descending slot and
// chains the following get-next from its own goroutine, keeping the
// transport's dispatch worker unblocked.
func (m *ModemReadManager) onMessage(msg plm.Message) {
	if msg.LinkRecord == nil {
		return
	}
	rec := m.db.Append(
		msg.LinkRecord.FlagsByte,
		msg.LinkRecord.Group,
		msg.LinkRecord.Address,
		msg.LinkRecord.Data1,
		msg.LinkRecord.Data2,
		msg.LinkRecord.Data3,
	)
	m.logDebug("modem record received", "mem_addr", rec.MemAddr, "target", rec.Target.String())
	go m.requestNext()
}

// requestNext advances the cursor. A get-next that exhausts its budget is
// the end of the table; the completion gate is released there and nowhere
// else once iteration is primed.
func (m *ModemReadManager) requestNext() {
	for attempt := 0; attempt < modemRetriesMax; attempt++ {
		if m.getNext.Send(context.Background(), nil) == insteon.StatusSuccess {
			return
		}
	}
	m.gate.Release()
}

// logDebug logs a debug message if logger is set.
func (m *ModemReadManager) logDebug(msg string, keysAndValues ...any) {
	m.loggerMu.RLock()
	logger := m.logger
	m.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (m *ModemReadManager) logWarn(msg string, keysAndValues ...any) {
	m.loggerMu.RLock()
	logger := m.logger
	m.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}
