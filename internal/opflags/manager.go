package opflags

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
	"github.com/nerrad567/gray-logic-insteon/internal/plm"
)

// maxRetries bounds register read and write attempts.
const maxRetries = 5

// ErrUnknownFlag is returned when a named flag has no binding.
var ErrUnknownFlag = fmt.Errorf("opflags: unknown flag")

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

// Manager synchronizes one device's operating-flag registers.
//
// Bindings are registered by name and grouped by register; inbound
// register values are decoded against every binding for their group.
// Reads and writes retry up to the budget per register or per flag.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Read and Write serialize
//     on the device itself, so callers normally run them one at a time.
type Manager struct {
	address insteon.Address
	getter  RequestSender
	setter  RequestSender

	mu       sync.Mutex
	groups   map[uint8]map[int]Binding
	bindings map[string]Binding
	flags    map[string]*Flag

	// pendingGroup is the register a get is in flight for; the ack
	// carries only the value, so the group is remembered across the
	// exchange.
	pendingGroup uint8

	sub *plm.Subscription

	logger   Logger
	loggerMu sync.RWMutex
}

// NewManager creates a flag manager for one device.
//
// Parameters:
//   - address: The device whose registers are managed
//   - getter: Sender for the get-operating-flags command
//   - setter: Sender for the set-operating-flags command
//   - registry: Transport registry delivering register values
func NewManager(address insteon.Address, getter, setter RequestSender, registry *plm.Registry) *Manager {
	m := &Manager{
		address:  address,
		getter:   getter,
		setter:   setter,
		groups:   make(map[uint8]map[int]Binding),
		bindings: make(map[string]Binding),
		flags:    make(map[string]*Flag),
	}
	m.sub = registry.Subscribe(
		plm.Topic{Address: address, Command: insteon.CmdGetOperatingFlags},
		m.onMessage,
	)
	return m
}

// SetLogger sets the logger for this manager.
func (m *Manager) SetLogger(logger Logger) {
	m.loggerMu.Lock()
	m.logger = logger
	m.loggerMu.Unlock()
}

// Close cancels the manager's registry subscription.
func (m *Manager) Close() {
	m.sub.Cancel()
}

// Subscribe registers a flag binding and creates its flag. Re-subscribing
// a name replaces its binding but keeps the existing flag state.
func (m *Manager) Subscribe(b Binding) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.bindings[b.Name]; ok {
		m.removeLocked(old)
	}
	if m.groups[b.Group] == nil {
		m.groups[b.Group] = make(map[int]Binding)
	}
	m.groups[b.Group][b.Bit] = b
	m.bindings[b.Name] = b
	if m.flags[b.Name] == nil {
		m.flags[b.Name] = NewFlag()
	}
}

// Unsubscribe removes a flag binding and its flag.
func (m *Manager) Unsubscribe(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bindings[name]
	if !ok {
		return
	}
	m.removeLocked(b)
	delete(m.flags, name)
}

func (m *Manager) removeLocked(b Binding) {
	if bits, ok := m.groups[b.Group]; ok {
		delete(bits, b.Bit)
		if len(bits) == 0 {
			delete(m.groups, b.Group)
		}
	}
	delete(m.bindings, b.Name)
}

// Names returns the registered flag names in sorted order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.bindings))
	for name := range m.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Flag returns the flag registered under a name.
func (m *Manager) Flag(name string) (*Flag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.flags[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFlag, name)
	}
	return f, nil
}

// Read reads one register with bounded retry.
//
// Parameters:
//   - ctx: Context for cancellation
//   - group: The register to read
//
// Returns:
//   - insteon.ResponseStatus: The final attempt's outcome
func (m *Manager) Read(ctx context.Context, group uint8) insteon.ResponseStatus {
	m.mu.Lock()
	m.pendingGroup = group
	m.mu.Unlock()

	status := insteon.StatusUnsent
	for attempt := 0; attempt < maxRetries && status != insteon.StatusSuccess; attempt++ {
		status = m.getter.Send(ctx, group, nil)
	}
	if status != insteon.StatusSuccess {
		m.logWarn("register read failed", "device", m.address.String(), "group", group,
			"status", status.String())
	}
	return status
}

// ReadAll reads every register with at least one binding and aggregates
// the outcomes: any failure dominates, then any timeout.
func (m *Manager) ReadAll(ctx context.Context) insteon.ResponseStatus {
	m.mu.Lock()
	groups := make([]uint8, 0, len(m.groups))
	for group := range m.groups {
		groups = append(groups, group)
	}
	m.mu.Unlock()
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })

	statuses := make([]insteon.ResponseStatus, 0, len(groups))
	for _, group := range groups {
		statuses = append(statuses, m.Read(ctx, group))
	}
	return insteon.MultipleStatus(statuses...)
}

// Write pushes every dirty flag to the device.
//
// Each dirty flag's set or clear command is sent with bounded retry; on
// success the pending value is committed as confirmed. A read-only flag's
// pending value is silently reset to the confirmed one and counts as
// success. Outcomes are aggregated as in ReadAll.
func (m *Manager) Write(ctx context.Context) insteon.ResponseStatus {
	m.mu.Lock()
	names := make([]string, 0, len(m.bindings))
	for name := range m.bindings {
		names = append(names, name)
	}
	m.mu.Unlock()
	sort.Strings(names)

	var statuses []insteon.ResponseStatus
	for _, name := range names {
		m.mu.Lock()
		b, okB := m.bindings[name]
		f, okF := m.flags[name]
		m.mu.Unlock()
		if !okB || !okF || !f.Dirty() {
			continue
		}
		statuses = append(statuses, m.writeFlag(ctx, b, f))
	}
	if len(statuses) == 0 {
		return insteon.StatusSuccess
	}
	return insteon.MultipleStatus(statuses...)
}

func (m *Manager) writeFlag(ctx context.Context, b Binding, f *Flag) insteon.ResponseStatus {
	if b.ReadOnly {
		f.Load(f.Value())
		return insteon.StatusSuccess
	}

	pending := f.Pending()
	cmd := b.SetCmd
	if pending == 0 {
		cmd = b.UnsetCmd
	}

	status := insteon.StatusUnsent
	for attempt := 0; attempt < maxRetries && status != insteon.StatusSuccess; attempt++ {
		status = m.setter.Send(ctx, cmd, nil)
	}
	if status == insteon.StatusSuccess {
		f.Load(pending)
		m.logDebug("flag written", "device", m.address.String(), "flag", b.Name, "value", pending)
	} else {
		m.logWarn("flag write failed", "device", m.address.String(), "flag", b.Name,
			"status", status.String())
	}
	return status
}

// onMessage decodes an inbound register value against every binding for
// the in-flight group: bit bindings get 0 or 1, a whole-register binding
// gets the raw byte.
func (m *Manager) onMessage(msg plm.Message) {
	if msg.Kind != plm.KindDirectAck {
		return
	}
	raw := msg.Cmd2

	m.mu.Lock()
	group := m.pendingGroup
	bits, ok := m.groups[group]
	if !ok {
		m.mu.Unlock()
		return
	}
	type update struct {
		flag  *Flag
		value uint8
	}
	updates := make([]update, 0, len(bits))
	for bit, b := range bits {
		f, okF := m.flags[b.Name]
		if !okF {
			continue
		}
		if bit == WholeRegister {
			updates = append(updates, update{f, raw})
			continue
		}
		updates = append(updates, update{f, (raw >> uint(bit)) & 1})
	}
	m.mu.Unlock()

	for _, u := range updates {
		u.flag.Load(u.value)
	}
	m.logDebug("register decoded", "device", m.address.String(), "group", group, "value", raw)
}

// logDebug logs a debug message if logger is set.
func (m *Manager) logDebug(msg string, keysAndValues ...any) {
	m.loggerMu.RLock()
	logger := m.logger
	m.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (m *Manager) logWarn(msg string, keysAndValues ...any) {
	m.loggerMu.RLock()
	logger := m.logger
	m.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}
