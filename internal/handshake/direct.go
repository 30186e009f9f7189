package handshake

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
	"github.com/nerrad567/gray-logic-insteon/internal/plm"
)

// DirectHandler correlates one device-directed command with its two-stage
// confirmation: the modem's echo ack first, then the device's direct ack
// or direct nak within a bounded additional wait.
//
// Only one exchange may be outstanding per (address, command) pair. A
// Send that overlaps an unresolved earlier Send supersedes it: the earlier
// caller's wait is forcibly released (it reports StatusTimeout) and
// subsequent confirmations resolve the newer exchange. Most-recent-intent
// beats FIFO here because devices single-thread their own command
// processing: queuing a stale command behind a newer one only wastes
// powerline airtime.
type DirectHandler struct {
	sender  Sender
	address insteon.Address
	command insteon.Command
	flags   byte

	ackTimeout    time.Duration
	directTimeout time.Duration

	mu      sync.Mutex
	pending *exchange
	sub     *plm.Subscription
}

// exchange is the wait state of one outstanding Send.
type exchange struct {
	modemAck   chan struct{}
	resolved   chan insteon.ResponseStatus
	superseded chan struct{}
}

func newExchange() *exchange {
	return &exchange{
		modemAck:   make(chan struct{}, 1),
		resolved:   make(chan insteon.ResponseStatus, 1),
		superseded: make(chan struct{}),
	}
}

// NewDirectHandler creates a handler for a device-directed command and
// registers its interest with the transport registry.
//
// Parameters:
//   - sender: Frame transmitter (the PLM client)
//   - registry: Transport registry for inbound routing
//   - address: Target device address
//   - command: cmd1 of the direct command
//   - flags: Insteon flag byte (plm.FlagsDirectStd or plm.FlagsDirectExt)
func NewDirectHandler(sender Sender, registry *plm.Registry, address insteon.Address, command insteon.Command, flags byte) *DirectHandler {
	h := &DirectHandler{
		sender:        sender,
		address:       address,
		command:       command,
		flags:         flags,
		ackTimeout:    DefaultAckTimeout,
		directTimeout: DefaultDirectAckTimeout,
	}
	h.sub = registry.Subscribe(plm.Topic{Address: address, Command: command}, h.onMessage)
	return h
}

// SetTimeouts overrides the two confirmation deadlines.
func (h *DirectHandler) SetTimeouts(ack, direct time.Duration) {
	h.mu.Lock()
	h.ackTimeout = ack
	h.directTimeout = direct
	h.mu.Unlock()
}

// Close cancels the handler's registry subscription.
func (h *DirectHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sub != nil {
		h.sub.Cancel()
		h.sub = nil
	}
}

// Send transmits the command and waits for the two-stage confirmation.
//
// Parameters:
//   - ctx: Context for cancellation
//   - cmd2: Command-specific second byte
//   - userData: 14-byte extended payload, nil for standard flags
//
// Returns:
//   - StatusSuccess: device direct ack observed
//   - StatusFailure: device direct nak observed (explicit rejection)
//   - StatusUnsent: never transmitted (transport error, modem nak, or
//     context ended before transmit)
//   - StatusTimeout: no confirmation before a deadline, or this wait was
//     superseded by a newer Send for the same (address, command)
func (h *DirectHandler) Send(ctx context.Context, cmd2 byte, userData []byte) insteon.ResponseStatus {
	payload, err := plm.EncodeSendInsteon(h.address, h.flags, byte(h.command), cmd2, userData)
	if err != nil {
		return insteon.StatusUnsent
	}

	ex := newExchange()
	h.mu.Lock()
	if h.pending != nil {
		close(h.pending.superseded)
	}
	h.pending = ex
	ackTimeout := h.ackTimeout
	directTimeout := h.directTimeout
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		if h.pending == ex {
			h.pending = nil
		}
		h.mu.Unlock()
	}()

	if err := h.sender.SendCommand(ctx, insteon.CmdSendInsteonMsg, payload); err != nil {
		return insteon.StatusUnsent
	}

	// Stage 1: modem echo ack.
	ackTimer := time.NewTimer(ackTimeout)
	defer ackTimer.Stop()

	select {
	case <-ex.modemAck:
	case status := <-ex.resolved:
		// Device answered before the echo was processed; accept it.
		return status
	case <-ex.superseded:
		return insteon.StatusTimeout
	case <-ackTimer.C:
		return insteon.StatusTimeout
	case <-ctx.Done():
		return insteon.StatusUnsent
	}

	// Stage 2: device direct ack or nak.
	directTimer := time.NewTimer(directTimeout)
	defer directTimer.Stop()

	select {
	case status := <-ex.resolved:
		return status
	case <-ex.superseded:
		return insteon.StatusTimeout
	case <-directTimer.C:
		return insteon.StatusTimeout
	case <-ctx.Done():
		return insteon.StatusUnsent
	}
}

// onMessage receives correlated confirmations from the registry.
func (h *DirectHandler) onMessage(msg plm.Message) {
	h.mu.Lock()
	ex := h.pending
	h.mu.Unlock()
	if ex == nil {
		return
	}

	switch msg.Kind {
	case plm.KindModemAck:
		select {
		case ex.modemAck <- struct{}{}:
		default:
		}
	case plm.KindModemNak:
		// Modem refused to transmit: the command never left the bridge.
		h.resolve(ex, insteon.StatusUnsent)
	case plm.KindDirectAck:
		h.resolve(ex, insteon.StatusSuccess)
	case plm.KindDirectNak:
		h.resolve(ex, insteon.StatusFailure)
	default:
		// Record deliveries and broadcasts are other subscribers' business.
	}
}

func (h *DirectHandler) resolve(ex *exchange, status insteon.ResponseStatus) {
	select {
	case ex.resolved <- status:
	default:
	}
}
