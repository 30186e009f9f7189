package handshake

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
	"github.com/nerrad567/gray-logic-insteon/internal/plm"
)

// Default confirmation deadlines.
const (
	// DefaultAckTimeout is the wait for the modem's echo confirmation.
	DefaultAckTimeout = 3 * time.Second

	// DefaultDirectAckTimeout is the additional wait, after the modem
	// ack, for the device's direct ack or nak.
	DefaultDirectAckTimeout = 3 * time.Second
)

// Sender transmits one PLM frame. Satisfied by *plm.Client.
type Sender interface {
	SendCommand(ctx context.Context, cmd insteon.Command, payload []byte) error
}

// Handler correlates one modem-scoped command with its echo confirmation.
//
// Used for commands the modem answers itself (get-first / get-next
// All-Link record). The confirmation is a single ack or nak appended to
// the command echo; there is no device stage.
//
// Send may be called from multiple goroutines; calls are serialized so one
// echo cannot be attributed to the wrong send.
type Handler struct {
	sender   Sender
	command  insteon.Command
	timeout  time.Duration
	confirm  chan insteon.ResponseStatus
	sendMu   sync.Mutex
	sub      *plm.Subscription
	cancelMu sync.Mutex
}

// NewHandler creates a handler for a modem-scoped command and registers
// its interest with the transport registry.
func NewHandler(sender Sender, registry *plm.Registry, command insteon.Command) *Handler {
	h := &Handler{
		sender:  sender,
		command: command,
		timeout: DefaultAckTimeout,
		confirm: make(chan insteon.ResponseStatus, 1),
	}
	h.sub = registry.Subscribe(plm.Topic{Command: command}, h.onMessage)
	return h
}

// SetTimeout overrides the confirmation deadline. Taking the send lock
// keeps the override from tearing against a Send reading the deadline.
func (h *Handler) SetTimeout(d time.Duration) {
	h.sendMu.Lock()
	h.timeout = d
	h.sendMu.Unlock()
}

// Close cancels the handler's registry subscription.
func (h *Handler) Close() {
	h.cancelMu.Lock()
	defer h.cancelMu.Unlock()
	if h.sub != nil {
		h.sub.Cancel()
		h.sub = nil
	}
}

// Send transmits the command and waits for its echo confirmation.
//
// Returns:
//   - StatusSuccess: echo ack observed
//   - StatusFailure: echo nak observed (modem rejected, e.g. no more records)
//   - StatusUnsent: transport write failed or context ended before transmit
//   - StatusTimeout: no confirmation before the deadline
func (h *Handler) Send(ctx context.Context, payload []byte) insteon.ResponseStatus {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	// Discard any confirmation left over from a timed-out earlier send.
	select {
	case <-h.confirm:
	default:
	}

	if err := h.sender.SendCommand(ctx, h.command, payload); err != nil {
		return insteon.StatusUnsent
	}

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()

	select {
	case status := <-h.confirm:
		return status
	case <-timer.C:
		return insteon.StatusTimeout
	case <-ctx.Done():
		return insteon.StatusUnsent
	}
}

// onMessage receives echo confirmations from the registry.
func (h *Handler) onMessage(msg plm.Message) {
	var status insteon.ResponseStatus
	switch msg.Kind {
	case plm.KindModemAck:
		status = insteon.StatusSuccess
	case plm.KindModemNak:
		status = insteon.StatusFailure
	default:
		return
	}

	select {
	case h.confirm <- status:
	default:
		// No send in flight; stale confirmation dropped.
	}
}
