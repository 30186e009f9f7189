package handshake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
	"github.com/nerrad567/gray-logic-insteon/internal/plm"
)

// mockSender records sent frames and can simulate transport failure.
// An optional onSend hook lets tests inject the confirmation the real
// modem would deliver asynchronously.
type mockSender struct {
	mu     sync.Mutex
	sends  []sentFrame
	err    error
	onSend func(cmd insteon.Command, payload []byte)
}

type sentFrame struct {
	cmd     insteon.Command
	payload []byte
}

func (m *mockSender) SendCommand(_ context.Context, cmd insteon.Command, payload []byte) error {
	m.mu.Lock()
	m.sends = append(m.sends, sentFrame{cmd: cmd, payload: payload})
	hook := m.onSend
	err := m.err
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		go hook(cmd, payload)
	}
	return nil
}

func (m *mockSender) setOnSend(hook func(cmd insteon.Command, payload []byte)) {
	m.mu.Lock()
	m.onSend = hook
	m.mu.Unlock()
}

func (m *mockSender) sendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sends)
}

func TestHandler_AckIsSuccess(t *testing.T) {
	registry := plm.NewRegistry()
	sender := &mockSender{}
	sender.onSend = func(insteon.Command, []byte) {
		registry.Dispatch(plm.Message{
			Topic: plm.Topic{Command: insteon.CmdGetFirstAllLinkRecord},
			Kind:  plm.KindModemAck,
		})
	}

	h := NewHandler(sender, registry, insteon.CmdGetFirstAllLinkRecord)
	defer h.Close()

	if got := h.Send(context.Background(), nil); got != insteon.StatusSuccess {
		t.Errorf("Send() = %v, want success", got)
	}
}

func TestHandler_NakIsFailure(t *testing.T) {
	registry := plm.NewRegistry()
	sender := &mockSender{}
	sender.onSend = func(insteon.Command, []byte) {
		registry.Dispatch(plm.Message{
			Topic: plm.Topic{Command: insteon.CmdGetNextAllLinkRecord},
			Kind:  plm.KindModemNak,
		})
	}

	h := NewHandler(sender, registry, insteon.CmdGetNextAllLinkRecord)
	defer h.Close()

	if got := h.Send(context.Background(), nil); got != insteon.StatusFailure {
		t.Errorf("Send() = %v, want failure", got)
	}
}

func TestHandler_NoConfirmationIsTimeout(t *testing.T) {
	registry := plm.NewRegistry()
	sender := &mockSender{}

	h := NewHandler(sender, registry, insteon.CmdGetFirstAllLinkRecord)
	defer h.Close()
	h.SetTimeout(20 * time.Millisecond)

	if got := h.Send(context.Background(), nil); got != insteon.StatusTimeout {
		t.Errorf("Send() = %v, want timeout", got)
	}
}

func TestHandler_TransportErrorIsUnsent(t *testing.T) {
	registry := plm.NewRegistry()
	sender := &mockSender{err: errors.New("write failed")}

	h := NewHandler(sender, registry, insteon.CmdGetFirstAllLinkRecord)
	defer h.Close()

	if got := h.Send(context.Background(), nil); got != insteon.StatusUnsent {
		t.Errorf("Send() = %v, want unsent", got)
	}
}

func TestHandler_StaleConfirmationDiscarded(t *testing.T) {
	registry := plm.NewRegistry()
	sender := &mockSender{}

	h := NewHandler(sender, registry, insteon.CmdGetNextAllLinkRecord)
	defer h.Close()
	h.SetTimeout(20 * time.Millisecond)

	// First send times out; its confirmation arrives late.
	if got := h.Send(context.Background(), nil); got != insteon.StatusTimeout {
		t.Fatalf("first Send() = %v, want timeout", got)
	}
	registry.Dispatch(plm.Message{
		Topic: plm.Topic{Command: insteon.CmdGetNextAllLinkRecord},
		Kind:  plm.KindModemAck,
	})

	// The late ack must not satisfy the next send.
	if got := h.Send(context.Background(), nil); got != insteon.StatusTimeout {
		t.Errorf("second Send() = %v, want timeout (stale ack must be discarded)", got)
	}
	if sender.sendCount() != 2 {
		t.Errorf("sendCount = %d, want 2", sender.sendCount())
	}
}

func TestHandler_SetTimeoutDuringSends(t *testing.T) {
	registry := plm.NewRegistry()
	sender := &mockSender{}
	sender.onSend = func(insteon.Command, []byte) {
		registry.Dispatch(plm.Message{
			Topic: plm.Topic{Command: insteon.CmdGetFirstAllLinkRecord},
			Kind:  plm.KindModemAck,
		})
	}

	h := NewHandler(sender, registry, insteon.CmdGetFirstAllLinkRecord)
	defer h.Close()

	// Retuning the deadline while sends are in flight must stay safe
	// under the race detector.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			h.SetTimeout(time.Duration(i+1) * 10 * time.Millisecond)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if got := h.Send(context.Background(), nil); got != insteon.StatusSuccess {
				t.Errorf("Send() = %v, want success", got)
				return
			}
		}
	}()
	wg.Wait()
}
