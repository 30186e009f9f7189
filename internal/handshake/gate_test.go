package handshake

import (
	"context"
	"testing"
	"time"
)

func TestGate_BeginWaitRelease(t *testing.T) {
	g := NewGate()
	ctx := context.Background()

	if err := g.Begin(ctx); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if !g.InFlight() {
		t.Error("InFlight() = false after Begin")
	}

	released := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Release()
		close(released)
	}()

	if err := g.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	<-released

	if g.InFlight() {
		t.Error("InFlight() = true after Release")
	}
}

func TestGate_SingleInFlight(t *testing.T) {
	g := NewGate()
	ctx := context.Background()

	if err := g.Begin(ctx); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	secondAdmitted := make(chan struct{})
	go func() {
		if err := g.Begin(ctx); err != nil {
			t.Errorf("second Begin() error = %v", err)
		}
		close(secondAdmitted)
	}()

	select {
	case <-secondAdmitted:
		t.Fatal("second Begin admitted while first sequence in flight")
	case <-time.After(50 * time.Millisecond):
	}

	g.Release()

	select {
	case <-secondAdmitted:
	case <-time.After(time.Second):
		t.Fatal("second Begin not admitted after Release")
	}
}

func TestGate_ReleaseIdempotent(t *testing.T) {
	g := NewGate()

	g.Release() // idle release is a no-op

	if err := g.Begin(context.Background()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	g.Release()
	g.Release() // double release must not unblock a future sequence early

	if err := g.Begin(context.Background()); err != nil {
		t.Fatalf("Begin() after double release error = %v", err)
	}
	if !g.InFlight() {
		t.Error("InFlight() = false after re-Begin")
	}
}

func TestGate_BeginContextCancelled(t *testing.T) {
	g := NewGate()
	if err := g.Begin(context.Background()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := g.Begin(ctx); err == nil {
		t.Error("Begin() with expired context expected error, got nil")
	}
}

func TestGate_WaitContextCancelled(t *testing.T) {
	g := NewGate()
	if err := g.Begin(context.Background()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := g.Wait(ctx); err == nil {
		t.Error("Wait() with expired context expected error, got nil")
	}
}
