package control

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func pair(t *testing.T) (left, right *Channel) {
	t.Helper()

	leftR, rightW := io.Pipe()
	rightR, leftW := io.Pipe()

	left = NewChannel(leftR, leftW)
	right = NewChannel(rightR, rightW)

	t.Cleanup(func() {
		_ = left.Close()
		_ = right.Close()
	})

	return left, right
}

func Test_SendRecv(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	left, right := pair(t)

	sent := []Message{MessageReady, MessageGo, MessageDone}
	go func() {
		for _, m := range sent {
			_ = left.Send(m)
		}
	}()

	for _, expected := range sent {
		got, err := right.Recv(ctx)
		if err != nil {
			t.Fatalf("receiving: %v", err)
		}
		if got != expected {
			t.Fatalf("expected %q got %q", expected, got)
		}
	}
}

func Test_TryRecv(t *testing.T) {
	t.Parallel()

	left, right := pair(t)

	if _, ok, err := right.TryRecv(); ok || err != nil {
		t.Fatalf("expected no pending message, got ok=%v err=%v", ok, err)
	}

	if err := left.Send(MessageDone); err != nil {
		t.Fatalf("sending: %v", err)
	}

	// the reader goroutine delivers asynchronously
	deadline := time.Now().Add(5 * time.Second)
	for {
		msg, ok, err := right.TryRecv()
		if err != nil {
			t.Fatalf("receiving: %v", err)
		}
		if ok {
			if msg != MessageDone {
				t.Fatalf("expected %q got %q", MessageDone, msg)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("message never arrived")
		}
		time.Sleep(time.Millisecond)
	}

	// consumed messages are not delivered twice
	if _, ok, err := right.TryRecv(); ok || err != nil {
		t.Fatalf("expected no pending message, got ok=%v err=%v", ok, err)
	}
}

func Test_RecvClosedPeer(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	left, right := pair(t)

	if err := left.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}

	if _, err := right.Recv(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		_, _, err := right.TryRecv()
		if errors.Is(err, ErrClosed) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("TryRecv never reported the closed peer")
		}
		time.Sleep(time.Millisecond)
	}
}

func Test_RecvCancellation(t *testing.T) {
	t.Parallel()

	_, right := pair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := right.Recv(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline, got %v", err)
	}
}

func Test_MessageValid(t *testing.T) {
	t.Parallel()

	for _, m := range []Message{MessageReady, MessageSetupError, MessageGo, MessageDone, MessageWriteLogs} {
		if !m.Valid() {
			t.Errorf("message %q must be valid", m)
		}
	}
	if Message("reboot").Valid() {
		t.Errorf("unknown message must not be valid")
	}
}
