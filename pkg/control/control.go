// Package control implements the handshake protocol between the controller
// and the agent process.
//
// The protocol is deliberately small: five fixed messages exchanged over a
// pair of unidirectional byte streams, one per direction. There is no
// framing beyond one newline-terminated token per message, no retries and
// no timeouts. A Channel owns one read stream and one write stream and so
// represents one side of the full-duplex conversation.
package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
)

// Message is one token of the control vocabulary.
type Message string

// The five messages of the protocol.
const (
	// MessageReady is sent by the agent once all fault units and the
	// logger are built and it is safe to command a start.
	MessageReady Message = "ready"
	// MessageSetupError is sent by the agent when initialization failed.
	MessageSetupError Message = "setup-error"
	// MessageGo commands the agent to begin injection.
	MessageGo Message = "go"
	// MessageDone is sent by the agent once every fault unit has run its
	// full window.
	MessageDone Message = "done"
	// MessageWriteLogs commands the agent to flush its logger and exit.
	MessageWriteLogs Message = "write-logs"
)

// Valid reports whether m is part of the protocol vocabulary.
func (m Message) Valid() bool {
	switch m {
	case MessageReady, MessageSetupError, MessageGo, MessageDone, MessageWriteLogs:
		return true
	}
	return false
}

// ErrClosed is returned when the peer's end of the channel is gone.
// Callers must treat it as fatal: the protocol has no recovery path.
var ErrClosed = errors.New("control channel closed")

// Channel is one side of the control conversation. Messages sent by the
// peer are read by a background goroutine and buffered, so TryRecv can
// check for a pending message without blocking or disturbing the stream.
type Channel struct {
	w     io.Writer
	inbox chan Message
}

// NewChannel returns a channel that receives from r and sends to w.
func NewChannel(r io.Reader, w io.Writer) *Channel {
	c := &Channel{
		w:     w,
		inbox: make(chan Message, 8),
	}
	go c.readLoop(r)
	return c
}

func (c *Channel) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		c.inbox <- Message(scanner.Text())
	}
	close(c.inbox)
}

// Send writes one message as a discrete newline-terminated token.
func (c *Channel) Send(m Message) error {
	if _, err := fmt.Fprintln(c.w, string(m)); err != nil {
		return fmt.Errorf("sending control message %q: %w", m, err)
	}
	return nil
}

// Recv blocks until a message arrives, the context is cancelled, or the
// peer closes its end.
func (c *Channel) Recv(ctx context.Context) (Message, error) {
	select {
	case m, ok := <-c.inbox:
		if !ok {
			return "", ErrClosed
		}
		return m, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// TryRecv returns a pending message without blocking. When no message is
// pending it returns false and leaves the channel untouched for the next
// call. A closed peer is reported through ErrClosed.
func (c *Channel) TryRecv() (Message, bool, error) {
	select {
	case m, ok := <-c.inbox:
		if !ok {
			return "", false, ErrClosed
		}
		return m, true, nil
	default:
		return "", false, nil
	}
}

// Close closes the write side if it is closable, signalling EOF to the
// peer's read loop.
func (c *Channel) Close() error {
	if closer, ok := c.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
