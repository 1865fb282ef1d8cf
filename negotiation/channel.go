package negotiation

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/AlexanderHott/rocksdb-memtable-switching/core"
)

// Channel is one logical duplex connection to the external decision
// process. Sends are serialized by an internal lock; there is exactly
// one receiver (the coordinator loop), so receives are not.
type Channel struct {
	conn net.Conn
	r    *bufio.Reader

	sendMu    sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewChannel wraps an established connection.
func NewChannel(conn net.Conn) *Channel {
	return &Channel{
		conn: conn,
		r:    bufio.NewReader(conn),
	}
}

// Dial connects to a listening negotiation endpoint. The decider side of
// the session uses this; tests use it to stand up both ends in-process.
func Dial(network, address string) (*Channel, error) {
	conn, err := net.Dial(network, address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial negotiation endpoint %s: %w", address, err)
	}
	return NewChannel(conn), nil
}

// Listener accepts a single negotiation session.
type Listener struct {
	ln net.Listener
}

// Listen binds the negotiation endpoint. The coordinator side owns the
// endpoint, matching the original bind/connect orientation.
func Listen(network, address string) (*Listener, error) {
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, fmt.Errorf("failed to bind negotiation endpoint %s: %w", address, err)
	}
	return &Listener{ln: ln}, nil
}

// Accept blocks for the decider's connection and returns its channel.
func (l *Listener) Accept() (*Channel, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, fmt.Errorf("failed to accept negotiation session: %w", err)
	}
	return NewChannel(conn), nil
}

// Close stops accepting sessions.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Send writes one framed message. Any failure is a transport failure:
// the session cannot make progress once the stream is broken.
func (c *Channel) Send(msgType MessageType, payload string) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := WriteFrame(c.conn, msgType, []byte(payload)); err != nil {
		return fmt.Errorf("%w: %w", core.ErrChannelClosed, err)
	}
	return nil
}

// Recv blocks for the next message. timeout bounds the wait when
// positive; a timed-out receive is reported via net.Error so the caller
// can treat it as recoverable, unlike other transport failures.
func (c *Channel) Recv(timeout time.Duration) (MessageType, string, error) {
	if timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return 0, "", fmt.Errorf("%w: %w", core.ErrChannelClosed, err)
		}
		defer c.conn.SetReadDeadline(time.Time{})
	}
	msgType, payload, err := ReadFrame(c.r)
	if err != nil {
		if IsTimeout(err) {
			return 0, "", err
		}
		return 0, "", fmt.Errorf("%w: %w", core.ErrChannelClosed, err)
	}
	return msgType, string(payload), nil
}

// Close shuts the underlying connection down. Safe to call more than
// once.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// IsTimeout reports whether err is a receive deadline expiry.
func IsTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
