package transport

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"

	"tickpipe/internal/frame"
	"tickpipe/pkg/exception"
	"tickpipe/pkg/uds"
)

// Listen opens a stream listener. network is "tcp" or "unix"; a stale unix
// socket file is removed first.
func Listen(network, addr string) (net.Listener, error) {
	if addr == "" {
		return nil, exception.ErrEmptyAddress
	}
	switch network {
	case "tcp", "tcp4", "tcp6":
		ln, err := net.Listen(network, addr)
		if err != nil {
			return nil, errors.Wrap(err, "listen tcp")
		}
		return ln, nil
	case "unix":
		return uds.Listen(addr)
	default:
		return nil, exception.ErrUnsupportedNetwork
	}
}

// Dial connects a framed stream to addr.
func Dial(ctx context.Context, network, addr string, maxPayload int) (*StreamConn, error) {
	if addr == "" {
		return nil, exception.ErrEmptyAddress
	}
	var (
		conn net.Conn
		err  error
	)
	switch network {
	case "tcp", "tcp4", "tcp6":
		var d net.Dialer
		conn, err = d.DialContext(ctx, network, addr)
	case "unix":
		var c *uds.Client
		if c, err = uds.NewClient(addr); err == nil {
			conn, err = c.Dial(ctx)
		}
	default:
		return nil, exception.ErrUnsupportedNetwork
	}
	if err != nil {
		return nil, errors.Wrap(err, "dial stream")
	}
	return NewStreamConn(conn, maxPayload), nil
}

// StreamConn carries frames over a connection-oriented socket. Send is safe
// for concurrent use; Recv must be called from one goroutine. Any protocol
// error closes the connection.
type StreamConn struct {
	conn net.Conn
	r    *frame.Reader

	wmu sync.Mutex
	w   *frame.Writer

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewStreamConn wraps an established connection.
func NewStreamConn(conn net.Conn, maxPayload int) *StreamConn {
	return &StreamConn{
		conn: conn,
		r:    frame.NewReader(conn, maxPayload),
		w:    frame.NewWriter(conn),
	}
}

// Send writes one whole frame.
func (c *StreamConn) Send(f frame.Frame) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.closed.Load() {
		return exception.ErrConnectionClosed
	}
	if err := c.w.WriteFrame(f); err != nil {
		_ = c.Close()
		return err
	}
	return nil
}

// Recv blocks for the next frame. The payload is valid until the next Recv.
// A malformed frame closes the connection and returns the framing error.
func (c *StreamConn) Recv() (frame.Frame, error) {
	f, err := c.r.ReadFrame()
	if err != nil {
		_ = c.Close()
		return frame.Frame{}, err
	}
	return f, nil
}

// SetDeadline applies a read and write deadline, zero clears it.
func (c *StreamConn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// RemoteAddr returns the peer address.
func (c *StreamConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the connection once.
func (c *StreamConn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
