package og

import (
	"context"
	"sync"
	"time"

	"github.com/yanun0323/errors"

	"tickpipe/internal/codec"
	"tickpipe/internal/frame"
	"tickpipe/internal/schema"
	"tickpipe/internal/transport"
	"tickpipe/pkg/exception"
)

// Client submits signals to a remote gateway. Requests are serialised: one
// signal is in flight at a time.
type Client struct {
	mu     sync.Mutex
	conn   *transport.StreamConn
	buf    []byte
	closed bool
}

// DialClient connects to a gateway server.
func DialClient(ctx context.Context, network, addr string) (*Client, error) {
	conn, err := transport.Dial(ctx, network, addr, codec.OrderAckPayloadSize)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// NewClient wraps an established stream.
func NewClient(conn *transport.StreamConn) *Client {
	return &Client{conn: conn}
}

// Submit implements Submitter.
func (c *Client) Submit(ctx context.Context, sig schema.TradingSignal) (schema.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return schema.Order{}, exception.ErrGatewayClosed
	}
	defer c.deadline(ctx)()

	c.buf = codec.EncodeSignal(c.buf, sig)
	if err := c.conn.Send(frame.Frame{Type: schema.MsgSignal, Flags: frame.FlagChecksum, Payload: c.buf}); err != nil {
		return schema.Order{}, errors.Wrap(err, "send signal")
	}

	for {
		f, err := c.conn.Recv()
		if err != nil {
			return schema.Order{}, errors.Wrap(err, "recv ack")
		}
		switch f.Type {
		case schema.MsgHeartbeat:
			continue
		case schema.MsgOrderAck:
		default:
			_ = c.conn.Close()
			return schema.Order{}, exception.ErrGatewayUnexpectedMsg
		}
		order, ok := codec.DecodeOrderAck(f.Payload)
		if !ok {
			_ = c.conn.Close()
			return schema.Order{}, exception.ErrFrameMalformed
		}
		if order.SymbolID != sig.SymbolID || order.TsSignal != sig.TsSignal {
			_ = c.conn.Close()
			return schema.Order{}, exception.ErrGatewayAckMismatch
		}
		order.Strategy = sig.Strategy
		return order, nil
	}
}

// Ping sends a heartbeat and waits for its echo.
func (c *Client) Ping(ctx context.Context, sender uint16) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, exception.ErrGatewayClosed
	}
	defer c.deadline(ctx)()

	start := time.Now()
	c.buf = codec.EncodeHeartbeat(c.buf, schema.Heartbeat{Sender: sender, Ts: start.UnixNano()})
	if err := c.conn.Send(frame.Frame{Type: schema.MsgHeartbeat, Payload: c.buf}); err != nil {
		return 0, errors.Wrap(err, "send heartbeat")
	}
	f, err := c.conn.Recv()
	if err != nil {
		return 0, errors.Wrap(err, "recv heartbeat")
	}
	if f.Type != schema.MsgHeartbeat {
		_ = c.conn.Close()
		return 0, exception.ErrGatewayUnexpectedMsg
	}
	return time.Since(start), nil
}

// deadline maps the ctx deadline onto the socket and returns a reset func.
func (c *Client) deadline(ctx context.Context) func() {
	d, ok := ctx.Deadline()
	if !ok {
		return func() {}
	}
	_ = c.conn.SetDeadline(d)
	return func() { _ = c.conn.SetDeadline(time.Time{}) }
}

// Close tells the server to drop the session and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.conn.Send(frame.Frame{Type: schema.MsgShutdown})
	return c.conn.Close()
}
