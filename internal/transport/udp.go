package transport

import (
	"context"
	"errors"
	"net"
	"time"

	yerrors "github.com/yanun0323/errors"

	"tickpipe/internal/frame"
	"tickpipe/internal/obs"
	"tickpipe/internal/schema"
	"tickpipe/pkg/exception"
)

const udpNetwork = "udp"

// TickSender publishes ticks as datagrams on a connected UDP socket. It is
// not safe for concurrent use.
type TickSender struct {
	conn *net.UDPConn
	buf  []byte
	sink obs.Sink
}

// DialTicks connects a sender to the receiver at addr.
func DialTicks(addr string, sink obs.Sink) (*TickSender, error) {
	if addr == "" {
		return nil, exception.ErrEmptyAddress
	}
	raddr, err := net.ResolveUDPAddr(udpNetwork, addr)
	if err != nil {
		return nil, yerrors.Wrap(err, "resolve udp address")
	}
	conn, err := net.DialUDP(udpNetwork, nil, raddr)
	if err != nil {
		return nil, yerrors.Wrap(err, "dial udp")
	}
	return &TickSender{
		conn: conn,
		buf:  make([]byte, frame.DatagramSize),
		sink: obs.OrDiscard(sink),
	}, nil
}

// Send writes one tick. A failed send is counted and the tick is abandoned.
func (s *TickSender) Send(t schema.MarketTick) error {
	s.buf = frame.EncodeDatagram(s.buf, t)
	if _, err := s.conn.Write(s.buf); err != nil {
		s.sink.Inc(obs.SendErrors)
		return err
	}
	s.sink.Inc(obs.TicksSent)
	return nil
}

// Close closes the socket.
func (s *TickSender) Close() error {
	return s.conn.Close()
}

// TickHandler receives a decoded tick and its receipt time in nanoseconds.
type TickHandler func(t schema.MarketTick, tsRecv int64)

// TickReceiver reads market-data datagrams from a bound UDP port.
type TickReceiver struct {
	conn *net.UDPConn
	sink obs.Sink
}

// ListenTicks binds a receiver to addr. Use port 0 for an ephemeral port.
func ListenTicks(addr string, readBuffer int, sink obs.Sink) (*TickReceiver, error) {
	if addr == "" {
		return nil, exception.ErrEmptyAddress
	}
	laddr, err := net.ResolveUDPAddr(udpNetwork, addr)
	if err != nil {
		return nil, yerrors.Wrap(err, "resolve udp address")
	}
	conn, err := net.ListenUDP(udpNetwork, laddr)
	if err != nil {
		return nil, yerrors.Wrap(err, "listen udp")
	}
	if readBuffer > 0 {
		_ = conn.SetReadBuffer(readBuffer)
	}
	return &TickReceiver{conn: conn, sink: obs.OrDiscard(sink)}, nil
}

// Addr returns the bound local address.
func (r *TickReceiver) Addr() net.Addr {
	return r.conn.LocalAddr()
}

// Run reads datagrams and calls handler for each valid tick until ctx is
// done or the receiver is closed. Malformed datagrams are counted and dropped.
func (r *TickReceiver) Run(ctx context.Context, handler TickHandler) error {
	stop := context.AfterFunc(ctx, func() {
		_ = r.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, 2048)
	for {
		n, _, err := r.conn.ReadFromUDP(buf)
		tsRecv := time.Now().UnixNano()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return yerrors.Wrap(err, "read udp")
		}
		tick, err := frame.DecodeDatagram(buf[:n])
		if err != nil {
			r.sink.Inc(obs.Malformed)
			continue
		}
		r.sink.Inc(obs.TicksReceived)
		handler(tick, tsRecv)
	}
}

// Close closes the socket and unblocks Run.
func (r *TickReceiver) Close() error {
	return r.conn.Close()
}
