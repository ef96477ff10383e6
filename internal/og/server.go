package og

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/yanun0323/logs"

	"tickpipe/internal/codec"
	"tickpipe/internal/frame"
	"tickpipe/internal/schema"
	"tickpipe/internal/transport"
)

// Server exposes a Submitter over framed stream connections.
type Server struct {
	gw         Submitter
	maxPayload int

	mu    sync.Mutex
	conns map[*transport.StreamConn]struct{}
	wg    sync.WaitGroup
}

// NewServer wraps gw.
func NewServer(gw Submitter) *Server {
	return &Server{
		gw:         gw,
		maxPayload: codec.SignalMaxPayloadSize,
		conns:      make(map[*transport.StreamConn]struct{}),
	}
}

// Serve accepts connections until ctx is done or ln fails. It closes ln and
// every open connection before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer s.closeAll()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		sc := transport.NewStreamConn(conn, s.maxPayload)
		s.track(sc, true)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(sc, false)
			s.handle(ctx, sc)
		}()
	}
}

func (s *Server) track(sc *transport.StreamConn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[sc] = struct{}{}
	} else {
		delete(s.conns, sc)
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	for sc := range s.conns {
		_ = sc.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) handle(ctx context.Context, sc *transport.StreamConn) {
	defer sc.Close()
	peer := sc.RemoteAddr()
	var buf []byte

	for {
		f, err := sc.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			if frame.IsMalformed(err) {
				logs.Errorf("gateway: malformed frame from %v, closing: %+v", peer, err)
				return
			}
			if ctx.Err() == nil {
				logs.Errorf("gateway: read from %v: %+v", peer, err)
			}
			return
		}

		switch f.Type {
		case schema.MsgSignal:
			sig, ok := codec.DecodeSignal(f.Payload)
			if !ok {
				logs.Errorf("gateway: bad signal payload from %v, closing", peer)
				return
			}
			order, err := s.gw.Submit(ctx, sig)
			if err != nil {
				logs.Errorf("gateway: submit from %v: %+v", peer, err)
				return
			}
			buf = codec.EncodeOrderAck(buf, order)
			if err := sc.Send(frame.Frame{Type: schema.MsgOrderAck, Flags: frame.FlagChecksum, Payload: buf}); err != nil {
				return
			}
		case schema.MsgHeartbeat:
			buf = append(buf[:0], f.Payload...)
			if err := sc.Send(frame.Frame{Type: schema.MsgHeartbeat, Flags: f.Flags, Payload: buf}); err != nil {
				return
			}
		case schema.MsgShutdown:
			return
		default:
			logs.Errorf("gateway: unexpected %s from %v, closing", f.Type, peer)
			return
		}
	}
}
