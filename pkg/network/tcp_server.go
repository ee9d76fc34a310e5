package network

import (
	"bufio"
	"errors"
	"io"
	"log"
	"net"

	"polyapprox/pkg/engine"
	"polyapprox/pkg/protocol"
)

// TCPServer 提供低开销的二进制接入通道, 面向高频采样写入
type TCPServer struct {
	addr     string
	eng      *engine.Engine
	listener net.Listener
}

func NewTCPServer(addr string, eng *engine.Engine) *TCPServer {
	return &TCPServer{addr: addr, eng: eng}
}

func (s *TCPServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	log.Printf("[TCP] listening on %s", s.addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("[TCP] accept: %v", err)
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *TCPServer) Stop() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *TCPServer) handleConn(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	for {
		req, err := protocol.ReadRequest(reader)
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				log.Printf("[TCP] read from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		if err := s.dispatch(writer, req); err != nil {
			log.Printf("[TCP] write to %s: %v", conn.RemoteAddr(), err)
			return
		}
		if err := writer.Flush(); err != nil {
			return
		}
	}
}

func (s *TCPServer) dispatch(w io.Writer, req protocol.Request) error {
	switch req.Op {
	case protocol.OpObserve:
		if len(req.Args) != 2 {
			return protocol.WriteError(w, errors.New("observe needs time and value"))
		}
		if _, err := s.eng.Observe(req.Series, req.Args[0], req.Args[1]); err != nil {
			return protocol.WriteError(w, err)
		}
		return protocol.WriteOK(w)

	case protocol.OpExtrapolate:
		if len(req.Args) != 1 {
			return protocol.WriteError(w, errors.New("extrapolate needs a time"))
		}
		v, err := s.eng.Extrapolate(req.Series, req.Args[0])
		if err != nil {
			return protocol.WriteError(w, err)
		}
		return protocol.WriteValues(w, []float64{v})

	case protocol.OpCoefs:
		if len(req.Args) != 1 {
			return protocol.WriteError(w, errors.New("coefs needs a moment"))
		}
		coefs, err := s.eng.Coefs(req.Series, req.Args[0])
		if err != nil {
			return protocol.WriteError(w, err)
		}
		return protocol.WriteValues(w, coefs)

	case protocol.OpHistory:
		if len(req.Args) != 2 {
			return protocol.WriteError(w, errors.New("history needs from and to"))
		}
		recs, err := s.eng.History(req.Series, req.Args[0], req.Args[1])
		if err != nil {
			return protocol.WriteError(w, err)
		}
		// Flattened as (time, value) pairs
		vals := make([]float64, 0, 2*len(recs))
		for _, rec := range recs {
			vals = append(vals, rec.Time, rec.Value)
		}
		return protocol.WriteValues(w, vals)

	case protocol.OpForget:
		if err := s.eng.Forget(req.Series); err != nil {
			return protocol.WriteError(w, err)
		}
		return protocol.WriteOK(w)

	default:
		return protocol.WriteError(w, errors.New("unknown operation"))
	}
}
