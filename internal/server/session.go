package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"machiavelli-server/internal/protocol"

	"github.com/google/uuid"
)

const (
	readBufferSize    = 4096
	outboundQueueSize = 256
	writeTimeout      = 10 * time.Second
	unseated          = -1
)

// Session is the network side of a player: one connection, its partial
// input, and its queue of outgoing frames. seat, decoder and the outbound
// queue belong to the reactor goroutine.
type Session struct {
	Id   string
	conn net.Conn

	decoder *protocol.Decoder
	seat    int
	out     chan []byte
	closed  bool

	// arrival times of recent commands, oldest first
	recent []time.Time

	closeOnce sync.Once
}

func newSession(conn net.Conn, codec *protocol.Codec) *Session {
	return &Session{
		Id:      uuid.New().String(),
		conn:    conn,
		decoder: codec.NewDecoder(),
		seat:    unseated,
		out:     make(chan []byte, outboundQueueSize),
	}
}

func (s *Session) Seat() int {
	return s.seat
}

func (s *Session) RemoteAddr() string {
	if addr := s.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}

// start launches the reader and writer goroutines.
func (s *Session) start(r *Reactor) {
	go s.writeLoop()
	go s.readLoop(r)
}

// enqueue hands a frame to the writer without blocking. It reports false
// when the client is not keeping up.
func (s *Session) enqueue(frame []byte) bool {
	if s.closed {
		return true
	}
	select {
	case s.out <- frame:
		return true
	default:
		return false
	}
}

// allowCommand records a command arriving at now, unless limit commands
// already arrived within window.
func (s *Session) allowCommand(now time.Time, limit int, window time.Duration) bool {
	cutoff := now.Add(-window)
	kept := s.recent[:0]
	for _, ts := range s.recent {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	s.recent = kept

	if len(s.recent) >= limit {
		return false
	}
	s.recent = append(s.recent, now)
	return true
}

// close lets the writer flush what is queued and then hang up.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.closed = true
		close(s.out)
	})
}

func (s *Session) readLoop(r *Reactor) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			ev := Event{Kind: EventRead, Session: s, Data: bytes.Clone(buf[:n])}
			if r.Post(context.Background(), ev) != nil {
				s.conn.Close()
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Printf("Connection %s read error: %v", s.Id, err)
			}
			r.Post(context.Background(), Event{Kind: EventClosed, Session: s, Err: err})
			return
		}
	}
}

func (s *Session) writeLoop() {
	defer s.conn.Close()

	for frame := range s.out {
		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := s.conn.Write(frame); err != nil {
			log.Printf("Connection %s write error: %v", s.Id, err)
			// The reader sees the closed socket and reports the disconnect.
			s.conn.Close()
			for range s.out {
			}
			return
		}
	}
}
