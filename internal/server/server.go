package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"machiavelli-server/internal/config"
	"machiavelli-server/internal/history"
	"machiavelli-server/internal/machiavelli"
	"machiavelli-server/internal/notify"
	"machiavelli-server/internal/protocol"
)

const (
	eventQueueSize  = 1024
	rateLimitWindow = time.Second
)

var ErrNotStarted = errors.New("NOT_STARTED: Server was never started")

// Dependencies are the optional backends. Zero values disable them.
type Dependencies struct {
	History   *history.Store
	Publisher *notify.Publisher
	Source    rand.Source // deck shuffles, random when nil
}

type Server struct {
	config config.Config
	codec  *protocol.Codec
	game   *machiavelli.Game

	reactor           *Reactor
	connectionManager *ConnectionManager
	sender            *MessageSender
	lifecycle         *lifecycleWorker
	history           *history.Store

	listener     net.Listener
	httpServer   *http.Server
	acceptors    sync.WaitGroup
	shutdownOnce sync.Once
}

func NewServer(cfg config.Config, deps Dependencies) (*Server, error) {
	codec, err := protocol.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}

	game := machiavelli.NewGame(machiavelli.Options{
		Seats:     cfg.Seats,
		AdminName: cfg.AdminName,
		HandSize:  cfg.HandSize,
		Source:    deps.Source,
	})

	connectionManager := NewConnectionManager()
	s := &Server{
		config:            cfg,
		codec:             codec,
		game:              game,
		reactor:           NewReactor(eventQueueSize),
		connectionManager: connectionManager,
		sender:            NewMessageSender(codec, connectionManager),
		lifecycle:         newLifecycleWorker(deps.History, deps.Publisher),
		history:           deps.History,
	}

	s.reactor.Register(EventAccept, EventHandlerFunc(s.handleAccept))
	s.reactor.Register(EventRead, EventHandlerFunc(s.handleRead))
	s.reactor.Register(EventClosed, EventHandlerFunc(s.handleClosed))
	s.reactor.Register(EventQuery, EventHandlerFunc(s.handleQuery))

	return s, nil
}

// Start binds the listeners and starts serving. Nothing is accepted if
// either bind fails.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.config.Port, err)
	}

	var httpListener net.Listener
	if s.config.HTTPPort > 0 {
		httpListener, err = net.Listen("tcp", fmt.Sprintf(":%d", s.config.HTTPPort))
		if err != nil {
			listener.Close()
			return fmt.Errorf("listen on http port %d: %w", s.config.HTTPPort, err)
		}
	}

	s.listener = listener
	go s.reactor.Run()
	go s.lifecycle.run()

	s.acceptors.Add(1)
	go s.acceptLoop()

	if httpListener != nil {
		s.httpServer = &http.Server{
			Handler:      s.RegisterRoutes(),
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
		go func() {
			if err := s.httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("HTTP server error: %v", err)
			}
		}()
		log.Printf("Status and websocket gateway on %s", httpListener.Addr())
	}

	log.Printf("Machiavelli table for %d on %s (%s codec)", s.config.Seats, listener.Addr(), s.codec.Name())
	return nil
}

// Addr is the game listener's address, valid after Start.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) acceptLoop() {
	defer s.acceptors.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Accept error: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		s.attach(context.Background(), conn)
	}
}

// attach hands a connection to the reactor, or hangs up if it is stopping.
func (s *Server) attach(ctx context.Context, conn net.Conn) error {
	if err := s.reactor.Post(ctx, Event{Kind: EventAccept, Conn: conn}); err != nil {
		conn.Close()
		return err
	}
	return nil
}

// Snapshot reads the table state through the reactor.
func (s *Server) Snapshot(ctx context.Context) (machiavelli.Snapshot, error) {
	reply := make(chan machiavelli.Snapshot, 1)
	query := Event{Kind: EventQuery, Query: func(g *machiavelli.Game) {
		reply <- g.Snapshot()
	}}
	if err := s.reactor.Post(ctx, query); err != nil {
		return machiavelli.Snapshot{}, err
	}

	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return machiavelli.Snapshot{}, ctx.Err()
	}
}

// ConnectionCount is the number of open sessions, seated or waiting.
func (s *Server) ConnectionCount() int {
	return s.connectionManager.Count()
}

// Shutdown stops accepting, hangs up on every session and flushes pending
// lifecycle events. The history store and publisher stay open. Only the
// first call does anything.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return ErrNotStarted
	}
	var err error
	s.shutdownOnce.Do(func() { err = s.shutdown(ctx) })
	return err
}

func (s *Server) shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	var errs []error
	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		errs = append(errs, err)
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}

	s.reactor.Stop()

	// The reactor is gone, so the sessions are ours now.
	for _, session := range s.connectionManager.All() {
		s.connectionManager.RemoveSession(session.Id)
		session.close()
	}

	if err := s.lifecycle.stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("lifecycle worker: %w", err))
	}

	s.acceptors.Wait()
	log.Println("Server shutdown complete")
	return errors.Join(errs...)
}
