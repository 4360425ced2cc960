package server

import (
	"context"
	"errors"
	"log"
	"net"
	"runtime/debug"
	"sync"

	"machiavelli-server/internal/machiavelli"
)

type EventKind int

const (
	EventAccept EventKind = iota // a new connection is waiting to be seated
	EventRead                    // bytes arrived on a session
	EventClosed                  // a session's stream ended or failed
	EventQuery                   // read engine state from outside the loop
)

func (k EventKind) String() string {
	switch k {
	case EventAccept:
		return "accept"
	case EventRead:
		return "read"
	case EventClosed:
		return "closed"
	case EventQuery:
		return "query"
	default:
		return "unknown"
	}
}

// Event is one unit of work for the reactor. Which fields are set depends
// on Kind.
type Event struct {
	Kind    EventKind
	Conn    net.Conn                // EventAccept
	Session *Session                // EventRead, EventClosed
	Data    []byte                  // EventRead
	Err     error                   // EventClosed
	Query   func(*machiavelli.Game) // EventQuery
}

type EventHandler interface {
	HandleEvent(ev Event) error
}

type EventHandlerFunc func(ev Event) error

func (f EventHandlerFunc) HandleEvent(ev Event) error {
	return f(ev)
}

var ErrReactorStopped = errors.New("REACTOR_STOPPED: Server is shutting down")

// Reactor runs every handler on a single goroutine, one event at a time.
// Anything that touches the game goes through its queue.
type Reactor struct {
	events   chan Event
	handlers map[EventKind]EventHandler

	stop     chan struct{}
	stopOnce sync.Once
	stopped  chan struct{}
}

func NewReactor(queueSize int) *Reactor {
	return &Reactor{
		events:   make(chan Event, queueSize),
		handlers: make(map[EventKind]EventHandler),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Register must be called before Run.
func (r *Reactor) Register(kind EventKind, handler EventHandler) {
	r.handlers[kind] = handler
}

// Post queues an event, waiting for room if the queue is full.
func (r *Reactor) Post(ctx context.Context, ev Event) error {
	select {
	case r.events <- ev:
		return nil
	case <-r.stop:
		return ErrReactorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reactor) Run() {
	defer close(r.stopped)

	for {
		select {
		case ev := <-r.events:
			r.dispatch(ev)
		case <-r.stop:
			return
		}
	}
}

// dispatch never lets a handler take the loop down with it.
func (r *Reactor) dispatch(ev Event) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("Panic handling %s event: %v\n%s", ev.Kind, p, debug.Stack())
		}
	}()

	handler, ok := r.handlers[ev.Kind]
	if !ok {
		log.Printf("No handler for %s event", ev.Kind)
		return
	}

	if err := handler.HandleEvent(ev); err != nil {
		log.Printf("Error handling %s event: %v", ev.Kind, err)
	}
}

// Stop ends Run and waits for the current event to finish. Queued events
// are dropped.
func (r *Reactor) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.stopped
}
