package server

import (
	"errors"
	"fmt"
	"log"
	"time"

	"machiavelli-server/internal/machiavelli"
	"machiavelli-server/internal/notify"
	"machiavelli-server/internal/protocol"
)

var ErrServerOnlyKind = errors.New("SERVER_ONLY_KIND: Clients may not send this command")

// ============================================================================
// REACTOR HANDLERS
// ============================================================================

func (s *Server) handleAccept(ev Event) error {
	session := newSession(ev.Conn, s.codec)
	s.connectionManager.AddSession(session)
	session.start(s.reactor)
	log.Printf("New connection: %s from %s", session.Id, session.RemoteAddr())

	player, err := s.game.AddPlayer()
	if err != nil {
		log.Printf("Table full, connection %s left waiting", session.Id)
		return s.sendOrDrop(session, protocol.New(protocol.KindTableIsFull,
			&protocol.TableIsFull{SeatCount: s.game.SeatCount()}))
	}

	s.connectionManager.BindSeat(player.Seat, session)
	log.Printf("Connection %s seated at %d", session.Id, player.Seat)

	if err := s.apply(func() ([]machiavelli.Delivery, error) {
		return s.game.IntroducePlayer(player.Seat)
	}); err != nil {
		return err
	}
	if err := s.sendOrDrop(session, protocol.New(protocol.KindWhoAreYou, &protocol.WhoAreYou{})); err != nil {
		return err
	}

	s.lifecycle.Notify(lifecycleEvent{event: notify.Event{
		Type: notify.PlayerJoined, GameId: s.game.Id, Seat: player.Seat,
		Name: player.Name, Timestamp: time.Now(),
	}})

	if s.game.IsFull() && s.game.Phase == machiavelli.WaitingForPlayers {
		return s.apply(s.game.StartGame)
	}
	return nil
}

func (s *Server) handleRead(ev Event) error {
	session := ev.Session
	if s.connectionManager.GetSession(session.Id) == nil {
		return nil
	}

	session.decoder.Feed(ev.Data)
	for {
		cmd, ok, err := session.decoder.Next()
		if err != nil {
			s.dropSession(session, "undecodable input")
			return fmt.Errorf("connection %s: %w", session.Id, err)
		}
		if !ok {
			return nil
		}
		if !cmd.Kind.FromClient() {
			s.dropSession(session, "server-only command")
			return fmt.Errorf("connection %s sent %s: %w", session.Id, cmd.Kind, ErrServerOnlyKind)
		}

		if !session.allowCommand(time.Now(), s.config.RateLimit, rateLimitWindow) {
			log.Printf("Rate limit exceeded for connection %s", session.Id)
			if err := s.sendOrDrop(session, protocol.New(protocol.KindMoveRejected, &protocol.MoveRejected{
				Code:    "RATE_LIMITED",
				Message: "Too many commands, slow down",
			})); err != nil {
				return err
			}
			continue
		}

		s.handleCommand(session, cmd)

		// The command may have cost the session its seat or connection.
		if s.connectionManager.GetSession(session.Id) == nil {
			return nil
		}
	}
}

// handleCommand applies one client command. Rejections go back to the
// sender only.
func (s *Server) handleCommand(session *Session, cmd protocol.Command) {
	seat := session.Seat()
	if seat == unseated {
		log.Printf("Ignoring %s from unseated connection %s", cmd.Kind, session.Id)
		return
	}

	var err error
	switch payload := cmd.Payload.(type) {
	case *protocol.IntroducePlayer:
		err = s.apply(func() ([]machiavelli.Delivery, error) {
			return s.game.RenamePlayer(seat, payload.Name)
		})
	case *protocol.PlayerMove:
		if payload.Seat != seat {
			err = fmt.Errorf("%w: move claims seat %d", machiavelli.ErrIllegalMove, payload.Seat)
			break
		}
		err = s.apply(func() ([]machiavelli.Delivery, error) {
			return s.game.ApplyMove(seat, payload.PlayedCards, payload.Table)
		})
	case *protocol.PassTurn:
		err = s.apply(func() ([]machiavelli.Delivery, error) {
			return s.game.PassTurn(seat)
		})
	case *protocol.RestartGame:
		err = s.apply(func() ([]machiavelli.Delivery, error) {
			return s.game.RestartGame(seat)
		})
	default:
		err = fmt.Errorf("%w: '%s'", protocol.ErrUnknownKind, cmd.Kind)
	}

	if err != nil {
		log.Printf("Seat %d %s rejected: %v", seat, cmd.Kind, err)
		s.sendOrDrop(session, protocol.New(protocol.KindMoveRejected, machiavelli.Rejection(err)))
	}
}

func (s *Server) handleClosed(ev Event) error {
	s.dropSession(ev.Session, "connection closed")
	return nil
}

func (s *Server) handleQuery(ev Event) error {
	ev.Query(s.game)
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

// apply runs one engine call, delivers its output and reports phase changes.
func (s *Server) apply(op func() ([]machiavelli.Delivery, error)) error {
	before := s.game.Snapshot()
	deliveries, err := op()
	s.deliver(deliveries)
	s.observe(before, s.game.Snapshot())
	return err
}

func (s *Server) deliver(deliveries []machiavelli.Delivery) {
	for _, session := range s.sender.Deliver(deliveries) {
		s.dropSession(session, "outbound queue full")
	}
}

func (s *Server) sendOrDrop(session *Session, cmd protocol.Command) error {
	err := s.sender.SendTo(session, cmd)
	if errors.Is(err, ErrQueueFull) {
		s.dropSession(session, "outbound queue full")
	}
	return err
}

// dropSession forgets a session, hangs up, and frees its seat. Safe to call
// more than once.
func (s *Server) dropSession(session *Session, reason string) {
	seat := session.Seat()
	if !s.connectionManager.RemoveSession(session.Id) {
		return
	}
	session.close()
	log.Printf("Connection closed: %s (%s)", session.Id, reason)

	if seat == unseated {
		return
	}
	session.seat = unseated

	name := ""
	if player, err := s.game.Player(seat); err == nil {
		name = player.Name
	}
	gameId := s.game.Id

	if err := s.apply(func() ([]machiavelli.Delivery, error) {
		return s.game.RemovePlayer(seat)
	}); err != nil {
		log.Printf("Error removing seat %d: %v", seat, err)
		return
	}

	s.lifecycle.Notify(lifecycleEvent{event: notify.Event{
		Type: notify.PlayerRemoved, GameId: gameId, Seat: seat, Name: name, Timestamp: time.Now(),
	}})
}
