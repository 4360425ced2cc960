package server

import (
	"errors"
	"fmt"
	"log"

	"machiavelli-server/internal/machiavelli"
	"machiavelli-server/internal/protocol"
)

var ErrQueueFull = errors.New("QUEUE_FULL: Client is not reading fast enough")

// MessageSender encodes commands and queues them on sessions. It returns
// the sessions whose queue overflowed so the caller can drop them.
type MessageSender struct {
	codec       *protocol.Codec
	connections *ConnectionManager
}

func NewMessageSender(codec *protocol.Codec, connections *ConnectionManager) *MessageSender {
	return &MessageSender{codec: codec, connections: connections}
}

// SendTo sends one command to a single session
func (m *MessageSender) SendTo(session *Session, cmd protocol.Command) error {
	frame, err := m.codec.Encode(cmd)
	if err != nil {
		return fmt.Errorf("encode %s: %w", cmd.Kind, err)
	}
	if !session.enqueue(frame) {
		return ErrQueueFull
	}
	return nil
}

// Broadcast sends cmd to every seated session, encoding it once.
func (m *MessageSender) Broadcast(cmd protocol.Command) ([]*Session, error) {
	frame, err := m.codec.Encode(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd.Kind, err)
	}

	var overflowed []*Session
	for _, session := range m.connections.Seated() {
		if !session.enqueue(frame) {
			overflowed = append(overflowed, session)
		}
	}
	return overflowed, nil
}

// Deliver routes engine output to the sessions sitting in each seat.
// Deliveries for empty seats are dropped.
func (m *MessageSender) Deliver(deliveries []machiavelli.Delivery) []*Session {
	var overflowed []*Session
	for _, d := range deliveries {
		if d.Seat == machiavelli.Everyone {
			full, err := m.Broadcast(d.Command)
			if err != nil {
				log.Printf("Failed to broadcast %s: %v", d.Command.Kind, err)
			}
			overflowed = append(overflowed, full...)
			continue
		}

		session := m.connections.GetSessionBySeat(d.Seat)
		if session == nil {
			continue
		}
		if err := m.SendTo(session, d.Command); err != nil {
			if errors.Is(err, ErrQueueFull) {
				overflowed = append(overflowed, session)
				continue
			}
			log.Printf("Failed to send %s to seat %d: %v", d.Command.Kind, d.Seat, err)
		}
	}
	return overflowed
}
