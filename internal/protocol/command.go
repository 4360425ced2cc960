package protocol

import (
	"fmt"

	"machiavelli-server/internal/cards"
)

// Command is one protocol message. Payload is always the pointer type that
// NewPayload returns for Kind (or nil for kinds without one).
type Command struct {
	Kind    Kind
	Payload any
}

func New(kind Kind, payload any) Command {
	return Command{Kind: kind, Payload: payload}
}

func (c Command) String() string {
	return string(c.Kind)
}

// ============================================================================
// PAYLOADS
// ============================================================================

type WhoAreYou struct{}

// IntroducePlayer goes server to everyone when a seat fills or a name
// changes. From a client it only carries Name.
type IntroducePlayer struct {
	Name     string `json:"name" msgpack:"name"`
	PlayerID int    `json:"playerId" msgpack:"playerId"`
	Seat     int    `json:"seat" msgpack:"seat"`
	Owner    bool   `json:"owner" msgpack:"owner"`
	IsYou    bool   `json:"isYou" msgpack:"isYou"`
}

type TableIsFull struct {
	SeatCount int `json:"seatCount" msgpack:"seatCount"`
}

type PlayerRemoved struct {
	Seat int `json:"seat" msgpack:"seat"`
}

type DealHand struct {
	Seat  int          `json:"seat" msgpack:"seat"`
	Cards []cards.Card `json:"cards" msgpack:"cards"`
}

type DrawCard struct {
	Seat int        `json:"seat" msgpack:"seat"`
	Card cards.Card `json:"card" msgpack:"card"`
}

type PlayerMove struct {
	Seat        int          `json:"seat" msgpack:"seat"`
	PlayedCards []cards.Card `json:"playedCards" msgpack:"playedCards"`
	Table       []cards.Meld `json:"table" msgpack:"table"`
}

type PassTurn struct{}

type SwitchTurn struct {
	Seat int `json:"seat" msgpack:"seat"`
}

type MoveRejected struct {
	Code    string `json:"code" msgpack:"code"`
	Message string `json:"message" msgpack:"message"`
}

type SetWinner struct {
	Seat int    `json:"seat" msgpack:"seat"`
	Name string `json:"name" msgpack:"name"`
}

type RestartGame struct{}

// NewPayload returns an empty payload for kind, ready to be decoded into.
func NewPayload(kind Kind) (any, error) {
	switch kind {
	case KindWhoAreYou:
		return &WhoAreYou{}, nil
	case KindIntroducePlayer:
		return &IntroducePlayer{}, nil
	case KindTableIsFull:
		return &TableIsFull{}, nil
	case KindPlayerRemoved:
		return &PlayerRemoved{}, nil
	case KindDealHand:
		return &DealHand{}, nil
	case KindDrawCard:
		return &DrawCard{}, nil
	case KindPlayerMove:
		return &PlayerMove{}, nil
	case KindPassTurn:
		return &PassTurn{}, nil
	case KindSwitchTurn:
		return &SwitchTurn{}, nil
	case KindMoveRejected:
		return &MoveRejected{}, nil
	case KindSetWinner:
		return &SetWinner{}, nil
	case KindRestartGame:
		return &RestartGame{}, nil
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownKind, kind)
	}
}
