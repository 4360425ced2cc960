package machiavelli

import (
	"errors"
	"strings"

	"machiavelli-server/internal/protocol"
)

var (
	ErrSeatUnavailable    = errors.New("SEAT_UNAVAILABLE: Table is full")
	ErrUnknownSeat        = errors.New("UNKNOWN_SEAT: Nobody is sitting there")
	ErrNotYourTurn        = errors.New("NOT_YOUR_TURN: Wait for your turn")
	ErrInvalidMeld        = errors.New("INVALID_MELD: Table holds an invalid meld")
	ErrIllegalMove        = errors.New("ILLEGAL_MOVE: Cards do not add up")
	ErrNoCardsPlayed      = errors.New("NO_CARDS_PLAYED: Play at least one card or pass")
	ErrGameNotInProgress  = errors.New("GAME_NOT_IN_PROGRESS: No round is being played")
	ErrGameAlreadyStarted = errors.New("GAME_ALREADY_STARTED: Round already started")
	ErrNotEnoughPlayers   = errors.New("NOT_ENOUGH_PLAYERS: Waiting for more players")
	ErrDeckTooSmall       = errors.New("DECK_TOO_SMALL: Not enough cards to deal every hand")
	ErrNotAdmin           = errors.New("NOT_ADMIN: Only the table admin can do that")
	ErrInvalidName        = errors.New("NAME_INVALID: Name must be 1 to 20 characters")
)

// Rejection turns an engine error into the payload sent back to the player
// whose command failed. The code is the text before the first colon.
func Rejection(err error) *protocol.MoveRejected {
	code, message, found := strings.Cut(err.Error(), ": ")
	if !found {
		return &protocol.MoveRejected{Code: "REJECTED", Message: err.Error()}
	}
	return &protocol.MoveRejected{Code: code, Message: message}
}
