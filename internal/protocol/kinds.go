package protocol

type Kind string

const (
	// Lobby
	KindWhoAreYou       Kind = "WHO_ARE_YOU"
	KindIntroducePlayer Kind = "INTRODUCE_PLAYER"
	KindTableIsFull     Kind = "TABLE_IS_FULL"
	KindPlayerRemoved   Kind = "PLAYER_REMOVED"

	// Dealing
	KindDealHand Kind = "DEAL_HAND"
	KindDrawCard Kind = "DRAW_CARD"

	// Turns
	KindPlayerMove   Kind = "PLAYER_MOVE"
	KindPassTurn     Kind = "PASS_TURN"
	KindSwitchTurn   Kind = "SWITCH_TURN"
	KindMoveRejected Kind = "MOVE_REJECTED"

	// End of round
	KindSetWinner   Kind = "SET_WINNER"
	KindRestartGame Kind = "RESTART_GAME"
)

// fromClient lists the kinds a client may send. Everything else is
// server-only and arriving from a client is a protocol violation.
var fromClient = map[Kind]bool{
	KindIntroducePlayer: true,
	KindPlayerMove:      true,
	KindPassTurn:        true,
	KindRestartGame:     true,
}

func (k Kind) FromClient() bool {
	return fromClient[k]
}
