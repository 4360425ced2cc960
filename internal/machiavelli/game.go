package machiavelli

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"machiavelli-server/internal/cards"
	"machiavelli-server/internal/protocol"

	"github.com/google/uuid"
)

type Phase string

const (
	WaitingForPlayers Phase = "WAITING_FOR_PLAYERS"
	InProgress        Phase = "IN_PROGRESS"
	Finished          Phase = "FINISHED"
)

const (
	DefaultHandSize  = 15
	DefaultAdminName = "Admin"
	maxNameLength    = 20
)

type Options struct {
	Seats     int
	AdminName string
	HandSize  int
	// Source seeds every shuffle. Nil means seeded from the clock.
	Source rand.Source
}

// Everyone addresses a delivery to every seated player.
const Everyone = -1

// Delivery is one command addressed to one seat, or to Everyone. The engine
// never talks to connections; the server turns deliveries into writes.
type Delivery struct {
	Seat    int
	Command protocol.Command
}

// Game is the single authoritative table. It is not safe for concurrent use:
// exactly one goroutine owns it.
type Game struct {
	Id         string    `json:"id"`
	Phase      Phase     `json:"phase"`
	Turn       int       `json:"turn"`
	Players    []*Player `json:"players"` // indexed by seat, nil when free
	Table      *Table    `json:"table"`
	HandSize   int       `json:"handSize"`
	Winner     int       `json:"winner"`
	Moves      int       `json:"moves"`
	Draws      int       `json:"draws"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	adminName    string
	nextPlayerId int
	rng          *rand.Rand
}

func NewGame(opts Options) *Game {
	if opts.Seats < 2 {
		opts.Seats = 2
	}
	if opts.HandSize <= 0 {
		opts.HandSize = DefaultHandSize
	}
	if opts.AdminName == "" {
		opts.AdminName = DefaultAdminName
	}
	if opts.Source == nil {
		opts.Source = rand.NewSource(time.Now().UnixNano())
	}

	rng := rand.New(opts.Source)
	return &Game{
		Id:        uuid.New().String(),
		Phase:     WaitingForPlayers,
		Players:   make([]*Player, opts.Seats),
		Table:     newTable(rng),
		HandSize:  opts.HandSize,
		Winner:    -1,
		adminName: opts.AdminName,
		rng:       rng,
	}
}

func (g *Game) SeatCount() int {
	return len(g.Players)
}

func (g *Game) Seated() int {
	count := 0
	for _, p := range g.Players {
		if p != nil {
			count++
		}
	}
	return count
}

func (g *Game) IsFull() bool {
	return g.Seated() == g.SeatCount()
}

func (g *Game) Player(seat int) (*Player, error) {
	if seat < 0 || seat >= len(g.Players) || g.Players[seat] == nil {
		return nil, ErrUnknownSeat
	}
	return g.Players[seat], nil
}

// CardCount is every card in hands, the pile and the melds. Always DeckSize.
func (g *Game) CardCount() int {
	count := g.Table.cardCount()
	for _, p := range g.Players {
		if p != nil {
			count += len(p.Hand)
		}
	}
	return count
}

// ============================================================================
// SEATING
// ============================================================================

// AddPlayer seats a new player in the lowest free seat. Whoever sits down at
// an empty table becomes its admin.
func (g *Game) AddPlayer() (*Player, error) {
	seat := -1
	for i, p := range g.Players {
		if p == nil {
			seat = i
			break
		}
	}
	if seat == -1 {
		return nil, ErrSeatUnavailable
	}

	admin := g.admin() == nil
	name := fmt.Sprintf("Player %d", seat+1)
	if admin {
		name = g.adminName
	}

	player := &Player{
		Seat:  seat,
		Id:    g.nextPlayerId,
		Name:  name,
		Hand:  make(PlayerHand),
		Admin: admin,
	}
	g.nextPlayerId++
	g.Players[seat] = player

	return player, nil
}

// IntroducePlayer tells everyone about the player in seat, and tells that
// player about everyone already seated.
func (g *Game) IntroducePlayer(seat int) ([]Delivery, error) {
	player, err := g.Player(seat)
	if err != nil {
		return nil, err
	}

	deliveries := g.announce(player)
	for _, other := range g.Players {
		if other != nil && other.Seat != seat {
			deliveries = append(deliveries, Delivery{Seat: seat, Command: introduction(other, false)})
		}
	}
	return deliveries, nil
}

// RenamePlayer answers WHO_ARE_YOU.
func (g *Game) RenamePlayer(seat int, name string) ([]Delivery, error) {
	player, err := g.Player(seat)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return nil, ErrInvalidName
	}

	player.Name = name
	return g.announce(player), nil
}

// RemovePlayer frees the seat of a player whose connection is gone. Leaving a
// round that has started throws the round away.
func (g *Game) RemovePlayer(seat int) ([]Delivery, error) {
	player, err := g.Player(seat)
	if err != nil {
		return nil, err
	}

	g.Players[seat] = nil
	deliveries := g.broadcast(protocol.New(protocol.KindPlayerRemoved, &protocol.PlayerRemoved{Seat: seat}))

	if player.Admin {
		if next := g.promoteNewAdmin(seat); next != nil {
			deliveries = append(deliveries, g.announce(next)...)
		}
	}

	if g.Phase != WaitingForPlayers {
		log.Printf("Seat %d left during round %s, resetting table", seat, g.Id)
		g.reset()
	}

	return deliveries, nil
}

func (g *Game) admin() *Player {
	for _, p := range g.Players {
		if p != nil && p.Admin {
			return p
		}
	}
	return nil
}

// promoteNewAdmin hands the table to the next seated player after the one
// who left, wrapping around.
func (g *Game) promoteNewAdmin(leftSeat int) *Player {
	for i := 1; i < len(g.Players); i++ {
		p := g.Players[(leftSeat+i)%len(g.Players)]
		if p != nil {
			p.Admin = true
			return p
		}
	}
	return nil
}

// ============================================================================
// ROUND LIFECYCLE
// ============================================================================

// StartGame deals a round once every seat is taken.
func (g *Game) StartGame() ([]Delivery, error) {
	if g.Phase != WaitingForPlayers {
		return nil, ErrGameAlreadyStarted
	}
	if !g.IsFull() {
		return nil, ErrNotEnoughPlayers
	}
	if g.SeatCount()*g.HandSize > g.Table.Deck.Count() {
		return nil, fmt.Errorf("%w: %d seats with %d cards each need more than %d cards", ErrDeckTooSmall, g.SeatCount(), g.HandSize, g.Table.Deck.Count())
	}

	g.Table.Deck.Shuffle()

	for range g.HandSize {
		for _, player := range g.Players {
			player.Hand.add(g.Table.Deck.Draw(1)...)
		}
	}

	var deliveries []Delivery
	for _, owner := range g.Players {
		open := owner.Hand.Cards()
		tokens := hidden(len(open))
		for _, recipient := range g.Players {
			dealt := tokens
			if recipient.Seat == owner.Seat {
				dealt = open
			}
			deliveries = append(deliveries, Delivery{
				Seat:    recipient.Seat,
				Command: protocol.New(protocol.KindDealHand, &protocol.DealHand{Seat: owner.Seat, Cards: dealt}),
			})
		}
	}

	g.Phase = InProgress
	g.Turn = 0
	g.Winner = -1
	g.Moves = 0
	g.Draws = 0
	g.StartedAt = time.Now()
	g.FinishedAt = time.Time{}

	deliveries = append(deliveries, g.broadcast(switchTurn(g.Turn))...)
	return deliveries, nil
}

// RestartGame lets the admin deal a new round after someone has won.
func (g *Game) RestartGame(seat int) ([]Delivery, error) {
	player, err := g.Player(seat)
	if err != nil {
		return nil, err
	}
	if !player.Admin {
		return nil, ErrNotAdmin
	}
	if g.Phase != Finished {
		return nil, ErrGameNotInProgress
	}

	g.reset()
	if !g.IsFull() {
		return nil, nil
	}
	return g.StartGame()
}

// reset clears hands and melds and prepares a freshly shuffled pile for the
// next round. Seats are kept.
func (g *Game) reset() {
	for _, player := range g.Players {
		if player != nil {
			clear(player.Hand)
		}
	}
	g.Table = newTable(g.rng)
	g.Phase = WaitingForPlayers
	g.Turn = 0
	g.Id = uuid.New().String()
}

// ============================================================================
// TURNS
// ============================================================================

func (g *Game) checkTurn(seat int) (*Player, error) {
	if g.Phase != InProgress {
		return nil, ErrGameNotInProgress
	}
	player, err := g.Player(seat)
	if err != nil {
		return nil, err
	}
	if seat != g.Turn {
		return nil, ErrNotYourTurn
	}
	return player, nil
}

// ApplyMove plays cards from the hand of seat and replaces the table with
// the layout the player ended up with. Nothing changes unless the whole move
// is legal: the cards must be in the player's hand, every card already on
// the table must still be there, and every meld must be valid.
func (g *Game) ApplyMove(seat int, played []cards.Card, table []cards.Meld) ([]Delivery, error) {
	player, err := g.checkTurn(seat)
	if err != nil {
		return nil, err
	}
	if len(played) == 0 {
		return nil, ErrNoCardsPlayed
	}

	// Cards are trusted by id only.
	expected := make(map[int]bool)
	for _, id := range g.Table.meldedIds() {
		expected[id] = true
	}

	playedCards := make([]cards.Card, 0, len(played))
	for _, card := range played {
		owned, ok := player.Hand[card.Id]
		if !ok {
			return nil, fmt.Errorf("%w: card %d is not in your hand", ErrIllegalMove, card.Id)
		}
		if expected[card.Id] {
			return nil, fmt.Errorf("%w: card %d played twice", ErrIllegalMove, card.Id)
		}
		expected[card.Id] = true
		playedCards = append(playedCards, owned)
	}

	melds := make([]cards.Meld, 0, len(table))
	for _, meld := range table {
		canonical := make(cards.Meld, 0, len(meld))
		for _, card := range meld {
			known, ok := cards.Lookup(card.Id)
			if !ok || !expected[card.Id] {
				return nil, fmt.Errorf("%w: card %d cannot be on the table", ErrIllegalMove, card.Id)
			}
			delete(expected, card.Id)
			canonical = append(canonical, known)
		}
		melds = append(melds, canonical)
	}
	if len(expected) > 0 {
		return nil, fmt.Errorf("%w: %d cards went missing from the table", ErrIllegalMove, len(expected))
	}

	for i, meld := range melds {
		if err := meld.Validate(cards.MinimumMeldSize); err != nil {
			return nil, fmt.Errorf("%w: meld %d: %v", ErrInvalidMeld, i+1, err)
		}
	}

	player.Hand.removeCards(cards.Ids(playedCards))
	g.Table.Melds = melds
	g.Moves++

	move := protocol.New(protocol.KindPlayerMove, &protocol.PlayerMove{
		Seat:        seat,
		PlayedCards: playedCards,
		Table:       melds,
	})
	deliveries := g.broadcastExcept(seat, move)

	if len(player.Hand) == 0 {
		g.Phase = Finished
		g.Winner = seat
		g.FinishedAt = time.Now()
		winner := protocol.New(protocol.KindSetWinner, &protocol.SetWinner{Seat: seat, Name: player.Name})
		return append(deliveries, g.broadcast(winner)...), nil
	}

	g.advanceTurn()
	return append(deliveries, g.broadcast(switchTurn(g.Turn))...), nil
}

// PassTurn draws the top card of the pile for seat and moves on. An empty
// pile just moves on.
func (g *Game) PassTurn(seat int) ([]Delivery, error) {
	player, err := g.checkTurn(seat)
	if err != nil {
		return nil, err
	}

	var deliveries []Delivery
	card, err := g.Table.Deck.DrawOne()
	if err == nil {
		player.Hand.add(card)
		g.Draws++
		for _, recipient := range g.Players {
			shown := card
			if recipient.Seat != seat {
				shown = card.Hide()
			}
			deliveries = append(deliveries, Delivery{
				Seat:    recipient.Seat,
				Command: protocol.New(protocol.KindDrawCard, &protocol.DrawCard{Seat: seat, Card: shown}),
			})
		}
	}

	g.advanceTurn()
	return append(deliveries, g.broadcast(switchTurn(g.Turn))...), nil
}

// advanceTurn moves the pointer to the next seated player in seat order.
func (g *Game) advanceTurn() {
	for i := 1; i <= len(g.Players); i++ {
		next := (g.Turn + i) % len(g.Players)
		if g.Players[next] != nil {
			g.Turn = next
			return
		}
	}
}

// ============================================================================
// DELIVERIES
// ============================================================================

func introduction(p *Player, isYou bool) protocol.Command {
	return protocol.New(protocol.KindIntroducePlayer, &protocol.IntroducePlayer{
		Name:     p.Name,
		PlayerID: p.Id,
		Seat:     p.Seat,
		Owner:    p.Admin,
		IsYou:    isYou,
	})
}

func switchTurn(seat int) protocol.Command {
	return protocol.New(protocol.KindSwitchTurn, &protocol.SwitchTurn{Seat: seat})
}

// announce introduces p to every seat, itself included.
func (g *Game) announce(p *Player) []Delivery {
	var deliveries []Delivery
	for _, recipient := range g.Players {
		if recipient != nil {
			deliveries = append(deliveries, Delivery{Seat: recipient.Seat, Command: introduction(p, recipient.Seat == p.Seat)})
		}
	}
	return deliveries
}

func (g *Game) broadcast(cmd protocol.Command) []Delivery {
	return []Delivery{{Seat: Everyone, Command: cmd}}
}

func (g *Game) broadcastExcept(seat int, cmd protocol.Command) []Delivery {
	var deliveries []Delivery
	for _, recipient := range g.Players {
		if recipient != nil && recipient.Seat != seat {
			deliveries = append(deliveries, Delivery{Seat: recipient.Seat, Command: cmd})
		}
	}
	return deliveries
}
