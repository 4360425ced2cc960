package machiavelli_test

import (
	"math/rand"
	"slices"
	"testing"

	"machiavelli-server/internal/cards"
	"machiavelli-server/internal/machiavelli"
	"machiavelli-server/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ids in build order: (rank-1)*4 + suit for the first deck.
const (
	fourOfClubs    = 12
	fourOfDiamonds = 13
	fourOfHearts   = 14
	fiveOfClubs    = 16
	sixOfClubs     = 20
	sevenOfClubs   = 24
	eightOfClubs   = 28
	nineOfClubs    = 32
)

func newGame(seats int) *machiavelli.Game {
	return machiavelli.NewGame(machiavelli.Options{
		Seats:  seats,
		Source: rand.NewSource(7),
	})
}

func seatEveryone(t *testing.T, g *machiavelli.Game) {
	t.Helper()
	for !g.IsFull() {
		_, err := g.AddPlayer()
		require.NoError(t, err)
	}
}

func startedGame(t *testing.T, seats int) *machiavelli.Game {
	t.Helper()
	g := newGame(seats)
	seatEveryone(t, g)
	_, err := g.StartGame()
	require.NoError(t, err)
	return g
}

// take pulls a card out of wherever it is. A card taken from a hand is
// replaced with the top of the pile so every count stays the same.
func take(t *testing.T, g *machiavelli.Game, id int) cards.Card {
	t.Helper()

	pile := g.Table.Deck.Cards
	if i := slices.IndexFunc(pile, func(c cards.Card) bool { return c.Id == id }); i >= 0 {
		card := pile[i]
		g.Table.Deck.Cards = slices.Delete(pile, i, i+1)
		return card
	}

	for _, p := range g.Players {
		if p == nil {
			continue
		}
		if card, ok := p.Hand[id]; ok {
			delete(p.Hand, id)
			replacement, err := g.Table.Deck.DrawOne()
			require.NoError(t, err)
			p.Hand[replacement.Id] = replacement
			return card
		}
	}

	t.Fatalf("card %d is nowhere", id)
	return cards.Card{}
}

// rigHand gives seat exactly the cards in ids. Its old hand goes back on the pile.
func rigHand(t *testing.T, g *machiavelli.Game, seat int, ids ...int) {
	t.Helper()
	hand := g.Players[seat].Hand
	for id, card := range hand {
		g.Table.Deck.Cards = append(g.Table.Deck.Cards, card)
		delete(hand, id)
	}
	for _, id := range ids {
		card := take(t, g, id)
		hand[card.Id] = card
	}
}

func lookup(ids ...int) []cards.Card {
	var cs []cards.Card
	for _, id := range ids {
		card, _ := cards.Lookup(id)
		cs = append(cs, card)
	}
	return cs
}

func meld(ids ...int) cards.Meld {
	return cards.Meld(lookup(ids...))
}

func commandsFor(deliveries []machiavelli.Delivery, seat int) []protocol.Command {
	var cmds []protocol.Command
	for _, d := range deliveries {
		if d.Seat == seat || d.Seat == machiavelli.Everyone {
			cmds = append(cmds, d.Command)
		}
	}
	return cmds
}

func kinds(cmds []protocol.Command) []protocol.Kind {
	var ks []protocol.Kind
	for _, cmd := range cmds {
		ks = append(ks, cmd.Kind)
	}
	return ks
}

// allIds gathers every card id in hands, pile and melds.
func allIds(g *machiavelli.Game) []int {
	var ids []int
	for _, p := range g.Players {
		if p != nil {
			ids = append(ids, cards.Ids(p.Hand.Cards())...)
		}
	}
	ids = append(ids, cards.Ids(g.Table.Deck.Cards)...)
	for _, m := range g.Table.Melds {
		ids = append(ids, m.Ids()...)
	}
	slices.Sort(ids)
	return ids
}

func assertConserved(t *testing.T, g *machiavelli.Game) {
	t.Helper()
	want := make([]int, cards.DeckSize)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, allIds(g))
	assert.Equal(t, cards.DeckSize, g.CardCount())
}

func TestAddPlayer(t *testing.T) {
	assert := assert.New(t)
	g := newGame(2)

	first, err := g.AddPlayer()
	assert.NoError(err)
	assert.Equal(0, first.Seat)
	assert.True(first.Admin)
	assert.Equal(machiavelli.DefaultAdminName, first.Name)

	second, err := g.AddPlayer()
	assert.NoError(err)
	assert.Equal(1, second.Seat)
	assert.False(second.Admin)
	assert.Equal("Player 2", second.Name)
	assert.NotEqual(first.Id, second.Id)

	_, err = g.AddPlayer()
	assert.ErrorIs(err, machiavelli.ErrSeatUnavailable)
	assert.Equal(2, g.Seated())
}

func TestAdminNameOption(t *testing.T) {
	g := machiavelli.NewGame(machiavelli.Options{Seats: 3, AdminName: "Niccolò"})
	p, err := g.AddPlayer()
	require.NoError(t, err)
	assert.Equal(t, "Niccolò", p.Name)
}

func TestIntroducePlayer(t *testing.T) {
	assert := assert.New(t)
	g := newGame(2)
	seatEveryone(t, g)

	deliveries, err := g.IntroducePlayer(1)
	assert.NoError(err)
	assert.Len(deliveries, 3)

	toAdmin := commandsFor(deliveries, 0)
	assert.Len(toAdmin, 1)
	intro := toAdmin[0].Payload.(*protocol.IntroducePlayer)
	assert.Equal(1, intro.Seat)
	assert.False(intro.IsYou)
	assert.False(intro.Owner)

	toNewcomer := commandsFor(deliveries, 1)
	assert.Len(toNewcomer, 2)
	self := toNewcomer[0].Payload.(*protocol.IntroducePlayer)
	assert.Equal(1, self.Seat)
	assert.True(self.IsYou)
	admin := toNewcomer[1].Payload.(*protocol.IntroducePlayer)
	assert.Equal(0, admin.Seat)
	assert.True(admin.Owner)
	assert.False(admin.IsYou)

	_, err = g.IntroducePlayer(5)
	assert.ErrorIs(err, machiavelli.ErrUnknownSeat)
}

func TestRenamePlayer(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "Lorenzo", "Lorenzo", false},
		{"trimmed", "  Cesare  ", "Cesare", false},
		{"empty", "   ", "", true},
		{"too long", "Niccolò di Bernardo dei Machiavelli", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGame(2)
			seatEveryone(t, g)

			deliveries, err := g.RenamePlayer(1, tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, machiavelli.ErrInvalidName)
				assert.Equal(t, "Player 2", g.Players[1].Name)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, g.Players[1].Name)
			assert.Len(t, deliveries, 2)
			for _, d := range deliveries {
				intro := d.Command.Payload.(*protocol.IntroducePlayer)
				assert.Equal(t, tt.want, intro.Name)
				assert.Equal(t, d.Seat == 1, intro.IsYou)
			}
		})
	}
}

func TestStartGame(t *testing.T) {
	assert := assert.New(t)
	g := newGame(2)

	_, err := g.AddPlayer()
	require.NoError(t, err)
	_, err = g.StartGame()
	assert.ErrorIs(err, machiavelli.ErrNotEnoughPlayers)
	assert.Equal(machiavelli.WaitingForPlayers, g.Phase)

	_, err = g.AddPlayer()
	require.NoError(t, err)
	deliveries, err := g.StartGame()
	require.NoError(t, err)

	assert.Equal(machiavelli.InProgress, g.Phase)
	assert.Equal(0, g.Turn)
	assert.Len(g.Players[0].Hand, machiavelli.DefaultHandSize)
	assert.Len(g.Players[1].Hand, machiavelli.DefaultHandSize)
	assert.Equal(cards.DeckSize-2*machiavelli.DefaultHandSize, g.Table.Deck.Count())
	assertConserved(t, g)

	for seat := range 2 {
		cmds := commandsFor(deliveries, seat)
		assert.Equal([]protocol.Kind{protocol.KindDealHand, protocol.KindDealHand, protocol.KindSwitchTurn}, kinds(cmds))

		for _, cmd := range cmds[:2] {
			deal := cmd.Payload.(*protocol.DealHand)
			assert.Len(deal.Cards, machiavelli.DefaultHandSize)
			if deal.Seat == seat {
				assert.Equal(g.Players[seat].Hand.Cards(), deal.Cards)
				continue
			}
			for _, card := range deal.Cards {
				assert.True(card.Hidden)
				assert.Equal(cards.HiddenId, card.Id)
			}
		}
		assert.Equal(0, cmds[2].Payload.(*protocol.SwitchTurn).Seat)
	}

	_, err = g.StartGame()
	assert.ErrorIs(err, machiavelli.ErrGameAlreadyStarted)
}

func TestStartGameTooManyCards(t *testing.T) {
	g := machiavelli.NewGame(machiavelli.Options{Seats: 4, HandSize: 30})
	seatEveryone(t, g)

	_, err := g.StartGame()
	assert.ErrorIs(t, err, machiavelli.ErrDeckTooSmall)
	assert.NotErrorIs(t, err, machiavelli.ErrNotEnoughPlayers)
	assert.Equal(t, "DECK_TOO_SMALL", machiavelli.Rejection(err).Code)
	assert.Equal(t, machiavelli.WaitingForPlayers, g.Phase)
	assert.Equal(t, cards.DeckSize, g.Table.Deck.Count())
}

func TestPassTurn(t *testing.T) {
	assert := assert.New(t)
	g := startedGame(t, 2)
	pile := g.Table.Deck.Count()

	deliveries, err := g.PassTurn(0)
	require.NoError(t, err)

	assert.Len(g.Players[0].Hand, machiavelli.DefaultHandSize+1)
	assert.Equal(pile-1, g.Table.Deck.Count())
	assert.Equal(1, g.Turn)
	assert.Equal(1, g.Draws)
	assertConserved(t, g)

	own := commandsFor(deliveries, 0)
	assert.Equal([]protocol.Kind{protocol.KindDrawCard, protocol.KindSwitchTurn}, kinds(own))
	drawn := own[0].Payload.(*protocol.DrawCard).Card
	assert.False(drawn.Hidden)
	assert.Contains(g.Players[0].Hand, drawn.Id)

	other := commandsFor(deliveries, 1)
	assert.Equal([]protocol.Kind{protocol.KindDrawCard, protocol.KindSwitchTurn}, kinds(other))
	seen := other[0].Payload.(*protocol.DrawCard)
	assert.Equal(0, seen.Seat)
	assert.True(seen.Card.Hidden)
	assert.Equal(1, other[1].Payload.(*protocol.SwitchTurn).Seat)
}

func TestPassTurnEmptyPile(t *testing.T) {
	g := machiavelli.NewGame(machiavelli.Options{Seats: 2, HandSize: cards.DeckSize / 2})
	seatEveryone(t, g)
	_, err := g.StartGame()
	require.NoError(t, err)
	require.Equal(t, 0, g.Table.Deck.Count())

	deliveries, err := g.PassTurn(0)
	assert.NoError(t, err)
	assert.Equal(t, []protocol.Kind{protocol.KindSwitchTurn}, kinds(commandsFor(deliveries, 0)))
	assert.Equal(t, []machiavelli.Delivery{{
		Seat:    machiavelli.Everyone,
		Command: protocol.New(protocol.KindSwitchTurn, &protocol.SwitchTurn{Seat: 1}),
	}}, deliveries)
	assert.Len(t, g.Players[0].Hand, cards.DeckSize/2)
	assert.Equal(t, 1, g.Turn)
	assertConserved(t, g)
}

func TestNotYourTurnChangesNothing(t *testing.T) {
	g := startedGame(t, 2)
	rigHand(t, g, 1, fiveOfClubs, sixOfClubs, sevenOfClubs, nineOfClubs)
	before := g.Snapshot()
	hand := g.Players[1].Hand.Cards()

	_, err := g.PassTurn(1)
	assert.ErrorIs(t, err, machiavelli.ErrNotYourTurn)

	_, err = g.ApplyMove(1, lookup(fiveOfClubs, sixOfClubs, sevenOfClubs), []cards.Meld{meld(fiveOfClubs, sixOfClubs, sevenOfClubs)})
	assert.ErrorIs(t, err, machiavelli.ErrNotYourTurn)

	assert.Equal(t, before, g.Snapshot())
	assert.Equal(t, hand, g.Players[1].Hand.Cards())
	assertConserved(t, g)
}

func TestApplyMoveRejected(t *testing.T) {
	tests := []struct {
		name   string
		played []int
		table  []cards.Meld
		want   error
	}{
		{
			name:   "nothing played",
			played: nil,
			table:  []cards.Meld{meld(fourOfClubs, fiveOfClubs, sixOfClubs)},
			want:   machiavelli.ErrNoCardsPlayed,
		},
		{
			name:   "card not in hand",
			played: []int{sevenOfClubs, eightOfClubs},
			table:  []cards.Meld{meld(fourOfClubs, fiveOfClubs, sixOfClubs, sevenOfClubs, eightOfClubs)},
			want:   machiavelli.ErrIllegalMove,
		},
		{
			name:   "table card disappears",
			played: []int{sevenOfClubs},
			table:  []cards.Meld{meld(fiveOfClubs, sixOfClubs, sevenOfClubs)},
			want:   machiavelli.ErrIllegalMove,
		},
		{
			name:   "played card not laid down",
			played: []int{sevenOfClubs, nineOfClubs},
			table:  []cards.Meld{meld(fourOfClubs, fiveOfClubs, sixOfClubs, sevenOfClubs)},
			want:   machiavelli.ErrIllegalMove,
		},
		{
			name:   "card appears twice",
			played: []int{sevenOfClubs},
			table:  []cards.Meld{meld(fourOfClubs, fiveOfClubs, sixOfClubs, sevenOfClubs), meld(sevenOfClubs, sevenOfClubs, sevenOfClubs)},
			want:   machiavelli.ErrIllegalMove,
		},
		{
			name:   "meld too short",
			played: []int{sevenOfClubs},
			table:  []cards.Meld{meld(fourOfClubs, fiveOfClubs), meld(sixOfClubs, sevenOfClubs)},
			want:   machiavelli.ErrInvalidMeld,
		},
		{
			name:   "gap in run",
			played: []int{nineOfClubs},
			table:  []cards.Meld{meld(fourOfClubs, fiveOfClubs, sixOfClubs, nineOfClubs)},
			want:   machiavelli.ErrInvalidMeld,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := startedGame(t, 2)
			g.Table.Melds = []cards.Meld{{take(t, g, fourOfClubs), take(t, g, fiveOfClubs), take(t, g, sixOfClubs)}}
			rigHand(t, g, 0, sevenOfClubs, nineOfClubs, 0, 1)
			before := g.Snapshot()
			melds := slices.Clone(g.Table.Melds)

			_, err := g.ApplyMove(0, lookup(tt.played...), tt.table)
			assert.ErrorIs(t, err, tt.want)

			assert.Equal(t, before, g.Snapshot())
			assert.Equal(t, melds, g.Table.Melds)
			assert.Len(t, g.Players[0].Hand, 4)
			assertConserved(t, g)
		})
	}
}

func TestApplyMoveRearrangesTable(t *testing.T) {
	assert := assert.New(t)
	g := startedGame(t, 2)
	g.Table.Melds = []cards.Meld{{take(t, g, fourOfClubs), take(t, g, fiveOfClubs), take(t, g, sixOfClubs), take(t, g, sevenOfClubs)}}
	rigHand(t, g, 0, eightOfClubs, 0, fourOfDiamonds, fourOfHearts)

	// Split 4-5-6-7 and use the four of clubs in a group.
	played := lookup(eightOfClubs, fourOfDiamonds, fourOfHearts)
	table := []cards.Meld{meld(fiveOfClubs, sixOfClubs, sevenOfClubs, eightOfClubs), meld(fourOfClubs, fourOfDiamonds, fourOfHearts)}

	// Clients cannot rename cards: only ids count.
	forged := slices.Clone(played)
	forged[0].Rank = cards.King

	deliveries, err := g.ApplyMove(0, forged, table)
	require.NoError(t, err)

	assert.Equal(table, g.Table.Melds)
	assert.Len(g.Players[0].Hand, 1)
	assert.Contains(g.Players[0].Hand, 0)
	assert.Equal(1, g.Turn)
	assert.Equal(1, g.Moves)
	assertConserved(t, g)

	assert.Equal([]protocol.Kind{protocol.KindSwitchTurn}, kinds(commandsFor(deliveries, 0)))
	other := commandsFor(deliveries, 1)
	assert.Equal([]protocol.Kind{protocol.KindPlayerMove, protocol.KindSwitchTurn}, kinds(other))
	move := other[0].Payload.(*protocol.PlayerMove)
	assert.Equal(0, move.Seat)
	assert.Equal(played, move.PlayedCards)
	assert.Equal(table, move.Table)
}

// Two seats: seat 0 passes, seat 1 fails with a short meld, then goes out.
func TestEndToEndRound(t *testing.T) {
	assert := assert.New(t)
	g := newGame(2)

	a, err := g.AddPlayer()
	require.NoError(t, err)
	assert.True(a.Admin)
	b, err := g.AddPlayer()
	require.NoError(t, err)

	_, err = g.StartGame()
	require.NoError(t, err)
	assert.Equal(machiavelli.InProgress, g.Phase)
	assert.Equal(0, g.Turn)
	assertConserved(t, g)

	rigHand(t, g, b.Seat, fiveOfClubs, sixOfClubs, sevenOfClubs)

	_, err = g.PassTurn(a.Seat)
	require.NoError(t, err)
	assert.Len(a.Hand, machiavelli.DefaultHandSize+1)
	assert.Equal(1, g.Turn)

	before := g.Snapshot()
	_, err = g.ApplyMove(b.Seat, lookup(fiveOfClubs, sixOfClubs), []cards.Meld{meld(fiveOfClubs, sixOfClubs)})
	assert.ErrorIs(err, machiavelli.ErrInvalidMeld)
	assert.Equal(before, g.Snapshot())
	assert.Equal(1, g.Turn)

	deliveries, err := g.ApplyMove(b.Seat, lookup(fiveOfClubs, sixOfClubs, sevenOfClubs), []cards.Meld{meld(fiveOfClubs, sixOfClubs, sevenOfClubs)})
	require.NoError(t, err)
	assert.Equal(machiavelli.Finished, g.Phase)
	assert.Equal(b.Seat, g.Winner)
	assert.Empty(b.Hand)
	assertConserved(t, g)

	for seat := range 2 {
		cmds := commandsFor(deliveries, seat)
		last := cmds[len(cmds)-1]
		assert.Equal(protocol.KindSetWinner, last.Kind)
		assert.Equal(b.Seat, last.Payload.(*protocol.SetWinner).Seat)
	}

	_, err = g.PassTurn(a.Seat)
	assert.ErrorIs(err, machiavelli.ErrGameNotInProgress)
}

func TestCardConservation(t *testing.T) {
	g := startedGame(t, 3)
	rng := rand.New(rand.NewSource(3))

	for range 60 {
		seat := g.Turn
		// Now and then lay down whatever run of clubs is still free.
		if rng.Intn(4) == 0 && len(g.Table.Melds) == 0 {
			rigHand(t, g, seat, fiveOfClubs, sixOfClubs, sevenOfClubs, nineOfClubs)
			_, err := g.ApplyMove(seat, lookup(fiveOfClubs, sixOfClubs, sevenOfClubs), []cards.Meld{meld(fiveOfClubs, sixOfClubs, sevenOfClubs)})
			require.NoError(t, err)
		} else {
			_, err := g.PassTurn(seat)
			require.NoError(t, err)
		}
		assertConserved(t, g)
	}
}

func TestRemovePlayerResetsRound(t *testing.T) {
	assert := assert.New(t)
	g := startedGame(t, 2)
	g.Table.Melds = []cards.Meld{{take(t, g, fourOfClubs), take(t, g, fiveOfClubs), take(t, g, sixOfClubs)}}
	roundId := g.Id

	deliveries, err := g.RemovePlayer(1)
	require.NoError(t, err)

	assert.Equal(machiavelli.WaitingForPlayers, g.Phase)
	assert.Nil(g.Players[1])
	assert.Empty(g.Players[0].Hand)
	assert.Empty(g.Table.Melds)
	assert.Equal(cards.DeckSize, g.Table.Deck.Count())
	assert.NotEqual(roundId, g.Id)
	assertConserved(t, g)

	assert.Len(deliveries, 1)
	assert.Equal(machiavelli.Everyone, deliveries[0].Seat)
	assert.Equal(1, deliveries[0].Command.Payload.(*protocol.PlayerRemoved).Seat)

	// Filling the table again deals a fresh round.
	p, err := g.AddPlayer()
	require.NoError(t, err)
	assert.Equal(1, p.Seat)
	assert.False(p.Admin)
	_, err = g.StartGame()
	require.NoError(t, err)
	assert.Equal(machiavelli.InProgress, g.Phase)
	assert.Equal(0, g.Turn)
	assertConserved(t, g)
}

func TestRemovePlayerWhileWaiting(t *testing.T) {
	g := newGame(3)
	seatEveryone(t, g)
	_, err := g.RemovePlayer(2)
	require.NoError(t, err)
	assert.Equal(t, machiavelli.WaitingForPlayers, g.Phase)
	assert.Equal(t, 2, g.Seated())

	_, err = g.RemovePlayer(2)
	assert.ErrorIs(t, err, machiavelli.ErrUnknownSeat)
}

func TestRemoveAdminPromotesNextSeat(t *testing.T) {
	assert := assert.New(t)
	g := newGame(3)
	seatEveryone(t, g)

	deliveries, err := g.RemovePlayer(0)
	require.NoError(t, err)
	assert.True(g.Players[1].Admin)
	assert.False(g.Players[2].Admin)

	// Seat 2 hears about the removal, then about its new admin.
	cmds := commandsFor(deliveries, 2)
	assert.Equal([]protocol.Kind{protocol.KindPlayerRemoved, protocol.KindIntroducePlayer}, kinds(cmds))
	intro := cmds[1].Payload.(*protocol.IntroducePlayer)
	assert.Equal(1, intro.Seat)
	assert.True(intro.Owner)

	p, err := g.AddPlayer()
	require.NoError(t, err)
	assert.Equal(0, p.Seat)
	assert.False(p.Admin)
	assert.Equal("Player 1", p.Name)
}

func TestRestartGame(t *testing.T) {
	assert := assert.New(t)
	g := startedGame(t, 2)

	_, err := g.RestartGame(0)
	assert.ErrorIs(err, machiavelli.ErrGameNotInProgress)

	rigHand(t, g, 0, fiveOfClubs, sixOfClubs, sevenOfClubs)
	_, err = g.ApplyMove(0, lookup(fiveOfClubs, sixOfClubs, sevenOfClubs), []cards.Meld{meld(fiveOfClubs, sixOfClubs, sevenOfClubs)})
	require.NoError(t, err)
	require.Equal(t, machiavelli.Finished, g.Phase)
	finishedRound := g.Id

	_, err = g.RestartGame(1)
	assert.ErrorIs(err, machiavelli.ErrNotAdmin)

	deliveries, err := g.RestartGame(0)
	require.NoError(t, err)
	assert.Equal(machiavelli.InProgress, g.Phase)
	assert.NotEqual(finishedRound, g.Id)
	assert.Empty(g.Table.Melds)
	assert.Len(g.Players[1].Hand, machiavelli.DefaultHandSize)
	assert.Equal(-1, g.Winner)
	assert.Contains(kinds(commandsFor(deliveries, 1)), protocol.KindDealHand)
	assertConserved(t, g)
}

func TestSnapshot(t *testing.T) {
	assert := assert.New(t)
	g := newGame(3)
	_, err := g.AddPlayer()
	require.NoError(t, err)

	snap := g.Snapshot()
	assert.Equal(machiavelli.WaitingForPlayers, snap.Phase)
	assert.Equal(3, snap.SeatCount)
	assert.Equal(cards.DeckSize, snap.PileCount)
	assert.Len(snap.Seats, 3)
	assert.True(snap.Seats[0].Occupied)
	assert.True(snap.Seats[0].Admin)
	assert.False(snap.Seats[1].Occupied)
	assert.Equal(-1, snap.Seats[1].PlayerId)
}

func TestRejection(t *testing.T) {
	rejection := machiavelli.Rejection(machiavelli.ErrNotYourTurn)
	assert.Equal(t, "NOT_YOUR_TURN", rejection.Code)
	assert.Equal(t, "Wait for your turn", rejection.Message)

	g := startedGame(t, 2)
	rigHand(t, g, 0, fiveOfClubs, sixOfClubs, nineOfClubs)
	_, err := g.ApplyMove(0, lookup(fiveOfClubs, sixOfClubs, nineOfClubs), []cards.Meld{meld(fiveOfClubs, sixOfClubs, nineOfClubs)})
	assert.Equal(t, "INVALID_MELD", machiavelli.Rejection(err).Code)
}
