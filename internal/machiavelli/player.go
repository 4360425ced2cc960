package machiavelli

import (
	"slices"

	"machiavelli-server/internal/cards"
)

// Player is the game side of a seat. It knows nothing about connections.
type Player struct {
	Seat  int        `json:"seat"`
	Id    int        `json:"id"`
	Name  string     `json:"name"`
	Hand  PlayerHand `json:"hand"`
	Admin bool       `json:"admin"`
}

// PlayerHand is keyed by card id; two copies of a card never collide.
type PlayerHand map[int]cards.Card

// Cards returns the hand ordered by id.
func (h PlayerHand) Cards() []cards.Card {
	ids := make([]int, 0, len(h))
	for id := range h {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	hand := make([]cards.Card, 0, len(ids))
	for _, id := range ids {
		hand = append(hand, h[id])
	}
	return hand
}

func (h PlayerHand) add(cs ...cards.Card) {
	for _, card := range cs {
		h[card.Id] = card
	}
}

func (h PlayerHand) removeCards(ids []int) {
	for _, id := range ids {
		delete(h, id)
	}
}

func hidden(n int) []cards.Card {
	tokens := make([]cards.Card, n)
	for i := range tokens {
		tokens[i] = cards.Card{}.Hide()
	}
	return tokens
}
