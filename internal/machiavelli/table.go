package machiavelli

import (
	"math/rand"

	"machiavelli-server/internal/cards"
)

// Table is the draw pile plus every meld laid down so far. Only Game
// mutates it.
type Table struct {
	Deck  *cards.Deck  `json:"deck"`
	Melds []cards.Meld `json:"melds"`
}

func newTable(rng *rand.Rand) *Table {
	deck := cards.NewDeckWithSource(rand.NewSource(rng.Int63()))
	deck.Shuffle()
	return &Table{
		Deck:  deck,
		Melds: make([]cards.Meld, 0),
	}
}

func (t *Table) meldedIds() []int {
	var ids []int
	for _, meld := range t.Melds {
		ids = append(ids, meld.Ids()...)
	}
	return ids
}

func (t *Table) cardCount() int {
	return t.Deck.Count() + len(t.meldedIds())
}
