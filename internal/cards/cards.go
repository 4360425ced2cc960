package cards

import (
	"fmt"
	"math/rand"
	"time"
)

type Suit int

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
	JokerSuit
	NoSuit Suit = -1
)

var suitString = map[Suit]string{
	Clubs:     "Clubs",
	Diamonds:  "Diamonds",
	Hearts:    "Hearts",
	Spades:    "Spades",
	JokerSuit: "Joker",
	NoSuit:    "Hidden",
}

func (s Suit) String() string {
	return suitString[s]
}

type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	AceHigh
	JokerRank
)

var rankString = map[Rank]string{
	Ace:       "Ace",
	Two:       "Two",
	Three:     "Three",
	Four:      "Four",
	Five:      "Five",
	Six:       "Six",
	Seven:     "Seven",
	Eight:     "Eight",
	Nine:      "Nine",
	Ten:       "Ten",
	Jack:      "Jack",
	Queen:     "Queen",
	King:      "King",
	AceHigh:   "Ace",
	JokerRank: "Joker",
}

func (r Rank) String() string {
	return rankString[r]
}

// DeckSize is two standard decks plus two jokers.
const DeckSize = 2*52 + 2

// HiddenId is the id carried by a hidden card token.
const HiddenId = -1

type Card struct {
	Id     int  `json:"id" msgpack:"id"`
	Suit   Suit `json:"suit" msgpack:"suit"`
	Rank   Rank `json:"rank" msgpack:"rank"`
	Hidden bool `json:"hidden,omitempty" msgpack:"hidden,omitempty"`
}

func (c Card) IsJoker() bool {
	return c.Rank == JokerRank || c.Suit == JokerSuit
}

// Hide returns the back-of-card token shown to opponents. It carries no
// suit, rank or id: ids are assigned in build order and would give the card away.
func (c Card) Hide() Card {
	return Card{Id: HiddenId, Suit: NoSuit, Hidden: true}
}

func (c Card) String() string {
	if c.Hidden {
		return "Hidden"
	}
	if c.IsJoker() {
		return "Joker"
	}
	return fmt.Sprintf("%s of %s", c.Rank.String(), c.Suit.String())
}

func Ids(cards []Card) []int {
	ids := make([]int, 0, len(cards))
	for _, card := range cards {
		ids = append(ids, card.Id)
	}
	return ids
}

// canonical is the deck in build order; canonical[id].Id == id.
var canonical = buildCards()

func buildCards() []Card {
	deck := make([]Card, 0, DeckSize)
	suits := []Suit{Clubs, Diamonds, Hearts, Spades}

	id := 0
	for range 2 {
		for rank := Ace; rank <= King; rank++ {
			for _, suit := range suits {
				deck = append(deck, Card{Id: id, Suit: suit, Rank: rank})
				id++
			}
		}
	}
	for range 2 {
		deck = append(deck, Card{Id: id, Suit: JokerSuit, Rank: JokerRank})
		id++
	}

	return deck
}

// Lookup returns the real card for an id. Clients only ever get to name
// cards by id; suit and rank always come from here.
func Lookup(id int) (Card, bool) {
	if id < 0 || id >= len(canonical) {
		return Card{}, false
	}
	return canonical[id], true
}

type Deck struct {
	Cards []Card `json:"cards"`
	rng   *rand.Rand
}

func NewDeck() *Deck {
	return NewDeckWithSource(rand.NewSource(time.Now().UnixNano()))
}

func NewDeckWithSource(src rand.Source) *Deck {
	deck := make([]Card, len(canonical))
	copy(deck, canonical)
	return &Deck{
		Cards: deck,
		rng:   rand.New(src),
	}
}

func (deck Deck) Count() int {
	return len(deck.Cards)
}

// Draw takes up to i cards off the top of the deck.
func (deck *Deck) Draw(i int) (cards []Card) {
	for range i {
		if len(deck.Cards) == 0 {
			return
		}
		card := deck.Cards[len(deck.Cards)-1]
		cards = append(cards, card)
		deck.Cards = deck.Cards[:len(deck.Cards)-1]
	}
	return
}

func (deck *Deck) DrawOne() (Card, error) {
	drawn := deck.Draw(1)
	if len(drawn) == 0 {
		return Card{}, ErrDeckEmpty
	}
	return drawn[0], nil
}

func (d *Deck) Shuffle() {
	d.rng.Shuffle(d.Count(), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
}
