package cards

import (
	"errors"
	"fmt"
	"slices"
)

const MinimumMeldSize = 3

// Longest possible run: Ace through King, or Two through the high Ace.
const maxRunLength = 13

var ErrDeckEmpty = errors.New("DECK_EMPTY: No cards left to draw")

// Meld is an ordered group of cards, either on the table or being assembled.
type Meld []Card

func (m Meld) Ids() []int {
	return Ids(m)
}

func IsValidMeld(m Meld, minimumSize int) bool {
	return m.Validate(minimumSize) == nil
}

// Validate reports why the meld is not a legal group or run. Jokers stand
// in for any card. Card order inside the meld does not matter.
func (m Meld) Validate(minimumSize int) error {
	if len(m) < minimumSize {
		return fmt.Errorf("Melds require at least %d cards.", minimumSize)
	}

	var naturals []Card
	for _, card := range m {
		if card.Hidden {
			return errors.New("Cannot meld a hidden card")
		}
		if !card.IsJoker() {
			naturals = append(naturals, card)
		}
	}

	// Nothing but jokers fits either rule.
	if len(naturals) == 0 {
		return nil
	}

	groupErr := validateGroup(m, naturals)
	if groupErr == nil {
		return nil
	}
	runErr := validateRun(m, naturals)
	if runErr == nil {
		return nil
	}

	if allSameRank(naturals) {
		return groupErr
	}
	return runErr
}

func allSameRank(naturals []Card) bool {
	for _, card := range naturals[1:] {
		if card.Rank != naturals[0].Rank {
			return false
		}
	}
	return true
}

func validateGroup(m Meld, naturals []Card) error {
	if !allSameRank(naturals) {
		return errors.New("Cannot mix rank in a group")
	}
	if len(m) > 4 {
		return errors.New("A group holds at most one card of each suit")
	}

	seen := make(map[Suit]bool)
	for _, card := range naturals {
		if seen[card.Suit] {
			return fmt.Errorf("Group already has a %s", card.Suit)
		}
		seen[card.Suit] = true
	}
	return nil
}

func validateRun(m Meld, naturals []Card) error {
	suit := naturals[0].Suit
	for _, card := range naturals {
		if card.Suit != suit {
			return errors.New("Cannot mix suits in a run")
		}
	}
	if len(m) > maxRunLength {
		return fmt.Errorf("A run is at most %d cards long", maxRunLength)
	}

	jokers := len(m) - len(naturals)

	low := make([]int, 0, len(naturals))
	for _, card := range naturals {
		low = append(low, int(card.Rank))
	}
	if fitsRun(low, jokers) {
		return nil
	}

	// Try again with the aces on top (Q-K-A).
	if slices.Contains(low, int(Ace)) {
		high := make([]int, 0, len(low))
		for _, rank := range low {
			if rank == int(Ace) {
				rank = int(AceHigh)
			}
			high = append(high, rank)
		}
		if fitsRun(high, jokers) {
			return nil
		}
	}

	return errors.New("Cards are not consecutive")
}

// fitsRun reports whether ranks plus the given number of jokers can be laid
// out as consecutive ranks without wrapping past either ace.
func fitsRun(ranks []int, jokers int) bool {
	sorted := slices.Clone(ranks)
	slices.Sort(sorted)

	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return false
		}
	}

	span := sorted[len(sorted)-1] - sorted[0] + 1
	gaps := span - len(sorted)
	if gaps > jokers {
		return false
	}

	// Leftover jokers extend the ends; there has to be room for them.
	total := span + (jokers - gaps)
	return total <= maxRunLength
}
