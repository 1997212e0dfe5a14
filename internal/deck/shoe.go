package deck

import (
	rand "math/rand/v2"
)

// DefaultDecks is the number of decks a table shoe holds unless configured
// otherwise.
const DefaultDecks = 4

// Shoe is the shared multi-deck draw pile for a table. It is not safe for
// concurrent use; the table's single-writer loop is expected to serialize
// draws.
type Shoe struct {
	cards []Card
	decks int
	rng   *rand.Rand
}

// NewShoe builds a shoe of 52*decks cards in a uniformly shuffled order.
func NewShoe(decks int, rng *rand.Rand) *Shoe {
	if decks <= 0 {
		decks = DefaultDecks
	}
	s := &Shoe{
		cards: make([]Card, 0, 52*decks),
		decks: decks,
		rng:   rng,
	}
	s.refill()
	return s
}

// NewStackedShoe builds a shoe that deals the given cards in order. Used to
// stage deterministic deals in tests and scripted demos; once the stack is
// exhausted it behaves like a freshly shuffled single deck.
func NewStackedShoe(rng *rand.Rand, cards ...Card) *Shoe {
	stacked := make([]Card, len(cards))
	copy(stacked, cards)
	return &Shoe{cards: stacked, decks: 1, rng: rng}
}

// refill rebuilds the full multi-deck stack and shuffles it
func (s *Shoe) refill() {
	s.cards = s.cards[:0]
	for d := 0; d < s.decks; d++ {
		for suit := Spades; suit <= Clubs; suit++ {
			for rank := Two; rank <= Ace; rank++ {
				s.cards = append(s.cards, Card{Suit: suit, Rank: rank})
			}
		}
	}
	s.shuffle()
}

// shuffle applies a Fisher-Yates permutation
func (s *Shoe) shuffle() {
	s.rng.Shuffle(len(s.cards), func(i, j int) {
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	})
}

// Draw removes and returns the head card. An exhausted shoe is replaced in
// place with a freshly shuffled one; no burn card is carried across the
// reshuffle. Draw never fails.
func (s *Shoe) Draw() Card {
	if len(s.cards) == 0 {
		s.refill()
	}
	card := s.cards[0]
	s.cards = s.cards[1:]
	return card
}

// DrawN draws n cards in order
func (s *Shoe) DrawN(n int) []Card {
	cards := make([]Card, n)
	for i := range cards {
		cards[i] = s.Draw()
	}
	return cards
}

// CardsRemaining returns the number of cards left before the next reshuffle
func (s *Shoe) CardsRemaining() int {
	return len(s.cards)
}

// IsEmpty returns true if the next draw will trigger a reshuffle
func (s *Shoe) IsEmpty() bool {
	return len(s.cards) == 0
}
