package deck

import (
	"math/rand/v2"
	"testing"
)

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func TestNewShoe(t *testing.T) {
	shoe := NewShoe(4, testRand(42))

	if shoe.CardsRemaining() != 4*52 {
		t.Errorf("Expected %d cards, got %d", 4*52, shoe.CardsRemaining())
	}

	if shoe.IsEmpty() {
		t.Error("New shoe should not be empty")
	}
}

func TestShoeDraw(t *testing.T) {
	shoe := NewShoe(2, testRand(42))
	initialCount := shoe.CardsRemaining()

	card := shoe.Draw()

	if shoe.CardsRemaining() != initialCount-1 {
		t.Errorf("Expected %d cards after drawing, got %d", initialCount-1, shoe.CardsRemaining())
	}

	if card.Suit < Spades || card.Suit > Clubs {
		t.Error("Invalid suit drawn")
	}
	if card.Rank < Two || card.Rank > Ace {
		t.Error("Invalid rank drawn")
	}
}

func TestShoeContainsEveryCard(t *testing.T) {
	decks := 3
	shoe := NewShoe(decks, testRand(7))

	counts := make(map[Card]int)
	for i := 0; i < decks*52; i++ {
		counts[shoe.Draw()]++
	}

	if len(counts) != 52 {
		t.Fatalf("Expected 52 distinct cards, got %d", len(counts))
	}
	for card, n := range counts {
		if n != decks {
			t.Errorf("Card %s appeared %d times, expected %d", card, n, decks)
		}
	}
}

func TestShoeReshufflesWhenExhausted(t *testing.T) {
	shoe := NewShoe(1, testRand(42))

	for i := 0; i < 52; i++ {
		shoe.Draw()
	}
	if !shoe.IsEmpty() {
		t.Fatal("Shoe should be empty after drawing every card")
	}

	// The next draw refills and reshuffles rather than failing
	card := shoe.Draw()
	if card.Rank < Two || card.Rank > Ace {
		t.Error("Invalid card drawn after reshuffle")
	}
	if shoe.CardsRemaining() != 51 {
		t.Errorf("Expected 51 cards after reshuffle draw, got %d", shoe.CardsRemaining())
	}
}

func TestShoeDeterministicWithSeed(t *testing.T) {
	a := NewShoe(4, testRand(99))
	b := NewShoe(4, testRand(99))

	for i := 0; i < 20; i++ {
		if ca, cb := a.Draw(), b.Draw(); ca != cb {
			t.Fatalf("Draw %d differs: %s vs %s", i, ca, cb)
		}
	}
}

func TestStackedShoe(t *testing.T) {
	stacked := []Card{
		NewCard(Spades, Ace),
		NewCard(Hearts, King),
		NewCard(Clubs, Ten),
	}
	shoe := NewStackedShoe(testRand(1), stacked...)

	for i, want := range stacked {
		if got := shoe.Draw(); got != want {
			t.Errorf("Draw %d: got %s, want %s", i, got, want)
		}
	}
}

func TestDrawN(t *testing.T) {
	shoe := NewShoe(1, testRand(42))

	cards := shoe.DrawN(5)
	if len(cards) != 5 {
		t.Errorf("Expected 5 cards, got %d", len(cards))
	}
	if shoe.CardsRemaining() != 47 {
		t.Errorf("Expected 47 cards remaining, got %d", shoe.CardsRemaining())
	}
}
