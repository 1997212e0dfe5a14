package deck

import "testing"

func TestCardString(t *testing.T) {
	tests := []struct {
		card     Card
		expected string
	}{
		{NewCard(Spades, Ace), "A♠"},
		{NewCard(Hearts, King), "K♥"},
		{NewCard(Diamonds, Ten), "10♦"},
		{NewCard(Clubs, Two), "2♣"},
	}

	for _, tt := range tests {
		if got := tt.card.String(); got != tt.expected {
			t.Errorf("Card.String() = %s, want %s", got, tt.expected)
		}
	}
}

func TestCardIsRed(t *testing.T) {
	if !NewCard(Hearts, Five).IsRed() {
		t.Error("Hearts should be red")
	}
	if !NewCard(Diamonds, Five).IsRed() {
		t.Error("Diamonds should be red")
	}
	if NewCard(Spades, Five).IsRed() {
		t.Error("Spades should not be red")
	}
	if NewCard(Clubs, Five).IsRed() {
		t.Error("Clubs should not be red")
	}
}

func TestBlackjackValue(t *testing.T) {
	tests := []struct {
		rank     Rank
		expected int
	}{
		{Two, 2},
		{Nine, 9},
		{Ten, 10},
		{Jack, 10},
		{Queen, 10},
		{King, 10},
		{Ace, 11},
	}

	for _, tt := range tests {
		if got := tt.rank.BlackjackValue(); got != tt.expected {
			t.Errorf("%s.BlackjackValue() = %d, want %d", tt.rank, got, tt.expected)
		}
	}
}

func TestIsAce(t *testing.T) {
	if !NewCard(Spades, Ace).IsAce() {
		t.Error("Ace of spades should be an ace")
	}
	if NewCard(Spades, King).IsAce() {
		t.Error("King should not be an ace")
	}
}
