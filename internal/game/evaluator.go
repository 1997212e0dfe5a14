package game

import "github.com/lox/blackjacktables/internal/deck"

const (
	// blackjackTarget is the bust threshold
	blackjackTarget = 21

	// dealerStand is the value the dealer (and auto-played hands) draw to.
	// The dealer hits soft 17 in this model: HandValue already resolves
	// soft totals, so a soft 17 reads as 17 and stands.
	dealerStand = 17
)

// HandValue computes the blackjack value of a hand. Aces count as 11 and
// are demoted to 1 one at a time while the total is over 21. The result is
// independent of card order.
func HandValue(cards []deck.Card) int {
	total, aces := 0, 0
	for _, c := range cards {
		if c.IsAce() {
			aces++
		}
		total += c.Rank.BlackjackValue()
	}
	for total > blackjackTarget && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsNatural reports whether the hand is a natural blackjack: exactly two
// cards totaling 21.
func IsNatural(cards []deck.Card) bool {
	return len(cards) == 2 && HandValue(cards) == blackjackTarget
}

// IsBust reports whether the hand is over 21
func IsBust(cards []deck.Card) bool {
	return HandValue(cards) > blackjackTarget
}

// Outcome classifies a player hand against the dealer's final hand.
//
// Multiplier is the total return per unit staked - the stake plus the
// winnings. A win pays 2.0 (stake back plus even money), a natural 2.5
// (stake back plus 3:2), a push 1.0 (stake back, no win), a loss 0.
type Outcome struct {
	Name       string
	Multiplier float64
}

var (
	outcomeBlackjack = Outcome{Name: "Blackjack", Multiplier: 2.5}
	outcomeWin       = Outcome{Name: "Win", Multiplier: 2}
	outcomePush      = Outcome{Name: "Push", Multiplier: 1}
	outcomeLoss      = Outcome{Name: "Loss", Multiplier: 0}
	outcomeBust      = Outcome{Name: "Bust", Multiplier: 0}
)

// EvaluateHand scores a player hand against the dealer's final hand. A
// two-card 21 beats any 21 reached with more cards, on either side of the
// table.
func EvaluateHand(player, dealer []deck.Card) Outcome {
	playerValue := HandValue(player)
	if playerValue > blackjackTarget {
		return outcomeBust
	}

	playerNatural := IsNatural(player)
	dealerNatural := IsNatural(dealer)
	switch {
	case playerNatural && dealerNatural:
		return outcomePush
	case playerNatural:
		return outcomeBlackjack
	case dealerNatural:
		return outcomeLoss
	}

	dealerValue := HandValue(dealer)
	switch {
	case dealerValue > blackjackTarget:
		return outcomeWin
	case playerValue > dealerValue:
		return outcomeWin
	case playerValue == dealerValue:
		return outcomePush
	default:
		return outcomeLoss
	}
}
