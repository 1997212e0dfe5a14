package game

import "github.com/lox/blackjacktables/internal/deck"

// PlayerState is one seated bettor's state for the current round. It is
// created when the round deals and discarded when the round settles.
type PlayerState struct {
	// Hand is the player's cards until a split; after a split the cards
	// live in Hands and Hand is kept only as the pre-split record.
	Hand []deck.Card

	// Hands holds the two sub-hands after a split, nil otherwise
	Hands [][]deck.Card

	// ActiveHand indexes the sub-hand that hits and stands apply to
	ActiveHand int

	IsSplit     bool
	Stood       bool
	Busted      bool
	Folded      bool
	Doubled     bool
	Surrendered bool

	// Insurance is the side-bet amount, zero until placed
	Insurance       int
	InsurancePlaced bool
}

// ActiveCards returns the hand that hits and stands currently apply to
func (ps *PlayerState) ActiveCards() []deck.Card {
	if ps.IsSplit {
		return ps.Hands[ps.ActiveHand]
	}
	return ps.Hand
}

// appendCard adds a drawn card to the active hand
func (ps *PlayerState) appendCard(c deck.Card) {
	if ps.IsSplit {
		ps.Hands[ps.ActiveHand] = append(ps.Hands[ps.ActiveHand], c)
		return
	}
	ps.Hand = append(ps.Hand, c)
}

// onLastHand reports whether the active hand is the final one the player
// must act on
func (ps *PlayerState) onLastHand() bool {
	return !ps.IsSplit || ps.ActiveHand >= len(ps.Hands)-1
}

// TurnComplete reports whether the player has nothing left to act on this
// round
func (ps *PlayerState) TurnComplete() bool {
	return ps.Stood || ps.Busted || ps.Folded || ps.Surrendered
}
