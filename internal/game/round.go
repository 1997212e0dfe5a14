package game

import (
	"github.com/google/uuid"

	"github.com/lox/blackjacktables/internal/deck"
)

// Round is the shared per-table state for one round of play: the dealer's
// hand, the shoe every hit draws from, the seated players and their bets.
// It is created when a round starts and replaced wholesale by the next
// round.
type Round struct {
	ID         string
	DealerHand []deck.Card
	Shoe       *deck.Shoe
	Players    map[string]*PlayerState
	Bets       map[string]int

	// TurnOrder is the stable snapshot of logins eligible to act this
	// phase, built once at deal time. Players joining mid-phase are not
	// re-admitted.
	TurnOrder []string

	settled bool
}

// NewRound creates an empty round drawing from the given shoe
func NewRound(shoe *deck.Shoe) *Round {
	return &Round{
		ID:      uuid.NewString(),
		Shoe:    shoe,
		Players: make(map[string]*PlayerState),
		Bets:    make(map[string]int),
	}
}

// Deal gives the dealer a two-card hand, then seats and deals the first
// maxPlayers bettors with a placed bet, in order. Bettors without a
// positive bet are skipped.
func (r *Round) Deal(bettors []string, bets map[string]int, maxPlayers int) {
	r.DealerHand = []deck.Card{r.Shoe.Draw(), r.Shoe.Draw()}

	for _, login := range bettors {
		if maxPlayers > 0 && len(r.TurnOrder) >= maxPlayers {
			break
		}
		bet := bets[login]
		if bet <= 0 {
			continue
		}
		if _, seated := r.Players[login]; seated {
			continue
		}
		r.Players[login] = &PlayerState{
			Hand: []deck.Card{r.Shoe.Draw(), r.Shoe.Draw()},
		}
		r.Bets[login] = bet
		r.TurnOrder = append(r.TurnOrder, login)
	}
}

// DealerUpCard returns the dealer's face-up card. Only the up-card is
// meaningful during the action phase; the hole card stays hidden until
// settlement.
func (r *Round) DealerUpCard() (deck.Card, bool) {
	if len(r.DealerHand) == 0 {
		return deck.Card{}, false
	}
	return r.DealerHand[0], true
}

// Settled reports whether settlement has already run for this round
func (r *Round) Settled() bool {
	return r.settled
}
