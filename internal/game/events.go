package game

import (
	"time"

	"github.com/lox/blackjacktables/internal/deck"
	"github.com/lox/blackjacktables/internal/ledger"
)

// EventType identifies a round engine event
type EventType string

const (
	EventTypePlayerTurn       EventType = "player_turn"
	EventTypeActionPhaseEnded EventType = "action_phase_ended"
	EventTypePlayerUpdate     EventType = "player_update"
	EventTypeRoundStart       EventType = "round_start"
	EventTypeRoundResult      EventType = "round_result"
	EventTypePayouts          EventType = "payouts"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is anything the engine reports to its host. Delivery is the host's
// concern; the engine only guarantees events are emitted in order from the
// table's single writer.
type Event interface {
	EventType() EventType
}

// EventSink receives engine events. A nil sink is valid and discards
// everything.
type EventSink func(Event)

// RoundStartEvent is emitted once per round after the deal
type RoundStartEvent struct {
	RoundID      string
	DealerUpCard deck.Card
	TurnOrder    []string
}

func (e RoundStartEvent) EventType() EventType { return EventTypeRoundStart }

// PlayerTurnEvent is emitted when a player's countdown starts
type PlayerTurnEvent struct {
	Login  string
	EndsAt time.Time
}

func (e PlayerTurnEvent) EventType() EventType { return EventTypePlayerTurn }

// ActionPhaseEndedEvent is emitted when the global action-phase timer fires
// ahead of the turn cycle finishing
type ActionPhaseEndedEvent struct {
	RoundID string
}

func (e ActionPhaseEndedEvent) EventType() EventType { return EventTypeActionPhaseEnded }

// PlayerUpdateEvent is emitted after every applied action (and after the
// deal) with the player's visible state
type PlayerUpdateEvent struct {
	Login       string
	Hand        []deck.Card
	Hands       [][]deck.Card
	ActiveHand  int
	Stood       bool
	Busted      bool
	Doubled     bool
	Surrendered bool
	Insurance   int
	Bet         int
	Balance     int
}

func (e PlayerUpdateEvent) EventType() EventType { return EventTypePlayerUpdate }

// PlayerResult is one player's line in the round result
type PlayerResult struct {
	Login   string
	Hand    []deck.Card
	Hands   [][]deck.Card
	Outcome string
	Payout  int
}

// RoundResultEvent is emitted once per round at settlement, with the
// dealer's revealed hand
type RoundResultEvent struct {
	RoundID    string
	DealerHand []deck.Card
	Players    []PlayerResult
	Mode       string
}

func (e RoundResultEvent) EventType() EventType { return EventTypeRoundResult }

// PayoutsEvent is emitted once per round after balances have been credited
type PayoutsEvent struct {
	RoundID          string
	Winners          []string
	Payouts          map[string]int
	Leaderboard      []ledger.Entry
	LeaderboardAfter []ledger.Entry
	Broke            []string
}

func (e PayoutsEvent) EventType() EventType { return EventTypePayouts }
