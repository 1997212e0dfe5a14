package game

import (
	"context"
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/thoas/go-funk"

	"github.com/lox/blackjacktables/internal/deck"
	"github.com/lox/blackjacktables/internal/ledger"
)

// Config holds the per-table engine settings
type Config struct {
	// NumDecks is the shoe size in decks
	NumDecks int

	// MaxPlayers caps how many bettors are dealt into a round
	MaxPlayers int

	// TurnTimeout is the base per-player countdown
	TurnTimeout time.Duration

	// ActionPhase is the global safety-net timer for the whole action
	// phase; when it fires the round settles regardless of whose turn it
	// is
	ActionPhase time.Duration

	// LeaderboardSize is how many rows the payout report carries
	LeaderboardSize int

	// TimeoutFor optionally overrides the countdown for specific players
	TimeoutFor func(login string, base time.Duration) time.Duration
}

func (c Config) withDefaults() Config {
	if c.NumDecks <= 0 {
		c.NumDecks = deck.DefaultDecks
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = 5
	}
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = 30 * time.Second
	}
	if c.ActionPhase <= 0 {
		c.ActionPhase = 3 * time.Minute
	}
	if c.LeaderboardSize <= 0 {
		c.LeaderboardSize = 10
	}
	return c
}

// Engine is the round engine for one table. It owns the current Round,
// validates and applies player actions, drives the turn cycle, and settles
// against the ledger.
//
// Engine is not safe for concurrent use; see the package documentation.
type Engine struct {
	cfg    Config
	logger *log.Logger
	clock  quartz.Clock
	rng    *rand.Rand
	bank   ledger.Ledger

	emit     EventSink
	dispatch func(func())

	round      *Round
	turns      *TurnManager
	phaseTimer *quartz.Timer

	// waiting queues logins that asked to join mid-round; they become
	// eligible bettors next round
	waiting []string
}

// NewEngine creates an engine for one table. The clock is injected so
// hosts and tests control time; the rng seeds every shoe shuffle.
func NewEngine(cfg Config, bank ledger.Ledger, clock quartz.Clock, rng *rand.Rand, logger *log.Logger) *Engine {
	return &Engine{
		cfg:      cfg.withDefaults(),
		logger:   logger.WithPrefix("engine"),
		clock:    clock,
		rng:      rng,
		bank:     bank,
		dispatch: func(f func()) { f() },
	}
}

// SetEventSink installs the host's event receiver
func (e *Engine) SetEventSink(sink EventSink) {
	e.emit = sink
}

// SetDispatch routes timer callbacks through the host's single writer
// loop. Must be set before StartRound when the host runs timers on real
// goroutines.
func (e *Engine) SetDispatch(dispatch func(func())) {
	if dispatch != nil {
		e.dispatch = dispatch
	}
}

// Round returns the current round, or nil before the first deal
func (e *Engine) Round() *Round {
	return e.round
}

// CurrentTurn returns the login holding the turn, or ""
func (e *Engine) CurrentTurn() string {
	if e.turns == nil {
		return ""
	}
	return e.turns.Current()
}

// JoinWaiting queues a login for the next round. Safe to call mid-round;
// duplicates are ignored.
func (e *Engine) JoinWaiting(login string) {
	if funk.ContainsString(e.waiting, login) {
		return
	}
	e.waiting = append(e.waiting, login)
	e.logger.Debug("queued for next round", "login", login)
}

// StartRound builds a fresh shoe and deals a new round for the given
// bettors and their bets. Queued waiting players are appended to the
// bettor list. The turn cycle and the global action-phase timer start
// immediately.
func (e *Engine) StartRound(ctx context.Context, bettors []string, bets map[string]int) *Round {
	return e.StartRoundWithShoe(ctx, deck.NewShoe(e.cfg.NumDecks, e.rng), bettors, bets)
}

// StartRoundWithShoe is StartRound with a caller-supplied shoe, so hosts
// and tests can stage the deal.
func (e *Engine) StartRoundWithShoe(ctx context.Context, shoe *deck.Shoe, bettors []string, bets map[string]int) *Round {
	for _, login := range e.waiting {
		if !funk.ContainsString(bettors, login) {
			bettors = append(bettors, login)
		}
	}
	e.waiting = nil

	round := NewRound(shoe)
	round.Deal(bettors, bets, e.cfg.MaxPlayers)
	e.round = round

	e.logger.Info("round started",
		"round", round.ID,
		"players", len(round.TurnOrder),
		"decks", e.cfg.NumDecks)

	if e.emit != nil {
		up, _ := round.DealerUpCard()
		e.emit(RoundStartEvent{
			RoundID:      round.ID,
			DealerUpCard: up,
			TurnOrder:    append([]string(nil), round.TurnOrder...),
		})
	}
	for _, login := range round.TurnOrder {
		e.emitPlayerUpdate(ctx, login)
	}

	e.turns = NewTurnManager(e.clock, e.logger, TurnConfig{
		Timeout:    e.cfg.TurnTimeout,
		TimeoutFor: e.cfg.TimeoutFor,
		Dispatch:   e.dispatch,
		OnTurn: func(login string, endsAt time.Time) {
			if e.emit != nil {
				e.emit(PlayerTurnEvent{Login: login, EndsAt: endsAt})
			}
		},
		OnTimeout: func(login string) {
			e.logger.Warn("auto-standing unresponsive player", "round", round.ID, "login", login)
		},
		AutoAction: func(login string) {
			e.autoStand(ctx, login)
		},
		Skip: func(login string) bool {
			ps := round.Players[login]
			return ps == nil || ps.TurnComplete()
		},
		OnComplete: func() {
			e.Settle(ctx)
		},
	})

	// The phase timer is the safety net against a stuck turn cycle. It is
	// armed before the first turn so a zero-player round still settles.
	e.phaseTimer = e.clock.AfterFunc(e.cfg.ActionPhase, func() {
		e.dispatch(func() { e.phaseExpired(ctx) })
	})

	e.turns.Begin(round.TurnOrder)
	return round
}

// phaseExpired handles the global action-phase timer firing before the
// turn cycle finished
func (e *Engine) phaseExpired(ctx context.Context) {
	if e.round == nil || e.round.settled {
		return
	}
	e.logger.Warn("action phase expired, forcing settlement", "round", e.round.ID)
	if e.emit != nil {
		e.emit(ActionPhaseEndedEvent{RoundID: e.round.ID})
	}
	e.Settle(ctx)
}

// holdsTurn validates that login exists in the live round and currently
// holds the turn. Every action handler goes through this; anything else is
// an out-of-turn or stale request and is silently rejected.
func (e *Engine) holdsTurn(login string) *PlayerState {
	if e.round == nil || e.round.settled || e.turns == nil {
		return nil
	}
	if e.turns.Current() != login {
		return nil
	}
	ps := e.round.Players[login]
	if ps == nil || ps.TurnComplete() {
		return nil
	}
	return ps
}

// Hit draws one card into the player's active hand. Busting the last
// (or only) hand ends the turn; busting the first split hand moves play to
// the second. Returns false for out-of-turn or invalid requests.
func (e *Engine) Hit(ctx context.Context, login string) bool {
	ps := e.holdsTurn(login)
	if ps == nil {
		return false
	}

	card := e.round.Shoe.Draw()
	ps.appendCard(card)
	e.logger.Debug("hit", "login", login, "card", card.String(), "value", HandValue(ps.ActiveCards()))

	if IsBust(ps.ActiveCards()) {
		if !ps.onLastHand() {
			ps.ActiveHand++
		} else {
			ps.Busted = true
			ps.Stood = true
		}
	}

	e.emitPlayerUpdate(ctx, login)
	if ps.TurnComplete() {
		e.turns.Advance()
	} else {
		e.turns.Reset()
	}
	return true
}

// Stand ends play on the active hand. A split player standing on the first
// sub-hand moves to the second and must still act on it.
func (e *Engine) Stand(ctx context.Context, login string) bool {
	ps := e.holdsTurn(login)
	if ps == nil {
		return false
	}

	if !ps.onLastHand() {
		ps.ActiveHand++
		ps.Stood = false
	} else {
		ps.Stood = true
	}

	e.emitPlayerUpdate(ctx, login)
	if ps.TurnComplete() {
		e.turns.Advance()
	} else {
		e.turns.Reset()
	}
	return true
}

// DoubleDown doubles the recorded bet, draws exactly one card, and ends
// the turn regardless of the result. Rejected when already doubled or the
// balance cannot cover the second stake. The ledger is debited before any
// in-memory state changes.
func (e *Engine) DoubleDown(ctx context.Context, login string) bool {
	ps := e.holdsTurn(login)
	if ps == nil || ps.Doubled {
		return false
	}

	bet := e.round.Bets[login]
	balance, err := e.bank.GetBalance(ctx, login)
	if err != nil {
		e.logger.Error("balance lookup failed", "login", login, "err", err)
		return false
	}
	if balance < bet {
		return false
	}
	if _, err := e.bank.AddChips(ctx, login, -bet); err != nil {
		e.logger.Error("double down debit failed", "login", login, "err", err)
		return false
	}

	e.round.Bets[login] = bet * 2
	ps.Doubled = true

	card := e.round.Shoe.Draw()
	ps.appendCard(card)
	if IsBust(ps.ActiveCards()) {
		ps.Busted = true
	}
	ps.Stood = true

	e.logger.Debug("double down", "login", login, "card", card.String(), "bet", e.round.Bets[login])
	e.emitPlayerUpdate(ctx, login)
	e.turns.Advance()
	return true
}

// Surrender forfeits the hand: half the bet (floor) is refunded, the
// recorded bet is zeroed so settlement pays nothing further, and the turn
// ends. Insurance already placed is still honoured at settlement.
func (e *Engine) Surrender(ctx context.Context, login string) bool {
	ps := e.holdsTurn(login)
	if ps == nil || ps.Surrendered {
		return false
	}

	bet := e.round.Bets[login]
	if _, err := e.bank.AddChips(ctx, login, bet/2); err != nil {
		e.logger.Error("surrender refund failed", "login", login, "err", err)
		return false
	}

	ps.Surrendered = true
	ps.Stood = true
	e.round.Bets[login] = 0

	e.logger.Debug("surrender", "login", login, "refund", bet/2)
	e.emitPlayerUpdate(ctx, login)
	e.turns.Advance()
	return true
}

// Insurance places a side bet against a dealer blackjack. Only valid while
// the dealer's up-card is an Ace, once per round, for a positive amount of
// at most half the current bet that the balance covers. Does not end the
// turn.
func (e *Engine) Insurance(ctx context.Context, login string, amount int) bool {
	ps := e.holdsTurn(login)
	if ps == nil || ps.InsurancePlaced {
		return false
	}

	up, ok := e.round.DealerUpCard()
	if !ok || !up.IsAce() {
		return false
	}
	if amount <= 0 || amount > e.round.Bets[login]/2 {
		return false
	}

	balance, err := e.bank.GetBalance(ctx, login)
	if err != nil {
		e.logger.Error("balance lookup failed", "login", login, "err", err)
		return false
	}
	if balance < amount {
		return false
	}
	if _, err := e.bank.AddChips(ctx, login, -amount); err != nil {
		e.logger.Error("insurance debit failed", "login", login, "err", err)
		return false
	}

	ps.Insurance = amount
	ps.InsurancePlaced = true

	e.logger.Debug("insurance placed", "login", login, "amount", amount)
	e.emitPlayerUpdate(ctx, login)
	e.turns.Reset()
	return true
}

// Split divides a matched-rank two-card hand into two sub-hands, each
// immediately dealt one more card from the shared shoe. The bet doubles to
// cover both hands; rejected when the balance cannot cover it.
func (e *Engine) Split(ctx context.Context, login string) bool {
	ps := e.holdsTurn(login)
	if ps == nil || ps.IsSplit {
		return false
	}
	if len(ps.Hand) != 2 || ps.Hand[0].Rank != ps.Hand[1].Rank {
		return false
	}

	bet := e.round.Bets[login]
	balance, err := e.bank.GetBalance(ctx, login)
	if err != nil {
		e.logger.Error("balance lookup failed", "login", login, "err", err)
		return false
	}
	if balance < bet {
		return false
	}
	if _, err := e.bank.AddChips(ctx, login, -bet); err != nil {
		e.logger.Error("split debit failed", "login", login, "err", err)
		return false
	}

	e.round.Bets[login] = bet * 2
	ps.Hands = [][]deck.Card{
		{ps.Hand[0], e.round.Shoe.Draw()},
		{ps.Hand[1], e.round.Shoe.Draw()},
	}
	ps.IsSplit = true
	ps.ActiveHand = 0
	ps.Stood = false

	e.logger.Debug("split", "login", login, "bet", e.round.Bets[login])
	e.emitPlayerUpdate(ctx, login)
	e.turns.Reset()
	return true
}

// SwitchHand points subsequent hits and stands at the given sub-hand. Only
// meaningful for split players.
func (e *Engine) SwitchHand(ctx context.Context, login string, index int) bool {
	ps := e.holdsTurn(login)
	if ps == nil || !ps.IsSplit {
		return false
	}
	if index < 0 || index >= len(ps.Hands) {
		return false
	}

	ps.ActiveHand = index
	e.emitPlayerUpdate(ctx, login)
	e.turns.Reset()
	return true
}

// Fold abandons the player's hand for the round, forfeiting the bet.
// Unlike the other handlers it does not require holding the turn: a
// disconnect can happen at any point mid-round. Folding the turn holder
// moves play on immediately; folding ahead of one's turn makes the turn
// cycle skip it.
func (e *Engine) Fold(ctx context.Context, login string) bool {
	if e.round == nil || e.round.settled {
		return false
	}
	ps := e.round.Players[login]
	if ps == nil || ps.TurnComplete() {
		return false
	}

	ps.Folded = true
	ps.Stood = true

	e.logger.Debug("fold", "login", login)
	e.emitPlayerUpdate(ctx, login)
	if e.turns != nil && e.turns.Current() == login {
		e.turns.Advance()
	}
	return true
}

// autoStand finishes an unresponsive player's whole turn: both sub-hands
// of a split are considered stood, so the player is visited at most once
// per pass.
func (e *Engine) autoStand(ctx context.Context, login string) {
	if e.round == nil {
		return
	}
	ps := e.round.Players[login]
	if ps == nil || ps.TurnComplete() {
		return
	}
	if ps.IsSplit {
		ps.ActiveHand = len(ps.Hands) - 1
	}
	ps.Stood = true
	e.emitPlayerUpdate(ctx, login)
}

// emitPlayerUpdate publishes the player's visible state with a best-effort
// balance read
func (e *Engine) emitPlayerUpdate(ctx context.Context, login string) {
	if e.emit == nil || e.round == nil {
		return
	}
	ps := e.round.Players[login]
	if ps == nil {
		return
	}

	balance, err := e.bank.GetBalance(ctx, login)
	if err != nil {
		e.logger.Warn("balance lookup failed for update", "login", login, "err", err)
	}

	e.emit(PlayerUpdateEvent{
		Login:       login,
		Hand:        ps.Hand,
		Hands:       ps.Hands,
		ActiveHand:  ps.ActiveHand,
		Stood:       ps.Stood,
		Busted:      ps.Busted,
		Doubled:     ps.Doubled,
		Surrendered: ps.Surrendered,
		Insurance:   ps.Insurance,
		Bet:         e.round.Bets[login],
		Balance:     balance,
	})
}
