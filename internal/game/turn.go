package game

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// TurnConfig wires the turn manager's timer and callbacks.
type TurnConfig struct {
	// Timeout is the base per-player countdown
	Timeout time.Duration

	// TimeoutFor may shorten or lengthen the countdown for a specific
	// player (e.g. repeat timeout offenders get less time). Nil means
	// every player gets the base Timeout.
	TimeoutFor func(login string, base time.Duration) time.Duration

	// OnTurn is called when a player's countdown starts
	OnTurn func(login string, endsAt time.Time)

	// OnTimeout is called when a countdown expires, before the auto
	// action is applied
	OnTimeout func(login string)

	// AutoAction is applied to a player whose countdown expired
	AutoAction func(login string)

	// Skip reports players with nothing left to act on (folded,
	// disconnected); their turn is passed over without arming a timer
	Skip func(login string) bool

	// OnComplete is called once the turn order is exhausted
	OnComplete func()

	// Dispatch routes timer expirations back into the host's single
	// writer loop. Nil runs them inline, which is only safe when the
	// caller owns all goroutines (tests, simulations).
	Dispatch func(func())
}

// TurnManager advances a stable queue of player logins one at a time,
// arming exactly one countdown timer for whoever currently holds the turn.
// Turns are strictly sequential; there is never more than one live timer.
type TurnManager struct {
	logger  *log.Logger
	clock   quartz.Clock
	cfg     TurnConfig
	order   []string
	idx     int
	timer   *quartz.Timer
	running bool
}

// NewTurnManager creates a stopped turn manager
func NewTurnManager(clock quartz.Clock, logger *log.Logger, cfg TurnConfig) *TurnManager {
	if cfg.Dispatch == nil {
		cfg.Dispatch = func(f func()) { f() }
	}
	return &TurnManager{
		logger: logger.WithPrefix("turns"),
		clock:  clock,
		cfg:    cfg,
	}
}

// Begin snapshots the turn order and starts the first player's countdown.
// An empty order completes immediately.
func (tm *TurnManager) Begin(order []string) {
	tm.order = append([]string(nil), order...)
	tm.idx = 0
	tm.running = true
	tm.start()
}

// Current returns the login holding the turn, or "" when idle
func (tm *TurnManager) Current() string {
	if !tm.running || tm.idx >= len(tm.order) {
		return ""
	}
	return tm.order[tm.idx]
}

// Running reports whether the turn cycle is still in progress
func (tm *TurnManager) Running() bool {
	return tm.running
}

// Advance moves to the next player after the current one finished acting.
// The caller is responsible for only advancing on natural completion
// (stand, bust, double, surrender).
func (tm *TurnManager) Advance() {
	if !tm.running {
		return
	}
	tm.stopTimer()
	tm.idx++
	tm.start()
}

// Reset restarts the current player's countdown. Called after an action
// that keeps the turn (a hit that doesn't finish the hand, a split) so the
// player isn't timed out mid-decision.
func (tm *TurnManager) Reset() {
	if !tm.running {
		return
	}
	tm.stopTimer()
	tm.start()
}

// Stop clears the live timer and idles the manager. Used when settlement
// preempts the turn cycle.
func (tm *TurnManager) Stop() {
	tm.running = false
	tm.stopTimer()
}

func (tm *TurnManager) start() {
	for tm.idx < len(tm.order) && tm.cfg.Skip != nil && tm.cfg.Skip(tm.order[tm.idx]) {
		tm.logger.Debug("skipping turn", "login", tm.order[tm.idx])
		tm.idx++
	}
	if tm.idx >= len(tm.order) {
		tm.running = false
		tm.logger.Debug("turn order exhausted", "players", len(tm.order))
		if tm.cfg.OnComplete != nil {
			tm.cfg.OnComplete()
		}
		return
	}

	login := tm.order[tm.idx]
	timeout := tm.cfg.Timeout
	if tm.cfg.TimeoutFor != nil {
		timeout = tm.cfg.TimeoutFor(login, timeout)
	}
	endsAt := tm.clock.Now().Add(timeout)

	tm.logger.Debug("turn started", "login", login, "timeout", timeout)
	if tm.cfg.OnTurn != nil {
		tm.cfg.OnTurn(login, endsAt)
	}

	tm.timer = tm.clock.AfterFunc(timeout, func() {
		tm.cfg.Dispatch(func() { tm.expire(login) })
	})
}

// expire handles a countdown that ran out: audit hook first, then the auto
// action, then the cycle moves on unattended.
func (tm *TurnManager) expire(login string) {
	// A stale timer can fire after Stop or after the player already acted
	if !tm.running || tm.Current() != login {
		return
	}

	tm.logger.Info("turn timed out", "login", login)
	if tm.cfg.OnTimeout != nil {
		tm.cfg.OnTimeout(login)
	}
	if tm.cfg.AutoAction != nil {
		tm.cfg.AutoAction(login)
	}

	tm.timer = nil
	tm.idx++
	tm.start()
}

func (tm *TurnManager) stopTimer() {
	if tm.timer != nil {
		tm.timer.Stop()
		tm.timer = nil
	}
}
