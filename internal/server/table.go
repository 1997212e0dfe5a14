package server

import (
	"context"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjacktables/internal/game"
	"github.com/lox/blackjacktables/internal/ledger"
	"github.com/lox/blackjacktables/internal/randutil"
)

// Table runs one blackjack table. All game state is owned by the table's
// run goroutine; connections and timers post work through Do rather than
// touching the engine directly.
type Table struct {
	cfg      TableConfig
	logger   *log.Logger
	clock    quartz.Clock
	bank     ledger.Ledger
	engine   *game.Engine
	commands chan func()
	ctx      context.Context
	cancel   context.CancelFunc

	// run-goroutine state
	seats       map[string]*Connection
	pendingBets map[string]int
	betTimer    *quartz.Timer
}

// NewTable creates a table from its configuration. The clock is injectable
// for tests; production tables pass quartz.NewReal().
func NewTable(cfg TableConfig, bank ledger.Ledger, clock quartz.Clock, seed int64, logger *log.Logger) *Table {
	ctx, cancel := context.WithCancel(context.Background())

	t := &Table{
		cfg:         cfg,
		logger:      logger.WithPrefix("table:" + cfg.Name),
		clock:       clock,
		bank:        bank,
		commands:    make(chan func(), 64),
		ctx:         ctx,
		cancel:      cancel,
		seats:       make(map[string]*Connection),
		pendingBets: make(map[string]int),
	}

	engine := game.NewEngine(game.Config{
		NumDecks:    cfg.Decks,
		MaxPlayers:  cfg.MaxPlayers,
		TurnTimeout: cfg.TurnTimeout(),
		ActionPhase: cfg.ActionPhase(),
	}, bank, clock, randutil.NewFromSeedOrTime(seed), t.logger)
	engine.SetDispatch(t.Do)
	engine.SetEventSink(t.handleEvent)
	t.engine = engine

	return t
}

// Name returns the table's configured name
func (t *Table) Name() string {
	return t.cfg.Name
}

// Run processes table commands until the context is cancelled
func (t *Table) Run() error {
	t.logger.Info("Table started",
		"maxPlayers", t.cfg.MaxPlayers,
		"decks", t.cfg.Decks,
		"minBet", t.cfg.MinBet,
		"maxBet", t.cfg.MaxBet)

	for {
		select {
		case fn := <-t.commands:
			fn()
		case <-t.ctx.Done():
			return nil
		}
	}
}

// Stop shuts the table down
func (t *Table) Stop() {
	t.cancel()
}

// Do posts fn to the table's run goroutine. It is safe to call from any
// goroutine, including timer callbacks.
func (t *Table) Do(fn func()) {
	select {
	case t.commands <- fn:
	case <-t.ctx.Done():
	}
}

// Join seats a player at the table. First-time players are granted the
// table's starting chips. Joining mid-round queues the player for the
// next deal.
func (t *Table) Join(login string, conn *Connection) {
	t.Do(func() {
		if _, taken := t.seats[login]; taken {
			conn.sendError("seat_taken", "Player already seated: "+login)
			return
		}
		if len(t.seats) >= t.cfg.MaxPlayers {
			conn.sendError("table_full", "Table is full: "+t.cfg.Name)
			return
		}

		balance, err := t.bank.GetBalance(t.ctx, login)
		if err != nil {
			t.logger.Error("Failed to read balance", "login", login, "error", err)
			conn.sendError("internal_error", "Failed to read balance")
			return
		}
		if balance == 0 {
			balance, err = t.bank.AddChips(t.ctx, login, t.cfg.StartingChips)
			if err != nil {
				t.logger.Error("Failed to grant starting chips", "login", login, "error", err)
				conn.sendError("internal_error", "Failed to grant starting chips")
				return
			}
			t.logger.Info("Granted starting chips", "login", login, "chips", t.cfg.StartingChips)
		}

		t.seats[login] = conn
		conn.SetPlayer(login)
		conn.SetTable(t.cfg.Name)

		if t.engine.Round() != nil && !t.engine.Round().Settled() {
			t.engine.JoinWaiting(login)
			t.logger.Info("Player queued for next round", "login", login)
		}

		t.send(conn, MessageTypeTableJoined, TableJoinedData{
			Table:   t.cfg.Name,
			Login:   login,
			Balance: balance,
			MinBet:  t.cfg.MinBet,
			MaxBet:  t.cfg.MaxBet,
		})
		t.logger.Info("Player joined", "login", login, "balance", balance)
	})
}

// Leave removes a player's seat. A bet still waiting on the betting window
// is refunded in full; a hand already dealt is folded, forfeiting the bet.
func (t *Table) Leave(login string) {
	t.Do(func() {
		if _, ok := t.seats[login]; !ok {
			return
		}
		delete(t.seats, login)

		if pending, ok := t.pendingBets[login]; ok {
			delete(t.pendingBets, login)
			if _, err := t.bank.AddChips(t.ctx, login, pending); err != nil {
				t.logger.Error("Failed to refund pending bet", "login", login, "amount", pending, "error", err)
			} else {
				t.logger.Info("Refunded pending bet", "login", login, "amount", pending)
			}
		}

		if t.engine.Round() != nil && !t.engine.Round().Settled() {
			t.engine.Fold(t.ctx, login)
		}

		t.logger.Info("Player left", "login", login)
	})
}

// PlaceBet stakes chips for the next round. The first accepted bet opens
// the betting window; when it closes the round deals.
func (t *Table) PlaceBet(login string, amount int, conn *Connection) {
	t.Do(func() {
		if _, seated := t.seats[login]; !seated {
			conn.sendError("not_seated", "Join the table before betting")
			return
		}
		if t.engine.Round() != nil && !t.engine.Round().Settled() {
			conn.sendError("round_in_progress", "Wait for the current round to finish")
			return
		}
		if _, placed := t.pendingBets[login]; placed {
			conn.sendError("bet_placed", "Bet already placed for this round")
			return
		}
		if amount < t.cfg.MinBet || amount > t.cfg.MaxBet {
			conn.sendError("invalid_bet", "Bet must be between table limits")
			return
		}

		balance, err := t.bank.GetBalance(t.ctx, login)
		if err != nil {
			t.logger.Error("Failed to read balance", "login", login, "error", err)
			conn.sendError("internal_error", "Failed to read balance")
			return
		}
		if balance < amount {
			conn.sendError("insufficient_chips", "Not enough chips for that bet")
			return
		}

		// Chips leave the ledger when the bet is accepted, not at settlement.
		balance, err = t.bank.AddChips(t.ctx, login, -amount)
		if err != nil {
			t.logger.Error("Failed to debit bet", "login", login, "error", err)
			conn.sendError("internal_error", "Failed to debit bet")
			return
		}
		t.pendingBets[login] = amount

		if t.betTimer == nil {
			endsAt := t.clock.Now().Add(t.cfg.BettingWindow())
			t.betTimer = t.clock.AfterFunc(t.cfg.BettingWindow(), func() {
				t.Do(t.startRound)
			})
			t.broadcast(MessageTypeBettingOpen, BettingOpenData{
				Table:  t.cfg.Name,
				EndsAt: endsAt,
			})
		}

		t.broadcast(MessageTypeBetAccepted, BetAcceptedData{
			Login:   login,
			Amount:  amount,
			Balance: balance,
		})
		t.logger.Info("Bet placed", "login", login, "amount", amount)
	})
}

// Action applies a player action to the running round. Invalid and
// out-of-turn actions are dropped without a reply, matching the engine's
// silent-rejection rule.
func (t *Table) Action(login string, data PlayerActionData) {
	t.Do(func() {
		switch data.Action {
		case "hit":
			t.engine.Hit(t.ctx, login)
		case "stand":
			t.engine.Stand(t.ctx, login)
		case "double":
			t.engine.DoubleDown(t.ctx, login)
		case "split":
			t.engine.Split(t.ctx, login)
		case "surrender":
			t.engine.Surrender(t.ctx, login)
		case "insurance":
			t.engine.Insurance(t.ctx, login, data.Amount)
		case "switch":
			t.engine.SwitchHand(t.ctx, login, data.Amount)
		default:
			t.logger.Debug("Unknown action", "login", login, "action", data.Action)
		}
	})
}

// startRound deals a new round from the accumulated bets. Runs on the
// table goroutine.
func (t *Table) startRound() {
	t.betTimer = nil

	if len(t.pendingBets) == 0 {
		return
	}

	bets := t.pendingBets
	t.pendingBets = make(map[string]int)

	bettors := make([]string, 0, len(bets))
	for login := range bets {
		bettors = append(bettors, login)
	}
	sort.Strings(bettors)

	t.engine.StartRound(t.ctx, bettors, bets)
}

// handleEvent fans an engine event out to every seated connection. Broke
// players are unseated once their payout report lands.
func (t *Table) handleEvent(ev game.Event) {
	if pe, ok := ev.(game.PayoutsEvent); ok {
		defer t.unseatBroke(pe.Broke)
	}

	msg, err := eventMessage(ev)
	if err != nil {
		t.logger.Error("Failed to encode event", "type", ev.EventType(), "error", err)
		return
	}
	for _, conn := range t.seats {
		_ = conn.SendMessage(msg)
	}
}

func (t *Table) unseatBroke(logins []string) {
	for _, login := range logins {
		conn, ok := t.seats[login]
		if !ok {
			continue
		}
		delete(t.seats, login)
		conn.sendError("broke", "Out of chips, leaving the table")
		t.logger.Info("Unseated broke player", "login", login)
	}
}

func (t *Table) broadcast(mt MessageType, data interface{}) {
	msg, err := NewMessage(mt, data)
	if err != nil {
		t.logger.Error("Failed to encode message", "type", mt, "error", err)
		return
	}
	for _, conn := range t.seats {
		_ = conn.SendMessage(msg)
	}
}

func (t *Table) send(conn *Connection, mt MessageType, data interface{}) {
	msg, err := NewMessage(mt, data)
	if err != nil {
		t.logger.Error("Failed to encode message", "type", mt, "error", err)
		return
	}
	_ = conn.SendMessage(msg)
}
