package game

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjacktables/internal/deck"
	"github.com/lox/blackjacktables/internal/ledger"
	"github.com/lox/blackjacktables/internal/randutil"
)

// testTable bundles an engine against an in-memory ledger and a mock
// clock, with every emitted event recorded.
type testTable struct {
	engine *Engine
	bank   *ledger.MemoryLedger
	clock  *quartz.Mock
	events []Event
}

func newTestTable(t *testing.T, balances map[string]int) *testTable {
	t.Helper()

	tt := &testTable{
		bank:  ledger.NewMemoryLedger(),
		clock: quartz.NewMock(t),
	}

	ctx := context.Background()
	for login, chips := range balances {
		require.NoError(t, tt.bank.SetBalance(ctx, login, chips))
	}

	tt.engine = NewEngine(Config{
		NumDecks:    1,
		MaxPlayers:  5,
		TurnTimeout: 30 * time.Second,
		ActionPhase: 3 * time.Minute,
	}, tt.bank, tt.clock, randutil.New(1), testLogger())
	tt.engine.SetEventSink(func(ev Event) {
		tt.events = append(tt.events, ev)
	})
	return tt
}

func (tt *testTable) balance(t *testing.T, login string) int {
	t.Helper()
	balance, err := tt.bank.GetBalance(context.Background(), login)
	require.NoError(t, err)
	return balance
}

// deal starts a round from a stacked shoe. Cards are consumed two for the
// dealer first, then two per bettor in order.
func (tt *testTable) deal(ctx context.Context, bets map[string]int, order []string, stacked ...deck.Card) *Round {
	shoe := deck.NewStackedShoe(randutil.New(1), stacked...)
	return tt.engine.StartRoundWithShoe(ctx, shoe, order, bets)
}

func TestStartRoundDeals(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900, "bob": 900})

	round := tt.deal(ctx, map[string]int{"alice": 100, "bob": 50}, []string{"alice", "bob"},
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Eight), // dealer
		c(deck.Clubs, deck.Ten), c(deck.Diamonds, deck.Seven), // alice
		c(deck.Clubs, deck.Six), c(deck.Diamonds, deck.Five), // bob
	)

	require.NotNil(t, round)
	assert.Equal(t, []string{"alice", "bob"}, round.TurnOrder)
	assert.Len(t, round.DealerHand, 2)
	assert.Len(t, round.Players["alice"].Hand, 2)
	assert.Len(t, round.Players["bob"].Hand, 2)
	assert.Equal(t, 100, round.Bets["alice"])
	assert.Equal(t, "alice", tt.engine.CurrentTurn())

	up, ok := round.DealerUpCard()
	require.True(t, ok)
	assert.Equal(t, c(deck.Spades, deck.Nine), up)

	// Deal publishes a round start plus one update per player
	require.NotEmpty(t, tt.events)
	start, ok := tt.events[0].(RoundStartEvent)
	require.True(t, ok)
	assert.Equal(t, round.ID, start.RoundID)
	assert.Equal(t, []string{"alice", "bob"}, start.TurnOrder)
}

func TestStartRoundSkipsZeroBets(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900, "bob": 900})

	round := tt.engine.StartRound(ctx, []string{"alice", "bob"}, map[string]int{"alice": 100})

	assert.Equal(t, []string{"alice"}, round.TurnOrder)
	assert.Nil(t, round.Players["bob"])
}

func TestStartRoundCapsPlayers(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{})
	tt.engine.cfg.MaxPlayers = 2

	bets := map[string]int{"a": 10, "b": 10, "c": 10}
	round := tt.engine.StartRound(ctx, []string{"a", "b", "c"}, bets)

	assert.Equal(t, []string{"a", "b"}, round.TurnOrder)
}

func TestJoinWaitingEntersNextRound(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900, "carol": 900})

	tt.engine.JoinWaiting("carol")
	tt.engine.JoinWaiting("carol") // duplicate ignored

	round := tt.engine.StartRound(ctx, []string{"alice"}, map[string]int{"alice": 100, "carol": 100})

	assert.Equal(t, []string{"alice", "carol"}, round.TurnOrder)
}

func TestOutOfTurnActionsRejected(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900, "bob": 900})

	round := tt.deal(ctx, map[string]int{"alice": 100, "bob": 100}, []string{"alice", "bob"},
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Eight),
		c(deck.Clubs, deck.Ten), c(deck.Diamonds, deck.Seven),
		c(deck.Clubs, deck.Six), c(deck.Diamonds, deck.Five),
		c(deck.Spades, deck.Two),
	)

	// Bob does not hold the turn; nothing may change
	assert.False(t, tt.engine.Hit(ctx, "bob"))
	assert.False(t, tt.engine.Stand(ctx, "bob"))
	assert.False(t, tt.engine.DoubleDown(ctx, "bob"))
	assert.Len(t, round.Players["bob"].Hand, 2)
	assert.Equal(t, 900, tt.balance(t, "bob"))

	// Unknown logins are rejected too
	assert.False(t, tt.engine.Hit(ctx, "mallory"))
	assert.Equal(t, "alice", tt.engine.CurrentTurn())
}

func TestHitDrawsAndBusts(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900})

	round := tt.deal(ctx, map[string]int{"alice": 100}, []string{"alice"},
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Eight), // dealer
		c(deck.Clubs, deck.Ten), c(deck.Diamonds, deck.Seven), // alice 17
		c(deck.Spades, deck.Two),  // hit to 19
		c(deck.Spades, deck.King), // hit busts
	)

	require.True(t, tt.engine.Hit(ctx, "alice"))
	assert.Len(t, round.Players["alice"].Hand, 3)
	assert.False(t, round.Players["alice"].Busted)
	assert.Equal(t, "alice", tt.engine.CurrentTurn())

	require.True(t, tt.engine.Hit(ctx, "alice"))
	assert.True(t, round.Players["alice"].Busted)
	assert.Equal(t, "", tt.engine.CurrentTurn())
}

func TestStandAdvancesTurn(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900, "bob": 900})

	round := tt.deal(ctx, map[string]int{"alice": 100, "bob": 100}, []string{"alice", "bob"},
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Eight),
		c(deck.Clubs, deck.Ten), c(deck.Diamonds, deck.Seven),
		c(deck.Clubs, deck.Six), c(deck.Diamonds, deck.Five),
	)

	require.True(t, tt.engine.Stand(ctx, "alice"))
	assert.True(t, round.Players["alice"].Stood)
	assert.Equal(t, "bob", tt.engine.CurrentTurn())

	// Alice is done; a second stand is rejected
	assert.False(t, tt.engine.Stand(ctx, "alice"))
}

func TestDoubleDown(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 150, "bob": 900})

	round := tt.deal(ctx, map[string]int{"alice": 100, "bob": 100}, []string{"alice", "bob"},
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Eight),
		c(deck.Clubs, deck.Six), c(deck.Diamonds, deck.Five), // alice 11
		c(deck.Clubs, deck.Ten), c(deck.Diamonds, deck.Seven), // bob
		c(deck.Spades, deck.King), // alice's double card
	)

	require.True(t, tt.engine.DoubleDown(ctx, "alice"))
	assert.Equal(t, 200, round.Bets["alice"])
	assert.Equal(t, 50, tt.balance(t, "alice"), "second stake debited at acceptance")
	assert.Len(t, round.Players["alice"].Hand, 3)
	assert.True(t, round.Players["alice"].Stood)
	assert.Equal(t, "bob", tt.engine.CurrentTurn())

	// Bob cannot double twice nor without chips covering the stake
	tt.bank.SetBalance(ctx, "bob", 50)
	assert.False(t, tt.engine.DoubleDown(ctx, "bob"))
	assert.Equal(t, 100, round.Bets["bob"])
}

func TestSurrenderRefundsHalf(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900})

	round := tt.deal(ctx, map[string]int{"alice": 101}, []string{"alice"},
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Eight),
		c(deck.Clubs, deck.Ten), c(deck.Diamonds, deck.Six),
	)

	require.True(t, tt.engine.Surrender(ctx, "alice"))
	assert.Equal(t, 950, tt.balance(t, "alice"), "refund rounds down")
	assert.Equal(t, 0, round.Bets["alice"])
	assert.True(t, round.Players["alice"].Surrendered)
	assert.Equal(t, "", tt.engine.CurrentTurn())
}

func TestInsuranceRequiresDealerAce(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900})

	tt.deal(ctx, map[string]int{"alice": 100}, []string{"alice"},
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Eight), // dealer shows a nine
		c(deck.Clubs, deck.Ten), c(deck.Diamonds, deck.Six),
	)

	assert.False(t, tt.engine.Insurance(ctx, "alice", 50))
	assert.Equal(t, 900, tt.balance(t, "alice"))
}

func TestInsurance(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900})

	round := tt.deal(ctx, map[string]int{"alice": 100}, []string{"alice"},
		c(deck.Spades, deck.Ace), c(deck.Hearts, deck.Eight), // dealer shows an ace
		c(deck.Clubs, deck.Ten), c(deck.Diamonds, deck.Six),
	)

	// Over half the bet is rejected, as is a non-positive stake
	assert.False(t, tt.engine.Insurance(ctx, "alice", 51))
	assert.False(t, tt.engine.Insurance(ctx, "alice", 0))

	require.True(t, tt.engine.Insurance(ctx, "alice", 50))
	assert.Equal(t, 850, tt.balance(t, "alice"))
	assert.Equal(t, 50, round.Players["alice"].Insurance)

	// Placing insurance keeps the turn; only one side bet per round
	assert.Equal(t, "alice", tt.engine.CurrentTurn())
	assert.False(t, tt.engine.Insurance(ctx, "alice", 10))
}

func TestSplit(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900})

	round := tt.deal(ctx, map[string]int{"alice": 100}, []string{"alice"},
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Eight),
		c(deck.Clubs, deck.Eight), c(deck.Diamonds, deck.Eight), // pair
		c(deck.Spades, deck.Two), c(deck.Spades, deck.Three), // one card per sub-hand
	)

	require.True(t, tt.engine.Split(ctx, "alice"))
	ps := round.Players["alice"]
	assert.True(t, ps.IsSplit)
	assert.Equal(t, 200, round.Bets["alice"])
	assert.Equal(t, 800, tt.balance(t, "alice"))
	require.Len(t, ps.Hands, 2)
	assert.Equal(t, c(deck.Clubs, deck.Eight), ps.Hands[0][0])
	assert.Equal(t, c(deck.Spades, deck.Two), ps.Hands[0][1])
	assert.Equal(t, c(deck.Diamonds, deck.Eight), ps.Hands[1][0])
	assert.Equal(t, 0, ps.ActiveHand)

	// Only one split per round
	assert.False(t, tt.engine.Split(ctx, "alice"))
}

func TestSplitRequiresMatchedPair(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900})

	tt.deal(ctx, map[string]int{"alice": 100}, []string{"alice"},
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Eight),
		c(deck.Clubs, deck.Ten), c(deck.Diamonds, deck.King), // both worth ten, not a pair
	)

	assert.False(t, tt.engine.Split(ctx, "alice"))
	assert.Equal(t, 900, tt.balance(t, "alice"))
}

func TestSplitHandFlow(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900})

	round := tt.deal(ctx, map[string]int{"alice": 100}, []string{"alice"},
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Eight),
		c(deck.Clubs, deck.Eight), c(deck.Diamonds, deck.Eight),
		c(deck.Spades, deck.Two), c(deck.Spades, deck.Three),
		c(deck.Hearts, deck.Five), // hit on the first sub-hand
	)

	require.True(t, tt.engine.Split(ctx, "alice"))
	ps := round.Players["alice"]

	// Hit lands on the active sub-hand
	require.True(t, tt.engine.Hit(ctx, "alice"))
	assert.Len(t, ps.Hands[0], 3)
	assert.Len(t, ps.Hands[1], 2)

	// Standing on the first sub-hand moves play to the second
	require.True(t, tt.engine.Stand(ctx, "alice"))
	assert.Equal(t, 1, ps.ActiveHand)
	assert.False(t, ps.Stood)
	assert.Equal(t, "alice", tt.engine.CurrentTurn())

	// Standing on the last sub-hand ends the turn
	require.True(t, tt.engine.Stand(ctx, "alice"))
	assert.True(t, ps.Stood)
	assert.Equal(t, "", tt.engine.CurrentTurn())
}

func TestSwitchHand(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900})

	round := tt.deal(ctx, map[string]int{"alice": 100}, []string{"alice"},
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Eight),
		c(deck.Clubs, deck.Eight), c(deck.Diamonds, deck.Eight),
		c(deck.Spades, deck.Two), c(deck.Spades, deck.Three),
		c(deck.Hearts, deck.Five),
	)

	require.True(t, tt.engine.Split(ctx, "alice"))
	ps := round.Players["alice"]

	require.True(t, tt.engine.SwitchHand(ctx, "alice", 1))
	assert.Equal(t, 1, ps.ActiveHand)

	// Hits follow the switch
	require.True(t, tt.engine.Hit(ctx, "alice"))
	assert.Len(t, ps.Hands[1], 3)

	// Out of range indexes are rejected
	assert.False(t, tt.engine.SwitchHand(ctx, "alice", 2))
	assert.False(t, tt.engine.SwitchHand(ctx, "alice", -1))
}

func TestSwitchHandRejectedWithoutSplit(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900})

	tt.deal(ctx, map[string]int{"alice": 100}, []string{"alice"},
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Eight),
		c(deck.Clubs, deck.Ten), c(deck.Diamonds, deck.Six),
	)

	assert.False(t, tt.engine.SwitchHand(ctx, "alice", 0))
}

func TestTurnTimeoutAutoStands(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900, "bob": 900})

	round := tt.deal(ctx, map[string]int{"alice": 100, "bob": 100}, []string{"alice", "bob"},
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Eight),
		c(deck.Clubs, deck.Ten), c(deck.Diamonds, deck.Seven),
		c(deck.Clubs, deck.Six), c(deck.Diamonds, deck.Five),
	)

	require.Equal(t, "alice", tt.engine.CurrentTurn())

	tt.clock.Advance(30 * time.Second).MustWait(ctx)
	assert.True(t, round.Players["alice"].Stood)
	assert.Equal(t, "bob", tt.engine.CurrentTurn())

	// Bob times out too and the round settles
	tt.clock.Advance(30 * time.Second).MustWait(ctx)
	assert.True(t, round.Players["bob"].Stood)
	assert.True(t, round.Settled())
}

func TestHitRestartsCountdown(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900})

	round := tt.deal(ctx, map[string]int{"alice": 100}, []string{"alice"},
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Eight),
		c(deck.Clubs, deck.Ten), c(deck.Diamonds, deck.Seven), // alice 17
		c(deck.Spades, deck.Two), // hit to 19
	)

	// Alice hits with ten seconds left on her countdown
	tt.clock.Advance(20 * time.Second).MustWait(ctx)
	require.True(t, tt.engine.Hit(ctx, "alice"))

	// The original deadline passes without an auto-stand
	tt.clock.Advance(20 * time.Second).MustWait(ctx)
	assert.False(t, round.Players["alice"].Stood)
	assert.Equal(t, "alice", tt.engine.CurrentTurn())

	// The restarted countdown expires
	tt.clock.Advance(10 * time.Second).MustWait(ctx)
	assert.True(t, round.Players["alice"].Stood)
}

func TestFoldCurrentPlayerAdvancesTurn(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900, "bob": 900})

	round := tt.deal(ctx, map[string]int{"alice": 100, "bob": 100}, []string{"alice", "bob"},
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Eight),
		c(deck.Clubs, deck.Ten), c(deck.Diamonds, deck.Seven),
		c(deck.Clubs, deck.Six), c(deck.Diamonds, deck.Five),
	)

	require.True(t, tt.engine.Fold(ctx, "alice"))
	assert.True(t, round.Players["alice"].Folded)
	assert.Equal(t, "bob", tt.engine.CurrentTurn())

	// A finished player cannot fold again
	assert.False(t, tt.engine.Fold(ctx, "alice"))
	// Neither can a login that was never dealt in
	assert.False(t, tt.engine.Fold(ctx, "mallory"))
}

func TestFoldAheadOfTurnIsSkipped(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900, "bob": 900, "charlie": 900})

	bets := map[string]int{"alice": 100, "bob": 100, "charlie": 100}
	round := tt.deal(ctx, bets, []string{"alice", "bob", "charlie"},
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Eight),
		c(deck.Clubs, deck.Ten), c(deck.Diamonds, deck.Seven),
		c(deck.Clubs, deck.Six), c(deck.Diamonds, deck.Five),
		c(deck.Clubs, deck.Four), c(deck.Diamonds, deck.Three),
	)

	// Bob disconnects before his turn comes up
	require.True(t, tt.engine.Fold(ctx, "bob"))
	assert.Equal(t, "alice", tt.engine.CurrentTurn())

	// Alice finishing hands the turn straight to charlie
	require.True(t, tt.engine.Stand(ctx, "alice"))
	assert.Equal(t, "charlie", tt.engine.CurrentTurn())
	assert.True(t, round.Players["bob"].Folded)
}

func TestActionPhaseTimerForcesSettlement(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900})

	// A turn timeout that never fires before the phase limit
	tt.engine.cfg.TurnTimeout = 10 * time.Minute

	round := tt.deal(ctx, map[string]int{"alice": 100}, []string{"alice"},
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Eight),
		c(deck.Clubs, deck.Ten), c(deck.Diamonds, deck.Seven),
	)

	tt.clock.Advance(3 * time.Minute).MustWait(ctx)

	assert.True(t, round.Settled())

	var phaseEnded bool
	for _, ev := range tt.events {
		if _, ok := ev.(ActionPhaseEndedEvent); ok {
			phaseEnded = true
		}
	}
	assert.True(t, phaseEnded)
}

func TestActionsAfterSettlementRejected(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 900})

	round := tt.deal(ctx, map[string]int{"alice": 100}, []string{"alice"},
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Eight),
		c(deck.Clubs, deck.Ten), c(deck.Diamonds, deck.Seven),
	)

	require.NotNil(t, tt.engine.Settle(ctx))
	require.True(t, round.Settled())

	assert.False(t, tt.engine.Hit(ctx, "alice"))
	assert.False(t, tt.engine.Stand(ctx, "alice"))
	assert.False(t, tt.engine.Surrender(ctx, "alice"))
}
