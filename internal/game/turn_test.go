package game

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestTurnManagerSequentialTimeouts(t *testing.T) {
	ctx := context.Background()
	mock := quartz.NewMock(t)

	var turns []string
	var timeouts []string
	var autoActions []string
	completed := false

	tm := NewTurnManager(mock, testLogger(), TurnConfig{
		Timeout: 30 * time.Second,
		OnTurn: func(login string, endsAt time.Time) {
			turns = append(turns, login)
		},
		OnTimeout: func(login string) {
			timeouts = append(timeouts, login)
		},
		AutoAction: func(login string) {
			autoActions = append(autoActions, login)
		},
		OnComplete: func() {
			completed = true
		},
	})

	tm.Begin([]string{"alice", "bob", "charlie"})
	require.Equal(t, "alice", tm.Current())

	// Let every countdown expire in sequence
	for i := 0; i < 3; i++ {
		mock.Advance(30 * time.Second).MustWait(ctx)
	}

	assert.Equal(t, []string{"alice", "bob", "charlie"}, turns)
	assert.Equal(t, []string{"alice", "bob", "charlie"}, timeouts)
	assert.Equal(t, []string{"alice", "bob", "charlie"}, autoActions)
	assert.True(t, completed)
	assert.False(t, tm.Running())
	assert.Equal(t, "", tm.Current())
}

func TestTurnManagerAdvanceCancelsTimer(t *testing.T) {
	ctx := context.Background()
	mock := quartz.NewMock(t)

	var timeouts []string

	tm := NewTurnManager(mock, testLogger(), TurnConfig{
		Timeout: 30 * time.Second,
		OnTimeout: func(login string) {
			timeouts = append(timeouts, login)
		},
	})

	tm.Begin([]string{"alice", "bob"})
	require.Equal(t, "alice", tm.Current())

	// Alice acts before her countdown runs out
	tm.Advance()
	require.Equal(t, "bob", tm.Current())

	// The full base timeout passing must only expire bob
	mock.Advance(30 * time.Second).MustWait(ctx)

	assert.Equal(t, []string{"bob"}, timeouts)
	assert.False(t, tm.Running())
}

func TestTurnManagerTimeoutOverride(t *testing.T) {
	ctx := context.Background()
	mock := quartz.NewMock(t)

	var timeouts []string

	tm := NewTurnManager(mock, testLogger(), TurnConfig{
		Timeout: 30 * time.Second,
		TimeoutFor: func(login string, base time.Duration) time.Duration {
			if login == "slowpoke" {
				return 5 * time.Second
			}
			return base
		},
		OnTimeout: func(login string) {
			timeouts = append(timeouts, login)
		},
	})

	tm.Begin([]string{"slowpoke", "alice"})

	mock.Advance(5 * time.Second).MustWait(ctx)
	assert.Equal(t, []string{"slowpoke"}, timeouts)
	assert.Equal(t, "alice", tm.Current())

	mock.Advance(30 * time.Second).MustWait(ctx)
	assert.Equal(t, []string{"slowpoke", "alice"}, timeouts)
}

func TestTurnManagerStopSilencesTimers(t *testing.T) {
	ctx := context.Background()
	mock := quartz.NewMock(t)

	var timeouts []string

	tm := NewTurnManager(mock, testLogger(), TurnConfig{
		Timeout: 30 * time.Second,
		OnTimeout: func(login string) {
			timeouts = append(timeouts, login)
		},
	})

	tm.Begin([]string{"alice"})
	tm.Stop()

	mock.Advance(30 * time.Second).MustWait(ctx)

	assert.Empty(t, timeouts)
	assert.False(t, tm.Running())
}

func TestTurnManagerResetRestartsCountdown(t *testing.T) {
	ctx := context.Background()
	mock := quartz.NewMock(t)

	var timeouts []string

	tm := NewTurnManager(mock, testLogger(), TurnConfig{
		Timeout: 30 * time.Second,
		OnTimeout: func(login string) {
			timeouts = append(timeouts, login)
		},
	})

	tm.Begin([]string{"alice"})

	// Alice acts with ten seconds left; her countdown starts over
	mock.Advance(20 * time.Second).MustWait(ctx)
	tm.Reset()

	mock.Advance(20 * time.Second).MustWait(ctx)
	assert.Empty(t, timeouts, "the original deadline must not fire")
	require.Equal(t, "alice", tm.Current())

	mock.Advance(10 * time.Second).MustWait(ctx)
	assert.Equal(t, []string{"alice"}, timeouts)
}

func TestTurnManagerSkipsFinishedPlayers(t *testing.T) {
	mock := quartz.NewMock(t)

	var turns []string
	done := map[string]bool{"bob": true}

	tm := NewTurnManager(mock, testLogger(), TurnConfig{
		Timeout: 30 * time.Second,
		Skip:    func(login string) bool { return done[login] },
		OnTurn: func(login string, endsAt time.Time) {
			turns = append(turns, login)
		},
	})

	tm.Begin([]string{"alice", "bob", "charlie"})
	require.Equal(t, "alice", tm.Current())

	tm.Advance()
	assert.Equal(t, "charlie", tm.Current())
	assert.Equal(t, []string{"alice", "charlie"}, turns)
}

func TestTurnManagerEmptyOrderCompletesImmediately(t *testing.T) {
	mock := quartz.NewMock(t)

	completed := false
	tm := NewTurnManager(mock, testLogger(), TurnConfig{
		Timeout:    30 * time.Second,
		OnComplete: func() { completed = true },
	})

	tm.Begin(nil)

	assert.True(t, completed)
	assert.False(t, tm.Running())
}
