package ledger

import (
	"context"
	"sort"
	"sync"
)

// PlayerStats accumulates per-login round statistics
type PlayerStats struct {
	HandsPlayed   int
	HandsWon      int
	TotalWinnings int
	BestHand      int
}

// MemoryLedger is an in-process Ledger implementation. It backs tests and
// single-node deployments that do not configure Redis.
type MemoryLedger struct {
	mu       sync.RWMutex
	balances map[string]int
	stats    map[string]PlayerStats
}

// NewMemoryLedger creates an empty in-memory ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]int),
		stats:    make(map[string]PlayerStats),
	}
}

// GetBalance implements Ledger
func (l *MemoryLedger) GetBalance(_ context.Context, login string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[login], nil
}

// SetBalance implements Ledger
func (l *MemoryLedger) SetBalance(_ context.Context, login string, chips int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[login] = chips
	return nil
}

// AddChips implements Ledger
func (l *MemoryLedger) AddChips(_ context.Context, login string, delta int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[login] += delta
	return l.balances[login], nil
}

// UpdateRoundStats implements Ledger
func (l *MemoryLedger) UpdateRoundStats(_ context.Context, login string, stats RoundStats) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.stats[login]
	s.HandsPlayed++
	if stats.Won {
		s.HandsWon++
	}
	s.TotalWinnings += stats.Winnings
	if stats.BestHand > s.BestHand {
		s.BestHand = stats.BestHand
	}
	l.stats[login] = s
	return nil
}

// Stats returns the accumulated statistics for a login
func (l *MemoryLedger) Stats(login string) PlayerStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats[login]
}

// GetLeaderboard implements Ledger. Ties are broken by login for a stable
// ordering.
func (l *MemoryLedger) GetLeaderboard(_ context.Context, n int) ([]Entry, error) {
	l.mu.RLock()
	entries := make([]Entry, 0, len(l.balances))
	for login, chips := range l.balances {
		entries = append(entries, Entry{Login: login, Chips: chips})
	}
	l.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Chips != entries[j].Chips {
			return entries[i].Chips > entries[j].Chips
		}
		return entries[i].Login < entries[j].Login
	})

	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}
