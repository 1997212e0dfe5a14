// Package ledger abstracts the chip store the round engine settles
// against. The engine only ever debits before mutating in-memory state and
// credits at settlement; everything else (where balances live, how
// leaderboards are ranked) is an implementation concern.
package ledger

import "context"

// Entry is one leaderboard row
type Entry struct {
	Login string `json:"login"`
	Chips int    `json:"chips"`
}

// RoundStats describes one player's result for a settled round
type RoundStats struct {
	Won      bool `json:"won"`
	Winnings int  `json:"winnings"`
	BestHand int  `json:"bestHand"`
}

// Ledger is the chip store consumed by the round engine
type Ledger interface {
	// GetBalance returns the current chip balance for a login. Unknown
	// logins have balance zero.
	GetBalance(ctx context.Context, login string) (int, error)

	// SetBalance overwrites a login's balance
	SetBalance(ctx context.Context, login string, chips int) error

	// AddChips adjusts a balance by delta (negative to debit) and returns
	// the new balance
	AddChips(ctx context.Context, login string, delta int) (int, error)

	// UpdateRoundStats records the outcome of one settled round
	UpdateRoundStats(ctx context.Context, login string, stats RoundStats) error

	// GetLeaderboard returns the top n balances in descending order
	GetLeaderboard(ctx context.Context, n int) ([]Entry, error)
}
