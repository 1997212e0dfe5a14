package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/lox/blackjacktables/internal/deck"
	"github.com/lox/blackjacktables/internal/ledger"
)

// ModeBlackjack tags round results with the game mode
const ModeBlackjack = "blackjack"

// PayoutReport is the settlement output handed back to the host: who won,
// what every login was credited, the leaderboard either side of the
// payouts, and which players finished at or below zero chips.
type PayoutReport struct {
	RoundID           string
	Winners           []string
	Payouts           map[string]int
	LeaderboardBefore []ledger.Entry
	LeaderboardAfter  []ledger.Entry
	Broke             []string
}

// Settle completes the round: unfinished hands are auto-played, the dealer
// draws to 17, every hand is evaluated, and winnings are credited to the
// ledger. Hosts must guarantee a single invocation per round; a repeat
// call on a settled round is a nil no-op as a backstop.
func (e *Engine) Settle(ctx context.Context) *PayoutReport {
	if e.round == nil || e.round.settled {
		return nil
	}
	round := e.round
	round.settled = true

	if e.turns != nil {
		e.turns.Stop()
	}
	if e.phaseTimer != nil {
		e.phaseTimer.Stop()
		e.phaseTimer = nil
	}

	// Defensive: a round can reach settlement without a dealer hand if the
	// phase timer fired before the deal completed
	if len(round.DealerHand) == 0 {
		round.DealerHand = []deck.Card{round.Shoe.Draw(), round.Shoe.Draw()}
	}
	for HandValue(round.DealerHand) < dealerStand {
		round.DealerHand = append(round.DealerHand, round.Shoe.Draw())
	}
	dealerNatural := IsNatural(round.DealerHand)

	e.logger.Info("settling round",
		"round", round.ID,
		"dealer", handString(round.DealerHand),
		"dealerValue", HandValue(round.DealerHand))

	before, err := e.bank.GetLeaderboard(ctx, e.cfg.LeaderboardSize)
	if err != nil {
		e.logger.Error("leaderboard read failed", "err", err)
	}

	report := &PayoutReport{
		RoundID: round.ID,
		Payouts: make(map[string]int),
	}
	results := make([]PlayerResult, 0, len(round.TurnOrder))

	for _, login := range round.TurnOrder {
		ps := round.Players[login]
		if ps == nil {
			continue
		}

		total, won, best, outcome := e.settlePlayer(round, login, ps)

		if ps.InsurancePlaced && dealerNatural {
			// Insurance pays 2:1 on the side bet
			total += ps.Insurance * 2
		}

		if total > 0 {
			if _, err := e.bank.AddChips(ctx, login, total); err != nil {
				e.logger.Error("payout credit failed", "login", login, "amount", total, "err", err)
			}
			report.Payouts[login] = total
			report.Winners = append(report.Winners, login)
		}

		stats := ledger.RoundStats{Won: won, Winnings: total, BestHand: best}
		if err := e.bank.UpdateRoundStats(ctx, login, stats); err != nil {
			e.logger.Error("stats update failed", "login", login, "err", err)
		}

		results = append(results, PlayerResult{
			Login:   login,
			Hand:    ps.Hand,
			Hands:   ps.Hands,
			Outcome: outcome,
			Payout:  total,
		})
	}

	after, err := e.bank.GetLeaderboard(ctx, e.cfg.LeaderboardSize)
	if err != nil {
		e.logger.Error("leaderboard read failed", "err", err)
	}
	report.LeaderboardBefore = before
	report.LeaderboardAfter = after

	for _, login := range round.TurnOrder {
		balance, err := e.bank.GetBalance(ctx, login)
		if err != nil {
			e.logger.Error("balance lookup failed", "login", login, "err", err)
			continue
		}
		if balance <= 0 {
			report.Broke = append(report.Broke, login)
		}
	}

	// Bets are spent; the host replaces the player map next round
	round.Bets = make(map[string]int)

	if e.emit != nil {
		e.emit(RoundResultEvent{
			RoundID:    round.ID,
			DealerHand: round.DealerHand,
			Players:    results,
			Mode:       ModeBlackjack,
		})
		e.emit(PayoutsEvent{
			RoundID:          round.ID,
			Winners:          report.Winners,
			Payouts:          report.Payouts,
			Leaderboard:      report.LeaderboardBefore,
			LeaderboardAfter: report.LeaderboardAfter,
			Broke:            report.Broke,
		})
	}

	e.logger.Info("round settled",
		"round", round.ID,
		"winners", len(report.Winners),
		"broke", len(report.Broke))
	return report
}

// settlePlayer computes one player's total credit, win flag, best hand
// value and outcome label
func (e *Engine) settlePlayer(round *Round, login string, ps *PlayerState) (total int, won bool, best int, outcome string) {
	switch {
	case ps.Surrendered:
		// Bet already zeroed and half-refunded at surrender time; only a
		// winning insurance side bet can still pay (handled by the caller)
		return 0, false, 0, "Surrender"

	case ps.Folded:
		return 0, false, 0, "Fold"

	case ps.IsSplit:
		// The recorded bet was doubled when the player split, and the
		// original stake covers both sub-hands, so each plays for a
		// quarter of what is on record.
		stake := round.Bets[login] / 4
		names := make([]string, len(ps.Hands))
		for i, hand := range ps.Hands {
			out := EvaluateHand(hand, round.DealerHand)
			total += int(out.Multiplier * float64(stake))
			names[i] = out.Name
			if out.Multiplier >= 2 {
				won = true
			}
			if v := HandValue(hand); v <= blackjackTarget && v > best {
				best = v
			}
		}
		return total, won, best, fmt.Sprintf("%s / %s", names[0], names[1])

	default:
		// Unattended hands are played out like the dealer's rather than
		// left frozen
		if !ps.Stood && HandValue(ps.Hand) < dealerStand {
			for HandValue(ps.Hand) < dealerStand {
				ps.Hand = append(ps.Hand, round.Shoe.Draw())
			}
		}
		out := EvaluateHand(ps.Hand, round.DealerHand)
		total = int(out.Multiplier * float64(round.Bets[login]))
		won = out.Multiplier >= 2
		if v := HandValue(ps.Hand); v <= blackjackTarget {
			best = v
		}
		return total, won, best, out.Name
	}
}

func handString(cards []deck.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
