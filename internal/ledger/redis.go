package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	balanceKeyPrefix = "blackjack:chips:"
	statsKeyPrefix   = "blackjack:stats:"
	leaderboardKey   = "blackjack:leaderboard"
)

// RedisLedger stores balances as plain keys and mirrors them into a sorted
// set so GetLeaderboard is a single ZREVRANGE.
type RedisLedger struct {
	rdb *redis.Client
}

// NewRedisLedger connects to the given Redis address and verifies the
// connection with a ping.
func NewRedisLedger(ctx context.Context, addr string, db int) (*RedisLedger, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisLedger{rdb: rdb}, nil
}

// Close releases the underlying client
func (l *RedisLedger) Close() error {
	return l.rdb.Close()
}

func balanceKey(login string) string { return balanceKeyPrefix + login }
func statsKey(login string) string   { return statsKeyPrefix + login }

// GetBalance implements Ledger
func (l *RedisLedger) GetBalance(ctx context.Context, login string) (int, error) {
	chips, err := l.rdb.Get(ctx, balanceKey(login)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance %s: %w", login, err)
	}
	return chips, nil
}

// SetBalance implements Ledger
func (l *RedisLedger) SetBalance(ctx context.Context, login string, chips int) error {
	pipe := l.rdb.TxPipeline()
	pipe.Set(ctx, balanceKey(login), chips, 0)
	pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(chips), Member: login})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set balance %s: %w", login, err)
	}
	return nil
}

// AddChips implements Ledger
func (l *RedisLedger) AddChips(ctx context.Context, login string, delta int) (int, error) {
	chips, err := l.rdb.IncrBy(ctx, balanceKey(login), int64(delta)).Result()
	if err != nil {
		return 0, fmt.Errorf("add chips %s: %w", login, err)
	}
	if err := l.rdb.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(chips), Member: login}).Err(); err != nil {
		return int(chips), fmt.Errorf("update leaderboard %s: %w", login, err)
	}
	return int(chips), nil
}

// UpdateRoundStats implements Ledger
func (l *RedisLedger) UpdateRoundStats(ctx context.Context, login string, stats RoundStats) error {
	key := statsKey(login)

	pipe := l.rdb.TxPipeline()
	pipe.HIncrBy(ctx, key, "hands_played", 1)
	if stats.Won {
		pipe.HIncrBy(ctx, key, "hands_won", 1)
	}
	pipe.HIncrBy(ctx, key, "total_winnings", int64(stats.Winnings))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update stats %s: %w", login, err)
	}

	// best_hand is a high-water mark, not a counter
	best, err := l.rdb.HGet(ctx, key, "best_hand").Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read best hand %s: %w", login, err)
	}
	if stats.BestHand > best {
		if err := l.rdb.HSet(ctx, key, "best_hand", stats.BestHand).Err(); err != nil {
			return fmt.Errorf("write best hand %s: %w", login, err)
		}
	}
	return nil
}

// GetLeaderboard implements Ledger
func (l *RedisLedger) GetLeaderboard(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := l.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		login, ok := row.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, Entry{Login: login, Chips: int(row.Score)})
	}
	return entries, nil
}
