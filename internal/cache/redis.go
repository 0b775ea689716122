// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/linot/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list that carries match action records to the historian.
const DefaultQueueName = "linot_actions"

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// ActionQueue is the Redis list shared by the match server (producer) and the historian
// (consumer).
type ActionQueue struct {
	rdb  *redis.Client
	name string
}

func NewActionQueue(rdb *redis.Client, name string) *ActionQueue {
	if name == "" {
		name = DefaultQueueName
	}
	return &ActionQueue{rdb: rdb, name: name}
}

// Publish serializes the record and appends it to the queue.
func (q *ActionQueue) Publish(ctx context.Context, record models.MatchAction) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal MatchAction: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.name, err)
	}
	return nil
}

// Pop blocks up to timeout for the next record. ok is false when the wait timed out.
func (q *ActionQueue) Pop(ctx context.Context, timeout time.Duration) (record models.MatchAction, ok bool, err error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return record, false, nil
	}
	if err != nil {
		return record, false, fmt.Errorf("BLPop: %w", err)
	}
	// res[0] is the list name, res[1] the payload.
	if len(res) < 2 {
		return record, false, nil
	}
	if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
		return record, false, fmt.Errorf("invalid action record: %w", err)
	}
	return record, true, nil
}
