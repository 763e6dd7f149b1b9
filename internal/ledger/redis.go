package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rogerio-castellano/inventory-audit/internal/models"
)

const (
	ticketKeyPrefix = "audit:ticket:"
	// RunLogKey holds the JSON run summaries, newest last.
	RunLogKey = "audit:runs"
	// MaxRunLogs caps the run log length.
	MaxRunLogs = 500
)

// Redis stores ticket fingerprints as expiring keys and run summaries in a
// capped list.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

// Dial connects to addr and checks the server answers.
func Dial(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return NewRedis(rdb, ttl), nil
}

func (r *Redis) Lookup(ctx context.Context, d models.Defect) (string, bool, error) {
	key, err := r.rdb.Get(ctx, ticketKeyPrefix+Fingerprint(d)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return key, true, nil
}

func (r *Redis) Record(ctx context.Context, d models.Defect, issueKey string) error {
	return r.rdb.Set(ctx, ticketKeyPrefix+Fingerprint(d), issueKey, r.ttl).Err()
}

func (r *Redis) AppendRun(ctx context.Context, run RunSummary) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.RPush(ctx, RunLogKey, data)
	pipe.LTrim(ctx, RunLogKey, -MaxRunLogs, -1)
	_, err = pipe.Exec(ctx)
	return err
}

// Runs returns up to n of the most recent run summaries, oldest first.
func (r *Redis) Runs(ctx context.Context, n int64) ([]RunSummary, error) {
	raw, err := r.rdb.LRange(ctx, RunLogKey, -n, -1).Result()
	if err != nil {
		return nil, err
	}
	runs := make([]RunSummary, 0, len(raw))
	for _, item := range raw {
		var run RunSummary
		if err := json.Unmarshal([]byte(item), &run); err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
