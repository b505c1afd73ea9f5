package sequence

import (
	"context"
	"fmt"
	"time"

	"backend-antrian-klinik/internal/store"

	"github.com/redis/go-redis/v9"
)

// counter hari lama dibiarkan hidup sebentar untuk debugging
const keyTTL = 48 * time.Hour

// Redis allocates with INCR. A booking that fails after allocation leaves a
// gap in the numbering.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "queue:seq"}
}

func (r *Redis) key(scope Scope) string {
	return fmt.Sprintf("%s:%d:%d:%s", r.prefix, scope.ClinicID, scope.DoctorID, scope.Day)
}

func (r *Redis) Next(ctx context.Context, _ store.Tx, scope Scope) (int, error) {
	key := r.key(scope)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("sequence %s: %w", scope, err)
	}
	return int(incr.Val()), nil
}

// Current is the last number handed out, 0 when nothing was booked yet.
func (r *Redis) Current(ctx context.Context, scope Scope) (int, error) {
	n, err := r.client.Get(ctx, r.key(scope)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
