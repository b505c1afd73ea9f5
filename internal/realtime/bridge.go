package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"backend-antrian-klinik/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Bridge relays QueueState changes through Redis pub/sub so subscribers
// connected to any instance see changes made on every other instance.
type Bridge struct {
	client *redis.Client
	hub    *Hub
	prefix string
	log    *zap.Logger
}

func NewBridge(client *redis.Client, hub *Hub, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{client: client, hub: hub, prefix: "queue_state", log: log.Named("bridge")}
}

func (b *Bridge) channel(state models.QueueState) string {
	return fmt.Sprintf("%s:%d:%d", b.prefix, state.ClinicID, state.DoctorID)
}

// PublishQueueState publishes to Redis only; delivery to local subscribers
// happens when Run receives the message back.
func (b *Bridge) PublishQueueState(ctx context.Context, state models.QueueState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode queue state: %w", err)
	}
	return b.client.Publish(ctx, b.channel(state), payload).Err()
}

// Run forwards every received state to the local hub until ctx ends.
// ready, when non-nil, is closed once the subscription is confirmed.
func (b *Bridge) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := b.client.PSubscribe(ctx, b.prefix+":*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var state models.QueueState
			if err := json.Unmarshal([]byte(msg.Payload), &state); err != nil {
				b.log.Warn("invalid queue state payload", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			_ = b.hub.PublishQueueState(ctx, state)
		}
	}
}
