package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ButyrinIA/menfess/internal/models"
)

// RedisPublisher publishes each notification on user_notifications:<receiver>.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func Channel(receiverUID string) string {
	return fmt.Sprintf("user_notifications:%s", receiverUID)
}

func (r *RedisPublisher) Publish(ctx context.Context, n *models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, Channel(n.ReceiverUID), payload).Err()
}
