package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ButyrinIA/menfess/internal/models"
)

func TestRedisPublisher(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}

	ctx := context.Background()
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start redis container")
	defer redisC.Terminate(ctx)

	addr, err := redisC.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	sub := client.Subscribe(ctx, Channel("uid-carol"))
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	n := &models.Notification{
		ID:          "n1",
		ReceiverUID: "uid-carol",
		PostID:      "p1",
		Type:        models.KindMention,
		Message:     "Ann mentioned you in a new menfess",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, NewRedisPublisher(client).Publish(ctx, n))

	select {
	case msg := <-sub.Channel():
		var got models.Notification
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "n1", got.ID)
		assert.Equal(t, models.KindMention, got.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("notification was not published")
	}
}
