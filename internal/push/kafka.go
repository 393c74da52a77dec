package push

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher publishes each multicast as one JSON record; an external
// sender consumes the topic and talks to the push provider.
type KafkaDispatcher struct {
	w messageWriter
}

func NewKafkaDispatcher(addr, topic string) *KafkaDispatcher {
	log.Infof("[push] dispatching to kafka topic %s at %s", topic, addr)
	return &KafkaDispatcher{w: &kafka.Writer{
		Addr:                   kafka.TCP(addr),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}}
}

func (d *KafkaDispatcher) SendMulticast(ctx context.Context, msg Message) error {
	if len(msg.Tokens) == 0 {
		return nil
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal push message: %w", err)
	}
	return d.w.WriteMessages(ctx, kafka.Message{Value: value})
}

func (d *KafkaDispatcher) Close() error {
	return d.w.Close()
}
