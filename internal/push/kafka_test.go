package push

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaDispatcher_SendMulticast(t *testing.T) {
	w := &fakeWriter{}
	d := &KafkaDispatcher{w: w}

	msg := Message{
		Tokens: []string{"t1", "t2"},
		Title:  "Menfess",
		Body:   "Your post was liked",
		Data:   map[string]string{"type": "like", "post_id": "p1"},
	}
	require.NoError(t, d.SendMulticast(context.Background(), msg))
	require.Len(t, w.msgs, 1)

	var got Message
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, msg, got)
}

func TestKafkaDispatcher_NoTokens(t *testing.T) {
	w := &fakeWriter{}
	d := &KafkaDispatcher{w: w}

	require.NoError(t, d.SendMulticast(context.Background(), Message{Title: "Menfess"}))
	assert.Empty(t, w.msgs)
}

func TestKafkaDispatcher_WriteError(t *testing.T) {
	d := &KafkaDispatcher{w: &fakeWriter{err: errors.New("broker down")}}

	err := d.SendMulticast(context.Background(), Message{Tokens: []string{"t"}})
	assert.EqualError(t, err, "broker down")
}

func TestLogDispatcher(t *testing.T) {
	assert.NoError(t, LogDispatcher{}.SendMulticast(context.Background(), Message{Tokens: []string{"t"}}))
}
