// Package push hands multicast push messages to whatever delivers them to
// devices. Callers treat every send as best effort.
package push

import (
	"context"

	log "github.com/sirupsen/logrus"
)

type Message struct {
	Tokens []string          `json:"tokens"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

type Dispatcher interface {
	SendMulticast(ctx context.Context, msg Message) error
}

// LogDispatcher only logs. It is used when no broker is configured.
type LogDispatcher struct{}

func (LogDispatcher) SendMulticast(ctx context.Context, msg Message) error {
	log.WithFields(log.Fields{
		"tokens": len(msg.Tokens),
		"type":   msg.Data["type"],
	}).Debugf("[push] %s: %s", msg.Title, msg.Body)
	return nil
}
