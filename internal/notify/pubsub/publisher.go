// Package pubsub publishes change notifications to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/JakeFAU/availmon/internal/monitor"
)

// Event is the JSON payload published for each change.
type Event struct {
	URL        string    `json:"url"`
	Previous   int       `json:"previous"`
	Current    int       `json:"current"`
	Subject    string    `json:"subject"`
	ObservedAt time.Time `json:"observed_at"`
}

// PublishFunc sends one message and returns the server-assigned ID.
type PublishFunc func(ctx context.Context, msg *pubsub.Message) (string, error)

// Notifier implements monitor.Notifier on a Pub/Sub topic.
type Notifier struct {
	publish PublishFunc
}

// New wraps a topic handle. The caller owns the topic and its client.
func New(topic *pubsub.Topic) *Notifier {
	if topic == nil {
		return &Notifier{}
	}
	return &Notifier{publish: func(ctx context.Context, msg *pubsub.Message) (string, error) {
		return topic.Publish(ctx, msg).Get(ctx)
	}}
}

// NewWithPublisher builds a Notifier around an arbitrary publish function.
func NewWithPublisher(fn PublishFunc) *Notifier {
	return &Notifier{publish: fn}
}

// Notify publishes msg as an Event and blocks until the server acknowledges it.
func (n *Notifier) Notify(ctx context.Context, msg monitor.Message) error {
	if n.publish == nil {
		return fmt.Errorf("%w: pubsub topic is not configured", monitor.ErrNotConfigured)
	}
	data, err := json.Marshal(Event{
		URL:        msg.URL,
		Previous:   msg.Previous,
		Current:    msg.Current,
		Subject:    msg.Subject,
		ObservedAt: msg.ObservedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %v", monitor.ErrNotification, err)
	}
	out := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"url":      msg.URL,
			"previous": strconv.Itoa(msg.Previous),
			"current":  strconv.Itoa(msg.Current),
		},
	}
	if _, err := n.publish(ctx, out); err != nil {
		return fmt.Errorf("%w: publish message: %v", monitor.ErrNotification, err)
	}
	return nil
}
