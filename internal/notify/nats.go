package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// Notification is the wire form of one actor message.
// Subjects follow the pattern: barter.notify.{actor_id}
type Notification struct {
	ActorID   string    `json:"actor_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NATSNotifier publishes actor notifications through a buffered channel
// drained by Run. Notify never blocks; when the channel is full the
// notification is dropped and counted.
type NATSNotifier struct {
	js      jetstream.JetStream
	ch      chan Notification
	onDrop  func()
	onSent  func()
	nowFunc func() time.Time
}

// NewNATSNotifier creates a notifier with the given channel capacity.
func NewNATSNotifier(js jetstream.JetStream, capacity int) *NATSNotifier {
	if capacity <= 0 {
		capacity = 1024
	}
	return &NATSNotifier{
		js:      js,
		ch:      make(chan Notification, capacity),
		onDrop:  func() {},
		onSent:  func() {},
		nowFunc: time.Now,
	}
}

// OnDrop registers a hook fired when a notification is dropped.
func (n *NATSNotifier) OnDrop(fn func()) {
	if fn != nil {
		n.onDrop = fn
	}
}

// OnSent registers a hook fired after each successful publish.
func (n *NATSNotifier) OnSent(fn func()) {
	if fn != nil {
		n.onSent = fn
	}
}

// Notify implements Notifier.
func (n *NATSNotifier) Notify(actorID uuid.UUID, message string) {
	note := Notification{
		ActorID:   actorID.String(),
		Message:   message,
		Timestamp: n.nowFunc(),
	}
	select {
	case n.ch <- note:
	default:
		n.onDrop()
	}
}

// Run drains the channel and publishes until ctx is cancelled.
func (n *NATSNotifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case note, ok := <-n.ch:
			if !ok {
				return nil
			}
			if err := n.publish(ctx, note); err != nil {
				log.Printf("WARN: notification publish failed actor=%s: %v", note.ActorID, err)
				// Non-fatal: notifications carry no delivery guarantee
			}
		}
	}
}

func (n *NATSNotifier) publish(ctx context.Context, note Notification) error {
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	subject := fmt.Sprintf("barter.notify.%s", note.ActorID)
	if _, err := n.js.Publish(ctx, subject, data); err != nil {
		return err
	}
	n.onSent()
	return nil
}

// EnsureNotifyStream creates the notification stream.
func EnsureNotifyStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "BARTER_NOTIFY",
		Subjects:  []string{"barter.notify.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create notify stream: %w", err)
	}
	log.Println("INFO: ensured notify stream BARTER_NOTIFY")
	return nil
}
