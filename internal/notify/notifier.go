package notify

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Notifier delivers a text message to a specific actor. Delivery is
// best-effort; the trade engine never blocks on or fails because of a
// notification.
type Notifier interface {
	Notify(actorID uuid.UUID, message string)
}

// LogNotifier writes notifications to the service log. Used when no NATS
// connection is configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) Notify(actorID uuid.UUID, message string) {
	n.log.Info().Str("actor_id", actorID.String()).Str("message", message).Msg("notify")
}

// Recorder captures notifications in memory. Test double.
type Recorder struct {
	mu   sync.Mutex
	sent map[uuid.UUID][]string
}

func NewRecorder() *Recorder {
	return &Recorder{sent: make(map[uuid.UUID][]string)}
}

func (r *Recorder) Notify(actorID uuid.UUID, message string) {
	r.mu.Lock()
	r.sent[actorID] = append(r.sent[actorID], message)
	r.mu.Unlock()
}

// Sent returns the messages delivered to an actor, in order.
func (r *Recorder) Sent(actorID uuid.UUID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent[actorID]))
	copy(out, r.sent[actorID])
	return out
}
