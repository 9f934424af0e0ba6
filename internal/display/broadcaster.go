package display

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/MrWong99/linguaflow/internal/pipeline"
)

// clientBuffer is the per-subscriber event buffer. A subscriber that falls
// further behind than this loses its oldest events, matching the pipeline's
// own recency-over-completeness policy.
const clientBuffer = 64

// Event is one display event on the websocket feed.
type Event struct {
	// Type is "word" or "translation".
	Type string `json:"type"`

	// Word is set for type "word".
	Word string `json:"word,omitempty"`

	// Original, Translation, and Context are set for type "translation".
	Original    string `json:"original,omitempty"`
	Translation string `json:"translation,omitempty"`
	Context     string `json:"context,omitempty"`
}

// Broadcaster implements [Sink] by fanning events out to websocket
// subscribers. It is an [http.Handler]; mount it on the display server and
// point overlay clients at it.
type Broadcaster struct {
	log *slog.Logger

	mu      sync.Mutex
	clients map[chan Event]struct{}
}

var _ Sink = (*Broadcaster)(nil)

// NewBroadcaster creates an empty broadcaster. A nil logger falls back to
// slog.Default().
func NewBroadcaster(log *slog.Logger) *Broadcaster {
	if log == nil {
		log = slog.Default()
	}
	return &Broadcaster{
		log:     log,
		clients: make(map[chan Event]struct{}),
	}
}

// PartialWord implements [Sink].
func (b *Broadcaster) PartialWord(word string) {
	b.broadcast(Event{Type: "word", Word: word})
}

// Translation implements [Sink].
func (b *Broadcaster) Translation(t pipeline.Translation) {
	b.broadcast(Event{
		Type:        "translation",
		Original:    t.Original,
		Translation: t.Translation,
		Context:     t.Context,
	})
}

// ClientCount returns the number of connected subscribers.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// broadcast queues the event for every subscriber, dropping the oldest
// buffered event of any subscriber that is full.
func (b *Broadcaster) broadcast(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		for {
			select {
			case ch <- ev:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// subscribe registers a new client channel.
func (b *Broadcaster) subscribe() chan Event {
	ch := make(chan Event, clientBuffer)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// unsubscribe removes a client channel.
func (b *Broadcaster) unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.clients, ch)
	b.mu.Unlock()
}

// ServeHTTP upgrades the request to a websocket and streams events until the
// client disconnects. The feed is write-only; client messages are discarded.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		b.log.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "server shutdown")

	ch := b.subscribe()
	defer b.unsubscribe(ch)

	// CloseRead discards inbound messages and cancels the context when the
	// client goes away.
	ctx := conn.CloseRead(r.Context())

	b.log.Info("display client connected", "remote", r.RemoteAddr)
	for {
		select {
		case <-ctx.Done():
			b.log.Info("display client disconnected", "remote", r.RemoteAddr)
			return
		case ev := <-ch:
			if err := b.writeEvent(ctx, conn, ev); err != nil {
				b.log.Warn("display client write failed", "remote", r.RemoteAddr, "error", err)
				return
			}
		}
	}
}

func (b *Broadcaster) writeEvent(ctx context.Context, conn *websocket.Conn, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
