package display

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/linguaflow/internal/pipeline"
)

// recordSink collects events for assertions.
type recordSink struct {
	mu           sync.Mutex
	words        []string
	translations []pipeline.Translation
}

func (r *recordSink) PartialWord(w string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.words = append(r.words, w)
}

func (r *recordSink) Translation(t pipeline.Translation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translations = append(r.translations, t)
}

func TestMultiFansOut(t *testing.T) {
	a := &recordSink{}
	b := &recordSink{}
	m := Multi{a, b}

	m.PartialWord("hi")
	m.Translation(pipeline.Translation{Original: "hallo", Translation: "hello"})

	for i, s := range []*recordSink{a, b} {
		if len(s.words) != 1 || s.words[0] != "hi" {
			t.Errorf("sink %d words = %v", i, s.words)
		}
		if len(s.translations) != 1 || s.translations[0].Translation != "hello" {
			t.Errorf("sink %d translations = %v", i, s.translations)
		}
	}
}

func TestLogSinkNilLogger(t *testing.T) {
	// Must not panic without an explicit logger.
	s := &LogSink{Log: slog.New(slog.DiscardHandler)}
	s.PartialWord("w")
	s.Translation(pipeline.Translation{Original: "a", Translation: "b"})
}

func TestBroadcasterDropsOldestWhenClientSlow(t *testing.T) {
	b := NewBroadcaster(slog.New(slog.DiscardHandler))
	ch := b.subscribe()
	defer b.unsubscribe(ch)

	// Overfill the buffer; the oldest events must be evicted, not block.
	for i := 0; i < clientBuffer+10; i++ {
		b.PartialWord(word(i))
	}

	if got := len(ch); got != clientBuffer {
		t.Fatalf("buffered events = %d, want %d", got, clientBuffer)
	}
	first := <-ch
	if first.Word != word(10) {
		t.Errorf("first buffered word = %q, want %q (oldest ten dropped)", first.Word, word(10))
	}
}

func word(i int) string {
	return string(rune('a' + i%26))
}

func TestBroadcasterWebsocketDelivery(t *testing.T) {
	b := NewBroadcaster(slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(b)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):], nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// Wait for the server side to register the subscriber.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && b.ClientCount() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if b.ClientCount() != 1 {
		t.Fatal("client never registered")
	}

	b.Translation(pipeline.Translation{
		Original:    "おはよう",
		Translation: "good morning",
		Context:     "Recent speech:\n- おはよう\n",
	})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if ev.Type != "translation" || ev.Translation != "good morning" {
		t.Errorf("event = %+v", ev)
	}
}
