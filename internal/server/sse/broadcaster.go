// Package sse provides Server-Sent Events broadcasting of modeling events.
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// WriteTimeout bounds writes to SSE clients so stale connections cannot
// block a broadcast.
const WriteTimeout = 2 * time.Second

// Event is one modeling change pushed to subscribers.
type Event struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	ObjectID  string `json:"object_id,omitempty"`
}

// Client represents a connected SSE subscriber.
type Client struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	done    chan struct{}
	id      string
}

// Broadcaster fans modeling events out to connected clients.
type Broadcaster struct {
	clients map[string]*Client
	mu      sync.RWMutex
	nextID  int
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[string]*Client)}
}

// addClient registers a subscriber connection.
func (b *Broadcaster) addClient(w http.ResponseWriter) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	b.mu.Lock()
	b.nextID++
	client := &Client{
		id:      fmt.Sprintf("client-%d", b.nextID),
		writer:  w,
		flusher: flusher,
		done:    make(chan struct{}),
	}
	b.clients[client.id] = client
	count := len(b.clients)
	b.mu.Unlock()

	log.Debug().Str("clientId", client.id).Int("totalClients", count).Msg("SSE client connected")
	return client, nil
}

// removeClient unregisters a subscriber and closes its done channel once.
func (b *Broadcaster) removeClient(id string) {
	b.mu.Lock()
	client, exists := b.clients[id]
	if exists {
		delete(b.clients, id)
	}
	count := len(b.clients)
	b.mu.Unlock()

	if exists {
		select {
		case <-client.done:
		default:
			close(client.done)
		}
		log.Debug().Str("clientId", id).Int("totalClients", count).Msg("SSE client disconnected")
	}
}

// Publish sends an event to every connected client. Writes run concurrently
// with individual timeouts; clients that fail or stall are dropped.
func (b *Broadcaster) Publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE event")
		return
	}
	message := fmt.Sprintf("data: %s\n\n", payload)

	b.mu.RLock()
	clients := make([]*Client, 0, len(b.clients))
	for _, client := range b.clients {
		clients = append(clients, client)
	}
	b.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	deadCh := make(chan string, len(clients))
	var wg sync.WaitGroup
	for _, client := range clients {
		select {
		case <-client.done:
			continue
		default:
			wg.Add(1)
			go func(c *Client) {
				defer wg.Done()
				b.writeToClient(c, message, deadCh)
			}(client)
		}
	}
	wg.Wait()
	close(deadCh)

	for id := range deadCh {
		b.removeClient(id)
	}
}

// writeToClient writes one message with a timeout.
func (b *Broadcaster) writeToClient(client *Client, message string, deadCh chan<- string) {
	done := make(chan struct{})

	go func() {
		defer close(done)
		if _, err := client.writer.Write([]byte(message)); err != nil {
			log.Debug().Str("clientId", client.id).Err(err).Msg("SSE write failed, dropping client")
			deadCh <- client.id
			return
		}
		client.flusher.Flush()
	}()

	select {
	case <-done:
	case <-time.After(WriteTimeout):
		log.Warn().Str("clientId", client.id).Dur("timeout", WriteTimeout).Msg("SSE write timed out, dropping client")
		deadCh <- client.id
	case <-client.done:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// HandleSSE serves one subscriber connection until it disconnects.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client, err := b.addClient(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer b.removeClient(client.id)

	fmt.Fprintf(w, "data: {\"kind\":\"connected\",\"object_id\":%q}\n\n", client.id)
	client.flusher.Flush()

	<-r.Context().Done()
}
