package relay

import (
	"sync"

	"github.com/go-account-chat/internal/domain"
)

const defaultBuffer = 32

// Client is one subscriber of the hub. Events queued for it are drained by
// its connection pipe.
type Client struct {
	name string
	out  chan domain.ChatEvent
}

func (c *Client) Name() string { return c.name }

// Events is closed when the client is unsubscribed.
func (c *Client) Events() <-chan domain.ChatEvent { return c.out }

// Hub fans chat events out to every connected client except the sender.
// Delivery is best effort: a client whose buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	buffer  int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{clients: make(map[*Client]struct{}), buffer: buffer}
}

func (h *Hub) Subscribe(name string) *Client {
	c := &Client{name: name, out: make(chan domain.ChatEvent, h.buffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.out)
}

// Broadcast queues ev for every client other than from and reports how many
// clients accepted it.
func (h *Hub) Broadcast(from *Client, ev domain.ChatEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.clients {
		if c == from {
			continue
		}
		select {
		case c.out <- ev:
			delivered++
		default:
		}
	}
	return delivered
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
