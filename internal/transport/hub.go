package transport

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"spacesim/internal/protocol"
)

type subscription struct {
	match string
	conn  *Conn
}

// Hub fans match frames out to spectators
type Hub struct {
	mu       sync.RWMutex
	watchers map[string]map[*Conn]bool

	register   chan subscription
	unregister chan subscription
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		watchers:   make(map[string]map[*Conn]bool),
		register:   make(chan subscription, 64),
		unregister: make(chan subscription, 64),
		log:        log,
	}
}

// Run processes register/unregister events until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			set, ok := h.watchers[sub.match]
			if !ok {
				set = make(map[*Conn]bool)
				h.watchers[sub.match] = set
			}
			set[sub.conn] = true
			h.mu.Unlock()

		case sub := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.watchers[sub.match]; ok {
				delete(set, sub.conn)
				if len(set) == 0 {
					delete(h.watchers, sub.match)
				}
			}
			h.mu.Unlock()
			sub.conn.Close()

		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.watchers {
				for c := range set {
					c.Close()
				}
			}
			h.watchers = make(map[string]map[*Conn]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Watch serves a spectator until it disconnects. Spectators only
// receive; anything they send is ignored.
func (h *Hub) Watch(match string, c *Conn) {
	h.register <- subscription{match: match, conn: c}
	go c.WritePump()
	c.ReadPump(func([]byte) {})
	h.unregister <- subscription{match: match, conn: c}
}

// Broadcast encodes a message once and queues it for every spectator of
// match. It returns the number of spectators reached.
func (h *Hub) Broadcast(match, t string, data any) int {
	h.mu.RLock()
	set := h.watchers[match]
	conns := make([]*Conn, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	if len(conns) == 0 {
		return 0
	}

	raw, err := protocol.Encode(t, data)
	if err != nil {
		h.log.Error().Err(err).Str("type", t).Msg("broadcast encode")
		return 0
	}
	sent := 0
	for _, c := range conns {
		if c.Send(raw) {
			sent++
		}
	}
	return sent
}

// Watchers returns the number of spectators of match
func (h *Hub) Watchers(match string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[match])
}
