// Package sync fans crawl progress out to TCP and WebSocket subscribers as
// newline-delimited JSON.
package sync

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stolpe22/plano-jornada/pkg/logger"
	"github.com/stolpe22/plano-jornada/pkg/models"
)

const (
	writeTimeout = 2 * time.Second
	queueSize    = 256
	historySize  = 64
)

type Hub struct {
	log    *logger.Logger
	events chan models.CrawlEvent

	mu        sync.Mutex
	clients   map[net.Conn]struct{}
	wsClients map[*websocket.Conn]struct{}
	history   *history
	dropped   int
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
	Dropped    int `json:"dropped_events"`
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		log:       log,
		events:    make(chan models.CrawlEvent, queueSize),
		clients:   make(map[net.Conn]struct{}),
		wsClients: make(map[*websocket.Conn]struct{}),
		history:   newHistory(historySize),
	}
}

// Publish queues ev for broadcast and never blocks; when the queue is full
// the event is dropped and counted.
func (h *Hub) Publish(ev models.CrawlEvent) {
	select {
	case h.events <- ev:
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
	}
}

// Run broadcasts queued events until ctx is done, then disconnects every
// subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.events:
			h.mu.Lock()
			h.history.add(ev)
			h.mu.Unlock()
			h.BroadcastJSON(ev)
		}
	}
}

// Add registers a TCP subscriber, greeting it and replaying the current run.
func (h *Hub) Add(conn net.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
	for _, b := range h.greeting("tcp") {
		if err := writeConn(conn, b); err != nil {
			delete(h.clients, conn)
			_ = conn.Close()
			return
		}
	}
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// AddWS registers a WebSocket subscriber. Writes to ws happen only under the
// hub lock.
func (h *Hub) AddWS(ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.wsClients[ws] = struct{}{}
	for _, b := range h.greeting("websocket") {
		if err := writeWS(ws, b); err != nil {
			delete(h.wsClients, ws)
			_ = ws.Close()
			return
		}
	}
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.wsClients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.Warn("marshal feed message", "error", err)
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if err := writeConn(c, b); err != nil {
			h.log.Debug("drop tcp subscriber", "remote", c.RemoteAddr().String(), "error", err)
			_ = c.Close()
			delete(h.clients, c)
		}
	}

	for ws := range h.wsClients {
		if err := writeWS(ws, b); err != nil {
			h.log.Debug("drop ws subscriber", "error", err)
			_ = ws.Close()
			delete(h.wsClients, ws)
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
		Dropped:    h.dropped,
	}
}

// greeting is the welcome line plus the replayed history. Caller holds mu.
func (h *Hub) greeting(transport string) [][]byte {
	w := welcome{
		Type:      EventWelcome,
		Transport: transport,
		Clients:   len(h.clients) + len(h.wsClients),
		LastRun:   h.history.lastRun(),
		At:        time.Now().UTC(),
	}
	var out [][]byte
	if b, err := json.Marshal(w); err == nil {
		out = append(out, append(b, '\n'))
	}
	for _, ev := range h.history.events() {
		if b, err := json.Marshal(ev); err == nil {
			out = append(out, append(b, '\n'))
		}
	}
	return out
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
	for ws := range h.wsClients {
		_ = ws.Close()
		delete(h.wsClients, ws)
	}
}

func writeConn(c net.Conn, b []byte) error {
	_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := c.Write(b)
	return err
}

func writeWS(ws *websocket.Conn, b []byte) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return ws.WriteMessage(websocket.TextMessage, b)
}
