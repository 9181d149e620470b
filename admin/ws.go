/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package admin

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	eventInitialState       = "INITIAL_STATE"
	eventStateChange        = "STATE_CHANGE"
	eventSessionRegistered  = "SESSION_REGISTERED"
	eventSessionUnregistered = "SESSION_UNREGISTERED"
)

// Event is the envelope pushed to every WS subscriber, per spec.md §6.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Payload   any    `json:"payload,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans registry events out to every connected WebSocket client,
// grounded on the retrieval pack's register/unregister/broadcast-channel
// hub idiom.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool

	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan Event

	stop chan struct{}
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan Event, 256),
		stop:       make(chan struct{}),
	}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				_ = c.Close()
			}
			h.mu.Unlock()
		case ev := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if err := c.WriteJSON(ev); err != nil {
					go func(c *websocket.Conn) { h.unregister <- c }(c)
				}
			}
			h.mu.RUnlock()
		case <-h.stop:
			return
		}
	}
}

func (h *Hub) broadcastEvent(eventType string, payload any) {
	h.broadcast <- Event{Type: eventType, Timestamp: time.Now().UnixMilli(), Payload: payload}
}

// Stop halts the hub's run loop.
func (h *Hub) Stop() { close(h.stop) }

// HandleWS upgrades the connection and streams INITIAL_STATE followed by
// every subsequent STATE_CHANGE/SESSION_REGISTERED/SESSION_UNREGISTERED
// event; a text "ping" frame gets an immediate {"type":"PONG"} reply.
func (s *Service) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	s.hub.register <- conn

	initial := make([]map[string]any, 0)
	for _, d := range s.reg.List() {
		initial = append(initial, descriptorToPayload(d))
	}
	_ = conn.WriteJSON(Event{Type: eventInitialState, Timestamp: time.Now().UnixMilli(), Payload: initial})

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			s.hub.unregister <- conn
			return
		}
		if mt == websocket.TextMessage && string(msg) == "ping" {
			_ = conn.WriteJSON(map[string]string{"type": "PONG"})
		}
	}
}
