// Package ws bridges the event bus and mode manager to WebSocket clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/vigil-agent/vigil/internal/events"
	"github.com/vigil-agent/vigil/internal/mode"
)

// Client represents a connected WebSocket client.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub manages WebSocket clients, broadcasts mode lifecycle events, and
// dispatches operator requests to the mode manager.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]struct{}
	bus         *events.Bus
	manager     *mode.Manager
	unsubscribe func()
}

// NewHub creates a new WebSocket hub connected to an event bus and manager.
func NewHub(bus *events.Bus, manager *mode.Manager) *Hub {
	h := &Hub{
		clients: make(map[*Client]struct{}),
		bus:     bus,
		manager: manager,
	}

	// Subscribe to all events and bridge to WS clients
	h.unsubscribe = bus.Subscribe(func(e events.Event) {
		frame, err := NewEventFrame(string(e.Type), e)
		if err != nil {
			slog.Error("marshal event frame", "error", err)
			return
		}
		data, err := MarshalFrame(frame)
		if err != nil {
			slog.Error("marshal frame", "error", err)
			return
		}
		h.broadcast(data)
	})

	return h
}

// Close unsubscribes the hub and disconnects all clients.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close(websocket.StatusGoingAway, "server shutdown")
		delete(h.clients, c)
	}
}

// broadcast sends data to all connected clients.
func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client too slow, skip
		}
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	slog.Info("ws client connected", "clients", len(h.clients))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		slog.Info("ws client disconnected", "clients", len(h.clients))
	}
}

// ServeWS handles a WebSocket upgrade and manages the client lifecycle.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow any origin for dev
	})
	if err != nil {
		slog.Error("ws accept", "error", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	h.register(client)

	ctx := r.Context()
	go client.writePump(ctx)
	client.readPump(ctx)
}

// readPump reads frames from the WS connection and dispatches them.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("ws read closed", "status", websocket.CloseStatus(err))
			} else {
				slog.Debug("ws read error", "error", err)
			}
			return
		}

		frame, err := UnmarshalFrame(data)
		if err != nil {
			slog.Error("ws unmarshal frame", "error", err)
			continue
		}

		if frame.Type == FrameTypeRequest {
			c.handleRequest(ctx, frame)
		} else {
			slog.Debug("ws unknown frame type", "type", frame.Type)
		}
	}
}

// writePump drains the send channel to the WS connection.
func (c *Client) writePump(ctx context.Context) {
	for data := range c.send {
		if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
			return
		}
	}
}

// handleRequest processes a request frame (method dispatch).
func (c *Client) handleRequest(ctx context.Context, frame Frame) {
	switch Method(frame.Method) {
	case MethodSwitchMode:
		var params struct {
			Mode string `json:"mode"`
		}
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			c.sendError(ctx, frame.ID, "invalid params")
			return
		}

		result, err := c.hub.manager.RequestManualSwitch(ctx, params.Mode)
		if err != nil {
			c.sendError(ctx, frame.ID, err.Error())
			return
		}
		c.sendOK(ctx, frame.ID, result)

	case MethodGetStatus:
		c.sendOK(ctx, frame.ID, c.hub.manager.Status())

	case MethodSendText:
		var params struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			c.sendError(ctx, frame.ID, "invalid params")
			return
		}

		c.hub.bus.Publish(events.NewEvent(events.EventTriggerKeyword, events.SourceOperator, map[string]any{
			"text": params.Text,
		}))
		c.sendOK(ctx, frame.ID, map[string]string{"status": "submitted"})

	default:
		c.sendError(ctx, frame.ID, "unknown method")
	}
}

func (c *Client) sendOK(ctx context.Context, id string, payload any) {
	frame, err := NewResponseFrame(id, true, payload, "")
	if err != nil {
		slog.Error("ws marshal response", "error", err)
		return
	}
	c.sendFrame(ctx, frame)
}

func (c *Client) sendError(ctx context.Context, id string, msg string) {
	frame, _ := NewResponseFrame(id, false, nil, msg)
	c.sendFrame(ctx, frame)
}

func (c *Client) sendFrame(ctx context.Context, frame Frame) {
	data, err := MarshalFrame(frame)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
