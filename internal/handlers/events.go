package handlers

import (
	"context"
	"sync"
	"time"

	"Tripboard/internal/dto"
	"Tripboard/internal/reminder"
	"Tripboard/internal/service"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	EventTasks    = "tasks"
	EventStatus   = "status"
	EventReminder = "reminder"
)

const (
	clientBuffer = 16
	writeTimeout = 5 * time.Second
)

type wsClient struct {
	send chan dto.Event
	once sync.Once
}

func (c *wsClient) stop() { c.once.Do(func() { close(c.send) }) }

// Hub fans list changes and reminders out to websocket clients.
// It is also the "websocket" reminder channel.
type Hub struct {
	svc *service.TaskService
	log zerolog.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

func NewHub(svc *service.TaskService, log zerolog.Logger) *Hub {
	h := &Hub{svc: svc, log: log.With().Str("component", "ws").Logger(), clients: make(map[*wsClient]struct{})}
	svc.OnChange(h.PublishState)
	return h
}

func (*Hub) Name() string { return "websocket" }

// Notify broadcasts r to every connected client.
func (h *Hub) Notify(_ context.Context, r reminder.Reminder) error {
	h.Broadcast(dto.Event{Type: EventReminder, Data: r})
	return nil
}

// PublishState broadcasts the current list and connection status.
func (h *Hub) PublishState() {
	now := h.svc.Now()
	h.Broadcast(dto.Event{Type: EventTasks, Data: dto.ListTasksResponse{Items: tasksToResponses(h.svc.Tasks(), now)}})
	h.Broadcast(dto.Event{Type: EventStatus, Data: statusToResponse(h.svc.Status())})
}

// Broadcast never blocks; a client whose buffer is full is dropped.
func (h *Hub) Broadcast(ev dto.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			h.log.Warn().Msg("dropping slow websocket client")
			delete(h.clients, c)
			c.stop()
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add() (*wsClient, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &wsClient{send: make(chan dto.Event, clientBuffer)}
	h.clients[c] = struct{}{}
	return c, true
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.stop()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.stop()
	}
}

// Serve godoc
// @Summary      Live event feed (websocket)
// @Tags         events
// @Success      101
// @Router       /events [get]
func (h *Hub) Serve(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.CloseNow()

	client, ok := h.add()
	if !ok {
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer h.remove(client)

	// Clients only listen; CloseRead handles pings and the close handshake.
	ctx := conn.CloseRead(c.Request.Context())

	now := h.svc.Now()
	first := []dto.Event{
		{Type: EventTasks, Data: dto.ListTasksResponse{Items: tasksToResponses(h.svc.Tasks(), now)}},
		{Type: EventStatus, Data: statusToResponse(h.svc.Status())},
	}
	for _, ev := range first {
		if err := h.write(ctx, conn, ev); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-client.send:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := h.write(ctx, conn, ev); err != nil {
				if websocket.CloseStatus(err) == -1 {
					h.log.Debug().Err(err).Msg("websocket write failed")
				}
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, ev dto.Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}
