// Package ws реализует websocket-шлюз: всплывающие уведомления и запросы разрешения,
// опубликованные планировщиком, рассылаются всем подключенным клиентам.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/gorilla/websocket"

	"github.com/magabrotheeeer/trial-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/trial-tracker/internal/models"
)

// Типы событий для клиента.
const (
	EventPopup             = "popup"
	EventPermissionRequest = "permission_request"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// Event конверт сообщения клиенту.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// PermissionReader читает сохраненное разрешение на всплывающие уведомления.
type PermissionReader interface {
	PopupConfig(ctx context.Context) (models.PopupConfig, error)
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub хранит подключенных клиентов и рассылает им события.
type Hub struct {
	log        *slog.Logger
	permission PermissionReader
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub создает новый Hub. Если permission не nil, клиент при подключении
// получает permission_request, пока пользователь не ответил на запрос разрешения.
func NewHub(log *slog.Logger, permission PermissionReader) *Hub {
	return &Hub{
		log:        log,
		permission: permission,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// единственный пользователь, клиент обслуживается с того же хоста
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Clients возвращает число подключенных клиентов.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP подключает клиента к потоку событий popup и permission_request.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "ws.Hub.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	pending := h.pendingPrompt(r.Context(), log)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", sl.Err(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if pending != nil {
		c.send <- pending
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	log.Info("websocket client connected", slog.Int("clients", h.Clients()))

	go h.writePump(c)
	go h.readPump(c)
}

// pendingPrompt возвращает событие permission_request, если разрешение еще не определено.
func (h *Hub) pendingPrompt(ctx context.Context, log *slog.Logger) []byte {
	if h.permission == nil {
		return nil
	}
	cfg, err := h.permission.PopupConfig(ctx)
	if err != nil {
		log.Warn("failed to read popup permission", sl.Err(err))
		return nil
	}
	if cfg.Permission == models.PermissionGranted || cfg.Permission == models.PermissionDenied {
		return nil
	}
	data, err := json.Marshal(models.PopupConfig{Permission: models.PermissionUndetermined})
	if err != nil {
		return nil
	}
	msg, err := json.Marshal(Event{Type: EventPermissionRequest, Data: data})
	if err != nil {
		return nil
	}
	return msg
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast отправляет событие всем клиентам и возвращает число получателей.
// Клиент с переполненным буфером отключается.
func (h *Hub) Broadcast(eventType string, data []byte) (int, error) {
	const op = "ws.Hub.Broadcast"
	msg, err := json.Marshal(Event{Type: eventType, Data: json.RawMessage(data)})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	sent := 0
	for c := range h.clients {
		select {
		case c.send <- msg:
			sent++
		default:
			h.log.Warn("websocket client is too slow, disconnecting")
			delete(h.clients, c)
			close(c.send)
		}
	}
	return sent, nil
}

// Handler возвращает обработчик сообщений из очереди для событий типа eventType.
// Если клиентов нет, событие пропадает: показывать уведомление некому.
func (h *Hub) Handler(eventType string) func([]byte) error {
	return func(body []byte) error {
		if !json.Valid(body) {
			h.log.Warn("dropping malformed message", slog.String("event", eventType))
			return nil
		}
		sent, err := h.Broadcast(eventType, body)
		if err != nil {
			return err
		}
		h.log.Debug("event broadcast", slog.String("event", eventType), slog.Int("clients", sent))
		return nil
	}
}

// Close отключает всех клиентов.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug("websocket write failed", sl.Err(err))
				h.unregister(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}

// readPump нужен для обработки pong и закрытия соединения; входящие сообщения игнорируются.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket closed unexpectedly", sl.Err(err))
			}
			return
		}
	}
}
