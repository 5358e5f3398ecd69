package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vibin/deepsearch-chat/internal/core/domain"
	"github.com/vibin/deepsearch-chat/internal/core/ports"
	"github.com/vibin/deepsearch-chat/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// inboundMessage is a client event. Data is decoded according to Event.
type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outboundMessage is a server event
type outboundMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// socketSink delivers events to one websocket connection. Both branches of a
// chat turn emit concurrently, so writes are serialized.
type socketSink struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

var _ ports.EventSink = (*socketSink)(nil)

// Emit implements ports.EventSink. Nothing is written once ctx is done.
func (s *socketSink) Emit(ctx context.Context, event string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if payload == nil {
		payload = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(outboundMessage{Event: event, Data: payload})
}

// ServeSocket upgrades the request and serves socket events until the client
// disconnects. Disconnecting cancels every turn still running for the client.
func (h *Handler) ServeSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	log := LoggerFromContext(r.Context(), h.logger).WithField("client_id", uuid.NewString())
	log.Info("Client connected", "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	sink := &socketSink{conn: conn}
	var wg sync.WaitGroup

	defer func() {
		cancel()
		wg.Wait()
		conn.Close()
		log.Info("Client disconnected")
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.keepAlive(ctx, conn)
	}()

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("WebSocket read failed", "error", err)
			}
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			h.dispatch(ctx, msg, sink, log)
		}()
	}
}

// keepAlive pings the client so dead connections are noticed
func (h *Handler) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// dispatch handles one client event
func (h *Handler) dispatch(ctx context.Context, msg inboundMessage, sink ports.EventSink, log logger.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Socket event handler panicked", "event", msg.Event, "panic", r)
		}
	}()

	switch msg.Event {
	case domain.EventChatMessage:
		var req domain.ChatTurnRequest
		if err := decodeData(msg.Data, &req); err != nil {
			_ = sink.Emit(ctx, domain.EventChatError, domain.ErrorPayload{Message: "Failed to process message"})
			return
		}
		if err := h.service.RunTurn(ctx, req, sink); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("Chat turn ended with error", "error", err)
		}

	case domain.EventSearchDeep:
		var req domain.ManualSearchRequest
		if err := decodeData(msg.Data, &req); err != nil {
			_ = sink.Emit(ctx, domain.EventSearchError, domain.ErrorPayload{Message: "Deep search failed"})
			return
		}
		if err := h.service.ManualSearch(ctx, req, sink); err != nil {
			log.Warn("Manual search rejected", "error", err)
		}

	case domain.EventModelsGet:
		_ = sink.Emit(ctx, domain.EventModelsList, domain.ModelsPayload{Models: h.service.Models()})

	default:
		log.Warn("Unknown socket event", "event", msg.Event)
	}
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errors.New("missing event data")
	}
	return json.Unmarshal(data, v)
}
