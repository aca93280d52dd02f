// Package hub fans committed stock changes out to live terminal
// connections. Delivery is at-least-once and best-effort: every session
// has a bounded outbound queue, and a session that cannot drain it is
// dropped so that publishers never wait on subscriber speed. Clients
// bridge any gap through the ledger read endpoint after reconnecting.
package hub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rl1809/stock-sync/internal/core/domain"
	"github.com/rl1809/stock-sync/pkg/api"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	defaultQueueSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Stats is a point-in-time snapshot of hub counters.
type Stats struct {
	Sessions  int   `json:"sessions"`
	Delivered int64 `json:"delivered"`
	Dropped   int64 `json:"dropped"`
	Kicked    int64 `json:"kicked"`
}

type Hub struct {
	logger    *slog.Logger
	queueSize int

	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool

	delivered atomic.Int64
	dropped   atomic.Int64
	kicked    atomic.Int64
}

func New(logger *slog.Logger, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Hub{
		logger:    logger,
		queueSize: queueSize,
		sessions:  make(map[string]*session),
	}
}

// PublishCommit fans a committed transaction and its resulting record
// out to every session whose filter matches. Never blocks: a session
// with a full queue is kicked instead.
func (h *Hub) PublishCommit(tx *domain.Transaction, rec *domain.StockRecord) {
	update, err := json.Marshal(api.WSStockUpdate{
		Type:       api.WSTypeStockUpdate,
		ItemID:     rec.ItemID,
		LocationID: rec.LocationID,
		Quantity:   rec.Quantity,
		Version:    rec.Version,
		Sequence:   tx.Seq,
		Timestamp:  rec.UpdatedAt,
	})
	if err != nil {
		h.logger.Error("marshal stock update", "error", err)
		return
	}
	full, err := json.Marshal(api.WSTransaction{
		Type:        api.WSTypeTransaction,
		Transaction: *api.TransactionFromDomain(tx),
	})
	if err != nil {
		h.logger.Error("marshal transaction", "error", err)
		return
	}
	h.fanOut(tx.LocationID, tx.ItemID, update, full)
}

// PublishAlert fans a low stock alert out to matching sessions.
func (h *Hub) PublishAlert(alert *domain.LowStockAlert) {
	msg, err := json.Marshal(api.WSStockAlert{
		Type:  api.WSTypeStockAlert,
		Alert: *api.AlertFromDomain(alert),
	})
	if err != nil {
		h.logger.Error("marshal stock alert", "error", err)
		return
	}
	h.fanOut(alert.LocationID, alert.ItemID, msg)
}

func (h *Hub) fanOut(locationID, itemID string, msgs ...[]byte) {
	var victims []*session

	h.mu.RLock()
	for _, s := range h.sessions {
		if !s.matches(locationID, itemID) {
			continue
		}
		for _, msg := range msgs {
			if !h.enqueue(s, msg) {
				victims = append(victims, s)
				break
			}
		}
	}
	h.mu.RUnlock()

	for _, s := range victims {
		h.kicked.Add(1)
		h.logger.Warn("session queue full, dropping connection",
			"session", s.id, "user", s.userID)
		h.remove(s)
	}
}

// enqueue reports false when the session's queue is full; the caller
// kicks the session and the client reconnects and resyncs.
func (h *Hub) enqueue(s *session, msg []byte) bool {
	select {
	case <-s.done:
		return true // already closing, nothing to deliver
	default:
	}
	select {
	case s.send <- msg:
		h.delivered.Add(1)
		return true
	default:
		h.dropped.Add(1)
		return false
	}
}

// ServeWS upgrades the request and runs the session until the peer goes
// away. userID is the authenticated identity, used only for logging.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	h.mu.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s := &session{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, h.queueSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.sessions[s.id] = s
	h.mu.Unlock()

	h.logger.Info("session connected", "session", s.id, "user", userID)

	go s.writePump()
	h.readPump(s)
}

func (h *Hub) readPump(s *session) {
	defer h.remove(s)

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("session read error", "session", s.id, "error", err)
			}
			return
		}

		var msg api.WSClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Warn("unreadable client message", "session", s.id, "error", err)
			continue
		}

		switch msg.Type {
		case api.WSTypeSubscribe:
			s.setFilter(msg.LocationIDs, msg.ItemIDs)
			ack, err := json.Marshal(api.WSSubscribed{
				Type:        api.WSTypeSubscribed,
				LocationIDs: msg.LocationIDs,
				ItemIDs:     msg.ItemIDs,
			})
			if err == nil && !h.enqueue(s, ack) {
				return
			}
		case api.WSTypeUnsubscribe:
			s.setFilter(nil, nil)
		default:
			h.logger.Warn("unknown client message type", "session", s.id, "type", msg.Type)
		}
	}
}

// remove unregisters the session and closes its connection. Safe to call
// more than once per session.
func (h *Hub) remove(s *session) {
	h.mu.Lock()
	_, present := h.sessions[s.id]
	delete(h.sessions, s.id)
	h.mu.Unlock()

	s.close()
	if present {
		h.logger.Info("session disconnected", "session", s.id, "user", s.userID)
	}
}

// Close kicks every session and rejects further upgrades. Used during
// shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.sessions = make(map[string]*session)
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	n := len(h.sessions)
	h.mu.RUnlock()
	return Stats{
		Sessions:  n,
		Delivered: h.delivered.Load(),
		Dropped:   h.dropped.Load(),
		Kicked:    h.kicked.Load(),
	}
}
