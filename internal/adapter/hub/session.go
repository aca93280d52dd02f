package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// session is one live terminal connection. The filter is owned by the
// read pump and replaced wholesale on every subscribe; publishers only
// ever read it.
type session struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}

	closeOnce sync.Once

	filterMu  sync.RWMutex
	locations map[string]struct{}
	items     map[string]struct{}
}

func (s *session) setFilter(locationIDs, itemIDs []string) {
	locations := make(map[string]struct{}, len(locationIDs))
	for _, id := range locationIDs {
		locations[id] = struct{}{}
	}
	items := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		items[id] = struct{}{}
	}

	s.filterMu.Lock()
	s.locations = locations
	s.items = items
	s.filterMu.Unlock()
}

// matches reports whether the session wants events for the key. A
// session with no filter receives nothing until it subscribes.
func (s *session) matches(locationID, itemID string) bool {
	s.filterMu.RLock()
	defer s.filterMu.RUnlock()

	if _, ok := s.locations[locationID]; ok {
		return true
	}
	_, ok := s.items[itemID]
	return ok
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// writePump drains the send queue onto the wire and keeps the
// connection alive with pings. It exits when the session closes or a
// write fails; the failed connection surfaces in the read pump, which
// unregisters the session.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.close()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}
