package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Subscriber is one replication session. Frames are written by its own
// goroutine; direct writes from the read loop share the write lock.
type Subscriber struct {
	id     string
	remote string
	conn   *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex

	lastCommandSeq atomic.Uint64
}

func newSubscriber(id, remote string, conn *websocket.Conn, buffer int) *Subscriber {
	return &Subscriber{
		id:     id,
		remote: remote,
		conn:   conn,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Subscriber) ID() string {
	return s.id
}

// Done is closed once the session has been removed from its hub.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// enqueue queues a frame without blocking and reports whether it fit.
func (s *Subscriber) enqueue(data []byte) bool {
	select {
	case <-s.done:
		return true
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.conn != nil {
			s.writeMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			s.writeMu.Unlock()
			s.conn.Close()
		}
	})
}

// WriteMessage writes a frame directly, bypassing the queue.
func (s *Subscriber) WriteMessage(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// WriteJSON encodes payload and writes it directly.
func (s *Subscriber) WriteJSON(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.WriteMessage(websocket.TextMessage, data)
}

func (s *Subscriber) writeLoop(h *Hub) {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			if err := s.WriteMessage(websocket.TextMessage, data); err != nil {
				h.Unsubscribe(context.Background(), s.id, "write failed")
				return
			}
			h.sent(len(data))
		}
	}
}
