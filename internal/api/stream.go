package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tune-dash.klederson.com/internal/perf"
	"tune-dash.klederson.com/internal/recorder"
)

const (
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	sendBuffer   = 64
)

// Message is one frame pushed to stream clients.
type Message struct {
	Type  string `json:"type"` // "session" or "perf"
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Stream fans session and tracker updates out to websocket clients. Slow
// clients lose frames rather than stall the producers.
type Stream struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	unsubs  []func()
	closed  bool
}

// NewStream creates an empty hub.
func NewStream(log *zap.Logger) *Stream {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stream{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*client]struct{}),
	}
}

// Attach subscribes the stream to a session and a tracker. Either may be nil.
func (s *Stream) Attach(session *recorder.Session, tracker *perf.Tracker) {
	var unsubs []func()
	if session != nil {
		unsubs = append(unsubs, session.Subscribe(func(ev recorder.Event) {
			msg := Message{Type: "session", Event: ev.Kind.String()}
			if ev.Kind == recorder.EventAppended {
				msg.Data = ev.Entry
			}
			s.Broadcast(msg)
		}))
	}
	if tracker != nil {
		unsubs = append(unsubs, tracker.Subscribe(func(u perf.Update) {
			s.Broadcast(Message{Type: "perf", Event: u.Kind.String(), Data: newRunView(u.Run)})
		}))
	}
	s.mu.Lock()
	s.unsubs = append(s.unsubs, unsubs...)
	s.mu.Unlock()
}

// Clients returns the number of connected clients.
func (s *Stream) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast queues msg for every client.
func (s *Stream) Broadcast(msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("failed to encode stream message", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- b:
		default:
			s.log.Warn("dropping stream message, buffer full", zap.String("remote", c.conn.RemoteAddr().String()))
		}
	}
}

// HandleWS upgrades the request and streams updates until the client leaves.
func (s *Stream) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("failed to upgrade websocket", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !s.register(c) {
		_ = conn.Close()
		return
	}
	s.log.Info("stream client connected", zap.String("remote", conn.RemoteAddr().String()))

	go s.writePump(c)
	s.readPump(c)
}

func (s *Stream) register(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	return true
}

func (s *Stream) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// readPump discards client frames; it exists to notice disconnects.
func (s *Stream) readPump(c *client) {
	defer func() {
		s.unregister(c)
		_ = c.conn.Close()
		s.log.Info("stream client disconnected", zap.String("remote", c.conn.RemoteAddr().String()))
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Stream) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = s.write(c, websocket.CloseMessage, []byte{})
				_ = c.conn.Close()
				return
			}
			if err := s.write(c, websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.write(c, websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Stream) write(c *client, messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// Close unsubscribes from producers and disconnects every client.
func (s *Stream) Close() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.closed = true
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
}
