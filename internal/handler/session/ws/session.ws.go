package ws

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/krobus00/trading-service/internal/session"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout   = 10 * time.Second
	pongTimeout    = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 1024
)

var errUserIDRequired = errors.New("user id is required")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades authenticated clients to WebSocket sessions and registers
// them for order event fan-out.
type Handler struct {
	registry     *session.Registry
	authenticate func(r *http.Request) (string, error)
}

func NewSessionWSHandler(registry *session.Registry, authenticate func(r *http.Request) (string, error)) *Handler {
	return &Handler{
		registry:     registry,
		authenticate: authenticate,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.Connect)
}

func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authenticate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorf("websocket upgrade failed: %v", err)
		return
	}

	sessionID := uuid.NewString()
	sink := newConnSink(conn)
	h.registry.Register(userID, sessionID, sink)

	logger := logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"session_id": sessionID,
	})
	logger.Info("session connected")

	go sink.pingLoop()

	// the read loop only exists to observe disconnects; clients do not send
	// application messages on this channel
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.registry.Unregister(userID, sessionID)
	sink.close()
	logger.Info("session disconnected")
}

// connSink serializes writes to one websocket connection; gorilla allows a
// single concurrent writer.
type connSink struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
	stop   chan struct{}
}

func newConnSink(conn *websocket.Conn) *connSink {
	return &connSink{
		conn: conn,
		stop: make(chan struct{}),
	}
}

func (s *connSink) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return websocket.ErrCloseSent
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *connSink) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.mu.Unlock()
			if err != nil {
				return
			}
		case <-s.stop:
			return
		}
	}
}

func (s *connSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.stop)
	_ = s.conn.Close()
}

// AuthenticateFromRequest resolves the session user. API key auth plus the
// identity subsystem's user id, both accepted as header or query parameter
// so browser clients can connect.
func AuthenticateFromRequest(validateAPIKey func(string) error) func(r *http.Request) (string, error) {
	return func(r *http.Request) (string, error) {
		apiKey := strings.TrimSpace(r.Header.Get("X-API-Key"))
		if apiKey == "" {
			apiKey = strings.TrimSpace(r.URL.Query().Get("api_key"))
		}
		if err := validateAPIKey(apiKey); err != nil {
			return "", err
		}

		userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
		if userID == "" {
			userID = strings.TrimSpace(r.URL.Query().Get("user_id"))
		}
		if userID == "" {
			return "", errUserIDRequired
		}

		return userID, nil
	}
}
