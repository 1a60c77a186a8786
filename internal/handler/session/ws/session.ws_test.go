package ws

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/krobus00/trading-service/internal/session"
)

func testAuth(validKey string) func(r *http.Request) (string, error) {
	return AuthenticateFromRequest(func(apiKey string) error {
		if apiKey != validKey {
			return errors.New("invalid api key")
		}
		return nil
	})
}

func newTestServer(t *testing.T, registry *session.Registry) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	handler := NewSessionWSHandler(registry, testAuth("test-key"))
	handler.Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?" + query
}

func waitForCount(t *testing.T, registry *session.Registry, userID string, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if registry.Count(userID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Count(%s) = %d, want %d", userID, registry.Count(userID), want)
}

func TestConnectRejectsBadAuth(t *testing.T) {
	registry := session.NewRegistry()
	server := newTestServer(t, registry)

	tests := []struct {
		name  string
		query string
	}{
		{name: "missing api key", query: "user_id=user-1"},
		{name: "wrong api key", query: "api_key=wrong&user_id=user-1"},
		{name: "missing user id", query: "api_key=test-key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, tt.query), nil)
			if err == nil {
				t.Fatal("dial succeeded, want handshake rejection")
			}
			if resp == nil || resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("response = %+v, want 401", resp)
			}
		})
	}

	if got := registry.Count("user-1"); got != 0 {
		t.Fatalf("Count(user-1) = %d, want 0", got)
	}
}

func TestConnectRegistersAndDelivers(t *testing.T) {
	registry := session.NewRegistry()
	server := newTestServer(t, registry)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "api_key=test-key&user_id=user-1"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	waitForCount(t, registry, "user-1", 1)

	sinks := registry.Sessions("user-1")
	if len(sinks) != 1 {
		t.Fatalf("Sessions(user-1) = %d sinks, want 1", len(sinks))
	}
	if err := sinks[0].Send([]byte(`{"type":"ORDER_UPDATE"}`)); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != `{"type":"ORDER_UPDATE"}` {
		t.Fatalf("payload = %s", payload)
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	registry := session.NewRegistry()
	server := newTestServer(t, registry)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "api_key=test-key&user_id=user-1"), nil)
	if err != nil {
		t.Fatal(err)
	}

	waitForCount(t, registry, "user-1", 1)

	conn.Close()
	waitForCount(t, registry, "user-1", 0)
}

func TestMultipleSessionsPerUser(t *testing.T) {
	registry := session.NewRegistry()
	server := newTestServer(t, registry)

	first, _, err := websocket.DefaultDialer.Dial(wsURL(server, "api_key=test-key&user_id=user-1"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()

	second, _, err := websocket.DefaultDialer.Dial(wsURL(server, "api_key=test-key&user_id=user-1"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	waitForCount(t, registry, "user-1", 2)
}
