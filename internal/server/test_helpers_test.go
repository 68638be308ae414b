package server

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/loopfish/AIImageGuessChallenge-sub001/internal/config"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, cfg config.Config) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(nil, cfg)
	t.Cleanup(srv.Close)
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: srv.Handler()},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return srv, ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendWS(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	frame, err := json.Marshal(envelope{Type: msgType, Payload: raw})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write websocket message: %v", err)
	}
}

func readWS(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	return env
}

// readWSType discards messages until one of the wanted type arrives. An ERROR
// frame while waiting for anything else fails the test.
func readWSType(t *testing.T, conn *websocket.Conn, msgType string) envelope {
	t.Helper()
	for i := 0; i < 20; i++ {
		env := readWS(t, conn)
		if env.Type == msgType {
			return env
		}
		if env.Type == msgError {
			t.Fatalf("unexpected error while waiting for %s: %s", msgType, env.Payload)
		}
	}
	t.Fatalf("no %s message received", msgType)
	return envelope{}
}

func readWelcome(t *testing.T, conn *websocket.Conn) welcomePayload {
	t.Helper()
	env := readWSType(t, conn, msgWelcome)
	var welcome welcomePayload
	if err := json.Unmarshal(env.Payload, &welcome); err != nil {
		t.Fatalf("unmarshal welcome: %v", err)
	}
	return welcome
}

func readSnapshot(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	env := readWSType(t, conn, msgSnapshot)
	var snapshot map[string]any
	if err := json.Unmarshal(env.Payload, &snapshot); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	return snapshot
}

func readError(t *testing.T, conn *websocket.Conn) gameError {
	t.Helper()
	env := readWSType(t, conn, msgError)
	var gerr gameError
	if err := json.Unmarshal(env.Payload, &gerr); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	return gerr
}

// waitForStatus keeps reading snapshots until the game reaches the wanted
// status.
func waitForStatus(t *testing.T, conn *websocket.Conn, status string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		snapshot := readSnapshot(t, conn)
		if snapshot["status"] == status {
			return snapshot
		}
	}
	t.Fatalf("game never reached status %s", status)
	return nil
}

func createTestGame(t *testing.T, conn *websocket.Conn, username string) welcomePayload {
	t.Helper()
	sendWS(t, conn, msgCreateGame, map[string]any{
		"username":     username,
		"roomName":     "test room",
		"totalRounds":  2,
		"timerSeconds": 60,
	})
	welcome := readWelcome(t, conn)
	readSnapshot(t, conn)
	return welcome
}

func joinTestGame(t *testing.T, conn *websocket.Conn, username, gameCode string) welcomePayload {
	t.Helper()
	sendWS(t, conn, msgJoinGame, map[string]any{
		"username": username,
		"gameCode": gameCode,
	})
	welcome := readWelcome(t, conn)
	readSnapshot(t, conn)
	return welcome
}

// newTestRoom builds a room through the registry, exactly like a CREATE_GAME
// message would, without any websocket involved.
func newTestRoom(t *testing.T, srv *Server, cfg roomConfig) *room {
	t.Helper()
	if cfg.HostName == "" {
		cfg.HostName = "Host"
	}
	if cfg.TotalRounds == 0 {
		cfg.TotalRounds = 2
	}
	if cfg.TimerSeconds == 0 {
		cfg.TimerSeconds = 60
	}
	return srv.registry.install(func(code string, id int) *room {
		return newRoom(srv, code, id, cfg)
	})
}

func newBareServer(t *testing.T) *Server {
	t.Helper()
	srv := New(nil, config.Default())
	t.Cleanup(srv.Close)
	return srv
}
