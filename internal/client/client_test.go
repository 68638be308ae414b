package client

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/loopfish/AIImageGuessChallenge-sub001/internal/config"
	"github.com/loopfish/AIImageGuessChallenge-sub001/internal/server"
)

func newGameServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := server.New(nil, config.Default())
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
	return ts
}

func dialClient(t *testing.T, ts *httptest.Server) *Client {
	t.Helper()
	c, err := Dial(Options{
		URL:              "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
		ReconnectBackoff: 50 * time.Millisecond,
	})
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func waitSnapshot(t *testing.T, c *Client) map[string]any {
	t.Helper()
	select {
	case snapshot := <-c.Snapshots():
		return snapshot
	case <-time.After(5 * time.Second):
		t.Fatalf("no snapshot received")
		return nil
	}
}

func TestCreateGameSyncsState(t *testing.T) {
	ts := newGameServer(t)
	c := dialClient(t, ts)

	if err := c.CreateGame("Ada", "test room", "", 2, 60); err != nil {
		t.Fatalf("create game: %v", err)
	}
	snapshot := waitSnapshot(t, c)
	if snapshot["status"] != "lobby" {
		t.Fatalf("expected lobby, got %v", snapshot["status"])
	}

	playerID, token, code := c.Identity()
	if playerID != 1 {
		t.Fatalf("expected host player id 1, got %d", playerID)
	}
	if token == "" || len(code) != 6 {
		t.Fatalf("identity incomplete: token=%q code=%q", token, code)
	}
	if c.Snapshot() == nil {
		t.Fatalf("snapshot cache empty after sync")
	}
}

func TestSnapshotsReplaceWholesale(t *testing.T) {
	ts := newGameServer(t)
	host := dialClient(t, ts)
	if err := host.CreateGame("Ada", "", "", 2, 60); err != nil {
		t.Fatalf("create game: %v", err)
	}
	waitSnapshot(t, host)
	_, _, code := host.Identity()

	guest := dialClient(t, ts)
	if err := guest.JoinGame("Grace", code, ""); err != nil {
		t.Fatalf("join game: %v", err)
	}
	waitSnapshot(t, guest)

	// the host's next snapshot is a complete state with both players
	deadline := time.Now().Add(5 * time.Second)
	for {
		snapshot := waitSnapshot(t, host)
		players, _ := snapshot["players"].([]any)
		if len(players) == 2 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("host snapshot never showed both players")
		}
	}
}

func TestServerErrorsSurface(t *testing.T) {
	ts := newGameServer(t)
	c := dialClient(t, ts)

	if err := c.JoinGame("Ada", "ZZZZZZ", ""); err != nil {
		t.Fatalf("join game: %v", err)
	}
	select {
	case serr := <-c.Errors():
		if serr.Code != "ROOM_NOT_FOUND" {
			t.Fatalf("expected ROOM_NOT_FOUND, got %+v", serr)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no error received")
	}
}

func TestReconnectResumesSession(t *testing.T) {
	ts := newGameServer(t)
	c := dialClient(t, ts)

	if err := c.CreateGame("Ada", "", "", 2, 60); err != nil {
		t.Fatalf("create game: %v", err)
	}
	waitSnapshot(t, c)
	playerID, token, code := c.Identity()

	// sever the transport behind the client's back
	c.mu.Lock()
	sock := c.conn
	c.mu.Unlock()
	_ = sock.Close()

	// the resume handshake answers with a fresh snapshot
	snapshot := waitSnapshot(t, c)
	if snapshot["game_code"] != code {
		t.Fatalf("resumed into the wrong game: %v", snapshot["game_code"])
	}
	gotID, gotToken, gotCode := c.Identity()
	if gotID != playerID || gotToken != token || gotCode != code {
		t.Fatalf("identity changed across reconnect: %d %q %q", gotID, gotToken, gotCode)
	}
}

func TestQueuedActionsReplayAfterReconnect(t *testing.T) {
	ts := newGameServer(t)
	c := dialClient(t, ts)

	if err := c.CreateGame("Ada", "", "", 2, 60); err != nil {
		t.Fatalf("create game: %v", err)
	}
	waitSnapshot(t, c)

	c.mu.Lock()
	sock := c.conn
	c.conn = nil
	c.mu.Unlock()

	// queued while offline
	if err := c.StartGame("a red fox jumps the wall"); err != nil {
		t.Fatalf("queue start: %v", err)
	}
	_ = sock.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		snapshot := waitSnapshot(t, c)
		if snapshot["status"] == "round_active" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("queued start never applied, status=%v", snapshot["status"])
		}
	}
}

func TestGiveUpWithoutSession(t *testing.T) {
	ts := newGameServer(t)
	c := dialClient(t, ts)

	// never joined anything, so a drop is final
	c.mu.Lock()
	sock := c.conn
	c.mu.Unlock()
	_ = sock.Close()

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("client without a session should give up immediately")
	}
}
