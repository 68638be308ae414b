package server

import (
	"strings"
	"testing"
)

func TestNewGameCodeFormat(t *testing.T) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := newGameCode()
		if len(code) != 6 {
			t.Fatalf("expected 6 character code, got %q", code)
		}
		for _, r := range code {
			if !strings.ContainsRune(alphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 190 {
		t.Fatalf("codes collide far too often: %d unique of 200", len(seen))
	}
}

func TestRegistryInstallAndLookup(t *testing.T) {
	srv := newBareServer(t)
	rm := newTestRoom(t, srv, roomConfig{})

	found, ok := srv.registry.lookup(rm.code)
	if !ok || found != rm {
		t.Fatalf("lookup did not return the installed room")
	}
	if _, ok := srv.registry.lookup("ZZZZZZ"); ok {
		t.Fatalf("lookup invented a room")
	}

	removed, ok := srv.registry.remove(rm.code)
	if !ok || removed != rm {
		t.Fatalf("remove did not return the installed room")
	}
	if _, ok := srv.registry.lookup(rm.code); ok {
		t.Fatalf("room still present after remove")
	}
}

func TestListLobbiesFiltersStartedGames(t *testing.T) {
	srv := newBareServer(t)
	open := newTestRoom(t, srv, roomConfig{RoomName: "open"})
	started := newTestRoom(t, srv, roomConfig{RoomName: "started"})
	if gerr := started.StartGame(1, "a red fox"); gerr != nil {
		t.Fatalf("start failed: %v", gerr)
	}

	lobbies := srv.registry.listLobbies()
	if len(lobbies) != 1 {
		t.Fatalf("expected one open lobby, got %d", len(lobbies))
	}
	if lobbies[0].Code != open.code {
		t.Fatalf("wrong lobby listed: %+v", lobbies[0])
	}
}

func TestListLobbiesOrderedByCreation(t *testing.T) {
	srv := newBareServer(t)
	first := newTestRoom(t, srv, roomConfig{})
	second := newTestRoom(t, srv, roomConfig{})

	lobbies := srv.registry.listLobbies()
	if len(lobbies) != 2 {
		t.Fatalf("expected two lobbies, got %d", len(lobbies))
	}
	if lobbies[0].Code != first.code || lobbies[1].Code != second.code {
		t.Fatalf("lobbies out of order: %+v", lobbies)
	}
}

func TestHashPassword(t *testing.T) {
	if hashPassword("") != "" {
		t.Fatalf("empty password must hash to empty string")
	}
	if hashPassword("secret") == "secret" {
		t.Fatalf("password stored in the clear")
	}
	if hashPassword("secret") != hashPassword("secret") {
		t.Fatalf("hash is not deterministic")
	}
	if hashPassword("secret") == hashPassword("other") {
		t.Fatalf("distinct passwords share a hash")
	}
}
