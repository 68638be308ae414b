package server

import "testing"

func TestSessionStore(t *testing.T) {
	store := newSessionStore(nil)

	token := store.Issue("ABC234", 2)
	if token == "" {
		t.Fatalf("expected a token")
	}
	other := store.Issue("ABC234", 3)
	if other == token {
		t.Fatalf("tokens must be unique")
	}

	record, ok := store.Lookup(token)
	if !ok || record.GameCode != "ABC234" || record.PlayerID != 2 {
		t.Fatalf("lookup returned %+v, ok=%v", record, ok)
	}

	if _, ok := store.Lookup("bogus"); ok {
		t.Fatalf("lookup accepted an unknown token")
	}

	store.DropGame("ABC234")
	if _, ok := store.Lookup(token); ok {
		t.Fatalf("token survived DropGame")
	}
}
