package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
)

// registry maps live game codes to their rooms. It only guards the map;
// everything inside a room belongs to that room's actor.
type registry struct {
	mu         sync.Mutex
	rooms      map[string]*room
	nextGameID int
}

func newRegistry() *registry {
	return &registry{
		rooms:      make(map[string]*room),
		nextGameID: 1,
	}
}

// install generates a collision-free code, builds the room under the lock so
// the code can never be handed out twice, and starts its actor.
func (reg *registry) install(build func(code string, id int) *room) *room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	var code string
	for {
		code = newGameCode()
		if _, taken := reg.rooms[code]; !taken {
			break
		}
	}
	rm := build(code, reg.nextGameID)
	reg.nextGameID++
	reg.rooms[code] = rm
	go rm.run()
	return rm
}

func (reg *registry) lookup(code string) (*room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	rm, ok := reg.rooms[code]
	return rm, ok
}

func (reg *registry) remove(code string) (*room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	rm, ok := reg.rooms[code]
	if ok {
		delete(reg.rooms, code)
	}
	return rm, ok
}

func (reg *registry) all() []*room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	rooms := make([]*room, 0, len(reg.rooms))
	for _, rm := range reg.rooms {
		rooms = append(rooms, rm)
	}
	return rooms
}

// listLobbies returns summaries of rooms still accepting players, oldest
// first. This is the read-only projection behind GET /api/games.
func (reg *registry) listLobbies() []LobbySummary {
	summaries := make([]LobbySummary, 0)
	for _, rm := range reg.all() {
		summary := rm.Summary()
		if summary.Status != statusLobby {
			continue
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ID < summaries[j].ID
	})
	return summaries
}

// newGameCode draws six characters from an alphabet without confusable
// glyphs (no 0/O, 1/I).
func newGameCode() string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "AAAAAA"
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf)
}

func hashPassword(password string) string {
	if password == "" {
		return ""
	}
	digest := sha256.Sum256([]byte(password))
	return hex.EncodeToString(digest[:])
}
