package server

import (
	"log"
	"sync"

	"github.com/loopfish/AIImageGuessChallenge-sub001/internal/db"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// sessionStore maps opaque reconnect tokens to player seats. The in-memory
// map is authoritative for live rooms; rows are mirrored to Postgres when a
// connection is configured so tokens survive a restart of the lobby list.
type sessionStore struct {
	db       *gorm.DB
	mu       sync.Mutex
	sessions map[string]sessionRecord
}

type sessionRecord struct {
	GameCode string
	PlayerID int
}

func newSessionStore(conn *gorm.DB) *sessionStore {
	return &sessionStore{
		db:       conn,
		sessions: make(map[string]sessionRecord),
	}
}

// Issue mints a fresh capability token for the player. The client presents
// it on every resume; it is never derived from anything the client chose.
func (s *sessionStore) Issue(gameCode string, playerID int) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = sessionRecord{GameCode: gameCode, PlayerID: playerID}
	s.mu.Unlock()
	if s.db != nil {
		record := db.Session{
			Token:    token,
			GameCode: gameCode,
			PlayerID: playerID,
		}
		if err := s.db.Create(&record).Error; err != nil {
			log.Printf("persist session failed game_code=%s player_id=%d error=%v", gameCode, playerID, err)
		}
	}
	return token
}

func (s *sessionStore) Lookup(token string) (sessionRecord, bool) {
	s.mu.Lock()
	record, ok := s.sessions[token]
	s.mu.Unlock()
	if ok {
		return record, true
	}
	if s.db == nil {
		return sessionRecord{}, false
	}
	var row db.Session
	if err := s.db.Where("token = ?", token).First(&row).Error; err != nil {
		return sessionRecord{}, false
	}
	record = sessionRecord{GameCode: row.GameCode, PlayerID: row.PlayerID}
	s.mu.Lock()
	s.sessions[token] = record
	s.mu.Unlock()
	return record, true
}

// DropGame forgets every token for a reaped room.
func (s *sessionStore) DropGame(gameCode string) {
	s.mu.Lock()
	for token, record := range s.sessions {
		if record.GameCode == gameCode {
			delete(s.sessions, token)
		}
	}
	s.mu.Unlock()
	if s.db != nil {
		if err := s.db.Where("game_code = ?", gameCode).Delete(&db.Session{}).Error; err != nil {
			log.Printf("drop sessions failed game_code=%s error=%v", gameCode, err)
		}
	}
}
