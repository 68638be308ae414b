package db

import (
	"time"

	"gorm.io/datatypes"
)

type Game struct {
	ID           uint      `gorm:"primaryKey"`
	Code         string    `gorm:"size:12;uniqueIndex;not null"`
	Name         string    `gorm:"size:64"`
	Status       string    `gorm:"size:32;not null"`
	HasPassword  bool      `gorm:"not null;default:false"`
	TotalRounds  int       `gorm:"not null"`
	TimerSeconds int       `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
	Players      []Player
	Rounds       []Round
	Events       []Event
}

type Player struct {
	ID        uint      `gorm:"primaryKey"`
	GameID    uint      `gorm:"index;not null;uniqueIndex:idx_players_game_seat"`
	SeatID    int       `gorm:"not null;uniqueIndex:idx_players_game_seat"`
	Name      string    `gorm:"size:64;not null"`
	Score     int       `gorm:"not null;default:0"`
	IsHost    bool      `gorm:"not null;default:false"`
	JoinedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Guesses   []Guess   `gorm:"foreignKey:PlayerID"`
}

type Round struct {
	ID        uint       `gorm:"primaryKey"`
	GameID    uint       `gorm:"index;not null;uniqueIndex:idx_rounds_game_number"`
	Number    int        `gorm:"not null;uniqueIndex:idx_rounds_game_number"`
	Prompt    string     `gorm:"size:280;not null"`
	ImageURL  string     `gorm:"size:1024"`
	StartedAt time.Time  `gorm:"not null"`
	EndedAt   *time.Time `gorm:""`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
	Guesses   []Guess
	Result    *RoundResult
}

type Guess struct {
	ID           uint      `gorm:"primaryKey"`
	RoundID      uint      `gorm:"index;not null"`
	PlayerID     uint      `gorm:"index;not null"`
	Text         string    `gorm:"size:280;not null"`
	MatchedWords string    `gorm:"size:280"`
	MatchCount   int       `gorm:"not null"`
	Score        int       `gorm:"not null"`
	SubmittedAt  time.Time `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

type RoundResult struct {
	ID            uint      `gorm:"primaryKey"`
	RoundID       uint      `gorm:"uniqueIndex;not null"`
	FirstPlaceID  int       `gorm:"not null;default:0"`
	SecondPlaceID int       `gorm:"not null;default:0"`
	ThirdPlaceID  int       `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"not null"`
}

// Session maps an opaque reconnect token to a player seat in a game.
type Session struct {
	Token     string    `gorm:"primaryKey;size:64"`
	GameCode  string    `gorm:"size:12;index;not null"`
	PlayerID  int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	GameID    uint           `gorm:"index;not null"`
	RoundID   *uint          `gorm:"index"`
	PlayerID  *uint          `gorm:"index"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
