package server

import "time"

const (
	statusLobby        = "lobby"
	statusRoundActive  = "round_active"
	statusRoundResults = "round_results"
	statusEnded        = "ended"
)

// Game is the authoritative in-memory state of one room. It is owned
// exclusively by the room's actor goroutine after the room starts; nothing
// outside the actor may touch it.
type Game struct {
	ID           int
	DBID         uint
	Code         string
	Name         string
	Status       string
	HostID       int
	PasswordHash string
	TotalRounds  int
	TimerSeconds int
	CreatedAt    time.Time
	LastActive   time.Time
	Players      []Player
	Rounds       []Round

	nextPlayerID int
}

type Player struct {
	ID        int
	DBID      uint
	Name      string
	Score     int
	IsHost    bool
	Connected bool
	JoinedAt  time.Time
}

type Round struct {
	ID              string
	DBID            uint
	Number          int
	Prompt          string
	PromptWordCount int
	ImageURL        string
	ImageError      string
	StartedAt       time.Time
	EndedAt         time.Time
	Guesses         []Guess
	Result          *RoundResult
}

type Guess struct {
	DBID         uint
	PlayerID     int
	Text         string
	MatchedWords []string
	MatchCount   int
	Score        int
	SubmittedAt  time.Time
}

// RoundResult holds the placement winners of a closed round. A zero ID means
// the placement was not awarded.
type RoundResult struct {
	FirstPlaceID  int
	SecondPlaceID int
	ThirdPlaceID  int
}

type LobbySummary struct {
	ID           int       `json:"id"`
	Code         string    `json:"code"`
	Status       string    `json:"status"`
	RoomName     string    `json:"room_name"`
	HasPassword  bool      `json:"has_password"`
	CurrentRound int       `json:"current_round"`
	TotalRounds  int       `json:"total_rounds"`
	TimerSeconds int       `json:"timer_seconds"`
	Players      int       `json:"players"`
	Online       int       `json:"online"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"-"`
}

func (g *Game) findPlayer(id int) *Player {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return &g.Players[i]
		}
	}
	return nil
}

func (g *Game) currentRound() *Round {
	if len(g.Rounds) == 0 {
		return nil
	}
	return &g.Rounds[len(g.Rounds)-1]
}

func (g *Game) onlineCount() int {
	online := 0
	for i := range g.Players {
		if g.Players[i].Connected {
			online++
		}
	}
	return online
}

func (g *Game) summary() LobbySummary {
	return LobbySummary{
		ID:           g.ID,
		Code:         g.Code,
		Status:       g.Status,
		RoomName:     g.Name,
		HasPassword:  g.PasswordHash != "",
		CurrentRound: len(g.Rounds),
		TotalRounds:  g.TotalRounds,
		TimerSeconds: g.TimerSeconds,
		Players:      len(g.Players),
		Online:       g.onlineCount(),
		CreatedAt:    g.CreatedAt,
		LastActive:   g.LastActive,
	}
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
