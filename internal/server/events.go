package server

// EventPayload is the jsonb body of a persisted game event.
type EventPayload struct {
	GameCode    string `json:"game_code,omitempty"`
	PlayerID    int    `json:"player_id,omitempty"`
	PlayerName  string `json:"player,omitempty"`
	RoundNumber int    `json:"round_number,omitempty"`
	Reason      string `json:"reason,omitempty"`
}
