package server

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/loopfish/AIImageGuessChallenge-sub001/internal/db"

	"gorm.io/datatypes"
)

// The durability sink. All writes here are fire-and-forget with respect to
// the state transition that caused them: the in-memory room is the source of
// truth for live gameplay, and a failed write only loses history, never
// corrupts a game. Every function is a no-op without a database.

func (s *Server) persistNewGame(game *Game) error {
	if s.db == nil {
		return nil
	}
	record := db.Game{
		Code:         game.Code,
		Name:         game.Name,
		Status:       game.Status,
		HasPassword:  game.PasswordHash != "",
		TotalRounds:  game.TotalRounds,
		TimerSeconds: game.TimerSeconds,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return err
	}
	game.DBID = record.ID
	host := game.findPlayer(game.HostID)
	if host == nil {
		return nil
	}
	return s.persistPlayer(game, host)
}

func (s *Server) persistPlayer(game *Game, player *Player) error {
	if s.db == nil || game.DBID == 0 || player.DBID != 0 {
		return nil
	}
	record := db.Player{
		GameID:   game.DBID,
		SeatID:   player.ID,
		Name:     player.Name,
		IsHost:   player.IsHost,
		JoinedAt: player.JoinedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return err
	}
	player.DBID = record.ID
	return nil
}

func (s *Server) persistRound(game *Game, round *Round) error {
	if err := s.persistStatus(game); err != nil {
		log.Printf("persist status failed game_code=%s error=%v", game.Code, err)
	}
	if s.db == nil || game.DBID == 0 {
		return nil
	}
	record := db.Round{
		GameID:    game.DBID,
		Number:    round.Number,
		Prompt:    round.Prompt,
		StartedAt: round.StartedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return err
	}
	round.DBID = record.ID
	return nil
}

func (s *Server) persistRoundImage(round *Round) error {
	if s.db == nil || round.DBID == 0 {
		return nil
	}
	return s.db.Model(&db.Round{}).
		Where("id = ?", round.DBID).
		Update("image_url", round.ImageURL).Error
}

func (s *Server) persistGuess(game *Game, round *Round, guess *Guess) error {
	if s.db == nil || round.DBID == 0 {
		return nil
	}
	var playerDBID uint
	if player := game.findPlayer(guess.PlayerID); player != nil {
		playerDBID = player.DBID
	}
	record := db.Guess{
		RoundID:      round.DBID,
		PlayerID:     playerDBID,
		Text:         guess.Text,
		MatchedWords: strings.Join(guess.MatchedWords, " "),
		MatchCount:   guess.MatchCount,
		Score:        guess.Score,
		SubmittedAt:  guess.SubmittedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return err
	}
	guess.DBID = record.ID
	return nil
}

// persistRoundClose writes the round end, the immutable result row and the
// updated player totals in one pass.
func (s *Server) persistRoundClose(game *Game, round *Round) error {
	if err := s.persistStatus(game); err != nil {
		log.Printf("persist status failed game_code=%s error=%v", game.Code, err)
	}
	if s.db == nil || round.DBID == 0 {
		return nil
	}
	endedAt := round.EndedAt
	if err := s.db.Model(&db.Round{}).
		Where("id = ?", round.DBID).
		Update("ended_at", &endedAt).Error; err != nil {
		return err
	}
	if round.Result != nil {
		record := db.RoundResult{
			RoundID:       round.DBID,
			FirstPlaceID:  round.Result.FirstPlaceID,
			SecondPlaceID: round.Result.SecondPlaceID,
			ThirdPlaceID:  round.Result.ThirdPlaceID,
		}
		if err := s.db.Create(&record).Error; err != nil {
			return err
		}
	}
	for i := range game.Players {
		player := &game.Players[i]
		if player.DBID == 0 {
			continue
		}
		if err := s.db.Model(&db.Player{}).
			Where("id = ?", player.DBID).
			Update("score", player.Score).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) persistStatus(game *Game) error {
	if s.db == nil || game.DBID == 0 {
		return nil
	}
	return s.db.Model(&db.Game{}).
		Where("id = ?", game.DBID).
		Update("status", game.Status).Error
}

func (s *Server) persistEvent(game *Game, eventType string, payload EventPayload) {
	if s.db == nil || game.DBID == 0 {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	record := db.Event{
		GameID:    game.DBID,
		Type:      eventType,
		Payload:   datatypes.JSON(body),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.Create(&record).Error; err != nil {
		log.Printf("persist event failed game_code=%s type=%s error=%v", game.Code, eventType, err)
	}
}
