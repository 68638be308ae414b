package server

import "time"

// snapshotGame serializes the complete authoritative room state. Clients
// replace their cached view wholesale with each snapshot, so the payload
// must always be self-contained; no diffs are ever sent.
func snapshotGame(game *Game) map[string]any {
	players := make([]map[string]any, 0, len(game.Players))
	for i := range game.Players {
		player := &game.Players[i]
		players = append(players, map[string]any{
			"id":        player.ID,
			"name":      player.Name,
			"score":     player.Score,
			"is_host":   player.IsHost,
			"connected": player.Connected,
		})
	}
	snapshot := map[string]any{
		"game_id":       game.ID,
		"game_code":     game.Code,
		"room_name":     game.Name,
		"status":        game.Status,
		"host_id":       game.HostID,
		"has_password":  game.PasswordHash != "",
		"current_round": len(game.Rounds),
		"total_rounds":  game.TotalRounds,
		"timer_seconds": game.TimerSeconds,
		"created_at":    game.CreatedAt.Format(time.RFC3339),
		"players":       players,
	}
	if round := game.currentRound(); round != nil {
		snapshot["round"] = snapshotRound(game, round)
	}
	return snapshot
}

func snapshotRound(game *Game, round *Round) map[string]any {
	payload := map[string]any{
		"id":                round.ID,
		"number":            round.Number,
		"prompt_word_count": round.PromptWordCount,
		"image_url":         round.ImageURL,
		"image_error":       round.ImageError,
		"started_at":        round.StartedAt.Format(time.RFC3339),
		"guess_count":       len(round.Guesses),
	}
	if game.TimerSeconds > 0 && game.Status == statusRoundActive {
		payload["ends_at"] = round.StartedAt.Add(time.Duration(game.TimerSeconds) * time.Second).Format(time.RFC3339)
	}
	if round.EndedAt.IsZero() {
		return payload
	}
	// The prompt and the per-player breakdown are only revealed once the
	// round has closed.
	payload["ended_at"] = round.EndedAt.Format(time.RFC3339)
	payload["prompt"] = round.Prompt
	payload["best_guesses"] = bestGuessesPayload(round)
	if round.Result != nil {
		payload["results"] = map[string]any{
			"first_place_id":  round.Result.FirstPlaceID,
			"second_place_id": round.Result.SecondPlaceID,
			"third_place_id":  round.Result.ThirdPlaceID,
		}
	}
	return payload
}

func bestGuessesPayload(round *Round) []map[string]any {
	best := make(map[int]Guess)
	order := make([]int, 0)
	for _, guess := range round.Guesses {
		current, ok := best[guess.PlayerID]
		if !ok {
			order = append(order, guess.PlayerID)
			best[guess.PlayerID] = guess
			continue
		}
		if guess.Score > current.Score {
			best[guess.PlayerID] = guess
		}
	}
	payload := make([]map[string]any, 0, len(order))
	for _, playerID := range order {
		guess := best[playerID]
		matched := guess.MatchedWords
		if matched == nil {
			matched = []string{}
		}
		payload = append(payload, map[string]any{
			"player_id":     guess.PlayerID,
			"text":          guess.Text,
			"matched_words": matched,
			"match_count":   guess.MatchCount,
			"score":         guess.Score,
			"submitted_at":  guess.SubmittedAt.Format(time.RFC3339Nano),
		})
	}
	return payload
}
