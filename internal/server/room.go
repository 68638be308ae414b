package server

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// room wraps one Game behind an actor goroutine. Every mutation, from joins
// and guesses to timer expiries and image results, is an action enqueued on
// a single channel and applied one at a time, so broadcast order always
// matches application order and no locks are needed on game state.
type room struct {
	code       string
	srv        *Server
	game       *Game
	actions    chan roomAction
	quit       chan struct{}
	stopOnce   sync.Once
	roundTimer *time.Timer
	summary    atomic.Value
}

type roomAction interface{}

type joinAction struct {
	username string
	password string
	reply    chan joinReply
}

type joinReply struct {
	playerID int
	err      *gameError
}

type resumeAction struct {
	playerID int
	reply    chan *gameError
}

type leaveAction struct {
	playerID int
	reply    chan *gameError
}

type offlineAction struct {
	playerID int
}

type startGameAction struct {
	playerID int
	prompt   string
	reply    chan *gameError
}

type guessAction struct {
	playerID int
	roundID  string
	text     string
	at       time.Time
	reply    chan *gameError
}

type endRoundAction struct {
	playerID int
	reply    chan *gameError
}

type timerExpiredAction struct {
	roundNumber int
}

type nextRoundAction struct {
	playerID int
	prompt   string
	reply    chan *gameError
}

type endGameAction struct {
	playerID int
	reply    chan *gameError
}

type imageReadyAction struct {
	roundNumber int
	url         string
	errText     string
}

type snapshotRequest struct {
	reply chan map[string]any
}

type roomConfig struct {
	HostName     string
	RoomName     string
	Password     string
	TotalRounds  int
	TimerSeconds int
}

func newRoom(srv *Server, code string, id int, cfg roomConfig) *room {
	now := timeNowUTC()
	game := &Game{
		ID:           id,
		Code:         code,
		Name:         cfg.RoomName,
		Status:       statusLobby,
		HostID:       1,
		PasswordHash: hashPassword(cfg.Password),
		TotalRounds:  cfg.TotalRounds,
		TimerSeconds: cfg.TimerSeconds,
		CreatedAt:    now,
		LastActive:   now,
		nextPlayerID: 2,
	}
	game.Players = append(game.Players, Player{
		ID:        1,
		Name:      cfg.HostName,
		IsHost:    true,
		Connected: true,
		JoinedAt:  now,
	})
	rm := &room{
		code:    code,
		srv:     srv,
		game:    game,
		actions: make(chan roomAction, 64),
		quit:    make(chan struct{}),
	}
	rm.summary.Store(game.summary())
	return rm
}

func (r *room) run() {
	for {
		select {
		case act := <-r.actions:
			r.dispatch(act)
		case <-r.quit:
			r.stopRoundTimer()
			return
		}
	}
}

func (r *room) stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
	})
}

// dispatch applies one action. A fault while applying a single action is
// logged and must not take the room down.
func (r *room) dispatch(act roomAction) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("room action panic game_code=%s error=%v", r.code, rec)
		}
	}()
	switch act := act.(type) {
	case joinAction:
		act.reply <- r.handleJoin(act)
	case resumeAction:
		act.reply <- r.handleResume(act)
	case leaveAction:
		act.reply <- r.handleLeave(act)
	case offlineAction:
		r.handleOffline(act)
	case startGameAction:
		act.reply <- r.handleStartGame(act)
	case guessAction:
		act.reply <- r.handleGuess(act)
	case endRoundAction:
		act.reply <- r.handleEndRound(act)
	case timerExpiredAction:
		r.handleTimerExpired(act)
	case nextRoundAction:
		act.reply <- r.handleNextRound(act)
	case endGameAction:
		act.reply <- r.handleEndGame(act)
	case imageReadyAction:
		r.handleImageReady(act)
	case snapshotRequest:
		act.reply <- snapshotGame(r.game)
	default:
		log.Printf("room dropped unknown action game_code=%s action=%T", r.code, act)
	}
}

func (r *room) enqueue(act roomAction) bool {
	select {
	case <-r.quit:
		return false
	default:
	}
	select {
	case r.actions <- act:
		return true
	case <-r.quit:
		return false
	}
}

// await guards the reply wait against the room stopping with the action
// still sitting in the buffer.
func (r *room) await(reply chan *gameError) *gameError {
	select {
	case gerr := <-reply:
		return gerr
	case <-r.quit:
		return errRoomNotFound()
	}
}

// touch records activity, refreshes the published lobby summary and pushes
// one authoritative snapshot to every connection bound to the room.
func (r *room) touch() {
	r.game.LastActive = timeNowUTC()
	r.publish()
	r.srv.broadcastRoom(r.code, r.game)
}

func (r *room) publish() {
	r.summary.Store(r.game.summary())
}

func (r *room) handleJoin(act joinAction) joinReply {
	game := r.game
	if game.Status != statusLobby {
		return joinReply{err: errInvalidState("game already started")}
	}
	if game.PasswordHash != "" && hashPassword(act.password) != game.PasswordHash {
		return joinReply{err: errWrongPassword()}
	}
	if max := r.srv.cfg.MaxPlayersPerRoom; max > 0 && len(game.Players) >= max {
		return joinReply{err: errRoomFull()}
	}
	player := Player{
		ID:        game.nextPlayerID,
		Name:      act.username,
		Connected: true,
		JoinedAt:  timeNowUTC(),
	}
	game.nextPlayerID++
	game.Players = append(game.Players, player)
	if err := r.srv.persistPlayer(game, &game.Players[len(game.Players)-1]); err != nil {
		log.Printf("persist player failed game_code=%s player_id=%d error=%v", r.code, player.ID, err)
	}
	r.srv.persistEvent(game, "player_joined", EventPayload{PlayerID: player.ID, PlayerName: player.Name})
	log.Printf("player joined game_code=%s player_id=%d name=%s", r.code, player.ID, player.Name)
	r.touch()
	return joinReply{playerID: player.ID}
}

func (r *room) handleResume(act resumeAction) *gameError {
	player := r.game.findPlayer(act.playerID)
	if player == nil {
		return errInvalidSession()
	}
	player.Connected = true
	log.Printf("player resumed game_code=%s player_id=%d", r.code, player.ID)
	r.touch()
	return nil
}

func (r *room) handleLeave(act leaveAction) *gameError {
	game := r.game
	if game.Status != statusLobby {
		return errInvalidState("can only leave while in the lobby")
	}
	player := game.findPlayer(act.playerID)
	if player == nil {
		return errValidation("unknown player")
	}
	if player.IsHost {
		// The host abandoning the lobby ends the game for everyone.
		return r.endGame(player.ID, "host_left")
	}
	for i := range game.Players {
		if game.Players[i].ID == act.playerID {
			game.Players = append(game.Players[:i], game.Players[i+1:]...)
			break
		}
	}
	r.srv.persistEvent(game, "player_left", EventPayload{PlayerID: act.playerID})
	log.Printf("player left game_code=%s player_id=%d", r.code, act.playerID)
	r.touch()
	return nil
}

// handleOffline flips the player's connection state. Scores and stored
// guesses are untouched; the room keeps running even with nobody online.
func (r *room) handleOffline(act offlineAction) {
	player := r.game.findPlayer(act.playerID)
	if player == nil || !player.Connected {
		return
	}
	player.Connected = false
	log.Printf("player offline game_code=%s player_id=%d", r.code, player.ID)
	r.publish()
	r.srv.broadcastRoom(r.code, r.game)
}

func (r *room) handleStartGame(act startGameAction) *gameError {
	game := r.game
	if act.playerID != game.HostID {
		return errNotHost()
	}
	if game.Status != statusLobby {
		return errInvalidState("game already started")
	}
	r.openRound(1, act.prompt)
	log.Printf("game started game_code=%s rounds=%d timer=%d", r.code, game.TotalRounds, game.TimerSeconds)
	r.touch()
	return nil
}

func (r *room) handleGuess(act guessAction) *gameError {
	game := r.game
	if game.Status != statusRoundActive {
		return errInvalidState("no round is accepting guesses")
	}
	player := game.findPlayer(act.playerID)
	if player == nil {
		return errValidation("unknown player")
	}
	if player.IsHost && !r.srv.cfg.AllowHostGuess {
		return errValidation("the host cannot guess their own prompt")
	}
	round := game.currentRound()
	if act.roundID != "" && act.roundID != round.ID {
		return errInvalidState("round already closed")
	}
	at := act.at
	if at.IsZero() {
		at = timeNowUTC()
	}
	matched := matchWords(round.Prompt, act.text)
	elapsed := at.Sub(round.StartedAt).Seconds()
	guess := Guess{
		PlayerID:     player.ID,
		Text:         act.text,
		MatchedWords: matched,
		MatchCount:   len(matched),
		Score:        scoreGuess(len(matched), round.PromptWordCount, elapsed),
		SubmittedAt:  at,
	}
	round.Guesses = append(round.Guesses, guess)
	if err := r.srv.persistGuess(game, round, &round.Guesses[len(round.Guesses)-1]); err != nil {
		log.Printf("persist guess failed game_code=%s player_id=%d error=%v", r.code, player.ID, err)
	}
	log.Printf("guess scored game_code=%s round=%d player_id=%d matches=%d score=%d",
		r.code, round.Number, player.ID, guess.MatchCount, guess.Score)
	r.touch()
	return nil
}

func (r *room) handleEndRound(act endRoundAction) *gameError {
	game := r.game
	if act.playerID != game.HostID {
		return errNotHost()
	}
	if game.Status != statusRoundActive {
		return errInvalidState("no active round to end")
	}
	r.closeRound("host_ended")
	r.touch()
	return nil
}

// handleTimerExpired races against the host's manual end. Whichever is
// applied first wins; the loser simply finds the round gone and is dropped.
func (r *room) handleTimerExpired(act timerExpiredAction) {
	game := r.game
	round := game.currentRound()
	if game.Status != statusRoundActive || round == nil || round.Number != act.roundNumber {
		log.Printf("stale round timer ignored game_code=%s round=%d", r.code, act.roundNumber)
		return
	}
	r.closeRound("timer_expired")
	r.touch()
}

func (r *room) handleNextRound(act nextRoundAction) *gameError {
	game := r.game
	if act.playerID != game.HostID {
		return errNotHost()
	}
	if game.Status != statusRoundResults {
		return errInvalidState("round results are not being shown")
	}
	if len(game.Rounds) >= game.TotalRounds {
		return r.endGame(act.playerID, "all_rounds_played")
	}
	r.openRound(len(game.Rounds)+1, act.prompt)
	r.touch()
	return nil
}

func (r *room) handleEndGame(act endGameAction) *gameError {
	game := r.game
	if act.playerID != game.HostID {
		return errNotHost()
	}
	if game.Status == statusEnded {
		return errInvalidState("game already ended")
	}
	return r.endGame(act.playerID, "host_ended")
}

func (r *room) handleImageReady(act imageReadyAction) {
	for i := range r.game.Rounds {
		round := &r.game.Rounds[i]
		if round.Number != act.roundNumber {
			continue
		}
		round.ImageURL = act.url
		round.ImageError = act.errText
		if act.errText != "" {
			log.Printf("image generation failed game_code=%s round=%d error=%s", r.code, round.Number, act.errText)
		}
		if err := r.srv.persistRoundImage(round); err != nil {
			log.Printf("persist round image failed game_code=%s round=%d error=%v", r.code, round.Number, err)
		}
		r.touch()
		return
	}
}

// openRound creates the round, arms its timer and kicks off image
// generation. Called only from the actor.
func (r *room) openRound(number int, prompt string) {
	game := r.game
	round := Round{
		ID:              uuid.NewString(),
		Number:          number,
		Prompt:          prompt,
		PromptWordCount: len(normalizeWords(prompt)),
		StartedAt:       timeNowUTC(),
	}
	game.Rounds = append(game.Rounds, round)
	game.Status = statusRoundActive
	stored := game.currentRound()
	if err := r.srv.persistRound(game, stored); err != nil {
		log.Printf("persist round failed game_code=%s round=%d error=%v", r.code, number, err)
	}
	r.srv.persistEvent(game, "round_started", EventPayload{RoundNumber: number})
	r.scheduleRoundTimer(number)
	r.srv.requestImage(r, number, prompt)
	log.Printf("round started game_code=%s round=%d prompt_words=%d", r.code, number, stored.PromptWordCount)
}

// closeRound finalizes the current round: best guess per player, placements,
// 3/2/1 points. The result is immutable afterwards.
func (r *room) closeRound(cause string) {
	game := r.game
	round := game.currentRound()
	r.stopRoundTimer()
	round.EndedAt = timeNowUTC()
	result := determineRoundWinners(round.Guesses)
	round.Result = &result
	for id, points := range placementPoints(result) {
		if player := game.findPlayer(id); player != nil {
			player.Score += points
		}
	}
	game.Status = statusRoundResults
	if err := r.srv.persistRoundClose(game, round); err != nil {
		log.Printf("persist round result failed game_code=%s round=%d error=%v", r.code, round.Number, err)
	}
	r.srv.persistEvent(game, "round_ended", EventPayload{RoundNumber: round.Number, Reason: cause})
	log.Printf("round ended game_code=%s round=%d cause=%s first=%d second=%d third=%d",
		r.code, round.Number, cause, result.FirstPlaceID, result.SecondPlaceID, result.ThirdPlaceID)
}

func (r *room) endGame(playerID int, cause string) *gameError {
	game := r.game
	r.stopRoundTimer()
	game.Status = statusEnded
	if err := r.srv.persistStatus(game); err != nil {
		log.Printf("persist status failed game_code=%s error=%v", r.code, err)
	}
	r.srv.persistEvent(game, "game_ended", EventPayload{PlayerID: playerID, Reason: cause})
	log.Printf("game ended game_code=%s cause=%s", r.code, cause)
	r.touch()
	return nil
}

func (r *room) scheduleRoundTimer(roundNumber int) {
	r.stopRoundTimer()
	seconds := r.game.TimerSeconds
	if seconds <= 0 {
		return
	}
	r.roundTimer = time.AfterFunc(time.Duration(seconds)*time.Second, func() {
		r.enqueue(timerExpiredAction{roundNumber: roundNumber})
	})
}

func (r *room) stopRoundTimer() {
	if r.roundTimer != nil {
		r.roundTimer.Stop()
		r.roundTimer = nil
	}
}

// Blocking accessors used by the connection layer and tests. Each enqueues
// an action and waits for the actor's reply; a stopped room reports
// ROOM_NOT_FOUND.

func (r *room) Join(username, password string) (int, *gameError) {
	reply := make(chan joinReply, 1)
	if !r.enqueue(joinAction{username: username, password: password, reply: reply}) {
		return 0, errRoomNotFound()
	}
	select {
	case res := <-reply:
		return res.playerID, res.err
	case <-r.quit:
		return 0, errRoomNotFound()
	}
}

func (r *room) Resume(playerID int) *gameError {
	reply := make(chan *gameError, 1)
	if !r.enqueue(resumeAction{playerID: playerID, reply: reply}) {
		return errRoomNotFound()
	}
	return r.await(reply)
}

func (r *room) Leave(playerID int) *gameError {
	reply := make(chan *gameError, 1)
	if !r.enqueue(leaveAction{playerID: playerID, reply: reply}) {
		return errRoomNotFound()
	}
	return r.await(reply)
}

func (r *room) StartGame(playerID int, prompt string) *gameError {
	reply := make(chan *gameError, 1)
	if !r.enqueue(startGameAction{playerID: playerID, prompt: prompt, reply: reply}) {
		return errRoomNotFound()
	}
	return r.await(reply)
}

func (r *room) SubmitGuess(playerID int, roundID, text string, at time.Time) *gameError {
	reply := make(chan *gameError, 1)
	if !r.enqueue(guessAction{playerID: playerID, roundID: roundID, text: text, at: at, reply: reply}) {
		return errRoomNotFound()
	}
	return r.await(reply)
}

func (r *room) EndRound(playerID int) *gameError {
	reply := make(chan *gameError, 1)
	if !r.enqueue(endRoundAction{playerID: playerID, reply: reply}) {
		return errRoomNotFound()
	}
	return r.await(reply)
}

func (r *room) NextRound(playerID int, prompt string) *gameError {
	reply := make(chan *gameError, 1)
	if !r.enqueue(nextRoundAction{playerID: playerID, prompt: prompt, reply: reply}) {
		return errRoomNotFound()
	}
	return r.await(reply)
}

func (r *room) EndGame(playerID int) *gameError {
	reply := make(chan *gameError, 1)
	if !r.enqueue(endGameAction{playerID: playerID, reply: reply}) {
		return errRoomNotFound()
	}
	return r.await(reply)
}

func (r *room) SetOffline(playerID int) {
	r.enqueue(offlineAction{playerID: playerID})
}

func (r *room) Snapshot() map[string]any {
	reply := make(chan map[string]any, 1)
	if !r.enqueue(snapshotRequest{reply: reply}) {
		return nil
	}
	select {
	case snapshot := <-reply:
		return snapshot
	case <-r.quit:
		return nil
	}
}

func (r *room) Summary() LobbySummary {
	return r.summary.Load().(LobbySummary)
}
