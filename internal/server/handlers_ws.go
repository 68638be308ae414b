package server

import (
	"encoding/json"
	"log"
	"time"
)

// handleMessage routes one inbound envelope. Every rejection is answered
// with a non-fatal ERROR message; the connection stays open.
func (s *Server) handleMessage(conn *wsConn, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.sendError(conn, errValidation("malformed message envelope"))
		return
	}
	switch env.Type {
	case msgCreateGame:
		s.handleCreateGame(conn, env.Payload)
	case msgJoinGame:
		s.handleJoinGame(conn, env.Payload)
	case msgResumeGame:
		s.handleResumeGame(conn, env.Payload)
	case msgLeaveGame:
		s.handleRoomAction(conn, env.Payload, func(rm *room, playerID int) *gameError {
			err := rm.Leave(playerID)
			if err == nil {
				s.hub.Unbind(conn, rm.code)
				conn.bindIdentity("", 0)
			}
			return err
		})
	case msgStartGame:
		var payload startGamePayload
		if gerr := decodePayload(env.Payload, &payload); gerr != nil {
			s.sendError(conn, gerr)
			return
		}
		s.withBoundRoom(conn, payload.GameID, func(rm *room, playerID int) *gameError {
			return rm.StartGame(playerID, normalizeText(payload.Prompt))
		})
	case msgSubmitGuess:
		var payload submitGuessPayload
		if gerr := decodePayload(env.Payload, &payload); gerr != nil {
			s.sendError(conn, gerr)
			return
		}
		s.withBoundRoom(conn, payload.GameID, func(rm *room, playerID int) *gameError {
			return rm.SubmitGuess(playerID, payload.RoundID, normalizeText(payload.Text), time.Time{})
		})
	case msgEndRound:
		s.handleRoomAction(conn, env.Payload, func(rm *room, playerID int) *gameError {
			return rm.EndRound(playerID)
		})
	case msgNextRound:
		var payload nextRoundPayload
		if gerr := decodePayload(env.Payload, &payload); gerr != nil {
			s.sendError(conn, gerr)
			return
		}
		s.withBoundRoom(conn, payload.GameID, func(rm *room, playerID int) *gameError {
			return rm.NextRound(playerID, normalizeText(payload.Prompt))
		})
	case msgEndGame:
		s.handleRoomAction(conn, env.Payload, func(rm *room, playerID int) *gameError {
			return rm.EndGame(playerID)
		})
	case msgHeartbeat:
		// lastSeen was already refreshed by the read loop; nothing else to do.
	default:
		s.sendError(conn, errValidation("unknown message type"))
	}
}

func (s *Server) handleCreateGame(conn *wsConn, raw json.RawMessage) {
	var payload createGamePayload
	if gerr := decodePayload(raw, &payload); gerr != nil {
		s.sendError(conn, gerr)
		return
	}
	if gameCode, _ := conn.identity(); gameCode != "" {
		s.sendError(conn, errValidation("connection already bound to a game"))
		return
	}
	username, err := validateName(payload.Username)
	if err != nil {
		s.sendError(conn, errValidation(err.Error()))
		return
	}
	cfg := roomConfig{
		HostName:     username,
		RoomName:     normalizeText(payload.RoomName),
		Password:     payload.Password,
		TotalRounds:  payload.TotalRounds,
		TimerSeconds: payload.TimerSeconds,
	}
	// The build callback runs before the room's actor starts, so persisting
	// the fresh game here cannot race with joins.
	rm := s.registry.install(func(code string, id int) *room {
		built := newRoom(s, code, id, cfg)
		if err := s.persistNewGame(built.game); err != nil {
			log.Printf("persist game failed game_code=%s error=%v", code, err)
		}
		s.persistEvent(built.game, "game_created", EventPayload{GameCode: code, PlayerName: username})
		return built
	})
	hostID := rm.game.HostID
	token := s.sessions.Issue(rm.code, hostID)
	conn.bindIdentity(rm.code, hostID)
	s.hub.Bind(conn, rm.code)
	log.Printf("game created game_code=%s game_id=%d host=%s", rm.code, rm.game.ID, username)
	s.sendWelcome(conn, rm.code, hostID, token)
	s.sendSnapshot(conn, rm.Snapshot())
}

func (s *Server) handleJoinGame(conn *wsConn, raw json.RawMessage) {
	var payload joinGamePayload
	if gerr := decodePayload(raw, &payload); gerr != nil {
		s.sendError(conn, gerr)
		return
	}
	if gameCode, _ := conn.identity(); gameCode != "" {
		s.sendError(conn, errValidation("connection already bound to a game"))
		return
	}
	username, err := validateName(payload.Username)
	if err != nil {
		s.sendError(conn, errValidation(err.Error()))
		return
	}
	rm, ok := s.registry.lookup(payload.GameCode)
	if !ok {
		s.sendError(conn, errRoomNotFound())
		return
	}
	playerID, gerr := rm.Join(username, payload.Password)
	if gerr != nil {
		s.sendError(conn, gerr)
		return
	}
	token := s.sessions.Issue(rm.code, playerID)
	conn.bindIdentity(rm.code, playerID)
	s.hub.Bind(conn, rm.code)
	s.sendWelcome(conn, rm.code, playerID, token)
	s.sendSnapshot(conn, rm.Snapshot())
}

// handleResumeGame re-binds a reconnecting client: the stored session token
// is the capability that maps back to its player. The reply is the current
// snapshot, not a replay of missed history.
func (s *Server) handleResumeGame(conn *wsConn, raw json.RawMessage) {
	var payload resumeGamePayload
	if gerr := decodePayload(raw, &payload); gerr != nil {
		s.sendError(conn, gerr)
		return
	}
	record, ok := s.sessions.Lookup(payload.SessionToken)
	if !ok || record.GameCode != payload.GameCode {
		s.sendError(conn, errInvalidSession())
		return
	}
	rm, found := s.registry.lookup(record.GameCode)
	if !found {
		s.sendError(conn, errRoomNotFound())
		return
	}
	if gerr := rm.Resume(record.PlayerID); gerr != nil {
		s.sendError(conn, gerr)
		return
	}
	conn.bindIdentity(rm.code, record.PlayerID)
	s.hub.Bind(conn, rm.code)
	s.sendWelcome(conn, rm.code, record.PlayerID, payload.SessionToken)
	s.sendSnapshot(conn, rm.Snapshot())
}

// handleRoomAction covers the message types whose payload is just a game
// reference.
func (s *Server) handleRoomAction(conn *wsConn, raw json.RawMessage, apply func(rm *room, playerID int) *gameError) {
	var payload gameRefPayload
	if gerr := decodePayload(raw, &payload); gerr != nil {
		s.sendError(conn, gerr)
		return
	}
	s.withBoundRoom(conn, payload.GameID, apply)
}

func (s *Server) withBoundRoom(conn *wsConn, gameID string, apply func(rm *room, playerID int) *gameError) {
	gameCode, playerID := conn.identity()
	if gameCode == "" || playerID == 0 {
		s.sendError(conn, errValidation("connection is not bound to a game"))
		return
	}
	if gameID != gameCode {
		s.sendError(conn, errValidation("gameId does not match the bound game"))
		return
	}
	rm, ok := s.registry.lookup(gameCode)
	if !ok {
		s.sendError(conn, errRoomNotFound())
		return
	}
	if gerr := apply(rm, playerID); gerr != nil {
		s.sendError(conn, gerr)
	}
}

func (s *Server) sendEnvelope(conn *wsConn, msgType string, payload any) {
	data, err := json.Marshal(envelope{Type: msgType, Payload: mustMarshal(payload)})
	if err != nil {
		return
	}
	s.hub.Send(conn, data)
}

func (s *Server) sendWelcome(conn *wsConn, gameCode string, playerID int, token string) {
	s.sendEnvelope(conn, msgWelcome, welcomePayload{
		PlayerID:     playerID,
		SessionToken: token,
		GameCode:     gameCode,
	})
}

func (s *Server) sendSnapshot(conn *wsConn, snapshot map[string]any) {
	if snapshot == nil {
		return
	}
	s.sendEnvelope(conn, msgSnapshot, snapshot)
}

func (s *Server) sendError(conn *wsConn, gerr *gameError) {
	s.sendEnvelope(conn, msgError, gerr)
}
