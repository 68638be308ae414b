package server

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Client to server message types.
const (
	msgCreateGame  = "CREATE_GAME"
	msgJoinGame    = "JOIN_GAME"
	msgResumeGame  = "RESUME_GAME"
	msgLeaveGame   = "LEAVE_GAME"
	msgStartGame   = "START_GAME"
	msgSubmitGuess = "SUBMIT_GUESS"
	msgEndRound    = "END_ROUND"
	msgNextRound   = "NEXT_ROUND"
	msgEndGame     = "END_GAME"
	msgHeartbeat   = "HEARTBEAT"
)

// Server to client message types.
const (
	msgSnapshot = "SNAPSHOT"
	msgWelcome  = "WELCOME"
	msgError    = "ERROR"
)

// envelope is the tagged wire format shared by both directions.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type createGamePayload struct {
	Username     string `json:"username" validate:"required,playername"`
	RoomName     string `json:"roomName" validate:"omitempty,max=40"`
	Password     string `json:"password" validate:"omitempty,max=40"`
	TotalRounds  int    `json:"totalRounds" validate:"required,min=1,max=10"`
	TimerSeconds int    `json:"timerSeconds" validate:"required,min=10,max=300"`
}

type joinGamePayload struct {
	Username string `json:"username" validate:"required,playername"`
	GameCode string `json:"gameCode" validate:"required,len=6"`
	Password string `json:"password" validate:"omitempty,max=40"`
}

type resumeGamePayload struct {
	SessionToken string `json:"sessionToken" validate:"required,max=64"`
	GameCode     string `json:"gameCode" validate:"required,len=6"`
}

type startGamePayload struct {
	GameID string `json:"gameId" validate:"required"`
	Prompt string `json:"prompt" validate:"required,prompttext"`
}

type submitGuessPayload struct {
	GameID  string `json:"gameId" validate:"required"`
	RoundID string `json:"roundId" validate:"omitempty,max=40"`
	Text    string `json:"text" validate:"required,guesstext"`
}

type nextRoundPayload struct {
	GameID string `json:"gameId" validate:"required"`
	Prompt string `json:"prompt" validate:"required,prompttext"`
}

type gameRefPayload struct {
	GameID string `json:"gameId" validate:"required"`
}

type welcomePayload struct {
	PlayerID     int    `json:"playerId"`
	SessionToken string `json:"sessionToken"`
	GameCode     string `json:"gameCode"`
}

var (
	validateOnce    sync.Once
	payloadValidate *validator.Validate
)

func payloadValidator() *validator.Validate {
	validateOnce.Do(func() {
		engine := validator.New(validator.WithRequiredStructEnabled())
		_ = engine.RegisterValidation("playername", func(fl validator.FieldLevel) bool {
			_, err := validateName(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("prompttext", func(fl validator.FieldLevel) bool {
			_, err := validatePrompt(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("guesstext", func(fl validator.FieldLevel) bool {
			_, err := validateGuess(fl.Field().String())
			return err == nil
		})
		payloadValidate = engine
	})
	return payloadValidate
}

// decodePayload unmarshals a payload into its schema struct and validates
// it. Malformed payloads surface as VALIDATION_ERROR, never as a crash.
func decodePayload(raw json.RawMessage, dst any) *gameError {
	if len(raw) == 0 {
		return errValidation("missing payload")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errValidation("malformed payload")
	}
	if err := payloadValidator().Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errValidation("invalid field: " + verrs[0].Field())
		}
		return errValidation("invalid payload")
	}
	return nil
}
