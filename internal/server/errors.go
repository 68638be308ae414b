package server

import "fmt"

// Error codes reported to clients over the ERROR message. Errors never
// terminate the connection.
const (
	codeRoomNotFound    = "ROOM_NOT_FOUND"
	codeWrongPassword   = "WRONG_PASSWORD"
	codeRoomFull        = "ROOM_FULL"
	codeNotHost         = "NOT_HOST"
	codeInvalidState    = "INVALID_STATE"
	codeInvalidSession  = "INVALID_SESSION"
	codeValidationError = "VALIDATION_ERROR"
	codeConnectionError = "CONNECTION_ERROR"
)

type gameError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *gameError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func errRoomNotFound() *gameError {
	return &gameError{Code: codeRoomNotFound, Message: "game not found"}
}

func errWrongPassword() *gameError {
	return &gameError{Code: codeWrongPassword, Message: "wrong password"}
}

func errRoomFull() *gameError {
	return &gameError{Code: codeRoomFull, Message: "game is full"}
}

func errNotHost() *gameError {
	return &gameError{Code: codeNotHost, Message: "only the host can perform this action"}
}

func errInvalidState(message string) *gameError {
	return &gameError{Code: codeInvalidState, Message: message}
}

func errInvalidSession() *gameError {
	return &gameError{Code: codeInvalidSession, Message: "session token not recognized"}
}

func errValidation(message string) *gameError {
	return &gameError{Code: codeValidationError, Message: message}
}
