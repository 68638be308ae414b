package server

import (
	"encoding/json"
	"testing"
)

func TestDecodePayload(t *testing.T) {
	t.Run("valid create payload", func(t *testing.T) {
		raw := json.RawMessage(`{"username":"Ada","totalRounds":3,"timerSeconds":60}`)
		var payload createGamePayload
		if gerr := decodePayload(raw, &payload); gerr != nil {
			t.Fatalf("unexpected error: %v", gerr)
		}
		if payload.Username != "Ada" || payload.TotalRounds != 3 {
			t.Fatalf("payload not decoded: %+v", payload)
		}
	})

	t.Run("missing payload", func(t *testing.T) {
		var payload createGamePayload
		gerr := decodePayload(nil, &payload)
		if gerr == nil || gerr.Code != codeValidationError {
			t.Fatalf("expected VALIDATION_ERROR, got %v", gerr)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		var payload createGamePayload
		gerr := decodePayload(json.RawMessage(`{"username":`), &payload)
		if gerr == nil || gerr.Code != codeValidationError {
			t.Fatalf("expected VALIDATION_ERROR, got %v", gerr)
		}
	})

	t.Run("rounds out of range", func(t *testing.T) {
		raw := json.RawMessage(`{"username":"Ada","totalRounds":11,"timerSeconds":60}`)
		var payload createGamePayload
		gerr := decodePayload(raw, &payload)
		if gerr == nil || gerr.Code != codeValidationError {
			t.Fatalf("expected VALIDATION_ERROR, got %v", gerr)
		}
	})

	t.Run("timer too short", func(t *testing.T) {
		raw := json.RawMessage(`{"username":"Ada","totalRounds":3,"timerSeconds":5}`)
		var payload createGamePayload
		if gerr := decodePayload(raw, &payload); gerr == nil {
			t.Fatalf("expected VALIDATION_ERROR")
		}
	})

	t.Run("custom name validator applies", func(t *testing.T) {
		raw := json.RawMessage(`{"username":"Adä","totalRounds":3,"timerSeconds":60}`)
		var payload createGamePayload
		if gerr := decodePayload(raw, &payload); gerr == nil {
			t.Fatalf("expected VALIDATION_ERROR for non-ascii name")
		}
	})

	t.Run("join code must be six characters", func(t *testing.T) {
		raw := json.RawMessage(`{"username":"Ada","gameCode":"ABC"}`)
		var payload joinGamePayload
		if gerr := decodePayload(raw, &payload); gerr == nil {
			t.Fatalf("expected VALIDATION_ERROR for short code")
		}
	})

	t.Run("guess text required", func(t *testing.T) {
		raw := json.RawMessage(`{"gameId":"ABCDEF","text":"   "}`)
		var payload submitGuessPayload
		if gerr := decodePayload(raw, &payload); gerr == nil {
			t.Fatalf("expected VALIDATION_ERROR for blank guess")
		}
	})
}
