package server

import (
	"reflect"
	"testing"
	"time"
)

func TestNormalizeWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercases", "A Red FOX", []string{"a", "red", "fox"}},
		{"strips punctuation", "red, fox! (jumps)", []string{"red", "fox", "jumps"}},
		{"collapses whitespace", "  red \t fox\n", []string{"red", "fox"}},
		{"keeps digits", "route 66", []string{"route", "66"}},
		{"empty", "   ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeWords(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("normalizeWords(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMatchWords(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		guess  string
		want   []string
	}{
		{"full match", "a red fox", "a red fox", []string{"a", "red", "fox"}},
		{"partial match keeps guess order", "a red fox jumps", "jumps red", []string{"jumps", "red"}},
		{"repeated guess word consumes prompt once", "a red fox jumps", "red red dog", []string{"red"}},
		{"repeated prompt word can match twice", "red red fox", "red red", []string{"red", "red"}},
		{"case and punctuation ignored", "A Red Fox", "red!", []string{"red"}},
		{"no overlap", "a red fox", "blue dog", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchWords(tt.prompt, tt.guess)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("matchWords(%q, %q) = %v, want %v", tt.prompt, tt.guess, got, tt.want)
			}
		})
	}
}

func TestScoreGuess(t *testing.T) {
	tests := []struct {
		name       string
		matches    int
		promptSize int
		elapsed    float64
		want       int
	}{
		{"two of six at ten seconds", 2, 6, 10, 31},
		{"three of six at five seconds", 3, 6, 5, 48},
		{"perfect instant guess", 6, 6, 0, 100},
		{"perfect guess after a minute", 6, 6, 60, 50},
		{"decay caps at half", 6, 6, 600, 50},
		{"no matches", 0, 6, 0, 0},
		{"empty prompt", 3, 0, 0, 0},
		{"negative elapsed treated as zero", 3, 6, -5, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreGuess(tt.matches, tt.promptSize, tt.elapsed)
			if got != tt.want {
				t.Fatalf("scoreGuess(%d, %d, %v) = %d, want %d", tt.matches, tt.promptSize, tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestScoreGuessDecaysMonotonically(t *testing.T) {
	prev := 101
	for elapsed := 0.0; elapsed <= 90; elapsed += 5 {
		score := scoreGuess(4, 6, elapsed)
		if score > prev {
			t.Fatalf("score rose from %d to %d at elapsed=%v", prev, score, elapsed)
		}
		prev = score
	}
}

func TestDetermineRoundWinners(t *testing.T) {
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	guesses := []Guess{
		{PlayerID: 2, Score: 40, SubmittedAt: base.Add(5 * time.Second)},
		{PlayerID: 3, Score: 80, SubmittedAt: base.Add(10 * time.Second)},
		{PlayerID: 4, Score: 60, SubmittedAt: base.Add(3 * time.Second)},
		{PlayerID: 2, Score: 70, SubmittedAt: base.Add(20 * time.Second)},
	}
	result := determineRoundWinners(guesses)
	if result.FirstPlaceID != 3 || result.SecondPlaceID != 2 || result.ThirdPlaceID != 4 {
		t.Fatalf("unexpected placements: %+v", result)
	}
}

func TestDetermineRoundWinnersTieBreaks(t *testing.T) {
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	t.Run("earlier submission wins the tie", func(t *testing.T) {
		result := determineRoundWinners([]Guess{
			{PlayerID: 2, Score: 50, SubmittedAt: base.Add(10 * time.Second)},
			{PlayerID: 3, Score: 50, SubmittedAt: base.Add(2 * time.Second)},
		})
		if result.FirstPlaceID != 3 || result.SecondPlaceID != 2 {
			t.Fatalf("unexpected placements: %+v", result)
		}
	})

	t.Run("identical timestamps fall back to player id", func(t *testing.T) {
		result := determineRoundWinners([]Guess{
			{PlayerID: 5, Score: 50, SubmittedAt: base},
			{PlayerID: 2, Score: 50, SubmittedAt: base},
		})
		if result.FirstPlaceID != 2 || result.SecondPlaceID != 5 {
			t.Fatalf("unexpected placements: %+v", result)
		}
	})
}

func TestDetermineRoundWinnersFewSubmitters(t *testing.T) {
	t.Run("no guesses", func(t *testing.T) {
		result := determineRoundWinners(nil)
		if result.FirstPlaceID != 0 || result.SecondPlaceID != 0 || result.ThirdPlaceID != 0 {
			t.Fatalf("expected empty result, got %+v", result)
		}
	})

	t.Run("single submitter", func(t *testing.T) {
		result := determineRoundWinners([]Guess{{PlayerID: 2, Score: 10, SubmittedAt: time.Now()}})
		if result.FirstPlaceID != 2 || result.SecondPlaceID != 0 || result.ThirdPlaceID != 0 {
			t.Fatalf("expected only first place, got %+v", result)
		}
	})
}

func TestPlacementPoints(t *testing.T) {
	points := placementPoints(RoundResult{FirstPlaceID: 3, SecondPlaceID: 2, ThirdPlaceID: 4})
	want := map[int]int{3: 3, 2: 2, 4: 1}
	if !reflect.DeepEqual(points, want) {
		t.Fatalf("placementPoints = %v, want %v", points, want)
	}

	partial := placementPoints(RoundResult{FirstPlaceID: 2})
	if len(partial) != 1 || partial[2] != 3 {
		t.Fatalf("expected only first place points, got %v", partial)
	}
}
