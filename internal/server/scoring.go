package server

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// normalizeWords lowercases the text, strips everything that is neither a
// letter, digit nor whitespace, and splits the remainder into words.
func normalizeWords(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// matchWords returns the guess words that occur in the prompt, in guess
// order. Each prompt word is consumable at most once: a guess repeating a
// word is only credited as often as the prompt contains it.
func matchWords(prompt, guess string) []string {
	remaining := make(map[string]int)
	for _, word := range normalizeWords(prompt) {
		remaining[word]++
	}
	var matched []string
	for _, word := range normalizeWords(guess) {
		if remaining[word] > 0 {
			remaining[word]--
			matched = append(matched, word)
		}
	}
	return matched
}

// scoreGuess combines word-overlap accuracy with a time decay. Accuracy is
// the fraction of prompt words matched, scaled to 100; up to half of that is
// lost linearly over the first 60 seconds. The result is clamped to [0,100].
func scoreGuess(matchCount, promptWordCount int, elapsedSeconds float64) int {
	if matchCount <= 0 || promptWordCount <= 0 {
		return 0
	}
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	base := float64(matchCount) / float64(promptWordCount) * 100
	decay := math.Min(1, elapsedSeconds/60) * 0.5
	score := int(math.Round(base * (1 - decay)))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// determineRoundWinners keeps each player's highest-scoring guess and ranks
// the players descending by that score. Ties break on earlier submission
// time, then on lower player id. With fewer than three submitters the lower
// placements stay empty.
func determineRoundWinners(guesses []Guess) RoundResult {
	best := make(map[int]Guess)
	for _, guess := range guesses {
		current, ok := best[guess.PlayerID]
		if !ok || guess.Score > current.Score {
			best[guess.PlayerID] = guess
			continue
		}
		if guess.Score == current.Score && guess.SubmittedAt.Before(current.SubmittedAt) {
			best[guess.PlayerID] = guess
		}
	}
	ranked := make([]Guess, 0, len(best))
	for _, guess := range best {
		ranked = append(ranked, guess)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if !ranked[i].SubmittedAt.Equal(ranked[j].SubmittedAt) {
			return ranked[i].SubmittedAt.Before(ranked[j].SubmittedAt)
		}
		return ranked[i].PlayerID < ranked[j].PlayerID
	})

	var result RoundResult
	if len(ranked) > 0 {
		result.FirstPlaceID = ranked[0].PlayerID
	}
	if len(ranked) > 1 {
		result.SecondPlaceID = ranked[1].PlayerID
	}
	if len(ranked) > 2 {
		result.ThirdPlaceID = ranked[2].PlayerID
	}
	return result
}

// placementPoints are the fixed rewards for 1st, 2nd and 3rd place.
func placementPoints(result RoundResult) map[int]int {
	points := make(map[int]int)
	if result.FirstPlaceID != 0 {
		points[result.FirstPlaceID] = 3
	}
	if result.SecondPlaceID != 0 {
		points[result.SecondPlaceID] = 2
	}
	if result.ThirdPlaceID != 0 {
		points[result.ThirdPlaceID] = 1
	}
	return points
}
