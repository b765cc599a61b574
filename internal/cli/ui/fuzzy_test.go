package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"habits", "", 6},
		{"kitten", "sitting", 3},
		{"habit", "habits", 1},
		{"stréak", "streak", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "%q -> %q", tt.a, tt.b)
	}
}

func TestSuggest(t *testing.T) {
	segments := []string{"habits", "achievements", "leaderboard", "users", "habits", "auth"}

	assert.Equal(t, []string{"habits"}, Suggest("habts", segments, 3))
	assert.Equal(t, []string{"users"}, Suggest("USER", segments, 3))
	assert.Empty(t, Suggest("completely-different", segments, 3))
	assert.Len(t, Suggest("a", []string{"ab", "ac", "ad"}, 2), 2)
}

func TestSuggestScalesWithTarget(t *testing.T) {
	assert.Empty(t, Suggest("habts", []string{"auth"}, 3))
	assert.Empty(t, Suggest("xy", []string{"ab"}, 3))
	assert.Equal(t, []string{"leaderboard"}, Suggest("ledrbord", []string{"leaderboard", "auth"}, 3))

	assert.Equal(t, 1, suggestionDistance("a"))
	assert.Equal(t, 2, suggestionDistance("habts"))
	assert.Equal(t, maxSuggestionDistance, suggestionDistance("achievemnts"))
}
