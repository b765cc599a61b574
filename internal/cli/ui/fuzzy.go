package ui

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// maxSuggestionDistance is the largest edit distance still offered as a
// suggestion
const maxSuggestionDistance = 3

// suggestionDistance scales the allowed edit distance with the target so a
// short typo never matches an unrelated short word
func suggestionDistance(target string) int {
	return min(maxSuggestionDistance, max(1, utf8.RuneCountInString(target)/2))
}

// Suggest returns up to limit candidates within a small edit distance of
// target, closest first. Matching ignores case.
func Suggest(target string, candidates []string, limit int) []string {
	type match struct {
		value    string
		distance int
	}

	target = strings.ToLower(target)
	limitDistance := suggestionDistance(target)
	seen := make(map[string]bool, len(candidates))
	var matches []match
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		if d := levenshtein(target, strings.ToLower(c)); d <= limitDistance {
			matches = append(matches, match{c, d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].distance < matches[j].distance })

	out := make([]string, 0, limit)
	for i := 0; i < len(matches) && i < limit; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// levenshtein counts the single-rune edits that turn a into b
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
