package search

import (
	"sort"
	"strings"
	"unicode"
)

// Tokenize splits a string into ASCII alphanumeric runs and CJK ideograph
// runs. CJK text has no word boundaries, so ideograph runs are kept as
// character-run tokens instead of relying on whitespace. Tokens are
// lowercased.
func Tokenize(s string) []string {
	var tokens []string
	var current strings.Builder
	var currentCJK bool

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, strings.ToLower(current.String()))
			current.Reset()
		}
	}

	for _, r := range s {
		switch {
		case isASCIIAlnum(r):
			if currentCJK {
				flush()
			}
			currentCJK = false
			current.WriteRune(r)
		case unicode.Is(unicode.Han, r):
			if !currentCJK {
				flush()
			}
			currentCJK = true
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// RankKeyword scores chunks lexically against the query: an exact full-query
// substring match contributes exactMatchBonus, and each matched query token
// contributes one point. Chunks scoring zero are excluded. Output is sorted
// descending by score with chunk ID as the tie-break.
func RankKeyword(query string, chunks []Chunk, exactMatchBonus float64) []Hit {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	if queryLower == "" {
		return nil
	}
	queryTokens := Tokenize(queryLower)

	var hits []Hit
	for _, c := range chunks {
		contentLower := strings.ToLower(c.Content)

		score := 0.0
		if strings.Contains(contentLower, queryLower) {
			score += exactMatchBonus
		}

		tokenSet := make(map[string]struct{})
		for _, t := range Tokenize(contentLower) {
			tokenSet[t] = struct{}{}
		}
		for _, qt := range queryTokens {
			if _, ok := tokenSet[qt]; ok {
				score++
				continue
			}
			// CJK runs rarely align exactly between query and content;
			// fall back to containment for multi-char runs.
			if len([]rune(qt)) > 1 && isCJKToken(qt) && strings.Contains(contentLower, qt) {
				score++
			}
		}

		if score > 0 {
			hits = append(hits, Hit{Chunk: c, Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})

	return hits
}

func isCJKToken(t string) bool {
	for _, r := range t {
		if !unicode.Is(unicode.Han, r) {
			return false
		}
	}
	return len(t) > 0
}
