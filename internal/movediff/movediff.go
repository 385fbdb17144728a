// Package movediff computes which tokens of a reordered class list count as
// moved, using a longest common subsequence over the token sequences.
package movediff

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenMove is a token of the replacement list flagged as moved.
type TokenMove struct {
	Token string
	// CharStart is the character offset of the token in the replacement
	// string, or -1 when it could not be located.
	CharStart int
}

// Policy decides how tokens outside the common subsequence are selected.
type Policy int

const (
	// PolicyValue flags every replacement token whose value is absent from
	// the common subsequence. Duplicate values are interchangeable: a value
	// kept once in the subsequence protects all of its occurrences.
	PolicyValue Policy = iota
	// PolicyOccurrence flags exactly the replacement positions that the
	// subsequence alignment left unmatched, so each duplicate occurrence is
	// judged on its own.
	PolicyOccurrence
	// PolicyPresence ignores order entirely and flags only values that do
	// not occur in the original list at all.
	PolicyPresence
)

func (p Policy) String() string {
	switch p {
	case PolicyValue:
		return "value"
	case PolicyOccurrence:
		return "occurrence"
	case PolicyPresence:
		return "presence"
	default:
		return "unknown"
	}
}

// Diff flags moved tokens with PolicyValue.
func Diff(original, replacement string) []TokenMove {
	return DiffWithPolicy(original, replacement, PolicyValue)
}

// DiffWithPolicy compares the original list with its replacement and returns
// the flagged replacement tokens in left-to-right order. Empty input on
// either side yields nil.
func DiffWithPolicy(original, replacement string, policy Policy) []TokenMove {
	a := Tokens(original)
	b := Tokens(replacement)
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	var flagged []bool
	switch policy {
	case PolicyOccurrence:
		matched := alignB(a, b)
		flagged = make([]bool, len(b))
		for j := range b {
			flagged[j] = !matched[j]
		}
	case PolicyPresence:
		present := make(map[string]struct{}, len(a))
		for _, tok := range a {
			present[tok] = struct{}{}
		}
		flagged = make([]bool, len(b))
		for j, tok := range b {
			_, ok := present[tok]
			flagged[j] = !ok
		}
	default:
		common := make(map[string]struct{})
		for _, tok := range LCS(a, b) {
			common[tok] = struct{}{}
		}
		flagged = make([]bool, len(b))
		for j, tok := range b {
			_, ok := common[tok]
			flagged[j] = !ok
		}
	}

	offsets := Locate(replacement, b)
	var moves []TokenMove
	for j, tok := range b {
		if flagged[j] {
			moves = append(moves, TokenMove{Token: tok, CharStart: offsets[j]})
		}
	}
	return moves
}

// Tokens splits a class list on whitespace.
func Tokens(s string) []string {
	return strings.Fields(s)
}

// LCS returns a longest common subsequence of a and b.
func LCS(a, b []string) []string {
	dp := table(a, b)

	var lcs []string
	i, j := len(a), len(b)
	for i > 0 && j > 0 {
		switch {
		case a[i-1] == b[j-1]:
			lcs = append(lcs, a[i-1])
			i--
			j--
		case dp[i-1][j] >= dp[i][j-1]:
			i--
		default:
			j--
		}
	}

	for l, r := 0, len(lcs)-1; l < r; l, r = l+1, r-1 {
		lcs[l], lcs[r] = lcs[r], lcs[l]
	}
	return lcs
}

// alignB reports, per position of b, whether it is part of the LCS alignment.
func alignB(a, b []string) []bool {
	dp := table(a, b)
	matched := make([]bool, len(b))
	i, j := len(a), len(b)
	for i > 0 && j > 0 {
		switch {
		case a[i-1] == b[j-1]:
			matched[j-1] = true
			i--
			j--
		case dp[i-1][j] >= dp[i][j-1]:
			i--
		default:
			j--
		}
	}
	return matched
}

// table builds the LCS length table: dp[i][j] is the LCS length of a[:i] and b[:j].
func table(a, b []string) [][]int {
	m, n := len(a), len(b)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}
	return dp
}

// Locate resolves the character offset of each token of tokens inside s.
// Each distinct token keeps its own cursor, so repeated tokens resolve to
// successive non-overlapping occurrences. Only whole whitespace-delimited
// occurrences count. Unlocatable tokens get -1.
func Locate(s string, tokens []string) []int {
	cursors := make(map[string]int, len(tokens))
	offsets := make([]int, len(tokens))

	for i, tok := range tokens {
		from := cursors[tok]
		idx := indexToken(s, tok, from)
		if idx < 0 {
			offsets[i] = -1
			continue
		}
		cursors[tok] = idx + len(tok)
		offsets[i] = utf8.RuneCountInString(s[:idx])
	}
	return offsets
}

// indexToken finds the byte index of the first whole occurrence of tok in s
// at or after from.
func indexToken(s, tok string, from int) int {
	if tok == "" {
		return -1
	}
	for from <= len(s)-len(tok) {
		rel := strings.Index(s[from:], tok)
		if rel < 0 {
			return -1
		}
		idx := from + rel
		end := idx + len(tok)
		if boundaryBefore(s, idx) && boundaryAfter(s, end) {
			return idx
		}
		from = idx + 1
	}
	return -1
}

func boundaryBefore(s string, idx int) bool {
	if idx == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:idx])
	return unicode.IsSpace(r)
}

func boundaryAfter(s string, end int) bool {
	if end >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[end:])
	return unicode.IsSpace(r)
}
