package matcher

import (
	"iter"

	"github.com/dlclark/regexp2"

	"github.com/zjrosen/classwind/internal/log"
)

// Match is one candidate class list found in a document.
type Match struct {
	// Text is the whole substring matched by the pattern.
	Text string
	// Start is the character offset of Text in the document.
	Start int
	// Value is the class list: the first non-empty capture group, or Text
	// when the pattern captured nothing.
	Value string
	// ValueStart is the character offset of Value in the document.
	ValueStart int
}

// Extract returns every non-overlapping match of rule against text, left to
// right. The sequence is lazy and can be ranged over any number of times;
// each pass re-runs the patterns.
func Extract(rule Rule, text string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		if rule.Pattern == nil {
			return
		}
		patterns := make([]*regexp2.Regexp, 0, 1+len(rule.Chain))
		patterns = append(patterns, rule.Pattern)
		patterns = append(patterns, rule.Chain...)
		extract(patterns, text, 0, yield)
	}
}

// extract walks patterns[0] over text; base is the document offset of text.
// It returns false once the consumer stops iterating.
func extract(patterns []*regexp2.Regexp, text string, base int, yield func(Match) bool) bool {
	re := patterns[0]
	m, err := re.FindStringMatch(text)
	for m != nil {
		match := toMatch(m, base)
		if len(patterns) == 1 {
			if !yield(match) {
				return false
			}
		} else if !extract(patterns[1:], match.Value, match.ValueStart, yield) {
			return false
		}
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		// Match timeouts end this pattern's matches; earlier ones stand.
		log.ErrorErr(log.CatMatcher, "Pattern evaluation aborted", err, "pattern", re.String())
	}
	return true
}

func toMatch(m *regexp2.Match, base int) Match {
	match := Match{
		Text:       m.String(),
		Start:      base + m.Index,
		Value:      m.String(),
		ValueStart: base + m.Index,
	}
	groups := m.Groups()
	for i := 1; i < len(groups); i++ {
		g := groups[i]
		if len(g.Captures) == 0 || g.Length == 0 {
			continue
		}
		match.Value = g.String()
		match.ValueStart = base + g.Index
		break
	}
	return match
}
