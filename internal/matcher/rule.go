// Package matcher resolves per-language extraction rules and extracts
// candidate class lists from document text.
package matcher

import (
	"errors"
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

// DefaultLanguage is the catalog entry used when a language has no rules.
const DefaultLanguage = "html"

// MatchTimeout bounds a single regex evaluation so a pathological user
// pattern cannot hang the host.
const MatchTimeout = 2 * time.Second

// ErrInvalidRule is returned for rule definitions that cannot be compiled.
var ErrInvalidRule = errors.New("invalid extraction rule")

// Rule is an immutable extraction rule.
type Rule struct {
	// Pattern finds candidate class lists.
	Pattern *regexp2.Regexp
	// Chain holds further patterns applied, in order, to each value found by
	// the previous pattern. Only the innermost values are reported.
	Chain []*regexp2.Regexp
	// Separator splits a class list into tokens. Nil means whitespace.
	Separator *regexp2.Regexp
	// Replacement joins sorted tokens. Empty means a single space.
	Replacement string
}

// String returns the source of the rule's patterns, for logging.
func (r Rule) String() string {
	if r.Pattern == nil {
		return "<empty>"
	}
	s := r.Pattern.String()
	for _, c := range r.Chain {
		s += " => " + c.String()
	}
	return s
}

// Compile compiles a pattern the way rules are compiled: ECMAScript syntax,
// multiline, bounded match time.
func Compile(expr string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(expr, regexp2.ECMAScript|regexp2.Multiline)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRule, expr, err)
	}
	re.MatchTimeout = MatchTimeout
	return re, nil
}

// MustCompile is like Compile but panics on error. Used for built-in patterns.
func MustCompile(expr string) *regexp2.Regexp {
	re, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return re
}

// NewRule builds a rule from pattern sources. patterns[0] is the main
// pattern, the rest form the chain.
func NewRule(patterns []string, separator, replacement string) (Rule, error) {
	if len(patterns) == 0 {
		return Rule{}, fmt.Errorf("%w: no pattern", ErrInvalidRule)
	}

	var rule Rule
	for i, p := range patterns {
		re, err := Compile(p)
		if err != nil {
			return Rule{}, err
		}
		if i == 0 {
			rule.Pattern = re
		} else {
			rule.Chain = append(rule.Chain, re)
		}
	}

	if separator != "" {
		sep, err := Compile(separator)
		if err != nil {
			return Rule{}, err
		}
		rule.Separator = sep
	}
	rule.Replacement = replacement
	return rule, nil
}
