// Package canon rewrites a class list into canonical order.
package canon

import (
	"slices"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/zjrosen/classwind/internal/log"
	"github.com/zjrosen/classwind/internal/ranking"
)

// Canonicalizer turns a class list into its canonical form. Implementations
// must be pure: the same tokens and options always give the same result.
type Canonicalizer interface {
	Canonicalize(tokens string, opts Options) string
}

// Options controls a single canonicalization.
type Options struct {
	// Separator splits the list. Nil splits on runs of whitespace.
	Separator *regexp2.Regexp
	// Replacement joins the sorted classes. Empty means a single space.
	Replacement string
	Ranking     *ranking.Context

	RemoveDuplicates bool
	// PrependCustom places classes unknown to the ranking before the known
	// ones instead of after them.
	PrependCustom bool
}

// Sorter is the default Canonicalizer. Known classes are stably sorted by
// rank; unknown classes keep their relative order.
type Sorter struct{}

var _ Canonicalizer = Sorter{}

func (Sorter) Canonicalize(tokens string, opts Options) string {
	if IsTemplated(tokens) {
		return tokens
	}

	classes := Split(tokens, opts.Separator)
	if len(classes) == 0 {
		return tokens
	}

	if opts.RemoveDuplicates {
		classes = dedupe(classes)
	}

	type ranked struct {
		class string
		key   ranking.Key
	}
	var known []ranked
	var custom []string
	for _, c := range classes {
		if key, ok := opts.Ranking.Rank(c); ok {
			known = append(known, ranked{class: c, key: key})
		} else {
			custom = append(custom, c)
		}
	}

	slices.SortStableFunc(known, func(a, b ranked) int {
		return a.key.Compare(b.key)
	})

	out := make([]string, 0, len(classes))
	if opts.PrependCustom {
		out = append(out, custom...)
	}
	for _, k := range known {
		out = append(out, k.class)
	}
	if !opts.PrependCustom {
		out = append(out, custom...)
	}

	sep := opts.Replacement
	if sep == "" {
		sep = " "
	}
	return strings.Join(out, sep)
}

// IsTemplated reports whether the list contains template interpolation,
// which is left untouched.
func IsTemplated(s string) bool {
	return strings.Contains(s, "{{") || strings.Contains(s, "${")
}

// Split breaks a class list into non-empty classes. A nil separator splits on
// whitespace.
func Split(s string, sep *regexp2.Regexp) []string {
	if sep == nil {
		return strings.Fields(s)
	}

	runes := []rune(s)
	var parts []string
	last := 0

	m, err := sep.FindStringMatch(s)
	for m != nil && err == nil {
		if m.Length == 0 {
			// zero-width separators would split every rune
			m, err = sep.FindNextMatch(m)
			continue
		}
		parts = appendNonEmpty(parts, string(runes[last:m.Index]))
		last = m.Index + m.Length
		m, err = sep.FindNextMatch(m)
	}
	if err != nil {
		log.ErrorErr(log.CatSort, "separator match failed", err, "separator", sep.String())
		return strings.Fields(s)
	}

	return appendNonEmpty(parts, string(runes[last:]))
}

func appendNonEmpty(parts []string, p string) []string {
	if p = strings.TrimSpace(p); p != "" {
		parts = append(parts, p)
	}
	return parts
}

func dedupe(classes []string) []string {
	seen := make(map[string]struct{}, len(classes))
	out := classes[:0:0]
	for _, c := range classes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
