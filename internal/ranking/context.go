// Package ranking resolves the ordering context that the canonicalizer
// sorts class lists by.
package ranking

import (
	"cmp"
	"slices"
	"strings"
)

// Context is an ordering over class names. Entries of Order are either exact
// class names or wildcards ending in "*" that match every class starting
// with the text before the star.
type Context struct {
	// Source is the file the context was loaded from, empty for contexts
	// built in code.
	Source   string
	Order    []string
	Variants []string
	// Prefix is a custom class prefix (for example "tw-") stripped before
	// lookup.
	Prefix string

	exact     map[string]int
	wildcards []wildcard
	variants  map[string]int
}

type wildcard struct {
	prefix string
	index  int
}

// NewContext builds a context with its lookup tables. The first occurrence
// of a duplicated entry wins.
func NewContext(order, variants []string, prefix string) *Context {
	c := &Context{
		Order:    order,
		Variants: variants,
		Prefix:   prefix,
		exact:    make(map[string]int, len(order)),
		variants: make(map[string]int, len(variants)),
	}

	for i, entry := range order {
		if p, ok := strings.CutSuffix(entry, "*"); ok {
			c.wildcards = append(c.wildcards, wildcard{prefix: p, index: i})
			continue
		}
		if _, seen := c.exact[entry]; !seen {
			c.exact[entry] = i
		}
	}
	// Longest wildcard first so the most specific one matches.
	slices.SortStableFunc(c.wildcards, func(a, b wildcard) int {
		return cmp.Compare(len(b.prefix), len(a.prefix))
	})

	for i, v := range variants {
		if _, seen := c.variants[v]; !seen {
			c.variants[v] = i
		}
	}

	return c
}

// Key is the sort key of a known class.
type Key struct {
	// Variants holds one index per variant of the class, in source order.
	// Variants missing from the context rank after every listed one.
	Variants []int
	Base     int
}

// Compare orders keys: classes without variants first, then by variant
// indices, then by the base entry.
func (k Key) Compare(o Key) int {
	if c := slices.Compare(k.Variants, o.Variants); c != 0 {
		return c
	}
	return cmp.Compare(k.Base, o.Base)
}

// Rank returns the sort key of class. ok is false for classes the context
// does not know; callers treat those as custom classes.
func (c *Context) Rank(class string) (Key, bool) {
	if c == nil {
		return Key{}, false
	}

	variants, base := SplitVariants(class)
	base = c.normalize(base)

	idx, ok := c.lookup(base)
	if !ok {
		return Key{}, false
	}

	key := Key{Base: idx}
	if len(variants) > 0 {
		key.Variants = make([]int, len(variants))
		for i, v := range variants {
			vi, ok := c.variants[v]
			if !ok {
				vi = len(c.Variants)
			}
			key.Variants[i] = vi
		}
	}
	return key, true
}

// Len is the number of order entries.
func (c *Context) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Order)
}

func (c *Context) normalize(base string) string {
	base = strings.TrimPrefix(base, "!")
	base = strings.TrimSuffix(base, "!")
	negative := strings.HasPrefix(base, "-")
	base = strings.TrimPrefix(base, "-")
	if c.Prefix != "" {
		base = strings.TrimPrefix(base, c.Prefix)
		// tw--mt-2 and -tw-mt-2 are both negative forms
		if strings.HasPrefix(base, "-") {
			negative = true
			base = base[1:]
		}
	}
	if negative {
		if _, ok := c.exact["-"+base]; ok {
			return "-" + base
		}
	}
	return base
}

func (c *Context) lookup(base string) (int, bool) {
	if idx, ok := c.exact[base]; ok {
		return idx, true
	}
	for _, w := range c.wildcards {
		if strings.HasPrefix(base, w.prefix) && len(base) > len(w.prefix) {
			return w.index, true
		}
	}
	return 0, false
}

// SplitVariants splits "md:hover:p-2" into its variants and base class.
// Colons inside square brackets belong to arbitrary values and do not split.
func SplitVariants(class string) ([]string, string) {
	var variants []string
	depth := 0
	start := 0
	for i, r := range class {
		switch r {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ':':
			if depth == 0 {
				variants = append(variants, class[start:i])
				start = i + 1
			}
		}
	}
	return variants, class[start:]
}
