package matcher

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/zjrosen/classwind/internal/log"
)

// Catalog maps a language identifier to its extraction rules, tried in order.
type Catalog map[string][]Rule

// Resolve returns the rules for lang, falling back to DefaultLanguage.
// An empty result is valid and yields no matches.
func (c Catalog) Resolve(lang string) []Rule {
	if rules, ok := c[lang]; ok {
		return rules
	}
	log.Debug(log.CatMatcher, "No rules for language, using default", "language", lang, "default", DefaultLanguage)
	return c[DefaultLanguage]
}

// Languages returns the catalog's language identifiers, sorted.
func (c Catalog) Languages() []string {
	return slices.Sorted(maps.Keys(c))
}

// Merge returns a catalog with override's entries replacing c's.
func (c Catalog) Merge(override Catalog) Catalog {
	out := make(Catalog, len(c)+len(override))
	maps.Copy(out, c)
	maps.Copy(out, override)
	return out
}

// ParseCatalog builds a catalog from user configuration. Each entry may be:
//
//	"pattern"                                  one rule
//	["outer", "inner"]                         one rule with a pattern chain
//	{regex: ..., separator: ..., replacement: ...}
//	[{regex: ...}, "pattern", ...]             several rules
//
// where regex is itself a pattern or a pattern chain.
func ParseCatalog(raw map[string]any) (Catalog, error) {
	catalog := make(Catalog, len(raw))

	langs := make([]string, 0, len(raw))
	for lang := range raw {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	for _, lang := range langs {
		rules, err := parseEntry(raw[lang])
		if err != nil {
			return nil, fmt.Errorf("class_regex.%s: %w", lang, err)
		}
		catalog[lang] = rules
	}
	return catalog, nil
}

func parseEntry(v any) ([]Rule, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		rule, err := NewRule([]string{val}, "", "")
		if err != nil {
			return nil, err
		}
		return []Rule{rule}, nil
	case []string:
		rule, err := NewRule(val, "", "")
		if err != nil {
			return nil, err
		}
		return []Rule{rule}, nil
	case map[string]any:
		rule, err := parseObject(val)
		if err != nil {
			return nil, err
		}
		return []Rule{rule}, nil
	case map[any]any:
		return parseEntry(stringKeys(val))
	case []any:
		if chain, ok := allStrings(val); ok {
			rule, err := NewRule(chain, "", "")
			if err != nil {
				return nil, err
			}
			return []Rule{rule}, nil
		}
		var rules []Rule
		for i, item := range val {
			sub, err := parseEntry(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			rules = append(rules, sub...)
		}
		return rules, nil
	default:
		return nil, fmt.Errorf("%w: unsupported value of type %T", ErrInvalidRule, v)
	}
}

func parseObject(obj map[string]any) (Rule, error) {
	var patterns []string
	switch re := obj["regex"].(type) {
	case string:
		patterns = []string{re}
	case []string:
		patterns = re
	case []any:
		chain, ok := allStrings(re)
		if !ok {
			return Rule{}, fmt.Errorf("%w: regex list must contain strings", ErrInvalidRule)
		}
		patterns = chain
	default:
		return Rule{}, fmt.Errorf("%w: regex is required", ErrInvalidRule)
	}

	separator, _ := obj["separator"].(string)
	replacement, _ := obj["replacement"].(string)
	return NewRule(patterns, separator, replacement)
}

func allStrings(items []any) ([]string, bool) {
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, len(out) > 0
}

// stringKeys converts the map[any]any some YAML decoders produce.
func stringKeys(m map[any]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if s, ok := k.(string); ok {
			out[s] = v
		}
	}
	return out
}
