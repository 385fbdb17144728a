// Package flags holds the feature switches read from the `flags:` config
// section. The registry is read-only once built.
package flags

import (
	"maps"
	"slices"

	"github.com/zjrosen/classwind/internal/log"
)

const (
	// FlagOccurrenceDiff judges duplicate tokens one occurrence at a time
	// when deciding which tokens moved.
	FlagOccurrenceDiff = "occurrence-diff"

	// FlagPresenceDiff flags only tokens whose value is new to the list,
	// ignoring pure reorders. Takes precedence over FlagOccurrenceDiff.
	FlagPresenceDiff = "presence-diff"

	// FlagWatchRanking reloads ranking files when they change on disk
	// instead of keeping the first parsed version for the cache lifetime.
	FlagWatchRanking = "watch-ranking"
)

// Known describes every flag the program reads.
var Known = map[string]string{
	FlagOccurrenceDiff: "flag duplicate tokens per occurrence",
	FlagPresenceDiff:   "flag only tokens new to the list",
	FlagWatchRanking:   "reload ranking files on change",
}

// defaults apply to known flags missing from the configuration.
var defaults = map[string]bool{
	FlagWatchRanking: true,
}

type Registry struct {
	flags map[string]bool
}

// New creates a Registry from a config map. A nil map yields a registry with
// only the defaults. Unknown names are kept but logged.
func New(flags map[string]bool) *Registry {
	merged := maps.Clone(defaults)
	for name, v := range flags {
		if _, ok := Known[name]; !ok {
			log.Warn(log.CatConfig, "unknown feature flag", "flag", name)
		}
		merged[name] = v
	}

	r := &Registry{flags: merged}
	log.Debug(log.CatConfig, "feature flags initialized", "count", len(merged), "flags", r.All())
	return r
}

// Enabled returns true if the named flag is enabled. Unknown flags and a
// nil registry report false.
func (r *Registry) Enabled(name string) bool {
	if r == nil {
		return false
	}
	return r.flags[name]
}

// All returns a copy of all flags.
func (r *Registry) All() map[string]bool {
	if r == nil {
		return map[string]bool{}
	}
	return maps.Clone(r.flags)
}

// Names returns the flag names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.flags))
}
