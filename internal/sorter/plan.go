package sorter

import (
	"unicode/utf8"

	"github.com/zjrosen/classwind/internal/annotate"
	"github.com/zjrosen/classwind/internal/canon"
	"github.com/zjrosen/classwind/internal/host"
	"github.com/zjrosen/classwind/internal/log"
	"github.com/zjrosen/classwind/internal/matcher"
	"github.com/zjrosen/classwind/internal/movediff"
)

// SelectionPattern matches a plausible class list: one or more class-like
// tokens separated by whitespace. Quotes, braces, angle brackets and '='
// end a list, so selecting a whole attribute still finds only its value.
const SelectionPattern = `[\w\-:./\[\]!#%()&,@*+]+(?:\s+[\w\-:./\[\]!#%()&,@*+]+)*`

var selectionRule = matcher.Rule{Pattern: matcher.MustCompile(SelectionPattern)}

// SelectionRule returns the rule used by SortSelection.
func SelectionRule() matcher.Rule { return selectionRule }

// rulePlan is the batch of edits one rule produces against a text.
type rulePlan struct {
	edits []host.Edit
	// placements are expressed in the text that results from edits.
	placements []annotate.Placement
	matches    int
	// delta is the length change of the text once edits are applied.
	delta int
}

// planRule extracts rule's matches from text (or from the window of it) and
// canonicalizes each value. Values that are already canonical produce no edit.
func planRule(text string, rule matcher.Rule, window *host.Range, c canon.Canonicalizer, opts canon.Options, policy movediff.Policy) rulePlan {
	base := 0
	if window != nil {
		runes := []rune(text)
		text = string(runes[window.Start:window.End])
		base = window.Start
	}

	var plan rulePlan
	for m := range matcher.Extract(rule, text) {
		plan.matches++

		sorted := c.Canonicalize(m.Value, opts)
		if sorted == m.Value {
			continue
		}

		start := base + m.ValueStart
		oldLen := utf8.RuneCountInString(m.Value)
		plan.edits = append(plan.edits, host.Edit{
			Range:   host.Range{Start: start, End: start + oldLen},
			NewText: sorted,
		})

		moves := movediff.DiffWithPolicy(m.Value, sorted, policy)
		for _, mv := range moves {
			if mv.CharStart < 0 {
				log.Warn(log.CatDiff, "Moved token not found in sorted list", "token", mv.Token)
				continue
			}
			plan.placements = append(plan.placements, annotate.Placement{
				Token:  mv.Token,
				Offset: start + plan.delta + mv.CharStart,
			})
		}
		log.Debug(log.CatDiff, "Class list sorted", "offset", start, "moved", len(moves), "policy", policy.String())

		plan.delta += utf8.RuneCountInString(sorted) - oldLen
	}
	return plan
}

// shiftPlacements maps placements through edits, which are sorted by start
// and expressed in the same text as the placements. Placements that overlap
// an edited range are dropped: the newer edit reports its own moves.
func shiftPlacements(placements []annotate.Placement, edits []host.Edit) []annotate.Placement {
	if len(placements) == 0 {
		return placements
	}

	out := placements[:0:0]
	for _, p := range placements {
		r := p.Range()
		shift := 0
		dropped := false
		for _, e := range edits {
			if e.Range.Start < r.End && r.Start < e.Range.End {
				dropped = true
				break
			}
			if e.Range.End <= r.Start {
				shift += utf8.RuneCountInString(e.NewText) - e.Range.Len()
			}
		}
		if dropped {
			continue
		}
		p.Offset += shift
		out = append(out, p)
	}
	return out
}
