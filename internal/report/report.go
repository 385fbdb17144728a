// Package report renders the changes a sort made to a file as a word-level
// diff, for `classwind sort --diff` and `--check`.
package report

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Change is a run of consecutive lines that differ between two texts.
type Change struct {
	// Line is the 1-based number of the first old line (or of the line the
	// new lines were inserted before).
	Line int
	Old  []string
	New  []string
}

// Segment is a piece of a line with its diff status.
type Segment struct {
	Op   diffmatchpatch.Operation
	Text string
}

// Lines compares before and after line by line.
func Lines(before, after string) []Change {
	if before == after {
		return nil
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var changes []Change
	var cur *Change
	line := 1
	flush := func() {
		if cur != nil {
			changes = append(changes, *cur)
			cur = nil
		}
	}

	for _, d := range diffs {
		chunk := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			line += len(chunk)
		case diffmatchpatch.DiffDelete:
			if cur == nil {
				cur = &Change{Line: line}
			}
			cur.Old = append(cur.Old, chunk...)
			line += len(chunk)
		case diffmatchpatch.DiffInsert:
			if cur == nil {
				cur = &Change{Line: line}
			}
			cur.New = append(cur.New, chunk...)
		}
	}
	flush()
	return changes
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

// Words diffs two lines word by word. Whitespace runs are words of their own.
func Words(oldLine, newLine string) (oldSegs, newSegs []Segment) {
	dmp := diffmatchpatch.New()

	// Put each word on its own line so the line-mode diff works per word.
	a, b, table := dmp.DiffLinesToRunes(wordLines(oldLine), wordLines(newLine))
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(a, b, false), table)

	for _, d := range diffs {
		text := strings.ReplaceAll(d.Text, "\n", "")
		if text == "" {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oldSegs = appendSegment(oldSegs, d.Type, text)
			newSegs = appendSegment(newSegs, d.Type, text)
		case diffmatchpatch.DiffDelete:
			oldSegs = appendSegment(oldSegs, d.Type, text)
		case diffmatchpatch.DiffInsert:
			newSegs = appendSegment(newSegs, d.Type, text)
		}
	}
	return oldSegs, newSegs
}

func appendSegment(segs []Segment, op diffmatchpatch.Operation, text string) []Segment {
	if n := len(segs); n > 0 && segs[n-1].Op == op {
		segs[n-1].Text += text
		return segs
	}
	return append(segs, Segment{Op: op, Text: text})
}

func wordLines(line string) string {
	var sb strings.Builder
	for _, tok := range tokenize(line) {
		sb.WriteString(tok)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// tokenize splits a line into words and whitespace runs.
func tokenize(line string) []string {
	var tokens []string
	var cur strings.Builder
	space := false

	for _, r := range line {
		isSpace := unicode.IsSpace(r)
		if cur.Len() > 0 && isSpace != space {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
		space = isSpace
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// Renderer writes changes for a terminal or a plain log.
type Renderer struct {
	// Color styles removed and added words instead of wrapping them in
	// [-...-] and {+...+}.
	Color bool

	removed lipgloss.Style
	added   lipgloss.Style
	header  lipgloss.Style
}

// NewRenderer creates a renderer.
func NewRenderer(color bool) *Renderer {
	return &Renderer{
		Color:   color,
		removed: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Strikethrough(true),
		added:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		header:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

// Write renders the changes between before and after under a header naming
// path. It writes nothing when the texts are equal and returns the number of
// changed runs.
func (r *Renderer) Write(w io.Writer, path, before, after string) (int, error) {
	changes := Lines(before, after)
	for _, c := range changes {
		if _, err := fmt.Fprintln(w, r.styleHeader(fmt.Sprintf("%s:%d", path, c.Line))); err != nil {
			return 0, err
		}

		pairs := min(len(c.Old), len(c.New))
		var oldOut, newOut []string
		for i := range pairs {
			oldSegs, newSegs := Words(c.Old[i], c.New[i])
			oldOut = append(oldOut, r.render(oldSegs))
			newOut = append(newOut, r.render(newSegs))
		}
		for _, l := range c.Old[pairs:] {
			oldOut = append(oldOut, r.render([]Segment{{Op: diffmatchpatch.DiffDelete, Text: l}}))
		}
		for _, l := range c.New[pairs:] {
			newOut = append(newOut, r.render([]Segment{{Op: diffmatchpatch.DiffInsert, Text: l}}))
		}

		for _, l := range oldOut {
			if _, err := fmt.Fprintf(w, "- %s\n", l); err != nil {
				return 0, err
			}
		}
		for _, l := range newOut {
			if _, err := fmt.Fprintf(w, "+ %s\n", l); err != nil {
				return 0, err
			}
		}
	}
	return len(changes), nil
}

func (r *Renderer) styleHeader(s string) string {
	if !r.Color {
		return s
	}
	return r.header.Render(s)
}

func (r *Renderer) render(segs []Segment) string {
	var sb strings.Builder
	for _, s := range segs {
		switch s.Op {
		case diffmatchpatch.DiffDelete:
			if r.Color {
				sb.WriteString(r.removed.Render(s.Text))
			} else {
				sb.WriteString("[-" + s.Text + "-]")
			}
		case diffmatchpatch.DiffInsert:
			if r.Color {
				sb.WriteString(r.added.Render(s.Text))
			} else {
				sb.WriteString("{+" + s.Text + "+}")
			}
		default:
			sb.WriteString(s.Text)
		}
	}
	return sb.String()
}
