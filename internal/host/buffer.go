package host

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/zjrosen/classwind/internal/pubsub"
)

var _ Document = (*Buffer)(nil)

// Buffer is an in-memory Document. Every mutation publishes a ChangedEvent
// carrying the full resulting text.
type Buffer struct {
	mu      sync.RWMutex
	uri     string
	path    string
	lang    string
	text    string
	version int
	changes pubsub.Publisher[DocumentEvent]
}

// NewBuffer creates a buffer. changes may be nil when nobody listens.
func NewBuffer(uri, path, languageID, text string, changes pubsub.Publisher[DocumentEvent]) *Buffer {
	if languageID == "" {
		languageID = LanguageForPath(path)
	}
	return &Buffer{
		uri:     uri,
		path:    path,
		lang:    languageID,
		text:    text,
		changes: changes,
	}
}

func (b *Buffer) URI() string        { return b.uri }
func (b *Buffer) Path() string       { return b.path }
func (b *Buffer) LanguageID() string { return b.lang }

// Text returns the current full text.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// Version increments once per mutation.
func (b *Buffer) Version() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// SetText replaces the whole text, as an undo or an external sync would.
func (b *Buffer) SetText(text string) {
	b.mu.Lock()
	b.text = text
	b.version++
	event := DocumentEvent{URI: b.uri, Text: b.text, Version: b.version}
	b.mu.Unlock()

	b.publish(event)
}

// ApplyEdits applies non-overlapping edits expressed against the current text.
func (b *Buffer) ApplyEdits(edits []Edit) error {
	if len(edits) == 0 {
		return nil
	}

	b.mu.Lock()
	runes := []rune(b.text)

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Range.Start < sorted[j].Range.Start
	})

	prevEnd := 0
	for _, e := range sorted {
		if e.Range.Start < prevEnd || e.Range.Start > e.Range.End || e.Range.End > len(runes) {
			b.mu.Unlock()
			return fmt.Errorf("edit %s on %s: %w", e.Range, b.uri, ErrInvalidRange)
		}
		prevEnd = e.Range.End
	}

	var sb strings.Builder
	cursor := 0
	for _, e := range sorted {
		sb.WriteString(string(runes[cursor:e.Range.Start]))
		sb.WriteString(e.NewText)
		cursor = e.Range.End
	}
	sb.WriteString(string(runes[cursor:]))

	b.text = sb.String()
	b.version++
	event := DocumentEvent{URI: b.uri, Text: b.text, Version: b.version}
	b.mu.Unlock()

	b.publish(event)
	return nil
}

// PositionAt translates a character offset into a line/column position.
// Offsets outside the text are clamped.
func (b *Buffer) PositionAt(offset int) Position {
	return PositionAt(b.Text(), offset)
}

// OffsetAt translates a line/column position into a character offset.
func (b *Buffer) OffsetAt(pos Position) int {
	return OffsetAt(b.Text(), pos)
}

func (b *Buffer) publish(event DocumentEvent) {
	if b.changes == nil {
		return
	}
	b.changes.Publish(pubsub.ChangedEvent, event)
}

// PositionAt translates a character offset in text into a line/column position.
func PositionAt(text string, offset int) Position {
	if offset < 0 {
		offset = 0
	}
	var pos Position
	i := 0
	for _, r := range text {
		if i >= offset {
			break
		}
		if r == '\n' {
			pos.Line++
			pos.Column = 0
		} else {
			pos.Column++
		}
		i++
	}
	return pos
}

// OffsetAt translates a line/column position into a character offset in
// text. A column past the end of its line clamps to the line end.
func OffsetAt(text string, pos Position) int {
	if pos.Line < 0 {
		return 0
	}
	line, col, i := 0, 0, 0
	for _, r := range text {
		if line == pos.Line && (col == pos.Column || r == '\n') {
			return i
		}
		if r == '\n' {
			line++
			col = 0
		} else {
			col++
		}
		i++
	}
	return i
}

// RuneLen returns the number of characters in s.
func RuneLen(s string) int {
	return len([]rune(s))
}

// Slice returns the characters of text covered by r, clamped to the text.
func Slice(text string, r Range) string {
	runes := []rune(text)
	start := min(max(r.Start, 0), len(runes))
	end := min(max(r.End, start), len(runes))
	return string(runes[start:end])
}
