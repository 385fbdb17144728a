// Package host defines the editor capability surface the sorting pipeline
// runs against, plus an in-memory implementation of it.
//
// All offsets are character (rune) offsets into the full document text.
package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/zjrosen/classwind/internal/pubsub"
)

// ErrInvalidRange is returned when an edit falls outside the document or
// overlaps another edit of the same batch.
var ErrInvalidRange = errors.New("invalid range")

// Position is a zero-based line/column pair. Column counts characters.
type Position struct {
	Line   int
	Column int
}

// Range is a half-open character range [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of characters covered by the range.
func (r Range) Len() int { return r.End - r.Start }

// Contains reports whether offset lies inside the range.
func (r Range) Contains(offset int) bool { return offset >= r.Start && offset < r.End }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// Edit replaces the text covered by Range with NewText.
type Edit struct {
	Range   Range
	NewText string
}

// Document is a text buffer owned by the host editor.
type Document interface {
	URI() string
	Path() string
	LanguageID() string
	Text() string
	PositionAt(offset int) Position
	OffsetAt(pos Position) int
	// ApplyEdits applies a batch of non-overlapping edits expressed against
	// the current text. It publishes one document-changed notification.
	ApplyEdits(edits []Edit) error
}

// Decoration is a live styled range. Dispose removes it; calling Dispose more
// than once is a no-op.
type Decoration interface {
	Dispose()
}

// Decorator creates styled range annotations.
type Decorator interface {
	Decorate(doc Document, r Range, color string) (Decoration, error)
}

// Notifier shows transient notices to the user.
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

// DocumentEvent carries the full text of a document after a change, or at
// the moment it is about to be saved.
type DocumentEvent struct {
	URI     string
	Text    string
	Version int
}

// ConfigEvent names the configuration sections that changed.
type ConfigEvent struct {
	Sections []string
}

// Affects reports whether the event touches the named section.
func (e ConfigEvent) Affects(section string) bool {
	for _, s := range e.Sections {
		if s == section {
			return true
		}
	}
	return false
}

// Events exposes the host notifications the pipeline subscribes to.
type Events interface {
	DocumentChanges() pubsub.Subscriber[DocumentEvent]
	WillSave() pubsub.Subscriber[DocumentEvent]
	ConfigChanges() pubsub.Subscriber[ConfigEvent]
}

// Workspace resolves the root folder of the open workspace.
type Workspace interface {
	Root() (string, bool)
}

// DocumentResolver looks up an open document by URI.
type DocumentResolver interface {
	Document(ctx context.Context, uri string) (Document, bool)
}
