package app

import (
	"cmp"
	"slices"
	"sync"

	"github.com/zjrosen/classwind/internal/host"
)

// Span is one live highlight.
type Span struct {
	URI   string
	Range host.Range
	Color string
}

// Highlights is the preview's host.Decorator: it keeps the live highlights
// so the view can paint them.
type Highlights struct {
	mu   sync.Mutex
	next int
	live map[int]Span
}

var _ host.Decorator = (*Highlights)(nil)

func NewHighlights() *Highlights {
	return &Highlights{live: make(map[int]Span)}
}

func (h *Highlights) Decorate(doc host.Document, r host.Range, color string) (host.Decoration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	h.live[h.next] = Span{URI: doc.URI(), Range: r, Color: color}
	return &decoration{owner: h, id: h.next}, nil
}

// For returns the live highlights of uri ordered by start offset.
func (h *Highlights) For(uri string) []Span {
	h.mu.Lock()
	defer h.mu.Unlock()

	var spans []Span
	for _, s := range h.live {
		if s.URI == uri {
			spans = append(spans, s)
		}
	}
	slices.SortFunc(spans, func(a, b Span) int {
		return cmp.Compare(a.Range.Start, b.Range.Start)
	})
	return spans
}

// Len returns the number of live highlights across all documents.
func (h *Highlights) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}

type decoration struct {
	owner *Highlights
	id    int
}

func (d *decoration) Dispose() {
	d.owner.mu.Lock()
	delete(d.owner.live, d.id)
	d.owner.mu.Unlock()
}
