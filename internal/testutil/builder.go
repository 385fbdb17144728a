// Package testutil provides fakes of the host capability surface and
// builders for test documents.
package testutil

import (
	"testing"

	"github.com/zjrosen/classwind/internal/host"
	"github.com/zjrosen/classwind/internal/pubsub"
)

// Builder assembles an in-memory document wired to its own change broker.
type Builder struct {
	t    *testing.T
	doc  docData
	hub  *host.Hub
	opts []DocOption
}

// NewDocument starts a document builder with the given text.
func NewDocument(t *testing.T, text string) *Builder {
	t.Helper()
	return &Builder{t: t, doc: defaultDoc(text)}
}

// With applies options to the document.
func (b *Builder) With(opts ...DocOption) *Builder {
	for _, opt := range opts {
		opt(&b.doc)
	}
	return b
}

// InHub opens the document in hub instead of a private broker.
func (b *Builder) InHub(hub *host.Hub) *Builder {
	b.hub = hub
	return b
}

// Build creates the buffer. Without a hub, the returned broker carries the
// document-changed events and is closed when the test ends.
func (b *Builder) Build() (*host.Buffer, *pubsub.Broker[host.DocumentEvent]) {
	b.t.Helper()

	if b.hub != nil {
		return b.hub.Open(b.doc.uri, b.doc.path, b.doc.language, b.doc.text), nil
	}

	changes := pubsub.NewBroker[host.DocumentEvent]()
	b.t.Cleanup(changes.Close)
	return host.NewBuffer(b.doc.uri, b.doc.path, b.doc.language, b.doc.text, changes), changes
}
