package host

import (
	"context"
	"sync"

	"github.com/zjrosen/classwind/internal/pubsub"
)

var (
	_ Events           = (*Hub)(nil)
	_ Workspace        = (*Hub)(nil)
	_ DocumentResolver = (*Hub)(nil)
)

// Hub is an in-process host: it owns the open buffers, the workspace root and
// the three notification brokers.
type Hub struct {
	changes *pubsub.Broker[DocumentEvent]
	saves   *pubsub.Broker[DocumentEvent]
	config  *pubsub.Broker[ConfigEvent]

	mu   sync.RWMutex
	docs map[string]*Buffer
	root string
}

// NewHub creates a hub rooted at root. An empty root means no workspace is open.
func NewHub(root string) *Hub {
	return &Hub{
		changes: pubsub.NewBroker[DocumentEvent](),
		saves:   pubsub.NewBroker[DocumentEvent](),
		config:  pubsub.NewBroker[ConfigEvent](),
		docs:    make(map[string]*Buffer),
		root:    root,
	}
}

// Open registers a buffer, replacing any previous buffer with the same URI.
func (h *Hub) Open(uri, path, languageID, text string) *Buffer {
	buf := NewBuffer(uri, path, languageID, text, h.changes)
	h.mu.Lock()
	h.docs[uri] = buf
	h.mu.Unlock()
	return buf
}

// Close forgets a buffer.
func (h *Hub) Close(uri string) {
	h.mu.Lock()
	delete(h.docs, uri)
	h.mu.Unlock()
}

// Document returns the open buffer for uri.
func (h *Hub) Document(_ context.Context, uri string) (Document, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	buf, ok := h.docs[uri]
	if !ok {
		return nil, false
	}
	return buf, true
}

// Buffer returns the concrete buffer for uri.
func (h *Hub) Buffer(uri string) (*Buffer, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	buf, ok := h.docs[uri]
	return buf, ok
}

// Root returns the workspace root, if any.
func (h *Hub) Root() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.root, h.root != ""
}

// SetRoot changes the workspace root.
func (h *Hub) SetRoot(root string) {
	h.mu.Lock()
	h.root = root
	h.mu.Unlock()
}

// NotifyWillSave announces that the document is about to be saved.
func (h *Hub) NotifyWillSave(uri string) bool {
	buf, ok := h.Buffer(uri)
	if !ok {
		return false
	}
	h.saves.Publish(pubsub.SavingEvent, DocumentEvent{URI: uri, Text: buf.Text(), Version: buf.Version()})
	return true
}

// NotifyConfigChanged announces that configuration sections changed.
func (h *Hub) NotifyConfigChanged(sections ...string) {
	h.config.Publish(pubsub.ConfigEvent, ConfigEvent{Sections: sections})
}

func (h *Hub) DocumentChanges() pubsub.Subscriber[DocumentEvent] { return h.changes }
func (h *Hub) WillSave() pubsub.Subscriber[DocumentEvent]        { return h.saves }
func (h *Hub) ConfigChanges() pubsub.Subscriber[ConfigEvent]     { return h.config }

// Shutdown closes every broker, ending all subscriptions.
func (h *Hub) Shutdown() {
	h.changes.Close()
	h.saves.Close()
	h.config.Close()
}
