package testutil

import (
	"sync"

	"github.com/zjrosen/classwind/internal/host"
)

// DecorationRecord is one decoration created through a RecordingDecorator.
type DecorationRecord struct {
	URI      string
	Range    host.Range
	Color    string
	Text     string
	Disposed bool
}

// RecordingDecorator is a host.Decorator that remembers every decoration it
// created and whether it was disposed.
type RecordingDecorator struct {
	mu      sync.Mutex
	records []*DecorationRecord
	// Err, when set, is returned by Decorate.
	Err error
}

var _ host.Decorator = (*RecordingDecorator)(nil)

func (d *RecordingDecorator) Decorate(doc host.Document, r host.Range, color string) (host.Decoration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Err != nil {
		return nil, d.Err
	}
	rec := &DecorationRecord{
		URI:   doc.URI(),
		Range: r,
		Color: color,
		Text:  host.Slice(doc.Text(), r),
	}
	d.records = append(d.records, rec)
	return &recordedDecoration{owner: d, rec: rec}, nil
}

// Records returns copies of every decoration created so far.
func (d *RecordingDecorator) Records() []DecorationRecord {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]DecorationRecord, len(d.records))
	for i, r := range d.records {
		out[i] = *r
	}
	return out
}

// Live returns the decorations that have not been disposed.
func (d *RecordingDecorator) Live() []DecorationRecord {
	var live []DecorationRecord
	for _, r := range d.Records() {
		if !r.Disposed {
			live = append(live, r)
		}
	}
	return live
}

// LiveTexts returns the decorated text of each live decoration.
func (d *RecordingDecorator) LiveTexts() []string {
	var texts []string
	for _, r := range d.Live() {
		texts = append(texts, r.Text)
	}
	return texts
}

type recordedDecoration struct {
	owner *RecordingDecorator
	rec   *DecorationRecord
}

func (r *recordedDecoration) Dispose() {
	r.owner.mu.Lock()
	defer r.owner.mu.Unlock()
	r.rec.Disposed = true
}

// RecordingNotifier is a host.Notifier that keeps every notice.
type RecordingNotifier struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

var _ host.Notifier = (*RecordingNotifier)(nil)

func (n *RecordingNotifier) Info(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, msg)
}

func (n *RecordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *RecordingNotifier) Infos() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.infos...)
}

func (n *RecordingNotifier) Errors() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.errors...)
}

// StaticWorkspace is a host.Workspace with a fixed root. An empty root means
// no workspace is open.
type StaticWorkspace string

func (w StaticWorkspace) Root() (string, bool) {
	return string(w), w != ""
}
