// Package annotate owns the short-lived highlights placed over moved tokens.
//
// A Manager holds at most one active cycle. A cycle is the set of decorations
// created by one sort command together with the triggers that retire them:
// the document reverting to its pre-sort text, a timeout, a highlight
// configuration change, or a newer cycle replacing it. Whichever trigger
// fires first retires the cycle and disarms the others.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zjrosen/classwind/internal/host"
	"github.com/zjrosen/classwind/internal/log"
	"github.com/zjrosen/classwind/internal/pubsub"
)

// ErrClosed is returned by Activate after Close.
var ErrClosed = errors.New("annotation manager closed")

const (
	// DefaultColor is the highlight background when none is configured.
	DefaultColor = "#f59e0b"
	// DefaultTimeout is how long a cycle stays visible without a revert.
	DefaultTimeout = 7 * time.Second
)

// HighlightConfig is the appearance and lifetime of highlights. A cycle keeps
// the values it was activated with.
type HighlightConfig struct {
	Color   string
	Timeout time.Duration
}

// DefaultHighlight returns the built-in highlight configuration.
func DefaultHighlight() HighlightConfig {
	return HighlightConfig{Color: DefaultColor, Timeout: DefaultTimeout}
}

func (c HighlightConfig) normalized() HighlightConfig {
	if c.Color == "" {
		c.Color = DefaultColor
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Placement is a moved token at an absolute character offset of the
// document.
type Placement struct {
	Token  string
	Offset int
}

// Range returns the character range the placement covers.
func (p Placement) Range() host.Range {
	return host.Range{Start: p.Offset, End: p.Offset + host.RuneLen(p.Token)}
}

// Reason says why a cycle was retired.
type Reason string

const (
	ReasonRevert     Reason = "revert"
	ReasonTimeout    Reason = "timeout"
	ReasonConfig     Reason = "config"
	ReasonSuperseded Reason = "superseded"
	ReasonClosed     Reason = "closed"
)

// Lifecycle is published when a cycle is activated or retired.
type Lifecycle struct {
	CycleID     string
	URI         string
	Decorations int
	// Reason is empty for activation events.
	Reason Reason
}

type cycle struct {
	id          string
	uri         string
	snapshot    string
	cfg         HighlightConfig
	decorations []host.Decoration
	cancel      context.CancelFunc
}

// Manager is the annotation lifecycle manager.
type Manager struct {
	decorator host.Decorator
	changes   pubsub.Subscriber[host.DocumentEvent]
	events    *pubsub.Broker[Lifecycle]

	mu     sync.Mutex
	cfg    HighlightConfig
	cycle  *cycle
	closed bool
}

// NewManager creates an idle manager. changes delivers document-changed
// events; it is used to detect reverts.
func NewManager(decorator host.Decorator, changes pubsub.Subscriber[host.DocumentEvent], cfg HighlightConfig) *Manager {
	return &Manager{
		decorator: decorator,
		changes:   changes,
		events:    pubsub.NewBroker[Lifecycle](),
		cfg:       cfg.normalized(),
	}
}

// Events returns the lifecycle event stream.
func (m *Manager) Events() pubsub.Subscriber[Lifecycle] {
	return m.events
}

// Config returns the configuration new cycles will use.
func (m *Manager) Config() HighlightConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Active returns the current cycle id and its number of live decorations.
// ok is false when the manager is idle.
func (m *Manager) Active() (id string, decorations int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cycle == nil {
		return "", 0, false
	}
	return m.cycle.id, len(m.cycle.decorations), true
}

// Activate highlights placements in doc and arms the retirement triggers.
// snapshot is the full document text before the sort; the cycle retires when
// the document returns to it. An empty placement list leaves the manager
// untouched and returns an empty id. Any previous cycle is retired first.
func (m *Manager) Activate(doc host.Document, snapshot string, placements []Placement) (string, error) {
	valid := placements[:0:0]
	for _, p := range placements {
		if p.Offset < 0 || p.Token == "" {
			continue
		}
		valid = append(valid, p)
	}
	if len(valid) == 0 {
		return "", nil
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrClosed
	}
	var stale *retirement
	if m.cycle != nil {
		stale = m.retireLocked(ReasonSuperseded)
	}
	c, err := m.startLocked(doc, snapshot, valid)
	m.mu.Unlock()

	m.finish(stale)
	if err != nil {
		dispose(c.decorations)
		return "", err
	}
	log.Debug(log.CatHighlight, "cycle activated",
		"cycle", c.id, "uri", c.uri, "decorations", len(c.decorations), "timeout", c.cfg.Timeout)
	m.events.Publish(pubsub.ActivatedEvent, Lifecycle{CycleID: c.id, URI: c.uri, Decorations: len(c.decorations)})
	return c.id, nil
}

// startLocked decorates placements and installs the new cycle. On error the
// cycle is not installed and holds the decorations to dispose.
func (m *Manager) startLocked(doc host.Document, snapshot string, placements []Placement) (*cycle, error) {
	c := &cycle{
		id:       uuid.NewString(),
		uri:      doc.URI(),
		snapshot: snapshot,
		cfg:      m.cfg,
	}

	for _, p := range placements {
		dec, err := m.decorator.Decorate(doc, p.Range(), c.cfg.Color)
		if err != nil {
			return c, fmt.Errorf("decorating %q at %d: %w", p.Token, p.Offset, err)
		}
		c.decorations = append(c.decorations, dec)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	m.cycle = c

	// Subscribe before returning so no change after activation is missed.
	// Only the newest text decides a revert, so a latest subscription is
	// preferred where the source offers one.
	var changes <-chan pubsub.Event[host.DocumentEvent]
	switch src := m.changes.(type) {
	case nil:
	case pubsub.LatestSubscriber[host.DocumentEvent]:
		changes = src.SubscribeLatest(ctx)
	default:
		changes = src.Subscribe(ctx)
	}
	go m.watch(ctx, c, changes)
	return c, nil
}

// watch waits for the first retirement trigger of one cycle.
func (m *Manager) watch(ctx context.Context, c *cycle, changes <-chan pubsub.Event[host.DocumentEvent]) {
	timer := time.NewTimer(c.cfg.Timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			m.retire(c.id, ReasonTimeout)
			return
		case ev, ok := <-changes:
			if !ok {
				// Host went away; the timer still bounds the cycle.
				changes = nil
				continue
			}
			if ev.Payload.URI == c.uri && ev.Payload.Text == c.snapshot {
				m.retire(c.id, ReasonRevert)
				return
			}
		}
	}
}

// SetConfig installs a new highlight configuration. Any active cycle is
// retired immediately; later cycles use cfg.
func (m *Manager) SetConfig(cfg HighlightConfig) {
	m.mu.Lock()
	m.cfg = cfg.normalized()
	var stale *retirement
	if m.cycle != nil {
		stale = m.retireLocked(ReasonConfig)
	}
	m.mu.Unlock()

	m.finish(stale)
}

// FollowConfig applies the result of load every time a configuration event
// touching section arrives, until ctx is done.
func (m *Manager) FollowConfig(ctx context.Context, configs pubsub.Subscriber[host.ConfigEvent], section string, load func() HighlightConfig) {
	ch := configs.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Payload.Affects(section) {
				m.SetConfig(load())
			}
		}
	}
}

// Retire ends the cycle with the given id. It reports whether the cycle was
// still current; retiring a stale or unknown id does nothing.
func (m *Manager) Retire(id string, reason Reason) bool {
	return m.retire(id, reason)
}

func (m *Manager) retire(id string, reason Reason) bool {
	m.mu.Lock()
	if m.cycle == nil || m.cycle.id != id {
		m.mu.Unlock()
		return false
	}
	stale := m.retireLocked(reason)
	m.mu.Unlock()

	m.finish(stale)
	return true
}

// retirement is a cycle already detached from the manager.
type retirement struct {
	cycle  *cycle
	reason Reason
}

// retireLocked detaches the current cycle and disarms its triggers. The
// caller passes the result to finish once mu is released: a host may block
// or call back into the manager while disposing.
func (m *Manager) retireLocked(reason Reason) *retirement {
	c := m.cycle
	m.cycle = nil
	c.cancel()
	return &retirement{cycle: c, reason: reason}
}

// finish disposes a retired cycle's decorations and announces it.
func (m *Manager) finish(r *retirement) {
	if r == nil {
		return
	}
	c := r.cycle
	dispose(c.decorations)

	log.Debug(log.CatHighlight, "cycle retired", "cycle", c.id, "reason", string(r.reason), "decorations", len(c.decorations))
	m.events.Publish(pubsub.RetiredEvent, Lifecycle{
		CycleID:     c.id,
		URI:         c.uri,
		Decorations: len(c.decorations),
		Reason:      r.reason,
	})
}

func dispose(decorations []host.Decoration) {
	for _, d := range decorations {
		d.Dispose()
	}
}

// Close retires any active cycle and ends the event stream. Close is
// idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	var stale *retirement
	if m.cycle != nil {
		stale = m.retireLocked(ReasonClosed)
	}
	m.mu.Unlock()

	m.finish(stale)
	m.events.Close()
}
