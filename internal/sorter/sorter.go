// Package sorter runs the sort commands: it ties extraction, canonical
// ordering, move detection and highlighting together against a host
// document.
package sorter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/classwind/internal/annotate"
	"github.com/zjrosen/classwind/internal/batch"
	"github.com/zjrosen/classwind/internal/canon"
	"github.com/zjrosen/classwind/internal/config"
	"github.com/zjrosen/classwind/internal/flags"
	"github.com/zjrosen/classwind/internal/host"
	"github.com/zjrosen/classwind/internal/log"
	"github.com/zjrosen/classwind/internal/matcher"
	"github.com/zjrosen/classwind/internal/movediff"
	"github.com/zjrosen/classwind/internal/pubsub"
	"github.com/zjrosen/classwind/internal/ranking"
	"github.com/zjrosen/classwind/internal/tracing"
)

var (
	// ErrConfigMissing is returned when no ranking file applies to a document.
	ErrConfigMissing = errors.New("no ranking configuration found")
	// ErrNoWorkspace is returned by SortProject when no workspace is open.
	ErrNoWorkspace = errors.New("no workspace open")
)

// Deps are the collaborators of a Service. Rankings and Highlights are
// required; the rest fall back to defaults when nil.
type Deps struct {
	Rankings   ranking.Provider
	Canon      canon.Canonicalizer
	Highlights *annotate.Manager
	Notifier   host.Notifier
	Workspace  host.Workspace
	Documents  host.DocumentResolver
	Runner     batch.Runner
	Tracer     trace.Tracer
}

// Result summarizes one document or selection sort.
type Result struct {
	// Edits is the number of class lists rewritten.
	Edits int
	// Moved holds the highlighted tokens, in final-text offsets.
	Moved []annotate.Placement
	// CycleID identifies the highlight cycle, empty when nothing moved.
	CycleID string
}

// Changed reports whether the document text was modified.
func (r Result) Changed() bool { return r.Edits > 0 }

// Service runs sort commands one at a time.
type Service struct {
	deps Deps

	mu      sync.RWMutex
	cfg     config.Config
	catalog matcher.Catalog
	flags   *flags.Registry

	// run serializes document commands so edits and highlight cycles never
	// interleave.
	run sync.Mutex
}

// NewService creates a service with cfg applied.
func NewService(cfg config.Config, deps Deps) (*Service, error) {
	if deps.Rankings == nil {
		return nil, fmt.Errorf("ranking provider is required")
	}
	if deps.Highlights == nil {
		return nil, fmt.Errorf("highlight manager is required")
	}
	if deps.Canon == nil {
		deps.Canon = canon.Sorter{}
	}
	if deps.Notifier == nil {
		deps.Notifier = logNotifier{}
	}
	if deps.Runner == nil {
		deps.Runner = batch.NewRealRunner()
	}
	if deps.Tracer == nil {
		deps.Tracer = tracing.Noop().Tracer()
	}

	s := &Service{deps: deps}
	if err := s.SetConfig(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// SetConfig swaps the configuration used by later commands. An invalid
// extraction rule leaves the previous configuration in place.
func (s *Service) SetConfig(cfg config.Config) error {
	catalog, err := cfg.Catalog()
	if err != nil {
		return fmt.Errorf("build rule catalog: %w", err)
	}
	registry := flags.New(cfg.Flags)

	s.mu.Lock()
	s.cfg = cfg
	s.catalog = catalog
	s.flags = registry
	s.mu.Unlock()
	return nil
}

// Config returns the configuration in effect.
func (s *Service) Config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

type snapshot struct {
	cfg     config.Config
	catalog matcher.Catalog
	policy  movediff.Policy
}

func (s *Service) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{cfg: s.cfg, catalog: s.catalog, policy: diffPolicy(s.flags)}
}

func diffPolicy(f *flags.Registry) movediff.Policy {
	switch {
	case f.Enabled(flags.FlagPresenceDiff):
		return movediff.PolicyPresence
	case f.Enabled(flags.FlagOccurrenceDiff):
		return movediff.PolicyOccurrence
	default:
		return movediff.PolicyValue
	}
}

// SortDocument sorts every class list the document's language rules find
// and highlights the moved tokens. Rules run in catalog order; each rule's
// edits are applied as one batch against the text left by the previous rule.
func (s *Service) SortDocument(ctx context.Context, doc host.Document) (Result, error) {
	s.run.Lock()
	defer s.run.Unlock()

	snap := s.snapshot()
	rules := snap.catalog.Resolve(doc.LanguageID())

	ctx, span := tracing.Start(ctx, s.deps.Tracer, tracing.SpanSortDocument,
		attribute.String(tracing.AttrURI, doc.URI()),
		attribute.String(tracing.AttrLanguage, doc.LanguageID()),
		attribute.Int(tracing.AttrRules, len(rules)),
		attribute.String(tracing.AttrDiffPolicy, snap.policy.String()),
	)
	defer span.End()

	res, err := s.sort(ctx, span, snap, doc, rules, nil)
	tracing.Fail(span, err)
	return res, err
}

// SortSelection sorts the class lists inside sel using the built-in class
// list pattern instead of the language rules. Nothing is edited when the
// pattern finds no class list.
func (s *Service) SortSelection(ctx context.Context, doc host.Document, sel host.Range) (Result, error) {
	s.run.Lock()
	defer s.run.Unlock()

	snap := s.snapshot()
	ctx, span := tracing.Start(ctx, s.deps.Tracer, tracing.SpanSortSelection,
		attribute.String(tracing.AttrURI, doc.URI()),
		attribute.Int("selection.start", sel.Start),
		attribute.Int("selection.end", sel.End),
		attribute.String(tracing.AttrDiffPolicy, snap.policy.String()),
	)
	defer span.End()

	total := utf8.RuneCountInString(doc.Text())
	if sel.Start < 0 || sel.End > total || sel.Start > sel.End {
		err := fmt.Errorf("selection %s outside document of %d characters: %w", sel, total, host.ErrInvalidRange)
		tracing.Fail(span, err)
		return Result{}, err
	}

	res, err := s.sort(ctx, span, snap, doc, []matcher.Rule{SelectionRule()}, &sel)
	tracing.Fail(span, err)
	return res, err
}

func (s *Service) sort(ctx context.Context, span trace.Span, snap snapshot, doc host.Document, rules []matcher.Rule, window *host.Range) (Result, error) {
	rank, err := s.resolveRanking(ctx, span, snap.cfg, doc)
	if err != nil {
		return Result{}, err
	}

	before := doc.Text()
	var res Result
	for i, rule := range rules {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		plan := planRule(doc.Text(), rule, window, s.deps.Canon, canon.Options{
			Separator:        rule.Separator,
			Replacement:      rule.Replacement,
			Ranking:          rank,
			RemoveDuplicates: snap.cfg.Sort.RemoveDuplicates,
			PrependCustom:    snap.cfg.Sort.PrependCustomClasses,
		}, snap.policy)
		if len(plan.edits) == 0 {
			continue
		}

		if err := doc.ApplyEdits(plan.edits); err != nil {
			log.ErrorErr(log.CatSort, "Applying edits failed", err, "uri", doc.URI(), "rule", rule.String())
			return res, fmt.Errorf("apply edits: %w", err)
		}

		res.Moved = append(shiftPlacements(res.Moved, plan.edits), plan.placements...)
		res.Edits += len(plan.edits)
		if window != nil {
			window.End += plan.delta
		}

		span.AddEvent(tracing.EventRuleApplied, trace.WithAttributes(
			attribute.Int("rule.index", i),
			attribute.Int(tracing.AttrMatches, plan.matches),
			attribute.Int(tracing.AttrEdits, len(plan.edits)),
		))
		log.Debug(log.CatSort, "Rule applied", "uri", doc.URI(), "rule", i, "matches", plan.matches, "edits", len(plan.edits))
	}

	span.SetAttributes(
		attribute.Int(tracing.AttrEdits, res.Edits),
		attribute.Int(tracing.AttrMoved, len(res.Moved)),
	)
	if res.Edits == 0 {
		return res, nil
	}

	id, err := s.deps.Highlights.Activate(doc, before, res.Moved)
	if err != nil {
		// The edits stand; only the highlight is lost.
		log.ErrorErr(log.CatHighlight, "Highlight activation failed", err, "uri", doc.URI())
		return res, nil
	}
	res.CycleID = id
	span.SetAttributes(attribute.String(tracing.AttrCycleID, id))
	return res, nil
}

func (s *Service) resolveRanking(ctx context.Context, span trace.Span, cfg config.Config, doc host.Document) (*ranking.Context, error) {
	root := ""
	if s.deps.Workspace != nil {
		root, _ = s.deps.Workspace.Root()
	}

	rank, err := s.deps.Rankings.Resolve(ctx, doc.Path(), cfg.RankingOverride(root))
	if err != nil {
		if errors.Is(err, ranking.ErrNotFound) {
			span.AddEvent(tracing.EventRankingMissing)
			log.Warn(log.CatRanking, "No ranking file", "path", doc.Path(), "error", err)
			if !cfg.IgnoreMissingConfig {
				s.deps.Notifier.Error(fmt.Sprintf("classwind: no class order file found for %s", displayPath(doc)))
			}
			return nil, fmt.Errorf("%s: %w", displayPath(doc), ErrConfigMissing)
		}
		s.deps.Notifier.Error(fmt.Sprintf("classwind: %v", err))
		return nil, fmt.Errorf("resolve ranking: %w", err)
	}

	span.SetAttributes(attribute.String(tracing.AttrRanking, rank.Source))
	if rank.Prefix == "" && cfg.Sort.CustomPrefix != "" {
		withPrefix := ranking.NewContext(rank.Order, rank.Variants, cfg.Sort.CustomPrefix)
		withPrefix.Source = rank.Source
		rank = withPrefix
	}
	return rank, nil
}

func displayPath(doc host.Document) string {
	if doc.Path() != "" {
		return doc.Path()
	}
	return doc.URI()
}

// SortProject runs the batch tool over the workspace root. Its stdout is
// logged and every stderr line becomes an error notice as it arrives. The
// tool only touches files on disk, so it runs outside the command lock and
// document sorts proceed while it works.
func (s *Service) SortProject(ctx context.Context) (batch.Result, error) {
	root, ok := "", false
	if s.deps.Workspace != nil {
		root, ok = s.deps.Workspace.Root()
	}
	if !ok {
		log.Info(log.CatSort, "Project sort skipped, no workspace open")
		return batch.Result{}, ErrNoWorkspace
	}

	inv := s.snapshot().cfg.ProjectInvocation(root)
	ctx, span := tracing.Start(ctx, s.deps.Tracer, tracing.SpanSortProject,
		attribute.String(tracing.AttrProjectRoot, root),
		attribute.String(tracing.AttrProjectCmd, inv.String()),
	)
	defer span.End()

	log.Info(log.CatBatch, "Running batch tool", "invocation", inv.String())
	var logged, notified int
	res, err := s.deps.Runner.Run(ctx, inv, batch.Sink{
		Stdout: func(line string) {
			logged++
			log.Info(log.CatBatch, line, "root", root)
		},
		Stderr: func(line string) {
			notified++
			s.deps.Notifier.Error(line)
		},
	})
	// Runners that do not stream leave their lines for after the run.
	for _, line := range tail(res.Stdout, logged) {
		log.Info(log.CatBatch, line, "root", root)
	}
	for _, line := range tail(res.Stderr, notified) {
		s.deps.Notifier.Error(line)
	}
	if err != nil {
		tracing.Fail(span, err)
		log.ErrorErr(log.CatBatch, "Batch tool failed", err, "invocation", inv.String())
		if len(res.Stderr) == 0 {
			s.deps.Notifier.Error(fmt.Sprintf("classwind: %v", err))
		}
		return res, err
	}
	return res, nil
}

func tail(lines []string, seen int) []string {
	if seen >= len(lines) {
		return nil
	}
	return lines[seen:]
}

// WatchSaves sorts each document announced as about to be saved while
// run_on_save is enabled. It returns when ctx is done or the subscription
// ends.
func (s *Service) WatchSaves(ctx context.Context, saves pubsub.Subscriber[host.DocumentEvent]) {
	events := saves.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			ev := e.Payload
			if !s.Config().RunOnSave {
				continue
			}
			if s.deps.Documents == nil {
				log.Warn(log.CatSort, "Save received without a document resolver", "uri", ev.URI)
				continue
			}
			doc, found := s.deps.Documents.Document(ctx, ev.URI)
			if !found {
				log.Debug(log.CatSort, "Saved document is not open", "uri", ev.URI)
				continue
			}
			if _, err := s.SortDocument(ctx, doc); err != nil {
				log.ErrorErr(log.CatSort, "Sort on save failed", err, "uri", ev.URI)
			}
		}
	}
}

// logNotifier is used when no host notifier is wired.
type logNotifier struct{}

func (logNotifier) Info(msg string)  { log.Info(log.CatSort, msg) }
func (logNotifier) Error(msg string) { log.Error(log.CatSort, msg) }
