package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanSortDocument  = "sort.document"
	SpanSortSelection = "sort.selection"
	SpanSortProject   = "sort.project"
)

// Attribute keys.
const (
	AttrURI         = "document.uri"
	AttrLanguage    = "document.language"
	AttrRules       = "sort.rules"
	AttrMatches     = "sort.matches"
	AttrEdits       = "sort.edits"
	AttrMoved       = "sort.moved_tokens"
	AttrCycleID     = "highlight.cycle_id"
	AttrRanking     = "ranking.source"
	AttrDiffPolicy  = "diff.policy"
	AttrProjectRoot = "project.root"
	AttrProjectCmd  = "project.command"
)

// Event names.
const (
	EventRankingMissing = "ranking.missing"
	EventRuleApplied    = "rule.applied"
)

// Start opens a span named name on tracer.
func Start(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Fail records err on span and marks it failed. A nil err is ignored.
func Fail(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
