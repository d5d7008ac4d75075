package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for murmur spans.
var (
	AttrEpicNumber     = attribute.Key("murmur.epic.number")
	AttrIssueNumber    = attribute.Key("murmur.issue.number")
	AttrRunID          = attribute.Key("murmur.run.id")
	AttrBackend        = attribute.Key("murmur.backend")
	AttrWorktreePath   = attribute.Key("murmur.worktree.path")
	AttrWorktreeBranch = attribute.Key("murmur.worktree.branch")
)

// StartSpan is a convenience wrapper for an internal span carrying common
// attributes (one span per agent run or per worktree operation, spec.md §B).
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}
