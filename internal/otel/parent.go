package otel

import (
	"context"
	"crypto/sha256"
	"fmt"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// ParentContext returns ctx carrying the remote span context the run joins,
// along with warnings about values that had to be replaced.
//
// traceID and parentID take precedence over traceparent, a W3C header.
// A traceID that is not 32 hex characters is hashed with SHA-256 and its
// first 16 bytes are used. A missing or invalid parentID is derived from the
// trace id.
func ParentContext(ctx context.Context, traceID, parentID, traceparent string) (context.Context, []string) {
	if traceID == "" {
		if traceparent == "" {
			return ctx, nil
		}
		ctx = propagation.TraceContext{}.Extract(ctx, propagation.MapCarrier{"traceparent": traceparent})
		if !trace.SpanContextFromContext(ctx).IsValid() {
			return ctx, []string{fmt.Sprintf("ignoring malformed traceparent %q", traceparent)}
		}
		return ctx, nil
	}

	var warnings []string
	tid, err := trace.TraceIDFromHex(traceID)
	if err != nil {
		sum := sha256.Sum256([]byte(traceID))
		copy(tid[:], sum[:16])
		warnings = append(warnings, fmt.Sprintf("trace id %q is not 32 hex characters, using SHA-256 prefix %s", traceID, tid))
	}

	sid, err := trace.SpanIDFromHex(parentID)
	if err != nil {
		sum := sha256.Sum256(tid[:])
		copy(sid[:], sum[:8])
		if parentID != "" {
			warnings = append(warnings, fmt.Sprintf("parent id %q is not 16 hex characters, using %s", parentID, sid))
		}
	}

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	return trace.ContextWithRemoteSpanContext(ctx, sc), warnings
}
