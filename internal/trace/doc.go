// Package trace records what the lifetime completion passes do.
//
// Tracing is the logging layer of ossa. Events are spans (begin/end pairs)
// and points, each tagged with a scope:
//
//   - ScopeDriver: one CLI invocation
//   - ScopePass: one pass over a module (complete, unreachable)
//   - ScopeFunc: one function
//   - ScopeValue: one value, and every lifetime end inserted for it
//
// The level decides which scopes are emitted: phase stops at passes, detail
// adds functions, debug adds values.
//
// Enable it from the command line:
//
//	ossa complete --trace=- --trace-level=debug input.sil
//
// Tracers travel through the driver in the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeFunc, "func:@f", parent)
//	defer span.End("")
package trace
