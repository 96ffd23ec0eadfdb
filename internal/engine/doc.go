// Package engine implements the change-processing pipeline.
//
// The engine receives the user changes pushed by callbacks and the system
// changes the framework decided on, applies them to core layout state and
// platform resources, and returns one redraw severity per cycle.
//
// ARCHITECTURE:
//
// Two stages, one table each:
// Every user change goes through the ImmediateApplier first. It has access
// to layout state only and either handles a change or explicitly forwards
// it. The DeferredApplier then receives the forwarded changes plus every
// system change and talks to the platform. Each stage decides "is this tag
// handled" in exactly one dispatch table keyed by tag, and tests assert the
// tables cover every tag of both vocabularies.
//
// Cycle Processing Flow:
// 1. Save the previous window state (before anything can alter it)
// 2. ImmediateApplier.Apply(user changes) -> forwarded remainder
// 3. DeferredApplier.Apply(forwarded, system changes)
// 4. Sync window state with the platform when it changed
// 5. Combine severities (max) and journal the cycle
//
// Producers:
// Engine.Process and Engine.Dispatch serve input events. Engine.Tick drains
// expired timers and at most one thread writeback, running the same cycle
// for each output independently. Thread goroutines only enqueue; every
// change is applied on the caller's goroutine.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every cycle is stamped with a monotonic seq from Clock.Next(). Wall-clock
// time is used only to decide timer expiry.
//
// Log and Continue:
// Nothing unwinds past Process or Tick. Stale references are local no-ops,
// platform refusals are logged at warn and the feature is skipped for that
// cycle, and a missing table entry is logged at error.
package engine
