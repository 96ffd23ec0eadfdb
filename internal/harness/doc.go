// Package harness runs scripted scenarios through the change pipeline.
//
// A scenario builds a layout, drives the engine with process, dispatch and
// tick steps against a headless platform, and then asserts on the layout,
// the platform calls and the journal of cycles.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: typing
//	description: "Typing into a focused input"
//	session: s1
//	nodes:
//	  - { dom: 0, id: 0 }
//	  - { dom: 0, id: 1, parent: 0, editable: true, text: "hi" }
//	steps:
//	  - kind: process
//	    system: [{ type: SetFocus, new: { dom: 0, node: 1 } }]
//	  - kind: process
//	    user: [{ type: InsertText, dom: 0, node: 1, text: "!" }]
//	    expect: incremental-relayout
//	  - kind: tick
//	    advance_ms: 530
//	assertions:
//	  - type: node_text
//	    dom: 0
//	    node: 1
//	    text: "hi!"
//
// # Step Kinds
//
//   - process: runs user and system changes through one cycle
//   - dispatch: runs scripted handlers along a target path, then processes
//     what they pushed
//   - tick: advances the clock by advance_ms and runs the integrator
//   - wait_threads: blocks until every thread has sent its writebacks
//   - render: regenerates every virtual view whose gate fires
//
// # Assertion Types
//
//   - node_text, cursor, focus, scroll_offset: layout state
//   - timers, platform_calls: timer registry and platform log
//   - reinvocation: checker phase of a virtual view
//   - trace_contains, trace_order, trace_count: the cycle journal
//   - errors: codes of runtime errors collected by the engine
//
// # Deterministic Testing
//
// Every run uses a manual clock starting at testutil.Epoch, a fixed session
// id and an in-memory journal, so the same scenario always yields the same
// cycles. Golden files under testdata/golden pin that output.
package harness
