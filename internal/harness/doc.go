// Package harness runs conformance scenarios against the object model.
//
// A scenario installs CUE bundles into a fresh engine, runs a list of steps
// (construct, send, extend, include, define), checks each step's outcome with
// named matchers and finally evaluates assertions over the dispatch trace.
//
// # Scenario Format
//
//	name: super_chain
//	description: "B#num scales A#num through super"
//	bundles:
//	  - ../bundles/num.cue
//	steps:
//	  - new: { class: B, as: b }
//	  - send: { to: b, message: num, args: [2] }
//	    expect: { equal: 6 }
//	assertions:
//	  - type: trace_contains
//	    function: "A#num"
//	    kind: super
//	  - type: trace_order
//	    functions: ["B#num", "A#num"]
//	  - type: ancestors
//	    of: B
//	    expect: [B, A, Object, Kernel]
//
// # Determinism
//
// Every run uses a fixed run token and a logical clock starting at 1, so the
// same scenario always yields the same trace. Golden snapshots (see
// AssertGolden) rely on this.
package harness
