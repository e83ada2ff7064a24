// Package engine implements the EIGEN dispatch engine.
//
// The engine is the heart of EIGEN - it owns the module graph, resolves
// messages sent to objects, and walks ancestor lists to answer super calls.
//
// ARCHITECTURE:
//
// Object Model:
//   - Module: a named table of messages plus ordered mixins and a superclass
//   - Class: a module that can be instantiated; owns an eigen (singleton) module
//   - Object: a class reference, a private eigen module and instance variables
//   - Kernel: the root module every ancestor list ends with; answers send,
//     method, extend, respondTo, isA and inspect for every receiver
//   - Class: the module class receivers consult right before Kernel; answers
//     new, allocate and instanceMethod
//
// Dispatch Flow:
//  1. Object.Send(name, args...) fetches the registry thunk for name
//  2. The thunk builds a fresh send-site Message and calls Engine.send
//  3. Resolve walks the receiver's lookup chain (eigen, then class ancestors,
//     then Class for class receivers)
//  4. The found Function runs with a Call frame; Call.Super continues the chain
//  5. Nothing found: methodMissing(name, args...), else NO_SUCH_METHOD
//
// Messages owned by modules live in an arena indexed by MessageID. A module
// entry keeps an override stack of frames; each frame binds either a concrete
// Function or a delegate to another module's message. Including a mixin pushes
// delegate frames; removing it pops exactly those frames.
//
// CRITICAL PATTERNS:
//
// Versioned Caches:
// Every structural mutation (define, undefine, include, uninclude, extend)
// advances the engine epoch. Resolution results (cached on the receiver's
// eigen module) and super chains (cached on the send site) remember the epoch
// they were computed at and are recomputed on mismatch, so a mutation is
// visible to the very next dispatch. The engine keeps no reference to
// receivers, which are reclaimed like any other Go value.
//
// Acyclic Delegation:
// Retarget and Include refuse any delegate frame that would lead back to the
// entry it is written into, so delegation chains are acyclic by construction.
// Resolution still bounds delegate hops and reports DELEGATION_CYCLE.
//
// Single-Threaded Execution:
// An Engine is not safe for concurrent use. All mutation and dispatch happen
// synchronously on the caller's goroutine; callers serialize access.
package engine
