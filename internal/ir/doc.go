// Package ir holds EIGEN's serializable intermediate representation:
// compiled declaration bundles, dispatch trace records and the constrained
// value model they carry.
//
// This package contains type definitions and encoding only. All other
// internal packages may import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Values are a closed set (null, string, int, bool, array, object)
//   - No floats: integral floats become ints, the rest become strings
//   - Canonical JSON (RFC 8785 key order, NFC strings) backs every content ID
//   - Trace records are ordered by logical seq, never wall-clock time
package ir
