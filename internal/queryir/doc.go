// Package queryir provides an abstract query representation over the
// recorded dispatch trace.
//
// The trace database holds two tables: sends (one row per dispatched
// message) and replies (one row per answered send). Callers describe
// what they want as a Query; a backend such as querysql turns it into
// something executable:
//
//	[--where flags] → [Query IR] → [SQL Backend]
//
// SUPPORTED FRAGMENT:
//   - Select(from, fields, filter) - one table, explicit projection
//   - Join(left, right, on) - inner equi-join on one column pair
//   - Predicates: Equals, AtLeast, And
//
// Excluded: OR, NULL comparisons, aggregations, subqueries, SELECT *.
//
// SCHEMA:
//
// Every table and column a query names must appear in Schema. Backends
// interpolate identifiers and bind literals, so Validate is the guard
// that keeps arbitrary text out of the generated SQL.
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method
// pattern, so backends can switch over every case:
//
//	switch q := query.(type) {
//	case queryir.Select:
//	    // one table
//	case queryir.Join:
//	    // sends with replies
//	}
package queryir
