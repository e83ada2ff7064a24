package queryir

import "github.com/roach88/eigen/internal/ir"

// Query represents an abstract query over the trace tables.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in backend compilers.
//
// Query types:
//   - Select: rows of one table, filtered and projected
//   - Join: sends paired with their replies
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition in a Select.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: field = literal
//   - AtLeast: integer field >= literal
//   - And: all predicates must be true
//
// There is no OR. Run the query twice instead.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select reads rows from one trace table.
//
// Semantics:
//
//	SELECT <fields> FROM <from> WHERE <filter>
//
// Example:
//
//	Select{
//	  From:   TableSends,
//	  Fields: []string{"id", "message", "depth"},
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Field: "message", Value: ir.IRString("num")},
//	    AtLeast{Field: "depth", Value: ir.IRInt(2)},
//	  }},
//	}
//
// Translates to SQL:
//
//	SELECT id, message, depth FROM sends
//	WHERE message = ? AND depth >= ?
//	ORDER BY seq ASC, id ASC COLLATE BINARY
//
// Fields are required for a top-level Select. The right side of a Join
// may leave them empty to contribute only a filter.
type Select struct {
	From   string    // TableSends or TableReplies
	Fields []string  // projected columns, in output order
	Filter Predicate // WHERE conditions (nil = every row)
}

func (Select) queryNode() {}

// Join pairs rows of two tables with an inner join on one column each.
//
// Semantics:
//
//	SELECT <left.fields>, <right.fields>
//	FROM <left.from> INNER JOIN <right.from> ON <left.on> = <right.on>
//	WHERE <left.filter> AND <right.filter>
//
// The typical join keeps sends whose reply matches a condition:
//
//	Join{
//	  Left:  Select{From: TableSends, Fields: []string{"id", "message"}},
//	  Right: Select{From: TableReplies, Filter: Equals{Field: "outcome", Value: ir.IRString("missing")}},
//	  On:    JoinKey{Left: "id", Right: "send_id"},
//	}
//
// Only inner joins exist, so a send without a reply never matches.
type Join struct {
	Left  Select
	Right Select
	On    JoinKey
}

func (Join) queryNode() {}

// JoinKey names the columns a Join matches on.
type JoinKey struct {
	Left  string // column of Join.Left.From
	Right string // column of Join.Right.From
}

// Equals represents a field-equals-literal predicate.
//
// Semantics:
//
//	<field> = <value>
//
// Value must be an ir.IRString for text columns and an ir.IRInt for
// integer columns. The value is always bound as a parameter.
type Equals struct {
	Field string     // Column of the enclosing Select
	Value ir.IRValue // Literal value
}

func (Equals) predicateNode() {}

// AtLeast is an inclusive lower bound on an integer column.
//
// Semantics:
//
//	<field> >= <value>
type AtLeast struct {
	Field string
	Value ir.IRInt
}

func (AtLeast) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
//
// Semantics:
//
//	<predicate1> AND <predicate2> AND ... AND <predicateN>
//
// An empty And is always true.
type And struct {
	Predicates []Predicate // All must be true (empty = always true)
}

func (And) predicateNode() {}

// Conjoin combines predicates into one, dropping nils. It returns nil
// when nothing is left and the lone predicate when only one is.
func Conjoin(preds ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}
