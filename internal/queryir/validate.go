package queryir

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/eigen/internal/ir"
)

// ValidationResult lists everything wrong with a query.
type ValidationResult struct {
	// IsValid is true when Problems is empty.
	IsValid bool

	// Problems describes each rejected table, column or literal.
	Problems []string
}

// Err folds the problems into one error, or returns nil for a valid query.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	return errors.New("invalid query: " + strings.Join(r.Problems, "; "))
}

// Validate checks a query against Schema.
//
// Rules:
//  1. Tables and columns must exist in Schema
//  2. A top-level Select projects at least one column
//  3. Equals compares text columns with strings and integer columns with integers
//  4. AtLeast applies to integer columns only
//  5. JSON columns cannot be filtered
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{
		problems: []string{},
	}
	v.validateQuery(query)

	return ValidationResult{
		IsValid:  len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	if q == nil {
		v.addProblem("nil query")
		return
	}

	switch query := q.(type) {
	case Select:
		v.validateSelect(query, true)
	case *Select:
		v.validateSelect(*query, true)
	case Join:
		v.validateJoin(query)
	case *Join:
		v.validateJoin(*query)
	default:
		v.addProblem("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select, needFields bool) {
	if _, ok := Schema[sel.From]; !ok {
		v.addProblem("unknown table %q", sel.From)
		return
	}
	if needFields && len(sel.Fields) == 0 {
		v.addProblem("select from %s projects no fields", sel.From)
	}
	for _, f := range sel.Fields {
		if _, ok := Column(sel.From, f); !ok {
			v.addProblem("unknown column %s.%s", sel.From, f)
		}
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.From, sel.Filter)
	}
}

func (v *validator) validateJoin(join Join) {
	v.validateSelect(join.Left, true)
	v.validateSelect(join.Right, false)

	lt, lok := Column(join.Left.From, join.On.Left)
	rt, rok := Column(join.Right.From, join.On.Right)
	if !lok {
		v.addProblem("unknown join column %s.%s", join.Left.From, join.On.Left)
	}
	if !rok {
		v.addProblem("unknown join column %s.%s", join.Right.From, join.On.Right)
	}
	if lok && rok && lt != rt {
		v.addProblem("join compares %s with %s", lt, rt)
	}
}

func (v *validator) validatePredicate(table string, p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.validateEquals(table, pred)
	case *Equals:
		v.validateEquals(table, *pred)
	case AtLeast:
		v.validateAtLeast(table, pred)
	case *AtLeast:
		v.validateAtLeast(table, *pred)
	case And:
		v.validateAnd(table, pred)
	case *And:
		v.validateAnd(table, *pred)
	case nil:
		v.addProblem("nil predicate in %s filter", table)
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) filterColumn(table, field string) (ColumnType, bool) {
	t, ok := Column(table, field)
	if !ok {
		v.addProblem("unknown column %s.%s", table, field)
		return 0, false
	}
	if t == JSONColumn {
		v.addProblem("column %s.%s holds json and cannot be filtered", table, field)
		return 0, false
	}
	return t, true
}

func (v *validator) validateEquals(table string, eq Equals) {
	t, ok := v.filterColumn(table, eq.Field)
	if !ok {
		return
	}
	switch eq.Value.(type) {
	case ir.IRString:
		if t != TextColumn {
			v.addProblem("%s.%s is %s, compared with a string", table, eq.Field, t)
		}
	case ir.IRInt:
		if t != IntColumn {
			v.addProblem("%s.%s is %s, compared with an integer", table, eq.Field, t)
		}
	default:
		v.addProblem("%s.%s compared with unsupported value %T", table, eq.Field, eq.Value)
	}
}

func (v *validator) validateAtLeast(table string, at AtLeast) {
	t, ok := v.filterColumn(table, at.Field)
	if ok && t != IntColumn {
		v.addProblem("%s.%s is %s, AtLeast needs an integer column", table, at.Field, t)
	}
}

func (v *validator) validateAnd(table string, and And) {
	for _, sub := range and.Predicates {
		v.validatePredicate(table, sub)
	}
}
