package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/eigen/internal/ir"
	"github.com/roach88/eigen/internal/queryir"
)

// SQLCompiler compiles trace queries to parameterized SQL for SQLite.
//
// Every query is validated against queryir.Schema first, because table
// and column names are interpolated. Literal values never are.
// Every query ends in ORDER BY seq with an id tiebreaker.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q).Err(); err != nil {
		return "", nil, err
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.Join:
		return c.compileJoin(query)
	case *queryir.Join:
		return c.compileJoin(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect compiles a single-table query with unqualified columns.
func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	var whereClause string
	var params []any
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate("", q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereClause = " WHERE " + filterSQL
		params = filterParams
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		strings.Join(q.Fields, ", "),
		q.From,
		whereClause,
		stableOrderKey(""))

	return sql, params, nil
}

// compileJoin compiles an inner join. Columns are qualified with their
// table name and rows are ordered by the left table.
func (c *SQLCompiler) compileJoin(j queryir.Join) (string, []any, error) {
	fields := make([]string, 0, len(j.Left.Fields)+len(j.Right.Fields))
	for _, f := range j.Left.Fields {
		fields = append(fields, j.Left.From+"."+f)
	}
	for _, f := range j.Right.Fields {
		fields = append(fields, j.Right.From+"."+f)
	}

	var conds []string
	var params []any
	for _, side := range []queryir.Select{j.Left, j.Right} {
		if side.Filter == nil {
			continue
		}
		sql, sideParams, err := c.compilePredicate(side.From+".", side.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile %s filter: %w", side.From, err)
		}
		conds = append(conds, sql)
		params = append(params, sideParams...)
	}

	sql := fmt.Sprintf("SELECT %s FROM %s INNER JOIN %s ON %s.%s = %s.%s",
		strings.Join(fields, ", "),
		j.Left.From,
		j.Right.From,
		j.Left.From, j.On.Left,
		j.Right.From, j.On.Right)
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	sql += " ORDER BY " + stableOrderKey(j.Left.From+".")

	return sql, params, nil
}

// stableOrderKey returns the ORDER BY clause body. Both trace tables
// carry a global seq; id breaks ties deterministically.
func stableOrderKey(prefix string) string {
	return prefix + "seq ASC, " + prefix + "id ASC COLLATE BINARY"
}

// compilePredicate compiles a predicate to a WHERE fragment. prefix
// qualifies column names ("" or "table.").
func (c *SQLCompiler) compilePredicate(prefix string, p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return compareParam(prefix+pred.Field, "=", pred.Value)
	case *queryir.Equals:
		return compareParam(prefix+pred.Field, "=", pred.Value)
	case queryir.AtLeast:
		return compareParam(prefix+pred.Field, ">=", pred.Value)
	case *queryir.AtLeast:
		return compareParam(prefix+pred.Field, ">=", pred.Value)
	case queryir.And:
		return c.compileAnd(prefix, pred)
	case *queryir.And:
		return c.compileAnd(prefix, *pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compareParam(column, op string, v ir.IRValue) (string, []any, error) {
	param, err := irValueToParam(v)
	if err != nil {
		return "", nil, fmt.Errorf("convert value: %w", err)
	}
	return fmt.Sprintf("%s %s ?", column, op), []any{param}, nil
}

// compileAnd compiles an And predicate to a parenthesized conjunction.
func (c *SQLCompiler) compileAnd(prefix string, and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // Always true (vacuous truth)
	}

	var sqlParts []string
	var allParams []any

	for _, pred := range and.Predicates {
		sql, params, err := c.compilePredicate(prefix, pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}
	if len(sqlParts) == 1 {
		return sqlParts[0], allParams, nil
	}

	return "(" + strings.Join(sqlParts, " AND ") + ")", allParams, nil
}

// irValueToParam converts a literal to a Go native SQL parameter.
// Only strings and integers reach a trace column.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	default:
		return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
	}
}
