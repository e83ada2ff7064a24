package queryir

import "sort"

// Trace table names.
const (
	TableSends   = "sends"
	TableReplies = "replies"
)

// ColumnType says which literals a column can be compared with.
type ColumnType int

const (
	// TextColumn compares with ir.IRString.
	TextColumn ColumnType = iota
	// IntColumn compares with ir.IRInt and supports AtLeast.
	IntColumn
	// JSONColumn holds canonical JSON. It can be projected but not filtered.
	JSONColumn
)

// String returns the lowercase type name.
func (t ColumnType) String() string {
	switch t {
	case TextColumn:
		return "text"
	case IntColumn:
		return "integer"
	case JSONColumn:
		return "json"
	default:
		return "unknown"
	}
}

// Schema lists the queryable columns of each trace table.
// Column names are interpolated into SQL, so nothing outside this map
// ever reaches a backend.
var Schema = map[string]map[string]ColumnType{
	TableSends: {
		"id":             TextColumn,
		"run_token":      TextColumn,
		"kind":           TextColumn,
		"receiver":       TextColumn,
		"message":        TextColumn,
		"function":       TextColumn,
		"args":           JSONColumn,
		"depth":          IntColumn,
		"seq":            IntColumn,
		"bundle_hash":    TextColumn,
		"engine_version": TextColumn,
		"ir_version":     TextColumn,
	},
	TableReplies: {
		"id":      TextColumn,
		"send_id": TextColumn,
		"outcome": TextColumn,
		"result":  JSONColumn,
		"error":   TextColumn,
		"seq":     IntColumn,
	},
}

// Column looks up a column's type.
func Column(table, field string) (ColumnType, bool) {
	cols, ok := Schema[table]
	if !ok {
		return 0, false
	}
	t, ok := cols[field]
	return t, ok
}

// Columns returns a table's column names, sorted.
func Columns(table string) []string {
	names := make([]string, 0, len(Schema[table]))
	for name := range Schema[table] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
