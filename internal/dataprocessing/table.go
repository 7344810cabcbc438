package dataprocessing

import (
	"fmt"

	"fitcli/pkg/contracts/domain"
)

// RawTable is one loaded source file: a header plus string cells, tagged
// with the source kind and the window it came from. Raw tables live only
// until the reducer and merger have consumed them.
type RawTable struct {
	Kind    domain.SourceKind
	Window  domain.Window
	Columns []string
	Rows    [][]string
}

// Tag returns the {kind}_{window} identifier the table is registered
// under.
func (t *RawTable) Tag() string {
	return TableTag(t.Kind, t.Window.Label)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *RawTable) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at (row, column index), tolerating ragged rows.
func (t *RawTable) Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// TableTag builds the registry key for a (kind, window) pair.
func TableTag(kind domain.SourceKind, windowLabel string) string {
	return fmt.Sprintf("%s_%s", kind, windowLabel)
}

// TableSet is the registry of loaded raw tables, keyed by TableTag.
type TableSet map[string]*RawTable

// Lookup returns the table for a (kind, window) pair, if loaded.
func (s TableSet) Lookup(kind domain.SourceKind, windowLabel string) (*RawTable, bool) {
	t, ok := s[TableTag(kind, windowLabel)]
	return t, ok
}
