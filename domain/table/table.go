// Package table provides the in-memory tabular dataset the cleaning engines
// operate on: ordered named columns of typed cells with per-cell missing
// markers. Upstream ingestion resolves column typing before a table is built;
// the engines only transform it.
package table

import (
	"fmt"
	"math"

	"surveyclean/domain/core"
)

// Column is a named sequence of typed cells
type Column struct {
	Name  string  `json:"name"`
	Type  Type    `json:"type"`
	Cells []Value `json:"cells"`
}

// NewColumn creates an empty column of the given type
func NewColumn(name string, t Type) *Column {
	return &Column{Name: name, Type: t}
}

// FromFloats builds a numeric column; NaN entries become missing cells
func FromFloats(name string, values []float64) *Column {
	col := NewColumn(name, TypeNumeric)
	for _, v := range values {
		if math.IsNaN(v) {
			col.Cells = append(col.Cells, Missing(TypeNumeric))
		} else {
			col.Cells = append(col.Cells, Numeric(v))
		}
	}
	return col
}

// FromStrings builds a categorical column; empty strings become missing cells
func FromStrings(name string, values []string) *Column {
	col := NewColumn(name, TypeCategorical)
	for _, v := range values {
		if v == "" {
			col.Cells = append(col.Cells, Missing(TypeCategorical))
		} else {
			col.Cells = append(col.Cells, Categorical(v))
		}
	}
	return col
}

// FromBools builds a boolean column
func FromBools(name string, values []bool) *Column {
	col := NewColumn(name, TypeBoolean)
	for _, v := range values {
		col.Cells = append(col.Cells, Boolean(v))
	}
	return col
}

// Len returns the number of cells
func (c *Column) Len() int {
	return len(c.Cells)
}

// IsNumeric reports whether the column holds numeric cells
func (c *Column) IsNumeric() bool {
	return c.Type == TypeNumeric
}

// MissingCount returns the number of missing cells
func (c *Column) MissingCount() int {
	count := 0
	for _, cell := range c.Cells {
		if cell.IsMissing {
			count++
		}
	}
	return count
}

// Floats extracts observed numeric values alongside their row indices
func (c *Column) Floats() (values []float64, rows []int) {
	for i, cell := range c.Cells {
		if v, ok := cell.Float(); ok {
			values = append(values, v)
			rows = append(rows, i)
		}
	}
	return values, rows
}

// Observed returns all non-missing cells
func (c *Column) Observed() []Value {
	var out []Value
	for _, cell := range c.Cells {
		if !cell.IsMissing {
			out = append(out, cell)
		}
	}
	return out
}

// DistinctObserved counts distinct non-missing values by display representation
func (c *Column) DistinctObserved() int {
	seen := make(map[string]struct{})
	for _, cell := range c.Cells {
		if !cell.IsMissing {
			seen[cell.String()] = struct{}{}
		}
	}
	return len(seen)
}

// Clone returns a deep copy of the column
func (c *Column) Clone() *Column {
	cells := make([]Value, len(c.Cells))
	copy(cells, c.Cells)
	return &Column{Name: c.Name, Type: c.Type, Cells: cells}
}

// Table is an ordered collection of equally sized, uniquely named columns
type Table struct {
	cols  []*Column
	index map[string]int
}

// New creates an empty table
func New() *Table {
	return &Table{index: make(map[string]int)}
}

// AddColumn appends a column, enforcing unique names and a uniform row count
func (t *Table) AddColumn(col *Column) error {
	if _, exists := t.index[col.Name]; exists {
		return fmt.Errorf("%w: %q", core.ErrDuplicateColumn, col.Name)
	}
	if len(t.cols) > 0 && col.Len() != t.NumRows() {
		return core.NewRaggedColumnError(col.Name, col.Len(), t.NumRows())
	}
	t.index[col.Name] = len(t.cols)
	t.cols = append(t.cols, col)
	return nil
}

// SetColumn replaces the same-named column in place, keeping its position, or
// appends when the name is new. The uniform row count invariant still holds.
func (t *Table) SetColumn(col *Column) error {
	if len(t.cols) > 0 && col.Len() != t.NumRows() {
		return core.NewRaggedColumnError(col.Name, col.Len(), t.NumRows())
	}
	if i, exists := t.index[col.Name]; exists {
		t.cols[i] = col
		return nil
	}
	t.index[col.Name] = len(t.cols)
	t.cols = append(t.cols, col)
	return nil
}

// MustAddColumn appends a column and panics on integrity violations.
// Intended for construction sites that already guarantee the invariants.
func (t *Table) MustAddColumn(col *Column) *Table {
	if err := t.AddColumn(col); err != nil {
		panic(err)
	}
	return t
}

// Column looks up a column by name
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// HasColumn reports whether the named column exists
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnNames returns column names in insertion order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, col := range t.cols {
		names[i] = col.Name
	}
	return names
}

// Columns returns the columns in insertion order
func (t *Table) Columns() []*Column {
	return t.cols
}

// NumericColumnNames returns the names of all numeric columns in order
func (t *Table) NumericColumnNames() []string {
	var names []string
	for _, col := range t.cols {
		if col.IsNumeric() {
			names = append(names, col.Name)
		}
	}
	return names
}

// NumRows returns the shared row count
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NumColumns returns the number of columns
func (t *Table) NumColumns() int {
	return len(t.cols)
}

// TotalMissing counts missing cells across every column
func (t *Table) TotalMissing() int {
	total := 0
	for _, col := range t.cols {
		total += col.MissingCount()
	}
	return total
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	clone := New()
	for _, col := range t.cols {
		clone.MustAddColumn(col.Clone())
	}
	return clone
}

// FilterRows returns a new table keeping only rows where keep[i] is true.
// keep must cover every row.
func (t *Table) FilterRows(keep []bool) (*Table, error) {
	if len(keep) != t.NumRows() {
		return nil, fmt.Errorf("%w: keep mask has %d entries, table has %d rows",
			core.ErrInvalidConfig, len(keep), t.NumRows())
	}
	filtered := New()
	for _, col := range t.cols {
		out := NewColumn(col.Name, col.Type)
		for i, cell := range col.Cells {
			if keep[i] {
				out.Cells = append(out.Cells, cell)
			}
		}
		filtered.MustAddColumn(out)
	}
	return filtered, nil
}

// Validate checks the table invariants: at least one column, uniform row
// counts, unique names. Name uniqueness is enforced at insertion; this guards
// tables assembled by external callers.
func (t *Table) Validate() error {
	if len(t.cols) == 0 {
		return core.ErrNoColumns
	}
	n := t.cols[0].Len()
	for _, col := range t.cols[1:] {
		if col.Len() != n {
			return core.NewRaggedColumnError(col.Name, col.Len(), n)
		}
	}
	return nil
}
