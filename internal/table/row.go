// Package table models tabular input (CSV, XLSX) as ordered
// column-name-to-value rows. Column order is preserved so failed rows can be
// round-tripped back to CSV exactly as they came in.
package table

// Row is one data record: an ordered mapping from column name to cell value.
// A lookup for a column the row never had reports ok=false; this is a normal
// case, not an error.
type Row struct {
	columns []string
	values  map[string]string
}

// NewRow returns an empty Row.
func NewRow() Row {
	return Row{values: make(map[string]string)}
}

// Set assigns a cell value, recording the column on first assignment so
// iteration order matches insertion order.
func (r *Row) Set(column, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = value
}

// Get returns the cell value for a column and whether the column is present.
func (r Row) Get(column string) (string, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Columns returns the row's column names in insertion order.
func (r Row) Columns() []string {
	return r.columns
}

// Len returns the number of columns in the row.
func (r Row) Len() int {
	return len(r.columns)
}

// Table is a parsed input file: a header row plus data rows.
type Table struct {
	Headers []string
	Rows    []Row
}
