package dataset

import (
	"fmt"
	"slices"
)

// Dataset is an immutable, columnar table.
//
// Column vectors are indexed by row id and shared between every Dataset
// derived from the same load. A Dataset only owns its list of row ids, so a
// filtered view costs one []int and never copies record contents. Derived
// columns are added by producing a new Dataset with one more vector.
type Dataset struct {
	schema  *Schema
	vectors map[string][]Value
	rows    []int
	size    int
}

// New validates column vectors against the schema and returns a Dataset
// viewing every row. Each vector must hold exactly rowCount values of its
// column's type.
func New(schema *Schema, vectors map[string][]Value, rowCount int) (*Dataset, error) {
	for _, c := range schema.columns {
		vec, ok := vectors[c.Name]
		if !ok {
			return nil, fmt.Errorf("no values for column %q", c.Name)
		}
		if len(vec) != rowCount {
			return nil, fmt.Errorf("column %q has %d values, want %d", c.Name, len(vec), rowCount)
		}
		for i, v := range vec {
			if v.Type != c.Type {
				return nil, fmt.Errorf("column %q row %d has type %s, want %s", c.Name, i+1, v.Type, c.Type)
			}
		}
	}
	if len(vectors) != schema.Len() {
		return nil, fmt.Errorf("got %d column vectors for %d columns", len(vectors), schema.Len())
	}

	rows := make([]int, rowCount)
	for i := range rows {
		rows[i] = i
	}
	return &Dataset{schema: schema, vectors: vectors, rows: rows, size: rowCount}, nil
}

// Empty returns a zero-row Dataset with the given schema.
func Empty(schema *Schema) *Dataset {
	vectors := make(map[string][]Value, schema.Len())
	for _, c := range schema.columns {
		vectors[c.Name] = nil
	}
	return &Dataset{schema: schema, vectors: vectors, rows: []int{}}
}

// Schema returns the dataset schema.
func (d *Dataset) Schema() *Schema { return d.schema }

// Len returns the number of rows in this view.
func (d *Dataset) Len() int { return len(d.rows) }

// IsEmpty reports whether the view has no rows.
func (d *Dataset) IsEmpty() bool { return len(d.rows) == 0 }

// RowID returns the stable identity of the row at position i. Row ids are
// shared by every view of the same load.
func (d *Dataset) RowID(i int) int { return d.rows[i] }

// RowIDs returns a copy of the row ids in view order.
func (d *Dataset) RowIDs() []int { return slices.Clone(d.rows) }

// Value returns the cell at position i of column name. The column must exist;
// use Schema().Lookup first when the name comes from a caller.
func (d *Dataset) Value(i int, name string) Value {
	return d.vectors[name][d.rows[i]]
}

// Row returns an accessor for the row at position i.
func (d *Dataset) Row(i int) Row {
	return Row{ds: d, id: d.rows[i]}
}

// ColumnValues returns the values of a column in view order.
func (d *Dataset) ColumnValues(name string) ([]Value, error) {
	if _, err := d.schema.Lookup(name); err != nil {
		return nil, err
	}
	vec := d.vectors[name]
	out := make([]Value, len(d.rows))
	for i, id := range d.rows {
		out[i] = vec[id]
	}
	return out, nil
}

// Numbers returns a numeric column in view order with a validity mask.
// Invalid (null) positions hold 0.
func (d *Dataset) Numbers(name string) ([]float64, []bool, error) {
	if _, err := d.schema.LookupNumeric(name); err != nil {
		return nil, nil, err
	}
	vec := d.vectors[name]
	xs := make([]float64, len(d.rows))
	ok := make([]bool, len(d.rows))
	for i, id := range d.rows {
		xs[i], ok[i] = vec[id].Float64()
	}
	return xs, ok, nil
}

// UniqueValues returns the distinct non-null values of a column, ascending
// in the column's order (level order for categories).
func (d *Dataset) UniqueValues(name string) ([]Value, error) {
	col, err := d.schema.Lookup(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []Value
	vec := d.vectors[name]
	for _, id := range d.rows {
		v := vec[id]
		if v.Null || seen[v.String()] {
			continue
		}
		seen[v.String()] = true
		v.Raw = ""
		out = append(out, v)
	}
	slices.SortStableFunc(out, col.Compare)
	if out == nil {
		out = []Value{}
	}
	return out, nil
}

// WithDerivedColumn returns a new Dataset with col computed by fn for every
// row of this view. The receiver and its vectors are not modified. fn must
// return values of col.Type (or a null of that type); category values must
// be one of col.Levels when levels are declared.
func (d *Dataset) WithDerivedColumn(col Column, fn func(Row) Value) (*Dataset, error) {
	col.Derived = true
	schema, err := d.schema.with(col)
	if err != nil {
		return nil, err
	}

	vec := make([]Value, d.size)
	for i := range vec {
		vec[i] = NullOf(col.Type)
	}
	for _, id := range d.rows {
		v := fn(Row{ds: d, id: id})
		if v.Type != col.Type {
			return nil, fmt.Errorf("derived column %q: row %d produced %s, want %s", col.Name, id+1, v.Type, col.Type)
		}
		if !v.Null && col.Type == TypeCategory && len(col.Levels) > 0 && col.LevelIndex(v.Str) < 0 {
			return nil, fmt.Errorf("derived column %q: row %d label %q is not a declared level", col.Name, id+1, v.Str)
		}
		vec[id] = v
	}

	vectors := make(map[string][]Value, len(d.vectors)+1)
	for k, v := range d.vectors {
		vectors[k] = v
	}
	vectors[col.Name] = vec

	return &Dataset{schema: schema, vectors: vectors, rows: d.rows, size: d.size}, nil
}

// Subset returns a view of the rows at the given positions of this view, in
// the given order. Row contents are shared, not copied.
func (d *Dataset) Subset(positions []int) *Dataset {
	rows := make([]int, len(positions))
	for i, p := range positions {
		rows[i] = d.rows[p]
	}
	return &Dataset{schema: d.schema, vectors: d.vectors, rows: rows, size: d.size}
}

// Row is a read-only accessor to one row.
type Row struct {
	ds *Dataset
	id int
}

// ID returns the row identity.
func (r Row) ID() int { return r.id }

// Get returns the value of column name, or a string null when the column
// does not exist.
func (r Row) Get(name string) Value {
	vec, ok := r.ds.vectors[name]
	if !ok {
		return NullOf(TypeString)
	}
	return vec[r.id]
}
