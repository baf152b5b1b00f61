package dataset

import (
	"fmt"

	"gradelens/domain/core"
)

// Schema is a fixed, ordered list of columns with name lookup.
type Schema struct {
	columns []Column
	index   map[string]int
}

// NewSchema builds a schema, rejecting duplicate or empty names.
func NewSchema(columns ...Column) (*Schema, error) {
	s := &Schema{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("column name cannot be empty")
		}
		if _, dup := s.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		s.index[c.Name] = len(s.columns)
		s.columns = append(s.columns, c)
	}
	return s, nil
}

// Len returns the number of columns.
func (s *Schema) Len() int { return len(s.columns) }

// Columns returns a copy of the column list in schema order.
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Names returns the column names in schema order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.Name
	}
	return out
}

// SourceColumns returns the non-derived columns, which make up the export schema.
func (s *Schema) SourceColumns() []Column {
	out := make([]Column, 0, len(s.columns))
	for _, c := range s.columns {
		if !c.Derived {
			out = append(out, c)
		}
	}
	return out
}

// Has reports whether name is a column of the schema.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Column returns the column definition by name.
func (s *Schema) Column(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// Lookup is Column with a ColumnNotFound error.
func (s *Schema) Lookup(name string) (Column, error) {
	c, ok := s.Column(name)
	if !ok {
		return Column{}, core.NewColumnNotFoundError(name)
	}
	return c, nil
}

// LookupNumeric is Lookup restricted to int and float columns.
func (s *Schema) LookupNumeric(name string) (Column, error) {
	c, err := s.Lookup(name)
	if err != nil {
		return Column{}, err
	}
	if !c.Type.IsNumeric() {
		return Column{}, core.NewNotNumericError(name)
	}
	return c, nil
}

// with returns a new schema with col appended. The receiver is untouched.
func (s *Schema) with(col Column) (*Schema, error) {
	if s.Has(col.Name) {
		return nil, fmt.Errorf("column %q already exists", col.Name)
	}
	cols := append(s.Columns(), col)
	return NewSchema(cols...)
}
