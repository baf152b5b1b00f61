package dataset

import (
	"fmt"
	"strings"

	"gradelens/domain/core"
)

// Build turns a raw header and string rows into a Dataset under the declared
// columns.
//
// Declared required columns must appear in the header (SchemaError lists all
// that are missing). Declared optional columns may be absent and are then
// left out of the schema. Header columns that nothing declares are kept as
// optional string columns so the table can be exported unchanged. Every cell
// is coerced once here; the first failure is returned as a ParseError.
func Build(header []string, rows [][]string, declared []Column) (*Dataset, error) {
	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			return nil, fmt.Errorf("%w: header column %d is empty", core.ErrSchema, i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate header column %q", core.ErrSchema, name)
		}
		seen[name] = true
		names[i] = name
	}

	byName := make(map[string]Column, len(declared))
	var missing []string
	for _, c := range declared {
		byName[c.Name] = c
		if c.Required && !seen[c.Name] {
			missing = append(missing, c.Name)
		}
	}
	if len(missing) > 0 {
		return nil, &core.SchemaError{Missing: missing}
	}

	columns := make([]Column, len(names))
	for i, name := range names {
		if c, ok := byName[name]; ok {
			columns[i] = c
			continue
		}
		columns[i] = Column{Name: name, Type: TypeString}
	}
	schema, err := NewSchema(columns...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSchema, err)
	}

	vectors := make(map[string][]Value, len(columns))
	for _, c := range columns {
		vectors[c.Name] = make([]Value, 0, len(rows))
	}

	count := 0
	for r, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if len(row) > len(columns) {
			return nil, &core.ParseError{
				Row:    r + 1,
				Value:  strings.Join(row[len(columns):], ","),
				Reason: fmt.Sprintf("row has %d cells, header has %d", len(row), len(columns)),
			}
		}
		for i, c := range columns {
			raw := ""
			if i < len(row) {
				raw = row[i]
			}
			v, err := c.Parse(raw)
			if err != nil {
				return nil, &core.ParseError{Column: c.Name, Row: r + 1, Value: raw, Reason: err.Error()}
			}
			vectors[c.Name] = append(vectors[c.Name], v)
		}
		count++
	}

	return New(schema, vectors, count)
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
