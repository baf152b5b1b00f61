package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gradelens/domain/core"
	"gradelens/domain/dataset"
	"gradelens/domain/query"
)

// compiledPredicate is a predicate resolved against a column.
type compiledPredicate struct {
	column  string
	between bool
	literal dataset.Value
	min     float64
	max     float64
	none    bool
}

func (p compiledPredicate) match(v dataset.Value) bool {
	if p.none {
		return false
	}
	if p.between {
		f, ok := v.Float64()
		return ok && f >= p.min && f <= p.max
	}
	return v.Equal(p.literal)
}

// Filter returns the rows of ds that satisfy every predicate of fs.
//
// The whole set is validated before the scan: an unknown column fails with
// ErrColumnNotFound, a range with min > max or on a non-numeric column with
// ErrInvalidRange, a predicate without a known op with ErrInvalidQuery, and a
// literal that does not parse as a number on a numeric column with ErrParse.
// A literal that is not one of a category's levels matches no rows. The result shares row identity with ds; zero rows is a valid
// result.
func Filter(ds *dataset.Dataset, fs query.FilterSet) (*dataset.Dataset, error) {
	preds, err := compileFilters(ds.Schema(), fs)
	if err != nil {
		return nil, err
	}
	if len(preds) == 0 {
		return ds, nil
	}

	positions := make([]int, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		if matchesAll(ds, i, preds) {
			positions = append(positions, i)
		}
	}
	return ds.Subset(positions), nil
}

func matchesAll(ds *dataset.Dataset, i int, preds []compiledPredicate) bool {
	for _, p := range preds {
		if !p.match(ds.Value(i, p.column)) {
			return false
		}
	}
	return true
}

func compileFilters(schema *dataset.Schema, fs query.FilterSet) ([]compiledPredicate, error) {
	var out []compiledPredicate
	for _, name := range fs.Columns() {
		col, err := schema.Lookup(name)
		if err != nil {
			return nil, err
		}
		for _, p := range fs[name] {
			if p.IsAll() {
				continue
			}
			switch p.Kind {
			case query.PredicateBetween:
				if !col.Type.IsNumeric() {
					return nil, fmt.Errorf("%w: range on non-numeric column %q", core.ErrInvalidRange, name)
				}
				if math.IsNaN(p.Min) || math.IsNaN(p.Max) || p.Min > p.Max {
					return nil, core.NewInvalidRangeError(name, p.Min, p.Max)
				}
				out = append(out, compiledPredicate{column: name, between: true, min: p.Min, max: p.Max})
			case query.PredicateEquals:
				lit, err := parseLiteral(col, p.Value)
				if err != nil {
					if col.Type == dataset.TypeCategory {
						out = append(out, compiledPredicate{column: name, none: true})
						continue
					}
					return nil, err
				}
				out = append(out, compiledPredicate{column: name, literal: lit})
			case "":
				return nil, fmt.Errorf("%w: filter on %q has no op", core.ErrInvalidQuery, name)
			default:
				return nil, fmt.Errorf("%w: unknown predicate %q on %q", core.ErrInvalidQuery, p.Kind, name)
			}
		}
	}
	return out, nil
}

// parseLiteral coerces an equality literal to the column type. Domain bounds
// are not enforced: an out-of-domain literal simply matches nothing.
func parseLiteral(col dataset.Column, literal string) (dataset.Value, error) {
	col.Required = false
	col.Domain = nil
	v, err := col.Parse(literal)
	if err != nil {
		return dataset.Value{}, &core.ParseError{Column: col.Name, Value: literal, Reason: err.Error()}
	}
	return v, nil
}

// ParseFilterArgs parses expressions of the form column=value or
// column=min..max into a FilterSet. Repeated columns are AND-ed.
func ParseFilterArgs(args []string) (query.FilterSet, error) {
	fs := query.FilterSet{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: filter %q is not column=value", core.ErrParse, arg)
		}
		value = strings.TrimSpace(value)
		if lo, hi, isRange := strings.Cut(value, ".."); isRange {
			min, errMin := strconv.ParseFloat(strings.TrimSpace(lo), 64)
			max, errMax := strconv.ParseFloat(strings.TrimSpace(hi), 64)
			if errMin != nil || errMax != nil {
				return nil, fmt.Errorf("%w: filter %q has a malformed range", core.ErrParse, arg)
			}
			fs.Add(name, query.Between(min, max))
			continue
		}
		fs.Add(name, query.Equals(value))
	}
	return fs, nil
}
