package dataset

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ColumnType is the declared type of a column. Types are homogeneous across rows.
type ColumnType string

const (
	TypeString   ColumnType = "string"
	TypeInt      ColumnType = "int"
	TypeFloat    ColumnType = "float"
	TypeCategory ColumnType = "category"
)

// IsNumeric reports whether values of this type carry a number.
func (t ColumnType) IsNumeric() bool {
	return t == TypeInt || t == TypeFloat
}

// Interval is an inclusive numeric domain.
type Interval struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies within [Min, Max].
func (i Interval) Contains(v float64) bool {
	return v >= i.Min && v <= i.Max
}

// Column describes one column of a Dataset.
type Column struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Required bool       `json:"required"`
	// Levels is the explicit ordering of a category column. Every downstream
	// sort of this column follows it instead of lexical order.
	Levels  []string  `json:"levels,omitempty"`
	Domain  *Interval `json:"domain,omitempty"`
	Derived bool      `json:"derived,omitempty"`
}

// LevelIndex returns the position of label in Levels, or -1.
func (c Column) LevelIndex(label string) int {
	for i, l := range c.Levels {
		if l == label {
			return i
		}
	}
	return -1
}

// Compare orders two values of this column: level order for categories,
// numeric order for numbers, lexical order for strings. Nulls sort last.
func (c Column) Compare(a, b Value) int {
	switch {
	case a.Null && b.Null:
		return 0
	case a.Null:
		return 1
	case b.Null:
		return -1
	}

	if len(c.Levels) > 0 {
		ia, ib := c.LevelIndex(a.Str), c.LevelIndex(b.Str)
		switch {
		case ia >= 0 && ib >= 0:
			return cmp.Compare(ia, ib)
		case ia >= 0:
			return -1
		case ib >= 0:
			return 1
		}
		return strings.Compare(a.Str, b.Str)
	}

	if c.Type.IsNumeric() {
		return cmp.Compare(a.Num, b.Num)
	}
	return strings.Compare(a.Str, b.Str)
}

// nullMarkers are cell spellings treated as an absent value.
var nullMarkers = map[string]bool{
	"":     true,
	"nan":  true,
	"na":   true,
	"n/a":  true,
	"null": true,
}

// IsNullText reports whether raw spells a missing value.
func IsNullText(raw string) bool {
	return nullMarkers[strings.ToLower(strings.TrimSpace(raw))]
}

// Parse coerces raw cell text to this column's type. The returned error is a
// plain reason; callers attach column and row context.
func (c Column) Parse(raw string) (Value, error) {
	text := strings.TrimSpace(raw)
	if IsNullText(text) {
		if c.Required {
			return Value{}, fmt.Errorf("missing value in required column")
		}
		v := NullOf(c.Type)
		v.Raw = raw
		return v, nil
	}

	var v Value
	switch c.Type {
	case TypeString:
		v = String(text)
	case TypeCategory:
		label, ok := c.matchLevel(text)
		if !ok {
			return Value{}, fmt.Errorf("not one of [%s]", strings.Join(c.Levels, ", "))
		}
		v = Category(label)
	case TypeInt:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return Value{}, fmt.Errorf("not an integer")
		}
		v = Int(int64(f))
	case TypeFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, fmt.Errorf("not a number")
		}
		v = Float(f)
	default:
		return Value{}, fmt.Errorf("unknown column type %q", c.Type)
	}

	if c.Domain != nil && c.Type.IsNumeric() && !c.Domain.Contains(v.Num) {
		return Value{}, fmt.Errorf("outside domain [%g, %g]", c.Domain.Min, c.Domain.Max)
	}

	v.Raw = raw
	return v, nil
}

// matchLevel finds the canonical level for text, ignoring case. A category
// without levels accepts any text.
func (c Column) matchLevel(text string) (string, bool) {
	if len(c.Levels) == 0 {
		return text, true
	}
	for _, l := range c.Levels {
		if strings.EqualFold(l, text) {
			return l, true
		}
	}
	return "", false
}

// Value is one typed cell. Values are immutable and passed by value.
type Value struct {
	Type ColumnType `json:"type"`
	Null bool       `json:"null,omitempty"`
	Str  string     `json:"str,omitempty"`
	Num  float64    `json:"num,omitempty"`
	// Raw is the source text, kept so export reproduces the input exactly.
	// Derived values have no Raw.
	Raw string `json:"-"`
}

func String(s string) Value     { return Value{Type: TypeString, Str: s} }
func Category(l string) Value   { return Value{Type: TypeCategory, Str: l} }
func Int(i int64) Value         { return Value{Type: TypeInt, Num: float64(i)} }
func Float(f float64) Value     { return Value{Type: TypeFloat, Num: f} }
func NullOf(t ColumnType) Value { return Value{Type: t, Null: true} }

// Float64 returns the numeric value and whether it is defined.
func (v Value) Float64() (float64, bool) {
	if v.Null || !v.Type.IsNumeric() {
		return 0, false
	}
	return v.Num, true
}

// String returns the display label: the text for strings and categories, the
// shortest exact decimal form for numbers, "" for null.
func (v Value) String() string {
	if v.Null {
		return ""
	}
	switch v.Type {
	case TypeInt:
		return strconv.FormatInt(int64(v.Num), 10)
	case TypeFloat:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return v.Str
	}
}

// Text returns the original source text when present, else the label.
func (v Value) Text() string {
	if v.Raw != "" {
		return v.Raw
	}
	return v.String()
}

// Equal compares type, nullness and content. Raw text is ignored.
func (v Value) Equal(o Value) bool {
	if v.Null || o.Null {
		return v.Null == o.Null && v.Type == o.Type
	}
	if v.Type.IsNumeric() && o.Type.IsNumeric() {
		return v.Num == o.Num
	}
	return v.Type == o.Type && v.Str == o.Str
}
