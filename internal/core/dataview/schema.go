// internal/core/dataview/schema.go
package dataview

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnknownField is returned when a field name is not part of a schema
var ErrUnknownField = errors.New("unknown field")

// Kind is the primitive type of a row field
type Kind int

// Field kinds
const (
	KindString Kind = iota
	KindNumber
	KindTime
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// SelectionMode controls how many values a multi-select filter keeps
type SelectionMode int

// Selection modes
const (
	SelectMulti SelectionMode = iota
	SelectSingle
)

// Value is a single typed field value extracted from a row
type Value struct {
	Kind Kind
	Str  string
	Num  decimal.Decimal
	Time time.Time
}

// String builds a string value
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Enum builds an enum value
func Enum[E ~string](e E) Value { return Value{Kind: KindEnum, Str: string(e)} }

// Number builds a numeric value
func Number(d decimal.Decimal) Value { return Value{Kind: KindNumber, Num: d} }

// Int builds a numeric value from an integer
func Int(n int64) Value { return Number(decimal.NewFromInt(n)) }

// Time builds a timestamp value. The zero time marks an unknown timestamp.
func Time(t time.Time) Value { return Value{Kind: KindTime, Time: t} }

// Valid reports whether a timestamp value carries a usable instant
func (v Value) Valid() bool {
	if v.Kind == KindTime {
		return !v.Time.IsZero()
	}
	return true
}

// Text renders the value as the string used for search and selection matching
func (v Value) Text() string {
	switch v.Kind {
	case KindNumber:
		return v.Num.String()
	case KindTime:
		if v.Time.IsZero() {
			return ""
		}
		return v.Time.UTC().Format(time.RFC3339)
	default:
		return v.Str
	}
}

// Compare orders two values of the same kind by their natural order
func Compare(a, b Value) int {
	switch a.Kind {
	case KindNumber:
		return a.Num.Cmp(b.Num)
	case KindTime:
		return a.Time.Compare(b.Time)
	default:
		return strings.Compare(a.Str, b.Str)
	}
}

// Field describes one named column of a row type
type Field[T any] struct {
	Name       string
	Kind       Kind
	Get        func(T) Value
	Searchable bool
	Selectable bool
	Mode       SelectionMode
	// FreeText values may hold delimiters and are left out of CSV exports
	FreeText bool
}

// Schema describes the fields and key of a row type
type Schema[T any] struct {
	Key    func(T) string
	fields []Field[T]
	index  map[string]int
}

// NewSchema builds a schema from a key accessor and ordered fields
func NewSchema[T any](key func(T) string, fields ...Field[T]) *Schema[T] {
	s := &Schema[T]{
		Key:    key,
		fields: fields,
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		s.index[f.Name] = i
	}
	return s
}

// Field looks up a field by name
func (s *Schema[T]) Field(name string) (Field[T], bool) {
	i, ok := s.index[name]
	if !ok {
		return Field[T]{}, false
	}
	return s.fields[i], true
}

// Fields returns the fields in declaration order
func (s *Schema[T]) Fields() []Field[T] {
	out := make([]Field[T], len(s.fields))
	copy(out, s.fields)
	return out
}

// Searchable returns the fields matched by free-text search
func (s *Schema[T]) Searchable() []Field[T] {
	var out []Field[T]
	for _, f := range s.fields {
		if f.Searchable {
			out = append(out, f)
		}
	}
	return out
}

// Selectable returns the fields that accept multi-select filters
func (s *Schema[T]) Selectable() []Field[T] {
	var out []Field[T]
	for _, f := range s.fields {
		if f.Selectable {
			out = append(out, f)
		}
	}
	return out
}

// Facets returns the distinct values of a field in first-seen order
func (s *Schema[T]) Facets(rows []T, name string) ([]string, error) {
	f, ok := s.Field(name)
	if !ok {
		return nil, ErrUnknownField
	}
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rows {
		v := f.Get(r).Text()
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}
