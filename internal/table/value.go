package table

import (
	"strconv"
	"time"
)

// Kind is the dynamic type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindDate
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// DateLayout is the canonical rendering of date values.
const DateLayout = "2006-01-02"

// Value is one typed cell. The zero Value is null.
type Value struct {
	Kind Kind
	S    string
	N    float64
	T    time.Time
	B    bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// Str wraps a string.
func Str(s string) Value { return Value{Kind: KindString, S: s} }

// Num wraps a number.
func Num(n float64) Value { return Value{Kind: KindNumber, N: n} }

// Date wraps a calendar date or timestamp.
func Date(t time.Time) Value { return Value{Kind: KindDate, T: t} }

// Bool wraps a flag.
func Bool(b bool) Value { return Value{Kind: KindBool, B: b} }

// IsNull reports whether the cell is absent.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// String renders the value the way it is written back to a delimited file.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.S
	case KindNumber:
		return strconv.FormatFloat(v.N, 'f', -1, 64)
	case KindDate:
		return v.T.Format(DateLayout)
	case KindBool:
		if v.B {
			return "True"
		}
		return "False"
	default:
		return ""
	}
}

// Key is a kind-qualified identity used for equality, grouping and counting.
func (v Value) Key() string {
	if v.Kind == KindNull {
		return "\x00"
	}
	return strconv.Itoa(int(v.Kind)) + ":" + v.String()
}

// Equal compares two values by kind and rendered content.
func (v Value) Equal(o Value) bool { return v.Key() == o.Key() }

// Float returns the numeric content. String cells are parsed leniently.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.N, true
	case KindString:
		return ParseNumber(v.S)
	default:
		return 0, false
	}
}

// Text returns the string content of a non-null value.
func (v Value) Text() (string, bool) {
	if v.Kind == KindNull {
		return "", false
	}
	return v.String(), true
}
