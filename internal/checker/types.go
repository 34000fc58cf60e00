package checker

import (
	"errors"
	"fmt"
	"strconv"
)

// Type represents a semantic type with a symbolic (solver) representation
type Type int

const (
	TypeInteger Type = iota
	TypeDecimal
	TypeString
	TypeBool
	TypeTime
	TypeKeySet
)

// String returns the surface name of the type
func (t Type) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeDecimal:
		return "decimal"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeTime:
		return "time"
	case TypeKeySet:
		return "keyset"
	default:
		return "unknown"
	}
}

// Numeric reports whether the type supports arithmetic
func (t Type) Numeric() bool {
	return t == TypeInteger || t == TypeDecimal
}

// ErrNoSymbolicType marks a declared type that cannot be represented
// symbolically; it aborts environment construction for the enclosing module.
var ErrNoSymbolicType = errors.New("no symbolic representation")

// TranslateType maps a declared type name to its semantic type. Types
// without a solver encoding (lists, objects, modules) fail with
// ErrNoSymbolicType.
func TranslateType(name string) (Type, error) {
	switch name {
	case "integer":
		return TypeInteger, nil
	case "decimal":
		return TypeDecimal, nil
	case "string":
		return TypeString, nil
	case "bool":
		return TypeBool, nil
	case "time":
		return TypeTime, nil
	case "keyset":
		return TypeKeySet, nil
	default:
		return 0, fmt.Errorf("type %q: %w", name, ErrNoSymbolicType)
	}
}

// Value is a concrete value of a semantic type, produced by model
// saturation and carried in counterexamples and witnesses.
type Value struct {
	Type    Type
	Integer int64
	Decimal float64
	String  string
	Bool    bool
}

// Render formats the value as surface syntax
func (v Value) Render() string {
	switch v.Type {
	case TypeInteger, TypeTime:
		return strconv.FormatInt(v.Integer, 10)
	case TypeDecimal:
		return strconv.FormatFloat(v.Decimal, 'f', -1, 64)
	case TypeString, TypeKeySet:
		return strconv.Quote(v.String)
	case TypeBool:
		return strconv.FormatBool(v.Bool)
	default:
		return "<value>"
	}
}
