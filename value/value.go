package value

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/cast"

	"github.com/fuersten/csvsqldb-sub001/csverrors"
)

// Value is a tagged variant. It is a plain struct of comparable fields
// (never a slice or pointer) so that it can be used directly as a Go map
// key by the hashing and grouping block iterators (spec.md §4.7).
//
// A String value's disconnected flag distinguishes an owned copy (safe to
// outlive the block it was read from) from a reference into a block's
// backing buffer (spec.md §3.1's isDisconnected predicate). Every other
// type is trivially disconnected since it carries no external reference.
type Value struct {
	typ          Type
	null         bool
	i            int64
	f            float64
	s            string
	y, mo, d     int
	h, mi, se    int
	disconnected bool
}

// Null returns a typed null value, per spec.md §3.1 ("every value carries
// its type tag even when null").
func Null(t Type) Value { return Value{typ: t, null: true, disconnected: true} }

func NewBool(b bool) Value {
	v := Value{typ: TypeBool, disconnected: true}
	if b {
		v.i = 1
	}
	return v
}

func NewInt(i int64) Value { return Value{typ: TypeInt, i: i, disconnected: true} }

func NewReal(f float64) Value { return Value{typ: TypeReal, f: f, disconnected: true} }

// NewString returns an owned (disconnected) string value.
func NewString(s string) Value { return Value{typ: TypeString, s: s, disconnected: true} }

// NewStringRef returns a string value that references memory owned by a
// block. Callers must call Disconnect before letting the value outlive the
// block's lifetime.
func NewStringRef(s string) Value { return Value{typ: TypeString, s: s, disconnected: false} }

func NewDate(y, mo, d int) Value {
	return Value{typ: TypeDate, y: y, mo: mo, d: d, disconnected: true}
}

func NewTime(h, mi, se int) Value {
	return Value{typ: TypeTime, h: h, mi: mi, se: se, disconnected: true}
}

func NewTimestamp(y, mo, d, h, mi, se int) Value {
	return Value{typ: TypeTimestamp, y: y, mo: mo, d: d, h: h, mi: mi, se: se, disconnected: true}
}

func (v Value) Type() Type       { return v.typ }
func (v Value) IsNull() bool     { return v.null }
func (v Value) IsDisconnected() bool { return v.disconnected }

// Disconnect returns a copy of v that owns its own memory, making a fresh
// copy of the string payload if v references block-owned memory.
func (v Value) Disconnect() Value {
	if v.disconnected {
		return v
	}
	cp := v
	cp.s = strings.Clone(v.s)
	cp.disconnected = true
	return cp
}

func (v Value) Bool() bool { return v.i != 0 }
func (v Value) Int() int64 { return v.i }
func (v Value) Real() float64 { return v.f }
func (v Value) Str() string { return v.s }
func (v Value) Date() (int, int, int) { return v.y, v.mo, v.d }
func (v Value) Time() (int, int, int) { return v.h, v.mi, v.se }
func (v Value) Timestamp() (int, int, int, int, int, int) {
	return v.y, v.mo, v.d, v.h, v.mi, v.se
}

// Hash returns a stable hash of v's logical content, used by the hashing
// and grouping block iterators (spec.md §4.7) and satisfies
// mitchellh/hashstructure's Hashable interface so composite group keys can
// be hashed by that library without reflecting into Value's unexported
// fields.
func (v Value) Hash() (uint64, error) {
	if v.null {
		return xxhash.Sum64String(fmt.Sprintf("N:%d", v.typ)), nil
	}
	switch v.typ {
	case TypeBool, TypeInt:
		return xxhash.Sum64String(fmt.Sprintf("I:%d:%d", v.typ, v.i)), nil
	case TypeReal:
		return xxhash.Sum64String(fmt.Sprintf("F:%f", v.f)), nil
	case TypeString:
		return xxhash.Sum64String("S:" + v.s), nil
	case TypeDate:
		return xxhash.Sum64String(fmt.Sprintf("D:%04d-%02d-%02d", v.y, v.mo, v.d)), nil
	case TypeTime:
		return xxhash.Sum64String(fmt.Sprintf("T:%02d:%02d:%02d", v.h, v.mi, v.se)), nil
	case TypeTimestamp:
		return xxhash.Sum64String(fmt.Sprintf("TS:%04d-%02d-%02dT%02d:%02d:%02d", v.y, v.mo, v.d, v.h, v.mi, v.se)), nil
	default:
		return 0, csverrors.ErrEvaluation.New(fmt.Sprintf("cannot hash value of type %s", v.typ))
	}
}

// Format renders v the way the output sink writes CSV fields (spec.md
// §4.8): strings single-quoted, nulls as NULL, dates as YYYY-MM-DD, times
// as HH:MM:SS, timestamps as YYYY-MM-DDThh:mm:ss, booleans as true/false,
// reals with %f.
func (v Value) Format() string {
	if v.null {
		return "NULL"
	}
	switch v.typ {
	case TypeBool:
		return fmt.Sprintf("%t", v.Bool())
	case TypeInt:
		return fmt.Sprintf("%d", v.i)
	case TypeReal:
		return fmt.Sprintf("%f", v.f)
	case TypeString:
		return "'" + v.s + "'"
	case TypeDate:
		return fmt.Sprintf("%04d-%02d-%02d", v.y, v.mo, v.d)
	case TypeTime:
		return fmt.Sprintf("%02d:%02d:%02d", v.h, v.mi, v.se)
	case TypeTimestamp:
		return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d", v.y, v.mo, v.d, v.h, v.mi, v.se)
	default:
		return ""
	}
}

func (v Value) String() string { return v.Format() }

// AsInterface converts v to a plain Go value, using spf13/cast-friendly
// primitive types, for callers (e.g. hashstructure) that want a plain
// comparable value rather than Value's internal layout.
func (v Value) AsInterface() interface{} {
	if v.null {
		return nil
	}
	switch v.typ {
	case TypeBool:
		return v.Bool()
	case TypeInt:
		return v.i
	case TypeReal:
		return v.f
	case TypeString:
		return v.s
	default:
		return v.Format()
	}
}

// ToInt64 coerces raw to an int64 using spf13/cast, honoring the loose
// boolean/numeric/string coercions CSV field parsing relies on.
func ToInt64(raw string) (int64, error) {
	return cast.ToInt64E(raw)
}

// ToFloat64 coerces raw to a float64 using spf13/cast.
func ToFloat64(raw string) (float64, error) {
	return cast.ToFloat64E(raw)
}

// ToBool coerces raw to a bool, accepting true|false|1|0 case-insensitively
// per spec.md §6.
func ToBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return cast.ToBoolE(raw)
	}
}
