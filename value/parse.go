package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fuersten/csvsqldb-sub001/csverrors"
)

// FromCSVField implements the field parsing rules of spec.md §6 for a
// single CSV field already split out by the delimiter: integer = optional
// sign + decimal digits; real = C-locale floating point; boolean =
// true|false|1|0 case-insensitive; date = YYYY-MM-DD; time = HH:MM:SS;
// timestamp = YYYY-MM-DDTHH:MM:SS; string = the raw text with quoting
// already stripped by the caller. An empty field is a typed null.
func FromCSVField(raw string, t Type) (Value, error) {
	if raw == "" {
		return Null(t), nil
	}

	switch t {
	case TypeInt:
		i, err := ToInt64(raw)
		if err != nil {
			return Value{}, csverrors.ErrCSV.New(0, fmt.Sprintf("invalid integer %q: %s", raw, err))
		}
		return NewInt(i), nil
	case TypeReal:
		f, err := ToFloat64(raw)
		if err != nil {
			return Value{}, csverrors.ErrCSV.New(0, fmt.Sprintf("invalid real %q: %s", raw, err))
		}
		return NewReal(f), nil
	case TypeBool:
		b, err := ToBool(raw)
		if err != nil {
			return Value{}, csverrors.ErrCSV.New(0, fmt.Sprintf("invalid boolean %q: %s", raw, err))
		}
		return NewBool(b), nil
	case TypeString:
		return NewString(raw), nil
	case TypeDate:
		y, mo, d, err := parseDate(raw)
		if err != nil {
			return Value{}, csverrors.ErrCSV.New(0, fmt.Sprintf("invalid date %q: %s", raw, err))
		}
		return NewDate(y, mo, d), nil
	case TypeTime:
		h, mi, se, err := parseTime(raw)
		if err != nil {
			return Value{}, csverrors.ErrCSV.New(0, fmt.Sprintf("invalid time %q: %s", raw, err))
		}
		return NewTime(h, mi, se), nil
	case TypeTimestamp:
		parts := strings.SplitN(raw, "T", 2)
		if len(parts) != 2 {
			return Value{}, csverrors.ErrCSV.New(0, fmt.Sprintf("invalid timestamp %q", raw))
		}
		y, mo, d, err := parseDate(parts[0])
		if err != nil {
			return Value{}, csverrors.ErrCSV.New(0, fmt.Sprintf("invalid timestamp %q: %s", raw, err))
		}
		h, mi, se, err := parseTime(parts[1])
		if err != nil {
			return Value{}, csverrors.ErrCSV.New(0, fmt.Sprintf("invalid timestamp %q: %s", raw, err))
		}
		return NewTimestamp(y, mo, d, h, mi, se), nil
	default:
		return Value{}, csverrors.ErrCSV.New(0, fmt.Sprintf("unsupported column type %s", t))
	}
}

func parseDate(raw string) (int, int, int, error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("expected YYYY-MM-DD")
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, err
	}
	mo, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, err
	}
	d, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, err
	}
	return y, mo, d, nil
}

func parseTime(raw string) (int, int, int, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("expected HH:MM:SS")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, err
	}
	mi, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, err
	}
	se, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, err
	}
	return h, mi, se, nil
}

// ParseDateLiteral parses a SQL DATE'YYYY-MM-DD' literal body.
func ParseDateLiteral(raw string) (Value, error) {
	y, mo, d, err := parseDate(raw)
	if err != nil {
		return Value{}, csverrors.ErrEvaluation.New(fmt.Sprintf("invalid date literal %q: %s", raw, err))
	}
	return NewDate(y, mo, d), nil
}

// ParseTimeLiteral parses a SQL TIME'HH:MM:SS' literal body.
func ParseTimeLiteral(raw string) (Value, error) {
	h, mi, se, err := parseTime(raw)
	if err != nil {
		return Value{}, csverrors.ErrEvaluation.New(fmt.Sprintf("invalid time literal %q: %s", raw, err))
	}
	return NewTime(h, mi, se), nil
}

// ParseTimestampLiteral parses a SQL TIMESTAMP'YYYY-MM-DDTHH:MM:SS' literal
// body.
func ParseTimestampLiteral(raw string) (Value, error) {
	parts := strings.SplitN(raw, "T", 2)
	if len(parts) != 2 {
		return Value{}, csverrors.ErrEvaluation.New(fmt.Sprintf("invalid timestamp literal %q", raw))
	}
	y, mo, d, err := parseDate(parts[0])
	if err != nil {
		return Value{}, csverrors.ErrEvaluation.New(fmt.Sprintf("invalid timestamp literal %q: %s", raw, err))
	}
	h, mi, se, err := parseTime(parts[1])
	if err != nil {
		return Value{}, csverrors.ErrEvaluation.New(fmt.Sprintf("invalid timestamp literal %q: %s", raw, err))
	}
	return NewTimestamp(y, mo, d, h, mi, se), nil
}
