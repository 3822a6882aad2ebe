package database

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DataType is a PostgreSQL column type from the supported catalog.
type DataType struct {
	name string
}

// String returns the type as it appears in DDL.
func (d DataType) String() string {
	return d.name
}

// IsZero reports whether the type is unset.
func (d DataType) IsZero() bool {
	return d.name == ""
}

// Fixed types.
var (
	SmallInt        = DataType{"SMALLINT"}
	Integer         = DataType{"INTEGER"}
	BigInt          = DataType{"BIGINT"}
	Serial          = DataType{"SERIAL"}
	BigSerial       = DataType{"BIGSERIAL"}
	Real            = DataType{"REAL"}
	DoublePrecision = DataType{"DOUBLE PRECISION"}
	Text            = DataType{"TEXT"}
	Date            = DataType{"DATE"}
	Time            = DataType{"TIME"}
	Timestamp       = DataType{"TIMESTAMP"}
	TimestampTZ     = DataType{"TIMESTAMPTZ"}
	Boolean         = DataType{"BOOLEAN"}
	UUID            = DataType{"UUID"}
	JSONB           = DataType{"JSONB"}
)

// Numeric is a fixed-point number. A zero precision leaves both precision
// and scale unconstrained; a zero scale gives NUMERIC(precision).
func Numeric(precision, scale int) DataType {
	switch {
	case precision <= 0:
		return DataType{"NUMERIC"}
	case scale <= 0:
		return DataType{fmt.Sprintf("NUMERIC(%d)", precision)}
	default:
		return DataType{fmt.Sprintf("NUMERIC(%d, %d)", precision, scale)}
	}
}

// Decimal is an alias of Numeric.
func Decimal(precision, scale int) DataType {
	return Numeric(precision, scale)
}

// Char is fixed-length text. A non-positive length gives CHAR.
func Char(length int) DataType {
	if length <= 0 {
		return DataType{"CHAR"}
	}
	return DataType{fmt.Sprintf("CHAR(%d)", length)}
}

// Varchar is variable-length text with a limit. A non-positive length
// gives an unbounded VARCHAR.
func Varchar(length int) DataType {
	if length <= 0 {
		return DataType{"VARCHAR"}
	}
	return DataType{fmt.Sprintf("VARCHAR(%d)", length)}
}

// Expr is a default value written into DDL verbatim, for example
// database.Expr("CURRENT_TIMESTAMP").
type Expr string

// defaultLiteral renders a column default: strings quoted, numbers bare,
// booleans as TRUE/FALSE.
func defaultLiteral(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'", nil
	case Expr:
		return string(x), nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.FormatInt(int64(x), 10), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	default:
		return "", fmt.Errorf("%w: %T", ErrInvalidDefault, v)
	}
}

func formatFloat(f float64, bits int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v", ErrInvalidDefault, f)
	}
	return strconv.FormatFloat(f, 'f', -1, bits), nil
}
