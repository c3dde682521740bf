package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind is the variant held by a Scalar.
type Kind int

const (
	Null Kind = iota
	String
	Number
	Boolean
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Scalar is a value read back from the page: null, string, number or boolean.
// The zero Scalar is null. JavaScript undefined is read back as null.
type Scalar struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// NullValue returns the null Scalar.
func NullValue() Scalar { return Scalar{} }

// StringValue wraps a string.
func StringValue(s string) Scalar { return Scalar{kind: String, str: s} }

// NumberValue wraps a number.
func NumberValue(f float64) Scalar { return Scalar{kind: Number, num: f} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Scalar { return Scalar{kind: Boolean, b: b} }

// Kind reports which variant s holds.
func (s Scalar) Kind() Kind { return s.kind }

// IsNull reports whether s is null.
func (s Scalar) IsNull() bool { return s.kind == Null }

// Text narrows s to a string.
func (s Scalar) Text() (string, error) {
	if s.kind != String {
		return "", &TypeError{Want: String.String(), Got: s.kind.String()}
	}
	return s.str, nil
}

// Number narrows s to a number.
func (s Scalar) Number() (float64, error) {
	if s.kind != Number {
		return 0, &TypeError{Want: Number.String(), Got: s.kind.String()}
	}
	return s.num, nil
}

// Bool narrows s to a boolean.
func (s Scalar) Bool() (bool, error) {
	if s.kind != Boolean {
		return false, &TypeError{Want: Boolean.String(), Got: s.kind.String()}
	}
	return s.b, nil
}

// Interface returns s as nil, string, float64 or bool.
func (s Scalar) Interface() interface{} {
	switch s.kind {
	case String:
		return s.str
	case Number:
		return s.num
	case Boolean:
		return s.b
	default:
		return nil
	}
}

func (s Scalar) String() string {
	switch s.kind {
	case String:
		return s.str
	case Number:
		return formatNumber(s.num)
	case Boolean:
		return strconv.FormatBool(s.b)
	default:
		return "null"
	}
}

// MarshalJSON encodes s as its JSON scalar. Non-finite numbers have no JSON
// form and are encoded as their JavaScript spelling in a string.
func (s Scalar) MarshalJSON() ([]byte, error) {
	if s.kind == Number && (math.IsNaN(s.num) || math.IsInf(s.num, 0)) {
		return json.Marshal(formatNumber(s.num))
	}
	return json.Marshal(s.Interface())
}

// ParseJSON decodes a JSON-encoded scalar. Arrays and objects are rejected
// with a *TypeError.
func ParseJSON(raw []byte) (Scalar, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return NullValue(), nil
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return Scalar{}, fmt.Errorf("decoding value: %w", err)
	}

	switch val := v.(type) {
	case nil:
		return NullValue(), nil
	case string:
		return StringValue(val), nil
	case float64:
		return NumberValue(val), nil
	case bool:
		return BoolValue(val), nil
	case []interface{}:
		return Scalar{}, &TypeError{Want: "scalar", Got: "array"}
	default:
		return Scalar{}, &TypeError{Want: "scalar", Got: "object"}
	}
}

// ParseUnserializable decodes the DevTools spelling of numbers JSON cannot
// carry: NaN, Infinity, -Infinity and -0.
func ParseUnserializable(v string) (Scalar, error) {
	switch v {
	case "NaN":
		return NumberValue(math.NaN()), nil
	case "Infinity":
		return NumberValue(math.Inf(1)), nil
	case "-Infinity":
		return NumberValue(math.Inf(-1)), nil
	case "-0":
		return NumberValue(math.Copysign(0, -1)), nil
	default:
		return Scalar{}, &TypeError{Want: "scalar", Got: "unserializable " + v}
	}
}

// FromRemote converts the fields of a DevTools Runtime.RemoteObject
// evaluated with returnByValue into a Scalar. All three page drivers share it.
func FromRemote(typ, subtype string, value []byte, unserializable string) (Scalar, error) {
	switch typ {
	case "undefined":
		return NullValue(), nil
	case "string", "boolean":
		return ParseJSON(value)
	case "number":
		if unserializable != "" {
			return ParseUnserializable(unserializable)
		}
		return ParseJSON(value)
	case "object":
		if subtype == "null" {
			return NullValue(), nil
		}
		if subtype != "" {
			return Scalar{}, &TypeError{Want: "scalar", Got: subtype}
		}
		return Scalar{}, &TypeError{Want: "scalar", Got: "object"}
	default:
		return Scalar{}, &TypeError{Want: "scalar", Got: typ}
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

// Literal renders f as a JavaScript number literal.
func Literal(f float64) string {
	return formatNumber(f)
}
