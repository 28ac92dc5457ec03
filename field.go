package kestrel

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the semantic type of a parameter field.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindDecimal
	KindBool
	KindEnum
	KindStrings
	KindDuration
	KindTime
	KindObject
)

var kindNames = [...]string{
	KindString:   "string",
	KindInt:      "int",
	KindFloat:    "float",
	KindDecimal:  "decimal",
	KindBool:     "bool",
	KindEnum:     "enum",
	KindStrings:  "strings",
	KindDuration: "duration",
	KindTime:     "time",
	KindObject:   "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Transform names the serialization applied to a field value before it is
// put on the wire. The set is closed; fields select one by tag.
type Transform int

const (
	TransformNone      Transform = iota
	TransformDays                // duration -> "{days}D"
	TransformSeconds             // duration -> "{seconds}S"
	TransformTimestamp           // time -> "20060102-15:04:05"
	TransformJoin                // []string -> "a,b,c"
	TransformSign                // bool -> "1" / "-1"
)

// TimestampLayout is the wire format of TransformTimestamp.
const TimestampLayout = "20060102-15:04:05"

var transformNames = map[string]Transform{
	"":          TransformNone,
	"days":      TransformDays,
	"seconds":   TransformSeconds,
	"timestamp": TransformTimestamp,
	"join":      TransformJoin,
	"sign":      TransformSign,
}

// ParseTransform returns the transform registered under name.
func ParseTransform(name string) (Transform, error) {
	t, ok := transformNames[name]
	if !ok {
		return TransformNone, fmt.Errorf("unknown transform %q", name)
	}
	return t, nil
}

func (t Transform) String() string {
	for name, v := range transformNames {
		if v == t && name != "" {
			return name
		}
	}
	return "none"
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
	decimalType  = reflect.TypeOf(decimal.Decimal{})
)

// Apply serializes v, which must already be dereferenced. TransformNone
// returns v's underlying value unchanged.
func (t Transform) Apply(v reflect.Value) (any, error) {
	switch t {
	case TransformNone:
		return v.Interface(), nil
	case TransformDays, TransformSeconds:
		if v.Type() != durationType {
			return nil, fmt.Errorf("transform %s: expected time.Duration, got %s", t, v.Type())
		}
		d := time.Duration(v.Int())
		if t == TransformDays {
			return fmt.Sprintf("%dD", int64(d/(24*time.Hour))), nil
		}
		return fmt.Sprintf("%dS", int64(d/time.Second)), nil
	case TransformTimestamp:
		if v.Type() != timeType {
			return nil, fmt.Errorf("transform %s: expected time.Time, got %s", t, v.Type())
		}
		return v.Interface().(time.Time).Format(TimestampLayout), nil
	case TransformJoin:
		if v.Kind() != reflect.Slice || v.Type().Elem().Kind() != reflect.String {
			return nil, fmt.Errorf("transform %s: expected []string, got %s", t, v.Type())
		}
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = v.Index(i).String()
		}
		return strings.Join(parts, ","), nil
	case TransformSign:
		if v.Kind() != reflect.Bool {
			return nil, fmt.Errorf("transform %s: expected bool, got %s", t, v.Type())
		}
		if v.Bool() {
			return "1", nil
		}
		return "-1", nil
	}
	return nil, fmt.Errorf("unknown transform %d", int(t))
}

// DumpMode selects which name a field is serialized under.
type DumpMode int

const (
	ByName  DumpMode = iota // declared field names
	ByAlias                 // wire names
)

// Field describes one parameter of a Model.
type Field struct {
	Name       string   // declared name; keyword arguments use this
	Wire       string   // serialization alias; equals Name when not set
	Kind       Kind     // semantic type
	Required   bool     // from validate:"required"
	Default    string   // default literal, valid when HasDefault
	HasDefault bool
	Enum       []string // allowed literals, from validate:"oneof=..."
	Transform  Transform

	index  int
	typ    reflect.Type
	model  *Model
	defval reflect.Value
}

// Key returns the name the field is serialized under in mode.
func (f Field) Key(mode DumpMode) string {
	if mode == ByAlias {
		return f.Wire
	}
	return f.Name
}

// Type returns the Go type of the field.
func (f Field) Type() reflect.Type { return f.typ }

// absent reports whether fv holds no value for serialization.
func (f Field) absent(fv reflect.Value) bool {
	switch fv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return fv.IsNil()
	}
	return !f.Required && !f.HasDefault && fv.IsZero()
}

// unset reports whether fv should receive the field default.
func (f Field) unset(fv reflect.Value) bool {
	switch fv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return fv.IsNil()
	}
	return fv.IsZero()
}

// parseFieldTag splits a param tag into its name and key=value options.
func parseFieldTag(tag string) (string, map[string]string, error) {
	parts := strings.Split(tag, ",")
	opts := make(map[string]string, len(parts)-1)
	for _, p := range parts[1:] {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return "", nil, fmt.Errorf("malformed option %q", p)
		}
		switch k {
		case "wire", "default", "transform":
		default:
			return "", nil, fmt.Errorf("unknown option %q", k)
		}
		opts[k] = v
	}
	return parts[0], opts, nil
}

// parseValidateTag extracts the required flag and oneof literals.
func parseValidateTag(tag string) (required bool, enum []string) {
	for _, rule := range strings.Split(tag, ",") {
		switch {
		case rule == "required":
			required = true
		case strings.HasPrefix(rule, "oneof="):
			enum = strings.Fields(strings.TrimPrefix(rule, "oneof="))
		}
	}
	return required, enum
}

// kindOf maps a dereferenced Go type to a semantic Kind.
func kindOf(t reflect.Type, enum bool) (Kind, error) {
	switch t {
	case durationType:
		return KindDuration, nil
	case timeType:
		return KindTime, nil
	case decimalType:
		return KindDecimal, nil
	}
	switch t.Kind() {
	case reflect.String:
		if enum {
			return KindEnum, nil
		}
		return KindString, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt, nil
	case reflect.Float32, reflect.Float64:
		return KindFloat, nil
	case reflect.Bool:
		return KindBool, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.String {
			return KindStrings, nil
		}
	case reflect.Struct, reflect.Map:
		return KindObject, nil
	}
	return 0, fmt.Errorf("unsupported type %s", t)
}

func deref(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}
