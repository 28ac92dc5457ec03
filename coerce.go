package kestrel

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/shopspring/decimal"
)

var (
	validate      = newValidator()
	schemaDecoder = schema.NewDecoder()
)

func init() {
	schemaDecoder.SetAliasTag("param")
	schemaDecoder.IgnoreUnknownKeys(true)
	schemaDecoder.RegisterConverter(time.Duration(0), convertDuration)
	schemaDecoder.RegisterConverter(time.Time{}, convertTime)
	schemaDecoder.RegisterConverter(decimal.Decimal{}, convertDecimal)
	schemaDecoder.RegisterConverter(false, convertBool)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report declared parameter names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("param"), ",")
		return name
	})
	return v
}

var timeLayouts = []string{
	TimestampLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDuration accepts the wire forms "3D" and "45S" as well as Go
// duration syntax such as "90m".
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n := len(s); n > 1 {
		if count, err := strconv.ParseInt(s[:n-1], 10, 64); err == nil {
			switch s[n-1] {
			case 'D', 'd':
				return time.Duration(count) * 24 * time.Hour, nil
			case 'S', 's':
				return time.Duration(count) * time.Second, nil
			}
		}
	}
	return time.ParseDuration(s)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func convertDuration(s string) reflect.Value {
	d, err := parseDuration(s)
	if err != nil {
		return reflect.Value{}
	}
	return reflect.ValueOf(d)
}

func convertTime(s string) reflect.Value {
	t, err := parseTime(s)
	if err != nil {
		return reflect.Value{}
	}
	return reflect.ValueOf(t)
}

// convertBool also accepts the sign form "1" / "-1".
func convertBool(s string) reflect.Value {
	s = strings.TrimSpace(s)
	if s == "-1" {
		return reflect.ValueOf(false)
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return reflect.Value{}
	}
	return reflect.ValueOf(b)
}

func convertDecimal(s string) reflect.Value {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return reflect.Value{}
	}
	return reflect.ValueOf(d)
}

// assign stores v into the field value fv. String input for non-string
// kinds is not converted here; it is queued in raw for the schema decoder.
func assign(fv reflect.Value, f *Field, v any, raw url.Values) error {
	rv := reflect.ValueOf(v)
	t := fv.Type()
	base := deref(t)

	if rv.Type().AssignableTo(t) {
		fv.Set(rv)
		return nil
	}
	if t.Kind() == reflect.Pointer && rv.Type().AssignableTo(base) {
		setValue(fv, rv)
		return nil
	}

	if f.Kind == KindObject {
		return assignObject(fv, f, v)
	}

	if s, ok := v.(string); ok {
		switch {
		case base.Kind() == reflect.String:
			setValue(fv, rv.Convert(base))
		case f.Kind == KindStrings:
			for _, part := range strings.Split(s, ",") {
				raw.Add(f.Name, strings.TrimSpace(part))
			}
		default:
			raw.Set(f.Name, s)
		}
		return nil
	}

	converted, ok := convertScalar(rv, base)
	if !ok {
		return fmt.Errorf("expected %s, got %T", f.Kind, v)
	}
	setValue(fv, converted)
	return nil
}

// assignObject fills a nested model or free-form map from a map, a Named
// set, or a JSON document.
func assignObject(fv reflect.Value, f *Field, v any) error {
	var m map[string]any
	switch x := v.(type) {
	case Named:
		m = x
	case map[string]any:
		m = x
	case string:
		if err := json.Unmarshal([]byte(x), &m); err != nil {
			return fmt.Errorf("invalid JSON object: %v", err)
		}
	case []byte:
		if err := json.Unmarshal(x, &m); err != nil {
			return fmt.Errorf("invalid JSON object: %v", err)
		}
	default:
		return fmt.Errorf("expected %s, got %T", deref(fv.Type()), v)
	}

	if f.model == nil {
		mv := reflect.ValueOf(m)
		if !mv.Type().AssignableTo(fv.Type()) {
			return fmt.Errorf("expected %s, got %T", fv.Type(), v)
		}
		fv.Set(mv)
		return nil
	}

	nested, err := f.model.New(Named(m))
	if err != nil {
		return err
	}
	setValue(fv, reflect.ValueOf(nested).Elem())
	return nil
}

// convertScalar converts between numeric representations and between
// named types that share an underlying kind.
func convertScalar(rv reflect.Value, base reflect.Type) (reflect.Value, bool) {
	if base == decimalType {
		switch {
		case isInt(rv.Kind()):
			return reflect.ValueOf(decimal.NewFromInt(rv.Int())), true
		case isUint(rv.Kind()):
			return reflect.ValueOf(decimal.NewFromUint64(rv.Uint())), true
		case isFloat(rv.Kind()):
			return reflect.ValueOf(decimal.NewFromFloat(rv.Float())), true
		}
		return reflect.Value{}, false
	}

	switch {
	case base == durationType || base == timeType:
		// Only exact types; an int is not a duration.
	case isInt(base.Kind()) || isUint(base.Kind()):
		if isInt(rv.Kind()) || isUint(rv.Kind()) {
			return rv.Convert(base), true
		}
		if isFloat(rv.Kind()) && rv.Float() == float64(int64(rv.Float())) {
			return rv.Convert(base), true
		}
	case isFloat(base.Kind()):
		if isInt(rv.Kind()) || isUint(rv.Kind()) || isFloat(rv.Kind()) {
			return rv.Convert(base), true
		}
	case rv.Kind() == base.Kind() && rv.Type().ConvertibleTo(base):
		return rv.Convert(base), true
	}
	return reflect.Value{}, false
}

// setValue stores v into fv, allocating when fv is a pointer.
func setValue(fv, v reflect.Value) {
	if fv.Kind() == reflect.Pointer && v.Kind() != reflect.Pointer {
		p := reflect.New(fv.Type().Elem())
		p.Elem().Set(v)
		fv.Set(p)
		return
	}
	fv.Set(v)
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uint64
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

// stringify renders a dumped value for a query string.
func stringify(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case json.Number:
		return x.String(), nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
