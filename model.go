package kestrel

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/shopspring/decimal"
)

// Named carries keyword arguments keyed by declared field name.
// Wire names are not accepted as keys.
type Named map[string]any

// Model is the parameter schema of an endpoint, derived once from a
// struct type. Field order is declaration order.
//
// Each schema field is tagged with a descriptor:
//
//	type HistoryParams struct {
//	    Conid  int64         `param:"conid" validate:"required"`
//	    Period time.Duration `param:"period,transform=days" validate:"required"`
//	    Bar    time.Duration `param:"bar,transform=seconds" validate:"required"`
//	    Start  time.Time     `param:"start_time,wire=startTime" validate:"required"`
//	    Venue  string        `param:"exchange,default=SMART"`
//	}
//
// Struct fields without a param tag are not part of the schema.
type Model struct {
	name   string
	typ    reflect.Type
	fields []Field
	byName map[string]int
	byWire map[string]int
}

var models sync.Map // reflect.Type -> *Model

// ModelOf returns the Model for the struct type P.
func ModelOf[P any]() (*Model, error) {
	return modelFor(reflect.TypeFor[P]())
}

func modelFor(t reflect.Type) (*Model, error) {
	if t == nil {
		return nil, errors.New("kestrel: nil parameter type")
	}
	t = deref(t)
	if m, ok := models.Load(t); ok {
		return m.(*Model), nil
	}
	m, err := NewModel(t.Name(), t)
	if err != nil {
		return nil, err
	}
	actual, _ := models.LoadOrStore(t, m)
	return actual.(*Model), nil
}

// NewModel parses the field descriptors of struct type t.
func NewModel(name string, t reflect.Type) (*Model, error) {
	t = deref(t)
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("kestrel: model %s: expected struct, got %s", name, t)
	}

	m := &Model{
		name:   name,
		typ:    t,
		byName: make(map[string]int),
		byWire: make(map[string]int),
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup("param")
		if !ok || tag == "-" || !sf.IsExported() {
			continue
		}
		f, err := buildField(sf, i, tag)
		if err != nil {
			return nil, fmt.Errorf("kestrel: model %s: field %s: %w", name, sf.Name, err)
		}
		if _, dup := m.byName[f.Name]; dup {
			return nil, fmt.Errorf("kestrel: model %s: duplicate field name %q", name, f.Name)
		}
		m.byName[f.Name] = len(m.fields)
		if f.Wire != f.Name {
			m.byWire[f.Wire] = len(m.fields)
		}
		m.fields = append(m.fields, f)
	}

	for i := range m.fields {
		if !m.fields[i].HasDefault {
			continue
		}
		if err := m.parseDefault(&m.fields[i]); err != nil {
			return nil, fmt.Errorf("kestrel: model %s: field %s: default %q: %w", name, m.fields[i].Name, m.fields[i].Default, err)
		}
	}

	return m, nil
}

func buildField(sf reflect.StructField, index int, tag string) (Field, error) {
	name, opts, err := parseFieldTag(tag)
	if err != nil {
		return Field{}, err
	}
	if name == "" {
		name = sf.Name
	}

	required, enum := parseValidateTag(sf.Tag.Get("validate"))
	base := deref(sf.Type)
	kind, err := kindOf(base, len(enum) > 0)
	if err != nil {
		return Field{}, err
	}

	f := Field{
		Name:     name,
		Wire:     name,
		Kind:     kind,
		Required: required,
		Enum:     enum,
		index:    index,
		typ:      sf.Type,
	}
	if w := opts["wire"]; w != "" {
		f.Wire = w
	}

	f.Transform, err = ParseTransform(opts["transform"])
	if err != nil {
		return Field{}, err
	}
	if f.Transform == TransformNone {
		switch kind {
		case KindStrings:
			f.Transform = TransformJoin
		case KindTime:
			f.Transform = TransformTimestamp
		case KindDuration:
			return Field{}, errors.New("duration fields need transform=days or transform=seconds")
		}
	}
	if !transformFits(f.Transform, kind) {
		return Field{}, fmt.Errorf("transform %s does not apply to %s fields", f.Transform, kind)
	}

	if kind == KindObject && base.Kind() == reflect.Struct {
		nested, err := modelFor(base)
		if err != nil {
			return Field{}, err
		}
		f.model = nested
	}

	if d, ok := opts["default"]; ok {
		if kind == KindBool && sf.Type.Kind() != reflect.Pointer {
			return Field{}, errors.New("bool fields with a default must be pointers")
		}
		f.Default = d
		f.HasDefault = true
	}

	return f, nil
}

func transformFits(t Transform, k Kind) bool {
	switch t {
	case TransformDays, TransformSeconds:
		return k == KindDuration
	case TransformTimestamp:
		return k == KindTime
	case TransformJoin:
		return k == KindStrings
	case TransformSign:
		return k == KindBool
	}
	return true
}

// parseDefault coerces the default literal the same way a string argument
// would be coerced.
func (m *Model) parseDefault(f *Field) error {
	ptr := reflect.New(m.typ)
	fv := ptr.Elem().Field(f.index)
	raw := url.Values{}
	if err := assign(fv, f, f.Default, raw); err != nil {
		return err
	}
	if len(raw) > 0 {
		if err := schemaDecoder.Decode(ptr.Interface(), raw); err != nil {
			return err
		}
	}
	f.defval = reflect.Indirect(fv)
	return nil
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Type returns the struct type described by the model.
func (m *Model) Type() reflect.Type { return m.typ }

// Fields returns the schema in declaration order.
func (m *Model) Fields() []Field { return slices.Clone(m.fields) }

// Field returns the field with the given declared name.
func (m *Model) Field(name string) (Field, bool) {
	i, ok := m.byName[name]
	if !ok {
		return Field{}, false
	}
	return m.fields[i], true
}

// accepts reports whether p is an instance of the model's struct type.
func (m *Model) accepts(p any) bool {
	t := reflect.TypeOf(p)
	return t != nil && deref(t) == m.typ
}

// New instantiates the model. Leading arguments are positional, matched
// to fields in declaration order; an optional trailing Named supplies the
// rest by declared name. It returns a pointer to a new struct value or a
// *ValidationError naming every offending field.
func (m *Model) New(args ...any) (any, error) {
	var named Named
	if n := len(args); n > 0 {
		if kw, ok := args[n-1].(Named); ok {
			named = kw
			args = args[:n-1]
		}
	}

	verr := &ValidationError{Endpoint: m.name}
	if len(args) > len(m.fields) {
		verr.add("", fmt.Sprintf("takes %d positional arguments but %d were given", len(m.fields), len(args)))
		return nil, verr
	}

	ptr := reflect.New(m.typ)
	v := ptr.Elem()
	supplied := make([]presence, len(m.fields))
	raw := url.Values{}

	set := func(i int, val any) {
		if val == nil {
			return
		}
		f := &m.fields[i]
		supplied[i] = given
		if f.model != nil && deref(reflect.TypeOf(val)) == f.model.typ {
			supplied[i] = givenTyped
		}
		if err := assign(v.Field(f.index), f, val, raw); err != nil {
			merge(verr, f.Name, err)
		}
	}

	for i, a := range args {
		set(i, a)
	}

	keys := make([]string, 0, len(named))
	for k := range named {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		i, ok := m.byName[k]
		if !ok {
			if j, isWire := m.byWire[k]; isWire {
				verr.add(k, fmt.Sprintf("unknown field; use declared name %q", m.fields[j].Name))
			} else {
				verr.add(k, "unknown field")
			}
			continue
		}
		if i < len(args) {
			verr.add(k, "given both positionally and by name")
			continue
		}
		set(i, named[k])
	}

	if len(raw) > 0 {
		if err := schemaDecoder.Decode(ptr.Interface(), raw); err != nil {
			collectDecode(verr, err, raw)
		}
	}
	if !verr.empty() {
		return nil, verr
	}

	return m.finish(ptr, supplied)
}

// Bind validates an already-typed parameter struct (value or pointer) and
// returns a defaulted copy.
func (m *Model) Bind(p any) (any, error) {
	rv := reflect.ValueOf(p)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, &ValidationError{Endpoint: m.name, Fields: []FieldError{{Message: "nil parameters"}}}
		}
		rv = rv.Elem()
	}
	if rv.Type() != m.typ {
		return nil, &ValidationError{Endpoint: m.name, Fields: []FieldError{{
			Message: fmt.Sprintf("expected %s, got %T", m.typ, p),
		}}}
	}

	ptr := reflect.New(m.typ)
	ptr.Elem().Set(rv)
	return m.finish(ptr, nil)
}

// presence records how New received a field.
type presence uint8

const (
	absent presence = iota
	// given fields count as present even when zero.
	given
	// givenTyped is a nested struct passed as-is; its own members are
	// checked like Bind input.
	givenTyped
)

// finish applies defaults, checks required fields, runs validator rules
// and finally the struct's own Validate method, if any. With supplied set,
// presence comes from what the caller passed rather than from zero
// values, so an explicit 0 satisfies a required field.
func (m *Model) finish(ptr reflect.Value, supplied []presence) (any, error) {
	v := ptr.Elem()
	verr := &ValidationError{Endpoint: m.name}

	for i := range m.fields {
		f := &m.fields[i]
		fv := v.Field(f.index)
		present := !f.unset(fv)
		if supplied != nil {
			present = supplied[i] != absent
		}
		if present {
			continue
		}
		switch {
		case f.HasDefault:
			setValue(fv, f.defval)
		case f.Required:
			verr.add(f.Name, "required")
		}
	}
	if !verr.empty() {
		return nil, verr
	}

	if err := validate.Struct(ptr.Interface()); err != nil {
		var valErrs validator.ValidationErrors
		if !errors.As(err, &valErrs) {
			verr.add("", err.Error())
			return nil, verr
		}
		for _, fe := range valErrs {
			path := fieldPath(fe)
			if fe.Tag() != "required" || supplied == nil {
				verr.add(path, formatValidationError(fe))
				continue
			}
			top, _, nested := strings.Cut(path, ".")
			i, ok := m.byName[top]
			switch {
			case !ok, supplied[i] == absent, nested && supplied[i] == givenTyped:
				verr.add(path, formatValidationError(fe))
			case nested:
				// Built from a mapping; the nested model checked it.
			default:
				// The failed required rule hid the field's other rules.
				m.recheck(verr, v, &m.fields[i])
			}
		}
		if !verr.empty() {
			return nil, verr
		}
	}

	if c, ok := ptr.Interface().(interface{ Validate() error }); ok {
		if err := c.Validate(); err != nil {
			merge(verr, "", err)
			return nil, verr
		}
	}

	return ptr.Interface(), nil
}

// recheck applies the validate rules of f other than required.
func (m *Model) recheck(verr *ValidationError, v reflect.Value, f *Field) {
	var rules []string
	for _, rule := range strings.Split(m.typ.Field(f.index).Tag.Get("validate"), ",") {
		if rule != "" && rule != "required" {
			rules = append(rules, rule)
		}
	}
	if len(rules) == 0 {
		return
	}
	err := validate.Var(v.Field(f.index).Interface(), strings.Join(rules, ","))
	var valErrs validator.ValidationErrors
	switch {
	case err == nil:
	case errors.As(err, &valErrs):
		for _, fe := range valErrs {
			verr.add(f.Name, formatValidationError(fe))
		}
	default:
		verr.add(f.Name, err.Error())
	}
}

// fieldPath strips the root struct name from a validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

// merge records err against field, flattening nested validation errors.
func merge(verr *ValidationError, field string, err error) {
	var nested *ValidationError
	if !errors.As(err, &nested) {
		verr.add(field, err.Error())
		return
	}
	for _, fe := range nested.Fields {
		name := fe.Field
		switch {
		case field == "":
		case name == "":
			name = field
		default:
			name = field + "." + name
		}
		verr.add(name, fe.Message)
	}
}

func collectDecode(verr *ValidationError, err error, raw url.Values) {
	var multi schema.MultiError
	if !errors.As(err, &multi) {
		verr.add("", err.Error())
		return
	}
	keys := make([]string, 0, len(multi))
	for k := range multi {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		verr.add(k, fmt.Sprintf("invalid value %q", raw.Get(k)))
	}
}

// Dump serializes p, an instance of the model, to a map keyed by declared
// or wire name. Absent fields are skipped and transforms are applied.
func (m *Model) Dump(p any, mode DumpMode) (map[string]any, error) {
	rv := reflect.Indirect(reflect.ValueOf(p))
	if !rv.IsValid() || rv.Type() != m.typ {
		return nil, fmt.Errorf("kestrel: dump %s: got %T", m.name, p)
	}
	return m.dump(rv, mode)
}

func (m *Model) dump(v reflect.Value, mode DumpMode) (map[string]any, error) {
	out := make(map[string]any, len(m.fields))
	for i := range m.fields {
		f := &m.fields[i]
		fv := v.Field(f.index)
		if f.absent(fv) {
			continue
		}
		val, err := f.serialize(reflect.Indirect(fv), mode)
		if err != nil {
			return nil, fmt.Errorf("kestrel: dump %s.%s: %w", m.name, f.Name, err)
		}
		out[f.Key(mode)] = val
	}
	return out, nil
}

func (f *Field) serialize(v reflect.Value, mode DumpMode) (any, error) {
	if f.Transform != TransformNone {
		return f.Transform.Apply(v)
	}
	switch f.Kind {
	case KindObject:
		if f.model != nil {
			return f.model.dump(v, mode)
		}
		return v.Interface(), nil
	case KindDecimal:
		return json.Number(v.Interface().(decimal.Decimal).String()), nil
	case KindString, KindEnum:
		return v.String(), nil
	case KindInt:
		if isUint(v.Kind()) {
			return v.Uint(), nil
		}
		return v.Int(), nil
	case KindFloat:
		return v.Float(), nil
	case KindBool:
		return v.Bool(), nil
	}
	return v.Interface(), nil
}

// Query is Dump rendered as URL query values.
func (m *Model) Query(p any, mode DumpMode) (url.Values, error) {
	d, err := m.Dump(p, mode)
	if err != nil {
		return nil, err
	}
	q := make(url.Values, len(d))
	for k, v := range d {
		s, err := stringify(v)
		if err != nil {
			return nil, fmt.Errorf("kestrel: query %s: %w", k, err)
		}
		q.Set(k, s)
	}
	return q, nil
}

// Dump serializes any parameter struct using its cached Model.
func Dump(p any, mode DumpMode) (map[string]any, error) {
	m, err := modelFor(reflect.TypeOf(p))
	if err != nil {
		return nil, err
	}
	return m.Dump(p, mode)
}

// Query renders any parameter struct as URL query values.
func Query(p any, mode DumpMode) (url.Values, error) {
	m, err := modelFor(reflect.TypeOf(p))
	if err != nil {
		return nil, err
	}
	return m.Query(p, mode)
}

// Invalid returns a *ValidationError for a single field. Parameter types
// use it from their Validate method to report cross-field inconsistencies.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: fmt.Sprintf(format, args...)}}}
}
