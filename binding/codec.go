// Package binding is the runtime used by generated device bindings: a
// table-driven JSON codec for state shapes, the per-device access surface
// and the router that dispatches bridge messages to devices.
package binding

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/eddielth/z2mgen/validator"
)

var (
	// ErrNotObject is returned when a payload is not a JSON object.
	ErrNotObject = errors.New("payload is not a JSON object")
	// ErrInvalidValue is returned for a value outside a field's vocabulary.
	ErrInvalidValue = errors.New("invalid field value")
)

// Shape is a state message whose wire form is described by a field table.
type Shape interface {
	Fields() []Field
}

// Field binds one wire key of a shape to its storage.
type Field struct {
	Name  string
	Value Value
}

// Value reads and writes one optional field. An absent value is omitted on
// the wire and left untouched when the key is missing from a payload.
type Value interface {
	Present() bool
	EncodeJSON() ([]byte, error)
	DecodeJSON(data []byte) error
}

// Marshal encodes the present fields of s as a compact JSON object.
func Marshal(s Shape) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, f := range s.Fields() {
		if !f.Value.Present() {
			continue
		}
		value, err := f.Value.EncodeJSON()
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Unmarshal decodes a JSON object into s. Keys without a matching field are
// ignored; null values count as absent.
func Unmarshal(data []byte, s Shape) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if raw == nil {
		return ErrNotObject
	}
	for _, f := range s.Fields() {
		value, ok := raw[f.Name]
		if !ok || isNull(value) {
			continue
		}
		if err := f.Value.DecodeJSON(value); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	return nil
}

func isNull(data json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// Ptr returns a pointer to v, for filling optional fields.
func Ptr[T any](v T) *T {
	return &v
}

// Limit restricts the values an integer field may be set to.
type Limit func(*validator.Range)

// Min sets an inclusive lower bound.
func Min(v float64) Limit {
	return func(r *validator.Range) { r.Min = &v }
}

// Max sets an inclusive upper bound.
func Max(v float64) Limit {
	return func(r *validator.Range) { r.Max = &v }
}

type intValue struct {
	p     **int
	check validator.Range
}

// Int binds an optional integer field. Bounds are enforced when encoding.
func Int(p **int, bounds ...Limit) Value {
	v := &intValue{p: p}
	for _, b := range bounds {
		b(&v.check)
	}
	return v
}

func (v *intValue) Present() bool { return *v.p != nil }

func (v *intValue) EncodeJSON() ([]byte, error) {
	if err := v.check.Validate(float64(**v.p)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return []byte(strconv.Itoa(**v.p)), nil
}

func (v *intValue) DecodeJSON(data []byte) error {
	n, err := decodeInt(data)
	if err != nil {
		return err
	}
	*v.p = &n
	return nil
}

// decodeInt accepts any JSON number; fractional reports are rounded.
func decodeInt(data []byte) (int, error) {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("%w: %s is not a number", ErrInvalidValue, data)
	}
	if math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%w: %s out of range", ErrInvalidValue, data)
	}
	return int(math.Round(f)), nil
}

type boolValue struct {
	p **bool
}

// Bool binds an optional boolean field.
func Bool(p **bool) Value {
	return &boolValue{p: p}
}

func (v *boolValue) Present() bool { return *v.p != nil }

func (v *boolValue) EncodeJSON() ([]byte, error) {
	return []byte(strconv.FormatBool(**v.p)), nil
}

func (v *boolValue) DecodeJSON(data []byte) error {
	b, err := decodeBool(data)
	if err != nil {
		return err
	}
	*v.p = &b
	return nil
}

// decodeBool accepts JSON booleans and the literals "true" and "false".
func decodeBool(data []byte) (bool, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return false, err
	}
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch val {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: %s is not a boolean", ErrInvalidValue, data)
}

type enumValue[T ~string] struct {
	p       **T
	allowed []T
}

// Enum binds an optional enumeration field restricted to allowed.
func Enum[T ~string](p **T, allowed ...T) Value {
	return &enumValue[T]{p: p, allowed: allowed}
}

func (v *enumValue[T]) Present() bool { return *v.p != nil }

func (v *enumValue[T]) EncodeJSON() ([]byte, error) {
	if !v.member(**v.p) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidValue, string(**v.p))
	}
	return json.Marshal(string(**v.p))
}

func (v *enumValue[T]) DecodeJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s is not a string", ErrInvalidValue, data)
	}
	value := T(s)
	if !v.member(value) {
		return fmt.Errorf("%w: %q", ErrInvalidValue, s)
	}
	*v.p = &value
	return nil
}

func (v *enumValue[T]) member(value T) bool {
	for _, a := range v.allowed {
		if a == value {
			return true
		}
	}
	return false
}

type shapePtr[T any] interface {
	*T
	Shape
}

type objectValue[T any, P shapePtr[T]] struct {
	p **T
}

// Object binds an optional nested shape.
func Object[T any, P shapePtr[T]](p **T) Value {
	return &objectValue[T, P]{p: p}
}

func (v *objectValue[T, P]) Present() bool { return *v.p != nil }

func (v *objectValue[T, P]) EncodeJSON() ([]byte, error) {
	return Marshal(P(*v.p))
}

func (v *objectValue[T, P]) DecodeJSON(data []byte) error {
	nested := new(T)
	if err := Unmarshal(data, P(nested)); err != nil {
		return err
	}
	*v.p = nested
	return nil
}
