package binding

import (
	"encoding/json"
	"fmt"

	"github.com/eddielth/z2mgen/validator"
)

// FieldKind is the semantic type of a FieldSpec.
type FieldKind int

const (
	FieldInt FieldKind = iota + 1
	FieldBool
	FieldEnum
	FieldObject
)

// FieldSpec describes one field of a shape built at runtime.
type FieldSpec struct {
	Name   string
	Kind   FieldKind
	Values []string        // FieldEnum vocabulary
	Range  validator.Range // FieldInt bounds
	Fields []FieldSpec     // FieldObject children
}

// Document is a map-backed Shape driven by a field table. Values are int,
// bool, string or *Document depending on the field kind.
type Document struct {
	specs  []FieldSpec
	values map[string]any
}

// NewDocument returns an empty document for specs.
func NewDocument(specs []FieldSpec) *Document {
	return &Document{specs: specs, values: make(map[string]any)}
}

// Fields implements Shape.
func (d *Document) Fields() []Field {
	fields := make([]Field, len(d.specs))
	for i, spec := range d.specs {
		fields[i] = Field{Name: spec.Name, Value: &documentValue{doc: d, spec: spec}}
	}
	return fields
}

// Get returns the value stored for a wire key.
func (d *Document) Get(name string) (any, bool) {
	v, ok := d.values[name]
	return v, ok
}

// Set stores a value for a wire key.
func (d *Document) Set(name string, v any) {
	d.values[name] = v
}

// Len is the number of present fields.
func (d *Document) Len() int {
	return len(d.values)
}

// Map returns the present fields as plain values, nested documents included.
func (d *Document) Map() map[string]any {
	out := make(map[string]any, len(d.values))
	for k, v := range d.values {
		if nested, ok := v.(*Document); ok {
			out[k] = nested.Map()
			continue
		}
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the document through its field table.
func (d *Document) MarshalJSON() ([]byte, error) {
	return Marshal(d)
}

type documentValue struct {
	doc  *Document
	spec FieldSpec
}

func (v *documentValue) Present() bool {
	_, ok := v.doc.values[v.spec.Name]
	return ok
}

func (v *documentValue) EncodeJSON() ([]byte, error) {
	value := v.doc.values[v.spec.Name]
	switch v.spec.Kind {
	case FieldInt:
		n, ok := value.(int)
		if !ok {
			return nil, fmt.Errorf("%w: %v is not an int", ErrInvalidValue, value)
		}
		if err := v.spec.Range.Validate(float64(n)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return json.Marshal(n)
	case FieldBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %v is not a bool", ErrInvalidValue, value)
		}
		return json.Marshal(b)
	case FieldEnum:
		s, ok := value.(string)
		if !ok || !contains(v.spec.Values, s) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, value)
		}
		return json.Marshal(s)
	case FieldObject:
		nested, ok := value.(*Document)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not a document", ErrInvalidValue, value)
		}
		return Marshal(nested)
	}
	return nil, fmt.Errorf("unknown field kind %d", v.spec.Kind)
}

func (v *documentValue) DecodeJSON(data []byte) error {
	var value any
	switch v.spec.Kind {
	case FieldInt:
		n, err := decodeInt(data)
		if err != nil {
			return err
		}
		value = n
	case FieldBool:
		b, err := decodeBool(data)
		if err != nil {
			return err
		}
		value = b
	case FieldEnum:
		var s string
		if err := json.Unmarshal(data, &s); err != nil || !contains(v.spec.Values, s) {
			return fmt.Errorf("%w: %s", ErrInvalidValue, data)
		}
		value = s
	case FieldObject:
		nested := NewDocument(v.spec.Fields)
		if err := Unmarshal(data, nested); err != nil {
			return err
		}
		value = nested
	default:
		return fmt.Errorf("unknown field kind %d", v.spec.Kind)
	}
	v.doc.values[v.spec.Name] = value
	return nil
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
