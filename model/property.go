package model

import "fmt"

// Kind identifies which variant of Property is populated.
type Kind int

const (
	KindNumeric Kind = iota + 1
	KindBoolean
	KindOnOffToggle
	KindEnum
	KindComposite
)

var kindNames = map[Kind]string{
	KindNumeric:     "numeric",
	KindBoolean:     "boolean",
	KindOnOffToggle: "on_off_toggle",
	KindEnum:        "enum",
	KindComposite:   "composite",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Access is the bridge's access classification of a property.
type Access int

const (
	// AccessOutput marks read-only telemetry.
	AccessOutput Access = 1
	// AccessAction marks fire-and-forget commands.
	AccessAction Access = 2
	// AccessSettable marks read/write controls.
	AccessSettable Access = 7
)

// Classified reports whether a maps to one of the three device buckets.
func (a Access) Classified() bool {
	switch a {
	case AccessOutput, AccessAction, AccessSettable:
		return true
	}
	return false
}

// Property is one control or telemetry point of a device. Only the fields
// belonging to Kind are meaningful.
type Property struct {
	Kind        Kind
	Name        string // key used in JSON payloads
	Description string
	Access      Access
	Type        string // source type tag (binary, numeric, enum, composite)

	// Numeric bounds, inclusive. nil means unbounded on that side.
	Min *float64
	Max *float64

	// Enum values in source order.
	Values []string

	// Composite children.
	Features []*Property
}

// FieldName is the Go identifier used for the property inside a shape.
func (p *Property) FieldName() string {
	return Identifier(p.Name)
}

// Walk calls fn for p and, for composites, every nested property depth first.
func (p *Property) Walk(fn func(*Property)) {
	fn(p)
	for _, child := range p.Features {
		child.Walk(fn)
	}
}
