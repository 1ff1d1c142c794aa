package model

// Device is one physical or logical endpoint known to the bridge.
type Device struct {
	Name         string // friendly name
	Identifier   string // sanitized, unique Go identifier
	Address      string // IEEE address
	Manufacturer string
	Model        string
	Description  string

	Actions   []*Property
	Outputs   []*Property
	Settables []*Property
}

// Add puts p into the bucket matching its access classification. It returns
// false when the classification is not recognized and p was not stored.
func (d *Device) Add(p *Property) bool {
	switch p.Access {
	case AccessOutput:
		d.Outputs = append(d.Outputs, p)
	case AccessAction:
		d.Actions = append(d.Actions, p)
	case AccessSettable:
		d.Settables = append(d.Settables, p)
	default:
		return false
	}
	return true
}

// SetProperties returns the properties of the settable-state shape.
func (d *Device) SetProperties() []*Property {
	out := make([]*Property, 0, len(d.Settables)+len(d.Actions))
	out = append(out, d.Settables...)
	return append(out, d.Actions...)
}

// ReadProperties returns the properties of the read-state shape.
func (d *Device) ReadProperties() []*Property {
	out := make([]*Property, 0, len(d.Settables)+len(d.Outputs))
	out = append(out, d.Settables...)
	return append(out, d.Outputs...)
}

// Len is the number of bucketed properties.
func (d *Device) Len() int {
	return len(d.Actions) + len(d.Outputs) + len(d.Settables)
}

// Walk visits actions, outputs and settables in that order, descending into
// composites.
func (d *Device) Walk(fn func(*Property)) {
	for _, bucket := range [][]*Property{d.Actions, d.Outputs, d.Settables} {
		for _, p := range bucket {
			p.Walk(fn)
		}
	}
}

// SetStateType is the name of the generated settable-state shape.
func (d *Device) SetStateType() string { return d.Identifier + "SetState" }

// ReadStateType is the name of the generated read-state shape.
func (d *Device) ReadStateType() string { return d.Identifier + "ReadState" }
