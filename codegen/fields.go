package codegen

import (
	"github.com/eddielth/z2mgen/binding"
	"github.com/eddielth/z2mgen/canonical"
	"github.com/eddielth/z2mgen/model"
	"github.com/eddielth/z2mgen/validator"
)

// ReadFields returns the read-state field table of d as runtime values,
// matching what Generate emits for <Id>ReadState. table may be nil.
func ReadFields(d *model.Device, table *canonical.Table) []binding.FieldSpec {
	return fieldSpecs(d.ReadProperties(), table)
}

// SetFields returns the set-state field table of d.
func SetFields(d *model.Device, table *canonical.Table) []binding.FieldSpec {
	return fieldSpecs(d.SetProperties(), table)
}

func fieldSpecs(props []*model.Property, table *canonical.Table) []binding.FieldSpec {
	fields := uniqueFields(props)
	specs := make([]binding.FieldSpec, 0, len(fields))
	for _, f := range fields {
		p := f.prop
		spec := binding.FieldSpec{Name: p.Name}
		switch p.Kind {
		case model.KindNumeric:
			spec.Kind = binding.FieldInt
			spec.Range = validator.Range{Min: p.Min, Max: p.Max}
		case model.KindBoolean:
			spec.Kind = binding.FieldBool
		case model.KindOnOffToggle:
			spec.Kind = binding.FieldEnum
			for _, v := range binding.OnOffToggleValues {
				spec.Values = append(spec.Values, string(v))
			}
		case model.KindEnum:
			spec.Kind = binding.FieldEnum
			spec.Values = p.Values
			if table != nil {
				if e, ok := table.Lookup(p); ok {
					spec.Values = e.Values
				}
			}
		case model.KindComposite:
			spec.Kind = binding.FieldObject
			spec.Fields = fieldSpecs(p.Features, table)
		default:
			continue
		}
		specs = append(specs, spec)
	}
	return specs
}
