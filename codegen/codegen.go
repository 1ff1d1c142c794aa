// Package codegen emits typed Go bindings for a normalized device model.
package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"strconv"
	"strings"

	"github.com/eddielth/z2mgen/binding"
	"github.com/eddielth/z2mgen/canonical"
	"github.com/eddielth/z2mgen/logger"
	"github.com/eddielth/z2mgen/model"
)

// ErrDuplicateIdent is returned when two generated declarations would share
// a name.
var ErrDuplicateIdent = errors.New("duplicate identifier in generated code")

// Options controls the emitted file.
type Options struct {
	Package   string
	Namespace string
}

// fixedIdents are declared by every generated file.
var fixedIdents = []string{"Devices", "NewDevices", "Router"}

// shapeMethods may not be used as field names of a generated shape.
var shapeMethods = map[string]struct{}{
	"Fields":        {},
	"MarshalJSON":   {},
	"UnmarshalJSON": {},
}

// ReservedNames lists the top-level identifiers devices occupy in the
// generated file, so enum names and their constants can avoid them.
func ReservedNames(devices []*model.Device) []string {
	names := append([]string(nil), fixedIdents...)
	for _, d := range devices {
		names = append(names, d.Identifier, d.SetStateType(), d.ReadStateType())
		for _, bucket := range [][]*model.Property{d.Actions, d.Outputs, d.Settables} {
			for _, p := range bucket {
				names = append(names, compositeNames(d.Identifier, p)...)
			}
		}
	}
	return names
}

func compositeNames(prefix string, p *model.Property) []string {
	if p.Kind != model.KindComposite {
		return nil
	}
	name := prefix + p.FieldName()
	names := []string{name}
	for _, child := range p.Features {
		names = append(names, compositeNames(name, child)...)
	}
	return names
}

// Generate renders the bindings for devices as gofmt'ed source. The table
// must come from canonical.Build over the same devices.
func Generate(devices []*model.Device, table *canonical.Table, opts Options) ([]byte, error) {
	if opts.Package == "" {
		opts.Package = "devices"
	}
	if opts.Namespace == "" {
		opts.Namespace = binding.DefaultNamespace
	}

	g := &generator{
		table:     table,
		declared:  make(map[string]struct{}),
		composite: make(map[*model.Property]string),
		file:      fileDecl{Package: opts.Package, Namespace: opts.Namespace},
	}
	for _, name := range fixedIdents {
		g.declared[name] = struct{}{}
	}

	if err := g.enums(); err != nil {
		return nil, err
	}
	for _, d := range devices {
		if err := g.device(d); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, g.file); err != nil {
		return nil, fmt.Errorf("failed to render bindings: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("generated source does not parse: %w", err)
	}

	logger.Info("generated bindings for %d devices and %d enums", len(g.file.Devices), len(g.file.Enums))
	return src, nil
}

type fileDecl struct {
	Package   string
	Namespace string
	Enums     []enumDecl
	Shapes    []shapeDecl
	Devices   []deviceDecl
}

type enumDecl struct {
	Name   string
	Consts []constDecl
}

type constDecl struct {
	Name  string
	Value string
}

type shapeDecl struct {
	Name   string
	Doc    string
	Fields []fieldDecl
}

type fieldDecl struct {
	Name   string
	Type   string
	Wire   string
	Value  string
	Doc    string
	Access string
}

type deviceDecl struct {
	Type         string
	ReadState    string
	SetState     string
	Address      string
	FriendlyName string
	Doc          string
}

type generator struct {
	table     *canonical.Table
	declared  map[string]struct{}
	composite map[*model.Property]string
	file      fileDecl
}

func (g *generator) declare(name string) error {
	if _, ok := g.declared[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateIdent, name)
	}
	g.declared[name] = struct{}{}
	return nil
}

func (g *generator) enums() error {
	if g.table == nil {
		return nil
	}
	for _, e := range g.table.Enums {
		for _, name := range canonical.DeclaredNames(e.Name, e.Members) {
			if err := g.declare(name); err != nil {
				return err
			}
		}
		decl := enumDecl{Name: e.Name}
		for i, value := range e.Values {
			decl.Consts = append(decl.Consts, constDecl{Name: e.Name + e.Members[i], Value: value})
		}
		g.file.Enums = append(g.file.Enums, decl)
	}
	return nil
}

func (g *generator) device(d *model.Device) error {
	for _, name := range []string{d.Identifier, d.SetStateType(), d.ReadStateType()} {
		if err := g.declare(name); err != nil {
			return err
		}
	}

	doc := d.Name
	if d.Description != "" {
		doc = fmt.Sprintf("%s (%s %s): %s", d.Name, d.Manufacturer, d.Model, d.Description)
	}

	set, err := g.shape(d.Identifier, d.SetProperties())
	if err != nil {
		return err
	}
	read, err := g.shape(d.Identifier, d.ReadProperties())
	if err != nil {
		return err
	}

	g.file.Shapes = append(g.file.Shapes,
		shapeDecl{Name: d.SetStateType(), Doc: "is the state accepted by " + d.Name + ".", Fields: set},
		shapeDecl{Name: d.ReadStateType(), Doc: "is the state reported by " + d.Name + ".", Fields: read},
	)
	g.file.Devices = append(g.file.Devices, deviceDecl{
		Type:         d.Identifier,
		ReadState:    d.ReadStateType(),
		SetState:     d.SetStateType(),
		Address:      d.Address,
		FriendlyName: d.Name,
		Doc:          doc,
	})
	return nil
}

// shape builds the field list of one struct, declaring composite structs
// as they are first reached.
func (g *generator) shape(prefix string, props []*model.Property) ([]fieldDecl, error) {
	var fields []fieldDecl
	for _, f := range uniqueFields(props) {
		typ, value, err := g.fieldType(prefix, f)
		if err != nil {
			return nil, err
		}
		fields = append(fields, fieldDecl{
			Name:   f.name,
			Type:   typ,
			Wire:   f.prop.Name,
			Value:  value,
			Doc:    f.prop.Description,
			Access: accessName(f.prop.Access),
		})
	}
	return fields, nil
}

func (g *generator) fieldType(prefix string, f field) (string, string, error) {
	p := f.prop
	ref := "&s." + f.name
	switch p.Kind {
	case model.KindNumeric:
		args := []string{ref}
		if p.Min != nil {
			args = append(args, "binding.Min("+formatFloat(*p.Min)+")")
		}
		if p.Max != nil {
			args = append(args, "binding.Max("+formatFloat(*p.Max)+")")
		}
		return "*int", "binding.Int(" + strings.Join(args, ", ") + ")", nil
	case model.KindBoolean:
		return "*bool", "binding.Bool(" + ref + ")", nil
	case model.KindOnOffToggle:
		return "*binding.OnOffToggle", "binding.Enum(" + ref + ", binding.OnOffToggleValues...)", nil
	case model.KindEnum:
		e, ok := g.table.Lookup(p)
		if !ok {
			return "", "", fmt.Errorf("enum property %s has no canonical enum", p.Name)
		}
		return "*" + e.Name, "binding.Enum(" + ref + ", " + e.Name + "Values...)", nil
	case model.KindComposite:
		name, err := g.compositeShape(prefix, p)
		if err != nil {
			return "", "", err
		}
		return "*" + name, "binding.Object(" + ref + ")", nil
	}
	return "", "", fmt.Errorf("property %s has unsupported kind %s", p.Name, p.Kind)
}

func (g *generator) compositeShape(prefix string, p *model.Property) (string, error) {
	if name, ok := g.composite[p]; ok {
		return name, nil
	}
	name := prefix + p.FieldName()
	if err := g.declare(name); err != nil {
		return "", err
	}
	g.composite[p] = name

	fields, err := g.shape(name, p.Features)
	if err != nil {
		return "", err
	}
	doc := "is the " + p.Name + " group."
	if p.Description != "" {
		doc = "is the " + p.Name + " group: " + p.Description
	}
	g.file.Shapes = append(g.file.Shapes, shapeDecl{Name: name, Doc: doc, Fields: fields})
	return name, nil
}

type field struct {
	name string
	prop *model.Property
}

// uniqueFields keeps the first property per wire name and gives each a
// distinct Go field name.
func uniqueFields(props []*model.Property) []field {
	wires := make(map[string]struct{}, len(props))
	names := make(map[string]struct{}, len(props))
	fields := make([]field, 0, len(props))
	for _, p := range props {
		if _, ok := wires[p.Name]; ok {
			logger.Debug("property %s listed twice, keeping the first", p.Name)
			continue
		}
		wires[p.Name] = struct{}{}

		base := p.FieldName()
		name := base
		for n := 2; ; n++ {
			_, taken := names[name]
			_, method := shapeMethods[name]
			if !taken && !method {
				break
			}
			name = base + strconv.Itoa(n)
		}
		names[name] = struct{}{}
		fields = append(fields, field{name: name, prop: p})
	}
	return fields
}

func accessName(a model.Access) string {
	switch a {
	case model.AccessOutput:
		return "output"
	case model.AccessAction:
		return "action"
	case model.AccessSettable:
		return "settable"
	}
	return ""
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
