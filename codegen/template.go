package codegen

import (
	"strconv"
	"strings"
	"text/template"
)

var fileTemplate = template.Must(template.New("bindings").Funcs(template.FuncMap{
	"quote":   strconv.Quote,
	"comment": comment,
}).Parse(bindingsTemplate))

// comment flattens free text into a single comment line.
func comment(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

const bindingsTemplate = `// Code generated by z2mgen. DO NOT EDIT.

package {{.Package}}

import (
{{- if .Devices}}
	"context"
{{end}}
	"github.com/eddielth/z2mgen/binding"
)

{{range .Enums}}{{$enum := .Name}}
// {{.Name}} is a value set shared by one or more device properties.
type {{.Name}} string

const (
{{- range .Consts}}
	{{.Name}} {{$enum}} = {{quote .Value}}
{{- end}}
)

// {{.Name}}Values lists every {{.Name}} literal.
var {{.Name}}Values = []{{.Name}}{
{{- range .Consts}}
	{{.Name}},
{{- end}}
}
{{end}}
{{range .Shapes}}
// {{.Name}} {{comment .Doc}}
type {{.Name}} struct {
{{- range .Fields}}
	{{.Name}} {{.Type}}{{if or .Doc .Access}} // {{if .Access}}{{.Access}}{{if .Doc}}: {{end}}{{end}}{{comment .Doc}}{{end}}
{{- end}}
}

// Fields implements binding.Shape.
func (s *{{.Name}}) Fields() []binding.Field {
	return []binding.Field{
{{- range .Fields}}
		{Name: {{quote .Wire}}, Value: {{.Value}}},
{{- end}}
	}
}

func (s *{{.Name}}) MarshalJSON() ([]byte, error) {
	return binding.Marshal(s)
}

func (s *{{.Name}}) UnmarshalJSON(data []byte) error {
	return binding.Unmarshal(data, s)
}
{{end}}
{{range .Devices}}
// {{.Type}} is {{comment .Doc}}
type {{.Type}} struct {
	*binding.Device[{{.ReadState}}]
}

// Set publishes state to the device.
func (d *{{.Type}}) Set(ctx context.Context, state *{{.SetState}}) error {
	return d.Device.Set(ctx, state)
}
{{end}}
// Devices holds one binding per known device, bound to a shared router.
type Devices struct {
	Router *binding.Router
{{- range .Devices}}
	{{.Type}} *{{.Type}}
{{- end}}
}

// NewDevices binds every device to a router on t. Call Router.Listen to
// start receiving state updates.
func NewDevices(t binding.Transport, opts ...binding.Option) (*Devices, error) {
	opts = append([]binding.Option{binding.WithNamespace({{quote .Namespace}})}, opts...)
	r := binding.NewRouter(t, opts...)
	d := &Devices{
		Router: r,
{{- range .Devices}}
		{{.Type}}: &{{.Type}}{binding.NewDevice[{{.ReadState}}](r, binding.Info{Address: {{quote .Address}}, FriendlyName: {{quote .FriendlyName}}})},
{{- end}}
	}
	if err := r.Bind(
{{- range .Devices}}
		d.{{.Type}}.Device,
{{- end}}
	); err != nil {
		return nil, err
	}
	return d, nil
}
`
