package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/eddielth/z2mgen/model"
)

func mustExpose(t *testing.T, s string) Expose {
	t.Helper()
	var e Expose
	if err := json.Unmarshal([]byte(s), &e); err != nil {
		t.Fatalf("unmarshal expose: %v", err)
	}
	return e
}

func TestClassifyBinary(t *testing.T) {
	cases := []struct {
		name       string
		expose     string
		wantKind   model.Kind
		wantValues []string
	}{
		{"boolean strings", `{"type":"binary","name":"occupancy","value_on":"true","value_off":"false"}`, model.KindBoolean, nil},
		{"boolean json", `{"type":"binary","name":"contact","value_on":true,"value_off":false}`, model.KindBoolean, nil},
		{"on off toggle", `{"type":"binary","name":"state","value_on":"ON","value_off":"OFF","value_toggle":"TOGGLE"}`, model.KindOnOffToggle, nil},
		{"on off without toggle", `{"type":"binary","name":"state","value_on":"ON","value_off":"OFF"}`, model.KindEnum, []string{"ON", "OFF"}},
		{"boolean with toggle", `{"type":"binary","name":"x","value_on":"true","value_off":"false","value_toggle":"flip"}`, model.KindEnum, []string{"true", "false", "flip"}},
		{"lower case", `{"type":"binary","name":"lock","value_on":"LOCK","value_off":"UNLOCK"}`, model.KindEnum, []string{"LOCK", "UNLOCK"}},
		{"only on", `{"type":"binary","name":"alarm","value_on":"start","value_off":""}`, model.KindEnum, []string{"start"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prop, err := ClassifyProperty(mustExpose(t, tc.expose))
			if err != nil {
				t.Fatalf("ClassifyProperty() error = %v", err)
			}
			if prop.Kind != tc.wantKind {
				t.Fatalf("Kind = %v, want %v", prop.Kind, tc.wantKind)
			}
			if len(prop.Values) != len(tc.wantValues) {
				t.Fatalf("Values = %v, want %v", prop.Values, tc.wantValues)
			}
			for i := range tc.wantValues {
				if prop.Values[i] != tc.wantValues[i] {
					t.Fatalf("Values = %v, want %v", prop.Values, tc.wantValues)
				}
			}
		})
	}
}

func TestClassifyBinaryWithoutLiterals(t *testing.T) {
	_, err := ClassifyProperty(mustExpose(t, `{"type":"binary","name":"empty"}`))
	if !errors.Is(err, ErrNoValues) {
		t.Fatalf("ClassifyProperty() error = %v, want ErrNoValues", err)
	}
}

func TestClassifyNumeric(t *testing.T) {
	prop, err := ClassifyProperty(mustExpose(t, `{"type":"numeric","name":"brightness","access":7,"value_min":0,"value_max":254}`))
	if err != nil {
		t.Fatalf("ClassifyProperty() error = %v", err)
	}
	if prop.Kind != model.KindNumeric || prop.Access != model.AccessSettable {
		t.Fatalf("got kind %v access %v", prop.Kind, prop.Access)
	}
	if prop.Min == nil || *prop.Min != 0 || prop.Max == nil || *prop.Max != 254 {
		t.Fatalf("bounds = %v..%v, want 0..254", prop.Min, prop.Max)
	}

	open, err := ClassifyProperty(mustExpose(t, `{"type":"numeric","name":"linkquality","access":1}`))
	if err != nil {
		t.Fatalf("ClassifyProperty() error = %v", err)
	}
	if open.Min != nil || open.Max != nil {
		t.Fatal("absent bounds should stay nil")
	}
}

func TestClassifyEnumKeepsOrderAndDropsDuplicates(t *testing.T) {
	prop, err := ClassifyProperty(mustExpose(t, `{"type":"enum","name":"effect","values":["blink","breathe","blink","okay"]}`))
	if err != nil {
		t.Fatalf("ClassifyProperty() error = %v", err)
	}
	want := []string{"blink", "breathe", "okay"}
	if len(prop.Values) != len(want) {
		t.Fatalf("Values = %v, want %v", prop.Values, want)
	}
	for i := range want {
		if prop.Values[i] != want[i] {
			t.Fatalf("Values = %v, want %v", prop.Values, want)
		}
	}
}

func TestClassifyCompositeAccessIsMaxOfChildren(t *testing.T) {
	prop, err := ClassifyProperty(mustExpose(t, `{
		"type":"composite","name":"color_xy","property":"color",
		"features":[
			{"type":"numeric","name":"x","access":1},
			{"type":"numeric","name":"y","access":7},
			{"type":"numeric","name":"z","access":2},
			{"type":"bogus","name":"w","access":15}
		]}`))
	if err != nil {
		t.Fatalf("ClassifyProperty() error = %v", err)
	}
	if prop.Kind != model.KindComposite {
		t.Fatalf("Kind = %v, want composite", prop.Kind)
	}
	if prop.Name != "color" {
		t.Fatalf("Name = %q, want wire name color", prop.Name)
	}
	if prop.Access != model.AccessSettable {
		t.Fatalf("Access = %v, want 7", prop.Access)
	}
	if len(prop.Features) != 3 {
		t.Fatalf("len(Features) = %d, want 3 (invalid child dropped)", len(prop.Features))
	}
}

func TestClassifyCompositeNests(t *testing.T) {
	prop, err := ClassifyProperty(mustExpose(t, `{
		"type":"composite","name":"outer",
		"features":[{"type":"composite","name":"inner","features":[{"type":"numeric","name":"v","access":2}]}]}`))
	if err != nil {
		t.Fatalf("ClassifyProperty() error = %v", err)
	}
	if prop.Access != model.AccessAction {
		t.Fatalf("Access = %v, want 2", prop.Access)
	}
	if prop.Features[0].Kind != model.KindComposite || len(prop.Features[0].Features) != 1 {
		t.Fatal("nested composite not classified")
	}
}

func TestClassifyInvalid(t *testing.T) {
	cases := []struct {
		expose string
		want   error
	}{
		{`{"type":"text","name":"label"}`, ErrUnknownType},
		{`{"type":"composite","name":"empty","features":[]}`, ErrEmptyComposite},
		{`{"type":"composite","name":"missing"}`, ErrEmptyComposite},
		{`{"type":"composite","name":"bad","features":[{"type":"list","name":"x"}]}`, ErrEmptyComposite},
		{`{"type":"enum","name":"none","values":[]}`, ErrNoValues},
	}
	for _, tc := range cases {
		_, err := ClassifyProperty(mustExpose(t, tc.expose))
		if !errors.Is(err, tc.want) {
			t.Fatalf("ClassifyProperty(%s) error = %v, want %v", tc.expose, err, tc.want)
		}
	}
}
