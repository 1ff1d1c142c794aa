package schema

import (
	"encoding/json"
	"strconv"
)

// RawDevice is one element of the bridge's bridge/devices payload.
type RawDevice struct {
	FriendlyName string      `json:"friendly_name"`
	IEEEAddress  string      `json:"ieee_address"`
	Manufacturer string      `json:"manufacturer"`
	ModelID      string      `json:"model_id"`
	Definition   *Definition `json:"definition"`
}

// Definition is the capability section of a device.
type Definition struct {
	Description string   `json:"description"`
	Exposes     []Expose `json:"exposes"`
}

// Expose is either a leaf property descriptor or a feature group.
type Expose struct {
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	Property    string    `json:"property"`
	Description string    `json:"description"`
	Access      int       `json:"access"`
	ValueOn     Literal   `json:"value_on"`
	ValueOff    Literal   `json:"value_off"`
	ValueToggle Literal   `json:"value_toggle"`
	ValueMin    *float64  `json:"value_min"`
	ValueMax    *float64  `json:"value_max"`
	Values      []Literal `json:"values"`
	Features    []Expose  `json:"features"`
}

// WireName is the key the bridge uses for this property in state payloads.
func (e Expose) WireName() string {
	if e.Property != "" {
		return e.Property
	}
	return e.Name
}

// Literal is a wire literal that the bridge may encode as a JSON string,
// boolean or number. It always holds the textual form.
type Literal string

func (l *Literal) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case nil:
		*l = ""
	case string:
		*l = Literal(val)
	case bool:
		*l = Literal(strconv.FormatBool(val))
	case float64:
		*l = Literal(strconv.FormatFloat(val, 'f', -1, 64))
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		*l = Literal(b)
	}
	return nil
}
