package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eddielth/z2mgen/logger"
	"github.com/eddielth/z2mgen/model"
)

var (
	// ErrUnknownType is returned for a type tag the classifier does not handle.
	ErrUnknownType = errors.New("unknown expose type")
	// ErrEmptyComposite is returned for a composite without usable features.
	ErrEmptyComposite = errors.New("composite without features")
	// ErrNoValues is returned for a binary or enum property with no literals.
	ErrNoValues = errors.New("property without values")
)

// ClassifyProperty turns one raw descriptor into a typed property.
func ClassifyProperty(e Expose) (*model.Property, error) {
	prop := &model.Property{
		Name:        e.WireName(),
		Description: e.Description,
		Access:      model.Access(e.Access),
		Type:        e.Type,
	}

	switch e.Type {
	case "binary":
		classifyBinary(prop, e)
	case "numeric":
		prop.Kind = model.KindNumeric
		prop.Min = e.ValueMin
		prop.Max = e.ValueMax
		return prop, nil
	case "enum":
		prop.Kind = model.KindEnum
		prop.Values = distinct(literalStrings(e.Values))
	case "composite":
		return classifyComposite(prop, e)
	default:
		return nil, fmt.Errorf("%w %q for property %q", ErrUnknownType, e.Type, prop.Name)
	}

	if prop.Kind == model.KindEnum && len(prop.Values) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoValues, prop.Name)
	}
	return prop, nil
}

func classifyBinary(prop *model.Property, e Expose) {
	on, off, toggle := string(e.ValueOn), string(e.ValueOff), string(e.ValueToggle)
	switch {
	case on == "true" && off == "false" && toggle == "":
		prop.Kind = model.KindBoolean
	case on == "ON" && off == "OFF" && toggle == "TOGGLE":
		prop.Kind = model.KindOnOffToggle
	default:
		prop.Kind = model.KindEnum
		var values []string
		for _, v := range []string{on, off, toggle} {
			if strings.TrimSpace(v) != "" {
				values = append(values, v)
			}
		}
		prop.Values = distinct(values)
	}
}

func classifyComposite(prop *model.Property, e Expose) (*model.Property, error) {
	prop.Kind = model.KindComposite
	prop.Access = 0
	for _, feature := range e.Features {
		child, err := ClassifyProperty(feature)
		if err != nil {
			logger.Warn("composite %q: skipping feature: %v", prop.Name, err)
			continue
		}
		prop.Features = append(prop.Features, child)
		if child.Access > prop.Access {
			prop.Access = child.Access
		}
	}
	if len(prop.Features) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyComposite, prop.Name)
	}
	return prop, nil
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func literalStrings(values []Literal) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
