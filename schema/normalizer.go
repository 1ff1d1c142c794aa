package schema

import (
	"github.com/eddielth/z2mgen/logger"
	"github.com/eddielth/z2mgen/model"
)

// NormalizeDevice builds a device from its raw descriptor. It returns false
// when the descriptor has no capability definition.
func NormalizeDevice(raw RawDevice) (*model.Device, bool) {
	if raw.Definition == nil {
		return nil, false
	}

	device := &model.Device{
		Name:         raw.FriendlyName,
		Identifier:   model.Identifier(raw.FriendlyName),
		Address:      raw.IEEEAddress,
		Manufacturer: raw.Manufacturer,
		Model:        raw.ModelID,
		Description:  raw.Definition.Description,
	}

	for _, expose := range raw.Definition.Exposes {
		// Grouped expositions (light, switch, cover...) contribute their
		// features directly; a composite is a single nested property.
		if expose.Features != nil && expose.Type != "composite" {
			for _, feature := range expose.Features {
				addProperty(device, feature)
			}
			continue
		}
		addProperty(device, expose)
	}

	return device, true
}

func addProperty(device *model.Device, e Expose) {
	prop, err := ClassifyProperty(e)
	if err != nil {
		logger.Warn("device %s: skipping property: %v", device.Name, err)
		return
	}
	if !device.Add(prop) {
		logger.Warn("device %s: property %q has unrecognized access %d", device.Name, prop.Name, prop.Access)
	}
}
