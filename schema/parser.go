package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/eddielth/z2mgen/logger"
	"github.com/eddielth/z2mgen/model"
)

//go:embed device.schema.json
var deviceSchema string

// ErrInvalidPayload is returned when the bridge payload is not a JSON array.
var ErrInvalidPayload = errors.New("bridge payload is not a device array")

// DeviceHook rewrites a raw device descriptor before it is normalized.
// Returning a nil map drops the device.
type DeviceHook interface {
	TransformDevice(device map[string]any) (map[string]any, error)
}

// Parser turns a bridge/devices payload into the normalized model.
type Parser struct {
	validator *jsonschema.Schema
	hook      DeviceHook
}

// Option configures a Parser.
type Option func(*Parser)

// WithHook installs a hook run on every descriptor before validation.
func WithHook(hook DeviceHook) Option {
	return func(p *Parser) {
		p.hook = hook
	}
}

// NewParser compiles the embedded device schema.
func NewParser(opts ...Option) (*Parser, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("device.schema.json", strings.NewReader(deviceSchema)); err != nil {
		return nil, fmt.Errorf("failed to load device schema: %v", err)
	}
	validator, err := compiler.Compile("device.schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile device schema: %v", err)
	}

	p := &Parser{validator: validator}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Parse decodes the payload and normalizes every usable device. Malformed
// entries and devices without a definition are skipped.
func (p *Parser) Parse(data []byte) ([]*model.Device, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	devices := make([]*model.Device, 0, len(entries))
	addresses := make(map[string]struct{}, len(entries))
	identifiers := make(map[string]struct{}, len(entries))

	for i, entry := range entries {
		raw, ok := p.decode(i, entry)
		if !ok {
			continue
		}

		device, ok := NormalizeDevice(raw)
		if !ok {
			logger.Debug("device %s has no definition, skipping", raw.FriendlyName)
			continue
		}

		if _, dup := addresses[device.Address]; dup {
			logger.Warn("device %s: duplicate address %s, skipping", device.Name, device.Address)
			continue
		}
		addresses[device.Address] = struct{}{}

		device.Identifier = uniqueIdentifier(identifiers, device.Identifier)
		devices = append(devices, device)
	}

	logger.Info("parsed %d of %d bridge devices", len(devices), len(entries))
	return devices, nil
}

func (p *Parser) decode(index int, entry json.RawMessage) (RawDevice, bool) {
	var raw RawDevice

	if p.hook != nil {
		var doc map[string]any
		if err := json.Unmarshal(entry, &doc); err != nil {
			logger.Warn("device entry %d is not an object: %v", index, err)
			return raw, false
		}
		out, err := p.hook.TransformDevice(doc)
		if err != nil {
			logger.Warn("device entry %d: transform failed: %v", index, err)
			return raw, false
		}
		if out == nil {
			logger.Debug("device entry %d dropped by transform script", index)
			return raw, false
		}
		b, err := json.Marshal(out)
		if err != nil {
			logger.Warn("device entry %d: failed to re-encode transformed device: %v", index, err)
			return raw, false
		}
		entry = b
	}

	var doc any
	if err := json.Unmarshal(entry, &doc); err != nil {
		logger.Warn("device entry %d is not valid JSON: %v", index, err)
		return raw, false
	}
	if err := p.validator.Validate(doc); err != nil {
		logger.Warn("device entry %d is malformed: %v", index, err)
		return raw, false
	}
	if err := json.Unmarshal(entry, &raw); err != nil {
		logger.Warn("device entry %d could not be decoded: %v", index, err)
		return raw, false
	}
	return raw, true
}

func uniqueIdentifier(taken map[string]struct{}, id string) string {
	candidate := id
	for n := 2; ; n++ {
		if _, ok := taken[candidate]; !ok {
			taken[candidate] = struct{}{}
			return candidate
		}
		candidate = id + strconv.Itoa(n)
	}
}
