// Package monitor binds a live schema snapshot without generated code and
// records every state update the bridge reports.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/eddielth/z2mgen/binding"
	"github.com/eddielth/z2mgen/codegen"
	"github.com/eddielth/z2mgen/generator"
	"github.com/eddielth/z2mgen/logger"
	"github.com/eddielth/z2mgen/storage"
)

// Recorder receives one record per state update.
type Recorder interface {
	Store(ctx context.Context, rec storage.Record)
}

// DynamicDevice is a device whose states are field-table documents.
type DynamicDevice struct {
	*binding.Device[binding.Document]
	setFields []binding.FieldSpec
}

// Set publishes values after checking them against the device's settable
// and action fields.
func (d *DynamicDevice) Set(ctx context.Context, values map[string]any) error {
	doc := binding.NewDocument(d.setFields)
	known := make(map[string]struct{}, len(d.setFields))
	for _, spec := range d.setFields {
		known[spec.Name] = struct{}{}
	}
	for name, v := range values {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("%w: %s is not settable on %s", binding.ErrInvalidValue, name, d.Info().FriendlyName)
		}
		doc.Set(name, v)
	}
	return d.Device.Set(ctx, doc)
}

// Monitor owns the dynamic devices bound to one router.
type Monitor struct {
	router  *binding.Router
	devices map[string]*DynamicDevice
	order   []*DynamicDevice
	now     func() time.Time
}

// New creates one dynamic device per modeled device and binds them all to
// r. rec may be nil.
func New(r *binding.Router, m *generator.Model, rec Recorder) (*Monitor, error) {
	mon := &Monitor{
		router:  r,
		devices: make(map[string]*DynamicDevice, len(m.Devices)),
		now:     time.Now,
	}

	endpoints := make([]binding.Endpoint, 0, len(m.Devices))
	for _, d := range m.Devices {
		readFields := codegen.ReadFields(d, m.Enums)
		info := binding.Info{Address: d.Address, FriendlyName: d.Name}

		dev := &DynamicDevice{
			Device: binding.NewDeviceFunc(r, info, func(data []byte) (*binding.Document, error) {
				doc := binding.NewDocument(readFields)
				if err := binding.Unmarshal(data, doc); err != nil {
					return nil, err
				}
				return doc, nil
			}),
			setFields: codegen.SetFields(d, m.Enums),
		}
		dev.OnStateChanged(mon.recordTo(rec, info))

		mon.devices[d.Name] = dev
		mon.devices[d.Address] = dev
		mon.order = append(mon.order, dev)
		endpoints = append(endpoints, dev.Device)
	}

	if err := r.Bind(endpoints...); err != nil {
		return nil, err
	}
	logger.Info("monitoring %d devices", len(mon.order))
	return mon, nil
}

func (m *Monitor) recordTo(rec Recorder, info binding.Info) func(*binding.Document) error {
	return func(doc *binding.Document) error {
		state := doc.Map()
		logger.Info("%s: %v", info.FriendlyName, state)
		if rec != nil {
			rec.Store(context.Background(), storage.Record{
				Address:   info.Address,
				Device:    info.FriendlyName,
				Timestamp: m.now(),
				State:     state,
			})
		}
		return nil
	}
}

// Start subscribes the router to the bridge namespace.
func (m *Monitor) Start() error {
	return m.router.Listen()
}

// Device looks a device up by friendly name or address.
func (m *Monitor) Device(id string) (*DynamicDevice, bool) {
	d, ok := m.devices[id]
	return d, ok
}

// Devices returns the bound devices in schema order.
func (m *Monitor) Devices() []*DynamicDevice {
	return m.order
}
