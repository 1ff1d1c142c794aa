package monitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/eddielth/z2mgen/binding"
	"github.com/eddielth/z2mgen/generator"
	"github.com/eddielth/z2mgen/storage"
)

type fakeTransport struct {
	mu        sync.Mutex
	published map[string]string
	handler   func(string, []byte)
}

func (f *fakeTransport) Publish(_ context.Context, topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.published == nil {
		f.published = make(map[string]string)
	}
	f.published[topic] = string(payload)
	return nil
}

func (f *fakeTransport) Subscribe(_ string, handler func(string, []byte)) error {
	f.handler = handler
	return nil
}

type memoryRecorder struct {
	records []storage.Record
}

func (m *memoryRecorder) Store(_ context.Context, rec storage.Record) {
	m.records = append(m.records, rec)
}

func newMonitor(t *testing.T, rec Recorder) (*fakeTransport, *Monitor) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "generator", "testdata", "bridge_devices.json"))
	if err != nil {
		t.Fatal(err)
	}
	model, err := generator.Build(data, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	ft := &fakeTransport{}
	mon, err := New(binding.NewRouter(ft), model, rec)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := mon.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return ft, mon
}

func TestMonitorRecordsUpdates(t *testing.T) {
	rec := &memoryRecorder{}
	ft, mon := newMonitor(t, rec)
	fixed := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	mon.now = func() time.Time { return fixed }

	if len(mon.Devices()) != 2 {
		t.Fatalf("devices = %d, want 2", len(mon.Devices()))
	}

	ft.handler("zigbee2mqtt/pc_room_light", []byte(`{"state":"ON","brightness":200,"color":{"x":0.4,"y":0.3},"effect":"blink"}`))
	ft.handler("zigbee2mqtt/unknown", []byte(`{"state":"ON"}`))

	if len(rec.records) != 1 {
		t.Fatalf("records = %d, want 1", len(rec.records))
	}
	got := rec.records[0]
	if got.Address != "0x60a423fffef1a847" || got.Device != "pc_room_light" || !got.Timestamp.Equal(fixed) {
		t.Fatalf("record = %+v", got)
	}
	if got.State["brightness"] != 200 || got.State["state"] != "ON" {
		t.Fatalf("state = %v", got.State)
	}
	// effect is an action and not part of the read state
	if _, ok := got.State["effect"]; ok {
		t.Fatalf("state contains action field: %v", got.State)
	}

	dev, ok := mon.Device("0x60a423fffef1a847")
	if !ok || dev.LastState() == nil {
		t.Fatal("device cache not updated")
	}
}

func TestDynamicSet(t *testing.T) {
	ft, mon := newMonitor(t, nil)
	dev, ok := mon.Device("hall_plug")
	if !ok {
		t.Fatal("hall_plug not bound")
	}

	if err := dev.Set(context.Background(), map[string]any{"child_lock": true}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got := ft.published["zigbee2mqtt/0xbc33acfffe4e7084/set"]; got != `{"child_lock":true}` {
		t.Fatalf("published %q", got)
	}

	if err := dev.Set(context.Background(), map[string]any{"linkquality": 3}); !errors.Is(err, binding.ErrInvalidValue) {
		t.Fatalf("Set(output) error = %v, want ErrInvalidValue", err)
	}
	if err := dev.Set(context.Background(), map[string]any{"power_on_behavior": "sometimes"}); !errors.Is(err, binding.ErrInvalidValue) {
		t.Fatalf("Set(bad enum) error = %v, want ErrInvalidValue", err)
	}
}
