package devices

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eddielth/z2mgen/binding"
)

type message struct {
	topic   string
	payload string
}

type fakeTransport struct {
	mu        sync.Mutex
	published []message
	handler   func(topic string, payload []byte)
	onPublish func(topic string)
}

func (f *fakeTransport) Publish(_ context.Context, topic string, payload []byte) error {
	f.mu.Lock()
	f.published = append(f.published, message{topic, string(payload)})
	hook := f.onPublish
	f.mu.Unlock()
	if hook != nil {
		hook(topic)
	}
	return nil
}

func (f *fakeTransport) Subscribe(_ string, handler func(string, []byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	return nil
}

func (f *fakeTransport) deliver(topic, payload string) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(topic, []byte(payload))
}

func (f *fakeTransport) last() message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.published) == 0 {
		return message{}
	}
	return f.published[len(f.published)-1]
}

func newDevices(t *testing.T) (*fakeTransport, *Devices) {
	t.Helper()
	ft := &fakeTransport{}
	d, err := NewDevices(ft, binding.WithGetTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewDevices() error = %v", err)
	}
	if err := d.Router.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	return ft, d
}

func TestShapeRoundTrip(t *testing.T) {
	data, err := json.Marshal(&PcRoomLightSetState{Brightness: binding.Ptr(10)})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"brightness":10}` {
		t.Fatalf("Marshal() = %s", data)
	}

	var read PcRoomLightReadState
	if err := json.Unmarshal(data, &read); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if read.Brightness == nil || *read.Brightness != 10 {
		t.Fatalf("Brightness = %v, want 10", read.Brightness)
	}
	if read.State != nil || read.Color != nil || read.PowerOnBehavior != nil || read.Linkquality != nil {
		t.Fatalf("absent fields were set: %+v", read)
	}
}

func TestShapeRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		state *PcRoomLightSetState
	}{
		{"brightness above max", &PcRoomLightSetState{Brightness: binding.Ptr(255)}},
		{"unknown effect", &PcRoomLightSetState{Effect: binding.Ptr(Effect("sparkle"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := json.Marshal(tt.state); !errors.Is(err, binding.ErrInvalidValue) {
				t.Fatalf("Marshal() error = %v, want ErrInvalidValue", err)
			}
		})
	}
}

func TestSetPublishesToAddress(t *testing.T) {
	ft, d := newDevices(t)

	err := d.PcRoomLight.Set(context.Background(), &PcRoomLightSetState{Color: &PcRoomLightColor{X: binding.Ptr(3)}})
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	want := message{"zigbee2mqtt/0x60a423fffef1a847/set", `{"color":{"x":3}}`}
	if got := ft.last(); got != want {
		t.Fatalf("published %+v, want %+v", got, want)
	}

	err = d.HallPlug.Set(context.Background(), &HallPlugSetState{ChildLock: binding.Ptr(true), State: binding.Ptr(binding.On)})
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	want = message{"zigbee2mqtt/0xbc33acfffe4e7084/set", `{"state":"ON","child_lock":true}`}
	if got := ft.last(); got != want {
		t.Fatalf("published %+v, want %+v", got, want)
	}
}

func TestGetTimesOutThenResolves(t *testing.T) {
	ft, d := newDevices(t)

	state, err := d.HallPlug.Get(context.Background())
	if err != nil || state != nil {
		t.Fatalf("Get() = %v, %v, want nil, nil", state, err)
	}
	if got := ft.last().topic; got != "zigbee2mqtt/0xbc33acfffe4e7084/get" {
		t.Fatalf("get published to %s", got)
	}

	// a late answer only updates the cached state
	ft.deliver("zigbee2mqtt/hall_plug", `{"state":"OFF"}`)
	if last := d.HallPlug.LastState(); last == nil || *last.State != binding.Off {
		t.Fatalf("LastState() = %+v", last)
	}

	ft.onPublish = func(topic string) {
		ft.deliver("zigbee2mqtt/0xbc33acfffe4e7084", `{"state":"ON","power_on_behavior":"previous","linkquality":87}`)
	}
	state, err = d.HallPlug.Get(context.Background())
	if err != nil || state == nil {
		t.Fatalf("Get() = %v, %v", state, err)
	}
	if *state.State != binding.On || *state.PowerOnBehavior != PowerOnBehaviorPrevious || *state.Linkquality != 87 {
		t.Fatalf("Get() = %+v", state)
	}
	if state.ChildLock != nil {
		t.Fatal("ChildLock set without being reported")
	}
}

func TestUnroutableMessagesDropped(t *testing.T) {
	ft, d := newDevices(t)

	calls := 0
	d.PcRoomLight.OnStateChanged(func(*PcRoomLightReadState) error {
		calls++
		return nil
	})

	for _, m := range []message{
		{"zigbee2mqtt/bridge/state", `{"state":"online"}`},
		{"zigbee2mqtt/pc_room_light/availability", `{"state":"online"}`},
		{"zigbee2mqtt/unknown_sensor", `{"state":"ON"}`},
		{"other/pc_room_light", `{"state":"ON"}`},
		{"zigbee2mqtt/pc_room_light", `{"power_on_behavior":"sometimes"}`},
		{"zigbee2mqtt/pc_room_light", `{"brightness":"bright"}`},
	} {
		ft.deliver(m.topic, m.payload)
	}
	if d.PcRoomLight.LastState() != nil || calls != 0 {
		t.Fatalf("state = %+v, handler calls = %d, want nothing", d.PcRoomLight.LastState(), calls)
	}

	ft.deliver("zigbee2mqtt/pc_room_light", `{"brightness":12,"color":{"x":1,"y":2},"effect":"blink"}`)
	last := d.PcRoomLight.LastState()
	if last == nil || calls != 1 {
		t.Fatalf("state = %+v, handler calls = %d", last, calls)
	}
	if *last.Brightness != 12 || *last.Color.X != 1 || *last.Color.Y != 2 {
		t.Fatalf("LastState() = %+v", last)
	}
}

func TestEnumValues(t *testing.T) {
	if len(EffectValues) != 6 || EffectValues[3] != EffectChannelChange || EffectChannelChange != "channel_change" {
		t.Fatalf("EffectValues = %v", EffectValues)
	}
	want := []PowerOnBehavior{"off", "on", "toggle", "previous"}
	for i, v := range want {
		if PowerOnBehaviorValues[i] != v {
			t.Fatalf("PowerOnBehaviorValues = %v, want %v", PowerOnBehaviorValues, want)
		}
	}
}
