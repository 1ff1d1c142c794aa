package binding

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eddielth/z2mgen/logger"
)

// DefaultGetTimeout bounds how long Get waits for a state update.
const DefaultGetTimeout = 2 * time.Second

// Transport is the message bus the bindings publish and subscribe on.
type Transport interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(pattern string, handler func(topic string, payload []byte)) error
}

// Info identifies a device on the bridge.
type Info struct {
	Address      string
	FriendlyName string
}

// Endpoint is what the router dispatches inbound state messages to.
type Endpoint interface {
	Info() Info
	dispatch(payload []byte) error
}

// Device is the access surface of one bound device. R is its read-state
// shape.
type Device[R any] struct {
	info      Info
	namespace string
	transport Transport
	timeout   time.Duration
	decode    func([]byte) (*R, error)

	last atomic.Pointer[R]

	mu       sync.Mutex
	waiters  map[chan struct{}]struct{}
	handlers []func(*R) error
}

// NewDevice creates a device whose read state is decoded into a fresh R.
func NewDevice[R any, P shapePtr[R]](r *Router, info Info) *Device[R] {
	return NewDeviceFunc(r, info, func(data []byte) (*R, error) {
		state := new(R)
		if err := Unmarshal(data, P(state)); err != nil {
			return nil, err
		}
		return state, nil
	})
}

// NewDeviceFunc creates a device with a custom read-state decoder.
func NewDeviceFunc[R any](r *Router, info Info, decode func([]byte) (*R, error)) *Device[R] {
	return &Device[R]{
		info:      info,
		namespace: r.namespace,
		transport: r.transport,
		timeout:   r.getTimeout,
		decode:    decode,
	}
}

// Info implements Endpoint.
func (d *Device[R]) Info() Info { return d.info }

// LastState returns the most recent state reported by the bridge, or nil.
func (d *Device[R]) LastState() *R {
	return d.last.Load()
}

// Set publishes state to the device's command topic. No acknowledgement is
// awaited.
func (d *Device[R]) Set(ctx context.Context, state Shape) error {
	payload, err := Marshal(state)
	if err != nil {
		return err
	}
	return d.transport.Publish(ctx, d.topic("set"), payload)
}

// Get asks the bridge for the device state and waits for the next update.
// It returns nil without error when nothing arrives before the timeout.
func (d *Device[R]) Get(ctx context.Context) (*R, error) {
	w := make(chan struct{})
	d.mu.Lock()
	if d.waiters == nil {
		d.waiters = make(map[chan struct{}]struct{})
	}
	d.waiters[w] = struct{}{}
	d.mu.Unlock()
	defer d.removeWaiter(w)

	if err := d.transport.Publish(ctx, d.topic("get"), []byte("{}")); err != nil {
		return nil, err
	}

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	select {
	case <-w:
		return d.last.Load(), nil
	case <-timer.C:
		logger.Debug("get %s: no state within %v", d.info.FriendlyName, d.timeout)
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// OnStateChanged registers fn to run after every state update. Handlers run
// in registration order; an error or panic in one does not stop the others.
func (d *Device[R]) OnStateChanged(fn func(*R) error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, fn)
}

func (d *Device[R]) dispatch(payload []byte) error {
	state, err := d.decode(payload)
	if err != nil {
		return err
	}
	d.last.Store(state)

	d.mu.Lock()
	waiters := d.waiters
	d.waiters = nil
	handlers := d.handlers
	d.mu.Unlock()

	for w := range waiters {
		close(w)
	}
	for _, fn := range handlers {
		d.deliver(fn, state)
	}
	return nil
}

func (d *Device[R]) deliver(fn func(*R) error, state *R) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("state handler for %s panicked: %v", d.info.FriendlyName, r)
		}
	}()
	if err := fn(state); err != nil {
		logger.Warn("state handler for %s failed: %v", d.info.FriendlyName, err)
	}
}

func (d *Device[R]) removeWaiter(w chan struct{}) {
	d.mu.Lock()
	delete(d.waiters, w)
	d.mu.Unlock()
}

func (d *Device[R]) topic(action string) string {
	return d.namespace + "/" + d.info.Address + "/" + action
}
