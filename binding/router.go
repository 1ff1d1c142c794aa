package binding

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/eddielth/z2mgen/logger"
)

// DefaultNamespace is the bridge's base topic.
const DefaultNamespace = "zigbee2mqtt"

var (
	// ErrNotBound is returned by Listen before any device was bound.
	ErrNotBound = errors.New("router has no bound devices")
	// ErrDuplicateEndpoint is returned when two devices share an identifier.
	ErrDuplicateEndpoint = errors.New("duplicate device identifier")
)

// RouterState is the lifecycle stage of a Router.
type RouterState int

const (
	Unbound RouterState = iota
	Bound
	Listening
)

func (s RouterState) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Bound:
		return "bound"
	case Listening:
		return "listening"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Router maps inbound bridge topics to bound devices.
type Router struct {
	transport  Transport
	namespace  string
	getTimeout time.Duration
	registerer prometheus.Registerer
	messages   *prometheus.CounterVec

	mu        sync.RWMutex
	state     RouterState
	endpoints map[string]Endpoint
}

// Option configures a Router.
type Option func(*Router)

// WithNamespace overrides the bridge base topic.
func WithNamespace(namespace string) Option {
	return func(r *Router) {
		if namespace != "" {
			r.namespace = strings.TrimSuffix(namespace, "/")
		}
	}
}

// WithGetTimeout overrides how long Device.Get waits.
func WithGetTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.getTimeout = d
		}
	}
}

// WithMetrics registers the router's message counters on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(r *Router) {
		r.registerer = reg
	}
}

// NewRouter returns an unbound router publishing and subscribing on t.
func NewRouter(t Transport, opts ...Option) *Router {
	r := &Router{
		transport:  t,
		namespace:  DefaultNamespace,
		getTimeout: DefaultGetTimeout,
		endpoints:  make(map[string]Endpoint),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "z2m_router_messages_total",
			Help: "Inbound bridge messages by routing result.",
		}, []string{"result"}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registerer != nil {
		r.registerer.MustRegister(r.messages)
	}
	return r
}

// Namespace returns the bridge base topic.
func (r *Router) Namespace() string { return r.namespace }

// State returns the router's lifecycle stage.
func (r *Router) State() RouterState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Bind registers endpoints by address and friendly name. Nothing is
// registered when any identifier clashes.
func (r *Router) Bind(endpoints ...Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make(map[string]Endpoint)
	for _, ep := range endpoints {
		info := ep.Info()
		for _, id := range []string{info.Address, info.FriendlyName} {
			if id == "" {
				continue
			}
			existing, ok := pending[id]
			if !ok {
				existing, ok = r.endpoints[id]
			}
			if ok && existing != ep {
				return fmt.Errorf("%w: %s", ErrDuplicateEndpoint, id)
			}
			pending[id] = ep
		}
	}
	for id, ep := range pending {
		r.endpoints[id] = ep
	}
	if r.state == Unbound && len(r.endpoints) > 0 {
		r.state = Bound
	}
	return nil
}

// Listen subscribes to every topic under the namespace.
func (r *Router) Listen() error {
	if r.State() == Unbound {
		return ErrNotBound
	}
	if err := r.transport.Subscribe(r.namespace+"/#", r.HandleMessage); err != nil {
		return err
	}
	r.mu.Lock()
	r.state = Listening
	r.mu.Unlock()
	logger.Info("router listening on %s/#", r.namespace)
	return nil
}

// Endpoint looks up a bound device by address or friendly name.
func (r *Router) Endpoint(id string) (Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.endpoints[id]
	return ep, ok
}

// HandleMessage routes one inbound message. Messages for unknown devices,
// bridge-internal topics and undecodable payloads are dropped.
func (r *Router) HandleMessage(topic string, payload []byte) {
	id, ok := strings.CutPrefix(topic, r.namespace+"/")
	if !ok {
		r.messages.WithLabelValues("discarded").Inc()
		return
	}

	ep, ok := r.Endpoint(id)
	if !ok {
		r.messages.WithLabelValues("discarded").Inc()
		logger.Debug("no device bound for topic %s", topic)
		return
	}

	if err := ep.dispatch(payload); err != nil {
		r.messages.WithLabelValues("decode_error").Inc()
		logger.Warn("failed to decode state for %s: %v", id, err)
		return
	}
	r.messages.WithLabelValues("routed").Inc()
}
