package irrigation

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type registryOptions struct {
	senderFor func(ZoneConfig) Sender
	period    time.Duration
}

type Option func(*registryOptions)

// WithSender makes every zone of the registry talk through s.
func WithSender(s Sender) Option {
	return func(o *registryOptions) {
		o.senderFor = func(ZoneConfig) Sender { return s }
	}
}

// WithSenderFactory builds the sender of each zone from its config.
func WithSenderFactory(f func(ZoneConfig) Sender) Option {
	return func(o *registryOptions) {
		o.senderFor = f
	}
}

// WithPeriod changes the countdown tick period, one second by default.
func WithPeriod(period time.Duration) Option {
	return func(o *registryOptions) {
		o.period = period
	}
}

func defaultSender(c ZoneConfig) Sender {
	return NewClient(c.Address())
}

// Registry holds one ZoneController per configured zone. It is built once
// and handed explicitly to whoever needs zone lookup.
type Registry struct {
	controllers map[int]*zoneController
	configs     map[int]ZoneConfig
	zones       []int
	broadcaster *stateBroadcaster
	logger      *logrus.Entry
}

// Configure validates zones and builds the registry. Nothing is built
// when validation fails.
func Configure(zones []ZoneConfig, options ...Option) (*Registry, error) {
	if err := CheckZoneConfigs(zones); err != nil {
		return nil, err
	}
	opts := registryOptions{
		senderFor: defaultSender,
		period:    time.Second,
	}
	for _, o := range options {
		o(&opts)
	}
	if opts.period <= 0 {
		return nil, &InvalidConfigError{Reasons: []string{fmt.Sprintf("invalid countdown period %s", opts.period)}}
	}

	r := &Registry{
		controllers: make(map[int]*zoneController, len(zones)),
		configs:     make(map[int]ZoneConfig, len(zones)),
		zones:       sortedZones(zones),
		broadcaster: newStateBroadcaster(),
		logger:      NewLogger("registry"),
	}
	for _, z := range zones {
		c := newZoneController(z, opts.senderFor(z), r.broadcaster)
		c.Period = opts.period
		r.controllers[z.Zone] = c
		r.configs[z.Zone] = z
	}
	r.logger.WithField("zones", len(r.zones)).Debug("configured")
	return r, nil
}

func (r *Registry) Lookup(zone int) (ZoneController, error) {
	c, ok := r.controllers[zone]
	if ok == false {
		return nil, unknownZone(zone)
	}
	return c, nil
}

func (r *Registry) Config(zone int) (ZoneConfig, error) {
	c, ok := r.configs[zone]
	if ok == false {
		return ZoneConfig{}, unknownZone(zone)
	}
	return c, nil
}

// Zones returns the configured zone numbers in ascending order.
func (r *Registry) Zones() []int {
	return append([]int(nil), r.zones...)
}

func (r *Registry) State(zone int) (ZoneState, error) {
	c, ok := r.controllers[zone]
	if ok == false {
		return ZoneState{}, unknownZone(zone)
	}
	return c.State(), nil
}

func (r *Registry) States() []ZoneState {
	res := make([]ZoneState, 0, len(r.zones))
	for _, z := range r.zones {
		res = append(res, r.controllers[z].State())
	}
	return res
}

// Subscribe returns a channel receiving every state change of every zone.
// It is closed by Unsubscribe or Close. Updates are dropped, not queued,
// when the reader falls behind.
func (r *Registry) Subscribe() <-chan ZoneState {
	return r.broadcaster.Register()
}

func (r *Registry) Unsubscribe(ch <-chan ZoneState) {
	r.broadcaster.Unregister(ch)
}

// Close cancels every countdown. No command is sent to the daemon.
func (r *Registry) Close() error {
	var errs []error
	for _, z := range r.zones {
		if err := r.controllers[z].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.broadcaster.Close()
	if len(errs) > 0 {
		return fmt.Errorf("registry did not close gracefully: %w", errors.Join(errs...))
	}
	r.logger.Debug("closed")
	return nil
}
