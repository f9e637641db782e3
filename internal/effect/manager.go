package effect

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Faultbox/entryfx/internal/estimator"
	"github.com/Faultbox/entryfx/internal/params"
	"github.com/Faultbox/entryfx/internal/particles"
)

// EventKind identifies a host notification.
type EventKind int

const (
	EventLoaded EventKind = iota
	EventUnloaded
	EventPartCountChanged
	EventBodyChanged
	EventReload
	EventLayersReloaded
	EventOverride
	EventClearOverride
)

var eventNames = map[EventKind]string{
	EventLoaded:           "loaded",
	EventUnloaded:         "unloaded",
	EventPartCountChanged: "part_count_changed",
	EventBodyChanged:      "body_changed",
	EventReload:           "reload",
	EventLayersReloaded:   "layers_reloaded",
	EventOverride:         "override",
	EventClearOverride:    "clear_override",
}

func (k EventKind) String() string {
	if n, ok := eventNames[k]; ok {
		return n
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is a host notification. VehicleID is ignored by EventLayersReloaded,
// which applies to every vehicle.
type Event struct {
	Kind      EventKind
	VehicleID string

	// EventLoaded
	VehicleName string
	// EventBodyChanged
	Body Body
	// EventLayersReloaded
	Layers    *params.Layers
	Particles []particles.Config
	// EventOverride
	Override estimator.Override
}

// Manager routes host events to per-vehicle controllers and steps them. Events
// may be posted from any goroutine; Step must be called from the simulation
// thread.
type Manager struct {
	ctx         Context
	log         *zap.Logger
	events      chan Event
	controllers map[string]*Controller
}

// NewManager creates a manager with an event queue of the given capacity.
func NewManager(ctx Context, buffer int) *Manager {
	if ctx.Logger == nil {
		ctx.Logger = zap.NewNop()
	}
	if buffer < 1 {
		buffer = 1
	}
	return &Manager{
		ctx:         ctx,
		log:         ctx.Logger,
		events:      make(chan Event, buffer),
		controllers: make(map[string]*Controller),
	}
}

// Post queues an event without blocking. It returns false when the queue is
// full and the event was dropped.
func (m *Manager) Post(e Event) bool {
	select {
	case m.events <- e:
		return true
	default:
		m.log.Warn("event queue full, dropping event",
			zap.Stringer("event", e.Kind),
			zap.String("vehicle", e.VehicleID))
		m.ctx.Metrics.drop(e.Kind)
		return false
	}
}

// Controller returns the controller of a vehicle.
func (m *Manager) Controller(id string) (*Controller, bool) {
	c, ok := m.controllers[id]
	return c, ok
}

// Vehicles returns the ids of the tracked vehicles in sorted order.
func (m *Manager) Vehicles() []string {
	ids := lo.Keys(m.controllers)
	slices.Sort(ids)
	return ids
}

// Step drains the event queue, then steps the controller of every input's
// vehicle.
func (m *Manager) Step(inputs ...TickInput) {
	m.drain()

	for _, in := range inputs {
		if in.Vehicle == nil {
			continue
		}
		if c, ok := m.controllers[in.Vehicle.ID]; ok {
			c.Step(in)
		}
	}
}

func (m *Manager) drain() {
	for {
		select {
		case e := <-m.events:
			m.apply(e)
		default:
			return
		}
	}
}

func (m *Manager) apply(e Event) {
	m.log.Debug("applying event", zap.Stringer("event", e.Kind), zap.String("vehicle", e.VehicleID))

	if e.Kind == EventLayersReloaded {
		if e.Layers == nil {
			m.log.Warn("layers reloaded without layers, keeping current layers")
			return
		}
		m.ctx.Layers = e.Layers
		m.ctx.Particles = e.Particles
		for _, id := range m.Vehicles() {
			m.controllers[id].OnLayersReloaded(e.Layers, e.Particles)
		}
		return
	}

	if e.Kind == EventLoaded {
		c, ok := m.controllers[e.VehicleID]
		if !ok {
			name := e.VehicleName
			if name == "" {
				name = e.VehicleID
			}
			c = NewController(m.ctx, e.VehicleID, name)
			m.controllers[e.VehicleID] = c
		}
		c.OnLoaded()
		return
	}

	c, ok := m.controllers[e.VehicleID]
	if !ok {
		m.log.Debug("event for unknown vehicle", zap.Stringer("event", e.Kind), zap.String("vehicle", e.VehicleID))
		return
	}

	switch e.Kind {
	case EventUnloaded:
		c.OnUnloaded()
		delete(m.controllers, e.VehicleID)
	case EventPartCountChanged:
		c.OnPartCountChanged()
	case EventBodyChanged:
		c.OnBodyChanged(e.Body)
	case EventReload:
		c.OnReload()
	case EventOverride:
		c.Override(e.Override)
	case EventClearOverride:
		c.ClearOverride()
	}
}
