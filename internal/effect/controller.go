// Package effect drives the per-vehicle entry effect: geometry rebuilds on
// structural events and the once-per-step strength, camera and particle
// updates.
package effect

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Faultbox/entryfx/internal/bounds"
	"github.com/Faultbox/entryfx/internal/camera"
	"github.com/Faultbox/entryfx/internal/config"
	"github.com/Faultbox/entryfx/internal/debug"
	"github.com/Faultbox/entryfx/internal/envelope"
	"github.com/Faultbox/entryfx/internal/estimator"
	"github.com/Faultbox/entryfx/internal/params"
	"github.com/Faultbox/entryfx/internal/particles"
	"github.com/Faultbox/entryfx/internal/vehicle"
)

// ErrNoLayers is returned when a load is attempted without a layer store.
var ErrNoLayers = errors.New("parameter layers not loaded")

// Phase is the controller lifecycle state.
type Phase int

const (
	// PhaseUnloaded holds no derived state.
	PhaseUnloaded Phase = iota
	// PhasePending waits for the debounce countdown before rebuilding.
	PhasePending
	// PhaseActive has geometry and publishes output every step.
	PhaseActive
	// PhaseFailed found no eligible geometry. It stays failed until the
	// next structural event.
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseUnloaded:
		return "unloaded"
	case PhasePending:
		return "pending"
	case PhaseActive:
		return "active"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Context carries the collaborators shared by every controller.
type Context struct {
	Settings  config.EffectConfig
	Layers    *params.Layers
	Particles []particles.Config
	Logger    *zap.Logger
	Metrics   *Metrics
}

// Body describes the body the vehicle is currently in.
type Body struct {
	Name            string
	HasAtmosphere   bool
	AtmosphereDepth float64
}

// TickInput is the host state for one simulation step.
type TickInput struct {
	// Time is the simulation timestamp. Work runs once per distinct value.
	Time float64
	Dt   float64

	Vehicle *vehicle.Vehicle

	Aero               estimator.Aero
	DynamicPressureKPa float64

	Body     Body
	Altitude float64

	SurfaceVelocity mgl64.Vec3
	ActiveVelocity  mgl64.Vec3
	IsActive        bool
	Forward         mgl64.Vec3
}

// RenderItem is one proxy ready for submission.
type RenderItem struct {
	Proxy  envelope.Proxy
	World  mgl64.Mat4
	Colors [params.NumChannels]params.Color
	Params params.ParameterSet
}

// Output is the per-step bundle published to the host.
type Output struct {
	Strength      float64
	Direction     mgl64.Vec3
	State         float64
	AngleOfAttack float64

	LengthMultiplier float64
	Bowshock         bool
	HDR              bool

	Camera    camera.AirstreamCamera
	Particles []particles.Emission

	// Debug is the world-space overlay, published in debug mode only.
	Debug []debug.Line
}

// Controller owns one vehicle's effect.
type Controller struct {
	ctx Context
	log *zap.Logger

	id    string
	name  string
	phase Phase
	err   error

	// Debounce countdown in distinct steps.
	pending int

	lastTime     float64
	ticked       bool
	lastAltitude float64
	hasAltitude  bool

	body     string
	vehicle  *vehicle.Vehicle
	volume   bounds.Volume
	baseLen  float64
	proxies  []envelope.Proxy
	items    []RenderItem
	cam      *camera.AirstreamCamera
	emitter  *particles.Emitter
	builder  *envelope.Builder
	est      *estimator.Estimator
	output   Output
	rebuilds int
}

// NewController creates an unloaded controller for a vehicle.
func NewController(ctx Context, id, name string) *Controller {
	if ctx.Logger == nil {
		ctx.Logger = zap.NewNop()
	}
	log := ctx.Logger.With(zap.String("vehicle", name))

	return &Controller{
		ctx:     ctx,
		log:     log,
		id:      id,
		name:    name,
		builder: envelope.NewBuilder(log),
		est:     estimator.New(log),
	}
}

// ID returns the vehicle id.
func (c *Controller) ID() string { return c.id }

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase { return c.phase }

// Err returns the error that put the controller in PhaseFailed.
func (c *Controller) Err() error { return c.err }

// Active reports whether the effect is currently loaded.
func (c *Controller) Active() bool { return c.phase == PhaseActive }

// Rebuilds returns how many geometry rebuilds have run.
func (c *Controller) Rebuilds() int { return c.rebuilds }

// Volume returns the current bounding volume.
func (c *Controller) Volume() bounds.Volume { return c.volume }

// Output returns the last published bundle.
func (c *Controller) Output() Output { return c.output }

// EffectState returns the estimator memory.
func (c *Controller) EffectState() estimator.EffectState { return c.est.State() }

// RenderList returns the proxies in discovery order.
func (c *Controller) RenderList() []RenderItem {
	return append([]RenderItem(nil), c.items...)
}

// OnLoaded schedules the initial load. An active effect ignores it.
func (c *Controller) OnLoaded() {
	if c.phase == PhaseActive {
		c.log.Debug("already loaded, ignoring load event")
		return
	}
	c.pending = max(c.settings().LoadDelaySteps, 1)
	c.enterPending()
}

// OnUnloaded tears everything down, including the estimator memory.
func (c *Controller) OnUnloaded() {
	c.unload()
	c.pending = 0
}

// OnPartCountChanged drops the envelopes and schedules a structural rebuild.
// The estimator memory, camera and particles survive.
func (c *Controller) OnPartCountChanged() {
	c.dropEnvelopes()
	c.pending = max(c.pending, c.rebuildDelay())
	c.enterPending()
}

// OnReload tears everything down and schedules a rebuild.
func (c *Controller) OnReload() {
	c.unload()
	c.pending = max(c.pending, c.rebuildDelay())
	c.enterPending()
}

// OnBodyChanged handles a change of the body the vehicle is in. Bodies
// without atmosphere unload the effect; an active effect only refreshes its
// proxy parameters.
func (c *Controller) OnBodyChanged(b Body) {
	if !b.HasAtmosphere {
		c.log.Debug("body has no atmosphere, unloading", zap.String("body", b.Name))
		c.unload()
		return
	}

	c.body = b.Name
	if c.phase != PhaseActive {
		c.pending = max(c.pending, 1)
		c.enterPending()
		return
	}

	c.log.Debug("updating current body", zap.String("body", b.Name))
	c.refreshItems()
}

// OnLayersReloaded swaps the layer store and refreshes proxy parameters. A
// nil store is ignored.
func (c *Controller) OnLayersReloaded(layers *params.Layers, cfgs []particles.Config) {
	if layers == nil {
		c.log.Warn("layers reloaded without layers, keeping current layers")
		return
	}
	c.ctx.Layers = layers
	c.ctx.Particles = cfgs
	if c.emitter != nil {
		c.emitter = particles.NewEmitter(cfgs)
	}
	c.refreshItems()
}

// Override switches the estimator to override mode.
func (c *Controller) Override(o estimator.Override) {
	c.est.Override(o)
	c.refreshItems()
}

// ClearOverride returns to the normal estimator path.
func (c *Controller) ClearOverride() {
	c.est.ClearOverride()
	c.refreshItems()
}

// Step runs one simulation step. Repeated calls with the same timestamp do
// nothing. It reports whether the step was processed.
func (c *Controller) Step(in TickInput) bool {
	if c.ticked && in.Time == c.lastTime {
		return false
	}
	c.ticked = true
	c.lastTime = in.Time

	if in.Vehicle != nil && in.Vehicle != c.vehicle {
		c.rebind(in.Vehicle)
		c.vehicle = in.Vehicle
	}
	if c.body == "" {
		c.body = in.Body.Name
	}

	if c.pending > 0 {
		c.pending--
		if c.pending == 0 {
			c.load(in)
		}
	}

	override := c.est.State().OverrideActive
	if c.phase == PhaseActive && in.Altitude > in.Body.AtmosphereDepth && !override {
		c.log.Debug("left the atmosphere, unloading")
		c.unload()
	}

	descending := c.hasAltitude && in.Altitude-c.lastAltitude < 0
	c.lastAltitude = in.Altitude
	c.hasAltitude = true
	if c.pending < 1 && descending && in.Altitude <= in.Body.AtmosphereDepth && c.phase == PhaseUnloaded {
		c.load(in)
	}

	if c.phase == PhaseActive {
		c.tick(in)
	}
	return true
}

// rebind carries the proxies over to a new snapshot of the vehicle. A
// snapshot whose structure changed without a part count event gets a
// structural rebuild.
func (c *Controller) rebind(v *vehicle.Vehicle) {
	if len(c.proxies) == 0 {
		return
	}
	proxies, ok := envelope.Rebind(c.proxies, c.vehicle, v)
	if !ok {
		c.log.Warn("vehicle structure changed without a part count event, rebuilding")
		c.OnPartCountChanged()
		return
	}
	c.proxies = proxies
	for i := range c.items {
		c.items[i].Proxy = proxies[i]
	}
}

func (c *Controller) settings() config.EffectConfig {
	return c.ctx.Settings
}

func (c *Controller) rebuildDelay() int {
	return max(c.settings().RebuildDelaySteps, 1)
}

func (c *Controller) enterPending() {
	if c.pending > 0 {
		c.phase = PhasePending
	}
}

// load runs the geometry rebuild. A controller that kept its camera only
// lost its envelopes, which makes this a structural rebuild.
func (c *Controller) load(in TickInput) {
	if c.phase == PhaseActive {
		return
	}
	if !c.settings().Enabled {
		c.phase = PhaseUnloaded
		return
	}

	v := c.vehicle
	if v == nil || len(v.Parts) == 0 {
		c.log.Warn("invalid vehicle, not loading")
		c.phase = PhaseUnloaded
		return
	}
	if !in.Body.HasAtmosphere {
		c.log.Debug("body has no atmosphere, not loading", zap.String("body", in.Body.Name))
		c.phase = PhaseUnloaded
		return
	}
	if in.Altitude > in.Body.AtmosphereDepth && !c.est.State().OverrideActive {
		c.log.Debug("above the atmosphere, not loading", zap.Float64("altitude", in.Altitude))
		c.phase = PhaseUnloaded
		return
	}
	if c.ctx.Layers == nil {
		c.fail(ErrNoLayers)
		return
	}

	structural := c.cam != nil
	c.log.Info("loading vehicle",
		zap.Bool("structural", structural),
		zap.Int("parts", len(v.Parts)),
		zap.Int("renderables", v.RenderableCount()))

	vol, err := bounds.Compute(v)
	if err != nil {
		c.fail(err)
		return
	}
	if vol.Relaxed {
		c.log.Debug("recalculated invalid vehicle bounds without part filter")
	}
	c.volume = vol
	c.baseLen = BaseLengthMultiplier(vol.Radius)

	if c.cam == nil {
		c.cam = camera.NewAirstreamCamera()
	}
	c.cam.FitToBounds(vol)

	c.body = in.Body.Name
	res := c.builder.Build(v)
	c.proxies = res.Proxies
	c.refreshItems()

	if c.emitter == nil && !c.settings().DisableParticles {
		c.emitter = particles.NewEmitter(c.ctx.Particles)
	}

	c.phase = PhaseActive
	c.err = nil
	c.rebuilds++
	c.ctx.Metrics.rebuild(c.name, structural)

	c.log.Info("finished loading vehicle",
		zap.Int("proxies", len(c.proxies)),
		zap.Float64("radius", vol.Radius))
}

func (c *Controller) fail(err error) {
	if errors.Is(err, bounds.ErrNoEligibleGeometry) {
		c.log.Warn("no eligible geometry, effect suppressed", zap.Error(err))
	} else {
		c.log.Error("loading vehicle failed", zap.Error(err))
	}
	c.ctx.Metrics.failure(c.name)
	c.dropEnvelopes()
	c.phase = PhaseFailed
	c.err = err
}

// dropEnvelopes removes the proxies and restores the renderables they hid.
func (c *Controller) dropEnvelopes() {
	envelope.Restore(c.proxies)
	c.proxies = nil
	c.items = nil
	if c.phase == PhaseActive {
		c.phase = PhaseUnloaded
	}
}

// unload tears down all derived state.
func (c *Controller) unload() {
	wasLoaded := c.phase == PhaseActive
	c.dropEnvelopes()
	c.cam = nil
	c.emitter = nil
	c.volume = bounds.Volume{}
	c.baseLen = 0
	c.output = Output{}
	c.est.Reset()
	c.phase = PhaseUnloaded
	c.err = nil
	if wasLoaded {
		c.log.Info("unloaded vehicle")
	}
}

// bodyConfig returns the body used for parameter lookup.
func (c *Controller) bodyConfig() string {
	if st := c.est.State(); st.OverrideActive && st.OverrideBody != "" {
		return st.OverrideBody
	}
	return c.body
}

func (c *Controller) resolve(partKey string) params.ParameterSet {
	return params.Resolve(c.ctx.Layers, c.bodyConfig(), partKey)
}

// refreshItems recomputes the per-proxy parameters without rediscovery.
func (c *Controller) refreshItems() {
	if c.ctx.Layers == nil {
		return
	}
	c.items = lo.Map(c.proxies, func(p envelope.Proxy, _ int) RenderItem {
		set := c.resolve(p.PartKey)
		return RenderItem{
			Proxy:  p,
			World:  p.World(),
			Colors: set.Colors,
			Params: set,
		}
	})
}

func (c *Controller) tick(in TickInput) {
	if c.ctx.Layers == nil {
		c.fail(ErrNoLayers)
		return
	}
	set := c.resolve("")
	s := c.settings()

	res := c.est.Step(estimator.Input{
		Aero:               in.Aero,
		DynamicPressureKPa: in.DynamicPressureKPa,
		Dt:                 in.Dt,
		Params:             set,
		BaseStrength:       s.StrengthBase,
	})

	st := c.est.State()
	dir := EntryDirection(in.SurfaceVelocity)
	aoa := AngleOfAttack(in.Forward, in.SurfaceVelocity)
	if st.OverrideActive {
		dir = normalize(st.OverrideDirection)
		aoa = st.OverrideAngleOfAttack
	}

	length := c.baseLen * set.Get(params.LengthMultiplier) * s.LengthMult

	v := c.vehicle
	c.cam.Follow(v.WorldFromVehicle, dir)

	emissions := c.output.Particles
	if c.emitter != nil {
		worldDir := dir.Mul(-1)
		localDir := normalize(mgl64.TransformNormal(worldDir, v.VehicleFromWorld()))
		if e := c.emitter.Update(particles.Input{
			Strength:         res.Strength,
			Threshold:        set.Get(params.ParticleThreshold),
			Center:           c.volume.Center,
			LocalDir:         localDir,
			WorldDir:         worldDir,
			RelativeVelocity: RelativeVelocity(in.IsActive, in.SurfaceVelocity, in.ActiveVelocity),
			LengthMultiplier: length,
		}); e != nil {
			emissions = e
		}
	}

	for i := range c.items {
		c.items[i].World = c.items[i].Proxy.World()
	}

	c.output = Output{
		Strength:         res.Strength,
		Direction:        dir,
		State:            res.State,
		AngleOfAttack:    aoa,
		LengthMultiplier: length,
		Bowshock:         !s.DisableBowshock,
		HDR:              s.HDROverride,
		Camera:           *c.cam,
		Particles:        emissions,
	}
	if s.DebugMode {
		c.output.Debug = debug.Overlay(v.WorldFromVehicle, c.volume, in.Forward, *c.cam)
	}
	c.ctx.Metrics.tick(c.name)
}
