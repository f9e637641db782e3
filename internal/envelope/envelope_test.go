package envelope

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/entryfx/internal/vehicle"
)

func mesh(name string) *vehicle.Renderable {
	return &vehicle.Renderable{
		Name:         name,
		Active:       true,
		PartFromMesh: mgl64.Ident4(),
		LocalScale:   mgl64.Vec3{1, 1, 1},
		MeshBounds:   &vehicle.AABB{Min: mgl64.Vec3{-1, -1, -1}, Max: mgl64.Vec3{1, 1, 1}},
		Visible:      true,
	}
}

func part(key string, rs ...*vehicle.Renderable) *vehicle.Part {
	return &vehicle.Part{
		Key:           key,
		Name:          key,
		WorldFromPart: mgl64.Ident4(),
		WorldScale:    mgl64.Vec3{1, 1, 1},
		Renderables:   rs,
	}
}

func build(parts ...*vehicle.Part) Result {
	v := &vehicle.Vehicle{Name: "test", WorldFromVehicle: mgl64.Ident4(), Parts: parts}
	return NewBuilder(nil).Build(v)
}

func TestBuild_GeneralDiscovery(t *testing.T) {
	hidden := mesh("collider")
	hidden.Layer = vehicle.LayerHidden
	noMesh := mesh("empty")
	noMesh.MeshBounds = nil
	inactive := mesh("off")
	inactive.Active = false

	res := build(part("pod", mesh("shell"), mesh("heatshield"), hidden, noMesh, inactive))

	require.Len(t, res.Proxies, 2)
	assert.Equal(t, "shell", res.Proxies[0].Renderable.Name)
	assert.Equal(t, "heatshield", res.Proxies[1].Renderable.Name)
	assert.Equal(t, PartStats{Scanned: 2}, res.Parts["pod"])

	for _, p := range res.Proxies {
		assert.Equal(t, "pod", p.PartKey)
		assert.Equal(t, DefaultScaleBias, p.ScaleBias)
		assert.Equal(t, mgl64.Vec3{1, 1, 1}, p.ModelScale)
		assert.False(t, p.Tagged)
		assert.True(t, p.Renderable.Visible, "general proxies keep normal rendering")
	}
}

func TestBuild_TaggedPartSkipsGeneralScan(t *testing.T) {
	tagged := mesh("atmofx_envelope")
	tagged.EnvelopeTagged = true
	taggedToo := mesh("atmofx_envelope_nose")
	taggedToo.EnvelopeTagged = true

	res := build(part("fairing", tagged, taggedToo))

	require.Len(t, res.Proxies, 2)
	assert.Equal(t, PartStats{Tagged: 2, Scanned: 0}, res.Parts["fairing"])
	for _, p := range res.Proxies {
		assert.True(t, p.Tagged)
		assert.False(t, p.Renderable.Visible, "tagged renderables are hidden behind their proxy")
		assert.Equal(t, mgl64.Vec3{1, 1, 1}, p.ScaleBias)
	}
}

func TestBuild_MixedTaggingUsesOnlyTagged(t *testing.T) {
	tagged := mesh("atmofx_envelope")
	tagged.EnvelopeTagged = true
	plain := mesh("shell")

	res := build(part("pod", plain, tagged))

	require.Len(t, res.Proxies, 1)
	assert.Same(t, tagged, res.Proxies[0].Renderable)
	assert.Equal(t, 0, res.Parts["pod"].Scanned)
	assert.True(t, plain.Visible)
}

func TestBuild_CategoryRules(t *testing.T) {
	decal := part("decal", mesh("sticker"))
	decal.Categories = vehicle.CategoryConformalDecal

	chute := part("chute", mesh("canopy"))
	chute.Categories = vehicle.CategoryParachute

	taggedChute := mesh("atmofx_envelope")
	taggedChute.EnvelopeTagged = true
	chuteWithEnvelope := part("chute2", taggedChute)
	chuteWithEnvelope.Categories = vehicle.CategoryParachute

	wheel := part("gear", mesh("tire"), mesh("flare"))
	wheel.Categories = vehicle.CategoryWheel

	res := build(decal, chute, chuteWithEnvelope, wheel)

	_, decalSeen := res.Parts["decal"]
	assert.False(t, decalSeen, "decorative parts are excluded entirely")
	assert.Equal(t, 0, res.Parts["chute"].Scanned, "parachutes are not bounds compatible")
	assert.Equal(t, 1, res.Parts["chute2"].Tagged, "explicit envelopes bypass the bounds check")
	assert.Equal(t, 1, res.Parts["gear"].Scanned, "wheel flare is skipped")
}

func TestBuild_AsteroidRandomness(t *testing.T) {
	rock := part("PotatoRoid", mesh("rock"))
	rock.Categories = vehicle.CategoryAsteroid

	res := build(rock, part("pod", mesh("shell")))
	require.Len(t, res.Proxies, 2)
	assert.Equal(t, 1.0, res.Proxies[0].RandomnessFactor)
	assert.Equal(t, 0.0, res.Proxies[1].RandomnessFactor)
}

func TestModelScale(t *testing.T) {
	r := mesh("m")
	r.LocalScale = mgl64.Vec3{4, 4, 4}

	tests := []struct {
		name  string
		mode  vehicle.ScaleMode
		world mgl64.Vec3
		want  mgl64.Vec3
	}{
		{"lossy", vehicle.ScaleLossy, mgl64.Vec3{2, 0.5, 1}, mgl64.Vec3{0.5, 2, 1}},
		{"local", vehicle.ScaleLocal, mgl64.Vec3{2, 2, 2}, mgl64.Vec3{0.25, 0.25, 0.25}},
		{"unit", vehicle.ScaleUnit, mgl64.Vec3{2, 2, 2}, mgl64.Vec3{1, 1, 1}},
		{"zero axis", vehicle.ScaleLossy, mgl64.Vec3{0, 2, 2}, mgl64.Vec3{1, 0.5, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := part("p", r)
			p.ScaleMode = tt.mode
			p.WorldScale = tt.world
			assert.Equal(t, tt.want, ModelScale(p, r))
		})
	}
}

func TestRestoreAndWorld(t *testing.T) {
	tagged := mesh("atmofx_envelope")
	tagged.EnvelopeTagged = true
	tagged.PartFromMesh = mgl64.Translate3D(0, 0, 3)
	p := part("pod", tagged)
	p.WorldFromPart = mgl64.Translate3D(1, 0, 0)

	res := build(p)
	require.Len(t, res.Proxies, 1)
	require.False(t, tagged.Visible)

	origin := mgl64.TransformCoordinate(mgl64.Vec3{}, res.Proxies[0].World())
	assert.True(t, origin.ApproxEqual(mgl64.Vec3{1, 0, 3}), "world origin %v", origin)

	Restore(res.Proxies)
	assert.True(t, tagged.Visible)
}

func TestRebind(t *testing.T) {
	snapshot := func(x float64) *vehicle.Vehicle {
		tagged := mesh("atmofx_envelope")
		tagged.EnvelopeTagged = true
		pod := part("pod", tagged)
		pod.WorldFromPart = mgl64.Translate3D(x, 0, 0)
		return &vehicle.Vehicle{WorldFromVehicle: mgl64.Ident4(), Parts: []*vehicle.Part{part("tank", mesh("body")), pod}}
	}

	old := snapshot(0)
	res := NewBuilder(nil).Build(old)
	require.Len(t, res.Proxies, 2)

	next := snapshot(4)
	require.True(t, next.Parts[1].Renderables[0].Visible)

	got, ok := Rebind(res.Proxies, old, next)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Same(t, next.Parts[0], got[0].Part)
	assert.Same(t, next.Parts[1].Renderables[0], got[1].Renderable)
	assert.False(t, next.Parts[1].Renderables[0].Visible, "tagged renderable stays hidden")
	assert.Same(t, old.Parts[0], res.Proxies[0].Part, "input is not modified")

	origin := mgl64.TransformCoordinate(mgl64.Vec3{}, got[1].World())
	assert.Equal(t, mgl64.Vec3{4, 0, 0}, origin)

	t.Run("structure changed", func(t *testing.T) {
		fewer := snapshot(0)
		fewer.Parts = fewer.Parts[:1]
		got, ok := Rebind(res.Proxies, old, fewer)
		assert.False(t, ok)
		assert.Same(t, old.Parts[0], got[0].Part)

		renamed := snapshot(0)
		renamed.Parts[0].Key = "engine"
		_, ok = Rebind(res.Proxies, old, renamed)
		assert.False(t, ok)

		_, ok = Rebind(res.Proxies, nil, next)
		assert.False(t, ok)
	})
}
