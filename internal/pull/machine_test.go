package pull

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/lehigh-university-libraries/gacha/internal/catalog"
	"github.com/lehigh-university-libraries/gacha/internal/eventloop"
	"github.com/lehigh-university-libraries/gacha/internal/models"
	"github.com/lehigh-university-libraries/gacha/internal/present"
	"github.com/lehigh-university-libraries/gacha/internal/render"
)

const swordAndPotion = `- {id: 1, name: Legendary Sword, weight: 10, image: sword.png, description: sword.md}
- {id: 2, name: Potion, weight: 90, image: potion.png, description: potion.md}
`

type fixedRNG float64

func (r fixedRNG) Float64() float64 { return float64(r) }

type catalogRequest struct {
	onSuccess func(models.CatalogPayload)
	onFailure func(error)
}

type assetRequest struct {
	ref       models.AssetRef
	onSuccess func(models.AssetPayload)
	onFailure func(error)
}

// fakeBridge parks every request until the test resolves it on the loop.
type fakeBridge struct {
	loop     *eventloop.Loop
	catalogs []catalogRequest
	assets   []assetRequest
}

func (b *fakeBridge) FetchCatalog(_ string, onSuccess func(models.CatalogPayload), onFailure func(error)) {
	b.catalogs = append(b.catalogs, catalogRequest{onSuccess, onFailure})
}

func (b *fakeBridge) FetchAsset(_ string, ref models.AssetRef, onSuccess func(models.AssetPayload), onFailure func(error)) {
	b.assets = append(b.assets, assetRequest{ref, onSuccess, onFailure})
}

func (b *fakeBridge) resolveAsset(i int, p models.AssetPayload) {
	req := b.assets[i]
	b.loop.Post(func() { req.onSuccess(p) })
	b.loop.Drain()
}

func (b *fakeBridge) failAsset(i int, err error) {
	req := b.assets[i]
	b.loop.Post(func() { req.onFailure(err) })
	b.loop.Drain()
}

type harness struct {
	t           *testing.T
	loop        *eventloop.Loop
	clock       *testingclock.FakeClock
	bridge      *fakeBridge
	store       *catalog.Store
	view        *present.Snapshot
	machine     *Machine
	transitions []Transition
}

func newHarness(t *testing.T, rng interface{ Float64() float64 }) *harness {
	t.Helper()
	loop := eventloop.New()
	h := &harness{
		t:      t,
		loop:   loop,
		clock:  testingclock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		bridge: &fakeBridge{loop: loop},
		view:   present.NewSnapshot(),
	}
	h.store = catalog.NewStore(h.bridge, "gacha1")
	h.machine = New(Config{Folder: "gacha1", MinAnimation: 2 * time.Second}, Deps{
		Catalog:   h.store,
		Assets:    h.bridge,
		View:      h.view,
		Renderer:  render.NewRenderer(),
		Clock:     h.clock,
		Scheduler: loop,
		RNG:       rng,
	})
	h.machine.Observe(func(tr Transition) { h.transitions = append(h.transitions, tr) })

	loop.Post(h.machine.Start)
	loop.Drain()
	return h
}

func (h *harness) loadCatalog(items string) {
	h.t.Helper()
	require.Len(h.t, h.bridge.catalogs, 1)
	req := h.bridge.catalogs[0]
	h.loop.Post(func() { req.onSuccess(models.CatalogPayload{ItemsYAML: items}) })
	h.loop.Drain()
}

func (h *harness) pull() error {
	var err error
	h.loop.Post(func() { err = h.machine.Pull() })
	h.loop.Drain()
	return err
}

func (h *harness) step(d time.Duration) {
	h.clock.Step(d)
	h.loop.Drain()
}

func (h *harness) revealedAt() (time.Time, bool) {
	for _, tr := range h.transitions {
		if tr.To == StateRevealing {
			return tr.At, true
		}
	}
	return time.Time{}, false
}

var asset = models.AssetPayload{ImageData: "data:image/png;base64,iVBORw0KGgo=", MDContent: "# Item\nDescription"}

func TestControlDisabledUntilCatalogReady(t *testing.T) {
	h := newHarness(t, fixedRNG(0))

	st := h.view.State()
	assert.False(t, st.Control.Enabled)
	assert.Equal(t, present.LabelPull, st.Control.Label)
	assert.Equal(t, catalog.DefaultTitle, st.Title)
	assert.ErrorIs(t, h.pull(), ErrNotReady)

	h.loadCatalog(swordAndPotion)
	assert.True(t, h.view.State().Control.Enabled)
}

func TestRevealWaitsForMinimumDuration(t *testing.T) {
	tests := []struct {
		name    string
		latency time.Duration
	}{
		{name: "instant asset", latency: 0},
		{name: "asset at 500ms", latency: 500 * time.Millisecond},
		{name: "asset at 1999ms", latency: 1999 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, rand.New(rand.NewPCG(1, 2)))
			h.loadCatalog(swordAndPotion)
			start := h.clock.Now()

			require.NoError(t, h.pull())
			assert.Equal(t, StateDrawing, h.machine.State())

			h.step(tt.latency)
			h.bridge.resolveAsset(0, asset)

			st := h.view.State()
			assert.Equal(t, StateDrawing, h.machine.State())
			assert.False(t, st.Control.Enabled)
			assert.Contains(t, st.Classes, present.ClassShake)
			assert.True(t, st.Loading)
			assert.Nil(t, st.Result)

			h.step(2*time.Second - tt.latency - time.Millisecond)
			assert.Equal(t, StateDrawing, h.machine.State())
			assert.False(t, h.view.State().Control.Enabled)

			h.step(time.Millisecond)
			assert.Equal(t, StateIdle, h.machine.State())

			at, ok := h.revealedAt()
			require.True(t, ok)
			assert.GreaterOrEqual(t, at.Sub(start), 2*time.Second)

			st = h.view.State()
			require.NotNil(t, st.Result)
			assert.Contains(t, []string{"Legendary Sword", "Potion"}, st.Result.Name)
			assert.Equal(t, asset.ImageData, st.Result.Image)
			assert.Contains(t, st.Result.Description, "<h1")
			assert.Empty(t, st.Classes)
			assert.False(t, st.Loading)
			assert.Equal(t, present.Control{Enabled: true, Label: present.LabelRepeat}, st.Control)
		})
	}
}

func TestRevealWaitsForSlowAsset(t *testing.T) {
	h := newHarness(t, fixedRNG(0))
	h.loadCatalog(swordAndPotion)
	start := h.clock.Now()

	require.NoError(t, h.pull())
	h.step(5 * time.Second)
	assert.Equal(t, StateDrawing, h.machine.State())
	assert.False(t, h.view.State().Control.Enabled)

	h.bridge.resolveAsset(0, asset)
	assert.Equal(t, StateIdle, h.machine.State())

	at, ok := h.revealedAt()
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, at.Sub(start))
	assert.Equal(t, "Legendary Sword", h.view.State().Result.Name)
}

func TestFetchUsesSelectedEntry(t *testing.T) {
	h := newHarness(t, fixedRNG(0.5))
	h.loadCatalog(swordAndPotion)

	require.NoError(t, h.pull())
	require.Len(t, h.bridge.assets, 1)
	assert.Equal(t, models.AssetRef{Image: "potion.png", Description: "potion.md"}, h.bridge.assets[0].ref)
}

func TestPullIsSingleFlight(t *testing.T) {
	h := newHarness(t, fixedRNG(0))
	h.loadCatalog(swordAndPotion)

	require.NoError(t, h.pull())
	assert.ErrorIs(t, h.pull(), ErrBusy)
	assert.Len(t, h.bridge.assets, 1)

	h.bridge.resolveAsset(0, asset)
	h.step(2 * time.Second)

	require.NoError(t, h.pull())
	assert.Len(t, h.bridge.assets, 2)
}

func TestAssetFailureReturnsToIdle(t *testing.T) {
	h := newHarness(t, fixedRNG(0))
	h.loadCatalog(swordAndPotion)

	require.NoError(t, h.pull())
	h.step(300 * time.Millisecond)
	h.bridge.failAsset(0, errors.New("Assets not found"))

	assert.Equal(t, StateIdle, h.machine.State())
	st := h.view.State()
	assert.True(t, st.Control.Enabled)
	assert.Equal(t, present.LabelPull, st.Control.Label)
	assert.Nil(t, st.Result)
	assert.Empty(t, st.Classes)
	assert.False(t, st.Loading)
	assert.Contains(t, st.Error, "Assets not found")

	var states []State
	for _, tr := range h.transitions {
		states = append(states, tr.To)
	}
	assert.Equal(t, []State{StateDrawing, StateFailed, StateIdle}, states)

	// the stopped timer must not revive the aborted pull
	h.step(5 * time.Second)
	assert.Equal(t, StateIdle, h.machine.State())
	assert.Nil(t, h.view.State().Result)
}

func TestLateAssetAfterFailureIsIgnored(t *testing.T) {
	h := newHarness(t, fixedRNG(0))
	h.loadCatalog(swordAndPotion)

	require.NoError(t, h.pull())
	h.bridge.failAsset(0, errors.New("timeout"))
	require.NoError(t, h.pull())

	// resolving the first request must not complete the second pull
	h.bridge.resolveAsset(0, asset)
	h.step(2 * time.Second)
	assert.Equal(t, StateDrawing, h.machine.State())

	h.bridge.resolveAsset(1, asset)
	assert.Equal(t, StateIdle, h.machine.State())
}

func TestFailureAfterRevealKeepsRepeatLabel(t *testing.T) {
	h := newHarness(t, fixedRNG(0))
	h.loadCatalog(swordAndPotion)

	require.NoError(t, h.pull())
	h.bridge.resolveAsset(0, asset)
	h.step(2 * time.Second)
	require.NotNil(t, h.view.State().Result)

	require.NoError(t, h.pull())
	assert.Nil(t, h.view.State().Result)
	h.bridge.failAsset(1, errors.New("boom"))

	st := h.view.State()
	assert.Equal(t, present.Control{Enabled: true, Label: present.LabelRepeat}, st.Control)
	assert.Nil(t, st.Result)
}

func TestMalformedCatalogKeepsControlDisabled(t *testing.T) {
	h := newHarness(t, fixedRNG(0))
	h.loadCatalog("- {id: 1, name: Legendary Sword, image: sword.png, description: sword.md}")

	assert.Equal(t, catalog.StateFailed, h.store.State())
	st := h.view.State()
	assert.False(t, st.Control.Enabled)
	assert.Contains(t, st.Error, "malformed catalog")
	assert.ErrorIs(t, h.pull(), ErrNotReady)

	h.step(time.Hour)
	assert.False(t, h.view.State().Control.Enabled)
	assert.Len(t, h.bridge.catalogs, 1)
}

func TestPromotionShownWhileDrawing(t *testing.T) {
	h := newHarness(t, fixedRNG(0))
	require.Len(t, h.bridge.catalogs, 1)
	req := h.bridge.catalogs[0]
	h.loop.Post(func() {
		req.onSuccess(models.CatalogPayload{
			GachaYAML: `name: Test Gacha
grades:
  blue: {color: blue, promotion: {rate: 1.0, next_grade: gold}}
  gold: {color: gold, promotion: {rate: 1.0, next_grade: rainbow}}
  rainbow: {color: rainbow}
`,
			ItemsYAML: `- {id: dummy, name: Dummy Blue, grade: blue, weight: 1, image: dummy.png, description: dummy.md}
- {id: item1, name: Rainbow Sword, grade: rainbow, weight: 1, image: img1.png, description: desc1.md}
`,
		})
	})
	h.loop.Drain()
	assert.Equal(t, "Test Gacha", h.view.State().Title)

	require.NoError(t, h.pull())
	st := h.view.State()
	require.NotNil(t, st.Promotion)
	assert.Equal(t, "blue", st.Promotion.FromGrade)
	assert.Equal(t, "rainbow", st.Promotion.ToGrade)
	assert.Contains(t, st.Classes, present.ClassPromotion)
	assert.Equal(t, models.AssetRef{Image: "img1.png", Description: "desc1.md"}, h.bridge.assets[0].ref)

	h.bridge.resolveAsset(0, asset)
	h.step(2 * time.Second)
	assert.Equal(t, "Rainbow Sword", h.view.State().Result.Name)
	assert.Equal(t, "rainbow", h.view.State().Result.Grade)
}

func TestJoinFiresOnLastArm(t *testing.T) {
	fired := 0
	j := newJoin(func() { fired++ })
	a := j.arm()
	b := j.arm()

	a()
	a()
	assert.Equal(t, 0, fired)
	b()
	assert.Equal(t, 1, fired)
	b()
	assert.Equal(t, 1, fired)
}
