package engine

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/MariaGuerraSappho/manos/audio"
	"github.com/MariaGuerraSappho/manos/effect"
	"github.com/MariaGuerraSappho/manos/gesture"
	"github.com/MariaGuerraSappho/manos/governor"
	"github.com/MariaGuerraSappho/manos/store"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(4000, 0)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = c.t.Add(d)
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *audio.OfflineContext, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	ctx := audio.NewOfflineContext()

	all := append([]Option{
		WithContext(ctx),
		WithClock(clock.now),
		WithRand(rand.New(rand.NewSource(7))),
	}, opts...)

	e, err := New(48000, all...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return e, ctx, clock
}

func TestPlayGatesRendering(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine(t)

	if err := e.SetSourceTone(440, 48000); err != nil {
		t.Fatalf("SetSourceTone: %v", err)
	}

	block := make([]float64, 256)
	e.Render(block)

	for i, v := range block {
		if v != 0 {
			t.Fatalf("render before Play produced audio at %d", i)
		}
	}

	if err := e.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	if !e.Playing() {
		t.Fatal("Playing false after Play")
	}

	e.Render(block)

	peak := 0.0
	for _, v := range block {
		if math.Abs(v) > peak {
			peak = math.Abs(v)
		}
	}

	if peak == 0 {
		t.Fatal("render after Play produced silence")
	}

	e.Stop()
	e.Render(block)

	for i, v := range block {
		if v != 0 {
			t.Fatalf("render after Stop produced audio at %d", i)
		}
	}
}

func TestPlayOnClosedContextFails(t *testing.T) {
	t.Parallel()

	e, ctx, _ := newTestEngine(t)

	if err := ctx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := e.Play(); !errors.Is(err, ErrDevice) {
		t.Fatalf("Play on closed context = %v, want ErrDevice", err)
	}
}

func TestStaleAsyncLoadDiscarded(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine(t)

	release := make(chan struct{})
	result := make(chan error, 1)

	e.LoadSampleAsync(func() ([]float64, error) {
		<-release

		return []float64{0.1, 0.2, 0.3}, nil
	}, true, func(err error) { result <- err })

	// A newer source lands while the load is still in flight.
	if err := e.SetSourceTone(440, 48000); err != nil {
		t.Fatalf("SetSourceTone: %v", err)
	}

	close(release)

	if err := <-result; !errors.Is(err, ErrStale) {
		t.Fatalf("stale load completion = %v, want ErrStale", err)
	}
}

func TestAsyncLoadApplies(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine(t)

	gen := e.Generation()
	result := make(chan error, 1)

	e.LoadSampleAsync(func() ([]float64, error) {
		return []float64{0.5, -0.5}, nil
	}, true, func(err error) { result <- err })

	if err := <-result; err != nil {
		t.Fatalf("load completion = %v", err)
	}

	if e.Generation() != gen+1 {
		t.Fatalf("generation = %d, want %d", e.Generation(), gen+1)
	}
}

func TestDecodeFailureLeavesEngineUsable(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine(t)

	result := make(chan error, 1)

	e.LoadSampleAsync(func() ([]float64, error) {
		return nil, errors.New("corrupt file")
	}, false, func(err error) { result <- err })

	if err := <-result; !errors.Is(err, ErrDecode) {
		t.Fatalf("failed load = %v, want ErrDecode", err)
	}

	if err := e.SetSourceSample(nil, false); !errors.Is(err, ErrDecode) {
		t.Fatalf("empty sample = %v, want ErrDecode", err)
	}

	if err := e.SetSourceTone(220, 48000); err != nil {
		t.Fatalf("engine unusable after decode failure: %v", err)
	}

	if err := e.Play(); err != nil {
		t.Fatalf("Play after decode failure: %v", err)
	}
}

func TestGovernorConstrainsGeneration(t *testing.T) {
	t.Parallel()

	e, _, clock := newTestEngine(t)

	// Force the governor into Reduced.
	for range 6 {
		clock.advance(20 * time.Millisecond)
		e.gov.ObserveCost(10 * time.Millisecond)
	}

	if e.PerformanceLevel() != governor.Reduced {
		t.Fatalf("level = %v, want reduced", e.PerformanceLevel())
	}

	mappings := e.GenerateMappings(1)

	allowed := map[effect.Kind]bool{
		effect.Volume:  true,
		effect.Filter:  true,
		effect.EQ:      true,
		effect.Panner:  true,
		effect.Tremolo: true,
		effect.Delay:   true,
	}

	for _, m := range mappings {
		if !allowed[m.Kind] {
			t.Fatalf("reduced generation used %v", m.Kind)
		}
	}

	// Chaos capped at 0.6: initial wet is 0.2 + 0.6*0.6 for the mapped
	// kinds that carry one.
	for _, m := range mappings {
		spec, _ := effect.Lookup(m.Kind)
		if !spec.HasWet() {
			continue
		}

		v, ok := e.graph.CurrentValue(m.Kind, effect.WetParam)
		if !ok {
			t.Fatalf("no wet value for %v", m.Kind)
		}

		if math.Abs(v-0.56) > 1e-9 {
			t.Fatalf("%v wet = %f, want 0.56", m.Kind, v)
		}
	}

	// Intensity caps reached the graph.
	if err := e.SetEffectParameter(effect.Delay, "feedback", 0.8); err != nil {
		t.Fatalf("SetEffectParameter: %v", err)
	}

	if v, _ := e.graph.CurrentValue(effect.Delay, "feedback"); v != 0.5 {
		t.Fatalf("capped feedback = %f, want 0.5", v)
	}
}

func TestHiddenHandDoesNotEscalate(t *testing.T) {
	t.Parallel()

	e, _, clock := newTestEngine(t)

	// Past the governor warmup with a visible hand.
	frame := gesture.NewFrame(map[gesture.Feature]float64{gesture.Proximity: 0.5})

	for range 200 {
		clock.advance(20 * time.Millisecond)
		e.ProcessFrame(frame)
	}

	// Several long hand-hidden stretches. Empty frames keep arriving at the
	// camera rate, so the governor must not read them as stalls.
	for range 3 {
		for range 50 {
			clock.advance(20 * time.Millisecond)
			e.ProcessFrame(nil)
		}

		for range 10 {
			clock.advance(20 * time.Millisecond)
			e.ProcessFrame(frame)
		}
	}

	if e.PerformanceLevel() != governor.Normal {
		t.Fatalf("level = %v after hand absence, want normal", e.PerformanceLevel())
	}
}

func TestProcessFrameDrivesVolume(t *testing.T) {
	t.Parallel()

	e, _, clock := newTestEngine(t)
	e.SetBaselineVolume(-10)

	frame := gesture.NewFrame(map[gesture.Feature]float64{gesture.Proximity: 0})

	for range 200 {
		clock.advance(20 * time.Millisecond)
		e.ProcessFrame(frame)
	}

	v, ok := e.graph.CurrentValue(effect.Volume, "level")
	if !ok {
		t.Fatal("volume never set")
	}

	if math.Abs(v-(-50)) > 0.5 {
		t.Fatalf("level = %f, want about -50", v)
	}

	changes := e.ActiveEffectChanges()
	if len(changes) == 0 || changes[0].Kind != effect.Volume {
		t.Fatalf("changes = %+v, want leading volume write", changes)
	}
}

func TestMappingPersistenceRoundTrip(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine(t, WithStore(store.NewMemoryStore()))

	generated := e.GenerateMappings(0.5)

	if err := e.SaveMappings("live", "live set"); err != nil {
		t.Fatalf("SaveMappings: %v", err)
	}

	// Overwrite the table, then restore.
	e.GenerateMappings(1)

	if err := e.LoadMappings("live"); err != nil {
		t.Fatalf("LoadMappings: %v", err)
	}

	desc := e.MappingsDescription()
	if desc == "no mappings" {
		t.Fatal("loaded set is empty")
	}

	if len(e.mapper.Mappings()) != len(generated) {
		t.Fatalf("restored %d mappings, want %d", len(e.mapper.Mappings()), len(generated))
	}

	infos, err := e.ListMappings()
	if err != nil {
		t.Fatalf("ListMappings: %v", err)
	}

	if len(infos) != 1 || infos[0].ID != "live" {
		t.Fatalf("ListMappings = %+v", infos)
	}

	if err := e.DeleteMappings("live"); err != nil {
		t.Fatalf("DeleteMappings: %v", err)
	}

	if err := e.LoadMappings("live"); err == nil {
		t.Fatal("LoadMappings succeeded after delete")
	}
}

func TestRecoverAfterSuspension(t *testing.T) {
	t.Parallel()

	e, ctx, _ := newTestEngine(t)

	if err := e.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	if !e.CheckHealth() {
		t.Fatal("CheckHealth false while playing")
	}

	ctx.ForceSuspend()

	if e.CheckHealth() {
		t.Fatal("CheckHealth true while suspended")
	}

	if !e.Recover() {
		t.Fatal("Recover failed")
	}

	if !e.CheckHealth() {
		t.Fatal("CheckHealth false after recovery")
	}
}
