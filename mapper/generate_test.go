package mapper

import (
	"math"
	"testing"

	"github.com/MariaGuerraSappho/manos/effect"
	"github.com/MariaGuerraSappho/manos/gesture"
)

func TestGenerateAlwaysReservesVolume(t *testing.T) {
	t.Parallel()

	for _, chaos := range []float64{0, 0.25, 0.5, 0.75, 1} {
		m, _, _ := newTestMapper()

		mappings := m.GenerateMappings(chaos, effect.ModulatedKinds())
		if len(mappings) == 0 {
			t.Fatalf("chaos %f: empty mapping set", chaos)
		}

		first := mappings[0]
		if first.Kind != effect.Volume || first.Param != "level" ||
			first.Feature != gesture.Proximity || first.Inverted {
			t.Fatalf("chaos %f: reserved mapping = %+v", chaos, first)
		}
	}
}

func TestGenerateNoDuplicatePairs(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestMapper()

	for _, chaos := range []float64{0, 0.5, 1} {
		mappings := m.GenerateMappings(chaos, effect.ModulatedKinds())

		seen := make(map[mappingKey]bool)

		for _, mp := range mappings {
			key := mappingKey{kind: mp.Kind, param: mp.Param}
			if seen[key] {
				t.Fatalf("chaos %f: duplicate pair %v.%s", chaos, mp.Kind, mp.Param)
			}

			seen[key] = true
		}
	}
}

func countKinds(mappings []Mapping) int {
	seen := make(map[effect.Kind]bool)

	for _, mp := range mappings {
		seen[mp.Kind] = true
	}

	return len(seen)
}

func TestGenerateSizeScalesWithChaos(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestMapper()

	// The set size counts the reserved volume mapping: volume plus one
	// effect at chaos 0, the full cap at chaos 1.
	low := m.GenerateMappings(0, effect.ModulatedKinds())
	if got := countKinds(low); got != 2 {
		t.Fatalf("chaos 0 selected %d effects, want 2", got)
	}

	whitelist := effect.ModulatedKinds()[:8]

	high := m.GenerateMappings(1, whitelist)
	if got := countKinds(high); got != 8 {
		t.Fatalf("chaos 1 with 8 candidates selected %d effects, want 8", got)
	}
}

func TestGenerateMapsFixedUtilities(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestMapper()

	// A degraded whitelist of filter plus volume must still yield a filter
	// mapping alongside the reserved one.
	mappings := m.GenerateMappings(0.3, []effect.Kind{effect.Filter, effect.Volume})

	sawFilter := false

	for _, mp := range mappings {
		if mp.Kind == effect.Filter {
			sawFilter = true
		}
	}

	if !sawFilter {
		t.Fatalf("restricted whitelist produced no filter mapping: %v", mappings)
	}
}

func TestGenerateRespectsWhitelist(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestMapper()

	whitelist := []effect.Kind{effect.Delay, effect.Tremolo}

	mappings := m.GenerateMappings(1, whitelist)

	allowed := map[effect.Kind]bool{
		effect.Volume:  true,
		effect.Delay:   true,
		effect.Tremolo: true,
	}

	for _, mp := range mappings {
		if !allowed[mp.Kind] {
			t.Fatalf("mapping uses %v outside the whitelist", mp.Kind)
		}
	}
}

func TestGenerateInitialWetIsAudible(t *testing.T) {
	t.Parallel()

	for _, chaos := range []float64{0, 0.5, 1} {
		m, g, _ := newTestMapper()

		mappings := m.GenerateMappings(chaos, effect.ModulatedKinds())
		want := wetFloor + wetChaosRange*chaos

		for _, kind := range mappedKinds(mappings) {
			v, ok := g.lastValue(kind, effect.WetParam)
			if !ok {
				t.Fatalf("chaos %f: %v got no initial wet", chaos, kind)
			}

			if math.Abs(v-want) > 1e-9 {
				t.Fatalf("chaos %f: %v wet = %f, want %f", chaos, kind, v, want)
			}
		}
	}
}

func TestGenerateClearsPreviousEffects(t *testing.T) {
	t.Parallel()

	m, g, _ := newTestMapper()

	m.GenerateMappings(0.5, effect.ModulatedKinds())
	m.GenerateMappings(0.5, effect.ModulatedKinds())

	if g.clears != 2 {
		t.Fatalf("clears = %d, want one per generation", g.clears)
	}
}

func TestGenerateBiasesAgainstRepeats(t *testing.T) {
	t.Parallel()

	// With the repeat penalty, back-to-back generations over a wide pool
	// should not keep picking an identical kind set every time. Check over
	// several rounds rather than one, since a repeat is still possible.
	m, _, _ := newTestMapper()

	identical := 0
	prev := map[effect.Kind]bool{}

	for round := range 10 {
		mappings := m.GenerateMappings(0.5, effect.ModulatedKinds())

		current := make(map[effect.Kind]bool)
		for _, mp := range mappings {
			if mp.Kind != effect.Volume {
				current[mp.Kind] = true
			}
		}

		if round > 0 && len(current) == len(prev) {
			same := true

			for k := range current {
				if !prev[k] {
					same = false

					break
				}
			}

			if same {
				identical++
			}
		}

		prev = current
	}

	if identical == 9 {
		t.Fatal("every generation picked the identical kind set")
	}
}
