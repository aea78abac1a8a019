package mapper

import (
	"math"

	"github.com/MariaGuerraSappho/manos/effect"
	"github.com/MariaGuerraSappho/manos/gesture"
)

const (
	// Generated sets hold between minEffects and maxEffects effects,
	// counting the reserved volume mapping, interpolated by chaos.
	minEffects = 2
	maxEffects = 8

	// Freshly generated (or loaded) effects start with an audible wet level
	// so the set is heard immediately.
	wetFloor       = 0.2
	wetChaosRange  = 0.6
	defaultLoadWet = 0.5

	// Selection weights: effects used in the previous generation are biased
	// against; tag affinity kicks in outside the neutral chaos band.
	repeatPenalty   = 0.35
	tagBoost        = 2.5
	lowChaosCutoff  = 0.4
	highChaosCutoff = 0.7
	paramShareFloor = 0.4
	paramShareSlope = 0.6
)

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// GenerateMappings replaces the mapping table with a fresh random one.
// Chaos in [0,1] scales how many effects and parameters take part and how
// wild the selection is; whitelist restricts the candidate kinds. The
// reserved volume/proximity mapping always comes first and is never
// reassigned. Returns the new table.
func (m *Mapper) GenerateMappings(chaos float64, whitelist []effect.Kind) []Mapping {
	if chaos < 0 {
		chaos = 0
	}

	if chaos > 1 {
		chaos = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kinds := m.pickKindsLocked(chaos, whitelist)

	mappings := make([]Mapping, 0, 1+len(kinds)*2)
	mappings = append(mappings, Mapping{
		Kind:    effect.Volume,
		Param:   "level",
		Feature: gesture.Proximity,
	})

	for _, kind := range kinds {
		mappings = append(mappings, m.pickParamsLocked(chaos, kind)...)
	}

	m.installLocked(mappings, wetFloor+wetChaosRange*chaos)

	m.prevKinds = make(map[effect.Kind]bool, len(kinds))
	for _, kind := range kinds {
		m.prevKinds[kind] = true
	}

	out := make([]Mapping, len(mappings))
	copy(out, mappings)

	return out
}

// pickKindsLocked draws the kinds joining the reserved volume mapping, by
// weighted sampling without replacement. Modulated kinds and the fixed
// utilities are both candidates; volume never is.
func (m *Mapper) pickKindsLocked(chaos float64, whitelist []effect.Kind) []effect.Kind {
	type candidate struct {
		kind   effect.Kind
		weight float64
	}

	var pool []candidate

	for _, kind := range whitelist {
		spec, ok := effect.Lookup(kind)
		if !ok || kind == effect.Volume {
			continue
		}

		if spec.Category != effect.CategoryModulated && !spec.IsFixedUtility() {
			continue
		}

		w := 1.0
		if m.prevKinds[kind] {
			w *= repeatPenalty
		}

		if chaos < lowChaosCutoff && spec.Tags.Has(effect.TagHarmonic) {
			w *= tagBoost
		}

		if chaos > highChaosCutoff && spec.Tags.Has(effect.TagChaotic) {
			w *= tagBoost
		}

		pool = append(pool, candidate{kind: kind, weight: w})
	}

	// The set size includes the reserved volume slot.
	ceil := float64(len(pool) + 1)
	if ceil > maxEffects {
		ceil = maxEffects
	}

	count := int(math.Floor(lerp(minEffects, ceil, chaos))) - 1
	if count > len(pool) {
		count = len(pool)
	}

	if count < 0 {
		count = 0
	}

	picked := make([]effect.Kind, 0, count)

	for len(picked) < count {
		total := 0.0
		for _, c := range pool {
			total += c.weight
		}

		r := m.rng.Float64() * total
		idx := len(pool) - 1

		for i, c := range pool {
			r -= c.weight
			if r < 0 {
				idx = i

				break
			}
		}

		picked = append(picked, pool[idx].kind)
		pool = append(pool[:idx], pool[idx+1:]...)
	}

	return picked
}

// pickParamsLocked chooses which parameters of one kind get mapped, and to
// which features. Features unseen for that kind are preferred.
func (m *Mapper) pickParamsLocked(chaos float64, kind effect.Kind) []Mapping {
	spec, ok := effect.Lookup(kind)
	if !ok {
		return nil
	}

	share := lerp(paramShareFloor, paramShareFloor+paramShareSlope, chaos)

	count := int(math.Ceil(share * float64(len(spec.Params))))
	if count > len(spec.Params) {
		count = len(spec.Params)
	}

	order := m.rng.Perm(len(spec.Params))
	features := m.featureOrderLocked(kind)

	used := m.usedFeatures[kind]
	if used == nil {
		used = make(map[gesture.Feature]bool)
		m.usedFeatures[kind] = used
	}

	out := make([]Mapping, 0, count)

	for i := 0; i < count && i < len(features); i++ {
		p := spec.Params[order[i]]
		f := features[i]
		used[f] = true

		out = append(out, Mapping{
			Kind:     kind,
			Param:    p.Name,
			Feature:  f,
			Inverted: m.rng.Float64() < 0.5,
		})
	}

	return out
}

// featureOrderLocked shuffles all features, floating the ones this kind has
// not used before to the front.
func (m *Mapper) featureOrderLocked(kind effect.Kind) []gesture.Feature {
	all := gesture.AllFeatures()
	used := m.usedFeatures[kind]

	fresh := make([]gesture.Feature, 0, len(all))
	seen := make([]gesture.Feature, 0, len(all))

	for _, f := range all {
		if used[f] {
			seen = append(seen, f)
		} else {
			fresh = append(fresh, f)
		}
	}

	m.rng.Shuffle(len(fresh), func(i, j int) { fresh[i], fresh[j] = fresh[j], fresh[i] })
	m.rng.Shuffle(len(seen), func(i, j int) { seen[i], seen[j] = seen[j], seen[i] })

	return append(fresh, seen...)
}

// installLocked swaps in a new mapping table: old effects are cleared, the
// per-mapping evaluation state reset, and every mapped kind given its
// starting wet level.
func (m *Mapper) installLocked(mappings []Mapping, wet float64) {
	m.graph.ClearEffects()

	m.mappings = mappings
	m.smoothed = make(map[mappingKey]float64)
	m.lastApplied = make(map[mappingKey]float64)
	m.changes = nil

	for _, kind := range mappedKinds(mappings) {
		spec, ok := effect.Lookup(kind)
		if !ok || !spec.HasWet() {
			continue
		}

		if err := m.graph.SetParameter(kind, effect.WetParam, wet); err != nil {
			m.log.Printf("mapper: init wet %v: %v", kind, err)
		}
	}
}

func mappedKinds(mappings []Mapping) []effect.Kind {
	seen := make(map[effect.Kind]bool)

	var out []effect.Kind

	for _, mapping := range mappings {
		if mapping.Kind == effect.Volume || seen[mapping.Kind] {
			continue
		}

		seen[mapping.Kind] = true
		out = append(out, mapping.Kind)
	}

	return out
}
