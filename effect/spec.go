package effect

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
)

// Scale selects the curve used to map a normalized [0,1] control value into
// the parameter's plain range.
type Scale int

const (
	ScaleLinear Scale = iota
	ScaleExponential
)

// WetParam is the wet-level parameter name shared by every modulated spec.
const WetParam = "wet"

// ParamSpec declares one parameter: its plain range, default, and curve.
// Delicate marks artifact-prone parameters (pitch shift, filter cutoff) that
// receive extra smoothing during per-frame evaluation.
type ParamSpec struct {
	Name     string
	Min      float64
	Max      float64
	Default  float64
	Scale    Scale
	Delicate bool
}

// ScaleValue maps a normalized value in [0,1] through the parameter's curve
// into [Min,Max]. Exponential scaling requires a positive range and falls
// back to linear otherwise.
func (p ParamSpec) ScaleValue(normalized float64) float64 {
	x := core.Clamp(normalized, 0, 1)

	if p.Scale == ScaleExponential && p.Min > 0 && p.Max > p.Min {
		return p.Min * math.Pow(p.Max/p.Min, x)
	}

	return p.Min + x*(p.Max-p.Min)
}

// Clamp limits a plain value to the parameter range.
func (p ParamSpec) Clamp(value float64) float64 {
	return core.Clamp(value, p.Min, p.Max)
}

// Range returns the plain span of the parameter.
func (p ParamSpec) Range() float64 {
	return p.Max - p.Min
}

// Spec declares one effect: kind, category, tags, and ordered parameters.
// Parameter order matters: it is the order mapping generation walks.
type Spec struct {
	Kind     Kind
	Category Category
	Tags     Tag
	Params   []ParamSpec
}

// Param looks up a parameter spec by name.
func (s Spec) Param(name string) (ParamSpec, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}

	return ParamSpec{}, false
}

// HasWet reports whether the spec carries a wet-level parameter.
func (s Spec) HasWet() bool {
	_, ok := s.Param(WetParam)
	return ok
}

// IsFixedUtility reports whether the effect stays wired into the chain head
// and is considered active purely by its settings deviating from defaults.
func (s Spec) IsFixedUtility() bool {
	switch s.Kind {
	case Compressor, Filter, EQ, Panner:
		return true
	default:
		return false
	}
}

var specs = [numKinds]Spec{
	Volume: {
		Kind:     Volume,
		Category: CategoryUtility,
		Params: []ParamSpec{
			{Name: "level", Min: -60, Max: 12, Default: -10},
		},
	},
	Trim: {
		Kind:     Trim,
		Category: CategoryUtility,
		Params: []ParamSpec{
			{Name: "gain", Min: -24, Max: 24, Default: 0},
		},
	},
	Compressor: {
		Kind:     Compressor,
		Category: CategoryUtility,
		Params: []ParamSpec{
			{Name: "threshold", Min: -60, Max: 0, Default: -24},
			{Name: "ratio", Min: 1, Max: 20, Default: 4},
			{Name: "makeup", Min: 0, Max: 12, Default: 0},
		},
	},
	Filter: {
		Kind:     Filter,
		Category: CategoryUtility,
		Tags:     TagHarmonic,
		Params: []ParamSpec{
			{Name: "cutoff", Min: 80, Max: 8000, Default: 8000, Scale: ScaleExponential, Delicate: true},
			{Name: "resonance", Min: 0.3, Max: 12, Default: 0.707},
		},
	},
	EQ: {
		Kind:     EQ,
		Category: CategoryUtility,
		Tags:     TagHarmonic,
		Params: []ParamSpec{
			{Name: "lowGain", Min: -15, Max: 15, Default: 0},
			{Name: "midGain", Min: -15, Max: 15, Default: 0},
			{Name: "highGain", Min: -15, Max: 15, Default: 0},
		},
	},
	Panner: {
		Kind:     Panner,
		Category: CategoryUtility,
		Tags:     TagHarmonic,
		Params: []ParamSpec{
			{Name: "pan", Min: -1, Max: 1, Default: 0},
			{Name: "width", Min: 0, Max: 2, Default: 1},
		},
	},
	Delay: {
		Kind:     Delay,
		Category: CategoryModulated,
		Tags:     TagHarmonic,
		Params: []ParamSpec{
			{Name: "time", Min: 0.05, Max: 1.2, Default: 0.3, Scale: ScaleExponential},
			{Name: "feedback", Min: 0, Max: 0.85, Default: 0.35},
			{Name: WetParam, Min: 0, Max: 1, Default: 0},
		},
	},
	Reverb: {
		Kind:     Reverb,
		Category: CategoryModulated,
		Tags:     TagHarmonic,
		Params: []ParamSpec{
			{Name: "decay", Min: 0.1, Max: 0.95, Default: 0.5},
			{Name: "damp", Min: 0, Max: 1, Default: 0.5},
			{Name: WetParam, Min: 0, Max: 1, Default: 0},
		},
	},
	Distortion: {
		Kind:     Distortion,
		Category: CategoryModulated,
		Tags:     TagChaotic,
		Params: []ParamSpec{
			{Name: "drive", Min: 0.5, Max: 20, Default: 2, Scale: ScaleExponential},
			{Name: WetParam, Min: 0, Max: 1, Default: 0},
		},
	},
	Chorus: {
		Kind:     Chorus,
		Category: CategoryModulated,
		Tags:     TagHarmonic,
		Params: []ParamSpec{
			{Name: "rate", Min: 0.1, Max: 5, Default: 0.8},
			{Name: "depth", Min: 0, Max: 1, Default: 0.4},
			{Name: WetParam, Min: 0, Max: 1, Default: 0},
		},
	},
	PitchShift: {
		Kind:     PitchShift,
		Category: CategoryModulated,
		Tags:     TagChaotic,
		Params: []ParamSpec{
			{Name: "semitones", Min: -12, Max: 12, Default: 0, Delicate: true},
			{Name: WetParam, Min: 0, Max: 1, Default: 0},
		},
	},
	Vibrato: {
		Kind:     Vibrato,
		Category: CategoryModulated,
		Tags:     TagHarmonic,
		Params: []ParamSpec{
			{Name: "rate", Min: 0.5, Max: 8, Default: 4},
			{Name: "depth", Min: 0, Max: 1, Default: 0.3},
			{Name: WetParam, Min: 0, Max: 1, Default: 0},
		},
	},
	Phaser: {
		Kind:     Phaser,
		Category: CategoryModulated,
		Tags:     TagChaotic,
		Params: []ParamSpec{
			{Name: "rate", Min: 0.1, Max: 4, Default: 0.5},
			{Name: "feedback", Min: 0, Max: 0.9, Default: 0.3},
			{Name: WetParam, Min: 0, Max: 1, Default: 0},
		},
	},
	Tremolo: {
		Kind:     Tremolo,
		Category: CategoryModulated,
		Tags:     TagHarmonic,
		Params: []ParamSpec{
			{Name: "rate", Min: 0.5, Max: 12, Default: 5},
			{Name: "depth", Min: 0, Max: 1, Default: 0.5},
			{Name: WetParam, Min: 0, Max: 1, Default: 0},
		},
	},
	BitCrusher: {
		Kind:     BitCrusher,
		Category: CategoryModulated,
		Tags:     TagChaotic,
		Params: []ParamSpec{
			{Name: "bits", Min: 2, Max: 12, Default: 12},
			{Name: WetParam, Min: 0, Max: 1, Default: 0},
		},
	},
	RingMod: {
		Kind:     RingMod,
		Category: CategoryModulated,
		Tags:     TagChaotic,
		Params: []ParamSpec{
			{Name: "carrier", Min: 40, Max: 2000, Default: 220, Scale: ScaleExponential},
			{Name: WetParam, Min: 0, Max: 1, Default: 0},
		},
	},
}

// Lookup returns the spec for the given kind.
func Lookup(kind Kind) (Spec, bool) {
	if !kind.Valid() {
		return Spec{}, false
	}

	return specs[kind], true
}

// Specs returns all specs in declaration order. Callers must treat the
// result as read-only.
func Specs() []Spec {
	return specs[:]
}

// ModulatedKinds returns the modulated kinds in declaration order.
func ModulatedKinds() []Kind {
	var out []Kind

	for _, s := range specs {
		if s.Category == CategoryModulated {
			out = append(out, s.Kind)
		}
	}

	return out
}
