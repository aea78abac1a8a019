package audio

import (
	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/effects/pitch"
	"github.com/cwbudde/algo-dsp/dsp/effects/reverb"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"

	"github.com/MariaGuerraSappho/manos/effect"
)

// filterRuntime is a resonant lowpass built on an RBJ biquad. Coefficients
// are redesigned only when cutoff or resonance actually move.
type filterRuntime struct {
	fx         *biquad.Chain
	sampleRate float64
	cutoff     float64
	resonance  float64
}

func newFilterRuntime(sampleRate float64) *filterRuntime {
	r := &filterRuntime{
		sampleRate: sampleRate,
		cutoff:     8000,
		resonance:  0.707,
	}
	r.fx = biquad.NewChain([]biquad.Coefficients{
		design.Lowpass(r.cutoff, r.resonance, sampleRate),
	})

	return r
}

func (r *filterRuntime) Kind() effect.Kind { return effect.Filter }

func (r *filterRuntime) SetParam(name string, value float64) error {
	switch name {
	case "cutoff":
		value = core.Clamp(value, 20, r.sampleRate*0.49)
		if value == r.cutoff {
			return nil
		}

		r.cutoff = value
	case "resonance":
		value = core.Clamp(value, 0.2, 12)
		if value == r.resonance {
			return nil
		}

		r.resonance = value
	default:
		return unknownParam(effect.Filter, name)
	}

	r.fx.UpdateCoefficients([]biquad.Coefficients{
		design.Lowpass(r.cutoff, r.resonance, r.sampleRate),
	}, 1)

	return nil
}

func (r *filterRuntime) Process(block []float64) {
	r.fx.ProcessBlock(block)
}

func (r *filterRuntime) Reset() {
	r.fx.Reset()
}

// eqRuntime is the fixed 3-band EQ: low shelf at 200 Hz, peak at 1 kHz,
// high shelf at 6 kHz.
type eqRuntime struct {
	fx         *biquad.Chain
	sampleRate float64
	lowGain    float64
	midGain    float64
	highGain   float64
}

const (
	eqLowFreq  = 200.0
	eqMidFreq  = 1000.0
	eqHighFreq = 6000.0
	eqShelfQ   = 0.707
	eqMidQ     = 1.2
)

func newEQRuntime(sampleRate float64) *eqRuntime {
	r := &eqRuntime{sampleRate: sampleRate}
	r.fx = biquad.NewChain(r.coefficients())

	return r
}

func (r *eqRuntime) coefficients() []biquad.Coefficients {
	return []biquad.Coefficients{
		design.LowShelf(eqLowFreq, r.lowGain, eqShelfQ, r.sampleRate),
		design.Peak(eqMidFreq, r.midGain, eqMidQ, r.sampleRate),
		design.HighShelf(eqHighFreq, r.highGain, eqShelfQ, r.sampleRate),
	}
}

func (r *eqRuntime) Kind() effect.Kind { return effect.EQ }

func (r *eqRuntime) SetParam(name string, value float64) error {
	value = core.Clamp(value, -15, 15)

	switch name {
	case "lowGain":
		r.lowGain = value
	case "midGain":
		r.midGain = value
	case "highGain":
		r.highGain = value
	default:
		return unknownParam(effect.EQ, name)
	}

	r.fx.UpdateCoefficients(r.coefficients(), 1)

	return nil
}

func (r *eqRuntime) Process(block []float64) {
	r.fx.ProcessBlock(block)
}

func (r *eqRuntime) Reset() {
	r.fx.Reset()
}

// pitchRuntime wraps the time-domain pitch shifter. The library processor has
// no internal mix, so the runtime blends against a retained dry copy.
type pitchRuntime struct {
	fx  *pitch.PitchShifter
	wet float64
	dry []float64
}

func newPitchRuntime(sampleRate float64) (*pitchRuntime, error) {
	fx, err := pitch.NewPitchShifter(sampleRate)
	if err != nil {
		return nil, wrapSetErr(err)
	}

	return &pitchRuntime{fx: fx}, nil
}

func (r *pitchRuntime) Kind() effect.Kind { return effect.PitchShift }

func (r *pitchRuntime) SetParam(name string, value float64) error {
	switch name {
	case "semitones":
		return wrapSetErr(r.fx.SetPitchSemitones(value))
	case effect.WetParam:
		r.wet = core.Clamp(value, 0, 1)
		return nil
	default:
		return unknownParam(effect.PitchShift, name)
	}
}

func (r *pitchRuntime) Process(block []float64) {
	if r.wet <= 0 {
		return
	}

	if cap(r.dry) < len(block) {
		r.dry = make([]float64, len(block))
	}

	r.dry = r.dry[:len(block)]
	copy(r.dry, block)

	r.fx.ProcessInPlace(block)

	dryGain := 1 - r.wet
	for i := range block {
		block[i] = r.dry[i]*dryGain + block[i]*r.wet
	}
}

func (r *pitchRuntime) Reset() {
	r.fx.Reset()
}

type reverbRuntime struct {
	fx *reverb.Reverb
}

func newReverbRuntime() *reverbRuntime {
	fx := reverb.NewReverb()
	fx.SetWet(0)
	fx.SetDry(1)

	return &reverbRuntime{fx: fx}
}

func (r *reverbRuntime) Kind() effect.Kind { return effect.Reverb }

func (r *reverbRuntime) SetParam(name string, value float64) error {
	switch name {
	case "decay":
		r.fx.SetRoomSize(core.Clamp(value, 0, 1))
		return nil
	case "damp":
		r.fx.SetDamp(core.Clamp(value, 0, 1))
		return nil
	case effect.WetParam:
		wet := core.Clamp(value, 0, 1)
		r.fx.SetWet(wet)
		r.fx.SetDry(1 - 0.5*wet)

		return nil
	default:
		return unknownParam(effect.Reverb, name)
	}
}

func (r *reverbRuntime) Process(block []float64) {
	r.fx.ProcessInPlace(block)
}

func (r *reverbRuntime) Reset() {
	r.fx.Reset()
}
