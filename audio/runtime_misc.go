package audio

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/effects"
	"github.com/cwbudde/algo-dsp/dsp/effects/spatial"

	"github.com/MariaGuerraSappho/manos/effect"
)

// gainRuntime serves both the volume and trim nodes: a single dB-controlled
// gain stage.
type gainRuntime struct {
	kind  effect.Kind
	param string
	gain  float64
}

func newGainRuntime(kind effect.Kind, param string) *gainRuntime {
	g := &gainRuntime{kind: kind, param: param, gain: 1}

	if spec, ok := effect.Lookup(kind); ok {
		if p, ok := spec.Param(param); ok {
			g.gain = core.DBToLinear(p.Default)
		}
	}

	return g
}

func (g *gainRuntime) Kind() effect.Kind { return g.kind }

func (g *gainRuntime) SetParam(name string, value float64) error {
	if name != g.param {
		return unknownParam(g.kind, name)
	}

	g.gain = core.DBToLinear(value)

	return nil
}

func (g *gainRuntime) Process(block []float64) {
	for i := range block {
		block[i] *= g.gain
	}
}

func (g *gainRuntime) Reset() {}

type delayRuntime struct {
	fx *effects.Delay
}

func newDelayRuntime(sampleRate float64) (*delayRuntime, error) {
	fx, err := effects.NewDelay(sampleRate)
	if err != nil {
		return nil, wrapSetErr(err)
	}

	if err := fx.SetMix(0); err != nil {
		return nil, wrapSetErr(err)
	}

	return &delayRuntime{fx: fx}, nil
}

func (r *delayRuntime) Kind() effect.Kind { return effect.Delay }

func (r *delayRuntime) SetParam(name string, value float64) error {
	switch name {
	case "time":
		return wrapSetErr(r.fx.SetTime(value))
	case "feedback":
		return wrapSetErr(r.fx.SetFeedback(value))
	case effect.WetParam:
		return wrapSetErr(r.fx.SetMix(value))
	default:
		return unknownParam(effect.Delay, name)
	}
}

func (r *delayRuntime) Process(block []float64) {
	r.fx.ProcessInPlace(block)
}

func (r *delayRuntime) Reset() {
	r.fx.Reset()
}

type distortionRuntime struct {
	fx *effects.Distortion
}

func newDistortionRuntime(sampleRate float64) (*distortionRuntime, error) {
	fx, err := effects.NewDistortion(sampleRate)
	if err != nil {
		return nil, wrapSetErr(err)
	}

	if err := fx.SetMix(0); err != nil {
		return nil, wrapSetErr(err)
	}

	return &distortionRuntime{fx: fx}, nil
}

func (r *distortionRuntime) Kind() effect.Kind { return effect.Distortion }

func (r *distortionRuntime) SetParam(name string, value float64) error {
	switch name {
	case "drive":
		return wrapSetErr(r.fx.SetDrive(value))
	case effect.WetParam:
		return wrapSetErr(r.fx.SetMix(value))
	default:
		return unknownParam(effect.Distortion, name)
	}
}

func (r *distortionRuntime) Process(block []float64) {
	r.fx.ProcessInPlace(block)
}

func (r *distortionRuntime) Reset() {
	r.fx.Reset()
}

type bitCrusherRuntime struct {
	fx *effects.BitCrusher
}

func newBitCrusherRuntime(sampleRate float64) (*bitCrusherRuntime, error) {
	fx, err := effects.NewBitCrusher(sampleRate)
	if err != nil {
		return nil, wrapSetErr(err)
	}

	if err := fx.SetMix(0); err != nil {
		return nil, wrapSetErr(err)
	}

	return &bitCrusherRuntime{fx: fx}, nil
}

func (r *bitCrusherRuntime) Kind() effect.Kind { return effect.BitCrusher }

func (r *bitCrusherRuntime) SetParam(name string, value float64) error {
	switch name {
	case "bits":
		return wrapSetErr(r.fx.SetBitDepth(value))
	case effect.WetParam:
		return wrapSetErr(r.fx.SetMix(value))
	default:
		return unknownParam(effect.BitCrusher, name)
	}
}

func (r *bitCrusherRuntime) Process(block []float64) {
	r.fx.ProcessInPlace(block)
}

func (r *bitCrusherRuntime) Reset() {
	r.fx.Reset()
}

// pannerRuntime holds the stereo placement parameters. The mono chain pass is
// a no-op; the graph output stage calls SpreadStereo to realize pan and width.
type pannerRuntime struct {
	widener *spatial.StereoWidener
	pan     float64
	width   float64
}

func newPannerRuntime(sampleRate float64) (*pannerRuntime, error) {
	w, err := spatial.NewStereoWidener(sampleRate)
	if err != nil {
		return nil, wrapSetErr(err)
	}

	return &pannerRuntime{widener: w, width: 1}, nil
}

func (r *pannerRuntime) Kind() effect.Kind { return effect.Panner }

func (r *pannerRuntime) SetParam(name string, value float64) error {
	switch name {
	case "pan":
		r.pan = core.Clamp(value, -1, 1)
		return nil
	case "width":
		r.width = core.Clamp(value, 0, 2)
		return wrapSetErr(r.widener.SetWidth(r.width))
	default:
		return unknownParam(effect.Panner, name)
	}
}

func (r *pannerRuntime) Process(_ []float64) {}

func (r *pannerRuntime) Reset() {
	r.widener.Reset()
}

// SpreadStereo places the mono signal into left/right with constant-power
// panning, then applies the widener when width deviates from unity.
func (r *pannerRuntime) SpreadStereo(mono, left, right []float64) {
	// Constant-power pan: pan=-1 full left, +1 full right.
	angle := (r.pan + 1) * 0.25 * math.Pi
	lg := math.Cos(angle)
	rg := math.Sin(angle)

	n := min(len(mono), min(len(left), len(right)))
	for i := range n {
		left[i] = mono[i] * lg
		right[i] = mono[i] * rg
	}

	if r.width != 1 {
		_ = r.widener.ProcessStereoInPlace(left[:n], right[:n])
	}
}
