package audio

import (
	"github.com/cwbudde/algo-dsp/dsp/effects/modulation"

	"github.com/MariaGuerraSappho/manos/effect"
)

type chorusRuntime struct {
	fx *modulation.Chorus
}

func newChorusRuntime(sampleRate float64) (*chorusRuntime, error) {
	fx, err := modulation.NewChorus()
	if err != nil {
		return nil, wrapSetErr(err)
	}

	if err := fx.SetSampleRate(sampleRate); err != nil {
		return nil, wrapSetErr(err)
	}

	if err := fx.SetMix(0); err != nil {
		return nil, wrapSetErr(err)
	}

	return &chorusRuntime{fx: fx}, nil
}

func (r *chorusRuntime) Kind() effect.Kind { return effect.Chorus }

func (r *chorusRuntime) SetParam(name string, value float64) error {
	switch name {
	case "rate":
		return wrapSetErr(r.fx.SetSpeedHz(value))
	case "depth":
		return wrapSetErr(r.fx.SetDepth(value))
	case effect.WetParam:
		return wrapSetErr(r.fx.SetMix(value))
	default:
		return unknownParam(effect.Chorus, name)
	}
}

func (r *chorusRuntime) Process(block []float64) {
	r.fx.ProcessInPlace(block)
}

func (r *chorusRuntime) Reset() {
	r.fx.Reset()
}

// vibratoRuntime rides on the flanger: zero feedback, small modulated delay.
// Depth maps onto delay modulation depth under a fixed base delay.
type vibratoRuntime struct {
	fx *modulation.Flanger
}

const (
	vibratoBaseDelaySeconds = 0.004
	vibratoDepthSeconds     = 0.003
)

func newVibratoRuntime(sampleRate float64) (*vibratoRuntime, error) {
	fx, err := modulation.NewFlanger(sampleRate)
	if err != nil {
		return nil, wrapSetErr(err)
	}

	// Order matters: the flanger validates depth against base delay.
	if err := fx.SetDepthSeconds(0); err != nil {
		return nil, wrapSetErr(err)
	}

	if err := fx.SetBaseDelaySeconds(vibratoBaseDelaySeconds); err != nil {
		return nil, wrapSetErr(err)
	}

	if err := fx.SetFeedback(0); err != nil {
		return nil, wrapSetErr(err)
	}

	if err := fx.SetMix(0); err != nil {
		return nil, wrapSetErr(err)
	}

	return &vibratoRuntime{fx: fx}, nil
}

func (r *vibratoRuntime) Kind() effect.Kind { return effect.Vibrato }

func (r *vibratoRuntime) SetParam(name string, value float64) error {
	switch name {
	case "rate":
		return wrapSetErr(r.fx.SetRateHz(value))
	case "depth":
		return wrapSetErr(r.fx.SetDepthSeconds(value * vibratoDepthSeconds))
	case effect.WetParam:
		return wrapSetErr(r.fx.SetMix(value))
	default:
		return unknownParam(effect.Vibrato, name)
	}
}

func (r *vibratoRuntime) Process(block []float64) {
	_ = r.fx.ProcessInPlace(block)
}

func (r *vibratoRuntime) Reset() {
	r.fx.Reset()
}

type phaserRuntime struct {
	fx *modulation.Phaser
}

func newPhaserRuntime(sampleRate float64) (*phaserRuntime, error) {
	fx, err := modulation.NewPhaser(sampleRate)
	if err != nil {
		return nil, wrapSetErr(err)
	}

	if err := fx.SetMix(0); err != nil {
		return nil, wrapSetErr(err)
	}

	return &phaserRuntime{fx: fx}, nil
}

func (r *phaserRuntime) Kind() effect.Kind { return effect.Phaser }

func (r *phaserRuntime) SetParam(name string, value float64) error {
	switch name {
	case "rate":
		return wrapSetErr(r.fx.SetRateHz(value))
	case "feedback":
		return wrapSetErr(r.fx.SetFeedback(value))
	case effect.WetParam:
		return wrapSetErr(r.fx.SetMix(value))
	default:
		return unknownParam(effect.Phaser, name)
	}
}

func (r *phaserRuntime) Process(block []float64) {
	_ = r.fx.ProcessInPlace(block)
}

func (r *phaserRuntime) Reset() {
	r.fx.Reset()
}

type tremoloRuntime struct {
	fx *modulation.Tremolo
}

func newTremoloRuntime(sampleRate float64) (*tremoloRuntime, error) {
	fx, err := modulation.NewTremolo(sampleRate)
	if err != nil {
		return nil, wrapSetErr(err)
	}

	if err := fx.SetMix(0); err != nil {
		return nil, wrapSetErr(err)
	}

	return &tremoloRuntime{fx: fx}, nil
}

func (r *tremoloRuntime) Kind() effect.Kind { return effect.Tremolo }

func (r *tremoloRuntime) SetParam(name string, value float64) error {
	switch name {
	case "rate":
		return wrapSetErr(r.fx.SetRateHz(value))
	case "depth":
		return wrapSetErr(r.fx.SetDepth(value))
	case effect.WetParam:
		return wrapSetErr(r.fx.SetMix(value))
	default:
		return unknownParam(effect.Tremolo, name)
	}
}

func (r *tremoloRuntime) Process(block []float64) {
	_ = r.fx.ProcessInPlace(block)
}

func (r *tremoloRuntime) Reset() {
	r.fx.Reset()
}

type ringModRuntime struct {
	fx *modulation.RingModulator
}

func newRingModRuntime(sampleRate float64) (*ringModRuntime, error) {
	fx, err := modulation.NewRingModulator(sampleRate)
	if err != nil {
		return nil, wrapSetErr(err)
	}

	if err := fx.SetMix(0); err != nil {
		return nil, wrapSetErr(err)
	}

	return &ringModRuntime{fx: fx}, nil
}

func (r *ringModRuntime) Kind() effect.Kind { return effect.RingMod }

func (r *ringModRuntime) SetParam(name string, value float64) error {
	switch name {
	case "carrier":
		return wrapSetErr(r.fx.SetCarrierHz(value))
	case effect.WetParam:
		return wrapSetErr(r.fx.SetMix(value))
	default:
		return unknownParam(effect.RingMod, name)
	}
}

func (r *ringModRuntime) Process(block []float64) {
	r.fx.ProcessInPlace(block)
}

func (r *ringModRuntime) Reset() {
	r.fx.Reset()
}
