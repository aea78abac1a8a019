package audio

import (
	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"

	"github.com/MariaGuerraSappho/manos/effect"
)

type compressorRuntime struct {
	fx *dynamics.Compressor
}

func newCompressorRuntime(sampleRate float64) (*compressorRuntime, error) {
	fx, err := dynamics.NewCompressor(sampleRate)
	if err != nil {
		return nil, wrapSetErr(err)
	}

	return &compressorRuntime{fx: fx}, nil
}

func (r *compressorRuntime) Kind() effect.Kind { return effect.Compressor }

func (r *compressorRuntime) SetParam(name string, value float64) error {
	switch name {
	case "threshold":
		return wrapSetErr(r.fx.SetThreshold(value))
	case "ratio":
		return wrapSetErr(r.fx.SetRatio(value))
	case "makeup":
		return wrapSetErr(r.fx.SetMakeupGain(value))
	default:
		return unknownParam(effect.Compressor, name)
	}
}

func (r *compressorRuntime) Process(block []float64) {
	r.fx.ProcessInPlace(block)
}

func (r *compressorRuntime) Reset() {
	r.fx.Reset()
}
