// Package audio adapts the algo-dsp processors into uniform effect runtimes
// the graph manager can host, and declares the source and context contracts
// the engine consumes. One runtime wraps one library processor and translates
// the registry's parameter names onto its setters.
package audio

import (
	"errors"
	"fmt"

	"github.com/MariaGuerraSappho/manos/effect"
)

// Runtime is the per-node processing and configuration contract.
// Process operates on mono blocks in-place; SetParam takes plain
// (already scaled and clamped) values.
type Runtime interface {
	Kind() effect.Kind
	SetParam(name string, value float64) error
	Process(block []float64)
	Reset()
}

// StereoSpreader is an optional interface for runtimes that place a mono
// signal into a stereo field (the panner).
type StereoSpreader interface {
	SpreadStereo(mono, left, right []float64)
}

// ErrUnknownParam is returned when a runtime receives a parameter name it
// does not own.
var ErrUnknownParam = errors.New("unknown parameter")

// ErrUnsupportedKind is returned when no runtime exists for a kind.
var ErrUnsupportedKind = errors.New("unsupported effect kind")

func wrapSetErr(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("audio: set parameter: %w", err)
}

func unknownParam(kind effect.Kind, name string) error {
	return fmt.Errorf("%w: %s/%s", ErrUnknownParam, kind, name)
}

// NewRuntime builds the runtime for the given kind at the given sample rate.
//
//nolint:cyclop
func NewRuntime(kind effect.Kind, sampleRate float64) (Runtime, error) {
	switch kind {
	case effect.Volume:
		return newGainRuntime(effect.Volume, "level"), nil
	case effect.Trim:
		return newGainRuntime(effect.Trim, "gain"), nil
	case effect.Compressor:
		return newCompressorRuntime(sampleRate)
	case effect.Filter:
		return newFilterRuntime(sampleRate), nil
	case effect.EQ:
		return newEQRuntime(sampleRate), nil
	case effect.Panner:
		return newPannerRuntime(sampleRate)
	case effect.Delay:
		return newDelayRuntime(sampleRate)
	case effect.Reverb:
		return newReverbRuntime(), nil
	case effect.Distortion:
		return newDistortionRuntime(sampleRate)
	case effect.Chorus:
		return newChorusRuntime(sampleRate)
	case effect.PitchShift:
		return newPitchRuntime(sampleRate)
	case effect.Vibrato:
		return newVibratoRuntime(sampleRate)
	case effect.Phaser:
		return newPhaserRuntime(sampleRate)
	case effect.Tremolo:
		return newTremoloRuntime(sampleRate)
	case effect.BitCrusher:
		return newBitCrusherRuntime(sampleRate)
	case effect.RingMod:
		return newRingModRuntime(sampleRate)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKind, kind)
	}
}
