// Package effect declares the static effect registry: every effect kind the
// engine can host, its category, tags, parameter ranges, and scaling curves.
// The table is immutable after package init.
package effect

import (
	"errors"
	"fmt"
)

// Kind identifies one effect type. Kinds are dense and usable as table indices.
type Kind int

const (
	Volume Kind = iota
	Trim
	Compressor
	Filter
	EQ
	Panner
	Delay
	Reverb
	Distortion
	Chorus
	PitchShift
	Vibrato
	Phaser
	Tremolo
	BitCrusher
	RingMod

	numKinds
)

// ErrUnknownKind is returned when a name does not map to a registered kind.
var ErrUnknownKind = errors.New("unknown effect kind")

var kindNames = [numKinds]string{
	Volume:     "volume",
	Trim:       "trim",
	Compressor: "compressor",
	Filter:     "filter",
	EQ:         "eq",
	Panner:     "panner",
	Delay:      "delay",
	Reverb:     "reverb",
	Distortion: "distortion",
	Chorus:     "chorus",
	PitchShift: "pitch",
	Vibrato:    "vibrato",
	Phaser:     "phaser",
	Tremolo:    "tremolo",
	BitCrusher: "bitcrusher",
	RingMod:    "ringmod",
}

// String returns the stable wire name of the kind.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}

	return kindNames[k]
}

// Valid reports whether k names a registered kind.
func (k Kind) Valid() bool {
	return k >= 0 && k < numKinds
}

// KindFromString resolves a wire name back to its Kind.
func KindFromString(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Kinds returns every kind in declaration order. Declaration order is the
// authority for stable chain ordering.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}

	return out
}

// Category separates always-present utility effects from the modulated set
// that enters and leaves the chain based on its wet level.
type Category int

const (
	CategoryUtility Category = iota
	CategoryModulated
)

// Tag is a bitset describing the musical character of an effect. Mapping
// generation biases toward harmonic tags at low chaos and chaotic tags at
// high chaos.
type Tag uint8

const (
	TagHarmonic Tag = 1 << iota
	TagChaotic
)

// Has reports whether t contains all bits of other.
func (t Tag) Has(other Tag) bool {
	return t&other == other
}
