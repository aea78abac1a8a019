// Package gesture defines the normalized feature vector delivered once per
// detected hand frame. Extraction itself (landmarks, tracking) lives outside
// this module; everything here is plain normalized scalars.
package gesture

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/core"
)

// Feature identifies one normalized scalar derived from hand tracking.
type Feature int

const (
	Height Feature = iota
	Spread
	Proximity
	PositionX
	PositionY
	ThumbCurl
	IndexCurl
	MiddleCurl
	RingCurl
	PinkyCurl
	OverallCurl
	Velocity

	numFeatures
)

// ErrUnknownFeature is returned when a name does not map to a feature.
var ErrUnknownFeature = errors.New("unknown gesture feature")

var featureNames = [numFeatures]string{
	Height:      "height",
	Spread:      "spread",
	Proximity:   "proximity",
	PositionX:   "positionX",
	PositionY:   "positionY",
	ThumbCurl:   "thumbCurl",
	IndexCurl:   "indexCurl",
	MiddleCurl:  "middleCurl",
	RingCurl:    "ringCurl",
	PinkyCurl:   "pinkyCurl",
	OverallCurl: "overallCurl",
	Velocity:    "velocity",
}

// String returns the stable wire name of the feature.
func (f Feature) String() string {
	if !f.Valid() {
		return fmt.Sprintf("feature(%d)", int(f))
	}

	return featureNames[f]
}

// Valid reports whether f names a known feature.
func (f Feature) Valid() bool {
	return f >= 0 && f < numFeatures
}

// FeatureFromString resolves a wire name back to its Feature.
func FeatureFromString(name string) (Feature, error) {
	for f, n := range featureNames {
		if n == name {
			return Feature(f), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
}

// AllFeatures returns every feature in declaration order.
func AllFeatures() []Feature {
	out := make([]Feature, numFeatures)
	for i := range out {
		out[i] = Feature(i)
	}

	return out
}

// Frame is one snapshot of normalized gesture features, each in [0,1].
// A nil *Frame means no hand was detected for that moment.
type Frame struct {
	values [numFeatures]float64
}

// NewFrame builds a frame from the given feature values; missing features
// default to zero and all values are clamped to [0,1].
func NewFrame(values map[Feature]float64) *Frame {
	fr := &Frame{}
	for f, v := range values {
		fr.Set(f, v)
	}

	return fr
}

// Feature reads one feature value. Unknown features read as zero.
func (fr *Frame) Feature(f Feature) float64 {
	if !f.Valid() {
		return 0
	}

	return fr.values[f]
}

// Set stores one feature value, clamped to [0,1].
func (fr *Frame) Set(f Feature, v float64) {
	if !f.Valid() {
		return
	}

	fr.values[f] = core.Clamp(v, 0, 1)
}
