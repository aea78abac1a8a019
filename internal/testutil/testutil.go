// Package testutil provides deterministic signals and gesture sequences for
// tests.
package testutil

import (
	"math"
	"testing"

	"github.com/MariaGuerraSappho/manos/gesture"
)

// Sine generates a deterministic sine wave.
func Sine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate

	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}

	return out
}

// ProximitySweep builds a frame sequence moving the hand from far to near in
// equal steps, with all other features held at mid.
func ProximitySweep(steps int) []*gesture.Frame {
	out := make([]*gesture.Frame, steps)

	for i := range out {
		p := 0.0
		if steps > 1 {
			p = float64(i) / float64(steps-1)
		}

		frame := gesture.NewFrame(nil)
		for _, f := range gesture.AllFeatures() {
			frame.Set(f, 0.5)
		}

		frame.Set(gesture.Proximity, p)
		out[i] = frame
	}

	return out
}

// RequireFinite fails t if any sample is NaN or Inf.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()

	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// Peak returns the largest absolute sample.
func Peak(data []float64) float64 {
	peak := 0.0

	for _, v := range data {
		if math.Abs(v) > peak {
			peak = math.Abs(v)
		}
	}

	return peak
}
