package graph

import (
	"time"

	"github.com/MariaGuerraSappho/manos/audio"
	"github.com/MariaGuerraSappho/manos/effect"
)

// Render produces one mono block: source pull, effect chain, dry/wet
// crossfade, master gain, limiter. Ramps advance and due disposals drain
// here, once per block. A suspended or closed context yields silence.
func (m *Manager) Render(dst []float64) {
	m.mu.Lock()

	start := m.now()
	m.renderLocked(dst, start)

	// The cost observer may re-enter the manager (the governor pushes
	// intensity caps on escalation), so it runs outside the lock.
	fn := m.costFn
	cost := m.now().Sub(start)
	m.mu.Unlock()

	if fn != nil {
		fn(cost)
	}
}

// RenderStereo renders one mono block and spreads it across two channels
// through the panner node when wired, or duplicates it otherwise.
func (m *Manager) RenderStereo(left, right []float64) {
	m.mu.Lock()

	start := m.now()

	n := len(left)
	if len(right) < n {
		n = len(right)
	}

	mono := m.scratch(&m.scratchOut, n)
	m.renderLocked(mono, start)

	spread := false

	if node, ok := m.nodes[effect.Panner]; ok && m.memberLocked(node) {
		if sp, ok := node.rt.(audio.StereoSpreader); ok {
			sp.SpreadStereo(mono, left[:n], right[:n])

			spread = true
		}
	}

	if !spread {
		copy(left[:n], mono)
		copy(right[:n], mono)
	}

	fn := m.costFn
	cost := m.now().Sub(start)
	m.mu.Unlock()

	if fn != nil {
		fn(cost)
	}
}

func (m *Manager) renderLocked(dst []float64, start time.Time) {
	if !m.initialized || m.ctx.State() != audio.StateRunning {
		zero(dst)

		return
	}

	m.drainDisposalsLocked(start)
	m.advanceRampsLocked(start)

	dry := m.scratch(&m.scratchDry, len(dst))

	if m.source != nil {
		n := m.source.Pull(dry)
		zero(dry[n:])
	} else {
		zero(dry)
	}

	wet := m.scratch(&m.scratchWet, len(dst))
	copy(wet, dry)

	for _, node := range m.chain {
		node.rt.Process(wet)
	}

	for i := range dst {
		dst[i] = dry[i]*(1-m.mix) + wet[i]*m.mix
	}

	m.master.rt.Process(dst)

	for i := range dst {
		dst[i] = m.limiter.ProcessSample(dst[i])
	}
}

func (m *Manager) scratch(buf *[]float64, n int) []float64 {
	if cap(*buf) < n {
		*buf = make([]float64, n)
	}

	return (*buf)[:n]
}

func zero(block []float64) {
	for i := range block {
		block[i] = 0
	}
}
