package graph

import "github.com/MariaGuerraSappho/manos/audio"

// CheckHealth reports whether the context is running and the graph usable.
func (m *Manager) CheckHealth() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.initialized && !m.unrecoverable && m.ctx.State() == audio.StateRunning
}

// Recover tries to bring a suspended context back. First attempt is a plain
// resume; if that fails the whole graph resets (flush disposals, reset every
// runtime, restart the context). A failed reset marks the manager
// unrecoverable and every later call returns false.
func (m *Manager) Recover() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized || m.unrecoverable {
		return false
	}

	if m.ctx.State() == audio.StateRunning {
		return true
	}

	err := m.ctx.Resume()
	if err == nil {
		m.log.Printf("graph: context resumed")

		return true
	}

	m.log.Printf("graph: resume failed, resetting graph: %v", err)

	m.flushDisposalLocked()
	m.ramps = nil

	for _, node := range m.nodes {
		node.rt.Reset()
	}

	m.master.rt.Reset()
	m.limiter.Reset()

	if err := m.ctx.Start(); err != nil {
		if m.resetAttempt {
			m.unrecoverable = true
			m.log.Printf("graph: reset failed twice, unrecoverable: %v", err)
		} else {
			m.resetAttempt = true
			m.log.Printf("graph: reset failed: %v", err)
		}

		return false
	}

	m.resetAttempt = false
	m.log.Printf("graph: recovered via full reset")

	return true
}
