package graph

import (
	"fmt"
	"time"

	"github.com/MariaGuerraSappho/manos/effect"
)

// SetParameter applies one clamped parameter value, ramping into it over the
// configured duration. Out-of-range values clamp rather than fail; only an
// unknown kind or parameter is an error. Wet-level changes that cross the
// audibility threshold rebuild the chain. A node that cannot be wired is
// logged and skipped, leaving the signal on the bypass path.
func (m *Manager) SetParameter(kind effect.Kind, name string, value float64) error {
	spec, ok := effect.Lookup(kind)
	if !ok {
		return fmt.Errorf("graph: %w: %d", effect.ErrUnknownKind, int(kind))
	}

	p, ok := spec.Param(name)
	if !ok {
		return fmt.Errorf("graph: %v has no parameter %q", kind, name)
	}

	value = p.Clamp(value)

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}

	value = m.capLocked(kind, name, value)

	if kind == effect.Volume {
		m.startRampLocked(m.master, name, value)
		m.master.values[name] = value

		return nil
	}

	node, ok := m.nodes[kind]
	if !ok {
		acquired, err := m.acquireLocked(kind)
		if err != nil {
			m.log.Printf("graph: wiring %v failed, bypassing: %v", kind, err)

			return nil
		}

		node = acquired
		m.nodes[kind] = node
	}

	if !m.faded || name != effect.WetParam {
		m.startRampLocked(node, name, value)
	}

	node.values[name] = value

	rebuild := false

	if name == effect.WetParam {
		prev := m.mappedWet[kind]
		m.mappedWet[kind] = value
		rebuild = (prev > wetEpsilon) != (value > wetEpsilon)
	} else if spec.IsFixedUtility() {
		rebuild = true
	}

	if rebuild {
		m.rebuildLocked()
	}

	return nil
}

// SetIntensityCaps installs per-parameter ceilings, applied on top of the
// spec clamp at every subsequent SetParameter. Nil clears all caps.
func (m *Manager) SetIntensityCaps(caps map[effect.Kind]map[string]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.caps = caps

	for kind, params := range caps {
		node, ok := m.nodes[kind]
		if !ok {
			continue
		}

		for name, ceil := range params {
			if v, ok := node.values[name]; ok && v > ceil {
				m.startRampLocked(node, name, ceil)
				node.values[name] = ceil

				if name == effect.WetParam {
					m.mappedWet[kind] = ceil
				}
			}
		}
	}
}

func (m *Manager) capLocked(kind effect.Kind, name string, value float64) float64 {
	params, ok := m.caps[kind]
	if !ok {
		return value
	}

	if ceil, ok := params[name]; ok && value > ceil {
		return ceil
	}

	return value
}

// CurrentValue reports the last applied target for a parameter, with the
// table default when it was never set.
func (m *Manager) CurrentValue(kind effect.Kind, name string) (float64, bool) {
	spec, ok := effect.Lookup(kind)
	if !ok {
		return 0, false
	}

	p, ok := spec.Param(name)
	if !ok {
		return 0, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if kind == effect.Volume && m.master != nil {
		if v, ok := m.master.values[name]; ok {
			return v, true
		}

		return p.Default, true
	}

	if node, ok := m.nodes[kind]; ok {
		if v, ok := node.values[name]; ok {
			return v, true
		}
	}

	return p.Default, true
}

func (m *Manager) startRampLocked(node *Node, name string, target float64) {
	if m.rampDuration <= 0 {
		if err := node.rt.SetParam(name, target); err != nil {
			m.log.Printf("graph: apply %v.%s: %v", node.kind, name, err)
		}

		return
	}

	from := target
	if v, ok := m.rampPositionLocked(node, name); ok {
		from = v
	} else if v, ok := node.values[name]; ok {
		from = v
	}

	for _, r := range m.ramps {
		if r.node == node && r.name == name {
			r.from = from
			r.to = target
			r.start = m.now()
			r.done = false

			return
		}
	}

	m.ramps = append(m.ramps, &ramp{
		node:  node,
		name:  name,
		from:  from,
		to:    target,
		start: m.now(),
		dur:   m.rampDuration,
	})
}

func (m *Manager) rampPositionLocked(node *Node, name string) (float64, bool) {
	for _, r := range m.ramps {
		if r.node == node && r.name == name && !r.done {
			return r.valueAt(m.now()), true
		}
	}

	return 0, false
}

func (r *ramp) valueAt(now time.Time) float64 {
	f := float64(now.Sub(r.start)) / float64(r.dur)
	if f <= 0 {
		return r.from
	}

	if f >= 1 {
		return r.to
	}

	return r.from + (r.to-r.from)*f
}

func (m *Manager) advanceRampsLocked(now time.Time) {
	if len(m.ramps) == 0 {
		return
	}

	live := m.ramps[:0]

	for _, r := range m.ramps {
		v := r.valueAt(now)

		if err := r.node.rt.SetParam(r.name, v); err != nil {
			m.log.Printf("graph: ramp %v.%s: %v", r.node.kind, r.name, err)
			r.done = true
		}

		if !r.done && v != r.to {
			live = append(live, r)

			continue
		}

		r.done = true
	}

	m.ramps = live
}

func (m *Manager) dropRampsLocked(node *Node) {
	live := m.ramps[:0]

	for _, r := range m.ramps {
		if r.node != node {
			live = append(live, r)
		}
	}

	m.ramps = live
}
